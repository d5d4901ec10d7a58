package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"cosigner/internal/orchestrator/devserver"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	claimBound := flag.Bool("claim-bound", false, "claim_session reports BOUND directly")
	bindAfter := flag.Int("bind-after", 0, "status polls before a claimed session is BOUND (-1 never)")
	failKeygen := flag.Bool("fail-keygen", false, "answer keygen_done with 503")
	debug := flag.Bool("debug", false, "log every request")
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	dev := devserver.New(devserver.Options{
		ClaimReportsBound: *claimBound,
		BindAfterPolls:    *bindAfter,
		FailKeygenDone:    *failKeygen,
	}, log)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           dev.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", *addr).Msg("orchestrator listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("serve")
	}
}
