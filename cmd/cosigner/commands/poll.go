package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cosigner/internal/services/actions"
)

func pollCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Fetch and fulfil KEYGEN and SIGN actions until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := wireUp.Authenticate(ctx); err != nil {
				return err
			}

			// Run one cycle right away rather than waiting out the first delay.
			wireUp.Actions.ForcePoll(ctx)
			if once {
				printState(wireUp.Actions.State())
				return nil
			}

			if err := wireUp.Actions.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			wireUp.Actions.Stop()
			printState(wireUp.Actions.State())
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single poll cycle and exit")
	return cmd
}

func printState(s actions.PollState) {
	fmt.Printf("Device:      %s\n", s.DeviceID)
	if !s.LastPolledAt.IsZero() {
		fmt.Printf("Last polled: %s\n", s.LastPolledAt.Format("15:04:05"))
	}
	if s.LastError != "" {
		fmt.Printf("Last error:  %s\n", s.LastError)
	}
}
