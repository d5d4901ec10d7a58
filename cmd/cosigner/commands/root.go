package commands

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"cosigner/internal/app"
)

var (
	v      *viper.Viper
	wireUp *app.Wire
)

// Execute runs the root command.
func Execute() error {
	v = app.NewViper()

	root := &cobra.Command{
		Use:          "cosigner",
		Short:        "Signing-device client for a remote orchestrator",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(v)
			if err != nil {
				return err
			}
			log, err := app.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
			if err != nil {
				return err
			}
			wireUp, err = app.NewWire(cfg, log)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if wireUp == nil {
				return nil
			}
			return wireUp.Close()
		},
	}

	pf := root.PersistentFlags()
	pf.String("home", "", "state dir (default ~/.cosigner)")
	pf.String("api", "", "orchestrator base URL (e.g. http://127.0.0.1:8080)")
	pf.StringP("passphrase", "p", "", "passphrase protecting the key store")
	pf.String("id-token", "", "identity token used to authenticate")
	pf.String("store", "", "key store backend: file or badger")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	bind(pf, map[string]string{
		"home":       app.KeyHome,
		"api":        app.KeyAPIBase,
		"passphrase": app.KeyPassphrase,
		"id-token":   app.KeyIDToken,
		"store":      app.KeyStoreBackend,
		"log-level":  app.KeyLogLevel,
	})

	root.AddCommand(
		deviceIDCmd(),
		pairCmd(),
		pollCmd(),
		keygenCmd(),
		signCmd(),
		sessionStatusCmd(),
	)
	return root.Execute()
}

func bind(fs *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		_ = v.BindPFlag(key, fs.Lookup(flag))
	}
}
