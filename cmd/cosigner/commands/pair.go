package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"cosigner/internal/services/pairing"
)

func pairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pair [payload]",
		Short: "Pair with a session from a scanned payload (argument or stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw string
			if len(args) == 1 {
				raw = args[0]
			} else {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				raw = string(b)
			}

			wireUp.Pairing.Observe(pairing.Observer{
				OnStatus: func(s pairing.Status) {
					fmt.Fprintf(os.Stderr, "[%s] %s\n", s.Step, s.Message)
				},
			})
			res, err := wireUp.Pairing.Pair(cmd.Context(), raw)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}
