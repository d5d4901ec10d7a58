package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"cosigner/internal/domain"
)

func sessionStatusCmd() *cobra.Command {
	var keygen bool
	cmd := &cobra.Command{
		Use:   "session-status [sessionId]",
		Short: "Print the orchestrator's status for a pairing session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := domain.SessionID(args[0])

			if err := wireUp.Authenticate(ctx); err != nil {
				return err
			}

			var res any
			var err error
			if keygen {
				res, err = wireUp.Client.GetKeygenStatus(ctx, id)
			} else {
				res, err = wireUp.Client.GetSessionStatus(ctx, id)
			}
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
	cmd.Flags().BoolVar(&keygen, "keygen", false, "print the session's keygen record instead")
	return cmd
}
