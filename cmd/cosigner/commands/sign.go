package commands

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"cosigner/internal/domain"
	"cosigner/internal/store"
)

func signCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sign [keyId] [msgHash]",
		Short: "Sign a message hash with a stored demo share",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyID := domain.KeyID(args[0])
			_, ok, err := store.LoadKeyShare(wireUp.Store, keyID)
			if err != nil {
				return err
			}
			if !ok {
				return errors.Wrapf(domain.ErrMissingKeyShare, "key %s", keyID)
			}

			sig, err := wireUp.Keys.Sign(keyID, args[1])
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(sig, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}
