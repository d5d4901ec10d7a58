package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"cosigner/internal/crypto"
	"cosigner/internal/store"
)

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Create and store a local demo key share",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			km, err := wireUp.Keys.Keygen()
			if err != nil {
				return err
			}
			if err := store.SaveKeyShare(wireUp.Store, km.KeyID, km.Share); err != nil {
				return err
			}
			w, err := wireUp.Keys.DeriveWallet(km)
			if err != nil {
				return err
			}

			fmt.Printf("Key ID:      %s\n", km.KeyID)
			fmt.Printf("Public key:  %s\n", km.PublicKey)
			fmt.Printf("Address:     %s (%s)\n", w.Address, w.Network)
			fmt.Printf("Fingerprint: %s\n", crypto.Fingerprint(km.KeyID, km.PublicKey))
			return nil
		},
	}
}
