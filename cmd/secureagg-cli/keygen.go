package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/chenjunbao/secureagg/internal/keydir"
	"github.com/chenjunbao/secureagg/pkg/party"
)

var (
	keygenIDs []string

	keygenCmd = &cobra.Command{
		Use:   "keygen",
		Short: "Generate long-term signature keys",
		Long: `Generate one secp256k1 long-term signature keypair per client id
and write them to --key-dir as "<id>" (private) and "<id>.pub" (public).
This stands in for the external trusted-authority key-minting service
assumed by the core protocol (spec §1).`,
		RunE: runKeygen,
	}
)

func init() {
	keygenCmd.Flags().StringSliceVarP(&keygenIDs, "id", "i", nil, "Client id to generate a keypair for (repeatable)")
	keygenCmd.MarkFlagRequired("id")
}

func runKeygen(cmd *cobra.Command, args []string) error {
	for _, raw := range keygenIDs {
		id := party.ID(raw)
		sk, err := secp256k1.GeneratePrivateKey()
		if err != nil {
			return fmt.Errorf("keygen: generating key for %s: %w", id, err)
		}
		if err := keydir.WriteKeyPair(keyDir, id, sk); err != nil {
			return err
		}
		fmt.Printf("%s: public key %x\n", id, sk.PubKey().SerializeCompressed())
	}
	fmt.Printf("Wrote %d keypair(s) to %s\n", len(keygenIDs), keyDir)
	return nil
}
