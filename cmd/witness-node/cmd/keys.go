package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/witnessnet/witnessnet/crypto"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate and derive module accounts",
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Print a new mnemonic and the address of its default account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w, err := crypto.NewRandomHDWallet()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "mnemonic: %s\n", w.Mnemonic())
		fmt.Fprintf(out, "path:     %s\n", w.Path())
		fmt.Fprintf(out, "address:  %s\n", w.Address().Hex())
		return nil
	},
}

var (
	flagMnemonic string
	flagPath     string
)

var keysDeriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Print the address derived from a mnemonic along a path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w, err := crypto.NewHDWalletFromMnemonic(flagMnemonic, flagPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", w.Path(), w.Address().Hex())
		return nil
	},
}

func init() {
	keysDeriveCmd.Flags().StringVar(&flagMnemonic, "mnemonic", "", "BIP-39 mnemonic")
	keysDeriveCmd.Flags().StringVar(&flagPath, "path", crypto.DefaultPath, "BIP-32 derivation path")
	_ = keysDeriveCmd.MarkFlagRequired("mnemonic")

	keysCmd.AddCommand(keysGenerateCmd)
	keysCmd.AddCommand(keysDeriveCmd)
}
