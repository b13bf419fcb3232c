// Package cli holds the toko-checkout commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCommand returns the toko-checkout command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "toko-checkout",
		Short: "Cart, checkout and order service",
		Long: `toko-checkout runs the storefront checkout API: carts, checkout sessions,
PayPal payments and order finalization.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newMigrateCommand(), newReapCommand(), newSeedCommand())
	return root
}

// Execute runs the root command.
func Execute() error {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
