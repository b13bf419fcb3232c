package cli

import (
	"fmt"

	"toko-checkout/internal/reaper"

	"github.com/spf13/cobra"
)

func newReapCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Cancel expired checkout sessions once and exit",
		Long: `Cancel every CREATED checkout whose TTL has passed and unlock its cart.

Checkouts already authorized with the payment provider are left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			n, err := reaper.New(rt.checkouts(nil, nil), rt.cfg.ReaperInterval, rt.logger).Sweep(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to expire checkouts: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d checkout(s)\n", n)
			return nil
		},
	}
}
