package main

import (
	"context"
	"domainprobe/internal/config"
	"fmt"

	"github.com/spf13/cobra"
)

// probeCommand constructs the 'probe' subcommand that resolves domains once
// with the same engine the server uses and prints one line per domain.
func probeCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe <domain>...",
		Short: "Probes domains once and prints days until expiry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			p, _ := getProber(ctx, cfg)

			failed := 0
			for _, name := range args {
				res := p.Resolve(ctx, name)
				if !res.Success {
					failed++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d %d\n", res.Domain, res.ExpiryDays, int(res.SuccessValue()))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d probes failed", failed, len(args))
			}

			return nil
		},
	}
	cmd.SilenceUsage = true

	return cmd
}
