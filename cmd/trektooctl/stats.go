package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"gitlab.com/trektoo/api/trektoo-client-core/internal/application"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show secure storage statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(cmd, func(ctx context.Context, s *application.SecureStorage) error {
			stats, err := s.GetStats(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "total:   %d\n", stats.Total)
			fmt.Fprintf(out, "valid:   %d\n", stats.Valid)
			fmt.Fprintf(out, "expired: %d\n", stats.Expired)
			fmt.Fprintf(out, "size:    %d bytes\n", stats.SizeBytes)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
