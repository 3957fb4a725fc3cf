package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"gitlab.com/trektoo/api/trektoo-client-core/internal/application"
)

// cleanupCmd represents the cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired and corrupt records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(cmd, func(ctx context.Context, s *application.SecureStorage) error {
			removed, err := s.Cleanup(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d record(s)\n", removed)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
