package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gitlab.com/trektoo/api/trektoo-client-core/internal/application"
)

var errNotFound = errors.New("no valid value stored")

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the value stored under a key as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(cmd, func(ctx context.Context, s *application.SecureStorage) error {
			if !s.HasItem(ctx, args[0]) {
				return fmt.Errorf("%s: %w", args[0], errNotFound)
			}
			out, err := json.Marshal(s.GetItem(ctx, args[0], nil))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		})
	},
}

var setTTL time.Duration

// setCmd represents the set command
var setCmd = &cobra.Command{
	Use:   "set <key> <json>",
	Short: "Store a JSON value under a key",
	Long: `Store a JSON value under a key. A value that is not valid JSON is stored as a string.

Example:
  trektooctl set currency '"IDR"'
  trektooctl set promo SUMMER --ttl 24h`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var value any
		if err := json.Unmarshal([]byte(args[1]), &value); err != nil {
			value = args[1]
		}
		return withStorage(cmd, func(ctx context.Context, s *application.SecureStorage) error {
			if setTTL > 0 {
				return s.SetItemWithTTL(ctx, args[0], value, setTTL)
			}
			return s.SetItem(ctx, args[0], value)
		})
	},
}

// rmCmd represents the rm command
var rmCmd = &cobra.Command{
	Use:   "rm <key>...",
	Short: "Remove keys",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(cmd, func(ctx context.Context, s *application.SecureStorage) error {
			for _, key := range args {
				if err := s.RemoveItem(ctx, key); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

// clearCmd represents the clear command
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every secure storage key, leaving foreign keys untouched",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(cmd, func(ctx context.Context, s *application.SecureStorage) error {
			return s.Clear(ctx)
		})
	},
}

// ttlCmd represents the ttl command
var ttlCmd = &cobra.Command{
	Use:   "ttl <key>",
	Short: "Print the time left before a key expires",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(cmd, func(ctx context.Context, s *application.SecureStorage) error {
			ttl := s.GetTTL(ctx, args[0])
			switch {
			case ttl == application.NoExpiry:
				fmt.Fprintln(cmd.OutOrStdout(), "no expiry")
			case ttl == 0:
				return fmt.Errorf("%s: %w", args[0], errNotFound)
			default:
				fmt.Fprintln(cmd.OutOrStdout(), ttl.Round(time.Second).String())
			}
			return nil
		})
	},
}

func init() {
	setCmd.Flags().DurationVar(&setTTL, "ttl", 0, "expire the value after this duration (e.g. 30m, 24h)")
	rootCmd.AddCommand(getCmd, setCmd, rmCmd, clearCmd, ttlCmd)
}
