// adminutil holds operator commands that run against the same environment
// as the API: hashing the dashboard password and fixing claims by hand.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/brandwacht/internal/config"
	"github.com/sudo-init-do/brandwacht/internal/logging"
	"github.com/sudo-init-do/brandwacht/internal/marketplace"
	"github.com/sudo-init-do/brandwacht/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "adminutil",
		Short:        "Operator tools for brandwacht",
		SilenceUsage: true,
	}
	root.AddCommand(
		hashPasswordCmd(),
		showCmd(),
		claimCmd(marketplace.ActionClaim, "claim <request-id>", "Assign a request to an agent"),
		claimCmd(marketplace.ActionProgress, "progress <request-id>", "Mark a request in progress"),
	)
	return root
}

func hashPasswordCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for DASHBOARD_PASSWORD_HASH; reads stdin when no argument is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("password is empty")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <request-id>",
		Short: "Print a stored request as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(st store.Store, _ *zap.Logger) error {
				r, err := st.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), r)
			})
		},
	}
}

// claimCmd runs a claim transition outside chat. No chat message is redrawn
// since there is no message reference to update.
func claimCmd(action, use, short string) *cobra.Command {
	var actorID, actorName string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(st store.Store, logger *zap.Logger) error {
				claims := marketplace.NewClaimService(st, marketplace.NopNotifier{}, nil, logger)
				r, err := claims.Apply(cmd.Context(), action, args[0], marketplace.Actor{ID: actorID, Name: actorName}, nil)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), r)
			})
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "chat user id of the agent")
	cmd.Flags().StringVar(&actorName, "name", "", "display name of the agent")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func withStore(cmd *cobra.Command, fn func(store.Store, *zap.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	st, closeStore, err := store.Open(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(st, logger)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
