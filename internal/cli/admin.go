package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"taprealm/internal/game"
	"taprealm/internal/repository"
	"taprealm/internal/service"
	"taprealm/internal/settings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(fraudCmd)
	fraudCmd.AddCommand(fraudResetCmd)
	rootCmd.AddCommand(unrestrictCmd)
	rootCmd.AddCommand(restrictCmd)
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.AddCommand(balanceAdjustCmd)
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userShowCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(auditCmd)

	fraudResetCmd.Flags().Bool("unrestrict", false, "Also lift the restriction")
	auditCmd.Flags().String("category", "", "Only entries of this category (auth, game, fraud, admin)")
	auditCmd.Flags().Int("limit", 50, "Maximum number of entries")
	balanceAdjustCmd.Flags().String("reason", "", "Reason stored in the audit trail")
}

var fraudCmd = &cobra.Command{
	Use:   "fraud",
	Short: "Inspect and reset fraud scores",
}

var fraudResetCmd = &cobra.Command{
	Use:   "reset USER",
	Short: "Zero a player's fraud score",
	Long: `Zero a player's fraud score. USER is an internal id ("id:42"), a
Telegram id or an @username. The restriction stays unless --unrestrict is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runFraudReset,
}

func runFraudReset(cmd *cobra.Command, args []string) error {
	unrestrict, _ := cmd.Flags().GetBool("unrestrict")
	return withAdmin(cmd, func(admin *service.AdminService) error {
		ctx := cmd.Context()
		userID, err := admin.ResolveUserIdentifier(ctx, args[0])
		if err != nil {
			return err
		}
		if err := admin.ResetFraud(ctx, userID, unrestrict); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "fraud score reset for user %d (unrestrict=%t)\n", userID, unrestrict)
		return nil
	})
}

var unrestrictCmd = &cobra.Command{
	Use:   "unrestrict USER",
	Short: "Lift a restriction, keeping the fraud score",
	Long: `Lift a restriction, keeping the fraud score. A score still within one
point of the threshold restricts the player again on the next violation; use
"fraud reset USER --unrestrict" to start them from zero.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(cmd, func(admin *service.AdminService) error {
			ctx := cmd.Context()
			userID, err := admin.ResolveUserIdentifier(ctx, args[0])
			if err != nil {
				return err
			}
			st, err := admin.Unrestrict(ctx, userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %d unrestricted\n", userID)
			if st.Rearmed() {
				fmt.Fprintf(cmd.OutOrStdout(),
					"warning: fraud score %d of %d, the next violation restricts again; run \"taprealmctl fraud reset %s\"\n",
					st.FraudScore, st.Threshold, args[0])
			}
			return nil
		})
	},
}

var restrictCmd = &cobra.Command{
	Use:   "restrict USER",
	Short: "Restrict a player regardless of fraud score",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(cmd, func(admin *service.AdminService) error {
			ctx := cmd.Context()
			userID, err := admin.ResolveUserIdentifier(ctx, args[0])
			if err != nil {
				return err
			}
			if _, err := admin.Restrict(ctx, userID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %d restricted\n", userID)
			return nil
		})
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Adjust player balances",
}

var balanceAdjustCmd = &cobra.Command{
	Use:   "adjust USER AMOUNT",
	Short: "Credit or debit a player's balance",
	Long: `Credit (positive AMOUNT) or debit (negative AMOUNT) a player's balance.
Credits count toward lifetime earnings and may promote the league. Debits
cannot take the balance below zero. Pass negative amounts after "--":

  taprealmctl balance adjust @alice --reason refund -- -500`,
	Args: cobra.ExactArgs(2),
	RunE: runBalanceAdjust,
}

func runBalanceAdjust(cmd *cobra.Command, args []string) error {
	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || amount == 0 {
		return fmt.Errorf("AMOUNT must be a non-zero integer, got %q", args[1])
	}
	reason, _ := cmd.Flags().GetString("reason")

	return withAdmin(cmd, func(admin *service.AdminService) error {
		ctx := cmd.Context()
		userID, err := admin.ResolveUserIdentifier(ctx, args[0])
		if err != nil {
			return err
		}
		res, err := admin.AdjustBalance(ctx, userID, amount, reason)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user %d balance %d -> %d (%+d), league %s\n",
			userID, res.OldBalance, res.NewBalance, amount, res.League)
		return nil
	})
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Inspect players",
}

var userShowCmd = &cobra.Command{
	Use:   "show USER",
	Short: "Print a player's profile, state and fraud flags as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(cmd, func(admin *service.AdminService) error {
			info, err := admin.GetUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), info)
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print platform totals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(cmd, func(admin *service.AdminService) error {
			st, err := admin.GetStats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "users:        %d (%d new today)\n", st.TotalUsers, st.NewUsersToday)
			fmt.Fprintf(cmd.OutOrStdout(), "restricted:   %d\n", st.RestrictedUsers)
			fmt.Fprintf(cmd.OutOrStdout(), "fraud flags:  %d today\n", st.FraudFlagsToday)
			fmt.Fprintf(cmd.OutOrStdout(), "balance:      %d\n", st.TotalBalance)
			fmt.Fprintf(cmd.OutOrStdout(), "total earned: %d\n", st.TotalEarned)
			fmt.Fprintf(cmd.OutOrStdout(), "squads:       %d\n", st.Squads)
			return nil
		})
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit [USER]",
	Short: "Print recent audit entries as JSON",
	Long: `Print recent audit entries as JSON, newest first. USER and --category
combine: "audit @alice --category fraud" prints only Alice's fraud entries.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		limit, _ := cmd.Flags().GetInt("limit")
		var user string
		if len(args) == 1 {
			user = args[0]
		}
		return withAdmin(cmd, func(admin *service.AdminService) error {
			logs, err := admin.AuditTrail(cmd.Context(), user, category, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), logs)
		})
	},
}

// withAdmin opens the pool, loads the settings the server would use and
// replaces cmd's context with the timed one.
func withAdmin(cmd *cobra.Command, fn func(*service.AdminService) error) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	pool, err := openPool(ctx, cmd)
	if err != nil {
		return err
	}
	defer pool.Close()

	file, _ := cmd.Flags().GetString("settings-file")
	provider := settings.NewProvider(file, repository.NewSettingsRepository(pool))
	if err := provider.Reload(ctx); err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	cmd.SetContext(ctx)
	return fn(service.NewAdminService(pool, game.NewEngine(provider)))
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
