package cli

import (
	"fmt"
	"text/tabwriter"

	"taprealm/internal/game"
	"taprealm/internal/repository"
	"taprealm/internal/settings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(pricesCmd)
	rootCmd.AddCommand(leaguesCmd)

	pricesCmd.Flags().Int("levels", 10, "Number of levels to print per upgrade")
	pricesCmd.Flags().Bool("offline", false, "Ignore app_settings rows, use defaults and the settings file")
	leaguesCmd.Flags().Bool("offline", false, "Ignore app_settings rows, use defaults and the settings file")
}

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Print the upgrade price table",
	Args:  cobra.NoArgs,
	RunE:  runPrices,
}

func runPrices(cmd *cobra.Command, args []string) error {
	levels, _ := cmd.Flags().GetInt("levels")
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	engine := game.NewEngine(game.StaticSettings(s))
	if levels > s.MaxUpgradeLevel {
		levels = s.MaxUpgradeLevel
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprint(w, "upgrade\tleague")
	for l := 0; l < levels; l++ {
		fmt.Fprintf(w, "\tL%d", l+1)
	}
	fmt.Fprintln(w)
	for _, t := range game.UpgradeTypes {
		fmt.Fprintf(w, "%s\t%s", t, game.RequiredLeague(t))
		for l := 0; l < levels; l++ {
			price, err := engine.PriceAt(t, l)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "\t%d", price)
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

var leaguesCmd = &cobra.Command{
	Use:   "leagues",
	Short: "Print the league thresholds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "league\tmin_score\t(version %d)\n", s.Leagues.Version)
		for _, tier := range s.Leagues.Tiers {
			fmt.Fprintf(w, "%s\t%d\n", tier.League, tier.MinScore)
		}
		return w.Flush()
	},
}

// loadSettings layers defaults, the settings file and, unless --offline,
// the app_settings rows, exactly as the server does.
func loadSettings(cmd *cobra.Command) (game.Settings, error) {
	file, _ := cmd.Flags().GetString("settings-file")
	offline, _ := cmd.Flags().GetBool("offline")

	ctx, cancel := commandContext(cmd)
	defer cancel()

	var store settings.Store
	if !offline {
		pool, err := openPool(ctx, cmd)
		if err != nil {
			return game.Settings{}, err
		}
		defer pool.Close()
		store = repository.NewSettingsRepository(pool)
	}

	p := settings.NewProvider(file, store)
	if err := p.Reload(ctx); err != nil {
		return game.Settings{}, err
	}
	return p.Current(), nil
}
