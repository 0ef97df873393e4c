package cli

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"

	"taprealm/internal/game"
	"taprealm/internal/repository"
	"taprealm/internal/settings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect and change app_settings overrides",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the app_settings rows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		pool, err := openPool(ctx, cmd)
		if err != nil {
			return err
		}
		defer pool.Close()

		kv, err := repository.NewSettingsRepository(pool).All(ctx)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(kv))
		for k := range kv {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "key\tvalue")
		for _, k := range keys {
			fmt.Fprintf(w, "%s\t%s\n", k, kv[k])
		}
		return w.Flush()
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Write an app_settings override",
	Long: `Write an app_settings override. The value is checked against the full
settings stack (defaults, settings file, existing rows) before it is stored.
Running servers pick it up on their next reload.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	check := game.DefaultSettings()
	unknown, err := settings.ApplyKV(&check, map[string]string{key: value})
	if err != nil {
		return err
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown setting %q", key)
	}

	file, _ := cmd.Flags().GetString("settings-file")
	ctx, cancel := commandContext(cmd)
	defer cancel()

	pool, err := openPool(ctx, cmd)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := repository.NewSettingsRepository(pool)
	p := settings.NewProvider(file, pendingStore{Store: repo, key: key, value: value})
	if err := p.Reload(ctx); err != nil {
		return fmt.Errorf("rejected: %w", err)
	}
	if err := repo.Set(ctx, key, value); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
	return nil
}

// pendingStore is the stored rows plus one uncommitted override.
type pendingStore struct {
	settings.Store
	key, value string
}

func (s pendingStore) All(ctx context.Context) (map[string]string, error) {
	kv, err := s.Store.All(ctx)
	if err != nil {
		return nil, err
	}
	kv[s.key] = s.value
	return kv, nil
}
