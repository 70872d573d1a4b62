// Package commands implements the resilientctl CLI.
package commands

import (
	"context"

	"github.com/spf13/cobra"

	resilient "github.com/krisalay/resilient-client"
	"github.com/krisalay/resilient-client/config"
	"github.com/krisalay/resilient-client/connectivity"
	"github.com/krisalay/resilient-client/platform"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "resilientctl",
	Short: "Inspect and drive the resilient client",
	Long: `resilientctl works with the resilient client's offline queue and
shows the cache, request deduplication and offline replay in action.

All configuration options can be overridden with RESILIENT_<SECTION>_<KEY>
environment variables, e.g. RESILIENT_STORE_KIND=sqlite.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/resilient/config.yaml)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(queueCmd)
}

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

// openOffline opens a client over the configured store with connectivity
// held OFFLINE, so opening it never triggers a replay by itself.
func openOffline(ctx context.Context, cfg *config.Config) (*resilient.Client, *connectivity.Manual, error) {
	src := connectivity.NewManual(false)
	c, err := resilient.New(ctx, cfg,
		resilient.WithSource(src),
		resilient.WithNotifier(platform.Noop{}),
		resilient.WithScheduler(platform.Noop{}))
	if err != nil {
		return nil, nil, err
	}
	return c, src, nil
}
