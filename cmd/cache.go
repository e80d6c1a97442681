package cmd

import (
	"fmt"

	"experts-geo/core/config"
	"experts-geo/core/logger"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

// cacheCmd groups cache inspection commands
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the entity cache",
}

// cacheStatusCmd prints the metadata and session log of cached types
var cacheStatusCmd = &cobra.Command{
	Use:   "status [type]",
	Short: "Show cache metadata and sessions",
	Long: `Prints the metadata record and the session log of one cached type
(expert, work, grant, worksFeature, grantsFeature) or of every type.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.LoadConfig(".")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logg, err := logger.New(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer logg.Sync()

		a, err := newApp(cfg, logg)
		if err != nil {
			return err
		}

		var out any
		if len(args) == 0 {
			out = a.service.Status(ctx)
		} else {
			st, err := a.service.CacheStatus(ctx, args[0])
			if err != nil {
				return err
			}
			out = st
		}
		return printJSON(out)
	},
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func init() {
	RootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatusCmd)
}
