package cmd

import (
	"fmt"
	"os"
	"time"

	"experts-geo/core/config"
	"experts-geo/core/logger"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var etlOpts etlOptions

// etlCmd runs the location pipeline once
var etlCmd = &cobra.Command{
	Use:   "etl",
	Short: "Run the location pipeline once",
	Long: `Fetches experts from the upstream API, extracts and geocodes the places named
in their works and grants, and publishes the resulting collections to object
storage, PostGIS and the feature cache.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		startTime := time.Now()
		migrate, _ := cmd.Flags().GetBool("migrate")
		jsonOutput, _ := cmd.Flags().GetBool("json")

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

		if migrate {
			if a.geo == nil {
				return fmt.Errorf("database connection required for --migrate")
			}
			if err := a.geo.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to migrate geo schema: %w", err)
			}
		}

		report, err := a.runETL(ctx, etlOpts)
		if err != nil {
			return fmt.Errorf("etl failed: %w", err)
		}

		if jsonOutput {
			filename := fmt.Sprintf("etl_report_%d.json", time.Now().Unix())
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			if err := os.WriteFile(filename, data, 0644); err != nil {
				return fmt.Errorf("failed to save JSON file: %w", err)
			}
			logg.Info("ETL report saved", zap.String("file", filename))
		}

		fmt.Println("\n=== ETL Summary ===")
		if report.Sync != nil {
			fmt.Printf("Experts Cached: %d new, %d updated, %d unchanged\n",
				report.Sync.Experts.New, report.Sync.Experts.Updated, report.Sync.Experts.Unchanged)
		}
		if report.Batch != "" {
			fmt.Printf("Batch Request File: %s\n", report.Batch)
		}
		if s := report.Stats; s != nil {
			fmt.Printf("Experts: %d\n", s.Experts)
			fmt.Printf("Works: %d\n", s.Works)
			fmt.Printf("Grants: %d\n", s.Grants)
			fmt.Printf("Locations Extracted: %d\n", s.Extracted)
			fmt.Printf("Failed Extractions: %d\n", s.FailedExtractions)
			fmt.Printf("Unique Locations: %d\n", s.Locations)
			fmt.Printf("Failed Geocodes: %d\n", len(s.FailedGeocodes))
		}
		if p := report.Publish; p != nil {
			fmt.Printf("PostGIS Rows: %d works, %d grants\n", p.WorksRows, p.GrantsRows)
		}
		fmt.Printf("Execution Time: %s\n", time.Since(startTime).String())
		return nil
	},
}

func init() {
	RootCmd.AddCommand(etlCmd)

	etlCmd.Flags().BoolVar(&etlOpts.FromCache, "from-cache", false, "Rebuild works and grants from the cached experts instead of the upstream API")
	etlCmd.Flags().BoolVar(&etlOpts.Merge, "merge", false, "Upsert located features instead of replacing the PostGIS tables")
	etlCmd.Flags().StringVar(&etlOpts.BatchResults, "batch-results", "", "Read extractions from an offline batch results file instead of calling the LLM")
	etlCmd.Flags().BoolVar(&etlOpts.WriteBatch, "write-batch", false, "Upload a batch request file to object storage and stop")
	etlCmd.Flags().Bool("migrate", false, "Create the PostGIS tables and view before running")
	etlCmd.Flags().Bool("json", false, "Save the run report as JSON")
}
