package cmd

import (
	"fmt"
	"os"

	"experts-geo/core/config"
	"experts-geo/core/logger"
	"experts-geo/core/storage"
	"experts-geo/feature/geo/index"
	"experts-geo/feature/locations"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	indexWorksFile  string
	indexGrantsFile string
	indexKeyword    string
	indexOutput     string
)

// indexCmd builds the relational index offline
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the relational index from GeoJSON collections",
	Long: `Builds the location, work, grant and expert index from local GeoJSON files
or, when no files are given, from the collections published to object storage.`,
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

		var works, grants *geojson.FeatureCollection
		if indexWorksFile != "" || indexGrantsFile != "" {
			if indexWorksFile == "" || indexGrantsFile == "" {
				return fmt.Errorf("--works and --grants must be given together")
			}
			if works, err = locations.ReadCollectionFile(indexWorksFile); err != nil {
				return err
			}
			if grants, err = locations.ReadCollectionFile(indexGrantsFile); err != nil {
				return err
			}
		} else {
			client, err := storage.NewClient(cfg.Storage)
			if err != nil {
				return fmt.Errorf("failed to create storage client: %w", err)
			}
			works, grants, err = locations.LoadCollections(ctx, client, cfg.Storage.Bucket, cfg.ETL.ArtifactPrefix)
			if err != nil {
				return err
			}
		}

		builder := index.NewBuilder(logg, index.WithMinConfidence(cfg.ETL.MinConfidence))
		res := builder.BuildFromCollections(works, grants, indexKeyword)

		if indexOutput != "" {
			data, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			if err := os.WriteFile(indexOutput, data, 0644); err != nil {
				return fmt.Errorf("failed to save JSON file: %w", err)
			}
			logg.Info("Index saved", zap.String("file", indexOutput))
		}

		fmt.Println("\n=== Index Summary ===")
		if indexKeyword != "" {
			fmt.Printf("Keyword: %q\n", indexKeyword)
		}
		for _, s := range []struct {
			name string
			set  *index.IndexSet
		}{{"Combined", res.Combined}, {"Works", res.Works}, {"Grants", res.Grants}} {
			fmt.Printf("%-8s locations=%d works=%d grants=%d experts=%d\n",
				s.name, len(s.set.Locations), len(s.set.Works), len(s.set.Grants), len(s.set.Experts))
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(indexCmd)

	indexCmd.Flags().StringVar(&indexWorksFile, "works", "", "Works FeatureCollection file")
	indexCmd.Flags().StringVar(&indexGrantsFile, "grants", "", "Grants FeatureCollection file")
	indexCmd.Flags().StringVar(&indexKeyword, "keyword", "", "Keep only entries matching the keyword")
	indexCmd.Flags().StringVarP(&indexOutput, "output", "o", "", "Write the full index as JSON")
}
