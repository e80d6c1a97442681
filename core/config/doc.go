// Package config provides configuration management for the experts-geo service.
//
// It utilizes Viper for loading configuration from environment variables and an
// optional .env file. Defaults come from the `default` struct tags of each
// section, so every key is documented next to the field that consumes it.
//
// # Configuration Structure
//
//   - Server: HTTP port, API key, default index data source
//   - Database: PostGIS connection details
//   - Redis: entity cache connection
//   - Storage: S3/MinIO bucket for GeoJSON artifacts
//   - Log: logging level and format
//   - Experts: upstream Aggie Experts API
//   - LLM, Geocoder, ETL: location extraction pipeline
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Redis.Addr)
package config
