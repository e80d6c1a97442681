package server

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API.
	ApiKey string `mapstructure:"api_key" default:""`
	// DataSource selects where the map endpoints read from (postgis, redis).
	DataSource string `mapstructure:"data_source" default:"postgis"`
	// CORSOrigins is a comma separated list of allowed origins for the map frontend.
	CORSOrigins string `mapstructure:"cors_origins" default:"*"`
}

const (
	DataSourcePostGIS = "postgis"
	DataSourceRedis   = "redis"
)

// IsValidDataSource checks if the configured data source is supported.
func (c Config) IsValidDataSource() bool {
	switch c.DataSource {
	case DataSourcePostGIS, DataSourceRedis:
		return true
	default:
		return false
	}
}
