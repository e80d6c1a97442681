package config

import (
	"reflect"
	"strings"

	"experts-geo/core/database"
	"experts-geo/core/kv"
	"experts-geo/core/logger"
	"experts-geo/core/server"
	"experts-geo/core/storage"
	"experts-geo/feature/experts"
	"experts-geo/feature/locations"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the object storage used for GeoJSON artifacts.
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the PostGIS connection.
	Database database.Config `mapstructure:"database"`
	// Redis holds configuration for the entity cache.
	Redis kv.Config `mapstructure:"redis"`
	// Experts holds configuration for the upstream Aggie Experts API.
	Experts experts.Config `mapstructure:"experts"`
	// LLM holds configuration for the location extraction model.
	LLM locations.LLMConfig `mapstructure:"llm"`
	// Geocoder holds configuration for the Nominatim geocoder.
	Geocoder locations.GeocoderConfig `mapstructure:"geocoder"`
	// ETL holds configuration for the pipeline itself.
	ETL locations.PipelineConfig `mapstructure:"etl"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. REDIS_ADDR -> redis.addr)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
