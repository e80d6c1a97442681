package locations

// LLMConfig holds configuration for the OpenAI-compatible extraction model.
type LLMConfig struct {
	// BaseURL is the API root; requests go to {BaseURL}/chat/completions.
	BaseURL string `mapstructure:"base_url" default:"https://api.groq.com/openai/v1"`
	// APIKey is sent as a bearer token.
	APIKey string `mapstructure:"api_key" default:""`
	// Model is the chat model name.
	Model string `mapstructure:"model" default:"llama-3.3-70b-versatile"`
	// TimeoutSeconds bounds a single request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"60"`
	// MaxRetries is the number of retries for transient failures.
	MaxRetries int `mapstructure:"max_retries" default:"3"`
	// RequestsPerMinute caps the request rate. Zero disables the limit.
	RequestsPerMinute int `mapstructure:"requests_per_minute" default:"30"`
}

// GeocoderConfig holds configuration for the Nominatim geocoder.
type GeocoderConfig struct {
	// BaseURL is the Nominatim root; lookups go to {BaseURL}/search.
	BaseURL string `mapstructure:"base_url" default:"https://nominatim.openstreetmap.org"`
	// UserAgent identifies the application as the Nominatim usage policy requires.
	UserAgent string `mapstructure:"user_agent" default:"experts-geo"`
	// Email is passed along as the contact address when set.
	Email string `mapstructure:"email" default:""`
	// DelayMillis is the minimum delay between two lookups.
	DelayMillis int `mapstructure:"delay_millis" default:"1000"`
	// TimeoutSeconds bounds a single request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"20"`
	// MaxRetries is the number of retries for transient failures.
	MaxRetries int `mapstructure:"max_retries" default:"3"`
}

// PipelineConfig holds configuration for the ETL pipeline.
type PipelineConfig struct {
	// MinConfidence is the floor applied to entries when the index is built.
	MinConfidence float64 `mapstructure:"min_confidence" default:"60"`
	// Concurrency bounds parallel extraction and geocoding calls.
	Concurrency int `mapstructure:"concurrency" default:"4"`
	// AliasesFile is an optional YAML map of location aliases merged over the built-in table.
	AliasesFile string `mapstructure:"aliases_file" default:""`
	// Schedule is a cron expression for periodic runs under `serve`. Empty disables it.
	Schedule string `mapstructure:"schedule" default:""`
	// ArtifactPrefix is the object prefix for published GeoJSON files.
	ArtifactPrefix string `mapstructure:"artifact_prefix" default:"geojson/"`
	// BatchPrefix is the object prefix for offline batch request files.
	BatchPrefix string `mapstructure:"batch_prefix" default:"batches/"`
}
