package experts

// Config holds configuration for the upstream Aggie Experts API.
type Config struct {
	// BaseURL is the API root, e.g. https://experts.ucdavis.edu/api.
	BaseURL string `mapstructure:"base_url" default:"https://experts.ucdavis.edu/api"`
	// PageSize is the number of experts requested per page.
	PageSize int `mapstructure:"page_size" default:"100"`
	// MaxPages stops paging early. Zero fetches every page.
	MaxPages int `mapstructure:"max_pages" default:"0"`
	// Concurrency bounds parallel expert detail fetches.
	Concurrency int `mapstructure:"concurrency" default:"4"`
	// TimeoutSeconds bounds a single request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// MaxRetries is the number of retries for transient failures.
	MaxRetries int `mapstructure:"max_retries" default:"3"`
	// ApiKey is sent as a bearer token when set.
	ApiKey string `mapstructure:"api_key" default:""`
}
