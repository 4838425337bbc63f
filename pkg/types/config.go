package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "cv-evaluator/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// Bibliographic index identifiers.
const (
	IndexSemanticScholar = "semantic_scholar"
	IndexOpenAlex        = "openalex"
)

// LookupConfig holds settings for the bibliographic lookup client and the
// enrichment stage that drives it.
type LookupConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Index selects the bibliographic index: semantic_scholar or openalex.
	Index string `json:"index" yaml:"index" mapstructure:"index"`

	// SemanticScholarAPIKey is optional; without it requests are unauthenticated.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`

	// OpenAlexEmail is sent as mailto for the OpenAlex polite pool.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty" mapstructure:"openalex_email"`

	// Limit is the number of candidates requested per search (default 10).
	Limit int `json:"limit" yaml:"limit" mapstructure:"limit"`

	// TitleThreshold is the minimum title similarity, 0-100 (default 80).
	TitleThreshold int `json:"title_threshold" yaml:"title_threshold" mapstructure:"title_threshold"`

	// SkipAuthorValidation accepts the first author of a title match without
	// checking the name. Off by default.
	SkipAuthorValidation bool `json:"skip_author_validation" yaml:"skip_author_validation" mapstructure:"skip_author_validation"`

	// RequestInterval is the pacing between consecutive lookups (default 500ms).
	RequestInterval time.Duration `json:"request_interval" yaml:"request_interval" mapstructure:"request_interval"`

	// MaxRetries bounds the HTTP 429 retries of a single search (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// LLM provider identifiers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// CircuitBreakerConfig configures the breaker wrapped around LLM calls.
type CircuitBreakerConfig struct {
	Enabled          bool          `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	MaxRequests      uint32        `json:"max_requests" yaml:"max_requests" mapstructure:"max_requests"`
	Interval         time.Duration `json:"interval" yaml:"interval" mapstructure:"interval"`
	Timeout          time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	MinRequests      uint32        `json:"min_requests" yaml:"min_requests" mapstructure:"min_requests"`
	FailureThreshold float64       `json:"failure_threshold" yaml:"failure_threshold" mapstructure:"failure_threshold"`
}

// LLMConfig holds settings for the text-understanding service.
type LLMConfig struct {
	// Provider selects the backend: openai, anthropic or gemini.
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the model identifier. Empty selects the provider default.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxRetries is the number of retry attempts for transient failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// Timeout bounds a single call.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker" yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
}

// DocumentConfig selects how binary documents are turned into text.
type DocumentConfig struct {
	// Converter is "markitdown" (container based) or "text" (plain files only).
	Converter string `json:"converter" yaml:"converter" mapstructure:"converter"`
}

// StoreConfig holds settings for persisted pipeline state.
type StoreConfig struct {
	// WorkDir contains runs.db and one snapshot directory per run.
	WorkDir string `json:"work_dir" yaml:"work_dir" mapstructure:"work_dir"`
}

// ServerConfig holds settings for the HTTP surface.
type ServerConfig struct {
	Addr              string `json:"addr" yaml:"addr" mapstructure:"addr"`
	RequestsPerMinute int    `json:"requests_per_minute" yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	Burst             int    `json:"burst" yaml:"burst" mapstructure:"burst"`
	MaxUploadBytes    int64  `json:"max_upload_bytes" yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
	// TrustedProxies lists the IPs and CIDR ranges whose X-Forwarded-For and
	// X-Real-IP headers name the client. Other peers are keyed by address.
	TrustedProxies []string `json:"trusted_proxies,omitempty" yaml:"trusted_proxies,omitempty" mapstructure:"trusted_proxies"`
}

// LogConfig selects the log encoding and level.
type LogConfig struct {
	JSON  bool `json:"json" yaml:"json" mapstructure:"json"`
	Debug bool `json:"debug" yaml:"debug" mapstructure:"debug"`
}

// Config groups all settings of the pipeline.
type Config struct {
	Lookup   LookupConfig   `json:"lookup" yaml:"lookup" mapstructure:"lookup"`
	LLM      LLMConfig      `json:"llm" yaml:"llm" mapstructure:"llm"`
	Document DocumentConfig `json:"document" yaml:"document" mapstructure:"document"`
	Store    StoreConfig    `json:"store" yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `json:"server" yaml:"server" mapstructure:"server"`
	Log      LogConfig      `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultConfig returns the settings used when neither a config file nor
// flags override them.
func DefaultConfig() Config {
	return Config{
		Lookup: LookupConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "cv-evaluator/0.1",
			},
			Index:           IndexSemanticScholar,
			Limit:           10,
			TitleThreshold:  80,
			RequestInterval: 500 * time.Millisecond,
			MaxRetries:      5,
		},
		LLM: LLMConfig{
			Provider:   ProviderOpenAI,
			MaxRetries: 3,
			Timeout:    2 * time.Minute,
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          true,
				MaxRequests:      1,
				Interval:         time.Minute,
				Timeout:          30 * time.Second,
				MinRequests:      5,
				FailureThreshold: 0.6,
			},
		},
		Document: DocumentConfig{Converter: "markitdown"},
		Store:    StoreConfig{WorkDir: "runs"},
		Server: ServerConfig{
			Addr:              ":8000",
			RequestsPerMinute: 30,
			Burst:             5,
			MaxUploadBytes:    20 << 20,
		},
	}
}
