package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the expatscout configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Service    ServiceConfig    `yaml:"service"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Generation GenerationConfig `yaml:"generation"`
	Knowledge  KnowledgeConfig  `yaml:"knowledge"`
	Intent     IntentConfig     `yaml:"intent"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	CORSOrigins     []string `yaml:"cors_allowed_origins"`
}

// ServiceConfig holds identity reported by the status endpoint.
type ServiceConfig struct {
	Name string `yaml:"name"`
}

// ProvidersConfig holds per-provider settings.
type ProvidersConfig struct {
	Eventbrite EventbriteConfig `yaml:"eventbrite"`
	SerpAPI    SerpAPIConfig    `yaml:"serpapi"`
}

// EventbriteConfig configures the event search provider.
type EventbriteConfig struct {
	APIKey            string `yaml:"api_key"`
	BaseURL           string `yaml:"base_url"`
	TimeoutSec        int    `yaml:"timeout_sec"`
	MaxResults        int    `yaml:"max_results"`
	Within            string `yaml:"within"`
	RequestsPerMinute int    `yaml:"requests_per_minute"` // 0 = unlimited
}

// SerpAPIConfig configures the events/jobs search aggregator.
type SerpAPIConfig struct {
	APIKey            string `yaml:"api_key"`
	BaseURL           string `yaml:"base_url"`
	TimeoutSec        int    `yaml:"timeout_sec"`
	Locale            string `yaml:"locale"`
	RequestsPerMinute int    `yaml:"requests_per_minute"` // 0 = unlimited
}

// GenerationConfig configures the summary backend (any OpenAI-compatible chat API).
type GenerationConfig struct {
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	Temperature       float32 `yaml:"temperature"`
	MaxTokens         int     `yaml:"max_tokens"`
	TimeoutSec        int     `yaml:"timeout_sec"`
	MaxSummaryChars   int     `yaml:"max_summary_chars"`
	ContextTopK       int     `yaml:"context_top_k"`
	RequestsPerMinute int     `yaml:"requests_per_minute"` // 0 = unlimited
}

// KnowledgeConfig configures the context store used by summaries.
type KnowledgeConfig struct {
	Driver     string          `yaml:"driver"` // redis, bleve, none (default: bleve)
	Collection string          `yaml:"collection"`
	KeyPrefix  string          `yaml:"key_prefix"`
	Path       string          `yaml:"path"` // bleve index directory
	Database   DatabaseConfig  `yaml:"database"`
	Embedding  EmbeddingConfig `yaml:"embedding"`
	Index      IndexConfig     `yaml:"index"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ClientName       string   `yaml:"client_name"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings for the redis driver.
type EmbeddingConfig struct {
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	Cache       bool   `yaml:"cache"`
	CacheTTLSec int    `yaml:"cache_ttl_sec"` // 0 = no expiry
}

// IndexConfig holds HNSW settings.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
}

// IntentConfig extends the built-in vocabularies.
type IntentConfig struct {
	ExtraCities []string `yaml:"extra_cities"`
}

// PipelineConfig holds aggregation settings.
type PipelineConfig struct {
	DefaultPageSize int                     `yaml:"default_page_size"`
	MaxPageSize     int                     `yaml:"max_page_size"`
	ValidityWindow  ValidityWindowConfig    `yaml:"validity_window"`
	Policies        map[string]PolicyConfig `yaml:"policies"`
}

// ValidityWindowConfig bounds the years accepted from providers.
type ValidityWindowConfig struct {
	MaxYear int `yaml:"max_year"` // 0 = current year + 1
}

// PolicyConfig overrides the per-intent pipeline policy. Nil fields keep the default.
type PolicyConfig struct {
	ValidateLinks   *bool `yaml:"validate_links"`
	RequireDate     *bool `yaml:"require_date"`
	DropPast        *bool `yaml:"drop_past"`
	Dedupe          *bool `yaml:"dedupe"`
	DedupeByCompany *bool `yaml:"dedupe_by_company"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if len(c.HTTP.CORSOrigins) == 0 {
		c.HTTP.CORSOrigins = []string{"*"}
	}
	if c.Service.Name == "" {
		c.Service.Name = "ExpatScout"
	}

	eb := &c.Providers.Eventbrite
	if eb.BaseURL == "" {
		eb.BaseURL = "https://www.eventbriteapi.com"
	}
	if eb.TimeoutSec <= 0 {
		eb.TimeoutSec = 15
	}
	if eb.MaxResults <= 0 {
		eb.MaxResults = 20
	}
	if eb.Within == "" {
		eb.Within = "50km"
	}

	sp := &c.Providers.SerpAPI
	if sp.BaseURL == "" {
		sp.BaseURL = "https://serpapi.com"
	}
	if sp.TimeoutSec <= 0 {
		sp.TimeoutSec = 15
	}
	if sp.Locale == "" {
		sp.Locale = "en"
	}

	g := &c.Generation
	if g.BaseURL == "" {
		g.BaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	}
	if g.Model == "" {
		g.Model = "gemini-2.5-flash"
	}
	if g.TimeoutSec <= 0 {
		g.TimeoutSec = 20
	}
	if g.MaxSummaryChars <= 0 {
		g.MaxSummaryChars = 500
	}
	if g.ContextTopK <= 0 {
		g.ContextTopK = 3
	}

	k := &c.Knowledge
	if k.Driver == "" {
		k.Driver = "bleve"
	}
	if k.Collection == "" {
		k.Collection = "superexpat_knowledge"
	}
	if k.KeyPrefix == "" {
		k.KeyPrefix = "expatscout:"
	}
	if k.Path == "" {
		k.Path = "./data/knowledge.bleve"
	}
	if k.Database.ReadinessTimeout <= 0 {
		k.Database.ReadinessTimeout = 10
	}
	if k.Embedding.Dimensions <= 0 {
		k.Embedding.Dimensions = 768
	}
	if k.Index.HNSWM <= 0 {
		k.Index.HNSWM = 16
	}
	if k.Index.HNSWEFConstruct <= 0 {
		k.Index.HNSWEFConstruct = 200
	}

	if c.Pipeline.DefaultPageSize <= 0 {
		c.Pipeline.DefaultPageSize = 10
	}
	if c.Pipeline.MaxPageSize <= 0 {
		c.Pipeline.MaxPageSize = 100
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Knowledge.Driver {
	case "redis":
		if len(c.Knowledge.Database.Addrs) == 0 {
			return fmt.Errorf("knowledge.database.addrs is required for the redis driver")
		}
		if c.Knowledge.Embedding.Model == "" {
			return fmt.Errorf("knowledge.embedding.model is required for the redis driver")
		}
	case "bleve", "none":
		// ok
	default:
		return fmt.Errorf("knowledge.driver must be \"redis\", \"bleve\" or \"none\", got %q", c.Knowledge.Driver)
	}
	if c.Pipeline.DefaultPageSize > c.Pipeline.MaxPageSize {
		return fmt.Errorf("pipeline.default_page_size (%d) exceeds max_page_size (%d)",
			c.Pipeline.DefaultPageSize, c.Pipeline.MaxPageSize)
	}
	for name := range c.Pipeline.Policies {
		switch name {
		case "event", "job", "general":
			// ok
		default:
			return fmt.Errorf("pipeline.policies.%s: unknown intent", name)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
