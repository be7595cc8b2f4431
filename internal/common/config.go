package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"

	"github.com/ternarybob/flickrinsert/internal/models"
)

// Config represents the application configuration
type Config struct {
	Flickr    FlickrConfig    `toml:"flickr"`
	Cache     CacheConfig     `toml:"cache"`
	Storage   StorageConfig   `toml:"storage"`
	Content   ContentConfig   `toml:"content"`
	Templates TemplatesConfig `toml:"templates"`
	Run       RunConfig       `toml:"run"`
	Logging   LoggingConfig   `toml:"logging"`
}

// FlickrConfig contains Flickr API access settings
type FlickrConfig struct {
	APIKey         string `toml:"api_key" validate:"required"`    // Flickr API key (required)
	APISecret      string `toml:"api_secret" validate:"required"` // Flickr API secret (required)
	ImageSize      string `toml:"image_size"`                     // Default size when a tag has none (default: "medium")
	BaseURL        string `toml:"base_url" validate:"omitempty,url"`
	RequestTimeout string `toml:"request_timeout"` // e.g. "30s"
	RateLimit      int    `toml:"rate_limit" validate:"gte=0"` // Requests per second, 0 = default
}

// CacheConfig contains the photo cache file and refresh windows
type CacheConfig struct {
	Filename        string   `toml:"filename"`
	KeyField        string   `toml:"key_field"`
	FieldNames      []string `toml:"field_names"`
	SessionInterval string   `toml:"session_interval"` // always reuse the cache below this age
	RecentInterval  string   `toml:"recent_interval"`  // re-check records younger than this
	RefreshInterval string   `toml:"refresh_interval"` // upper bound for scheduled refreshes
	Increment       string   `toml:"increment"`        // minimum jitter on top of recent_interval
}

// StorageConfig selects the cache backend
type StorageConfig struct {
	Type   string       `toml:"type"` // "csv" (default) or "badger"
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path string `toml:"path"` // Database directory path
}

// ContentConfig describes where documents are read from and written to
type ContentConfig struct {
	Dirs       []string `toml:"dirs"`       // Content roots, e.g. articles, drafts, pages
	Extensions []string `toml:"extensions"` // File extensions to scan
	OutputDir  string   `toml:"output_dir"` // Rendered output directory
}

// TemplatesConfig controls the replacement markup template
type TemplatesConfig struct {
	Dir               string `toml:"dir"`  // Directory with user templates
	Name              string `toml:"name"` // Template name, empty = built-in default
	IncludeDimensions bool   `toml:"include_dimensions"`
}

// RunConfig controls repeated runs
type RunConfig struct {
	Schedule string `toml:"schedule"` // 5-field cron expression, empty = single run
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig returns the configuration used when no file overrides a value
func NewDefaultConfig() *Config {
	return &Config{
		Flickr: FlickrConfig{
			ImageSize:      "medium",
			BaseURL:        "https://api.flickr.com/services/rest/",
			RequestTimeout: "30s",
			RateLimit:      1, // Flickr allows 3600 calls per hour per key
		},
		Cache: CacheConfig{
			Filename:        "flickr_insert_cache.csv",
			KeyField:        models.DefaultKeyField,
			FieldNames:      models.DefaultFieldNames(),
			SessionInterval: "1h",
			RecentInterval:  "72h",
			RefreshInterval: "336h",
			Increment:       "24h",
		},
		Storage: StorageConfig{
			Type: "csv",
			Badger: BadgerConfig{
				Path: "./data/cache",
			},
		},
		Content: ContentConfig{
			Dirs:       []string{"./content"},
			Extensions: []string{".md", ".markdown", ".html"},
			OutputDir:  "./output",
		},
		Templates: TemplatesConfig{
			Dir: "./templates",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files. CLI flags are applied afterwards by the caller.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Credentials
	if apiKey := os.Getenv("FLICKR_INSERT_API_KEY"); apiKey != "" {
		config.Flickr.APIKey = apiKey
	}
	if apiSecret := os.Getenv("FLICKR_INSERT_API_SECRET"); apiSecret != "" {
		config.Flickr.APISecret = apiSecret
	}
	if imageSize := os.Getenv("FLICKR_INSERT_IMAGE_SIZE"); imageSize != "" {
		config.Flickr.ImageSize = imageSize
	}
	if rateLimit := os.Getenv("FLICKR_INSERT_RATE_LIMIT"); rateLimit != "" {
		if rl, err := strconv.Atoi(rateLimit); err == nil {
			config.Flickr.RateLimit = rl
		}
	}

	// Cache
	if filename := os.Getenv("FLICKR_INSERT_CACHE_FILE"); filename != "" {
		config.Cache.Filename = filename
	}
	if storageType := os.Getenv("FLICKR_INSERT_STORAGE_TYPE"); storageType != "" {
		config.Storage.Type = storageType
	}
	if badgerPath := os.Getenv("FLICKR_INSERT_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Content
	if outputDir := os.Getenv("FLICKR_INSERT_OUTPUT_DIR"); outputDir != "" {
		config.Content.OutputDir = outputDir
	}

	// Logging
	if level := os.Getenv("FLICKR_INSERT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("FLICKR_INSERT_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, contentDirs []string, outputDir string, schedule string) {
	if len(contentDirs) > 0 {
		config.Content.Dirs = contentDirs
	}
	if outputDir != "" {
		config.Content.OutputDir = outputDir
	}
	if schedule != "" {
		config.Run.Schedule = schedule
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks required settings and cross-field constraints.
// Every failure is reported as a *ConfigurationError.
func (c *Config) Validate() error {
	if err := validate.Struct(c.Flickr); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &ConfigurationError{
				Setting: "flickr." + tomlName(fe.Field()),
				Reason:  validationReason(fe),
			}
		}
		return &ConfigurationError{Setting: "flickr", Reason: err.Error()}
	}

	if _, err := c.Policy(); err != nil {
		return err
	}

	if _, err := c.RequestTimeout(); err != nil {
		return err
	}

	if c.Cache.Filename == "" && c.StorageType() == "csv" {
		return &ConfigurationError{Setting: "cache.filename", Reason: "must not be empty"}
	}
	if strings.TrimSpace(c.Cache.KeyField) == "" {
		return &ConfigurationError{Setting: "cache.key_field", Reason: "must not be empty"}
	}

	switch c.StorageType() {
	case "csv", "badger":
	default:
		return &ConfigurationError{Setting: "storage.type", Reason: fmt.Sprintf("unsupported storage type %q (csv or badger)", c.Storage.Type)}
	}

	if c.Run.Schedule != "" {
		if err := ValidateSchedule(c.Run.Schedule); err != nil {
			return &ConfigurationError{Setting: "run.schedule", Reason: err.Error(), Err: err}
		}
	}

	return nil
}

// Policy converts the cache durations into a validated refresh policy
func (c *Config) Policy() (models.RefreshPolicy, error) {
	durations := []struct {
		setting string
		value   string
	}{
		{"cache.session_interval", c.Cache.SessionInterval},
		{"cache.recent_interval", c.Cache.RecentInterval},
		{"cache.refresh_interval", c.Cache.RefreshInterval},
		{"cache.increment", c.Cache.Increment},
	}

	parsed := make([]time.Duration, len(durations))
	for i, d := range durations {
		v, err := time.ParseDuration(strings.TrimSpace(d.value))
		if err != nil {
			return models.RefreshPolicy{}, &ConfigurationError{Setting: d.setting, Reason: "invalid duration", Err: err}
		}
		parsed[i] = v
	}

	policy := models.NewRefreshPolicy(parsed[0], parsed[1], parsed[2], parsed[3])
	if err := policy.Validate(); err != nil {
		return models.RefreshPolicy{}, &ConfigurationError{Setting: "cache", Reason: err.Error(), Err: err}
	}

	return policy, nil
}

// RequestTimeout parses the Flickr request timeout
func (c *Config) RequestTimeout() (time.Duration, error) {
	if c.Flickr.RequestTimeout == "" {
		return 30 * time.Second, nil
	}
	d, err := time.ParseDuration(c.Flickr.RequestTimeout)
	if err != nil || d <= 0 {
		return 0, &ConfigurationError{Setting: "flickr.request_timeout", Reason: fmt.Sprintf("invalid duration %q", c.Flickr.RequestTimeout), Err: err}
	}
	return d, nil
}

// StorageType returns the normalised storage backend name
func (c *Config) StorageType() string {
	t := strings.ToLower(strings.TrimSpace(c.Storage.Type))
	if t == "" {
		return "csv"
	}
	return t
}

// ValidateSchedule validates a standard 5-field cron expression
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

func validationReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "missing required setting"
	case "url":
		return fmt.Sprintf("invalid URL %q", fe.Value())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}

// tomlName maps a Go field name to its toml key
func tomlName(field string) string {
	switch field {
	case "APIKey":
		return "api_key"
	case "APISecret":
		return "api_secret"
	case "BaseURL":
		return "base_url"
	case "RateLimit":
		return "rate_limit"
	}
	return strings.ToLower(field)
}
