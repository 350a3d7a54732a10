package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       App       `mapstructure:"app"`
	AI        AI        `mapstructure:"ai"`
	Feeds     Feeds     `mapstructure:"feeds"`
	Filter    Filter    `mapstructure:"filter"`
	Scraper   Scraper   `mapstructure:"scraper"`
	Scorer    Scorer    `mapstructure:"scorer"`
	Images    Images    `mapstructure:"images"`
	Datastore Datastore `mapstructure:"datastore"`
	Output    Output    `mapstructure:"output"`
}

// App holds general application configuration
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// AI holds LLM provider configuration
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
	OpenAI OpenAIConfig `mapstructure:"openai"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
	Timeout     string  `mapstructure:"timeout"`
}

// OpenAIConfig holds OpenAI configuration (image generation)
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Timeout string `mapstructure:"timeout"`
}

// Feeds holds RSS ingestion configuration
type Feeds struct {
	SourcesFile string `mapstructure:"sources_file"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
	UserAgent   string `mapstructure:"user_agent"`
	Timeout     string `mapstructure:"timeout"`
}

// Filter holds relevance filter configuration
type Filter struct {
	BatchSize int `mapstructure:"batch_size"`
}

// Scraper holds content extraction configuration
type Scraper struct {
	MinContentLength int     `mapstructure:"min_content_length"`
	Timeout          string  `mapstructure:"timeout"`
	DelaySeconds     float64 `mapstructure:"delay_seconds"`
	MaxArticles      int     `mapstructure:"max_articles"`
	Workers          int     `mapstructure:"workers"`
}

// Scorer holds scoring configuration
type Scorer struct {
	MaxContentChars int `mapstructure:"max_content_chars"`
}

// Images holds image synthesis configuration
type Images struct {
	Enabled   bool   `mapstructure:"enabled"`
	Model     string `mapstructure:"model"`
	Size      string `mapstructure:"size"`
	Quality   string `mapstructure:"quality"`
	Style     string `mapstructure:"style"`
	OutputDir string `mapstructure:"output_dir"`
}

// Datastore holds the Supabase-style datastore and save endpoint config
type Datastore struct {
	URL          string `mapstructure:"url"`
	APIKey       string `mapstructure:"api_key"`
	Table        string `mapstructure:"table"`
	LookbackDays int    `mapstructure:"lookback_days"`
	SaveURL      string `mapstructure:"save_url"`
	Timeout      string `mapstructure:"timeout"`
}

// Output holds local output configuration
type Output struct {
	Directory        string `mapstructure:"directory"`
	TopArticlesCount int    `mapstructure:"top_articles_count"`
}

var globalConfig *Config

// Load loads the configuration from .env, config file, and environment.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".glaspolitics")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")

	viper.SetDefault("ai.gemini.model", "gemini-1.5-flash-latest")
	viper.SetDefault("ai.gemini.temperature", 0.1)
	viper.SetDefault("ai.gemini.timeout", "30s")
	viper.SetDefault("ai.openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("ai.openai.timeout", "60s")

	viper.SetDefault("feeds.sources_file", "feeds.yaml")
	viper.SetDefault("feeds.max_age_days", 7)
	viper.SetDefault("feeds.user_agent", "GlasPoliticsBot/1.0 (Irish Political News)")
	viper.SetDefault("feeds.timeout", "15s")

	viper.SetDefault("filter.batch_size", 50)

	viper.SetDefault("scraper.min_content_length", 200)
	viper.SetDefault("scraper.timeout", "10s")
	viper.SetDefault("scraper.delay_seconds", 1.0)
	viper.SetDefault("scraper.max_articles", 30)
	viper.SetDefault("scraper.workers", 1)

	viper.SetDefault("scorer.max_content_chars", 8000)

	viper.SetDefault("images.enabled", false)
	viper.SetDefault("images.model", "dall-e-3")
	viper.SetDefault("images.size", "1024x1024")
	viper.SetDefault("images.quality", "standard")
	viper.SetDefault("images.style", "natural")
	viper.SetDefault("images.output_dir", "output/images")

	viper.SetDefault("datastore.table", "news_articles")
	viper.SetDefault("datastore.lookback_days", 30)
	viper.SetDefault("datastore.timeout", "10s")

	viper.SetDefault("output.directory", "output")
	viper.SetDefault("output.top_articles_count", 5)
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	bindEnvKeys("ai.openai.api_key", []string{
		"OPENAI_API_KEY",
	})

	bindEnvKeys("datastore.url", []string{
		"SUPABASE_URL",
		"DATASTORE_URL",
	})

	bindEnvKeys("datastore.api_key", []string{
		"SUPABASE_KEY",
		"SUPABASE_SERVICE_KEY",
		"DATASTORE_API_KEY",
	})

	bindEnvKeys("datastore.save_url", []string{
		"API_URL",
		"SAVE_API_URL",
	})

	bindEnvKeys("app.debug", []string{
		"DEBUG",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	if config.Output.Directory != "" {
		config.Output.Directory = expandPath(config.Output.Directory)
	}
	if config.Images.OutputDir != "" {
		config.Images.OutputDir = expandPath(config.Images.OutputDir)
	}
	if config.Feeds.SourcesFile != "" {
		config.Feeds.SourcesFile = expandPath(config.Feeds.SourcesFile)
	}

	durations := map[string]string{
		"ai.gemini.timeout": config.AI.Gemini.Timeout,
		"ai.openai.timeout": config.AI.OpenAI.Timeout,
		"feeds.timeout":     config.Feeds.Timeout,
		"scraper.timeout":   config.Scraper.Timeout,
		"datastore.timeout": config.Datastore.Timeout,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig ensures required configuration is present
func validateConfig(config *Config) error {
	var errors []string

	if config.AI.Gemini.APIKey == "" {
		errors = append(errors, "Gemini API key is required. Set GEMINI_API_KEY environment variable or ai.gemini.api_key in config file")
	}

	if config.Images.Enabled && config.AI.OpenAI.APIKey == "" {
		errors = append(errors, "OpenAI API key is required when image generation is enabled. Set OPENAI_API_KEY")
	}

	if config.Filter.BatchSize <= 0 {
		errors = append(errors, "filter.batch_size must be positive")
	}

	if config.Output.TopArticlesCount <= 0 {
		errors = append(errors, "output.top_articles_count must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Timeout parses a duration string, falling back to def on empty or bad input.
func Timeout(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}

// Convenience getters for commonly used configuration values
func GetGeminiAPIKey() string    { return Get().AI.Gemini.APIKey }
func GetGeminiModel() string     { return Get().AI.Gemini.Model }
func GetOpenAIAPIKey() string    { return Get().AI.OpenAI.APIKey }
func GetOutputDirectory() string { return Get().Output.Directory }
func GetTopArticlesCount() int   { return Get().Output.TopArticlesCount }
func IsDebugMode() bool          { return Get().App.Debug }
func ImagesEnabled() bool        { return Get().Images.Enabled }

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
