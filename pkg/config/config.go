package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	App            AppConfig            `yaml:"app"`
	Server         ServerConfig         `yaml:"server"`
	Database       DatabaseConfig       `yaml:"database"`
	Redis          RedisConfig          `yaml:"redis"`
	LLM            LLMConfig            `yaml:"llm"`
	Store          StoreConfig          `yaml:"store"`
	Recommendation RecommendationConfig `yaml:"recommendation"`
	Indexing       IndexingConfig       `yaml:"indexing"`
	WooCommerce    WooCommerceConfig    `yaml:"woocommerce"`
	Auth           AuthConfig           `yaml:"auth"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	OTEL           OTELConfig           `yaml:"otel"`
}

// AppConfig holds process level settings
type AppConfig struct {
	Name     string `yaml:"name"`
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`

	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Only enable it behind a proxy that sets them.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LLMConfig holds chat completion provider configuration.
// Provider is "openrouter" (any OpenAI compatible endpoint) or "gemini".
type LLMConfig struct {
	Provider       string        `yaml:"provider"`
	APIKey         string        `yaml:"api_key"`
	Model          string        `yaml:"model"`
	BaseURL        string        `yaml:"base_url"`
	Timeout        time.Duration `yaml:"timeout"`
	Temperature    float64       `yaml:"temperature"`
	MaxTokens      int           `yaml:"max_tokens"`
	RateLimitRPM   int           `yaml:"rate_limit_rpm"`
	RateLimitBurst int           `yaml:"rate_limit_burst"`
	Referer        string        `yaml:"referer"`
	Title          string        `yaml:"title"`
}

// StoreConfig describes the shop the assistant talks about
type StoreConfig struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	URL         string         `yaml:"url"`
	Currency    CurrencyConfig `yaml:"currency"`

	// PlaceholderImage is shown for products without an image
	PlaceholderImage string `yaml:"placeholder_image"`
}

// CurrencyConfig mirrors the WooCommerce price display settings
type CurrencyConfig struct {
	Symbol            string `yaml:"symbol"`
	Position          string `yaml:"position"`
	Decimals          int    `yaml:"decimals"`
	DecimalSeparator  string `yaml:"decimal_separator"`
	ThousandSeparator string `yaml:"thousand_separator"`
}

// RecommendationConfig holds recommendation settings
type RecommendationConfig struct {
	EnableProducts     bool   `yaml:"enable_products"`
	EnablePages        bool   `yaml:"enable_pages"`
	Priority           string `yaml:"priority"`
	MaxResults         int    `yaml:"max_results"`
	EnableQuickReplies bool   `yaml:"enable_quick_replies"`

	// Product suggestions come from the store's own search, not the index
	EnableProductSuggestions bool `yaml:"enable_product_suggestions"`
	SuggestionCount          int  `yaml:"suggestion_count"`
}

// IndexingConfig holds content indexing settings
type IndexingConfig struct {
	Periodic      bool          `yaml:"periodic"`
	Interval      time.Duration `yaml:"interval"`
	PageSize      int           `yaml:"page_size"`
	WebhookSecret string        `yaml:"webhook_secret"`
}

// WooCommerceConfig holds the store REST API settings
type WooCommerceConfig struct {
	BaseURL        string        `yaml:"base_url"`
	ConsumerKey    string        `yaml:"consumer_key"`
	ConsumerSecret string        `yaml:"consumer_secret"`
	Timeout        time.Duration `yaml:"timeout"`
}

// AuthConfig holds JWT settings for admin and customer tokens
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	AdminRole string `yaml:"admin_role"`
}

// RateLimitConfig holds per client limits for the chat endpoint
type RateLimitConfig struct {
	ChatRequests int           `yaml:"chat_requests"`
	ChatWindow   time.Duration `yaml:"chat_window"`
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	Endpoint       string `yaml:"endpoint"`
	Enabled        bool   `yaml:"enabled"`
}

var validPriorities = map[string]bool{
	"relevance":  true,
	"newest":     true,
	"price_low":  true,
	"price_high": true,
	"sales":      true,
}

// Defaults returns the configuration used when nothing is overridden
func Defaults() *Config {
	return &Config{
		App: AppConfig{
			Name:     "storeassist",
			Env:      "development",
			LogLevel: "info",
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   45 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Database: "storeassist",
			SSLMode:  "disable",
		},
		Redis: RedisConfig{
			Enabled: true,
			Host:    "localhost",
			Port:    6379,
		},
		LLM: LLMConfig{
			Provider:       "openrouter",
			Model:          "openai/gpt-4o",
			BaseURL:        "https://openrouter.ai/api/v1",
			Timeout:        30 * time.Second,
			Temperature:    0.7,
			MaxTokens:      500,
			RateLimitRPM:   60,
			RateLimitBurst: 5,
			Title:          "Store Assistant",
		},
		Store: StoreConfig{
			Name: "Store Assistant",
			Currency: CurrencyConfig{
				Symbol:            "$",
				Position:          "left",
				Decimals:          2,
				DecimalSeparator:  ".",
				ThousandSeparator: ",",
			},
		},
		Recommendation: RecommendationConfig{
			EnableProducts:           true,
			EnablePages:              true,
			Priority:                 "relevance",
			MaxResults:               3,
			EnableQuickReplies:       true,
			EnableProductSuggestions: true,
			SuggestionCount:          5,
		},
		Indexing: IndexingConfig{
			Interval: 24 * time.Hour,
			PageSize: 100,
		},
		WooCommerce: WooCommerceConfig{
			Timeout: 20 * time.Second,
		},
		Auth: AuthConfig{
			AdminRole: "admin",
		},
		RateLimit: RateLimitConfig{
			ChatRequests: 20,
			ChatWindow:   time.Minute,
		},
		OTEL: OTELConfig{
			ServiceName:    "storeassist",
			ServiceVersion: "1.0.0",
		},
	}
}

// Load builds the configuration from defaults, an optional .env file, an
// optional YAML file named by CONFIG_FILE and finally environment variables.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.App.Name = getEnv("APP_NAME", c.App.Name)
	c.App.Env = getEnv("APP_ENV", c.App.Env)
	c.App.LogLevel = getEnv("LOG_LEVEL", c.App.LogLevel)

	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsInt("SERVER_PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvAsDuration("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvAsDuration("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.AllowedOrigins = getEnvAsList("ALLOWED_ORIGINS", c.Server.AllowedOrigins)
	c.Server.TrustProxyHeaders = getEnvAsBool("TRUST_PROXY_HEADERS", c.Server.TrustProxyHeaders)

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvAsInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Database = getEnv("DB_NAME", c.Database.Database)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)

	c.Redis.Enabled = getEnvAsBool("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Host = getEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = getEnvAsInt("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)

	c.LLM.Provider = getEnv("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.APIKey = getEnv("LLM_API_KEY", c.LLM.APIKey)
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)
	c.LLM.BaseURL = getEnv("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Timeout = getEnvAsDuration("LLM_TIMEOUT", c.LLM.Timeout)
	c.LLM.Temperature = getEnvAsFloat("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.MaxTokens = getEnvAsInt("LLM_MAX_TOKENS", c.LLM.MaxTokens)
	c.LLM.RateLimitRPM = getEnvAsInt("LLM_RATE_LIMIT_RPM", c.LLM.RateLimitRPM)
	c.LLM.RateLimitBurst = getEnvAsInt("LLM_RATE_LIMIT_BURST", c.LLM.RateLimitBurst)
	c.LLM.Referer = getEnv("LLM_REFERER", c.LLM.Referer)
	c.LLM.Title = getEnv("LLM_TITLE", c.LLM.Title)

	c.Store.Name = getEnv("STORE_NAME", c.Store.Name)
	c.Store.Description = getEnv("STORE_DESCRIPTION", c.Store.Description)
	c.Store.URL = getEnv("STORE_URL", c.Store.URL)
	c.Store.PlaceholderImage = getEnv("STORE_PLACEHOLDER_IMAGE", c.Store.PlaceholderImage)
	c.Store.Currency.Symbol = getEnv("STORE_CURRENCY_SYMBOL", c.Store.Currency.Symbol)
	c.Store.Currency.Position = getEnv("STORE_CURRENCY_POSITION", c.Store.Currency.Position)
	c.Store.Currency.Decimals = getEnvAsInt("STORE_PRICE_DECIMALS", c.Store.Currency.Decimals)
	c.Store.Currency.DecimalSeparator = getEnv("STORE_DECIMAL_SEPARATOR", c.Store.Currency.DecimalSeparator)
	c.Store.Currency.ThousandSeparator = getEnv("STORE_THOUSAND_SEPARATOR", c.Store.Currency.ThousandSeparator)

	c.Recommendation.EnableProducts = getEnvAsBool("ENABLE_PRODUCT_RECOMMENDATIONS", c.Recommendation.EnableProducts)
	c.Recommendation.EnablePages = getEnvAsBool("ENABLE_PAGE_RECOMMENDATIONS", c.Recommendation.EnablePages)
	c.Recommendation.Priority = getEnv("RECOMMENDATION_PRIORITY", c.Recommendation.Priority)
	c.Recommendation.MaxResults = getEnvAsInt("MAX_RECOMMENDATIONS", c.Recommendation.MaxResults)
	c.Recommendation.EnableQuickReplies = getEnvAsBool("ENABLE_QUICK_REPLIES", c.Recommendation.EnableQuickReplies)
	c.Recommendation.EnableProductSuggestions = getEnvAsBool("ENABLE_PRODUCT_SUGGESTIONS", c.Recommendation.EnableProductSuggestions)
	c.Recommendation.SuggestionCount = getEnvAsInt("PRODUCT_SUGGESTIONS_COUNT", c.Recommendation.SuggestionCount)

	c.Indexing.Periodic = getEnvAsBool("INDEXING_PERIODIC", c.Indexing.Periodic)
	c.Indexing.Interval = getEnvAsDuration("REINDEX_INTERVAL", c.Indexing.Interval)
	c.Indexing.PageSize = getEnvAsInt("INDEXING_PAGE_SIZE", c.Indexing.PageSize)
	c.Indexing.WebhookSecret = getEnv("WEBHOOK_SECRET", c.Indexing.WebhookSecret)

	c.WooCommerce.BaseURL = getEnv("WC_BASE_URL", c.WooCommerce.BaseURL)
	c.WooCommerce.ConsumerKey = getEnv("WC_CONSUMER_KEY", c.WooCommerce.ConsumerKey)
	c.WooCommerce.ConsumerSecret = getEnv("WC_CONSUMER_SECRET", c.WooCommerce.ConsumerSecret)
	c.WooCommerce.Timeout = getEnvAsDuration("WC_TIMEOUT", c.WooCommerce.Timeout)

	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.AdminRole = getEnv("JWT_ADMIN_ROLE", c.Auth.AdminRole)

	c.RateLimit.ChatRequests = getEnvAsInt("CHAT_RATE_LIMIT", c.RateLimit.ChatRequests)
	c.RateLimit.ChatWindow = getEnvAsDuration("CHAT_RATE_WINDOW", c.RateLimit.ChatWindow)

	c.OTEL.ServiceName = getEnv("OTEL_SERVICE_NAME", c.OTEL.ServiceName)
	c.OTEL.ServiceVersion = getEnv("OTEL_SERVICE_VERSION", c.OTEL.ServiceVersion)
	c.OTEL.Endpoint = getEnv("OTEL_ENDPOINT", c.OTEL.Endpoint)
	c.OTEL.Enabled = getEnvAsBool("OTEL_ENABLED", c.OTEL.Enabled)
}

// Validate rejects settings the services cannot run with
func (c *Config) Validate() error {
	if !validPriorities[c.Recommendation.Priority] {
		return fmt.Errorf("invalid recommendation priority %q", c.Recommendation.Priority)
	}
	if c.Recommendation.MaxResults < 1 {
		return fmt.Errorf("max recommendations must be at least 1, got %d", c.Recommendation.MaxResults)
	}
	if c.Recommendation.SuggestionCount < 1 || c.Recommendation.SuggestionCount > 10 {
		return fmt.Errorf("product suggestion count must be between 1 and 10, got %d", c.Recommendation.SuggestionCount)
	}
	switch c.LLM.Provider {
	case "openrouter", "openai", "gemini":
	default:
		return fmt.Errorf("unsupported llm provider %q", c.LLM.Provider)
	}
	if c.Indexing.PageSize < 1 || c.Indexing.PageSize > 100 {
		return fmt.Errorf("indexing page size must be between 1 and 100, got %d", c.Indexing.PageSize)
	}
	if c.Indexing.Periodic && c.Indexing.Interval <= 0 {
		return fmt.Errorf("reindex interval must be positive when periodic indexing is on, got %s", c.Indexing.Interval)
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
