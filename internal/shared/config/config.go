package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the notifier service.
type Config struct {
	AppEnv  string
	Bot     BotConfig
	GraphQL GraphQLConfig
	Image   ImageConfig
	Mensatt MensattConfig
}

// BotConfig configures the Telegram side.
type BotConfig struct {
	Token           string
	Mode            string // "polling" or "webhook"
	ReviewChannelID int64  // private channel the panels are posted to
	WorkerPoolSize  int
	Webhook         WebhookConfig
}

// WebhookConfig is only consulted when Mode == "webhook".
type WebhookConfig struct {
	URL        string
	ListenPort int
}

// GraphQLConfig configures the Mensatt backend endpoints.
type GraphQLConfig struct {
	WsURL        string
	HTTPSURL     string
	TokenMargin  time.Duration // refresh the token when less than this remains
	RetryBackoff time.Duration // fixed sleep between listener reconnects
}

// ImageConfig configures the image service.
type ImageConfig struct {
	BaseURL   string // prefix for embedding review images
	RotateURL string
	Key       string // pre-shared key, distinct from the backend login token
}

// MensattConfig holds the backend login credentials.
type MensattConfig struct {
	Email         string
	Password      string
	OccurrenceURL string // web UI link prefix for a review's occurrence
}

// bindings maps viper keys to the environment variables that feed them.
var bindings = map[string]string{
	"app.env":                 "APP_ENV",
	"bot.token":               "BOT_TOKEN",
	"bot.mode":                "BOT_MODE",
	"bot.review_channel_id":   "REVIEW_CHANNEL_ID",
	"bot.worker_pool_size":    "BOT_WORKER_POOL_SIZE",
	"bot.webhook.url":         "BOT_WEBHOOK_URL",
	"bot.webhook.listen_port": "BOT_WEBHOOK_LISTEN_PORT",
	"graphql.ws_url":          "GRAPHQL_WS_URL",
	"graphql.https_url":       "GRAPHQL_HTTPS_URL",
	"graphql.token_margin":    "GRAPHQL_TOKEN_MARGIN",
	"graphql.retry_backoff":   "GRAPHQL_RETRY_BACKOFF",
	"image.base_url":          "IMAGE_BASE_URL",
	"image.rotate_url":        "IMAGE_ROTATE_URL",
	"image.key":               "IMAGE_KEY",
	"mensatt.email":           "MENSATT_EMAIL",
	"mensatt.password":        "MENSATT_PASSWORD",
	"mensatt.occurrence_url":  "MENSATT_OCCURRENCE_URL",
}

// Load loads configuration from the environment, preferring a local .env
// file when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// A missing .env is fine in prod; anything else should surface.
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("could not bind %s: %w", key, err)
		}
	}

	viper.SetDefault("app.env", "dev")
	viper.SetDefault("bot.mode", "polling")
	viper.SetDefault("bot.worker_pool_size", 4)
	viper.SetDefault("bot.webhook.listen_port", 8443)
	viper.SetDefault("graphql.token_margin", "30s")
	viper.SetDefault("graphql.retry_backoff", "60s")

	cfg := Config{
		AppEnv: viper.GetString("app.env"),
		Bot: BotConfig{
			Token:           viper.GetString("bot.token"),
			Mode:            viper.GetString("bot.mode"),
			ReviewChannelID: viper.GetInt64("bot.review_channel_id"),
			WorkerPoolSize:  viper.GetInt("bot.worker_pool_size"),
			Webhook: WebhookConfig{
				URL:        viper.GetString("bot.webhook.url"),
				ListenPort: viper.GetInt("bot.webhook.listen_port"),
			},
		},
		GraphQL: GraphQLConfig{
			WsURL:        viper.GetString("graphql.ws_url"),
			HTTPSURL:     viper.GetString("graphql.https_url"),
			TokenMargin:  viper.GetDuration("graphql.token_margin"),
			RetryBackoff: viper.GetDuration("graphql.retry_backoff"),
		},
		Image: ImageConfig{
			BaseURL:   viper.GetString("image.base_url"),
			RotateURL: viper.GetString("image.rotate_url"),
			Key:       viper.GetString("image.key"),
		},
		Mensatt: MensattConfig{
			Email:         viper.GetString("mensatt.email"),
			Password:      viper.GetString("mensatt.password"),
			OccurrenceURL: viper.GetString("mensatt.occurrence_url"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Bot.Token == "" {
		return errors.New("BOT_TOKEN is not set in environment or .env file")
	}
	if c.Bot.ReviewChannelID == 0 {
		return errors.New("REVIEW_CHANNEL_ID is not set in environment or .env file")
	}
	if c.Bot.Mode != "polling" && c.Bot.Mode != "webhook" {
		return fmt.Errorf("BOT_MODE must be 'polling' or 'webhook', got %q", c.Bot.Mode)
	}
	if c.Bot.Mode == "webhook" && c.Bot.Webhook.URL == "" {
		return errors.New("BOT_WEBHOOK_URL is required in webhook mode")
	}
	if c.GraphQL.WsURL == "" || c.GraphQL.HTTPSURL == "" {
		return errors.New("GRAPHQL_WS_URL and GRAPHQL_HTTPS_URL must both be set")
	}
	if c.Mensatt.Email == "" || c.Mensatt.Password == "" {
		return errors.New("MENSATT_EMAIL and MENSATT_PASSWORD must both be set")
	}
	if c.Image.Key == "" {
		return errors.New("IMAGE_KEY is not set in environment or .env file")
	}
	if c.GraphQL.TokenMargin <= 0 {
		return fmt.Errorf("GRAPHQL_TOKEN_MARGIN must be positive, got %s", c.GraphQL.TokenMargin)
	}
	return nil
}
