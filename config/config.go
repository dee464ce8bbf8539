package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT            = "5010"
	DEFAULT_TIMEOUT_SECONDS = 10
	DEFAULT_AUTO_SYNC_LIMIT = 2
	DEFAULT_PRICE_DECIMALS  = 2
	DEFAULT_WEBHOOK_QUEUE   = "offset_webhooks"
	DEFAULT_SYNC_QUEUE      = "offset_sync"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	Secure    bool   `json:"secure" envconfig:"CLMTE_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"CLMTE_SERVER_SECRET_KEY"`
	Port      string `json:"port" envconfig:"CLMTE_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"CLMTE_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"CLMTE_REDIS_DNS"`
}

// TundraConfig holds the credentials and purchase policy for the offsetting API.
// ApiKey, OrganisationID, ProductionMode and OffsetProductID are fallbacks
// for values missing from the option store.
type TundraConfig struct {
	ApiKey           string `json:"api_key" envconfig:"CLMTE_TUNDRA_API_KEY"`
	OrganisationID   string `json:"organisation_id" envconfig:"CLMTE_TUNDRA_ORGANISATION_ID"`
	ProductionMode   bool   `json:"production_mode" envconfig:"CLMTE_TUNDRA_PRODUCTION_MODE"`
	OffsetProductID  string `json:"offset_product_id" envconfig:"CLMTE_TUNDRA_OFFSET_PRODUCT_ID"`
	Timeout          int    `json:"timeout" envconfig:"CLMTE_TUNDRA_TIMEOUT"`
	AutoSyncLimit    int    `json:"auto_sync_limit" envconfig:"CLMTE_TUNDRA_AUTO_SYNC_LIMIT"`
	MarkFailedOrders bool   `json:"mark_failed_orders" envconfig:"CLMTE_TUNDRA_MARK_FAILED_ORDERS"`
}

type ShopConfig struct {
	PriceDecimals    *int   `json:"price_decimals" envconfig:"CLMTE_SHOP_PRICE_DECIMALS"`
	DecimalSeparator string `json:"decimal_separator" envconfig:"CLMTE_SHOP_DECIMAL_SEPARATOR"`
	Currency         string `json:"currency" envconfig:"CLMTE_SHOP_CURRENCY"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"CLMTE_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"CLMTE_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"CLMTE_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"CLMTE_SLACK_WEBHOOK_URL"`
}

type WebhookConfig struct {
	Url     string            `json:"url" envconfig:"CLMTE_WEBHOOK_URL"`
	Headers map[string]string `json:"headers"`
}

type Notification struct {
	Slack   SlackWebhook  `json:"slack"`
	Webhook WebhookConfig `json:"webhook"`
}

type QueueConfig struct {
	WebhookQueue string `json:"webhook_queue" envconfig:"CLMTE_QUEUE_WEBHOOK"`
	SyncQueue    string `json:"sync_queue" envconfig:"CLMTE_QUEUE_SYNC"`
}

type Configuration struct {
	ProjectName     string           `json:"project_name" envconfig:"CLMTE_PROJECT_NAME"`
	EnableTelemetry bool             `json:"enable_telemetry" envconfig:"CLMTE_ENABLE_TELEMETRY"`
	Server          ServerConfig     `json:"server"`
	DataSource      DataSourceConfig `json:"data_source"`
	Redis           RedisConfig      `json:"redis"`
	Tundra          TundraConfig     `json:"tundra"`
	Shop            ShopConfig       `json:"shop"`
	Notification    Notification     `json:"notification"`
	Queue           QueueConfig      `json:"queue"`
	RateLimit       RateLimitConfig  `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("clmte", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called clmte.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "CLMTE Offsets"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Warning: Redis DNS is empty. Price cache, order locks and webhooks will be disabled.")
	}

	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.Tundra.ApiKey = strings.TrimSpace(cnf.Tundra.ApiKey)
	cnf.Tundra.OrganisationID = strings.TrimSpace(cnf.Tundra.OrganisationID)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Tundra.Timeout <= 0 {
		cnf.Tundra.Timeout = DEFAULT_TIMEOUT_SECONDS
	}

	if cnf.Tundra.AutoSyncLimit <= 0 {
		cnf.Tundra.AutoSyncLimit = DEFAULT_AUTO_SYNC_LIMIT
	}

	if cnf.Shop.PriceDecimals == nil {
		decimals := DEFAULT_PRICE_DECIMALS
		cnf.Shop.PriceDecimals = &decimals
	} else if *cnf.Shop.PriceDecimals < 0 {
		return errors.New("shop price decimals cannot be negative")
	}

	if cnf.Shop.DecimalSeparator == "" {
		cnf.Shop.DecimalSeparator = "."
	}

	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = DEFAULT_WEBHOOK_QUEUE
	}
	if cnf.Queue.SyncQueue == "" {
		cnf.Queue.SyncQueue = DEFAULT_SYNC_QUEUE
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// RequestTimeout bounds every call to the offsetting API.
func (t TundraConfig) RequestTimeout() time.Duration {
	if t.Timeout <= 0 {
		return DEFAULT_TIMEOUT_SECONDS * time.Second
	}
	return time.Duration(t.Timeout) * time.Second
}

// SyncLimit is the number of pending purchases drained after each success.
func (t TundraConfig) SyncLimit() int {
	if t.AutoSyncLimit <= 0 {
		return DEFAULT_AUTO_SYNC_LIMIT
	}
	return t.AutoSyncLimit
}

func (s ShopConfig) Decimals() int {
	if s.PriceDecimals == nil {
		return DEFAULT_PRICE_DECIMALS
	}
	return *s.PriceDecimals
}

func (s ShopConfig) Separator() string {
	if s.DecimalSeparator == "" {
		return "."
	}
	return s.DecimalSeparator
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
