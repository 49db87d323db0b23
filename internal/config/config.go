package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Service  *svcConfig
	Scrape   *scrapeConfig
	Storage  *storageConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"lease"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address         string   `envconfig:"LEASE_PLANNER_ADDRESS" default:":3443"`
	MetricsAddress  string   `envconfig:"LEASE_PLANNER_METRICS_ADDRESS" default:":8080"`
	LogLevel        string   `envconfig:"LEASE_PLANNER_LOG_LEVEL" default:"info"`
	LogFormat       string   `envconfig:"LEASE_PLANNER_LOG_FORMAT" default:"console"`
	AllowedOrigins  []string `envconfig:"LEASE_PLANNER_ALLOWED_ORIGINS" default:"http://localhost:5173"`
	MigrationFolder string   `envconfig:"LEASE_PLANNER_MIGRATIONS_FOLDER" default:""`
	Auth            Auth
}

type Auth struct {
	AuthenticationType string `envconfig:"LEASE_PLANNER_AUTH" default:""`
	JwkCertURL         string `envconfig:"LEASE_PLANNER_JWK_URL" default:""`
	LocalSigningKey    string `envconfig:"LEASE_PLANNER_SIGNING_KEY" default:""`
}

// scrapeConfig drives the in-process invoice runner and its automation backend.
type scrapeConfig struct {
	BackendURL     string        `envconfig:"LEASE_PLANNER_SCRAPE_BACKEND_URL" default:"http://localhost:3000"`
	BackendToken   string        `envconfig:"LEASE_PLANNER_SCRAPE_BACKEND_TOKEN" default:""`
	BackendTimeout time.Duration `envconfig:"LEASE_PLANNER_SCRAPE_BACKEND_TIMEOUT" default:"90s"`
	RunnerEnabled  bool          `envconfig:"LEASE_PLANNER_SCRAPE_RUNNER_ENABLED" default:"false"`
	PollInterval   time.Duration `envconfig:"LEASE_PLANNER_SCRAPE_POLL_INTERVAL" default:"30s"`
	Workers        int           `envconfig:"LEASE_PLANNER_SCRAPE_WORKERS" default:"2"`
	RatePerSecond  float64       `envconfig:"LEASE_PLANNER_SCRAPE_RATE" default:"0.5"`
	RateBurst      int           `envconfig:"LEASE_PLANNER_SCRAPE_BURST" default:"1"`
	JobTimeout     time.Duration `envconfig:"LEASE_PLANNER_SCRAPE_JOB_TIMEOUT" default:"5m"`
	// CredentialsKey seals portal passwords at rest. Without it a random key is
	// used and jobs left pending by a previous process fail when claimed.
	CredentialsKey string `envconfig:"LEASE_PLANNER_CREDENTIALS_KEY" default:""`
}

// storageConfig points to the S3 compatible bucket holding scrape archives.
// Archiving is off while Endpoint is empty.
type storageConfig struct {
	Endpoint  string `envconfig:"LEASE_PLANNER_S3_ENDPOINT" default:""`
	Bucket    string `envconfig:"LEASE_PLANNER_S3_BUCKET" default:"lease-invoices"`
	AccessKey string `envconfig:"LEASE_PLANNER_S3_ACCESS_KEY" default:""`
	SecretKey string `envconfig:"LEASE_PLANNER_S3_SECRET_KEY" default:""`
	Region    string `envconfig:"LEASE_PLANNER_S3_REGION" default:"us-east-1"`
	UseSSL    bool   `envconfig:"LEASE_PLANNER_S3_USE_SSL" default:"false"`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			singleConfig = nil
			return nil, err
		}
	}
	return singleConfig, nil
}

// NewDefault returns a configuration backed by a shared in-memory sqlite database.
func NewDefault() *Config {
	return &Config{
		Database: &dbConfig{
			Type: "sqlite",
			Name: "file::memory:?cache=shared",
		},
		Service: &svcConfig{
			Address:        ":3443",
			MetricsAddress: ":8080",
			LogLevel:       "debug",
			LogFormat:      "console",
			AllowedOrigins: []string{"http://localhost:5173"},
			Auth:           Auth{AuthenticationType: "none"},
		},
		Scrape: &scrapeConfig{
			BackendURL:     "http://localhost:3000",
			BackendTimeout: 90 * time.Second,
			PollInterval:   30 * time.Second,
			Workers:        2,
			RatePerSecond:  0.5,
			RateBurst:      1,
			JobTimeout:     5 * time.Minute,
		},
		Storage: &storageConfig{
			Bucket: "lease-invoices",
			Region: "us-east-1",
		},
	}
}
