package config

import (
	"fmt"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSqlite   = "sqlite"
	DriverGCS      = "gcs"
	DriverLocal    = "local" // document store on a local directory
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	HttpPort int    `yaml:"http_port" validate:"gt=0,lt=65536"`
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn warning error"`
	LogJSON  bool   `yaml:"log_json"`

	ThreadsPerBoard   int  `yaml:"threads_per_board" validate:"gt=0"`   // threads shown on a board listing
	RepliesPerPreview int  `yaml:"replies_per_preview" validate:"gte=0"` // newest replies shown per thread on a board listing
	MaxTextLength     int  `yaml:"max_text_length" validate:"gt=0"`
	SanitizeHTML      bool `yaml:"sanitize_html"`

	// nil disables thread garbage collection
	MaxThreadsPerBoard *int          `yaml:"max_threads_per_board" validate:"omitempty,gt=0"`
	ThreadGCInterval   time.Duration `yaml:"thread_gc_interval"`

	AllowedOrigins []string `yaml:"allowed_origins"`
	HTTPS          bool     `yaml:"https"` // adds HSTS header

	Storage Storage `yaml:"storage"`
}

type Storage struct {
	Driver string `yaml:"driver" validate:"oneof=memory postgres sqlite gcs local"`

	Pg         Pg     `yaml:"pg"`
	SqlitePath string `yaml:"sqlite_path" validate:"required_if=Driver sqlite"`
	Bucket     string `yaml:"bucket" validate:"required_if=Driver gcs"`
	LocalPath  string `yaml:"local_path" validate:"required_if=Driver local"`

	RetryAttempts uint          `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
}

type Pg struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	User    string `yaml:"user"`
	Dbname  string `yaml:"dbname"`
	SSLMode string `yaml:"sslmode"`
}

type Private struct {
	PgPassword         string `yaml:"pg_password"`
	GCSCredentialsFile string `yaml:"gcs_credentials_file"`
}

func defaultPublic() Public {
	return Public{
		HttpPort:          8080,
		LogLevel:          "info",
		ThreadsPerBoard:   10,
		RepliesPerPreview: 3,
		MaxTextLength:     10_000,
		ThreadGCInterval:  time.Minute,
		AllowedOrigins:    []string{"*"},
		Storage: Storage{
			Driver:        DriverMemory,
			Pg:            Pg{Host: "localhost", Port: 5432, SSLMode: "disable"},
			RetryAttempts: 10,
			RetryDelay:    50 * time.Millisecond,
		},
	}
}

func Default() *Config {
	return &Config{Public: defaultPublic()}
}

// Load reads public.yaml (required) and private.yaml (optional) from configFolder,
// applies the PORT env override and validates the result.
func Load(configFolder string) (*Config, error) {
	public := defaultPublic()
	if err := loadPath(path.Join(configFolder, "public.yaml"), &public); err != nil {
		return nil, err
	}

	var private Private
	privatePath := path.Join(configFolder, "private.yaml")
	if _, err := os.Stat(privatePath); err == nil {
		if err := loadPath(privatePath, &private); err != nil {
			return nil, err
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		public.HttpPort = p
	}

	cfg := &Config{public, private}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MustLoad(configFolder string) *Config {
	cfg, err := Load(configFolder)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c.Public); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func loadPath(configPath string, output interface{}) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist: %s", configPath)
	}
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("can't read config file %s: %w", configPath, err)
	}

	if err = yaml.UnmarshalStrict(configFile, output); err != nil {
		return fmt.Errorf("can't unmarshal config file %s: %w", configPath, err)
	}
	return nil
}

// PgConnString builds a lib/pq connection string.
func (c *Config) PgConnString() string {
	pg := c.Public.Storage.Pg
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		pg.Host, pg.Port, pg.User, c.Private.PgPassword, pg.Dbname, pg.SSLMode)
}
