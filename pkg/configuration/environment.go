package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/eduatlas/eduatlas/pkg/logging"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"eduatlas"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

// RegistryAPIOptions configures the paginated school-registry source.
type RegistryAPIOptions struct {
	BaseURL   string `env:"REGISTRY_API_URL" envDefault:"https://api-rspo.men.gov.pl/api/placowki/"`
	StartPage int    `env:"REGISTRY_START_PAGE" envDefault:"1"`
	// PageLimit is the last page the fetcher will request; 0 means no limit.
	PageLimit   int `env:"REGISTRY_PAGE_LIMIT" envDefault:"0"`
	SegmentSize int `env:"REGISTRY_SEGMENT_SIZE" envDefault:"1000"`
}

func (r *RegistryAPIOptions) Validate() error {
	if r.BaseURL == "" {
		return fmt.Errorf("REGISTRY_API_URL must not be empty")
	}
	if r.StartPage < 1 {
		return fmt.Errorf("REGISTRY_START_PAGE must be >= 1, got %d", r.StartPage)
	}
	if r.PageLimit < 0 {
		return fmt.Errorf("REGISTRY_PAGE_LIMIT must be >= 0, got %d", r.PageLimit)
	}
	if r.SegmentSize < 1 {
		return fmt.Errorf("REGISTRY_SEGMENT_SIZE must be >= 1, got %d", r.SegmentSize)
	}
	return nil
}

type RetryOptions struct {
	InitialDelay time.Duration `env:"RETRY_INITIAL_DELAY" envDefault:"1s"`
	MaxDelay     time.Duration `env:"RETRY_MAX_DELAY" envDefault:"30s"`
	MaxRetries   int           `env:"RETRY_MAX_RETRIES" envDefault:"20"`
}

func (r *RetryOptions) Validate() error {
	if r.InitialDelay <= 0 {
		return fmt.Errorf("RETRY_INITIAL_DELAY must be positive, got %s", r.InitialDelay)
	}
	if r.MaxDelay < r.InitialDelay {
		return fmt.Errorf("RETRY_MAX_DELAY must be >= RETRY_INITIAL_DELAY")
	}
	if r.MaxRetries < 0 {
		return fmt.Errorf("RETRY_MAX_RETRIES must be >= 0, got %d", r.MaxRetries)
	}
	return nil
}

type ScoringOptions struct {
	WeightsPath string `env:"SCORING_WEIGHTS_PATH" envDefault:"config/weights.yaml"`
	BatchSize   int    `env:"SCORING_BATCH_SIZE" envDefault:"500"`
}

func (s *ScoringOptions) Validate() error {
	if s.BatchSize < 1 {
		return fmt.Errorf("SCORING_BATCH_SIZE must be >= 1, got %d", s.BatchSize)
	}
	return nil
}

type Configuration struct {
	Database    DatabaseOptions
	RegistryAPI RegistryAPIOptions
	Retry       RetryOptions
	Scoring     ScoringOptions

	MigrationsDir    string `env:"MIGRATIONS_DIR" envDefault:"migrations"`
	ServerPort       int    `env:"PORT" envDefault:"8000"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string `env:"-"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogPath          string `env:"LOG_PATH" envDefault:"./logs/eduatlas.log"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.RegistryAPI.Validate(); err != nil {
		return fmt.Errorf("registry API configuration error: %w", err)
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("retry configuration error: %w", err)
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring configuration error: %w", err)
	}

	// An empty LOG_PATH keeps logging on stderr only, with no file handle to
	// manage on shutdown.
	if c.LogPath == "" {
		c.logger = logging.ConsoleLogger(c.LogrusLogLevel())
	} else {
		f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
		if err != nil {
			return err
		}
		c.logFile = f
		c.logger = logger
	}

	c.Database.Opts = c.Database.ConnectionString()
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}

	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
