package config

import (
	"os"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/nimasrn/academy-ledger/pkg/logger"
	"github.com/nimasrn/academy-ledger/pkg/pg"
	"github.com/pkg/errors"
)

var config *Config

// Config holds every setting of the binaries. Nothing else reads the
// environment directly.
type Config struct {
	AppEnv              string `env:"APP_ENV,default=dev"`
	AppName             string `env:"APP_NAME,default=academy_ledger"`
	AppDebugMetricsAddr string `env:"APP_DEBUG_METRIC_ADDR"`
	AppDebugMetricsURI  string `env:"APP_DEBUG_METRIC_URI,default=/metrics"`
	LogLevel            string `env:"LOG_LEVEL,default=info"`

	HttpListenAddr     string        `env:"HTTP_LISTEN_ADDR,default=:8080"`
	HttpRequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT,default=0s"`
	HttpCORSOrigins    []string      `env:"HTTP_CORS_ORIGINS"`

	AuthJWTSecret string        `env:"AUTH_JWT_SECRET"`
	AuthJWTIssuer string        `env:"AUTH_JWT_ISSUER,default=academy-ledger"`
	AuthTokenTTL  time.Duration `env:"AUTH_TOKEN_TTL,default=12h"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT,default=5432"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT,default=5432"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	MigrationsDir string `env:"MIGRATIONS_DIR,default=migrations"`

	RedisAddr               string `env:"REDIS_ADDR,default=localhost:6379"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX,default=academy:"`

	PromNamespace string `env:"PROM_NAMESPACE,default=academy"`

	QueueName              string        `env:"QUEUE_NAME,default=replica"`
	QueueConsumerGroup     string        `env:"QUEUE_CONSUMER_GROUP,default=replica-writers"`
	QueueConsumerName      string        `env:"QUEUE_CONSUMER_NAME"`
	QueueMaxRetries        int           `env:"QUEUE_MAX_RETRIES,default=5"`
	QueueVisibilityTimeout time.Duration `env:"QUEUE_VISIBILITY_TIMEOUT,default=30s"`
	QueuePollInterval      time.Duration `env:"QUEUE_POLL_INTERVAL,default=500ms"`
	QueueBatchSize         int64         `env:"QUEUE_BATCH_SIZE,default=50"`
	QueueMaxLen            int64         `env:"QUEUE_MAX_LEN,default=100000"`
	QueueEnableDLQ         bool          `env:"QUEUE_ENABLE_DLQ,default=true"`

	ProcessorWorkers    int           `env:"PROCESSOR_WORKERS,default=4"`
	OutboxRelaySchedule string        `env:"OUTBOX_RELAY_SCHEDULE,default=@every 30s"`
	OutboxRelayMinAge   time.Duration `env:"OUTBOX_RELAY_MIN_AGE,default=10s"`
	OutboxRelayBatch    int           `env:"OUTBOX_RELAY_BATCH,default=200"`

	// firestore | http | none
	ReplicaSink               string        `env:"REPLICA_SINK,default=none"`
	FirebaseProjectID         string        `env:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsFile   string        `env:"FIREBASE_CREDENTIALS_FILE"`
	FirebaseCredentialsJSON   string        `env:"FIREBASE_CREDENTIALS_JSON"`
	DocstorePrimaryURL        string        `env:"DOCSTORE_PRIMARY_URL"`
	DocstoreSecondaryURL      string        `env:"DOCSTORE_SECONDARY_URL"`
	DocstoreTimeout           time.Duration `env:"DOCSTORE_TIMEOUT,default=5s"`
	DocstoreListenAddr        string        `env:"DOCSTORE_LISTEN_ADDR,default=:8090"`
	DocstoreFailureRate       float64       `env:"DOCSTORE_FAILURE_RATE"`
	DocstoreCircuitThreshold  int           `env:"DOCSTORE_CIRCUIT_THRESHOLD,default=5"`
	DocstoreCircuitResetAfter time.Duration `env:"DOCSTORE_CIRCUIT_RESET_AFTER,default=30s"`

	DefaultCurrencyCode string `env:"DEFAULT_CURRENCY_CODE,default=USD"`
	// printed on receipts and summaries
	OrgName string `env:"ORG_NAME,default=Academy"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return errors.Wrapf(err, "failed to load configuration file %s", path)
		}
	}

	if _, err := env.UnmarshalFromEnviron(c); err != nil {
		return errors.Wrap(err, "failed to map env variables to configuration")
	}
	if c.QueueConsumerName == "" {
		host, _ := os.Hostname()
		c.QueueConsumerName = "consumer-" + host
	}

	logger.SetLevel(c.LogLevel)
	config = c
	return nil
}

// Set replaces the loaded configuration. Used by tests.
func Set(c *Config) {
	config = c
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}

func (c *Config) PostgresRead() pg.Config {
	return pg.Config{
		User:     c.PostgresReadUser,
		Host:     c.PostgresReadHost,
		Port:     c.PostgresReadPort,
		Password: c.PostgresReadPassword,
		Database: c.PostgresReadDatabase,
	}
}

func (c *Config) PostgresWrite() pg.Config {
	return pg.Config{
		User:     c.PostgresWriteUser,
		Host:     c.PostgresWriteHost,
		Port:     c.PostgresWritePort,
		Password: c.PostgresWritePassword,
		Database: c.PostgresWriteDatabase,
	}
}

func (c *Config) IsDev() bool {
	return c.AppEnv == "dev"
}

// ArgEnvPath returns the value of a --env=path argument, if the file exists.
func ArgEnvPath(args []string) string {
	for _, v := range args {
		if !strings.HasPrefix(v, "--env=") {
			continue
		}
		p := strings.TrimPrefix(v, "--env=")
		if _, err := os.Stat(p); err != nil {
			logger.Error("failed to open the passed env file", "path", p, "error", err)
			return ""
		}
		return p
	}
	return ""
}
