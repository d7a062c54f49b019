package config // package config loads application configuration from environment variables

import (
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/sirupsen/logrus"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; see Load for the names and defaults.
type Config struct {
    Env          string        // application environment (dev, test, prod)
    Port         string        // HTTP port to listen on
    StoreDriver  string        // "mysql" or "memory"
    DBUser       string        // database username
    DBPass       string        // database password (optional)
    DBHost       string        // database host address
    DBPort       string        // database port number
    DBName       string        // database name
    AutoMigrate  bool          // create tables at startup
    JWTSecret    string        // secret used to sign JWTs
    AccessTTLMin int           // access token time-to-live in minutes
    BcryptCost   int           // bcrypt cost for password hashing
    BusinessTZ   string        // zone in which "today" is evaluated
    MaxRetries   int           // reservation retries after a lock conflict
    SweepEvery   time.Duration // completion sweep period of the worker
    RabbitURL    string        // broker for order events; empty disables publishing
    RabbitDial   time.Duration // connect and handshake timeout per published event
    LogLevel     string        // logrus level name

    SeedAdminEmail    string // created as an approved admin at startup when set
    SeedAdminPassword string
}

// Load reads configuration values from environment variables and returns a
// Config.  JWT_SECRET is required; everything else has a default.
func Load() Config {
    return Config{
        Env:          envStr("APP_ENV", "dev"),
        Port:         envStr("APP_PORT", "8080"),
        StoreDriver:  strings.ToLower(envStr("STORE_DRIVER", "mysql")),
        DBUser:       envStr("DB_USER", "root"),
        DBPass:       os.Getenv("DB_PASS"),
        DBHost:       envStr("DB_HOST", "127.0.0.1"),
        DBPort:       envStr("DB_PORT", "3306"),
        DBName:       envStr("DB_NAME", "tour_marketplace"),
        AutoMigrate:  envBool("DB_AUTO_MIGRATE", false),
        JWTSecret:    must("JWT_SECRET"),
        AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 60),
        BcryptCost:   envInt("BCRYPT_COST", 10),
        BusinessTZ:   envStr("BUSINESS_TZ", "UTC"),
        MaxRetries:   envInt("RESERVE_MAX_RETRIES", 3),
        SweepEvery:   envDur("SWEEP_INTERVAL", time.Hour),
        RabbitURL:    firstEnv("RABBITMQ_URL", "AMQP_URL"),
        RabbitDial:   envDur("RABBITMQ_DIAL_TIMEOUT", 2*time.Second),
        LogLevel:     envStr("LOG_LEVEL", "info"),

        SeedAdminEmail:    os.Getenv("SEED_ADMIN_EMAIL"),
        SeedAdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"),
    }
}

// Location resolves BusinessTZ, falling back to UTC for unknown names.
func (c Config) Location() *time.Location {
    loc, err := time.LoadLocation(c.BusinessTZ)
    if err != nil {
        logrus.WithError(err).WithField("tz", c.BusinessTZ).Warn("unknown BUSINESS_TZ, using UTC")
        return time.UTC
    }
    return loc
}

// NewLogger builds the process logger: text in dev, JSON elsewhere.
func (c Config) NewLogger() *logrus.Logger {
    log := logrus.New()
    if c.Env == "dev" {
        log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
    } else {
        log.SetFormatter(&logrus.JSONFormatter{})
    }
    lvl, err := logrus.ParseLevel(c.LogLevel)
    if err != nil {
        lvl = logrus.InfoLevel
    }
    log.SetLevel(lvl)
    return log
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        logrus.Fatalf("missing required env var: %s", key)
    }
    return v
}

func firstEnv(keys ...string) string {
    for _, k := range keys {
        if v := os.Getenv(k); v != "" {
            return v
        }
    }
    return ""
}

func envStr(k, d string) string {
    if v := os.Getenv(k); v != "" {
        return v
    }
    return d
}

func envBool(k string, d bool) bool {
    switch strings.ToLower(os.Getenv(k)) {
    case "1", "true", "yes", "on":
        return true
    case "0", "false", "no", "off":
        return false
    }
    return d
}

func envInt(k string, d int) int {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if n, err := strconv.Atoi(v); err == nil {
        return n
    }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if dur, err := time.ParseDuration(v); err == nil {
        return dur
    }
    return d
}
