package config // package config loads application configuration from environment variables

import (
    "log"
    "os"
    "strconv"
    "time"

    "github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Secrets and database coordinates are
// required; token lifetimes and sweep knobs default to the documented
// values when unset.
type Config struct {
    Env  string // application environment (e.g. "dev", "prod")
    Port string // HTTP port to listen on

    DBUser string // database username
    DBPass string // database password (optional)
    DBHost string // database host address
    DBPort string // database port number
    DBName string // database name

    DBMaxOpenConns    int           // connection pool ceiling (default 25)
    DBMaxIdleConns    int           // idle connections kept around (default 25)
    DBConnMaxLifetime time.Duration // recycle connections after this long (default 30m)

    RedisAddr     string // host:port of the rate-limiter Redis
    RedisPassword string // optional password
    RedisDB       int    // database number (default 0)
    RedisTLS      bool   // dial with TLS when true

    AccessSecret  string        // secret used to sign access tokens
    RefreshSecret string        // distinct secret used to sign refresh tokens
    AccessTTL     time.Duration // access token lifetime (default 15m)
    RefreshTTL    time.Duration // refresh token lifetime (default 168h)
    BcryptCost    int           // bcrypt cost for password hashing

    SweepInterval     time.Duration // recurring sweep period (default 24h)
    SweepInitialDelay time.Duration // delay before the first scheduled sweep
    SweepMaxAge       time.Duration // age threshold for the age-based sweep (default 720h)
    SweepQueueDepth   int           // buffered per-request sweep dispatch queue
}

// Load reads a .env file when present, then builds a Config from the
// environment.  Missing required variables cause the process to exit
// with a fatal log message.
func Load() Config {
    _ = godotenv.Load()

    return Config{
        Env:  must("APP_ENV"),
        Port: must("APP_PORT"),

        DBUser: must("DB_USER"),
        DBPass: os.Getenv("DB_PASS"), // empty allowed
        DBHost: must("DB_HOST"),
        DBPort: must("DB_PORT"),
        DBName: must("DB_NAME"),

        DBMaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 25),
        DBMaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 25),
        DBConnMaxLifetime: envDur("DB_CONN_MAX_LIFETIME", 30*time.Minute),

        RedisAddr:     redisAddr(),
        RedisPassword: os.Getenv("REDIS_PASSWORD"),
        RedisDB:       envInt("REDIS_DB", 0),
        RedisTLS:      envBool("REDIS_TLS", false),

        AccessSecret:  must("ACCESS_TOKEN_SECRET"),
        RefreshSecret: must("REFRESH_TOKEN_SECRET"),
        AccessTTL:     envDur("ACCESS_TOKEN_TTL", 15*time.Minute),
        RefreshTTL:    envDur("REFRESH_TOKEN_TTL", 7*24*time.Hour),
        BcryptCost:    envInt("BCRYPT_COST", 12),

        SweepInterval:     envDur("SWEEP_INTERVAL", 24*time.Hour),
        SweepInitialDelay: envDur("SWEEP_INITIAL_DELAY", time.Minute),
        SweepMaxAge:       envDur("SWEEP_MAX_AGE", 30*24*time.Hour),
        SweepQueueDepth:   envInt("SWEEP_QUEUE_DEPTH", 64),
    }
}

// redisAddr resolves the Redis address.  REDIS_HOST plus REDIS_PORT
// beat the REDIS_ADDR shorthand when both are set.
func redisAddr() string {
    if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
        return host + ":" + port
    }
    return envStr("REDIS_ADDR", "localhost:6379")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

func envStr(k, d string) string {
    if v := os.Getenv(k); v != "" {
        return v
    }
    return d
}

func envBool(k string, d bool) bool {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    switch v {
    case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
        return true
    case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
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
