package config

// Redis backs the distributed rate limiter on the auth endpoints.  If
// the connection cannot be established at startup the constructor
// returns nil and the limiter degrades to a pass-through.

import (
    "context"
    "crypto/tls"
    "time"

    "github.com/redis/go-redis/v9"
)

// NewRedisClient connects to the Redis instance named by cfg.  The
// returned client is nil when the server cannot be reached; callers
// treat a nil client as "no limiter".
func NewRedisClient(cfg Config) *redis.Client {
    var tlsConf *tls.Config
    if cfg.RedisTLS {
        tlsConf = &tls.Config{InsecureSkipVerify: true}
    }
    client := redis.NewClient(&redis.Options{
        Addr:      cfg.RedisAddr,
        Password:  cfg.RedisPassword,
        DB:        cfg.RedisDB,
        TLSConfig: tlsConf,
    })
    // Ping with a short timeout; nil on failure.
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}
