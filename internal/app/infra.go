package app

import (
	"context"

	"strap/internal/config"
	"strap/internal/logger"
	"strap/internal/redis"
	"strap/internal/session"
)

type Infra struct {
	Sessions session.Store
	Redis    *redis.Client
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	cookieOpts := session.CookieOptions{
		Secure: cfg.CookieSecure,
	}
	secret := []byte(cfg.SessionSecret)

	if cfg.SessionStore != config.SessionStoreRedis {
		logger.Info("session store ready", map[string]any{
			"store": config.SessionStoreCookie,
		})
		return &Infra{
			Sessions: session.NewCookieStore(secret, cookieOpts),
		}, nil
	}

	redisClient, err := redis.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, err
	}

	logger.Info("session store ready", map[string]any{
		"store": config.SessionStoreRedis,
		"addr":  cfg.RedisAddr,
		"ttl":   cfg.SessionTTL.String(),
	})

	return &Infra{
		Sessions: session.NewRedisStore(redisClient.Client, secret, cfg.SessionTTL, cookieOpts),
		Redis:    redisClient,
	}, nil
}

func (i *Infra) Close() error {
	if i.Redis != nil {
		return i.Redis.Close()
	}
	return nil
}
