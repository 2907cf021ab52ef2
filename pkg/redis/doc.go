// Package redis connects to Redis and provides the remote cache tier.
//
// Connect parses a redis:// URL, pings the server and retries according to
// Config. Healthcheck turns a client into a probe for httpserver health
// endpoints. Tier implements cache.RemoteTier on top of any
// redis.UniversalClient.
//
// Configuration is described by Config, populated from the environment with
// github.com/caarlos0/env:
//
//	REDIS_URL=redis://localhost:6379/0
//	REDIS_RETRY_ATTEMPTS=3
//	REDIS_RETRY_INTERVAL=5s
//	REDIS_CONNECT_TIMEOUT=30s
//	REDIS_CACHE_PREFIX=crmb:cache:
//	REDIS_SCAN_BATCH_SIZE=1000
//
// # Usage
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	svc, err := cache.New(cacheCfg,
//		cache.WithRemoteTier(redis.NewTierWithConfig(client, cfg)),
//	)
//
// Keys are stored under Config.KeyPrefix. Clear deletes only keys under that
// prefix, walking them with SCAN so the server is never blocked. Missing keys
// are reported as misses; every other failure wraps ErrCommandFailed.
package redis
