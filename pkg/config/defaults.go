package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "roombook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 1000

	DefaultRoomTypeLimits    = "PRIVATE=8,CONFERENCE=4,SHARED=3"
	DefaultLockWaitTimeout   = 5 * time.Second
	DefaultLockTTL           = 30 * time.Second
	DefaultLockRetryInterval = 20 * time.Millisecond

	DefaultEventsEnabled   = false
	DefaultCommandsEnabled = false

	DefaultCORSOrigins = "*"

	DefaultRedisDB = 0
)
