package progress

// Config holds configuration for the progress store.
type Config struct {
	// Backend selects the store implementation (memory, redis).
	Backend string `mapstructure:"backend" default:"memory"`
	// RedisAddr is the address of the Redis server (host:port).
	RedisAddr string `mapstructure:"redis_addr" default:"localhost:6379"`
	// RedisPassword is the Redis password.
	RedisPassword string `mapstructure:"redis_password" default:""`
	// RedisDB is the Redis database number.
	RedisDB int `mapstructure:"redis_db" default:"0"`
	// KeyPrefix is prepended to every Redis key.
	KeyPrefix string `mapstructure:"key_prefix" default:"import:progress:"`
	// TTLSeconds is how long an entry survives after its last update.
	TTLSeconds int `mapstructure:"ttl_seconds" default:"3600"`
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)
