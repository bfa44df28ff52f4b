package config

import "fmt"

// StoreConfig exposes connection settings for the two external stores: the
// ephemeral session store (redis) and the relational user store (postgres).
type StoreConfig interface {
	GetRedisAddr() string
	GetPostgresURL() string
}

type Stores struct{}

var _ StoreConfig = Stores{}

func (Stores) GetRedisAddr() string {
	host := GetEnv("REDIS_HOST", "localhost")
	port := GetEnv("REDIS_PORT", "6379")
	return fmt.Sprintf("%s:%s", host, port)
}

func (Stores) GetPostgresURL() string {
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%s/%s?sslmode=%s",
		GetEnv("POSTGRES_USER", "postgres"),
		GetEnv("POSTGRES_PASSWORD", ""),
		GetEnv("POSTGRES_HOST", "localhost"),
		GetEnv("POSTGRES_PORT", "5432"),
		GetEnv("POSTGRES_DBNAME", "evault"),
		GetEnv("POSTGRES_SSL", "disable"),
	)
}
