package config

type Config interface {
	EnvConfig
	GitHubConfig
	SessionConfig
	StoreConfig
	CorsConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	GitHub
	Session
	Stores
	Cors
}

func New() Config {
	return mainConfig{}
}
