package config

// Config aggregates every configuration concern of the gateway and agent.
type Config interface {
	EnvConfig
	CookieConfig
	BackendConfig
	BridgeConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
}

type CookieConfig interface {
	GetCookieName() string
	GetCookieMaxAge() int
}

type BackendConfig interface {
	GetBackendBaseURL() string
	GetBackendTimeout() int // seconds
}

type BridgeConfig interface {
	GetAgentAddr() string
	GetAgentStorePath() string
	GetBridgeOrigins() AllowedOrigins
}

type mainConfig struct {
	EnvVars
	Cookies
	Backend
	Bridge
}

func New() Config {
	loadDotEnv()
	return mainConfig{}
}
