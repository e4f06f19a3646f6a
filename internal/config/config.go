package config

type Config interface {
	EnvConfig
	PinterestConfig
	StoreConfig
}

type EnvConfig interface {
	GetAppName() string
	GetDataFolder() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Pinterest
	Store
}

func New() Config {
	return mainConfig{}
}
