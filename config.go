package bridge

import (
	"github.com/JeremyLoy/config"
	"github.com/rs/zerolog/log"
)

type Config struct {
	BridgeLogLevel      string
	BridgeStatsdAddress string
	BridgeStatsdTags    string
	BridgeRelayAddress  string
}

// GetConfig loads the bridge configuration from the environment on top of
// defaults.
func GetConfig() Config {
	cfg := Config{
		BridgeLogLevel:      "info",
		BridgeStatsdAddress: "",
		BridgeStatsdTags:    "",
		BridgeRelayAddress:  "",
	}
	if err := config.FromEnv().To(&cfg); err != nil {
		log.Logger.Warn().Err(err).Msg("failed to load config from environment, using defaults")
	}
	return cfg
}
