package gateway

import (
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// DefaultCallTimeout bounds a single tool round trip. Tool calls use this
// shorter timeout; whole replay runs are bounded separately by the
// validation runner's wall clock.
const DefaultCallTimeout = 30 * time.Second

// ServerConfig describes how to launch one tool server subprocess.
type ServerConfig struct {
	Command string            `mapstructure:"command"`
	Args    []string          `mapstructure:"args"`
	Env     map[string]string `mapstructure:"env"`
	Timeout time.Duration     `mapstructure:"timeout"`
}

// Config holds all configured tool servers, keyed by server id.
type Config struct {
	Servers map[string]ServerConfig `mapstructure:"servers"`
}

// ConfigFromViper decodes the tool_servers configuration subtree.
func ConfigFromViper() (Config, error) {
	cfg := Config{Servers: map[string]ServerConfig{}}
	raw := viper.GetStringMap("tool_servers")
	if len(raw) == 0 {
		return cfg, nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     &cfg,
	})
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to build config decoder")
	}
	if err := decoder.Decode(map[string]any{"servers": raw}); err != nil {
		return Config{}, errors.Wrap(err, "invalid tool_servers configuration")
	}
	for id, sc := range cfg.Servers {
		if sc.Command == "" {
			return Config{}, errors.Errorf("tool server %q: command is required", id)
		}
	}
	return cfg, nil
}
