package autosettings

import (
	"fmt"
	"time"

	"github.com/goliatone/go-autosettings/internal/codec"
)

// DefaultDebounceTime is the quiet period of debounced save listeners.
const DefaultDebounceTime = 250 * time.Millisecond

// Config controls Init.
type Config struct {
	// DebounceTime is how long debounced listeners wait after the last event
	// before saving. Zero selects DefaultDebounceTime.
	DebounceTime time.Duration
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{DebounceTime: DefaultDebounceTime}
}

func (c Config) debounceTime() time.Duration {
	if c.DebounceTime <= 0 {
		return DefaultDebounceTime
	}
	return c.DebounceTime
}

// LoadConfig reads a json, yaml or toml file. The quiet period is taken from
// "debounce" as a duration string ("300ms") or from "debounceTime" as a
// number of milliseconds.
func LoadConfig(path string) (Config, error) {
	doc, err := codec.DecodeFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("autosettings: load config: %w", err)
	}
	cfg := DefaultConfig()

	if raw, ok := doc["debounce"]; ok {
		text, isString := raw.(string)
		if !isString {
			return Config{}, fmt.Errorf("autosettings: load config: debounce must be a duration string, got %T", raw)
		}
		d, err := time.ParseDuration(text)
		if err != nil {
			return Config{}, fmt.Errorf("autosettings: load config: debounce: %w", err)
		}
		cfg.DebounceTime = d
		return cfg, nil
	}
	if raw, ok := doc["debounceTime"]; ok {
		ms, isNumber := raw.(float64)
		if !isNumber {
			return Config{}, fmt.Errorf("autosettings: load config: debounceTime must be a number, got %T", raw)
		}
		cfg.DebounceTime = time.Duration(ms * float64(time.Millisecond))
	}
	return cfg, nil
}
