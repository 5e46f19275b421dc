package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// InputConfig defines a saved MIDI input preference
type InputConfig struct {
	PortName    string `json:"portName"`
	AutoConnect bool   `json:"autoConnect"`
	Channel     int    `json:"channel,omitempty"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	Preset      string `json:"preset,omitempty"`
	PalettePath string `json:"palettePath,omitempty"`
}

// StoreConfig points at the take library
type StoreConfig struct {
	TakesDir   string `json:"takesDir,omitempty"`
	BaseURL    string `json:"baseURL,omitempty"`    // remote take server, optional
	RemoteTake string `json:"remoteTake,omitempty"` // take ID fetched when the local library is empty
}

// Config is the main configuration structure
type Config struct {
	Inputs []InputConfig `json:"inputs,omitempty"`
	UI     UIConfig      `json:"ui,omitempty"`
	Store  StoreConfig   `json:"store,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	takes := "takes"
	if err == nil {
		takes = filepath.Join(home, ".local", "share", "keystage", "takes")
	}
	return &Config{
		UI: UIConfig{
			Preset: "grand",
		},
		Store: StoreConfig{
			TakesDir: takes,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "keystage"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// FindInput finds an input config by port name
func (c *Config) FindInput(portName string) *InputConfig {
	for i := range c.Inputs {
		if c.Inputs[i].PortName == portName {
			return &c.Inputs[i]
		}
	}
	return nil
}

// AddInput adds or updates an input config
func (c *Config) AddInput(in InputConfig) {
	for i := range c.Inputs {
		if c.Inputs[i].PortName == in.PortName {
			c.Inputs[i] = in
			return
		}
	}
	c.Inputs = append(c.Inputs, in)
}
