package config

import (
	"io/ioutil"
	"log"
	"os"
	"path/filepath"

	"sigs.k8s.io/yaml"
)

// Load loads the configuration from the directory.
func Load(path string) (*Configuration, error) {
	// If given the path to a config.yaml file, move back up a level.
	if filepath.Base(path) == ConfigurationName {
		path = filepath.Dir(path)
	}

	configContents, err := ioutil.ReadFile(filepath.Join(path, ConfigurationName))
	if err != nil {
		return nil, err
	}
	var out Configuration
	if err := yaml.UnmarshalStrict(configContents, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoadOrDefault loads the configuration from the directory, falling back
// to the built-in defaults if no configuration file exists there.
func LoadOrDefault(path string) (*Configuration, error) {
	out, err := Load(path)
	if os.IsNotExist(err) {
		return defaultConfig(), nil
	}
	return out, err
}

// Initialize writes the default configuration into the directory. It
// refuses to overwrite an existing configuration.
func Initialize(path string, logger *log.Logger) error {
	configPath := filepath.Join(path, ConfigurationName)
	if _, err := os.Stat(configPath); err == nil {
		logger.Printf("Configuration already exists at %s\n", configPath)
		return nil
	}

	if err := os.MkdirAll(path, 0700); err != nil {
		return err
	}

	logger.Printf("Writing default configuration to %s\n", configPath)
	return ioutil.WriteFile(configPath, defaultConfigData, 0600)
}
