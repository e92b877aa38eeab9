package main

import (
	"fmt"
	"os"

	"github.com/wrench-sim/wrench/pkg/config"
)

// loadConfig reads path as YAML through pkg/config if given, otherwise
// returns the kernel defaults untouched.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Defaults(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return config.Load(raw)
}
