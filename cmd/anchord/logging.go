package main

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/rtls/internal/monitoring"
)

// loggingConfig mirrors cmd/rtls-server's -L document: the logging
// plumbing is the teacher's package-level internal/monitoring.Logf hook,
// this file only decides how -L configures it.
type loggingConfig struct {
	Level      string `yaml:"level"`
	Timestamps *bool  `yaml:"timestamps"`
}

func configureLogging(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read logging config: %w", err)
	}
	var cfg loggingConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse logging config: %w", err)
	}

	if cfg.Level == "silent" {
		monitoring.SetLogger(nil)
		return nil
	}

	flags := log.LstdFlags
	if cfg.Timestamps != nil && !*cfg.Timestamps {
		flags = 0
	}
	logger := log.New(os.Stderr, "", flags)
	monitoring.SetLogger(logger.Printf)
	return nil
}
