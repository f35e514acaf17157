// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package config

import (
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"

	"github.com/featureform/historical/fferr"
	"github.com/featureform/historical/helpers"
	"github.com/featureform/historical/helpers/etcd"
)

type RegistryBackend string

const (
	FileRegistry   RegistryBackend = "file"
	EtcdRegistry   RegistryBackend = "etcd"
	MemoryRegistry RegistryBackend = "memory"
)

const DefaultEntityTimestampColumn = "event_timestamp"

type Config struct {
	Host        string
	Port        string
	MetricsPort string
	LogLevel    string
	Production  bool

	Registry       RegistryBackend
	RegistryPath   string
	RegistryPrefix string
	Etcd           etcd.Config

	MaxConcurrentReads    int
	JoinWorkers           int
	EntityTimestampColumn string
	RequestTimeout        time.Duration
}

func (c Config) Redacted() map[string]any {
	return map[string]any{
		"Host":                  c.Host,
		"Port":                  c.Port,
		"MetricsPort":           c.MetricsPort,
		"Registry":              c.Registry,
		"RegistryPath":          c.RegistryPath,
		"RegistryPrefix":        c.RegistryPrefix,
		"Etcd":                  c.Etcd.Redacted(),
		"MaxConcurrentReads":    c.MaxConcurrentReads,
		"JoinWorkers":           c.JoinWorkers,
		"EntityTimestampColumn": c.EntityTimestampColumn,
		"RequestTimeout":        c.RequestTimeout.String(),
	}
}

// Load reads the given .env files, if they exist, and then builds a Config
// from the environment.
func Load(envFiles ...string) (*Config, error) {
	for _, file := range envFiles {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return nil, fferr.NewInvalidConfigErrorf("could not load %s: %v", file, err)
		}
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		Host:           helpers.GetEnv("SERVING_HOST", "0.0.0.0"),
		Port:           helpers.GetEnv("SERVING_PORT", "8080"),
		MetricsPort:    helpers.GetEnv("METRICS_PORT", "9090"),
		LogLevel:       helpers.GetEnv("LOG_LEVEL", "info"),
		Production:     helpers.GetEnvBool("PRODUCTION_LOGGING", false),
		Registry:       RegistryBackend(helpers.GetEnv("REGISTRY_BACKEND", string(FileRegistry))),
		RegistryPath:   helpers.GetEnv("REGISTRY_PATH", "feature_views.yaml"),
		RegistryPrefix: helpers.GetEnv("REGISTRY_PREFIX", "/featureform/historical/views/"),
		Etcd: etcd.Config{
			Host:        helpers.GetEnv("ETCD_HOST", "localhost"),
			Port:        helpers.GetEnv("ETCD_PORT", "2379"),
			Username:    helpers.GetEnv("ETCD_USERNAME", ""),
			Password:    helpers.GetEnv("ETCD_PASSWORD", ""),
			DialTimeout: helpers.GetEnvDuration("ETCD_DIAL_TIMEOUT", 5*time.Second),
		},
		MaxConcurrentReads:    helpers.GetEnvInt("MAX_CONCURRENT_READS", 8),
		JoinWorkers:           helpers.GetEnvInt("JOIN_WORKERS", runtime.GOMAXPROCS(0)),
		EntityTimestampColumn: helpers.GetEnv("ENTITY_TIMESTAMP_COLUMN", DefaultEntityTimestampColumn),
		RequestTimeout:        helpers.GetEnvDuration("REQUEST_TIMEOUT", 5*time.Minute),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Registry {
	case FileRegistry:
		if c.RegistryPath == "" {
			return fferr.NewMissingEnvError("REGISTRY_PATH")
		}
	case EtcdRegistry, MemoryRegistry:
	default:
		return fferr.NewInvalidEnvError("REGISTRY_BACKEND", c.Registry, []RegistryBackend{FileRegistry, EtcdRegistry, MemoryRegistry})
	}
	if c.MaxConcurrentReads < 1 {
		return fferr.NewInvalidEnvError("MAX_CONCURRENT_READS", c.MaxConcurrentReads, "a positive integer")
	}
	if c.JoinWorkers < 1 {
		return fferr.NewInvalidEnvError("JOIN_WORKERS", c.JoinWorkers, "a positive integer")
	}
	if c.EntityTimestampColumn == "" {
		return fferr.NewMissingEnvError("ENTITY_TIMESTAMP_COLUMN")
	}
	if c.RequestTimeout < 0 {
		return fferr.NewInvalidEnvError("REQUEST_TIMEOUT", c.RequestTimeout, "a non-negative duration")
	}
	return nil
}
