// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/featureform/historical/fferr"
	"github.com/featureform/historical/logging/redacted"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, FileRegistry, cfg.Registry)
	assert.Equal(t, 8, cfg.MaxConcurrentReads)
	assert.Equal(t, runtime.GOMAXPROCS(0), cfg.JoinWorkers)
	assert.Equal(t, DefaultEntityTimestampColumn, cfg.EntityTimestampColumn)
	assert.Equal(t, 5*time.Minute, cfg.RequestTimeout)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("REGISTRY_BACKEND", "etcd")
	t.Setenv("MAX_CONCURRENT_READS", "2")
	t.Setenv("JOIN_WORKERS", "3")
	t.Setenv("ENTITY_TIMESTAMP_COLUMN", "ts")
	t.Setenv("ETCD_PASSWORD", "secret")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, EtcdRegistry, cfg.Registry)
	assert.Equal(t, 2, cfg.MaxConcurrentReads)
	assert.Equal(t, 3, cfg.JoinWorkers)
	assert.Equal(t, "ts", cfg.EntityTimestampColumn)
	etcdCfg := cfg.Redacted()["Etcd"].(map[string]any)
	assert.Equal(t, redacted.String, etcdCfg["Password"])
}

func TestValidate(t *testing.T) {
	tests := map[string]func(t *testing.T){
		"UnknownRegistry":  func(t *testing.T) { t.Setenv("REGISTRY_BACKEND", "zookeeper") },
		"ZeroReads":        func(t *testing.T) { t.Setenv("MAX_CONCURRENT_READS", "0") },
		"NegativeWorkers":  func(t *testing.T) { t.Setenv("JOIN_WORKERS", "-1") },
		"EmptyTimestamp":   func(t *testing.T) { t.Setenv("ENTITY_TIMESTAMP_COLUMN", "") },
		"EmptyRegistryDir": func(t *testing.T) { t.Setenv("REGISTRY_PATH", "") },
	}
	for name, setup := range tests {
		t.Run(name, func(t *testing.T) {
			setup(t)
			_, err := FromEnv()
			require.Error(t, err)
			assert.True(t, fferr.IsType(err, fferr.INVALID_CONFIG))
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SERVING_PORT=9999\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("SERVING_PORT") })

	cfg, err := Load(path, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.Port)
}
