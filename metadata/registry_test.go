// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package metadata

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/featureform/historical/fferr"
	types "github.com/featureform/historical/fftypes"
	"github.com/featureform/historical/provider"
)

func customerProfile() *FeatureView {
	return &FeatureView{
		Name:            "customer_profile",
		JoinKeys:        []Field{{Name: "customer_id", Type: types.String}},
		Features:        []Field{{Name: "lifetime_value", Type: types.Float64}},
		TimestampColumn: "event_timestamp",
		Source: provider.SourceDescriptor{
			Locator: "postgres://db:5432/analytics",
			Query:   "SELECT * FROM customer_profile",
		},
	}
}

func testRegistry(t *testing.T, registry Registry) {
	t.Helper()
	ctx := context.Background()
	view, err := registry.GetFeatureView(ctx, "driver_hourly_stats")
	require.NoError(t, err)
	assert.Equal(t, driverHourlyStats(), view)

	_, err = registry.GetFeatureView(ctx, "missing")
	require.Error(t, err)
	typed := fferr.FromErr(err)
	assert.Equal(t, fferr.FEATURE_VIEW_NOT_FOUND, typed.GetType())

	views, err := registry.ListFeatureViews(ctx)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "customer_profile", views[0].Name)
	assert.Equal(t, "driver_hourly_stats", views[1].Name)

	byName, err := GetFeatureViews(ctx, registry, []string{"driver_hourly_stats", "customer_profile", "driver_hourly_stats"})
	require.NoError(t, err)
	assert.Len(t, byName, 2)

	_, err = GetFeatureViews(ctx, registry, []string{"driver_hourly_stats", "missing"})
	assert.True(t, fferr.IsType(err, fferr.FEATURE_VIEW_NOT_FOUND), err)
}

func TestMemoryRegistry(t *testing.T) {
	registry, err := NewMemoryRegistry(driverHourlyStats(), customerProfile())
	require.NoError(t, err)
	testRegistry(t, registry)

	invalid := driverHourlyStats()
	invalid.JoinKeys = nil
	assert.Error(t, registry.Register(invalid))
	_, err = NewMemoryRegistry(invalid)
	assert.Error(t, err)
}

const registryYAML = `
feature_views:
  - name: driver_hourly_stats
    join_keys:
      - {name: driver_id, type: int64}
    features:
      - {name: conv_rate, type: float32}
      - {name: avg_daily_trips, type: int64}
    timestamp_column: event_timestamp
    created_timestamp_column: created
    ttl: 48h
    source:
      locator: file:///data/driver_stats.parquet
  - name: customer_profile
    join_keys:
      - {name: customer_id, type: string}
    features:
      - {name: lifetime_value, type: double}
    timestamp_column: event_timestamp
    source:
      locator: postgres://db:5432/analytics
      query: SELECT * FROM customer_profile
`

func TestFileRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feature_views.yaml")
	require.NoError(t, os.WriteFile(path, []byte(registryYAML), 0o644))
	registry := NewFileRegistry(path)
	testRegistry(t, registry)

	// Edits are visible on the next lookup.
	require.NoError(t, os.WriteFile(path, []byte("feature_views: []\n"), 0o644))
	_, err := registry.GetFeatureView(context.Background(), "driver_hourly_stats")
	assert.True(t, fferr.IsType(err, fferr.FEATURE_VIEW_NOT_FOUND), err)
}

func TestFileRegistryErrors(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name     string
		contents string
		errType  string
	}{
		{"Malformed", "feature_views: [", fferr.INVALID_ARGUMENT},
		{"InvalidView", "feature_views:\n  - name: empty\n", fferr.INVALID_ARGUMENT},
		{"Duplicate", registryYAML + registryYAML[len("\nfeature_views:\n"):], fferr.INVALID_ARGUMENT},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := filepath.Join(dir, c.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(c.contents), 0o644))
			_, err := NewFileRegistry(path).ListFeatureViews(context.Background())
			assert.True(t, fferr.IsType(err, c.errType), err)
		})
	}
	_, err := NewFileRegistry(filepath.Join(dir, "absent.yaml")).ListFeatureViews(context.Background())
	assert.True(t, fferr.IsType(err, fferr.INTERNAL_ERROR), err)
}
