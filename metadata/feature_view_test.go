// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package metadata

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/featureform/historical/fferr"
	types "github.com/featureform/historical/fftypes"
	"github.com/featureform/historical/provider"
)

func driverHourlyStats() *FeatureView {
	return &FeatureView{
		Name:                   "driver_hourly_stats",
		JoinKeys:               []Field{{Name: "driver_id", Type: types.Int64}},
		Features:               []Field{{Name: "conv_rate", Type: types.Float32}, {Name: "avg_daily_trips", Type: types.Int64}},
		TimestampColumn:        "event_timestamp",
		CreatedTimestampColumn: "created",
		TTL:                    Duration(2 * 24 * time.Hour),
		Source:                 provider.SourceDescriptor{Locator: "file:///data/driver_stats.parquet"},
	}
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		input    string
		expected time.Duration
		isErr    bool
	}{
		{"", 0, false},
		{"0", 0, false},
		{"48h", 48 * time.Hour, false},
		{"2d", 48 * time.Hour, false},
		{"1w", 7 * 24 * time.Hour, false},
		{"86400", 24 * time.Hour, false},
		{"1.5h", 90 * time.Minute, false},
		{"xd", 0, true},
		{"soon", 0, true},
	}
	for _, c := range cases {
		t.Run(c.input, func(t *testing.T) {
			d, err := ParseDuration(c.input)
			if c.isErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.expected, d.Duration())
		})
	}
}

func TestFeatureViewDecoding(t *testing.T) {
	doc := `
name: driver_hourly_stats
join_keys:
  - name: driver_id
    type: int64
features:
  - name: conv_rate
    type: float
  - name: avg_daily_trips
    type: int64
timestamp_column: event_timestamp
created_timestamp_column: created
ttl: 2d
source:
  locator: file:///data/driver_stats.parquet
`
	var fromYAML FeatureView
	require.NoError(t, yaml.Unmarshal([]byte(doc), &fromYAML))
	assert.Equal(t, *driverHourlyStats(), fromYAML)

	b, err := json.Marshal(fromYAML)
	require.NoError(t, err)
	var fromJSON FeatureView
	require.NoError(t, json.Unmarshal(b, &fromJSON))
	assert.Equal(t, fromYAML, fromJSON)

	var numericTTL FeatureView
	require.NoError(t, json.Unmarshal([]byte(`{"ttl": 3600}`), &numericTTL))
	assert.Equal(t, time.Hour, numericTTL.TTL.Duration())

	var badType FeatureView
	assert.Error(t, yaml.Unmarshal([]byte("features:\n  - name: x\n    type: decimal\n"), &badType))
}

func TestFeatureViewValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(v *FeatureView)
	}{
		{"EmptyName", func(v *FeatureView) { v.Name = "" }},
		{"ColonInName", func(v *FeatureView) { v.Name = "a:b" }},
		{"NoJoinKeys", func(v *FeatureView) { v.JoinKeys = nil }},
		{"NoFeatures", func(v *FeatureView) { v.Features = nil }},
		{"NoTimestamp", func(v *FeatureView) { v.TimestampColumn = "" }},
		{"NegativeTTL", func(v *FeatureView) { v.TTL = Duration(-time.Hour) }},
		{"DuplicateFeature", func(v *FeatureView) { v.Features = append(v.Features, Field{Name: "conv_rate", Type: types.Float64}) }},
		{"FeatureShadowsKey", func(v *FeatureView) { v.Features[0].Name = "driver_id" }},
		{"TimestampShadowsFeature", func(v *FeatureView) { v.TimestampColumn = "conv_rate" }},
		{"UntypedKey", func(v *FeatureView) { v.JoinKeys[0].Type = types.Unknown }},
		{"NoLocator", func(v *FeatureView) { v.Source.Locator = "" }},
		{"BadLocator", func(v *FeatureView) { v.Source.Locator = "gopher://x" }},
	}
	require.NoError(t, driverHourlyStats().Validate())
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			view := driverHourlyStats()
			c.mutate(view)
			err := view.Validate()
			assert.True(t, fferr.IsType(err, fferr.INVALID_ARGUMENT), err)
		})
	}
}

func TestSourceSchema(t *testing.T) {
	view := driverHourlyStats()
	schema, err := view.SourceSchema([]string{"avg_daily_trips"})
	require.NoError(t, err)
	assert.Equal(t, []string{"driver_id", "event_timestamp", "created", "avg_daily_trips"}, schema.ColumnNames())
	col, _ := schema.Lookup("created")
	assert.Equal(t, types.Timestamp, col.Type)

	all, err := view.SourceSchema(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"driver_id", "event_timestamp", "created", "conv_rate", "avg_daily_trips"}, all.ColumnNames())

	_, err = view.SourceSchema([]string{"acc_rate"})
	assert.True(t, fferr.IsType(err, fferr.UNKNOWN_FEATURE_REFERENCE), err)
}
