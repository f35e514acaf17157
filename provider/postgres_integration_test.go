// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package provider

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/featureform/historical/fferr"
	types "github.com/featureform/historical/fftypes"
	"github.com/featureform/historical/helpers/tests"
)

func TestPostgresSourceAndSinkIntegration(t *testing.T) {
	tests.SkipUnlessDocker(t)
	pool, err := dockertest.NewPool("")
	require.NoError(t, err)
	resource, config := tests.InitPG(pool)
	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("could not purge postgres: %v", err)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	sink, err := OpenPostgresSink(ctx, config, "public", "driver_stats")
	require.NoError(t, err)
	defer sink.Close()
	require.NoError(t, sink.Write(ctx, driverStatsTable(t)))

	creds := StaticCredentials{"postgres": {
		"user":     config.User,
		"password": config.Password,
		"sslmode":  config.SSLMode,
	}}
	locator := fmt.Sprintf("postgres://%s:%s/%s/public.driver_stats", config.Host, config.Port, config.DBName)
	src := NewSQLSource(creds)
	table, err := src.Read(ctx, SourceDescriptor{Locator: locator}, driverStatsSchema)
	require.NoError(t, err)
	assert.ElementsMatch(t, driverStatsTable(t).Rows(), table.Rows())

	query := "SELECT driver_id, event_timestamp FROM public.driver_stats WHERE driver_id = 2"
	table, err = src.Read(ctx, SourceDescriptor{Locator: fmt.Sprintf("postgres://%s:%s/%s", config.Host, config.Port, config.DBName), Query: query},
		types.NewSchema(
			types.ColumnSchema{Name: "driver_id", Type: types.Int64},
			types.ColumnSchema{Name: "event_timestamp", Type: types.Timestamp},
		))
	require.NoError(t, err)
	assert.Equal(t, 1, table.NumRows())

	_, err = src.Read(ctx, SourceDescriptor{Locator: locator}, types.NewSchema(
		types.ColumnSchema{Name: "driver_id", Type: types.Int64},
		types.ColumnSchema{Name: "acc_rate", Type: types.Float64},
	))
	assert.True(t, fferr.IsType(err, fferr.SCHEMA_MISMATCH), err)
}
