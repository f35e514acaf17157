// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package metadata

import (
	"context"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/featureform/historical/fferr"
	"github.com/featureform/historical/helpers/etcd"
	"github.com/featureform/historical/helpers/tests"
)

func TestEtcdRegistry(t *testing.T) {
	tests.SkipUnlessDocker(t)
	pool, err := dockertest.NewPool("")
	require.NoError(t, err)
	resource, config := tests.InitETCD(pool)
	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("could not purge etcd: %v", err)
		}
	})
	client, err := etcd.NewClient(config)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	registry := NewEtcdRegistry(client, "/historical/views")
	require.NoError(t, registry.Put(ctx, driverHourlyStats()))
	require.NoError(t, registry.Put(ctx, customerProfile()))
	testRegistry(t, registry)

	require.NoError(t, registry.Delete(ctx, "customer_profile"))
	err = registry.Delete(ctx, "customer_profile")
	assert.True(t, fferr.IsType(err, fferr.FEATURE_VIEW_NOT_FOUND), err)

	invalid := driverHourlyStats()
	invalid.TimestampColumn = ""
	assert.Error(t, registry.Put(ctx, invalid))
}
