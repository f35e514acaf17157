// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package redacted

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURL(t *testing.T) {
	tests := map[string]struct {
		input    string
		contains string
		excludes string
	}{
		"password":    {"postgres://user:hunter2@db:5432/features", "user:", "hunter2"},
		"no password": {"s3://bucket/trips/", "s3://bucket/trips/", String},
		"file":        {"file:///tmp/trips.parquet", "file:///tmp/trips.parquet", String},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := URL(tt.input)
			assert.True(t, strings.Contains(got, tt.contains), got)
			assert.False(t, strings.Contains(got, tt.excludes), got)
		})
	}
}
