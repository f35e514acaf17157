// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package provider

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/featureform/historical/fferr"
)

func TestBlobSinkRoundTrip(t *testing.T) {
	for _, name := range []string{"result.parquet", "result.arrow"} {
		t.Run(name, func(t *testing.T) {
			locator := "file://" + filepath.Join(t.TempDir(), "out", name)
			sink, err := NewBlobSink(locator, nil)
			require.NoError(t, err)
			require.NoError(t, sink.Write(context.Background(), driverStatsTable(t)))

			table, err := NewBlobSource(StaticCredentials{}).Read(context.Background(), SourceDescriptor{Locator: locator}, driverStatsSchema)
			require.NoError(t, err)
			assert.Equal(t, driverStatsTable(t).Rows(), table.Rows())
		})
	}
}

func TestBlobSinkRejectsLocators(t *testing.T) {
	cases := []struct {
		name    string
		locator string
		errType string
	}{
		{"CSV", "file:///tmp/out.csv", fferr.INVALID_FILE_TYPE},
		{"Directory", "s3://bucket/out/", fferr.INVALID_ARGUMENT},
		{"SQL", "postgres://db/analytics/out", fferr.INVALID_ARGUMENT},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := NewBlobSink(c.locator, nil)
			assert.True(t, fferr.IsType(err, c.errType), err)
		})
	}
}

func TestPostgresSinkWrite(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sink := NewPostgresSink(db, "historical", "driver_stats")

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "historical"."driver_stats" ` +
		`("driver_id" BIGINT, "event_timestamp" TIMESTAMPTZ, "conv_rate" DOUBLE PRECISION, "city" TEXT)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	copyIn := mock.ExpectPrepare(regexp.QuoteMeta(
		pq.CopyInSchema("historical", "driver_stats", "driver_id", "event_timestamp", "conv_rate", "city")))
	copyIn.ExpectExec().WithArgs(int64(1), day(1), 0.5, "sf").WillReturnResult(sqlmock.NewResult(0, 1))
	copyIn.ExpectExec().WithArgs(int64(1), day(3), nil, "sf").WillReturnResult(sqlmock.NewResult(0, 1))
	copyIn.ExpectExec().WithArgs(int64(2), day(2), 0.75, nil).WillReturnResult(sqlmock.NewResult(0, 1))
	copyIn.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, sink.Write(context.Background(), driverStatsTable(t)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSinkRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sink := NewPostgresSink(db, "", "driver_stats")

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "driver_stats"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	copyIn := mock.ExpectPrepare(regexp.QuoteMeta(pq.CopyIn("driver_stats", "driver_id", "event_timestamp", "conv_rate", "city")))
	copyIn.ExpectExec().WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = sink.Write(context.Background(), driverStatsTable(t))
	assert.True(t, fferr.IsType(err, fferr.SOURCE_UNAVAILABLE), err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
