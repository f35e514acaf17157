// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package provider

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/featureform/historical/fferr"
	"github.com/featureform/historical/filestore"
	types "github.com/featureform/historical/fftypes"
	"github.com/featureform/historical/helpers/postgres"
	"github.com/featureform/historical/logging"
	pa "github.com/featureform/historical/provider/arrow"
	pl "github.com/featureform/historical/provider/location"
)

// Sink is a destination for a materialized table. Durability and schema
// evolution are up to the implementation.
type Sink interface {
	Write(ctx context.Context, table *pa.Table) error
}

// BlobSink writes a table as a single parquet or arrow file.
type BlobSink struct {
	location    *pl.FileStoreLocation
	credentials CredentialProvider
	opener      BucketOpener
}

func NewBlobSink(locator string, creds CredentialProvider) (*BlobSink, error) {
	return NewBlobSinkWithOpener(locator, creds, DefaultBucketOpener)
}

func NewBlobSinkWithOpener(locator string, creds CredentialProvider, opener BucketOpener) (*BlobSink, error) {
	loc, err := pl.Parse(locator)
	if err != nil {
		return nil, err
	}
	fileLoc, ok := loc.(*pl.FileStoreLocation)
	if !ok {
		return nil, fferr.NewInvalidArgumentErrorf("sink locator %s is not a file locator", loc.Location())
	}
	fp := fileLoc.Filepath()
	if fp.IsDir() {
		return nil, fferr.NewInvalidArgumentErrorf("sink locator %s must name a file", fp.ToURI())
	}
	switch ext := fp.Ext(); ext {
	case filestore.Parquet, filestore.Arrow:
	default:
		return nil, fferr.NewInvalidFileTypeError(string(ext), nil)
	}
	if creds == nil {
		creds = StaticCredentials{}
	}
	return &BlobSink{location: fileLoc, credentials: creds, opener: opener}, nil
}

func (s *BlobSink) Write(ctx context.Context, table *pa.Table) error {
	fp := s.location.Filepath()
	logger := logging.GetLoggerFromContext(ctx).WithSource(fp.Scheme(), fp.ToURI())
	var buf bytes.Buffer
	switch fp.Ext() {
	case filestore.Parquet:
		if err := writeParquet(&buf, table); err != nil {
			return err
		}
	case filestore.Arrow:
		if err := pa.WriteIPC(&buf, table); err != nil {
			return err
		}
	}
	creds, err := s.credentials.Credentials(ctx, s.location)
	if err != nil {
		return err
	}
	s3Creds, err := creds.S3()
	if err != nil {
		return err
	}
	bucket, err := s.opener(ctx, fp, s3Creds)
	if err != nil {
		return fferr.NewSourceUnavailableError(fp.Scheme(), fp.ToURI(), err)
	}
	defer bucket.Close()
	if err := bucket.WriteAll(ctx, fp.Key(), buf.Bytes(), nil); err != nil {
		return asSourceUnavailable(fp.Scheme(), fp.ToURI(), err)
	}
	logger.Infow("Wrote table", "rows", table.NumRows(), "bytes", buf.Len())
	return nil
}

// PostgresSink creates the destination table when missing and bulk loads
// rows with COPY inside one transaction.
type PostgresSink struct {
	db     *sql.DB
	schema string
	table  string
}

// OpenPostgresSink connects with lib/pq, which provides the COPY protocol.
func OpenPostgresSink(ctx context.Context, config postgres.Config, schema, table string) (*PostgresSink, error) {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, fferr.NewSourceUnavailableError("postgres", config.Host, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, asSourceUnavailable("postgres", config.Host, err)
	}
	return NewPostgresSink(db, schema, table), nil
}

func NewPostgresSink(db *sql.DB, schema, table string) *PostgresSink {
	return &PostgresSink{db: db, schema: schema, table: table}
}

func (s *PostgresSink) Close() error {
	return s.db.Close()
}

func (s *PostgresSink) qualifiedTable() string {
	if s.schema == "" {
		return pq.QuoteIdentifier(s.table)
	}
	return pq.QuoteIdentifier(s.schema) + "." + pq.QuoteIdentifier(s.table)
}

func postgresColumnType(t types.ScalarType) (string, error) {
	switch t {
	case types.Int32:
		return "INTEGER", nil
	case types.Int, types.Int64:
		return "BIGINT", nil
	case types.Float32:
		return "REAL", nil
	case types.Float64:
		return "DOUBLE PRECISION", nil
	case types.String:
		return "TEXT", nil
	case types.Bool:
		return "BOOLEAN", nil
	case types.Timestamp:
		return "TIMESTAMPTZ", nil
	default:
		return "", fferr.NewInvalidArgumentErrorf("type %s has no postgres column type", t)
	}
}

func (s *PostgresSink) createTableQuery(schema types.Schema) (string, error) {
	columns := make([]string, len(schema.Fields))
	for i, field := range schema.Fields {
		colType, err := postgresColumnType(field.Type)
		if err != nil {
			return "", err
		}
		columns[i] = fmt.Sprintf("%s %s", pq.QuoteIdentifier(field.Name), colType)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", s.qualifiedTable(), strings.Join(columns, ", ")), nil
}

func (s *PostgresSink) copyStatement(schema types.Schema) string {
	if s.schema == "" {
		return pq.CopyIn(s.table, schema.ColumnNames()...)
	}
	return pq.CopyInSchema(s.schema, s.table, schema.ColumnNames()...)
}

func (s *PostgresSink) Write(ctx context.Context, table *pa.Table) (err error) {
	location := s.qualifiedTable()
	logger := logging.GetLoggerFromContext(ctx).WithSource("postgres", location)
	create, err := s.createTableQuery(table.Schema())
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, create); err != nil {
		return asSourceUnavailable("postgres", location, err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return asSourceUnavailable("postgres", location, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Errorw("Failed to roll back copy", "err", rbErr)
			}
		}
	}()
	stmt, err := tx.PrepareContext(ctx, s.copyStatement(table.Schema()))
	if err != nil {
		return asSourceUnavailable("postgres", location, err)
	}
	defer stmt.Close()
	row := make([]any, table.NumCols())
	for i := 0; i < table.NumRows(); i++ {
		for j := range row {
			row[j] = pa.ValueAt(table.ColumnAt(j), i)
		}
		if _, err = stmt.ExecContext(ctx, row...); err != nil {
			return asSourceUnavailable("postgres", location, err)
		}
	}
	if _, err = stmt.ExecContext(ctx); err != nil {
		return asSourceUnavailable("postgres", location, err)
	}
	if err = tx.Commit(); err != nil {
		return asSourceUnavailable("postgres", location, err)
	}
	logger.Infow("Wrote table", "rows", table.NumRows())
	return nil
}
