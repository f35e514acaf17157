// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package provider

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/go-sql-driver/mysql"
	sf "github.com/snowflakedb/gosnowflake"

	"github.com/featureform/historical/fferr"
	types "github.com/featureform/historical/fftypes"
	"github.com/featureform/historical/helpers/postgres"
	"github.com/featureform/historical/logging"
	pa "github.com/featureform/historical/provider/arrow"
	pl "github.com/featureform/historical/provider/location"
)

// DBOpener opens a connection for a SQL location. The caller closes it.
type DBOpener func(ctx context.Context, loc *pl.SQLLocation, creds SQLCredentials) (*sql.DB, error)

func DefaultDBOpener(ctx context.Context, loc *pl.SQLLocation, creds SQLCredentials) (*sql.DB, error) {
	switch loc.Engine() {
	case pl.Postgres:
		return postgres.OpenDB(ctx, postgres.Config{
			Host:     creds.Host,
			Port:     withDefaultPort(creds.Port, "5432"),
			User:     creds.User,
			Password: creds.Password,
			DBName:   loc.GetDatabase(),
			SSLMode:  creds.SSLMode,
		})
	case pl.MySQL:
		cfg := mysql.NewConfig()
		cfg.User = creds.User
		cfg.Passwd = creds.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(creds.Host, withDefaultPort(creds.Port, "3306"))
		cfg.DBName = loc.GetDatabase()
		cfg.ParseTime = true
		return pingDB(ctx, "mysql", cfg.FormatDSN())
	case pl.ClickHouse:
		db := clickhouse.OpenDB(&clickhouse.Options{
			Addr: []string{net.JoinHostPort(creds.Host, withDefaultPort(creds.Port, "9000"))},
			Auth: clickhouse.Auth{
				Database: loc.GetDatabase(),
				Username: creds.User,
				Password: creds.Password,
			},
		})
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	case pl.Snowflake:
		dsn, err := sf.DSN(&sf.Config{
			Account:   creds.Account,
			User:      creds.User,
			Password:  creds.Password,
			Database:  loc.GetDatabase(),
			Schema:    loc.GetSchema(),
			Warehouse: creds.Warehouse,
			Role:      creds.Role,
		})
		if err != nil {
			return nil, err
		}
		return pingDB(ctx, "snowflake", dsn)
	default:
		return nil, fferr.NewInvalidArgumentErrorf("unsupported SQL engine %s", loc.Engine())
	}
}

func withDefaultPort(port, fallback string) string {
	if port == "" {
		return fallback
	}
	return port
}

func pingDB(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// quoteIdentifier quotes a single identifier in the engine's dialect.
func quoteIdentifier(engine pl.SQLEngine, ident string) string {
	switch engine {
	case pl.Postgres:
		return postgres.Sanitize(ident)
	case pl.MySQL, pl.ClickHouse:
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	default:
		return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
	}
}

// sourceRelation is the FROM clause target: the query as a derived table,
// or the locator's table.
func sourceRelation(loc *pl.SQLLocation, query string) (string, error) {
	if query != "" {
		return fmt.Sprintf("(%s) AS ff_src", strings.TrimRight(strings.TrimSpace(query), ";")), nil
	}
	if loc.GetTable() == "" {
		return "", fferr.NewInvalidArgumentErrorf("SQL locator %s names no table and no query was given", loc.Location())
	}
	if loc.Engine() == pl.Postgres {
		return postgres.SanitizeLocation(loc), nil
	}
	if loc.GetSchema() != "" {
		return quoteIdentifier(loc.Engine(), loc.GetSchema()) + "." + quoteIdentifier(loc.Engine(), loc.GetTable()), nil
	}
	return quoteIdentifier(loc.Engine(), loc.GetTable()), nil
}

// SQLSource reads from relational databases. It inspects the relation with
// a zero-row query first so that missing columns are reported as a schema
// mismatch instead of a driver error.
type SQLSource struct {
	credentials CredentialProvider
	opener      DBOpener
}

func NewSQLSource(creds CredentialProvider) *SQLSource {
	return &SQLSource{credentials: creds, opener: DefaultDBOpener}
}

func NewSQLSourceWithOpener(creds CredentialProvider, opener DBOpener) *SQLSource {
	return &SQLSource{credentials: creds, opener: opener}
}

func (s *SQLSource) Read(ctx context.Context, desc SourceDescriptor, schema types.Schema) (*pa.Table, error) {
	loc, err := pl.Parse(desc.Locator)
	if err != nil {
		return nil, err
	}
	sqlLoc, ok := loc.(*pl.SQLLocation)
	if !ok {
		return nil, fferr.NewInvalidArgumentErrorf("locator %s is not a SQL locator", loc.Location())
	}
	backend := string(sqlLoc.Engine())
	source := sqlLoc.Location()
	logger := logging.GetLoggerFromContext(ctx).WithSource(backend, source)

	relation, err := sourceRelation(sqlLoc, desc.Query)
	if err != nil {
		return nil, err
	}
	creds, err := s.credentials.Credentials(ctx, loc)
	if err != nil {
		return nil, err
	}
	sqlCreds, err := creds.SQL(sqlLoc)
	if err != nil {
		return nil, err
	}
	db, err := s.opener(ctx, sqlLoc, sqlCreds)
	if err != nil {
		logger.Errorw("Failed to connect", "err", err, "credentials", sqlCreds.Redacted())
		return nil, asSourceUnavailable(backend, source, err)
	}
	defer db.Close()

	columnTypes, err := inspectColumns(ctx, db, relation)
	if err != nil {
		return nil, asSourceUnavailable(backend, source, err)
	}
	available := make([]string, len(columnTypes))
	for i, ct := range columnTypes {
		available[i] = ct.Name()
	}
	selected, missing := matchColumns(schema, available)
	if len(missing) > 0 {
		return nil, fferr.NewSchemaMismatchError(source, missing, nil)
	}
	schema, err = withNativeTypes(sqlLoc.Engine(), schema, selected, columnTypes, source)
	if err != nil {
		return nil, err
	}
	quoted := make([]string, len(selected))
	for i, name := range selected {
		quoted[i] = quoteIdentifier(sqlLoc.Engine(), name)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), relation)
	logger.Debugw("Running source query", "query", query)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, asSourceUnavailable(backend, source, err)
	}
	defer rows.Close()

	tb, err := pa.NewTableBuilder(schema)
	if err != nil {
		return nil, err
	}
	values := make([]any, len(selected))
	ptrs := make([]any, len(selected))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		for i := range values {
			values[i] = nil
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, asSourceUnavailable(backend, source, err)
		}
		if err := tb.AppendRow(values...); err != nil {
			return nil, fferr.NewSchemaMismatchErrorf(source, "%v", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, asSourceUnavailable(backend, source, err)
	}
	return tb.Build()
}

func inspectColumns(ctx context.Context, db *sql.DB, relation string) ([]*sql.ColumnType, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s WHERE 1=0", relation))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return rows.ColumnTypes()
}

// withNativeTypes records each selected column's backend type on the schema
// and rejects columns whose values can never be coerced to the declared
// type.
func withNativeTypes(engine pl.SQLEngine, schema types.Schema, selected []string, columnTypes []*sql.ColumnType, source string) (types.Schema, error) {
	byName := make(map[string]*sql.ColumnType, len(columnTypes))
	for _, ct := range columnTypes {
		byName[ct.Name()] = ct
	}
	out := types.Schema{Fields: make([]types.ColumnSchema, len(schema.Fields))}
	for i, field := range schema.Fields {
		ct, has := byName[selected[i]]
		if !has {
			out.Fields[i] = field
			continue
		}
		nativeName := ct.DatabaseTypeName()
		native, known := nativeScalarType(engine, nativeName)
		if known && !compatibleNativeType(field.Type, native) {
			return types.Schema{}, fferr.NewSchemaMismatchErrorf(source, "column %s is %s in the source and cannot be read as %s", field.Name, nativeName, field.Type)
		}
		field.NativeType = types.NativeType(nativeName)
		out.Fields[i] = field
	}
	return out, nil
}

// matchColumns maps declared names to the relation's columns. Exact
// matches win; otherwise a case-insensitive match is used, since some
// engines upper-case unquoted identifiers.
func matchColumns(schema types.Schema, available []string) ([]string, []string) {
	exact := make(map[string]string, len(available))
	folded := make(map[string]string, len(available))
	for _, name := range available {
		exact[name] = name
		folded[strings.ToLower(name)] = name
	}
	selected := make([]string, 0, len(schema.Fields))
	var missing []string
	for _, field := range schema.Fields {
		if name, has := exact[field.Name]; has {
			selected = append(selected, name)
		} else if name, has := folded[strings.ToLower(field.Name)]; has {
			selected = append(selected, name)
		} else {
			missing = append(missing, field.Name)
		}
	}
	return selected, missing
}

func asSourceUnavailable(backend, source string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var typed fferr.Error
	if errors.As(err, &typed) && typed.GetType() == fferr.SOURCE_UNAVAILABLE {
		return err
	}
	return fferr.NewSourceUnavailableError(backend, source, err)
}
