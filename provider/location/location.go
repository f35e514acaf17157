// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package location

import (
	"net/url"
	"strings"

	"github.com/featureform/historical/fferr"
	"github.com/featureform/historical/filestore"
	"github.com/featureform/historical/logging/redacted"
)

type LocationType string

const (
	SQLLocationType       LocationType = "sql"
	FileStoreLocationType LocationType = "filestore"
	MemoryLocationType    LocationType = "memory"
)

type SQLEngine string

const (
	Postgres   SQLEngine = "postgres"
	MySQL      SQLEngine = "mysql"
	ClickHouse SQLEngine = "clickhouse"
	Snowflake  SQLEngine = "snowflake"
)

const MemoryScheme = "mem"

type Location interface {
	// Location is a printable form of the locator with secrets redacted.
	Location() string
	Type() LocationType
}

// Parse maps a locator to the storage it names. SQL locators have the form
// <engine>://[user[:password]@]host[:port]/<database>[/<schema.table>].
// File locators use the file, s3 and s3a schemes. mem://<name> names a table
// registered in process.
func Parse(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fferr.NewInvalidArgumentErrorf("could not parse locator '%s': %v", redacted.URL(raw), err)
	}
	switch strings.ToLower(u.Scheme) {
	case filestore.FileScheme, filestore.S3Scheme, filestore.S3AScheme:
		fp, err := filestore.ParseFilepath(raw)
		if err != nil {
			return nil, err
		}
		return NewFileLocation(fp), nil
	case MemoryScheme:
		name := strings.Trim(u.Host+u.Path, "/")
		if name == "" {
			return nil, fferr.NewInvalidArgumentErrorf("memory locator '%s' has no table name", raw)
		}
		return NewMemoryLocation(name), nil
	case "postgres", "postgresql":
		return parseSQL(Postgres, u)
	case "mysql":
		return parseSQL(MySQL, u)
	case "clickhouse":
		return parseSQL(ClickHouse, u)
	case "snowflake":
		return parseSQL(Snowflake, u)
	case "":
		return nil, fferr.NewInvalidArgumentErrorf("locator '%s' has no scheme", redacted.URL(raw))
	default:
		return nil, fferr.NewInvalidArgumentErrorf("unsupported locator scheme '%s'", u.Scheme)
	}
}

func parseSQL(engine SQLEngine, u *url.URL) (*SQLLocation, error) {
	if u.Host == "" {
		return nil, fferr.NewInvalidArgumentErrorf("%s locator has no host", engine)
	}
	loc := &SQLLocation{
		engine: engine,
		host:   u.Hostname(),
		port:   u.Port(),
		params: u.Query(),
	}
	if u.User != nil {
		loc.user = u.User.Username()
		loc.password, _ = u.User.Password()
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) > 0 {
		loc.database = parts[0]
	}
	if len(parts) > 1 {
		qualified := strings.Join(parts[1:], "/")
		if idx := strings.LastIndex(qualified, "."); idx >= 0 {
			loc.schema = qualified[:idx]
			loc.table = qualified[idx+1:]
		} else {
			loc.table = qualified
		}
	}
	if loc.database == "" {
		return nil, fferr.NewInvalidArgumentErrorf("%s locator has no database", engine)
	}
	return loc, nil
}

func NewSQLLocation(table string) *SQLLocation {
	return &SQLLocation{table: table}
}

func NewFullyQualifiedSQLLocation(database, schema, table string) *SQLLocation {
	return &SQLLocation{database: database, schema: schema, table: table}
}

type FullyQualifiedObject struct {
	Database string
	Schema   string
	Table    string
}

func (f FullyQualifiedObject) String() string {
	parts := []string{}
	if f.Database != "" {
		parts = append(parts, f.Database)
	}
	if f.Schema != "" {
		parts = append(parts, f.Schema)
	}
	parts = append(parts, f.Table)
	return strings.Join(parts, ".")
}

type SQLLocation struct {
	engine   SQLEngine
	host     string
	port     string
	user     string
	password string
	database string
	schema   string
	table    string
	params   url.Values
}

func (l *SQLLocation) Engine() SQLEngine {
	return l.engine
}

func (l *SQLLocation) Host() string {
	return l.host
}

func (l *SQLLocation) Port() string {
	return l.port
}

// User and Password are the credentials embedded in the locator, if any.
func (l *SQLLocation) User() string {
	return l.user
}

func (l *SQLLocation) Password() string {
	return l.password
}

func (l *SQLLocation) GetDatabase() string {
	return l.database
}

func (l *SQLLocation) GetSchema() string {
	return l.schema
}

func (l *SQLLocation) GetTable() string {
	return l.table
}

func (l *SQLLocation) Param(key string) string {
	return l.params.Get(key)
}

func (l *SQLLocation) TableLocation() FullyQualifiedObject {
	return FullyQualifiedObject{
		Database: l.database,
		Schema:   l.schema,
		Table:    l.table,
	}
}

func (l *SQLLocation) Location() string {
	u := url.URL{
		Scheme: string(l.engine),
		Host:   l.host,
		Path:   "/" + l.database,
	}
	if l.port != "" {
		u.Host = l.host + ":" + l.port
	}
	if l.user != "" {
		u.User = url.User(l.user)
	}
	if l.table != "" {
		table := l.table
		if l.schema != "" {
			table = l.schema + "." + table
		}
		u.Path += "/" + table
	}
	return u.String()
}

func (l *SQLLocation) Type() LocationType {
	return SQLLocationType
}

func NewFileLocation(path filestore.Filepath) *FileStoreLocation {
	return &FileStoreLocation{path: path}
}

type FileStoreLocation struct {
	path filestore.Filepath
}

func (l *FileStoreLocation) Location() string {
	return l.path.ToURI()
}

func (l *FileStoreLocation) Type() LocationType {
	return FileStoreLocationType
}

func (l *FileStoreLocation) Filepath() filestore.Filepath {
	return l.path
}

func NewMemoryLocation(name string) *MemoryLocation {
	return &MemoryLocation{name: name}
}

type MemoryLocation struct {
	name string
}

func (l *MemoryLocation) Name() string {
	return l.name
}

func (l *MemoryLocation) Location() string {
	return MemoryScheme + "://" + l.name
}

func (l *MemoryLocation) Type() LocationType {
	return MemoryLocationType
}
