// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package provider

import (
	"context"

	"github.com/mitchellh/mapstructure"

	"github.com/featureform/historical/fferr"
	"github.com/featureform/historical/helpers"
	"github.com/featureform/historical/logging/redacted"
	pl "github.com/featureform/historical/provider/location"
)

// Credentials is an opaque key/value map handed to a backend. Callers own
// it; nothing in this package stores or logs it.
type Credentials map[string]string

type CredentialProvider interface {
	Credentials(ctx context.Context, loc pl.Location) (Credentials, error)
}

type S3Credentials struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

func (c S3Credentials) Redacted() map[string]any {
	return map[string]any{
		"Endpoint":        c.Endpoint,
		"Region":          c.Region,
		"AccessKeyID":     c.AccessKeyID,
		"SecretAccessKey": redacted.String,
		"UsePathStyle":    c.UsePathStyle,
	}
}

type SQLCredentials struct {
	User      string `mapstructure:"user"`
	Password  string `mapstructure:"password"`
	Host      string `mapstructure:"host"`
	Port      string `mapstructure:"port"`
	SSLMode   string `mapstructure:"sslmode"`
	Account   string `mapstructure:"account"`
	Warehouse string `mapstructure:"warehouse"`
	Role      string `mapstructure:"role"`
}

func (c SQLCredentials) Redacted() map[string]any {
	return map[string]any{
		"User":      c.User,
		"Password":  redacted.String,
		"Host":      c.Host,
		"Port":      c.Port,
		"SSLMode":   c.SSLMode,
		"Account":   c.Account,
		"Warehouse": c.Warehouse,
		"Role":      c.Role,
	}
}

func decodeCredentials(creds Credentials, out any) error {
	if creds == nil {
		creds = Credentials{}
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      false,
		Result:           out,
	})
	if err != nil {
		return fferr.NewInternalError(err)
	}
	if err := decoder.Decode(map[string]string(creds)); err != nil {
		return fferr.NewInvalidArgumentErrorf("invalid credentials: %v", err)
	}
	return nil
}

func (c Credentials) S3() (S3Credentials, error) {
	var s3 S3Credentials
	if err := decodeCredentials(c, &s3); err != nil {
		return S3Credentials{}, err
	}
	if s3.Region == "" {
		s3.Region = "us-east-1"
	}
	return s3, nil
}

// SQL decodes SQL credentials and fills anything the map leaves unset
// from the user and password embedded in the locator.
func (c Credentials) SQL(loc *pl.SQLLocation) (SQLCredentials, error) {
	var creds SQLCredentials
	if err := decodeCredentials(c, &creds); err != nil {
		return SQLCredentials{}, err
	}
	if creds.User == "" {
		creds.User = loc.User()
	}
	if creds.Password == "" {
		creds.Password = loc.Password()
	}
	if creds.Host == "" {
		creds.Host = loc.Host()
	}
	if creds.Port == "" {
		creds.Port = loc.Port()
	}
	if creds.SSLMode == "" {
		creds.SSLMode = loc.Param("sslmode")
	}
	if creds.Warehouse == "" {
		creds.Warehouse = loc.Param("warehouse")
	}
	if creds.Role == "" {
		creds.Role = loc.Param("role")
	}
	if creds.Account == "" && loc.Engine() == pl.Snowflake {
		creds.Account = loc.Host()
	}
	return creds, nil
}

// Backend names the credential namespace for a location.
func Backend(loc pl.Location) string {
	switch l := loc.(type) {
	case *pl.SQLLocation:
		return string(l.Engine())
	case *pl.FileStoreLocation:
		return l.Filepath().Scheme()
	case *pl.MemoryLocation:
		return pl.MemoryScheme
	default:
		return string(loc.Type())
	}
}

// StaticCredentials serves fixed credentials keyed by backend name, such
// as "s3" or "postgres".
type StaticCredentials map[string]Credentials

func (s StaticCredentials) Credentials(ctx context.Context, loc pl.Location) (Credentials, error) {
	backend := Backend(loc)
	if backend == "s3a" {
		if creds, has := s["s3a"]; has {
			return creds, nil
		}
		backend = "s3"
	}
	creds, has := s[backend]
	if !has {
		return Credentials{}, nil
	}
	return creds, nil
}

// EnvCredentials reads credentials from the process environment.
type EnvCredentials struct{}

func (EnvCredentials) Credentials(ctx context.Context, loc pl.Location) (Credentials, error) {
	switch backend := Backend(loc); backend {
	case "s3", "s3a":
		endpoint := helpers.GetEnv("AWS_ENDPOINT_URL", helpers.GetEnv("MINIO_ENDPOINT", ""))
		return Credentials{
			"endpoint":          endpoint,
			"region":            helpers.GetEnv("AWS_REGION", helpers.GetEnv("AWS_DEFAULT_REGION", "us-east-1")),
			"access_key_id":     helpers.GetEnv("AWS_ACCESS_KEY_ID", ""),
			"secret_access_key": helpers.GetEnv("AWS_SECRET_ACCESS_KEY", ""),
			"use_path_style":    boolString(helpers.GetEnvBool("S3_USE_PATH_STYLE", endpoint != "")),
		}, nil
	case string(pl.Postgres):
		return Credentials{
			"user":     helpers.GetEnv("PG_USERNAME", ""),
			"password": helpers.GetEnv("PG_PASSWORD", ""),
			"sslmode":  helpers.GetEnv("PG_SSLMODE", ""),
		}, nil
	case string(pl.MySQL):
		return Credentials{
			"user":     helpers.GetEnv("MYSQL_USERNAME", ""),
			"password": helpers.GetEnv("MYSQL_PASSWORD", ""),
		}, nil
	case string(pl.ClickHouse):
		return Credentials{
			"user":     helpers.GetEnv("CLICKHOUSE_USERNAME", ""),
			"password": helpers.GetEnv("CLICKHOUSE_PASSWORD", ""),
		}, nil
	case string(pl.Snowflake):
		return Credentials{
			"user":      helpers.GetEnv("SNOWFLAKE_USERNAME", ""),
			"password":  helpers.GetEnv("SNOWFLAKE_PASSWORD", ""),
			"account":   helpers.GetEnv("SNOWFLAKE_ACCOUNT", ""),
			"warehouse": helpers.GetEnv("SNOWFLAKE_WAREHOUSE", ""),
			"role":      helpers.GetEnv("SNOWFLAKE_ROLE", ""),
		}, nil
	default:
		return Credentials{}, nil
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
