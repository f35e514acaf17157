// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
	psql "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/stdlib"

	"github.com/featureform/historical/fferr"
	"github.com/featureform/historical/logging"
	"github.com/featureform/historical/logging/redacted"
	pl "github.com/featureform/historical/provider/location"
)

const (
	defaultMaxOpenConns    = 10
	defaultMaxConnLifetime = time.Hour
	defaultMaxConnIdleTime = time.Minute
	defaultConnectTimeout  = 2 * time.Second
)

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (c Config) Redacted() map[string]any {
	return map[string]any{
		"Host":     c.Host,
		"Port":     c.Port,
		"User":     c.User,
		"Password": redacted.String,
		"DBName":   c.DBName,
		"SSLMode":  c.SSLMode,
	}
}

func (c Config) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	host := c.Host
	if c.Port != "" {
		host = fmt.Sprintf("%s:%s", c.Host, c.Port)
	}
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   host,
		Path:   c.DBName,
		RawQuery: (url.Values{
			"sslmode": []string{sslMode},
		}).Encode(),
	}
	return u.String()
}

// OpenDB opens a database/sql handle backed by pgx and retries the first
// ping until it succeeds or ctx is done. Without a deadline on ctx the
// attempt is bounded by a short default timeout.
func OpenDB(ctx context.Context, config Config) (*sql.DB, error) {
	logger := logging.GetLoggerFromContext(ctx).With("psql-connect-config", config.Redacted())
	logger.Info("Opening postgres connection")
	connConfig, err := psql.ParseConfig(config.ConnectionString())
	if err != nil {
		logger.Errorw("Failed to parse postgres config", "err", err)
		return nil, fferr.NewInvalidArgumentErrorf("invalid postgres config: %v", err)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		logger.Debugf("Connecting to Postgres has no deadline, defaulting to %v", defaultConnectTimeout)
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()
	}
	db := stdlib.OpenDB(*connConfig)
	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetConnMaxLifetime(defaultMaxConnLifetime)
	db.SetConnMaxIdleTime(defaultMaxConnIdleTime)

	connectAttempt := 0
	retryErr := retry.Do(
		func() error {
			connectAttempt++
			logger.Debugw("Pinging postgres", "psql-connect-attempt", connectAttempt)
			return db.PingContext(ctx)
		},
		retry.Context(ctx),
		retry.Delay(100*time.Millisecond),
		retry.MaxDelay(1*time.Second),
		retry.Attempts(0),
		retry.LastErrorOnly(true),
	)
	if retryErr != nil || connectAttempt == 0 {
		logger.Errorw("Timed out connecting to Postgres", "err", retryErr)
		db.Close()
		if retryErr == nil {
			retryErr = ctx.Err()
		}
		return nil, fferr.NewSourceUnavailableError("postgres", config.Host, retryErr)
	}
	return db, nil
}

func Sanitize(ident string) string {
	return psql.Identifier{ident}.Sanitize()
}

func SanitizeLocation(obj *pl.SQLLocation) string {
	var parts []string
	if obj.GetSchema() != "" {
		parts = append(parts, obj.GetSchema())
	}
	parts = append(parts, obj.GetTable())
	return psql.Identifier(parts).Sanitize()
}
