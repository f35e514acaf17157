// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package tests

import (
	"database/sql"
	"log"
	"os"
	"testing"

	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"

	"github.com/featureform/historical/helpers/postgres"
)

// SkipUnlessDocker skips integration tests that start containers unless
// RUN_DOCKER_TESTS is set.
func SkipUnlessDocker(t *testing.T) {
	t.Helper()
	if testing.Short() || os.Getenv("RUN_DOCKER_TESTS") == "" {
		t.Skip("set RUN_DOCKER_TESTS to run container tests")
	}
}

// InitPG starts a Postgres container on a random port. The returned config
// uses username=postgres, password=mysecretpassword, database=postgres.
// The caller purges the resource.
func InitPG(pool *dockertest.Pool) (*dockertest.Resource, postgres.Config) {
	resource, err := pool.Run("postgres", "16.1", []string{"POSTGRES_PASSWORD=mysecretpassword", "POSTGRES_DB=postgres"})
	if err != nil {
		log.Fatalf("Could not start resource: %s", err)
	}
	config := postgres.Config{
		Host:     "localhost",
		Port:     resource.GetPort("5432/tcp"),
		User:     "postgres",
		Password: "mysecretpassword",
		DBName:   "postgres",
		SSLMode:  "disable",
	}
	log.Println("Connecting to postgres on port: ", config.Port)

	if err = pool.Retry(func() error {
		db, err := sql.Open("postgres", config.ConnectionString())
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Ping()
	}); err != nil {
		log.Fatalf("Could not connect to postgres: %s", err)
	}
	return resource, config
}
