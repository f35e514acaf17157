// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package tests

import (
	"context"
	"log"
	"time"

	"github.com/ory/dockertest/v3"

	"github.com/featureform/historical/helpers/etcd"
)

// InitETCD starts an etcd container without authentication on a random
// port and returns a config pointing at it. The caller purges the resource.
func InitETCD(pool *dockertest.Pool) (*dockertest.Resource, etcd.Config) {
	resource, err := pool.Run("bitnami/etcd", "latest", []string{"ALLOW_NONE_AUTHENTICATION=yes"})
	if err != nil {
		log.Fatalf("Could not start resource: %s", err)
	}
	config := etcd.Config{
		Host:        "localhost",
		Port:        resource.GetPort("2379/tcp"),
		DialTimeout: 2 * time.Second,
	}
	log.Println("Connecting to etcd on port: ", config.Port)

	if err = pool.Retry(func() error {
		client, err := etcd.NewClient(config)
		if err != nil {
			return err
		}
		defer client.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, err = client.Status(ctx, config.URL())
		return err
	}); err != nil {
		log.Fatalf("Could not connect to etcd: %s", err)
	}
	return resource, config
}
