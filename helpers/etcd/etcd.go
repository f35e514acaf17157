// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package etcd

import (
	"fmt"
	"net/url"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/featureform/historical/fferr"
	"github.com/featureform/historical/logging/redacted"
)

type Config struct {
	Host        string
	Port        string
	Username    string
	Password    string
	DialTimeout time.Duration
}

func (cfg Config) Redacted() map[string]any {
	return map[string]any{
		"Host":        cfg.Host,
		"Port":        cfg.Port,
		"Username":    cfg.Username,
		"Password":    redacted.String,
		"DialTimeout": cfg.DialTimeout.String(),
	}
}

func (c Config) URL() string {
	u := &url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%s", c.Host, c.Port),
	}
	return u.String()
}

func (c Config) ClientConfig() clientv3.Config {
	dialTimeout := c.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = 5 * time.Second
	}
	return clientv3.Config{
		Endpoints:   []string{c.URL()},
		Username:    c.Username,
		Password:    c.Password,
		DialTimeout: dialTimeout,
	}
}

func NewClient(c Config) (*clientv3.Client, error) {
	client, err := clientv3.New(c.ClientConfig())
	if err != nil {
		return nil, fferr.NewSourceUnavailableError("etcd", c.URL(), err)
	}
	return client, nil
}
