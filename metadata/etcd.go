// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/featureform/historical/fferr"
	"github.com/featureform/historical/logging"
)

const defaultEtcdTimeout = 5 * time.Second

// EtcdRegistry stores each feature view as a JSON document under
// <prefix><name>.
type EtcdRegistry struct {
	client *clientv3.Client
	prefix string
}

func NewEtcdRegistry(client *clientv3.Client, prefix string) *EtcdRegistry {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &EtcdRegistry{client: client, prefix: prefix}
}

func (r *EtcdRegistry) key(name string) string {
	return fmt.Sprintf("%s%s", r.prefix, name)
}

func withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultEtcdTimeout)
}

// Put validates and stores a view, replacing any previous version.
func (r *EtcdRegistry) Put(ctx context.Context, view *FeatureView) error {
	if err := view.Validate(); err != nil {
		return err
	}
	serialized, err := json.Marshal(view)
	if err != nil {
		return fferr.NewInternalError(err)
	}
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()
	if _, err := r.client.Put(ctx, r.key(view.Name), string(serialized)); err != nil {
		wrapped := fferr.NewInternalError(err)
		wrapped.AddDetail("key", r.key(view.Name))
		return wrapped
	}
	return nil
}

func (r *EtcdRegistry) Delete(ctx context.Context, name string) error {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()
	resp, err := r.client.Delete(ctx, r.key(name))
	if err != nil {
		return fferr.NewInternalError(err)
	}
	if resp.Deleted == 0 {
		return fferr.NewFeatureViewNotFoundError(name, nil)
	}
	return nil
}

func (r *EtcdRegistry) deserialize(key string, value []byte) (*FeatureView, error) {
	view := &FeatureView{}
	if err := json.Unmarshal(value, view); err != nil {
		wrapped := fferr.NewInternalErrorf("could not parse feature view: %v", err)
		wrapped.AddDetail("key", key)
		return nil, wrapped
	}
	if err := view.Validate(); err != nil {
		return nil, err
	}
	return view, nil
}

func (r *EtcdRegistry) GetFeatureView(ctx context.Context, name string) (*FeatureView, error) {
	logger := logging.GetLoggerFromContext(ctx).WithFeatureView(name)
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()
	resp, err := r.client.Get(ctx, r.key(name))
	if err != nil {
		logger.Errorw("Failed to get feature view from etcd", "err", err)
		return nil, fferr.NewInternalError(err)
	}
	if len(resp.Kvs) == 0 {
		return nil, fferr.NewFeatureViewNotFoundError(name, nil)
	}
	return r.deserialize(r.key(name), resp.Kvs[0].Value)
}

// ListFeatureViews returns every view under the prefix, in key order.
func (r *EtcdRegistry) ListFeatureViews(ctx context.Context) ([]*FeatureView, error) {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()
	resp, err := r.client.Get(ctx, r.prefix, clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return nil, fferr.NewInternalError(err)
	}
	views := make([]*FeatureView, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		view, err := r.deserialize(string(kv.Key), kv.Value)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}
