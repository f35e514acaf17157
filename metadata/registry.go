// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package metadata

import (
	"context"
	"os"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/featureform/historical/fferr"
	"github.com/featureform/historical/logging"
)

// Registry is the read-only catalog of feature views.
type Registry interface {
	GetFeatureView(ctx context.Context, name string) (*FeatureView, error)
	ListFeatureViews(ctx context.Context) ([]*FeatureView, error)
}

// GetFeatureViews looks up every name, failing on the first that is
// missing. Duplicate names are looked up once.
func GetFeatureViews(ctx context.Context, registry Registry, names []string) (map[string]*FeatureView, error) {
	views := make(map[string]*FeatureView, len(names))
	for _, name := range names {
		if _, has := views[name]; has {
			continue
		}
		view, err := registry.GetFeatureView(ctx, name)
		if err != nil {
			return nil, err
		}
		views[name] = view
	}
	return views, nil
}

type MemoryRegistry struct {
	mu    sync.RWMutex
	views map[string]*FeatureView
}

func NewMemoryRegistry(views ...*FeatureView) (*MemoryRegistry, error) {
	registry := &MemoryRegistry{views: make(map[string]*FeatureView, len(views))}
	for _, view := range views {
		if err := registry.Register(view); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register adds or replaces a view.
func (r *MemoryRegistry) Register(view *FeatureView) error {
	if err := view.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views[view.Name] = view
	return nil
}

func (r *MemoryRegistry) GetFeatureView(ctx context.Context, name string) (*FeatureView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	view, has := r.views[name]
	if !has {
		return nil, fferr.NewFeatureViewNotFoundError(name, nil)
	}
	return view, nil
}

func (r *MemoryRegistry) ListFeatureViews(ctx context.Context) ([]*FeatureView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := maps.Keys(r.views)
	slices.Sort(names)
	views := make([]*FeatureView, len(names))
	for i, name := range names {
		views[i] = r.views[name]
	}
	return views, nil
}

type registryFile struct {
	FeatureViews []*FeatureView `yaml:"feature_views"`
}

// FileRegistry reads feature views from a YAML file. The file is read on
// every call, so edits take effect without a restart.
type FileRegistry struct {
	path string
}

func NewFileRegistry(path string) *FileRegistry {
	return &FileRegistry{path: path}
}

func (r *FileRegistry) load(ctx context.Context) (map[string]*FeatureView, error) {
	logger := logging.GetLoggerFromContext(ctx)
	b, err := os.ReadFile(r.path)
	if err != nil {
		logger.Errorw("Failed to read registry file", "path", r.path, "err", err)
		return nil, fferr.NewInternalErrorf("could not read registry file %s: %v", r.path, err)
	}
	var file registryFile
	if err := yaml.Unmarshal(b, &file); err != nil {
		return nil, fferr.NewInvalidArgumentErrorf("could not parse registry file %s: %v", r.path, err)
	}
	views := make(map[string]*FeatureView, len(file.FeatureViews))
	for _, view := range file.FeatureViews {
		if err := view.Validate(); err != nil {
			return nil, err
		}
		if _, has := views[view.Name]; has {
			return nil, fferr.NewInvalidArgumentErrorf("feature view %s is declared twice in %s", view.Name, r.path)
		}
		views[view.Name] = view
	}
	return views, nil
}

func (r *FileRegistry) GetFeatureView(ctx context.Context, name string) (*FeatureView, error) {
	views, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	view, has := views[name]
	if !has {
		return nil, fferr.NewFeatureViewNotFoundError(name, nil)
	}
	return view, nil
}

func (r *FileRegistry) ListFeatureViews(ctx context.Context) ([]*FeatureView, error) {
	views, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	names := maps.Keys(views)
	slices.Sort(names)
	list := make([]*FeatureView, len(names))
	for i, name := range names {
		list[i] = views[name]
	}
	return list, nil
}
