// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package provider

import (
	"context"
	"sync"

	"github.com/featureform/historical/fferr"
	types "github.com/featureform/historical/fftypes"
	pa "github.com/featureform/historical/provider/arrow"
	pl "github.com/featureform/historical/provider/location"
)

// MemorySource serves tables registered in process under mem://<name>.
type MemorySource struct {
	mu     sync.RWMutex
	tables map[string]*pa.Table
}

func NewMemorySource() *MemorySource {
	return &MemorySource{tables: map[string]*pa.Table{}}
}

func (s *MemorySource) Register(name string, table *pa.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = table
}

func (s *MemorySource) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables, name)
}

func (s *MemorySource) Read(ctx context.Context, desc SourceDescriptor, schema types.Schema) (*pa.Table, error) {
	loc, err := pl.Parse(desc.Locator)
	if err != nil {
		return nil, err
	}
	memLoc, ok := loc.(*pl.MemoryLocation)
	if !ok {
		return nil, fferr.NewInvalidArgumentErrorf("locator %s is not a memory locator", loc.Location())
	}
	s.mu.RLock()
	table, has := s.tables[memLoc.Name()]
	s.mu.RUnlock()
	if !has {
		return nil, fferr.NewSourceUnavailableError(pl.MemoryScheme, memLoc.Location(), fferr.NewKeyNotFoundError(memLoc.Name(), nil))
	}
	return projectTable(table, schema, memLoc.Location())
}
