// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

// Package resolver turns feature references into a per-view read and
// output plan. It does no I/O.
package resolver

import (
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/featureform/historical/fferr"
	types "github.com/featureform/historical/fftypes"
	"github.com/featureform/historical/metadata"
)

// FullNameSeparator joins view and feature names when full feature names
// are requested.
const FullNameSeparator = "__"

type FeatureReference struct {
	View    string
	Feature string
}

// ParseFeatureReference parses "<view>:<feature>".
func ParseFeatureReference(s string) (FeatureReference, error) {
	view, feature, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found || view == "" || feature == "" || strings.Contains(feature, ":") {
		return FeatureReference{}, fferr.NewUnknownFeatureReferenceError(s, fmt.Errorf("feature reference must have the form <view>:<feature>"))
	}
	return FeatureReference{View: view, Feature: feature}, nil
}

func ParseFeatureReferences(refs []string) ([]FeatureReference, error) {
	parsed := make([]FeatureReference, len(refs))
	for i, ref := range refs {
		p, err := ParseFeatureReference(ref)
		if err != nil {
			return nil, err
		}
		parsed[i] = p
	}
	return parsed, nil
}

func (r FeatureReference) String() string {
	return fmt.Sprintf("%s:%s", r.View, r.Feature)
}

// OutputName is the result column name: the bare feature name, or
// <view>__<feature> with full feature names.
func (r FeatureReference) OutputName(fullFeatureNames bool) string {
	if fullFeatureNames {
		return r.View + FullNameSeparator + r.Feature
	}
	return r.Feature
}

type FeatureColumn struct {
	Reference  FeatureReference
	Field      metadata.Field
	OutputName string
}

// ViewPlan is everything needed to read and join one feature view.
type ViewPlan struct {
	View     *metadata.FeatureView
	Features []FeatureColumn
	// SourceSchema holds the join keys, timestamps and requested features.
	SourceSchema types.Schema
}

func (p *ViewPlan) FeatureNames() []string {
	names := make([]string, len(p.Features))
	for i, f := range p.Features {
		names[i] = f.Field.Name
	}
	return names
}

func (p *ViewPlan) OutputSchema() types.Schema {
	fields := make([]types.ColumnSchema, len(p.Features))
	for i, f := range p.Features {
		fields[i] = types.ColumnSchema{Name: f.OutputName, Type: f.Field.Type, IsNullable: true}
	}
	return types.NewSchema(fields...)
}

type Plan struct {
	// Views are in order of first reference.
	Views []*ViewPlan
	// Columns are the output feature columns in request order, without
	// duplicates.
	Columns          []FeatureColumn
	FullFeatureNames bool
}

func (p *Plan) OutputNames() []string {
	names := make([]string, len(p.Columns))
	for i, col := range p.Columns {
		names[i] = col.OutputName
	}
	return names
}

func (p *Plan) References() []string {
	refs := make([]string, len(p.Columns))
	for i, col := range p.Columns {
		refs[i] = col.Reference.String()
	}
	return refs
}

// JoinKeys returns every join key used by the plan, in first-use order.
func (p *Plan) JoinKeys() []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	var keys []string
	for _, vp := range p.Views {
		for _, key := range vp.View.JoinKeyNames() {
			if seen.Add(key) {
				keys = append(keys, key)
			}
		}
	}
	return keys
}

// Resolve validates refs against views and plans the read and output
// columns of each touched view. Repeated references are kept once.
func Resolve(refs []FeatureReference, views []*metadata.FeatureView, fullFeatureNames bool) (*Plan, error) {
	if len(refs) == 0 {
		return nil, fferr.NewInvalidArgumentErrorf("at least one feature reference is required")
	}
	byName := make(map[string]*metadata.FeatureView, len(views))
	for _, view := range views {
		byName[view.Name] = view
	}
	plan := &Plan{FullFeatureNames: fullFeatureNames}
	planned := map[string]*ViewPlan{}
	seen := mapset.NewThreadUnsafeSet[FeatureReference]()
	producers := map[string][]string{}
	for _, ref := range refs {
		if !seen.Add(ref) {
			continue
		}
		view, has := byName[ref.View]
		if !has {
			return nil, fferr.NewUnknownFeatureReferenceError(ref.String(), fmt.Errorf("feature view %s is not registered", ref.View))
		}
		field, has := view.Feature(ref.Feature)
		if !has {
			return nil, fferr.NewUnknownFeatureReferenceError(ref.String(), fmt.Errorf("feature view %s has no feature %s", ref.View, ref.Feature))
		}
		col := FeatureColumn{Reference: ref, Field: field, OutputName: ref.OutputName(fullFeatureNames)}
		producers[col.OutputName] = append(producers[col.OutputName], ref.String())
		vp, has := planned[view.Name]
		if !has {
			vp = &ViewPlan{View: view}
			planned[view.Name] = vp
			plan.Views = append(plan.Views, vp)
		}
		vp.Features = append(vp.Features, col)
		plan.Columns = append(plan.Columns, col)
	}
	for _, col := range plan.Columns {
		if sources := producers[col.OutputName]; len(sources) > 1 {
			return nil, fferr.NewNamingConflictError(col.OutputName, sources)
		}
	}
	for _, vp := range plan.Views {
		schema, err := vp.View.SourceSchema(vp.FeatureNames())
		if err != nil {
			return nil, err
		}
		vp.SourceSchema = schema
	}
	return plan, nil
}

// CheckEntitySchema verifies that the entity table carries every join key
// of every planned view and that no output feature column shadows an
// entity column.
func CheckEntitySchema(plan *Plan, entities types.Schema) error {
	for _, vp := range plan.Views {
		for _, key := range vp.View.JoinKeyNames() {
			if _, has := entities.Lookup(key); !has {
				return fferr.NewMissingJoinKeyColumnError(vp.View.Name, key)
			}
		}
	}
	for _, col := range plan.Columns {
		if _, has := entities.Lookup(col.OutputName); has {
			return fferr.NewNamingConflictError(col.OutputName, []string{"entity table", col.Reference.String()})
		}
	}
	return nil
}
