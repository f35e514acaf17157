// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package metadata

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"gopkg.in/yaml.v3"

	"github.com/featureform/historical/fferr"
	types "github.com/featureform/historical/fftypes"
	"github.com/featureform/historical/provider"
	pl "github.com/featureform/historical/provider/location"
)

// Field is a named, typed column of a feature view.
type Field struct {
	Name string           `json:"name" yaml:"name"`
	Type types.ScalarType `json:"type" yaml:"type"`
}

func (f *Field) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Name string `yaml:"name"`
		Type string `yaml:"type"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return f.set(raw.Name, raw.Type)
}

func (f *Field) UnmarshalJSON(b []byte) error {
	var raw struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	return f.set(raw.Name, raw.Type)
}

func (f *Field) set(name, typ string) error {
	f.Name = name
	if typ == "" {
		f.Type = types.Unknown
		return nil
	}
	parsed, err := types.ParseScalarType(typ)
	if err != nil {
		return err
	}
	f.Type = parsed
	return nil
}

// Duration is a TTL as written in a registry: a Go duration ("48h"), a
// day or week count ("2d", "1w"), or a bare number of seconds. Zero means
// unbounded.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return Duration(secs * float64(time.Second)), nil
	}
	for suffix, unit := range map[string]time.Duration{"d": 24 * time.Hour, "w": 7 * 24 * time.Hour} {
		if !strings.HasSuffix(s, suffix) {
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSuffix(s, suffix), 64)
		if err != nil {
			return 0, fferr.NewInvalidArgumentErrorf("invalid ttl '%s'", s)
		}
		return Duration(n * float64(unit)), nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return 0, fferr.NewInvalidArgumentErrorf("invalid ttl '%s': %v", s, err)
	}
	return Duration(parsed), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var s string
	switch v := raw.(type) {
	case nil:
		s = ""
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fferr.NewInvalidArgumentErrorf("invalid ttl %v", raw)
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// FeatureView is a named, time-versioned table of features. Rows are
// matched to entities on JoinKeys and ordered by TimestampColumn, with
// CreatedTimestampColumn breaking ties when set.
type FeatureView struct {
	Name                   string                    `json:"name" yaml:"name"`
	Description            string                    `json:"description,omitempty" yaml:"description,omitempty"`
	JoinKeys               []Field                   `json:"join_keys" yaml:"join_keys"`
	Features               []Field                   `json:"features" yaml:"features"`
	TimestampColumn        string                    `json:"timestamp_column" yaml:"timestamp_column"`
	CreatedTimestampColumn string                    `json:"created_timestamp_column,omitempty" yaml:"created_timestamp_column,omitempty"`
	TTL                    Duration                  `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	Source                 provider.SourceDescriptor `json:"source" yaml:"source"`
	Tags                   map[string]string         `json:"tags,omitempty" yaml:"tags,omitempty"`
}

func (v *FeatureView) JoinKeyNames() []string {
	names := make([]string, len(v.JoinKeys))
	for i, key := range v.JoinKeys {
		names[i] = key.Name
	}
	return names
}

func (v *FeatureView) FeatureNames() []string {
	names := make([]string, len(v.Features))
	for i, feature := range v.Features {
		names[i] = feature.Name
	}
	return names
}

func (v *FeatureView) Feature(name string) (Field, bool) {
	for _, feature := range v.Features {
		if feature.Name == name {
			return feature, true
		}
	}
	return Field{}, false
}

// SourceSchema is the schema read from the view's source for the given
// features: join keys, timestamps, then features in the order given. A
// nil list selects every feature.
func (v *FeatureView) SourceSchema(features []string) (types.Schema, error) {
	if features == nil {
		features = v.FeatureNames()
	}
	fields := make([]types.ColumnSchema, 0, len(v.JoinKeys)+len(features)+2)
	for _, key := range v.JoinKeys {
		fields = append(fields, types.ColumnSchema{Name: key.Name, Type: key.Type, IsNullable: true})
	}
	fields = append(fields, types.ColumnSchema{Name: v.TimestampColumn, Type: types.Timestamp, IsNullable: true})
	if v.CreatedTimestampColumn != "" {
		fields = append(fields, types.ColumnSchema{Name: v.CreatedTimestampColumn, Type: types.Timestamp, IsNullable: true})
	}
	for _, name := range features {
		feature, ok := v.Feature(name)
		if !ok {
			return types.Schema{}, fferr.NewUnknownFeatureReferenceError(fmt.Sprintf("%s:%s", v.Name, name), nil)
		}
		fields = append(fields, types.ColumnSchema{Name: feature.Name, Type: feature.Type, IsNullable: true})
	}
	return types.NewSchema(fields...), nil
}

// Validate checks that the view can be joined: it has a name, join keys,
// features and a timestamp column, no column is declared twice, every
// type is known, the TTL is not negative and the source locator parses.
func (v *FeatureView) Validate() error {
	invalid := func(format string, a ...any) error {
		err := fferr.NewInvalidArgumentErrorf(format, a...)
		err.AddDetail("feature_view", v.Name)
		return err
	}
	if v.Name == "" {
		return invalid("feature view name cannot be empty")
	}
	if strings.Contains(v.Name, ":") {
		return invalid("feature view name %q cannot contain ':'", v.Name)
	}
	if len(v.JoinKeys) == 0 {
		return invalid("feature view %s has no join keys", v.Name)
	}
	if len(v.Features) == 0 {
		return invalid("feature view %s has no features", v.Name)
	}
	if v.TimestampColumn == "" {
		return invalid("feature view %s has no timestamp column", v.Name)
	}
	if v.TTL < 0 {
		return invalid("feature view %s has negative ttl %s", v.Name, v.TTL)
	}
	seen := mapset.NewThreadUnsafeSet[string]()
	columns := append(append([]Field{}, v.JoinKeys...), v.Features...)
	for _, col := range columns {
		if col.Name == "" {
			return invalid("feature view %s has an unnamed column", v.Name)
		}
		if col.Type == types.Unknown || col.Type == "" {
			return invalid("column %s of feature view %s has no type", col.Name, v.Name)
		}
		if !seen.Add(col.Name) {
			return invalid("column %s is declared twice in feature view %s", col.Name, v.Name)
		}
	}
	for _, ts := range []string{v.TimestampColumn, v.CreatedTimestampColumn} {
		if ts != "" && !seen.Add(ts) {
			return invalid("column %s is declared twice in feature view %s", ts, v.Name)
		}
	}
	if v.Source.Locator == "" {
		return invalid("feature view %s has no source locator", v.Name)
	}
	if _, err := pl.Parse(v.Source.Locator); err != nil {
		return err
	}
	return nil
}
