// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package provider

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"

	"github.com/featureform/historical/fferr"
	types "github.com/featureform/historical/fftypes"
	pa "github.com/featureform/historical/provider/arrow"
)

// readCSV decodes a CSV file with a header row. Empty cells are nulls and
// every other cell is coerced to its column's declared type.
func readCSV(b []byte, schema types.Schema, source string) (*pa.Table, error) {
	reader := csv.NewReader(bytes.NewReader(b))
	reader.ReuseRecord = true
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fferr.NewSchemaMismatchError(source, schema.ColumnNames(), errors.New("csv file has no header"))
		}
		return nil, fferr.NewSourceUnavailableError("csv", source, err)
	}
	positions := make(map[string]int, len(header))
	for i, name := range header {
		positions[name] = i
	}
	indexes := make([]int, len(schema.Fields))
	var missing []string
	for i, field := range schema.Fields {
		idx, has := positions[field.Name]
		if !has {
			missing = append(missing, field.Name)
			continue
		}
		indexes[i] = idx
	}
	if len(missing) > 0 {
		return nil, fferr.NewSchemaMismatchError(source, missing, nil)
	}

	tb, err := pa.NewTableBuilder(schema)
	if err != nil {
		return nil, err
	}
	values := make([]any, len(schema.Fields))
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fferr.NewSchemaMismatchErrorf(source, "malformed csv: %v", err)
		}
		for i, idx := range indexes {
			if record[idx] == "" {
				values[i] = nil
			} else {
				values[i] = record[idx]
			}
		}
		if err := tb.AppendRow(values...); err != nil {
			return nil, fferr.NewSchemaMismatchErrorf(source, "%v", err)
		}
	}
	return tb.Build()
}
