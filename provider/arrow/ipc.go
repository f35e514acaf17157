// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package arrow

import (
	"bytes"
	"io"

	arrowlib "github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/featureform/historical/fferr"
	types "github.com/featureform/historical/fftypes"
)

// WriteIPC writes the table to w as an Arrow IPC stream holding a single
// record batch.
func WriteIPC(w io.Writer, t *Table) error {
	writer := ipc.NewWriter(w, ipc.WithSchema(t.ArrowSchema()), ipc.WithAllocator(memory.DefaultAllocator))
	if err := writer.Write(t.Record()); err != nil {
		writer.Close()
		return fferr.NewInternalErrorf("failed to write arrow stream: %v", err)
	}
	if err := writer.Close(); err != nil {
		return fferr.NewInternalErrorf("failed to close arrow stream: %v", err)
	}
	return nil
}

func ToIPCBytes(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteIPC(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadIPC reads an Arrow IPC stream. Multiple record batches are
// concatenated into a single table.
func ReadIPC(r io.Reader) (*Table, error) {
	mem := memory.DefaultAllocator
	reader, err := ipc.NewReader(r, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fferr.NewInternalErrorf("failed to open arrow stream: %v", err)
	}
	defer reader.Release()

	arrowSchema := reader.Schema()
	chunks := make([][]arrowlib.Array, len(arrowSchema.Fields()))
	for reader.Next() {
		rec := reader.Record()
		for j := range chunks {
			col := rec.Column(j)
			col.Retain()
			chunks[j] = append(chunks[j], col)
		}
	}
	if err := reader.Err(); err != nil {
		return nil, fferr.NewInternalErrorf("failed to read arrow stream: %v", err)
	}
	schema := ConvertSchema(arrowSchema)
	for _, f := range schema.Fields {
		if f.Type == types.Unknown {
			return nil, fferr.NewSchemaMismatchErrorf("arrow stream", "column %s has unsupported type %s", f.Name, f.NativeType)
		}
	}
	columns := make([]arrowlib.Array, len(chunks))
	for j, parts := range chunks {
		switch len(parts) {
		case 0:
			dt, err := ToArrowType(schema.Fields[j].Type)
			if err != nil {
				return nil, err
			}
			b := array.NewBuilder(mem, dt)
			columns[j] = b.NewArray()
			b.Release()
		case 1:
			columns[j] = parts[0]
		default:
			concatenated, err := array.Concatenate(parts, mem)
			if err != nil {
				return nil, fferr.NewInternalErrorf("failed to concatenate column %s: %v", schema.Fields[j].Name, err)
			}
			columns[j] = concatenated
		}
		normalized, err := NormalizeColumn(columns[j], schema.Fields[j])
		if err != nil {
			return nil, err
		}
		columns[j] = normalized
	}
	return NewTable(schema, columns)
}
