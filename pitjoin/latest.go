// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package pitjoin

import (
	"context"
	"sort"
	"time"

	"github.com/featureform/historical/fferr"
)

// Window is an inclusive event timestamp range. A zero End is unbounded.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Validate() error {
	if !w.End.IsZero() && w.End.Before(w.Start) {
		return fferr.NewInvalidArgumentErrorf("window end %s is before start %s", w.End, w.Start)
	}
	return nil
}

func (w Window) bounds() (int64, int64) {
	end := int64(1<<63 - 1)
	if !w.End.IsZero() {
		end = w.End.UnixMicro()
	}
	return w.Start.UnixMicro(), end
}

// LatestPerKey returns, for every join key, the row with the greatest
// timestamp inside the window, using the same tie-break as the join. Rows
// are returned in table order.
func LatestPerKey(ctx context.Context, fs FeatureSet, w Window, opts Options) ([]int, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx, err := buildIndex(ctx, fs, opts.withDefaults())
	if err != nil {
		return nil, err
	}
	start, end := w.bounds()
	rows := make([]int, 0, len(idx.groups))
	for _, group := range idx.groups {
		pos := sort.Search(len(group), func(j int) bool {
			return idx.ts[group[j]] > end
		})
		if pos == 0 {
			continue
		}
		row := group[pos-1]
		if idx.ts[row] < start {
			continue
		}
		rows = append(rows, row)
	}
	sort.Ints(rows)
	return rows, nil
}

// RowsInWindow returns every row whose timestamp is inside the window, in
// table order. Rows with a null timestamp are never inside.
func RowsInWindow(fs FeatureSet, w Window) ([]int, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	ts, err := timestampColumn(fs.Table, fs.TimestampColumn, fs.View)
	if err != nil {
		return nil, err
	}
	start, end := w.bounds()
	var rows []int
	for i, v := range ts.values {
		if ts.valid[i] && v >= start && v <= end {
			rows = append(rows, i)
		}
	}
	return rows, nil
}
