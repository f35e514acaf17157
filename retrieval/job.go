// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package retrieval

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/featureform/historical/fferr"
	"github.com/featureform/historical/logging"
	"github.com/featureform/historical/metrics"
	"github.com/featureform/historical/provider"
	pa "github.com/featureform/historical/provider/arrow"
)

type State string

const (
	PENDING      State = "Pending"
	MATERIALIZED State = "Materialized"
)

// Metadata describes a job's output. The event timestamp range and
// MaterializedAt are zero until the job is materialized.
type Metadata struct {
	FeatureRefs       []string  `json:"feature_refs"`
	Keys              []string  `json:"keys"`
	MinEventTimestamp time.Time `json:"min_event_timestamp"`
	MaxEventTimestamp time.Time `json:"max_event_timestamp"`
	MaterializedAt    time.Time `json:"materialized_at"`
}

type computeFunc func(ctx context.Context) (*pa.Table, error)

// Job is a deferred retrieval. Nothing is read until Materialize is
// called, and once a job is Materialized it never goes back to Pending.
type Job struct {
	id               string
	kind             metrics.Kind
	target           string
	fullFeatureNames bool
	// timestampColumn is the result column the event timestamp range is
	// taken from.
	timestampColumn string
	compute         computeFunc
	clock           clockwork.Clock
	metrics         metrics.MetricsHandler

	mu       sync.Mutex
	state    State
	result   *pa.Table
	metadata Metadata
}

type jobParams struct {
	kind             metrics.Kind
	target           string
	fullFeatureNames bool
	timestampColumn  string
	featureRefs      []string
	keys             []string
	compute          computeFunc
	clock            clockwork.Clock
	metrics          metrics.MetricsHandler
}

func newJob(params jobParams) *Job {
	return &Job{
		id:               uuid.NewString(),
		kind:             params.kind,
		target:           params.target,
		fullFeatureNames: params.fullFeatureNames,
		timestampColumn:  params.timestampColumn,
		compute:          params.compute,
		clock:            params.clock,
		metrics:          params.metrics,
		state:            PENDING,
		metadata: Metadata{
			FeatureRefs: params.featureRefs,
			Keys:        params.keys,
		},
	}
}

func (j *Job) ID() string {
	return j.id
}

func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

func (j *Job) FullFeatureNames() bool {
	return j.fullFeatureNames
}

func (j *Job) Metadata() Metadata {
	j.mu.Lock()
	defer j.mu.Unlock()
	md := j.metadata
	md.FeatureRefs = append([]string(nil), j.metadata.FeatureRefs...)
	md.Keys = append([]string(nil), j.metadata.Keys...)
	return md
}

// Materialize computes the result on first call and returns the cached
// table afterwards. A failed computation leaves the job Pending.
func (j *Job) Materialize(ctx context.Context) (*pa.Table, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state == MATERIALIZED {
		return j.result, nil
	}
	logger := logging.GetLoggerFromContext(ctx).WithJob(j.id)
	ctx = logging.AddLoggerToContext(ctx, logger)
	observer := j.metrics.BeginObservingRetrieval(j.kind, j.target)
	start := j.clock.Now()
	logger.Infow("Materializing job", "kind", j.kind, "target", j.target)
	result, err := j.compute(ctx)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		observer.SetError()
		logger.Errorw("Job materialization failed", "err", err)
		return nil, err
	}
	observer.ServeRows(result.NumRows())
	observer.Finish()
	j.result = result
	j.state = MATERIALIZED
	j.metadata.MaterializedAt = j.clock.Now()
	j.metadata.MinEventTimestamp, j.metadata.MaxEventTimestamp = timestampRange(result, j.timestampColumn)
	logger.Infow("Job materialized", "rows", result.NumRows(), "duration", j.clock.Since(start).String())
	return result, nil
}

// ToColumnarBuffer returns the result as an Arrow IPC stream,
// materializing the job first if needed.
func (j *Job) ToColumnarBuffer(ctx context.Context) ([]byte, error) {
	result, err := j.Materialize(ctx)
	if err != nil {
		return nil, err
	}
	return pa.ToIPCBytes(result)
}

// Persist writes the materialized result to sink.
func (j *Job) Persist(ctx context.Context, sink provider.Sink) error {
	j.mu.Lock()
	state, result := j.state, j.result
	j.mu.Unlock()
	if state != MATERIALIZED {
		return fferr.NewNotMaterializedError(j.id, "persist")
	}
	logger := logging.GetLoggerFromContext(ctx).WithJob(j.id)
	if err := sink.Write(ctx, result); err != nil {
		logger.Errorw("Failed to persist job", "err", err)
		return err
	}
	logger.Infow("Persisted job", "rows", result.NumRows())
	return nil
}

func timestampRange(table *pa.Table, column string) (time.Time, time.Time) {
	arr, _, has := table.Column(column)
	if !has {
		return time.Time{}, time.Time{}
	}
	var lo, hi int64
	found := false
	for i := 0; i < arr.Len(); i++ {
		v, ok := pa.TimestampMicros(arr, i)
		if !ok {
			continue
		}
		if !found || v < lo {
			lo = v
		}
		if !found || v > hi {
			hi = v
		}
		found = true
	}
	if !found {
		return time.Time{}, time.Time{}
	}
	return time.UnixMicro(lo).UTC(), time.UnixMicro(hi).UTC()
}
