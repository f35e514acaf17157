// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

type Kind string

const (
	HISTORICAL_FEATURES Kind = "historical_features"
	PULL_LATEST         Kind = "pull_latest"
	PULL_ALL            Kind = "pull_all"
)

const (
	RUNNING = "running"
	ERROR   = "error"
	SUCCESS = "success"
)

type MetricsHandler interface {
	BeginObservingRetrieval(kind Kind, name string) RetrievalObserver
	Handler() http.Handler
}

// RetrievalObserver times one retrieval. Exactly one of SetError or Finish
// should be called.
type RetrievalObserver interface {
	SetError()
	ServeRows(n int)
	Finish()
}

type PromMetricsHandler struct {
	Hist     *prometheus.HistogramVec
	Count    *prometheus.CounterVec
	Rows     *prometheus.CounterVec
	Name     string
	gatherer prometheus.Gatherer
}

type PromRetrievalObserver struct {
	Timer  *prometheus.Timer
	Count  *prometheus.CounterVec
	Rows   *prometheus.CounterVec
	Name   string
	Kind   Kind
	Target string
	status *string
}

// NewMetrics registers the retrieval collectors with registerer. A nil
// registerer uses the prometheus default registry.
func NewMetrics(name string, registerer prometheus.Registerer) (PromMetricsHandler, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := registerer.(prometheus.Gatherer); ok {
		gatherer = g
	}
	count := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_retrievals", name),
			Help: "Counter for historical retrievals, labeled by kind, name and status",
		},
		[]string{"instance", "kind", "name", "status"},
	)
	latency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fmt.Sprintf("%s_retrieval_duration_seconds", name),
			Help:    "Latency for historical retrievals, labeled by kind, name and status",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"instance", "kind", "name", "status"},
	)
	rows := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_rows_served", name),
			Help: "Rows returned by historical retrievals, labeled by kind and name",
		},
		[]string{"instance", "kind", "name"},
	)
	for _, c := range []prometheus.Collector{count, latency, rows} {
		if err := registerer.Register(c); err != nil {
			return PromMetricsHandler{}, err
		}
	}
	return PromMetricsHandler{
		Hist:     latency,
		Count:    count,
		Rows:     rows,
		Name:     name,
		gatherer: gatherer,
	}, nil
}

func (p PromMetricsHandler) BeginObservingRetrieval(kind Kind, name string) RetrievalObserver {
	status := RUNNING
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		p.Hist.WithLabelValues(p.Name, string(kind), name, status).Observe(v)
	}))
	return PromRetrievalObserver{
		Timer:  timer,
		Count:  p.Count,
		Rows:   p.Rows,
		Name:   p.Name,
		Kind:   kind,
		Target: name,
		status: &status,
	}
}

func (p PromMetricsHandler) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

func (p PromRetrievalObserver) SetError() {
	p.finish(ERROR)
}

func (p PromRetrievalObserver) ServeRows(n int) {
	p.Rows.WithLabelValues(p.Name, string(p.Kind), p.Target).Add(float64(n))
}

func (p PromRetrievalObserver) Finish() {
	p.finish(SUCCESS)
}

func (p PromRetrievalObserver) finish(status string) {
	*p.status = status
	p.Timer.ObserveDuration()
	p.Count.WithLabelValues(p.Name, string(p.Kind), p.Target, status).Inc()
}

func (p PromRetrievalObserver) GetObservedRowCount() (int, error) {
	var m = &dto.Metric{}
	if err := p.Rows.WithLabelValues(p.Name, string(p.Kind), p.Target).Write(m); err != nil {
		return 0, err
	}
	return int(m.Counter.GetValue()), nil
}

func (p PromRetrievalObserver) GetObservedErrorCount() (int, error) {
	var m = &dto.Metric{}
	if err := p.Count.WithLabelValues(p.Name, string(p.Kind), p.Target, ERROR).Write(m); err != nil {
		return 0, err
	}
	return int(m.Counter.GetValue()), nil
}
