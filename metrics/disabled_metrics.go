// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package metrics

import "net/http"

type NoOpMetricsHandler struct{}

func (nop *NoOpMetricsHandler) BeginObservingRetrieval(kind Kind, name string) RetrievalObserver {
	return &NoOpRetrievalObserver{}
}

func (nop *NoOpMetricsHandler) Handler() http.Handler {
	return http.NotFoundHandler()
}

type NoOpRetrievalObserver struct{}

func (nop *NoOpRetrievalObserver) SetError()       {}
func (nop *NoOpRetrievalObserver) ServeRows(n int) {}
func (nop *NoOpRetrievalObserver) Finish()         {}
