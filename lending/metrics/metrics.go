// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"errors"
	"time"

	"github.com/luxfi/metric"

	utilmetric "github.com/luxfi/lending/utils/metric"
	"github.com/luxfi/lending/utils/wrappers"
)

const (
	actionLabel = "action"
	resultLabel = "result"

	accepted = "accepted"
)

var (
	_ Metrics = (*metricsImpl)(nil)

	errNotRegistry = errors.New("registerer must be a Registry")
)

type Metrics interface {
	utilmetric.APIInterceptor

	// Mark that a verdict was returned for the given action. reason is empty
	// for accepted actions.
	MarkVerdict(action string, reason string)
	// Mark that a market was refreshed.
	MarkRefresh()
	// Mark that a portfolio was evaluated, and how long it took.
	MarkEvaluation(time.Duration)
	// Mark that a request was rejected as malformed.
	MarkInvalidInput()
}

func New(namespace string, registerer metric.Registerer) (Metrics, error) {
	registry, ok := registerer.(metric.Registry)
	if !ok {
		return nil, errNotRegistry
	}

	m := &metricsImpl{
		verdicts: metric.NewCounterVec(
			metric.CounterOpts{
				Name: utilmetric.AppendNamespace(namespace, "verdicts"),
				Help: "number of action verdicts by action and result",
			},
			[]string{actionLabel, resultLabel},
		),
		refreshes: metric.NewCounter(metric.CounterOpts{
			Name: utilmetric.AppendNamespace(namespace, "market_refreshes"),
			Help: "number of market snapshots refreshed",
		}),
		invalidInputs: metric.NewCounter(metric.CounterOpts{
			Name: utilmetric.AppendNamespace(namespace, "invalid_inputs"),
			Help: "number of requests rejected as malformed",
		}),
	}

	errs := wrappers.Errs{}
	m.evaluations = utilmetric.NewAveragerWithErrs(
		utilmetric.AppendNamespace(namespace, "evaluation_duration"),
		"time spent evaluating portfolios in nanoseconds",
		registerer,
		&errs,
	)

	apiRequestMetrics, err := utilmetric.NewAPIInterceptor(namespace, registry)
	errs.Add(err)
	m.APIInterceptor = apiRequestMetrics

	errs.Add(
		registerer.Register(metric.AsCollector(m.verdicts)),
		registerer.Register(metric.AsCollector(m.refreshes)),
		registerer.Register(metric.AsCollector(m.invalidInputs)),
	)
	return m, errs.Err
}

type metricsImpl struct {
	utilmetric.APIInterceptor

	verdicts      metric.CounterVec
	refreshes     metric.Counter
	invalidInputs metric.Counter
	evaluations   utilmetric.Averager
}

func (m *metricsImpl) MarkVerdict(action string, reason string) {
	result := reason
	if result == "" {
		result = accepted
	}
	m.verdicts.With(metric.Labels{
		actionLabel: action,
		resultLabel: result,
	}).Inc()
}

func (m *metricsImpl) MarkRefresh() {
	m.refreshes.Inc()
}

func (m *metricsImpl) MarkEvaluation(d time.Duration) {
	m.evaluations.Observe(float64(d))
}

func (m *metricsImpl) MarkInvalidInput() {
	m.invalidInputs.Inc()
}
