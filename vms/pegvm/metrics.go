// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pegvm

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/pegvm/utils/wrappers"

	utilmetric "github.com/luxfi/pegvm/utils/metric"
)

const opLabel = "op"

var opLabels = []string{opLabel}

type metrics struct {
	invocations *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	minted      prometheus.Counter
	burned      prometheus.Counter
	payments    prometheus.Counter
	payout      utilmetric.Averager
}

func newMetrics(namespace string, registerer prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invocations",
				Help:      "number of invocations that committed",
			},
			opLabels,
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rejections",
				Help:      "number of invocations that were rolled back",
			},
			opLabels,
		),
		minted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "minted",
			Help:      "base units of synthetic value minted",
		}),
		burned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "burned",
			Help:      "base units of synthetic value burned",
		}),
		payments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_queued",
			Help:      "number of payment records queued",
		}),
	}

	errs := wrappers.Errs{}
	m.payout = utilmetric.NewAveragerWithErrs(
		namespace,
		"payout",
		"base units burned per queued payment",
		registerer,
		&errs,
	)
	errs.Add(
		registerer.Register(m.invocations),
		registerer.Register(m.rejections),
		registerer.Register(m.minted),
		registerer.Register(m.burned),
		registerer.Register(m.payments),
	)
	return m, errs.Err
}

func (m *metrics) accepted(op string) {
	m.invocations.With(prometheus.Labels{opLabel: op}).Inc()
}

func (m *metrics) rejected(op string) {
	m.rejections.With(prometheus.Labels{opLabel: op}).Inc()
}
