// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package utilmetric

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/rpc/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/pegvm/utils/wrappers"
)

type APIInterceptor interface {
	InterceptRequest(i *rpc.RequestInfo) *http.Request
	AfterRequest(i *rpc.RequestInfo)
}

type contextKey int

const requestTimestampKey contextKey = iota

var methodLabels = []string{"method"}

type apiInterceptor struct {
	requestDurationCount *prometheus.CounterVec
	requestDurationSum   *prometheus.GaugeVec
	requestErrors        *prometheus.CounterVec
}

func NewAPIInterceptor(namespace string, reg prometheus.Registerer) (APIInterceptor, error) {
	namespace = AppendNamespace(namespace, "api_interceptor")
	apr := &apiInterceptor{
		requestDurationCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "request_duration_count",
				Help:      "Number of times this type of request was made",
			},
			methodLabels,
		),
		requestDurationSum: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "request_duration_sum",
				Help:      "Amount of time in nanoseconds that has been spent handling this type of request",
			},
			methodLabels,
		),
		requestErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "request_error_count",
				Help:      "Number of request errors",
			},
			methodLabels,
		),
	}

	errs := wrappers.Errs{}
	errs.Add(
		reg.Register(apr.requestDurationCount),
		reg.Register(apr.requestDurationSum),
		reg.Register(apr.requestErrors),
	)
	return apr, errs.Err
}

func (*apiInterceptor) InterceptRequest(i *rpc.RequestInfo) *http.Request {
	ctx := i.Request.Context()
	ctx = context.WithValue(ctx, requestTimestampKey, time.Now())
	return i.Request.WithContext(ctx)
}

func (apr *apiInterceptor) AfterRequest(i *rpc.RequestInfo) {
	timestampIntf := i.Request.Context().Value(requestTimestampKey)
	timestamp, ok := timestampIntf.(time.Time)
	if !ok {
		return
	}

	labels := prometheus.Labels{
		"method": i.Method,
	}
	apr.requestDurationCount.With(labels).Inc()

	duration := time.Since(timestamp)
	apr.requestDurationSum.With(labels).Add(float64(duration))

	if i.Error != nil {
		apr.requestErrors.With(labels).Inc()
	}
}
