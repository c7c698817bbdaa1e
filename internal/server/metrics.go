package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chatRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "esgcopilot_chat_requests_total",
		Help: "Chat requests received.",
	})
	chatFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "esgcopilot_chat_failures_total",
		Help: "Chat requests that ended in an error response.",
	})
	autofillRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "esgcopilot_autofill_requests_total",
		Help: "Autofill requests received.",
	})
	autofillFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "esgcopilot_autofill_failures_total",
		Help: "Autofill requests that ended in an error response.",
	})
	chunksIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "esgcopilot_chunks_ingested_total",
		Help: "Document chunks embedded and stored.",
	})
)
