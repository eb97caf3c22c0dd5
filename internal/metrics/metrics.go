// Package metrics holds the Prometheus collectors of the game. They live in
// a private registry rather than prometheus.DefaultRegisterer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	llmRequests = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "textquest_llm_requests_total",
			Help: "Total number of chat completion requests, by provider and outcome.",
		},
		[]string{"provider", "status"},
	)
	llmRequestDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "textquest_llm_request_duration_seconds",
			Help:    "Duration of chat completion requests.",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"provider"},
	)
	llmPromptTokens = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "textquest_llm_prompt_tokens",
			Help:    "Prompt token counts reported by the provider.",
			Buckets: prometheus.LinearBuckets(500, 500, 16),
		},
		[]string{"provider"},
	)
	llmCompletionTokens = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "textquest_llm_completion_tokens",
			Help:    "Completion token counts reported by the provider.",
			Buckets: prometheus.LinearBuckets(100, 100, 15),
		},
		[]string{"provider"},
	)

	turns = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "textquest_turns_total",
			Help: "Finished turns, by outcome (success, error, exhausted, canceled).",
		},
		[]string{"outcome"},
	)
	turnRetries = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Name: "textquest_turn_retries_total",
			Help: "Retries scheduled after transient provider failures.",
		},
	)
	malformedReplies = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Name: "textquest_malformed_replies_total",
			Help: "Model replies without a choice block.",
		},
	)
)

func RecordLLMRequest(provider, status string, d time.Duration) {
	llmRequests.WithLabelValues(provider, status).Inc()
	llmRequestDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func RecordLLMTokens(provider string, prompt, completion int) {
	if prompt > 0 {
		llmPromptTokens.WithLabelValues(provider).Observe(float64(prompt))
	}
	if completion > 0 {
		llmCompletionTokens.WithLabelValues(provider).Observe(float64(completion))
	}
}

func RecordTurn(outcome string) { turns.WithLabelValues(outcome).Inc() }

func IncRetry() { turnRetries.Inc() }

func IncMalformedReply() { malformedReplies.Inc() }

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
