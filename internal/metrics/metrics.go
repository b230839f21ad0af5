package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BackendErrors counts failed durable backend operations per collection.
var BackendErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "salakbook_backend_errors_total",
	Help: "Durable backend operations that returned an error.",
}, []string{"collection"})

// BackendFallbacks counts operations rerun on the ephemeral backend.
var BackendFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "salakbook_backend_fallback_total",
	Help: "Store operations served by the in-memory fallback.",
}, []string{"collection"})
