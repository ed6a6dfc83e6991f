// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsReceived counts webhook deliveries by event kind.
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dirsync_events_received_total",
		Help: "Directory-sync webhook deliveries received, by event kind.",
	}, []string{"event"})

	// EventsRejected counts deliveries that failed to parse.
	EventsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dirsync_events_rejected_total",
		Help: "Webhook deliveries rejected as malformed.",
	})

	// UsersStored counts user records written to storage.
	UsersStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dirsync_users_stored_total",
		Help: "User records upserted into storage.",
	})

	// AttributesExtracted counts custom attributes accepted by the
	// extractor across all deliveries.
	AttributesExtracted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dirsync_attributes_extracted_total",
		Help: "Custom attributes extracted from SCIM payloads.",
	})

	// StoreErrors counts failed storage writes.
	StoreErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dirsync_store_errors_total",
		Help: "Storage write failures.",
	})
)
