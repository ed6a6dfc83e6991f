// Package receiver implements the directory-sync webhook endpoint.
package receiver

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/haldin/scim_attribute_sync/internal/extract"
	"github.com/haldin/scim_attribute_sync/internal/metrics"
	"github.com/haldin/scim_attribute_sync/internal/scim"
	"github.com/haldin/scim_attribute_sync/internal/storage"
	"github.com/haldin/scim_attribute_sync/pkg/models"
)

// maxBodySize caps webhook bodies; IdP payloads are single users.
const maxBodySize = 1 << 20

// decompressGzip decompresses gzip-encoded data
func decompressGzip(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// Receiver handles directory-sync webhook deliveries.
type Receiver struct {
	store     storage.Storage
	extractor *extract.Extractor
	logger    *slog.Logger
	server    *http.Server
}

// deliveryResponse acknowledges one webhook delivery.
type deliveryResponse struct {
	DeliveryID          string `json:"delivery_id"`
	Event               string `json:"event"`
	AttributesExtracted int    `json:"attributes_extracted"`
	Stored              bool   `json:"stored"`
}

// New creates a webhook receiver listening on addr.
func New(addr string, store storage.Storage, extractor *extract.Extractor, logger *slog.Logger) *Receiver {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Receiver{
		store:     store,
		extractor: extractor,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhooks/directory-sync/{directoryID}", r.handleDelivery)
	mux.HandleFunc("GET /health", r.handleHealth)

	r.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	return r
}

// Start starts the HTTP server.
func (r *Receiver) Start() error {
	return r.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (r *Receiver) Shutdown(ctx context.Context) error {
	return r.server.Shutdown(ctx)
}

// Handler exposes the receiver's routes for tests.
func (r *Receiver) Handler() http.Handler {
	return r.server.Handler
}

// handleDelivery processes one webhook delivery. Parse failures are the
// only 4xx: an unsupported event kind is expected traffic and is ACKed
// with 200 so the IdP doesn't retry it forever.
func (r *Receiver) handleDelivery(w http.ResponseWriter, req *http.Request) {
	directoryID := req.PathValue("directoryID")

	reader := io.ReadCloser(req.Body)
	if req.Header.Get("Content-Encoding") == "gzip" {
		var err error
		reader, err = decompressGzip(req.Body)
		if err != nil {
			metrics.EventsRejected.Inc()
			http.Error(w, fmt.Sprintf("Failed to decompress: %v", err), http.StatusBadRequest)
			return
		}
		defer reader.Close()
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxBodySize))
	if err != nil {
		metrics.EventsRejected.Inc()
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	kind := scim.SniffEventKind(body)
	if kind == "" {
		kind = "unknown"
	}
	metrics.EventsReceived.WithLabelValues(kind).Inc()

	ev, err := scim.ParseEvent(body)
	if err != nil {
		metrics.EventsRejected.Inc()
		r.logger.Warn("rejecting malformed delivery", "directory", directoryID, "err", err)
		http.Error(w, fmt.Sprintf("Invalid event payload: %v", err), http.StatusBadRequest)
		return
	}

	deliveryID := uuid.NewString()
	attrs := r.extractor.Extract(ev, directoryID)
	metrics.AttributesExtracted.Add(float64(len(attrs)))

	stored := false
	if scim.SupportedEvent(ev.Event) {
		stored = r.storeUser(req.Context(), directoryID, deliveryID, ev, attrs)
	}

	resp := deliveryResponse{
		DeliveryID:          deliveryID,
		Event:               ev.Event,
		AttributesExtracted: len(attrs),
		Stored:              stored,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

func (r *Receiver) storeUser(ctx context.Context, directoryID, deliveryID string, ev *scim.Event, attrs extract.Attributes) bool {
	userID := scim.UserID(ev.Data.Raw)
	if userID == "" {
		r.logger.Warn("event has no user identity, skipping store",
			"directory", directoryID, "event", ev.Event, "delivery", deliveryID)
		return false
	}

	user := &models.UserRecord{
		DirectoryID: directoryID,
		UserID:      userID,
		UserName:    scim.UserName(ev.Data.Raw),
		Event:       ev.Event,
		DeliveryID:  deliveryID,
		Attributes:  attrs,
		ReceivedAt:  time.Now().UTC(),
	}
	if err := r.store.StoreUser(ctx, user); err != nil {
		metrics.StoreErrors.Inc()
		r.logger.Error("storing user failed",
			"directory", directoryID, "user", userID, "err", err)
		return false
	}
	metrics.UsersStored.Inc()
	return true
}

func (r *Receiver) handleHealth(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, `{"status":"ok"}`)
}
