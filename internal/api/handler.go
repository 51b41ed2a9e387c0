package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"carpark-status-backend/internal/ingest"
	"carpark-status-backend/internal/status"
	"carpark-status-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.EventStore
	resolver *status.Resolver
	job      *ingest.Job
	webpush  *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.EventStore, resolver *status.Resolver, job *ingest.Job, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:    s,
		resolver: resolver,
		job:      job,
		webpush:  webpushOptions,
	}
}
