package handlers

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/clarkhacks/PersonalGram/internal/index"
	"github.com/clarkhacks/PersonalGram/internal/models"
	"github.com/clarkhacks/PersonalGram/internal/storage"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ReadHandler serves the public feed: list/search, single-record fetch
// and blob streaming.
type ReadHandler struct {
	index *index.Index
	blobs storage.BlobStore
}

// NewReadHandler creates a new read handler
func NewReadHandler(idx *index.Index, blobs storage.BlobStore) *ReadHandler {
	return &ReadHandler{index: idx, blobs: blobs}
}

// ListPhotos handles GET /api/photos?cursor=&limit=&q=&tags=
// With q or tags present it searches; otherwise it pages the feed.
func (rh *ReadHandler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "list_photos",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	query := r.URL.Query()
	cursor := query.Get("cursor")
	limit := parseLimit(query.Get("limit"))
	q := query.Get("q")
	tags := splitTags(query.Get("tags"))

	span.SetAttributes(
		attribute.String("cursor", cursor),
		attribute.Int("limit", limit),
		attribute.String("q", q),
		attribute.StringSlice("tags", tags),
	)

	if q != "" || len(tags) > 0 {
		photos, err := rh.index.Search(ctx, q, tags, limit)
		if err != nil {
			span.RecordError(err)
			writeError(w, http.StatusInternalServerError, "search failed")
			return
		}
		writeJSON(w, http.StatusOK, models.PhotoPage{Photos: photos})
		return
	}

	page, err := rh.index.ListPage(ctx, cursor, limit)
	if err != nil {
		span.RecordError(err)
		writeError(w, http.StatusInternalServerError, "failed to list photos")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetPhoto handles GET /api/photos/{id}. Direct id lookup, so it also
// reaches records that have fallen out of the order list.
func (rh *ReadHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "get_photo",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	id := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("photo_id", id))

	photo, err := rh.index.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		writeError(w, http.StatusInternalServerError, "failed to load photo")
		return
	}
	if photo == nil {
		writeError(w, http.StatusNotFound, "photo not found")
		return
	}
	writeJSON(w, http.StatusOK, photo)
}

// ServeOriginal handles GET /api/photos/{id}/original
func (rh *ReadHandler) ServeOriginal(w http.ResponseWriter, r *http.Request) {
	rh.serveBlob(w, r, "serve_original", func(photo *models.Photo) (string, string) {
		return photo.OriginalKey, photo.Meta.ContentType
	})
}

// ServeThumbnail handles GET /api/photos/{id}/thumbnail
func (rh *ReadHandler) ServeThumbnail(w http.ResponseWriter, r *http.Request) {
	rh.serveBlob(w, r, "serve_thumbnail", func(photo *models.Photo) (string, string) {
		return photo.ThumbnailKey, "image/jpeg"
	})
}

func (rh *ReadHandler) serveBlob(w http.ResponseWriter, r *http.Request, spanName string, pick func(*models.Photo) (key, contentType string)) {
	ctx, span := tracer.Start(r.Context(), spanName,
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	id := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("photo_id", id))

	photo, err := rh.index.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		writeError(w, http.StatusInternalServerError, "failed to load photo")
		return
	}
	if photo == nil {
		writeError(w, http.StatusNotFound, "photo not found")
		return
	}

	key, contentType := pick(photo)
	data, err := rh.blobs.Get(ctx, key)
	if err != nil {
		span.RecordError(err)
		log.Printf("Failed to fetch blob %s: %v", key, err)
		writeError(w, http.StatusNotFound, "image data not found")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func parseLimit(raw string) int {
	if raw == "" {
		return defaultPageSize
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}
