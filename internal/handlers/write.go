package handlers

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/clarkhacks/PersonalGram/internal/imaging"
	"github.com/clarkhacks/PersonalGram/internal/index"
	"github.com/clarkhacks/PersonalGram/internal/models"
	"github.com/clarkhacks/PersonalGram/internal/storage"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("personalgram-handlers")

// WriteHandler serves the admin mutation endpoints: upload and delete.
type WriteHandler struct {
	index          *index.Index
	blobs          storage.BlobStore
	maxUploadBytes int64
}

// NewWriteHandler creates a new write handler
func NewWriteHandler(idx *index.Index, blobs storage.BlobStore, maxUploadBytes int64) *WriteHandler {
	return &WriteHandler{
		index:          idx,
		blobs:          blobs,
		maxUploadBytes: maxUploadBytes,
	}
}

// UploadPhoto handles POST /api/photos with a multipart form carrying
// file, description and tags. Blob writes happen before the index
// insert so a listed photo always has its image data in place.
func (wh *WriteHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "upload_photo",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	r.Body = http.MaxBytesReader(w, r.Body, wh.maxUploadBytes)
	if err := r.ParseMultipartForm(wh.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing 'file' form field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		span.RecordError(err)
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	description := r.FormValue("description")
	tags := splitTags(r.FormValue("tags"))

	span.SetAttributes(
		attribute.String("filename", header.Filename),
		attribute.Int("size_bytes", len(data)),
	)

	log.Printf("Processing upload: %s (%d bytes)", header.Filename, len(data))
	result, err := imaging.Process(data)
	if err != nil {
		span.RecordError(err)
		writeError(w, http.StatusBadRequest, "unsupported or corrupt image")
		return
	}

	id := uuid.New().String()
	originalKey := fmt.Sprintf("photos/%s/original%s", id, extension(header.Filename, result.ContentType))
	thumbnailKey := fmt.Sprintf("photos/%s/thumbnail.jpg", id)

	span.SetAttributes(attribute.String("photo_id", id))

	log.Printf("Uploading blobs for photo %s...", id)
	if err := wh.blobs.Put(ctx, originalKey, data, result.ContentType); err != nil {
		span.RecordError(err)
		writeError(w, http.StatusInternalServerError, "failed to store original")
		return
	}
	if err := wh.blobs.Put(ctx, thumbnailKey, result.Thumbnail, "image/jpeg"); err != nil {
		span.RecordError(err)
		writeError(w, http.StatusInternalServerError, "failed to store thumbnail")
		return
	}

	photo := &models.Photo{
		ID:           id,
		Filename:     header.Filename,
		OriginalKey:  originalKey,
		ThumbnailKey: thumbnailKey,
		Placeholder:  result.Placeholder,
		Description:  description,
		Tags:         tags,
		UploadedAt:   time.Now().UTC(),
		Meta: models.PhotoMeta{
			Width:       result.Width,
			Height:      result.Height,
			SizeBytes:   int64(len(data)),
			ContentType: result.ContentType,
		},
	}

	log.Printf("Indexing photo %s...", id)
	if err := wh.index.Insert(ctx, photo); err != nil {
		span.RecordError(err)
		writeError(w, http.StatusInternalServerError, "failed to index photo")
		return
	}

	log.Printf("Upload completed: %s (ID: %s)", header.Filename, id)
	writeJSON(w, http.StatusCreated, photo)
}

// DeletePhoto handles DELETE /api/photos/{id}. Deleting an unknown or
// already-deleted id succeeds.
func (wh *WriteHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "delete_photo",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	id := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("photo_id", id))

	if err := wh.index.Delete(ctx, id); err != nil {
		span.RecordError(err)
		writeError(w, http.StatusInternalServerError, "failed to delete photo")
		return
	}

	log.Printf("Photo deleted: %s", id)
	w.WriteHeader(http.StatusNoContent)
}

// extension picks a file extension for the original blob key, falling
// back to the detected format when the filename has none.
func extension(filename, contentType string) string {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		return ext
	}
	if format, ok := strings.CutPrefix(contentType, "image/"); ok {
		return "." + format
	}
	return ".bin"
}
