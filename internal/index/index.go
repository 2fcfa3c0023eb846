package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/clarkhacks/PersonalGram/internal/models"
	"github.com/clarkhacks/PersonalGram/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("personalgram-index")

const (
	photoKeyPrefix = "photo:"
	orderListKey   = "photos:list"
)

// Index maintains the photo metadata records and the feed order list
// inside the metadata store. The order list under photos:list is the
// sole source of pagination truth; it is never re-derived from record
// timestamps.
type Index struct {
	kv    storage.KV
	blobs storage.BlobStore
}

// New creates a photo index over the given stores
func New(kv storage.KV, blobs storage.BlobStore) *Index {
	return &Index{kv: kv, blobs: blobs}
}

func photoKey(id string) string {
	return photoKeyPrefix + id
}

// Insert persists the record and prepends its id to the order list,
// making it the new feed head. There is no rollback: if the order-list
// write fails after the record write, the record is orphaned (reachable
// by id, invisible to listing) and the error is surfaced to the caller.
func (ix *Index) Insert(ctx context.Context, photo *models.Photo) error {
	ctx, span := tracer.Start(ctx, "index.insert",
		trace.WithAttributes(
			attribute.String("photo_id", photo.ID),
		),
	)
	defer span.End()

	data, err := json.Marshal(photo)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal photo record: %w", err)
	}
	if err := ix.kv.Put(ctx, photoKey(photo.ID), string(data)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to store photo record: %w", err)
	}

	// Read-modify-write with no atomic primitive: two concurrent inserts
	// race here and the last writer wins. Accepted for a single-admin
	// write path; a busier deployment would serialize mutations through
	// a single writer or use a store with atomic list ops.
	ids, err := ix.loadOrder(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}
	ids = append([]string{photo.ID}, ids...)
	if err := ix.storeOrder(ctx, ids); err != nil {
		span.RecordError(err)
		return fmt.Errorf("photo record stored but order list update failed: %w", err)
	}

	span.SetAttributes(attribute.Int("order_list_len", len(ids)))
	return nil
}

// Get fetches a record by id. An unknown id returns (nil, nil).
func (ix *Index) Get(ctx context.Context, id string) (*models.Photo, error) {
	value, ok, err := ix.kv.Get(ctx, photoKey(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var photo models.Photo
	if err := json.Unmarshal([]byte(value), &photo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal photo record: %w", err)
	}
	return &photo, nil
}

// ListPage returns up to limit records starting after cursor in feed
// order. A cursor that is no longer in the order list (deleted since it
// was issued) restarts from the head rather than erroring. Ids whose
// record is missing are skipped, so a page may hold fewer than limit
// records even when more ids remain.
func (ix *Index) ListPage(ctx context.Context, cursor string, limit int) (*models.PhotoPage, error) {
	ctx, span := tracer.Start(ctx, "index.list_page",
		trace.WithAttributes(
			attribute.String("cursor", cursor),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	ids, err := ix.loadOrder(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	start := 0
	if cursor != "" {
		for i, id := range ids {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}

	end := start + limit
	if end > len(ids) {
		end = len(ids)
	}
	taken := ids[start:end]

	page := &models.PhotoPage{
		Photos:  make([]*models.Photo, 0, len(taken)),
		HasMore: end < len(ids),
	}
	for _, id := range taken {
		photo, err := ix.Get(ctx, id)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if photo == nil {
			// listed but unfetchable: record deleted without a list
			// splice; skip silently
			continue
		}
		page.Photos = append(page.Photos, photo)
	}
	if page.HasMore && len(taken) > 0 {
		page.NextCursor = taken[len(taken)-1]
	}

	span.SetAttributes(
		attribute.Int("photos_returned", len(page.Photos)),
		attribute.Bool("has_more", page.HasMore),
	)
	return page, nil
}

// Search scans the order list from the head, newest first, collecting
// records that match both predicates until limit matches are found or
// the list is exhausted. This is a deliberate linear full-history scan
// with no secondary index, sized for a single personal archive.
func (ix *Index) Search(ctx context.Context, query string, tags []string, limit int) ([]*models.Photo, error) {
	ctx, span := tracer.Start(ctx, "index.search",
		trace.WithAttributes(
			attribute.String("query", query),
			attribute.StringSlice("tags", tags),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	ids, err := ix.loadOrder(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	needle := strings.ToLower(query)
	matches := make([]*models.Photo, 0, limit)
	for _, id := range ids {
		if len(matches) >= limit {
			break
		}
		photo, err := ix.Get(ctx, id)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if photo == nil {
			continue
		}
		if matchesQuery(photo, needle) && matchesTags(photo, tags) {
			matches = append(matches, photo)
		}
	}

	span.SetAttributes(attribute.Int("matches", len(matches)))
	return matches, nil
}

// matchesQuery reports whether needle (already lowercased) is blank or
// appears case-insensitively in the description or any tag.
func matchesQuery(photo *models.Photo, needle string) bool {
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(photo.Description), needle) {
		return true
	}
	for _, tag := range photo.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// matchesTags reports whether the filter is empty or any requested tag
// is an exact member of the photo's tags.
func matchesTags(photo *models.Photo, want []string) bool {
	if len(want) == 0 {
		return true
	}
	for _, w := range want {
		for _, tag := range photo.Tags {
			if tag == w {
				return true
			}
		}
	}
	return false
}

// Delete removes the blobs, the record and the order-list entry for id.
// The three removals are independent: a failed blob removal is logged
// and does not block the metadata removals, since an orphaned blob is
// preferable to a still-listed record. Deleting an unknown id is a
// no-op.
func (ix *Index) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "index.delete",
		trace.WithAttributes(
			attribute.String("photo_id", id),
		),
	)
	defer span.End()

	photo, err := ix.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if photo != nil {
		if photo.OriginalKey != "" {
			if err := ix.blobs.Delete(ctx, photo.OriginalKey); err != nil {
				log.Printf("Warning: failed to delete original blob for %s: %v", id, err)
			}
		}
		if photo.ThumbnailKey != "" {
			if err := ix.blobs.Delete(ctx, photo.ThumbnailKey); err != nil {
				log.Printf("Warning: failed to delete thumbnail blob for %s: %v", id, err)
			}
		}
	}

	if err := ix.kv.Delete(ctx, photoKey(id)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete photo record: %w", err)
	}

	ids, err := ix.loadOrder(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}
	// Splice by value, not index, so a repeat delete finds nothing to do.
	kept := ids[:0]
	for _, existing := range ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	if len(kept) == len(ids) {
		return nil
	}
	if err := ix.storeOrder(ctx, kept); err != nil {
		span.RecordError(err)
		return fmt.Errorf("photo record deleted but order list update failed: %w", err)
	}

	return nil
}

func (ix *Index) loadOrder(ctx context.Context) ([]string, error) {
	value, ok, err := ix.kv.Get(ctx, orderListKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load order list: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(value), &ids); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order list: %w", err)
	}
	return ids, nil
}

func (ix *Index) storeOrder(ctx context.Context, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to marshal order list: %w", err)
	}
	return ix.kv.Put(ctx, orderListKey, string(data))
}
