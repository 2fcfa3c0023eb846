package models

import "time"

// PhotoMeta is the embedded technical metadata block of a photo record.
type PhotoMeta struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentType string `json:"content_type"`
}

// Photo is the metadata record stored under photo:<id>.
// ID, storage keys and UploadedAt are immutable after creation.
type Photo struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	OriginalKey  string    `json:"original_key"`
	ThumbnailKey string    `json:"thumbnail_key"`
	Placeholder  string    `json:"placeholder"`
	Description  string    `json:"description"`
	Tags         []string  `json:"tags"`
	UploadedAt   time.Time `json:"uploaded_at"`
	Meta         PhotoMeta `json:"meta"`
}

// PhotoPage is one page of the feed plus pagination metadata.
type PhotoPage struct {
	Photos     []*Photo `json:"photos"`
	NextCursor string   `json:"next_cursor,omitempty"`
	HasMore    bool     `json:"has_more"`
}

// Session maps an opaque bearer token to the admin identity and an
// absolute expiry. Stored under session:<token>.
type Session struct {
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AdminCredentials is the single admin record stored under
// admin:credentials. PasswordHash is a bcrypt hash, never the secret.
type AdminCredentials struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
}
