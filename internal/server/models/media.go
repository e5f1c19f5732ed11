package models

import "time"

// MediaUpload instructs the browser to PUT a file straight to object
// storage using a presigned URL.
type MediaUpload struct {
	// Key is the object key the file will be stored under.
	Key string `json:"key"`
	// URL is the presigned PUT URL.
	URL string `json:"url"`
	// ContentType must be sent unchanged with the PUT.
	ContentType string `json:"contentType"`
	// ExpiresAt bounds the validity of URL.
	ExpiresAt time.Time `json:"expiresAt"`
}
