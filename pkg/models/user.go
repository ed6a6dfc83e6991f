// Package models defines the data types shared between the receiver,
// storage backends and the REST API.
package models

import (
	"errors"
	"time"
)

// ErrNotFound is the shared sentinel wrapped by all storage backends when
// a requested record does not exist.
var ErrNotFound = errors.New("not found")

// UserRecord is the stored result of one directory-sync event: the user's
// identity plus the custom attributes extracted from the SCIM payload.
// Attribute values are either string or []string, nothing else.
type UserRecord struct {
	DirectoryID string         `json:"directory_id"`
	UserID      string         `json:"user_id"`
	UserName    string         `json:"user_name,omitempty"`
	Event       string         `json:"event"`
	DeliveryID  string         `json:"delivery_id,omitempty"`
	Attributes  map[string]any `json:"attributes"`
	ReceivedAt  time.Time      `json:"received_at"`
}

// Clone returns a deep copy of the record. Stores hand out clones so
// callers can't mutate shared state.
func (u *UserRecord) Clone() *UserRecord {
	if u == nil {
		return nil
	}
	c := *u
	c.Attributes = CloneAttributes(u.Attributes)
	return &c
}

// CloneAttributes deep-copies an attribute map, copying []string values.
func CloneAttributes(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		if list, ok := v.([]string); ok {
			out[k] = append([]string(nil), list...)
			continue
		}
		out[k] = v
	}
	return out
}

// NormalizeAttributes repairs attribute maps that went through a JSON
// round trip: lists come back as []any and are converted to []string,
// dropping non-string elements.
func NormalizeAttributes(attrs map[string]any) map[string]any {
	for k, v := range attrs {
		if list, ok := v.([]any); ok {
			strs := make([]string, 0, len(list))
			for _, elem := range list {
				if s, ok := elem.(string); ok {
					strs = append(strs, s)
				}
			}
			attrs[k] = strs
		}
	}
	return attrs
}

// DirectorySummary aggregates what the API reports per directory.
type DirectorySummary struct {
	DirectoryID string    `json:"directory_id"`
	UserCount   int       `json:"user_count"`
	LastEventAt time.Time `json:"last_event_at"`
}
