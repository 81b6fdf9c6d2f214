// Package models defines types shared across internal packages.
package models

import "time"

// RemoteItem is an uploaded asset as reported by the remote store. The sync
// engine only relies on ID; the other fields feed the preview server and
// CLI listings and may be zero.
type RemoteItem struct {
	ID           string    `json:"id"`
	Size         int64     `json:"size,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	OriginalName string    `json:"originalName,omitempty"`
	TTS          string    `json:"tts,omitempty"`
	IsProcessed  bool      `json:"isProcessed,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// Quota reports storage usage for one asset kind, in bytes.
type Quota struct {
	Total int64 `json:"total"`
	Used  int64 `json:"used"`
}
