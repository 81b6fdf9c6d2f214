// Package preview serves a skill webhook that walks through the uploaded
// assets one per request, so images and sounds can be checked on a real
// device.
package preview

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/alexjbarnes/asset-sync/internal/assetsync"
	"github.com/alexjbarnes/asset-sync/internal/models"
)

const (
	silenceTTS   = "sil <[100]>"
	noItemsText  = "No assets on the server."
	nextButton   = "Next"
	defaultTitle = "image"
	bigImageCard = "BigImage"
)

// Response is the response object of a skill webhook answer.
type Response struct {
	Text       string   `json:"text"`
	TTS        string   `json:"tts,omitempty"`
	Card       *Card    `json:"card,omitempty"`
	Buttons    []Button `json:"buttons,omitempty"`
	EndSession bool     `json:"end_session"`
}

// Card is a BigImage card.
type Card struct {
	Type        string `json:"type"`
	ImageID     string `json:"image_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Button is a suggest button shown under the response.
type Button struct {
	Title string `json:"title"`
	Hide  bool   `json:"hide"`
}

type entry struct {
	item models.RemoteItem
	name string
}

// Responder cycles through remote items newest first. It is safe for
// concurrent use.
type Responder struct {
	mu      sync.Mutex
	entries []entry
	index   int
	now     func() time.Time
}

// NewResponder orders items newest first. When m is non-nil, items it
// references are titled with their local file name.
func NewResponder(items []models.RemoteItem, m *assetsync.Manifest) *Responder {
	names := make(map[string]string)

	if m != nil {
		for _, e := range m.Entries() {
			if e.Path != "" {
				names[e.RemoteID] = filepath.Base(e.Path)
			}
		}
	}

	entries := make([]entry, 0, len(items))
	for _, item := range items {
		name := item.OriginalName
		if n, ok := names[item.ID]; ok {
			name = n
		}

		entries = append(entries, entry{item: item, name: name})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].item.CreatedAt.After(entries[j].item.CreatedAt)
	})

	return &Responder{entries: entries, index: -1, now: time.Now}
}

// Len returns the number of items being cycled.
func (r *Responder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

// Next returns the response for the next item, wrapping around at the end.
func (r *Responder) Next() Response {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) == 0 {
		return Response{Text: noItemsText, TTS: silenceTTS}
	}

	r.index = (r.index + 1) % len(r.entries)
	e := r.entries[r.index]
	info := r.fileInfo(e.item)

	var resp Response
	if e.item.TTS != "" {
		resp = soundResponse(e, info)
	} else {
		resp = imageResponse(e, info)
	}

	resp.Buttons = []Button{{Title: nextButton, Hide: true}}

	return resp
}

func soundResponse(e entry, info string) Response {
	return Response{
		Text: joinNonEmpty(e.name, info, e.item.Error),
		TTS:  e.item.TTS,
	}
}

func imageResponse(e entry, info string) Response {
	title := e.name
	if title == "" {
		title = defaultTitle
	}

	return Response{
		Text: joinNonEmpty(e.name, info),
		TTS:  silenceTTS,
		Card: &Card{
			Type:        bigImageCard,
			ImageID:     e.item.ID,
			Title:       title,
			Description: info,
		},
	}
}

// fileInfo renders "<age>, <size>", e.g. "3 minutes ago, 2.0 kB".
func (r *Responder) fileInfo(item models.RemoteItem) string {
	parts := make([]string, 0, 2)

	if !item.CreatedAt.IsZero() {
		parts = append(parts, humanize.RelTime(item.CreatedAt, r.now(), "ago", "from now"))
	}

	if item.Size > 0 {
		parts = append(parts, humanize.Bytes(uint64(item.Size)))
	}

	return strings.Join(parts, ", ")
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0]

	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}

	return strings.Join(kept, "\n")
}
