package assetsync

import (
	"context"

	"github.com/alexjbarnes/asset-sync/internal/models"
)

//go:generate mockgen -source=remote.go -destination=mock_remote_test.go -package=assetsync

// Remote is the asset store a manifest is synced against. Implementations
// own the wire format, auth, timeouts and retries. Upload is not assumed to
// be idempotent: every call may create a new remote item.
type Remote interface {
	List(ctx context.Context) ([]models.RemoteItem, error)
	Upload(ctx context.Context, data []byte, filename string) (string, error)
	Delete(ctx context.Context, id string) error
	// URL derives the public URL of an item locally, without a request.
	URL(id string) string
}

// TTSProvider is implemented by audio collections. When the Remote passed
// to a Syncer also implements it, manifests carry a stable ID to TTS markup
// table alongside the ID map.
type TTSProvider interface {
	TTS(id string) string
}

// RunRecorder receives a summary of every successful non-dry run.
type RunRecorder interface {
	RecordRun(run Run) error
}
