package assetsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"

	errs "github.com/alexjbarnes/asset-sync/internal/errors"
	"github.com/alexjbarnes/asset-sync/internal/models"
)

// DefaultConcurrency is the number of uploads or deletes in flight at once
// when Config.Concurrency is not set.
const DefaultConcurrency = 4

// TransformFunc rewrites file contents before upload. The path is the local
// file the data was read from.
type TransformFunc func(data []byte, path string) ([]byte, error)

// RunKind names the operation recorded in a Run.
type RunKind string

const (
	// RunUpload records an UploadChanged call.
	RunUpload RunKind = "upload"
	// RunDeleteUnused records a DeleteUnused call.
	RunDeleteUnused RunKind = "delete-unused"
)

// Run summarises one completed non-dry operation for a target.
type Run struct {
	Target   string    `json:"target"`
	Kind     RunKind   `json:"kind"`
	At       time.Time `json:"at"`
	Uploaded []string  `json:"uploaded,omitempty"`
	Skipped  []string  `json:"skipped,omitempty"`
	Deleted  []string  `json:"deleted,omitempty"`
}

// Config holds the Syncer's collaborators.
type Config struct {
	// Concurrency caps parallel remote calls. Zero means DefaultConcurrency.
	Concurrency int
	Logger      *slog.Logger
	// Recorder is optional. Failures to record are logged, never returned.
	Recorder RunRecorder
	// Now defaults to time.Now.
	Now func() time.Time
}

// Syncer keeps a Remote collection in step with local files.
type Syncer struct {
	remote      Remote
	concurrency int
	logger      *slog.Logger
	recorder    RunRecorder
	now         func() time.Time
}

// NewSyncer returns a Syncer for remote.
func NewSyncer(remote Remote, cfg Config) *Syncer {
	s := &Syncer{
		remote:      remote,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
		recorder:    cfg.Recorder,
		now:         cfg.Now,
	}

	if s.concurrency <= 0 {
		s.concurrency = DefaultConcurrency
	}

	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	if s.now == nil {
		s.now = time.Now
	}

	return s
}

// UploadOptions configures a single UploadChanged call.
type UploadOptions struct {
	// Target names the run in the journal. Defaults to ManifestPath.
	Target       string
	Pattern      string
	ManifestPath string
	// StableID defaults to DefaultStableID.
	StableID StableIDFunc
	// Transform is optional.
	Transform TransformFunc
	// DryRun plans and reads files but neither uploads nor writes the
	// manifest.
	DryRun bool
}

// UploadResult is the outcome of UploadChanged. Items holds every local
// item in scan order with its action; after a real run each carries its
// remote ID.
type UploadResult struct {
	Items  []PlanItem
	DryRun bool
	// ManifestDiff is set on dry runs and shows the manifest that would be
	// written against the current one.
	ManifestDiff string
}

// Summary groups local paths by whether they were (or would be) uploaded.
type Summary struct {
	Uploaded []string `json:"uploaded"`
	Skipped  []string `json:"skipped"`
}

// Summary reduces the result to uploaded and skipped paths.
func (r *UploadResult) Summary() Summary {
	s := Summary{Uploaded: []string{}, Skipped: []string{}}

	for _, item := range r.Items {
		if item.Action.NeedsUpload() {
			s.Uploaded = append(s.Uploaded, item.Path)
		} else {
			s.Skipped = append(s.Skipped, item.Path)
		}
	}

	return s
}

// UploadChanged uploads every local file that is new, changed, or missing
// on the remote, then rewrites the manifest from the current local items.
// The manifest is written only when every upload succeeded. Entries for
// files no longer present locally are dropped; their remote items are left
// for DeleteUnused.
func (s *Syncer) UploadChanged(ctx context.Context, opts UploadOptions) (*UploadResult, error) {
	if strings.TrimSpace(opts.ManifestPath) == "" {
		return nil, fmt.Errorf("%w: manifest path is required", errs.ErrConfig)
	}

	items, err := Scan(opts.Pattern, opts.StableID)
	if err != nil {
		return nil, err
	}

	if !opts.DryRun {
		unlock, err := LockManifest(opts.ManifestPath)
		if err != nil {
			return nil, err
		}

		defer func() {
			if err := unlock(); err != nil {
				s.logger.Warn("releasing manifest lock", slog.String("manifest", opts.ManifestPath), slog.String("error", err.Error()))
			}
		}()
	}

	prev, err := LoadManifest(opts.ManifestPath)
	if err != nil {
		return nil, err
	}

	remoteIDs, err := s.remoteIDs(ctx)
	if err != nil {
		return nil, err
	}

	plan := Plan(items, prev, remoteIDs)
	s.logPlan(opts.ManifestPath, plan, opts.DryRun)

	if err := s.uploadPlanned(ctx, plan, opts); err != nil {
		return nil, err
	}

	result := &UploadResult{Items: plan, DryRun: opts.DryRun}
	next := s.buildManifest(plan)

	if opts.DryRun {
		diff, err := ManifestDiff(prev, next)
		if err != nil {
			return nil, err
		}

		result.ManifestDiff = diff

		return result, nil
	}

	if err := SaveManifest(opts.ManifestPath, next); err != nil {
		return nil, err
	}

	summary := result.Summary()
	s.record(Run{
		Target:   targetName(opts.Target, opts.ManifestPath),
		Kind:     RunUpload,
		At:       s.now(),
		Uploaded: summary.Uploaded,
		Skipped:  summary.Skipped,
	})

	return result, nil
}

func (s *Syncer) remoteIDs(ctx context.Context) (mapset.Set[string], error) {
	remote, err := s.remote.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing remote items: %w", err)
	}

	return remoteIDSet(remote), nil
}

func remoteIDSet(items []models.RemoteItem) mapset.Set[string] {
	ids := mapset.NewThreadUnsafeSetWithSize[string](len(items))
	for _, item := range items {
		ids.Add(item.ID)
	}

	return ids
}

func (s *Syncer) logPlan(manifest string, plan []PlanItem, dryRun bool) {
	counts := make(map[Action]int, 4)
	for _, p := range plan {
		counts[p.Action]++
	}

	s.logger.Info("upload plan",
		slog.String("manifest", manifest),
		slog.Int("new", counts[ActionNew]),
		slog.Int("changed", counts[ActionChanged]),
		slog.Int("orphaned", counts[ActionOrphaned]),
		slog.Int("unchanged", counts[ActionUnchanged]),
		slog.Bool("dry_run", dryRun),
	)
}

// uploadPlanned reads, transforms and uploads every item that needs it,
// filling in RemoteID in place. The first failure cancels the rest.
func (s *Syncer) uploadPlanned(ctx context.Context, plan []PlanItem, opts UploadOptions) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range plan {
		p := &plan[i]
		if !p.Action.NeedsUpload() {
			continue
		}

		g.Go(func() error {
			return s.uploadOne(gctx, p, opts)
		})
	}

	return g.Wait()
}

func (s *Syncer) uploadOne(ctx context.Context, p *PlanItem, opts UploadOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(p.Path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", p.Path, err)
	}

	if opts.Transform != nil {
		data, err = opts.Transform(data, p.Path)
		if err != nil {
			return fmt.Errorf("transforming %s: %w", p.Path, err)
		}
	}

	if opts.DryRun {
		s.logger.Debug("would upload", slog.String("path", p.Path), slog.String("action", string(p.Action)))
		return nil
	}

	id, err := s.remote.Upload(ctx, data, filepath.Base(p.Path))
	if err != nil {
		return &RemoteError{Kind: errs.ErrUpload, Target: p.Path, Err: err}
	}

	if id == "" {
		return &RemoteError{Kind: errs.ErrUpload, Target: p.Path, Err: errors.New("remote returned an empty ID")}
	}

	p.RemoteID = id

	s.logger.Info("uploaded",
		slog.String("path", p.Path),
		slog.String("stable_id", p.StableID),
		slog.String("remote_id", id),
		slog.String("action", string(p.Action)),
	)

	return nil
}

// buildManifest derives the next manifest from the plan alone, so entries
// for files that vanished locally are not carried over.
func (s *Syncer) buildManifest(plan []PlanItem) *Manifest {
	next := NewManifest()
	tts, isAudio := s.remote.(TTSProvider)
	next.audio = isAudio

	for _, p := range plan {
		e := ManifestEntry{
			StableID: p.StableID,
			RemoteID: p.RemoteID,
			MTimeMs:  p.MTimeMs(),
			Path:     p.Path,
		}

		if p.RemoteID != "" {
			e.URL = s.remote.URL(p.RemoteID)
			if isAudio {
				e.TTS = tts.TTS(p.RemoteID)
			}
		}

		next.Put(e)
	}

	return next
}

func (s *Syncer) record(run Run) {
	if s.recorder == nil {
		return
	}

	if err := s.recorder.RecordRun(run); err != nil {
		s.logger.Warn("recording run",
			slog.String("target", run.Target),
			slog.String("kind", string(run.Kind)),
			slog.String("error", err.Error()),
		)
	}
}

func targetName(target, manifest string) string {
	if target != "" {
		return target
	}

	return manifest
}
