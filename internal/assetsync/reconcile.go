package assetsync

import (
	"context"
	"fmt"
	"log/slog"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"

	errs "github.com/alexjbarnes/asset-sync/internal/errors"
	"github.com/alexjbarnes/asset-sync/internal/models"
)

// DeleteOptions configures a DeleteUnused call.
type DeleteOptions struct {
	// Target names the run in the journal. Defaults to ManifestPath.
	Target       string
	ManifestPath string
	// DryRun reports what would be deleted without deleting.
	DryRun bool
}

// UnusedResult lists remote IDs removed (or that would be removed) and the
// local paths still referenced by the manifest.
type UnusedResult struct {
	Deleted []string `json:"deleted"`
	Used    []string `json:"used"`
}

// UnusedRemoteIDs returns the IDs of remote items not referenced by the
// manifest, in listing order and without repeats.
func UnusedRemoteIDs(remote []models.RemoteItem, m *Manifest) []string {
	referenced := m.RemoteIDs()
	seen := mapset.NewThreadUnsafeSet[string]()
	unused := make([]string, 0)

	for _, item := range remote {
		if referenced.Contains(item.ID) || !seen.Add(item.ID) {
			continue
		}

		unused = append(unused, item.ID)
	}

	return unused
}

// DeleteUnused deletes every remote item the manifest does not reference.
// It refuses to run without a manifest on disk, since an absent manifest
// would make every remote item look unused.
func (s *Syncer) DeleteUnused(ctx context.Context, opts DeleteOptions) (*UnusedResult, error) {
	m, err := LoadManifest(opts.ManifestPath)
	if err != nil {
		return nil, err
	}

	if !m.Exists() {
		return nil, fmt.Errorf("%w: manifest not found: %s", errs.ErrState, opts.ManifestPath)
	}

	remote, err := s.remote.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing remote items: %w", err)
	}

	unused := UnusedRemoteIDs(remote, m)

	s.logger.Info("unused remote items",
		slog.String("manifest", opts.ManifestPath),
		slog.Int("unused", len(unused)),
		slog.Int("referenced", m.Len()),
		slog.Bool("dry_run", opts.DryRun),
	)

	if !opts.DryRun {
		if err := s.deleteAll(ctx, unused); err != nil {
			return nil, err
		}
	}

	result := &UnusedResult{Deleted: unused, Used: make([]string, 0, m.Len())}
	for _, e := range m.Entries() {
		result.Used = append(result.Used, e.Path)
	}

	if !opts.DryRun {
		s.record(Run{
			Target:  targetName(opts.Target, opts.ManifestPath),
			Kind:    RunDeleteUnused,
			At:      s.now(),
			Deleted: unused,
		})
	}

	return result, nil
}

func (s *Syncer) deleteAll(ctx context.Context, ids []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			if err := s.remote.Delete(gctx, id); err != nil {
				return &RemoteError{Kind: errs.ErrDelete, Target: id, Err: err}
			}

			s.logger.Info("deleted", slog.String("remote_id", id))

			return nil
		})
	}

	return g.Wait()
}
