package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexjbarnes/asset-sync/internal/alice"
	"github.com/alexjbarnes/asset-sync/internal/assetsync"
	"github.com/alexjbarnes/asset-sync/internal/config"
	errs "github.com/alexjbarnes/asset-sync/internal/errors"
)

// targetFlags selects a sync target either by name from the targets file
// or from individual flags. Flags given explicitly override the named
// target's fields.
type targetFlags struct {
	needPattern  bool
	needManifest bool

	name      string
	kind      string
	pattern   string
	manifest  string
	idPattern string
}

func (f *targetFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.name, "target", "", "Named target from the targets file")
	flags.StringVar(&f.kind, "kind", "", "Asset collection: images or sounds (default images)")
	flags.StringVar(&f.manifest, "manifest", "", "Manifest file path")

	if f.needPattern {
		flags.StringVar(&f.pattern, "pattern", "", "Glob matching local files, ** allowed")
		flags.StringVar(&f.idPattern, "id-pattern", "", "Regexp whose first group is the stable ID (default: last [...] in the file name)")
	}
}

func (f *targetFlags) resolve(cmd *cobra.Command, targetsFile string) (config.Target, error) {
	var target config.Target

	if f.name != "" {
		if targetsFile == "" {
			return target, fmt.Errorf("%w: --target needs a targets file (--targets or ASSET_SYNC_TARGETS)", errs.ErrConfig)
		}

		targets, err := config.LoadTargets(targetsFile)
		if err != nil {
			return target, err
		}

		target, err = config.FindTarget(targets, f.name)
		if err != nil {
			return target, err
		}
	}

	flags := cmd.Flags()
	override := func(flag string, dst *string, value string) {
		if flags.Changed(flag) {
			*dst = value
		}
	}

	override("kind", &target.Kind, f.kind)
	override("pattern", &target.Pattern, f.pattern)
	override("manifest", &target.Manifest, f.manifest)
	override("id-pattern", &target.IDPattern, f.idPattern)

	if target.Kind == "" {
		target.Kind = string(alice.KindImages)
	}

	if f.needPattern && target.Pattern == "" {
		return target, fmt.Errorf("%w: --pattern or --target is required", errs.ErrConfig)
	}

	if f.needManifest && target.Manifest == "" {
		return target, fmt.Errorf("%w: --manifest or --target is required", errs.ErrConfig)
	}

	return target, nil
}

func stableIDFunc(target config.Target) (assetsync.StableIDFunc, error) {
	if target.IDPattern == "" {
		return assetsync.DefaultStableID, nil
	}

	fn, err := assetsync.RegexpStableID(target.IDPattern)
	if err != nil {
		return nil, fmt.Errorf("--id-pattern: %w", err)
	}

	return fn, nil
}
