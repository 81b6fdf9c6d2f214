package assetsync

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// Action is the planned outcome for one local item.
type Action string

const (
	// ActionUnchanged means the manifest entry is current and the remote
	// item still exists. The existing remote ID is carried forward.
	ActionUnchanged Action = "unchanged"

	// ActionNew means the stable ID has never been uploaded.
	ActionNew Action = "new"

	// ActionChanged means the local modification time differs from the
	// one recorded at the last upload.
	ActionChanged Action = "changed"

	// ActionOrphaned means the manifest references a remote item that no
	// longer exists on the server. The file is uploaded again.
	ActionOrphaned Action = "orphaned-on-remote"
)

// NeedsUpload reports whether the action requires an upload.
func (a Action) NeedsUpload() bool {
	return a == ActionNew || a == ActionChanged || a == ActionOrphaned
}

// PlanItem is a local item annotated with its planned action. After a
// real run RemoteID holds the uploaded (or carried forward) remote ID.
type PlanItem struct {
	LocalItem
	Action   Action
	RemoteID string
}

// Classify decides the action for a single local item. It is a pure
// function of the item, its previous manifest entry and the remote IDs.
func Classify(item LocalItem, prev *ManifestEntry, remoteIDs mapset.Set[string]) Action {
	if prev == nil {
		return ActionNew
	}

	if prev.MTimeMs != item.MTimeMs() {
		return ActionChanged
	}

	if !remoteIDs.Contains(prev.RemoteID) {
		return ActionOrphaned
	}

	return ActionUnchanged
}

// Plan classifies every local item, preserving scan order.
func Plan(items []LocalItem, m *Manifest, remoteIDs mapset.Set[string]) []PlanItem {
	plan := make([]PlanItem, 0, len(items))

	for _, item := range items {
		var prev *ManifestEntry
		if e, ok := m.Get(item.StableID); ok {
			prev = &e
		}

		p := PlanItem{
			LocalItem: item,
			Action:    Classify(item, prev, remoteIDs),
		}

		if p.Action == ActionUnchanged {
			p.RemoteID = prev.RemoteID
		}

		plan = append(plan, p)
	}

	return plan
}
