// Package inventory implements C2: discovering which of the six
// precedence-ordered sources are present for a generator and exposing a
// read-only, concurrency-safe view over each.
package inventory

import (
	"sort"

	"github.com/opencustomize/opencustomize/internal/domain"
)

// Inventory is the immutable result of source discovery for one generator.
// Construction is the only mutating step; every method below is a
// read-only query, safe for concurrent use across specs (spec.md §3, §5).
type Inventory struct {
	views          map[domain.SourceKind]domain.SourceView
	metadata       []*domain.LibraryMetadata
	libraryDigests []string
}

// New builds an Inventory from the views discovered for each present
// source. metadata carries one descriptor per library archive that had
// one (spec.md §4.2) — libraries share a SourceKind (LibraryTemplate /
// LibraryCustomization) so a per-kind map can hold at most one entry and
// silently drops every library but the last; a flat slice keeps every
// library's descriptor visible to the compatibility preflight.
// libraryDigests carries each library archive's own content digest
// (LibraryArchive.ContentDigest), independent of its self-reported
// metadata, so cache invalidation tracks actual bytes (spec.md §4.8).
func New(views map[domain.SourceKind]domain.SourceView, metadata []*domain.LibraryMetadata, libraryDigests []string) *Inventory {
	return &Inventory{views: views, metadata: metadata, libraryDigests: libraryDigests}
}

// View returns the SourceView for kind, if that source is present.
func (inv *Inventory) View(kind domain.SourceKind) (domain.SourceView, bool) {
	v, ok := inv.views[kind]
	return v, ok
}

// AvailableSources returns the present source kinds in precedence order
// (highest precedence first).
func (inv *Inventory) AvailableSources() []domain.SourceKind {
	out := make([]domain.SourceKind, 0, len(inv.views))
	for k := range inv.views {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// ApplicableOrder intersects configured (already ordered) source kinds with
// the sources actually present, preserving the configured order
// (spec.md §4.6 step 1).
func (inv *Inventory) ApplicableOrder(configured []domain.SourceKind) []domain.SourceKind {
	out := make([]domain.SourceKind, 0, len(configured))
	for _, k := range configured {
		if _, ok := inv.views[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// LibraryDigests returns every library archive's content digest collected
// during discovery (empty strings are never included), used to fingerprint
// the inventory by actual bytes rather than self-reported version strings.
func (inv *Inventory) LibraryDigests() []string {
	return append([]string(nil), inv.libraryDigests...)
}

// AllMetadata returns every library descriptor collected during discovery,
// one per library archive that carried one, used by the
// library-compatibility preflight check.
func (inv *Inventory) AllMetadata() []*domain.LibraryMetadata {
	out := make([]*domain.LibraryMetadata, 0, len(inv.metadata))
	for _, m := range inv.metadata {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
