package integrity

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// ChangeKind classifies one source relative to its stored fingerprint.
type ChangeKind string

// Change kinds. KindMissing covers sources that were never fingerprinted
// and are absent; KindRemoved covers a fingerprinted source whose file has
// since disappeared, which changes the effective inputs.
const (
	KindUnchanged ChangeKind = "unchanged"
	KindChanged   ChangeKind = "changed"
	KindNew       ChangeKind = "new"
	KindMissing   ChangeKind = "missing"
	KindRemoved   ChangeKind = "removed"
)

// Change is the comparison result for one source.
type Change struct {
	Source  string
	Path    string
	Kind    ChangeKind
	OldHash string
	NewHash string
}

// Target names one source file to check.
type Target struct {
	Source string
	Path   string
}

// Report summarizes comparison results across all configured sources.
type Report struct {
	Changes []Change
}

// CheckAll compares every target against its stored fingerprint.
// Files absent on disk are not errors: they classify as KindRemoved when a
// fingerprint is stored for them and KindMissing otherwise; the caller
// decides whether an absent source is fatal.
func (c *Checker) CheckAll(targets []Target) Report {
	report := Report{Changes: make([]Change, 0, len(targets))}

	for _, t := range targets {
		if _, err := os.Stat(t.Path); err != nil {
			report.Changes = append(report.Changes, c.classifyAbsent(t))
			continue
		}

		hash, err := Compute(t.Path)
		if err != nil {
			c.logger.Warn("failed to hash source file",
				slog.String("source", t.Source), slog.Any("error", err))
			report.Changes = append(report.Changes, c.classifyAbsent(t))
			continue
		}

		change := c.Compare(t.Source, hash)
		change.Path = t.Path
		report.Changes = append(report.Changes, change)
	}

	return report
}

// classifyAbsent decides between KindMissing and KindRemoved for a source
// whose file cannot be statted. A store read error falls back to
// KindMissing so the gate stays conservative for never-seen sources.
func (c *Checker) classifyAbsent(t Target) Change {
	fp, err := c.store.GetFingerprint(t.Source)
	if err != nil {
		c.logger.Warn("failed to read stored fingerprint",
			slog.String("source", t.Source), slog.Any("error", err))
	}
	if fp != nil {
		return Change{Source: t.Source, Path: t.Path, Kind: KindRemoved, OldHash: fp.Hash}
	}
	return Change{Source: t.Source, Path: t.Path, Kind: KindMissing}
}

// HasChanges reports whether any source is new, changed, or removed.
func (r Report) HasChanges() bool {
	for _, ch := range r.Changes {
		if ch.Kind == KindNew || ch.Kind == KindChanged || ch.Kind == KindRemoved {
			return true
		}
	}
	return false
}

// Missing returns the names of sources whose files are absent, whether or
// not a fingerprint is still stored for them.
func (r Report) Missing() []string {
	var missing []string
	for _, ch := range r.Changes {
		if ch.Kind == KindMissing || ch.Kind == KindRemoved {
			missing = append(missing, ch.Source)
		}
	}
	return missing
}

// Removed returns the names of fingerprinted sources whose files are gone.
func (r Report) Removed() []string {
	var removed []string
	for _, ch := range r.Changes {
		if ch.Kind == KindRemoved {
			removed = append(removed, ch.Source)
		}
	}
	return removed
}

// Hashes returns the observed hash per present source.
func (r Report) Hashes() map[string]string {
	hashes := make(map[string]string)
	for _, ch := range r.Changes {
		if ch.NewHash != "" {
			hashes[ch.Source] = ch.NewHash
		}
	}
	return hashes
}

// Summary renders a one-line human-readable overview of the report.
func (r Report) Summary() string {
	var counts = map[ChangeKind]int{}
	for _, ch := range r.Changes {
		counts[ch.Kind]++
	}

	var parts []string
	for _, kind := range []ChangeKind{KindNew, KindChanged, KindRemoved, KindUnchanged, KindMissing} {
		if n := counts[kind]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", kind, n))
		}
	}
	if len(parts) == 0 {
		return "no sources monitored"
	}
	return strings.Join(parts, ", ")
}
