// Package merge reconciles ContentCreatorInfo records extracted from independent sources.
//
// Merge is total and never fails. List fields are unioned by identity key with the
// first occurrence winning, the business with the longer description wins, and
// scalar fields take the first non-empty value. Merge is associative, so MergeAll
// folds any number of records (extraction passes, platforms) through one code path.
package merge

import (
	"strings"

	"github.com/jonathan/creator-persona/internal/types"
)

// EmptyKeyPolicy controls how list items without an identity key are deduplicated.
type EmptyKeyPolicy int

const (
	// KeepEmptyKeys treats every item whose identity key is empty as unique.
	KeepEmptyKeys EmptyKeyPolicy = iota
	// CollapseEmptyKeys treats all items with an empty identity key as duplicates
	// of each other, so only the first one survives.
	CollapseEmptyKeys
)

// Options configures a Merger.
type Options struct {
	EmptyKeys EmptyKeyPolicy
}

// Merger merges ContentCreatorInfo records.
type Merger struct {
	opts Options
}

// New creates a Merger with the given options.
func New(opts Options) *Merger {
	return &Merger{opts: opts}
}

var defaultMerger = New(Options{})

// Merge combines two records using the default options.
func Merge(a, b *types.ContentCreatorInfo) *types.ContentCreatorInfo {
	return defaultMerger.Merge(a, b)
}

// MergeAll folds Merge over records from left to right using the default options.
func MergeAll(records ...*types.ContentCreatorInfo) *types.ContentCreatorInfo {
	return defaultMerger.MergeAll(records...)
}

// MergeAll folds Merge over records from left to right. Zero records yield an
// all-placeholder record.
func (m *Merger) MergeAll(records ...*types.ContentCreatorInfo) *types.ContentCreatorInfo {
	var acc *types.ContentCreatorInfo
	for _, r := range records {
		acc = m.Merge(acc, r)
	}
	if acc == nil {
		return types.NewDefaultCreatorInfo()
	}
	return acc
}

// Merge combines a and b into a new record. Either input may be nil. Inputs are
// never modified and the result shares no slices or pointers with them.
func (m *Merger) Merge(a, b *types.ContentCreatorInfo) *types.ContentCreatorInfo {
	if a == nil {
		a = &types.ContentCreatorInfo{}
	}
	if b == nil {
		b = &types.ContentCreatorInfo{}
	}

	out := &types.ContentCreatorInfo{
		FirstName:    firstNonEmpty(a.FirstName, b.FirstName),
		LastName:     firstNonEmpty(a.LastName, b.LastName),
		MainLanguage: firstNonEmpty(a.MainLanguage, b.MainLanguage),
		LifeEvents: union(m.opts.EmptyKeys, a.LifeEvents, b.LifeEvents, func(e types.LifeEvent) string {
			return IdentityKey(e.Name, e.Description)
		}),
		Business: mergeBusiness(a.Business, b.Business),
		Values: union(m.opts.EmptyKeys, a.Values, b.Values, func(v types.Value) string {
			return IdentityKey(v.Name, "")
		}),
		Challenges: union(m.opts.EmptyKeys, a.Challenges, b.Challenges, func(c types.Challenge) string {
			return IdentityKey("", c.Description)
		}),
		Achievements: union(m.opts.EmptyKeys, a.Achievements, b.Achievements, func(x types.Achievement) string {
			return IdentityKey("", x.Description)
		}),
	}

	out.FullName = firstNonEmpty(explicitFullName(a), explicitFullName(b))
	if IsEmpty(out.FullName) {
		out.FullName = types.ComposeFullName(out.FirstName, out.LastName)
	}

	out.EnsureDefaults()
	return out
}

// IdentityKey returns the dedup key of a list item: its name if present, else
// its description. The key is case-folded and trimmed. Placeholder text never
// counts as a key.
func IdentityKey(name, description string) string {
	if !IsEmpty(name) {
		return normalizeKey(name)
	}
	if !IsEmpty(description) {
		return normalizeKey(description)
	}
	return ""
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// union appends the non-empty items of a then b, skipping any item whose
// identity key was already retained.
func union[T any](policy EmptyKeyPolicy, a, b []T, key func(T) string) []T {
	out := make([]T, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))

	for _, list := range [][]T{a, b} {
		for _, item := range list {
			if IsEmpty(item) {
				continue
			}
			k := key(item)
			if k == "" && policy == KeepEmptyKeys {
				out = append(out, item)
				continue
			}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}

func mergeBusiness(a, b *types.Business) *types.Business {
	aEmpty, bEmpty := IsEmpty(a), IsEmpty(b)
	switch {
	case aEmpty && bEmpty:
		return types.DefaultBusiness()
	case bEmpty:
		return copyBusiness(a)
	case aEmpty:
		return copyBusiness(b)
	}
	if descriptionLen(a) >= descriptionLen(b) {
		return copyBusiness(a)
	}
	return copyBusiness(b)
}

func descriptionLen(b *types.Business) int {
	if IsEmpty(b.Description) {
		return 0
	}
	return len(b.Description)
}

func copyBusiness(b *types.Business) *types.Business {
	c := *b
	return &c
}

// explicitFullName returns the record's full name unless it is just the
// composition of its first and last name, which is recomputed after merging.
func explicitFullName(c *types.ContentCreatorInfo) string {
	if IsEmpty(c.FullName) {
		return ""
	}
	if strings.TrimSpace(c.FullName) == types.ComposeFullName(c.FirstName, c.LastName) {
		return ""
	}
	return c.FullName
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if !IsEmpty(v) {
			return strings.TrimSpace(v)
		}
	}
	return types.UnknownValue
}
