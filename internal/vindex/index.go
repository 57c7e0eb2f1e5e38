// Package vindex implements the three interchangeable nearest-neighbor
// index structures: Flat (exhaustive cosine scan), RPLSH (sign-random-
// projection locality-sensitive hashing), and Hierarchical (a simplified
// HNSW multi-layer proximity graph). Every implementation works over dense
// uint32 handles rather than pointers or entity ids — the caller (the
// orchestrator) owns the handle<->chunk-id mapping; an index only ever sees
// handles and vectors.
package vindex

import (
	"fmt"
	"sort"
)

// Kind names one of the three index implementations.
type Kind string

const (
	KindFlat         Kind = "flat"
	KindRPLSH        Kind = "rp_lsh"
	KindHierarchical Kind = "hierarchical"
)

// Item is one (handle, vector) pair presented to a build call. The caller
// assigns handles; an index never mints its own.
type Item struct {
	Handle uint32
	Vector []float32
}

// Result is one ranked hit: a handle and its similarity score against the
// query, in the index's native score space (cosine similarity here).
type Result struct {
	Handle uint32
	Score  float64
}

// Filter is an opaque predicate over a candidate handle, applied by the
// index before a candidate is emitted. A nil Filter admits every candidate.
type Filter func(handle uint32) bool

func admits(f Filter, h uint32) bool {
	return f == nil || f(h)
}

// Index is the common contract every index family implements: built once
// from a fixed item set, then queried any number of times. Implementations
// are immutable after Build; reindexing replaces the instance rather than
// mutating it in place.
type Index interface {
	// Kind reports which implementation this is.
	Kind() Kind
	// Len reports how many items the index was built over.
	Len() int
	// Search returns at most k results ranked by descending score, with
	// ties broken by ascending handle for reproducibility. filter, when
	// non-nil, is consulted before a candidate is emitted.
	Search(query []float32, k int, filter Filter) ([]Result, error)
}

// Config bundles the build-time parameters for RPLSH and Hierarchical.
// Flat takes none. Zero-valued fields fall back to the documented defaults
// in DefaultConfig.
type Config struct {
	Seed int64

	// RPLSH (§4.5)
	LSHTables     int // L
	LSHBits       int // H
	LSHOversample int // P

	// Hierarchical / HNSW (§4.6)
	M              int
	EfConstruction int
	EfSearch       int
}

// DefaultConfig returns the documented defaults for every tunable.
func DefaultConfig() Config {
	return Config{
		Seed:           0,
		LSHTables:      16,
		LSHBits:        4,
		LSHOversample:  4,
		M:              16,
		EfConstruction: 200,
		EfSearch:       50,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.LSHTables <= 0 {
		c.LSHTables = d.LSHTables
	}
	if c.LSHBits <= 0 {
		c.LSHBits = d.LSHBits
	}
	if c.LSHOversample <= 0 {
		c.LSHOversample = d.LSHOversample
	}
	if c.M <= 0 {
		c.M = d.M
	}
	if c.EfConstruction <= 0 {
		c.EfConstruction = d.EfConstruction
	}
	if c.EfSearch <= 0 {
		c.EfSearch = d.EfSearch
	}
	return c
}

// Build dispatches to the named index family. Unknown kinds return an
// UnsupportedIndexType-shaped error via ErrUnsupportedKind.
func Build(kind Kind, items []Item, cfg Config) (Index, error) {
	switch kind {
	case KindFlat:
		return BuildFlat(items)
	case KindRPLSH:
		return BuildRPLSH(items, cfg)
	case KindHierarchical:
		return BuildHierarchical(items, cfg)
	default:
		return nil, ErrUnsupportedKind(string(kind))
	}
}

// ErrUnsupportedKind reports an unknown index kind.
type unsupportedKindError struct{ kind string }

func (e *unsupportedKindError) Error() string {
	return fmt.Sprintf("vindex: unsupported index kind %q", e.kind)
}

// ErrUnsupportedKind constructs the error Build returns for an unknown kind.
func ErrUnsupportedKind(kind string) error { return &unsupportedKindError{kind: kind} }

// sortResults orders results by descending score, ties broken by ascending
// handle, matching every index family's reproducibility requirement.
func sortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Handle < results[j].Handle
	})
}

func truncate(results []Result, k int) []Result {
	if k < len(results) {
		return results[:k]
	}
	return results
}
