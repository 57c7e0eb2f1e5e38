package store

import (
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring"
	"golang.org/x/text/unicode/norm"
)

// EqualityIndex answers metadata-equality predicates over a fixed set of
// dense handles (0..N-1, the same numbering the orchestrator assigns when
// it snapshots a library's chunks for an index build). For each metadata
// key it keeps one roaring bitmap per observed value, mirroring the
// teacher's categorical-bitmap approach to metadata filtering: membership
// testing and set construction are both bitmap operations rather than
// per-chunk map probes.
type EqualityIndex struct {
	// byKey[key][value] = bitmap of handles whose metadata[key] == value.
	byKey map[string]map[string]*roaring.Bitmap
	size  uint32
}

// normalizeTag NFC-normalizes a tag/value string so equality comparisons are
// Unicode-stable (e.g. "café" typed with a combining accent equals the
// precomposed form).
func normalizeTag(s string) string {
	return norm.NFC.String(s)
}

// tagListSep separates individual tags within a single "tags" filter value,
// giving metadata_filters={"tags": "a,b"} OR semantics grounded on the
// source service's any(tag in chunk.metadata.tags for tag in value): a
// chunk matches if it carries any one of the listed tags.
const tagListSep = ","

// BuildEqualityIndex constructs an EqualityIndex from a handle-ordered
// metadata slice (handle == slice index). Indexed fields are Source,
// Author, Language, CharCount (under "char_count", as a decimal string),
// each entry of Tags, and every key in Extra — the last
// giving metadata_filters equality queries access to caller-defined
// extension keys (e.g. "color") that fall outside the fixed schema.
func BuildEqualityIndex(metas []ChunkMetadata) *EqualityIndex {
	idx := &EqualityIndex{
		byKey: make(map[string]map[string]*roaring.Bitmap),
		size:  uint32(len(metas)),
	}
	add := func(key, value string, handle uint32) {
		if value == "" {
			return
		}
		values, ok := idx.byKey[key]
		if !ok {
			values = make(map[string]*roaring.Bitmap)
			idx.byKey[key] = values
		}
		bm, ok := values[value]
		if !ok {
			bm = roaring.New()
			values[value] = bm
		}
		bm.Add(handle)
	}
	for i, m := range metas {
		h := uint32(i)
		add("source", normalizeTag(m.Source), h)
		add("author", normalizeTag(m.Author), h)
		add("language", normalizeTag(m.Language), h)
		add("char_count", strconv.Itoa(m.CharCount), h)
		for _, tag := range m.Tags {
			add("tags", normalizeTag(tag), h)
		}
		for key, value := range m.Extra {
			add(normalizeTag(key), normalizeTag(value), h)
		}
	}
	return idx
}

// matchOne resolves a single key=value filter term to the bitmap of
// handles satisfying it. The "tags" key is comma-list OR semantics (a chunk
// matches if it carries any one of the listed tags); every other key,
// whether a named ChunkMetadata field or an Extra extension key, is plain
// equality.
func (idx *EqualityIndex) matchOne(key, want string) *roaring.Bitmap {
	values := idx.byKey[key]
	if values == nil {
		return roaring.New()
	}
	if key == "tags" {
		result := roaring.New()
		for _, tag := range strings.Split(want, tagListSep) {
			if bm, ok := values[normalizeTag(strings.TrimSpace(tag))]; ok {
				result.Or(bm)
			}
		}
		return result
	}
	if bm, ok := values[normalizeTag(want)]; ok {
		return bm.Clone()
	}
	return roaring.New()
}

// Match returns the bitmap of handles satisfying every key=value pair in
// filters (logical AND across keys; a "tags" value may itself list multiple
// tags, OR'd together). A key with no matching value yields an empty
// result. A nil/empty filters returns every handle.
func (idx *EqualityIndex) Match(filters map[string]string) *roaring.Bitmap {
	if len(filters) == 0 {
		all := roaring.New()
		all.AddRange(0, uint64(idx.size))
		return all
	}
	var result *roaring.Bitmap
	for key, want := range filters {
		bm := idx.matchOne(key, want)
		if bm.IsEmpty() {
			return roaring.New()
		}
		if result == nil {
			result = bm
		} else {
			result.And(bm)
		}
	}
	if result == nil {
		result = roaring.New()
	}
	return result
}

// Predicate returns a func(handle uint32) bool suitable for passing to an
// index's search as the opaque candidate filter.
func (idx *EqualityIndex) Predicate(filters map[string]string) func(uint32) bool {
	bm := idx.Match(filters)
	return func(handle uint32) bool {
		return bm.Contains(handle)
	}
}
