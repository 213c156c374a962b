// Package model defines the data shapes shared by every core component:
// the indexed record, the drive table, and the query/result pair the
// matcher produces.
package model

import (
	"strings"
	"time"
)

// Kind classifies a FileRecord.
type Kind int

const (
	KindUnknown Kind = iota
	KindFile
	KindDirectory
	KindSymlink
	KindHardlink
)

// Attribute is an opaque flag set (hidden, system, readonly, ...).
type Attribute uint32

const (
	AttrHidden Attribute = 1 << iota
	AttrSystem
	AttrReadonly
	AttrCompressed
	AttrEncrypted
)

func (a Attribute) Has(flag Attribute) bool { return a&flag != 0 }

// ID is the stable 64-bit identifier assigned monotonically on first
// insertion into the memory index. It is never reused.
type ID uint64

// DriveID references a DriveRecord.
type DriveID uint32

// FileRecord is the unit of indexing. See spec §3.
type FileRecord struct {
	ID             ID
	FullPath       string
	FileName       string
	Extension      string // lowercase, no leading dot
	NormalizedName string // lowercase, alphanumerics + collapsed separators
	Tokens         []string

	Size         int64
	LastModified time.Time
	LastAccessed time.Time

	Kind       Kind
	Attributes Attribute

	ParentID ID
	DriveID  DriveID

	AccessCount uint64
}

// DriveRecord describes one mounted volume.
type DriveRecord struct {
	ID         DriveID
	Mount      string // mount letter or path
	Label      string
	Filesystem string
	TotalBytes uint64
	FreeBytes  uint64
	LastScan   time.Time
	Available  bool
}

// QueryMode selects the matcher strategy.
type QueryMode int

const (
	ModeExact QueryMode = iota
	ModeFuzzy
	ModeWildcard
	ModeRegex
)

func (m QueryMode) String() string {
	switch m {
	case ModeExact:
		return "exact"
	case ModeFuzzy:
		return "fuzzy"
	case ModeWildcard:
		return "wildcard"
	case ModeRegex:
		return "regex"
	default:
		return "unknown"
	}
}

// SortOrder selects the result ordering.
type SortOrder int

const (
	SortRelevance SortOrder = iota
	SortName
	SortSize
	SortModified
	SortAccessed
)

// SizeRange is an inclusive [Min, Max] byte range; Max == 0 means unbounded.
type SizeRange struct {
	Min, Max int64
}

// DateRange is an inclusive [From, To] time window; a zero value on either
// side means unbounded on that side.
type DateRange struct {
	From, To time.Time
}

// SearchQuery describes one search request. See spec §3.
type SearchQuery struct {
	Text string
	Mode QueryMode

	IncludeDrives map[DriveID]struct{}
	ExcludePaths  []string
	FileTypes     map[Kind]struct{}

	SizeRange SizeRange
	DateRange DateRange

	MaxResults     int
	SortOrder      SortOrder
	CaseSensitive  bool
	FuzzyThreshold float64
}

// Normalize fills in defaults so a zero-value query is never passed to the
// matcher: MaxResults defaults to 100, FuzzyThreshold to 0.6.
func (q *SearchQuery) Normalize() {
	if q.MaxResults <= 0 {
		q.MaxResults = 100
	}
	if q.FuzzyThreshold <= 0 {
		q.FuzzyThreshold = 0.6
	}
}

// HighlightSpan is a (offset, length) pair over FileRecord.FileName.
type HighlightSpan struct {
	Offset int
	Length int
}

// SearchResult is one ranked hit.
type SearchResult struct {
	Record     *FileRecord
	Score      float64
	Highlights []HighlightSpan
}

// NormalizeName lowercases a filename and collapses runs of '.', '_', '-'
// and ' ' into single spaces, keeping ASCII letters and digits and dropping
// every other character (tabs and other whitespace included). This is
// the canonical form indexed by the trie, the bloom filter and the fuzzy
// matcher.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastWasSeparator := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r == '.' || r == '_' || r == '-' || r == ' ':
			if !lastWasSeparator && b.Len() > 0 {
				b.WriteByte(' ')
				lastWasSeparator = true
			}
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastWasSeparator = false
		default:
			// drop anything else (unicode punctuation, symbols); keeps the
			// normalized form ASCII-stable for the trie and bloom filter.
		}
	}
	return strings.TrimSpace(b.String())
}

// Tokenize splits a normalized name plus extension into the non-empty
// substrings indexed by the inverted index.
func Tokenize(normalizedName, extension string) []string {
	fields := strings.Fields(normalizedName)
	tokens := make([]string, 0, len(fields)+1)
	tokens = append(tokens, fields...)
	if extension != "" {
		tokens = append(tokens, extension)
	}
	return tokens
}
