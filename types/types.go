package types

import "fmt"

// Fingerprint holds the two content identities of an image file: a SHA-256
// digest over the raw bytes and a 64-bit gradient (dHash) perceptual hash
// over the decoded pixels. Immutable once computed.
type Fingerprint struct {
	ContentHash    [32]byte
	PerceptualHash uint64
}

// MatchKind distinguishes byte-identical groups from visually-close ones.
type MatchKind int

const (
	// MatchExact means every member has the same content hash.
	MatchExact MatchKind = iota
	// MatchVisual means members were linked by perceptual-hash distance.
	MatchVisual
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchVisual:
		return "visual"
	default:
		return fmt.Sprintf("MatchKind(%d)", int(k))
	}
}

// DuplicateGroup is one cluster of duplicate images, referenced by the
// caller's input indices. MinDistance is only meaningful for MatchVisual:
// it is the smallest Hamming distance observed while the cluster was being
// merged, which is best-effort rather than the true minimum over all final
// member pairs.
type DuplicateGroup struct {
	Kind        MatchKind
	Indices     []int
	MinDistance int
}

// FileSummary is the lightweight metadata shown next to a file in a
// duplicate report. Zero-valued fields mean "unknown".
type FileSummary struct {
	Filename     string
	FileSize     int64
	Width        int
	Height       int
	DateTaken    string
	DateModified string
}

// HasDimensions reports whether both dimensions are known.
func (s FileSummary) HasDimensions() bool {
	return s.Width > 0 && s.Height > 0
}

// Empty reports whether the summary carries no recoverable metadata at all.
// An empty summary stored in the catalog is treated as a miss so the read
// can be retried later.
func (s FileSummary) Empty() bool {
	return !s.HasDimensions() && s.DateTaken == "" && s.DateModified == ""
}
