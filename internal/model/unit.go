package model

// Level is the discourse granularity of a text unit
type Level string

const (
	LevelParagraph Level = "paragraph"
	LevelSentence  Level = "sentence"
	LevelPhrase    Level = "phrase"
)

// Child returns the level one step below l, or "" for phrases
func (l Level) Child() Level {
	switch l {
	case LevelParagraph:
		return LevelSentence
	case LevelSentence:
		return LevelPhrase
	default:
		return ""
	}
}

// Span is a half-open [Start, End) range of rune offsets into a full text
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of runes covered by the span
func (s Span) Len() int {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}

// IsZero reports whether the span covers nothing
func (s Span) IsZero() bool {
	return s.Len() == 0
}

// Overlaps reports whether two spans share at least one rune.
// Empty spans never overlap anything.
func (s Span) Overlaps(o Span) bool {
	if s.IsZero() || o.IsZero() {
		return false
	}
	return s.Start < o.End && o.Start < s.End
}

// Contains reports whether o lies completely inside s
func (s Span) Contains(o Span) bool {
	return o.Start >= s.Start && o.End <= s.End
}

// Segment is a raw slice of text produced by segmentation, before any scoring
type Segment struct {
	Text    string `json:"text"`
	Ordinal int    `json:"ordinal"`
	Span    Span   `json:"span"`
}

// TextUnit is one node of the hierarchical result tree.
// Paragraphs own sentences, sentences own phrases; there are no back references.
type TextUnit struct {
	Level      Level      `json:"level"`
	Text       string     `json:"text"`
	Ordinal    int        `json:"ordinal"`
	Span       Span       `json:"span"`
	Salience   float64    `json:"salience"`
	AlignedTo  int        `json:"aligned_to"` // Counterpart ordinal, -1 when unaligned
	Similarity float64    `json:"similarity,omitempty"`
	Strategies []string   `json:"strategies,omitempty"` // IDs of detected strategies anchored here
	Children   []TextUnit `json:"children,omitempty"`
}

// AlignmentMethod tags how a pair was produced
type AlignmentMethod string

const (
	MethodEmbedding AlignmentMethod = "embedding"
	MethodUnaligned AlignmentMethod = "unaligned"
)

// AlignmentPair links one source unit to one target unit at the same level.
// Either ordinal is -1 when that side has no qualifying counterpart.
type AlignmentPair struct {
	Level         Level           `json:"level"`
	SourceOrdinal int             `json:"source_ordinal"`
	TargetOrdinal int             `json:"target_ordinal"`
	ParentSource  int             `json:"parent_source"`
	ParentTarget  int             `json:"parent_target"`
	SourceSpan    Span            `json:"source_span"`
	TargetSpan    Span            `json:"target_span"`
	SourceText    string          `json:"source_text,omitempty"`
	TargetText    string          `json:"target_text,omitempty"`
	Similarity    float64         `json:"similarity"`
	Method        AlignmentMethod `json:"method"`
	Aligned       bool            `json:"aligned"`
	Fragments     []int           `json:"fragments,omitempty"` // Unaligned target ordinals that split off this source
	Evidence      []string        `json:"evidence,omitempty"`
}

// HasSource reports whether the pair has a source side
func (p AlignmentPair) HasSource() bool { return p.SourceOrdinal >= 0 }

// HasTarget reports whether the pair has a target side
func (p AlignmentPair) HasTarget() bool { return p.TargetOrdinal >= 0 }
