package model

import "time"

// Hierarchy schema versions. Bump when the response gains fields.
const (
	HierarchyVersionBase       = 1
	HierarchyVersionMicroSpans = 2
)

// AnalysisOptions are the per-request knobs. They are copied into the
// request-scoped providers and never stored on shared services.
type AnalysisOptions struct {
	SalienceMethod    string `json:"salience_method,omitempty" validate:"omitempty,oneof=frequency keyword"`
	IncludeMicroSpans *bool  `json:"include_micro_spans,omitempty"`
}

// AnalysisRequest is the input of one comparative analysis
type AnalysisRequest struct {
	SourceText string          `json:"source_text" validate:"required"`
	TargetText string          `json:"target_text" validate:"required"`
	Options    AnalysisOptions `json:"options"`
}

// Tree holds the two hierarchical trees
type Tree struct {
	Source []TextUnit `json:"source"`
	Target []TextUnit `json:"target"`
}

// AnalysisStats summarises an analysis
type AnalysisStats struct {
	SourceParagraphs  int `json:"source_paragraphs"`
	TargetParagraphs  int `json:"target_paragraphs"`
	AlignedParagraphs int `json:"aligned_paragraphs"`
	AlignedSentences  int `json:"aligned_sentences"`
	AlignedPhrases    int `json:"aligned_phrases"`
	Candidates        int `json:"candidates"`
	Filtered          int `json:"filtered"`
}

// AnalysisResponse is the complete output of one analysis
type AnalysisResponse struct {
	HierarchyVersion int                `json:"hierarchy_version"`
	SalienceMethod   string             `json:"salience_method"`
	Tree             Tree               `json:"tree"`
	Alignments       []AlignmentPair    `json:"alignments"`
	Strategies       []DetectedStrategy `json:"strategies"`
	Warnings         []string           `json:"warnings,omitempty"`
	Stats            AnalysisStats      `json:"stats"`
	AnalyzedAt       time.Time          `json:"analyzed_at"`
}
