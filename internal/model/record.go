package model

import (
	"encoding/json"
)

// Segment is a contiguous, self-sufficient unit of document content sized to
// fit one generator call. A detected component-table region always maps to
// exactly one segment.
type Segment struct {
	Ordinal     int    `json:"ordinal"`
	SourcePages []int  `json:"source_pages"`
	Text        string `json:"text"`
}

// RawResponse is the unprocessed generator output for one segment. It is
// consumed immediately by the response recoverer.
type RawResponse struct {
	Text           string
	SegmentOrdinal int
}

// FailureReason tags a per-segment recovery outcome. Soft failures are
// recorded, never raised, so one bad segment cannot sink the document.
type FailureReason string

const (
	FailureNone               FailureReason = ""
	FailureUnparsable         FailureReason = "unparsable"
	FailureEchoedDocument     FailureReason = "echoed_document"
	FailureFileOutputDetected FailureReason = "file_output_detected"
)

// FilePayload is an embedded file decoded out of a generator response that
// returned an attachment instead of structured data.
type FilePayload struct {
	Data     []byte `json:"-"`
	FileType string `json:"file_type"`
	Size     int    `json:"size"`
}

// RecoveredRecord is the structured-or-failed outcome of recovering one
// segment's generator response. RawText is retained on every path for
// auditability.
type RecoveredRecord struct {
	Fields         map[string]Value
	RawText        string
	FailureReason  FailureReason
	SegmentOrdinal int

	// Method names the recovery strategy that produced the record.
	Method string
	// LowConfidence marks records scraped from label:value text rather
	// than parsed from structured output.
	LowConfidence bool
	// File holds the decoded payload when the generator emitted a file.
	File *FilePayload
}

// Failed reports whether the record carries a failure tag.
func (r RecoveredRecord) Failed() bool {
	return r.FailureReason != FailureNone
}

// ProcessingStats summarizes segment outcomes for one extraction call.
type ProcessingStats struct {
	SegmentsTotal     int `json:"segments_total"`
	SegmentsSucceeded int `json:"segments_succeeded"`
	SegmentsFailed    int `json:"segments_failed"`
}

// FinalRecord is the merged record for one document. It is the only entity
// that survives past the pipeline boundary.
type FinalRecord struct {
	Fields      map[string]Value
	Stats       ProcessingStats
	RawResponse string
}

// finalRecordStatsKey and finalRecordRawKey are the diagnostic field names
// consumed by logging and learning collaborators, not by rendering.
const (
	finalRecordStatsKey = "_processing_stats"
	finalRecordRawKey   = "_raw_response"
)

// MarshalJSON flattens the record: data fields at the top level plus the
// diagnostic _processing_stats and _raw_response entries.
func (r FinalRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		out[k] = v
	}
	out[finalRecordStatsKey] = r.Stats
	out[finalRecordRawKey] = r.RawResponse
	return json.Marshal(out)
}

// UnmarshalJSON reverses MarshalJSON, splitting diagnostic entries back out
// of the field map.
func (r *FinalRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Fields = make(map[string]Value, len(raw))
	for k, msg := range raw {
		switch k {
		case finalRecordStatsKey:
			if err := json.Unmarshal(msg, &r.Stats); err != nil {
				return err
			}
		case finalRecordRawKey:
			if err := json.Unmarshal(msg, &r.RawResponse); err != nil {
				return err
			}
		default:
			var v Value
			if err := json.Unmarshal(msg, &v); err != nil {
				return err
			}
			r.Fields[k] = v
		}
	}
	return nil
}
