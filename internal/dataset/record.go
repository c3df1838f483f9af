// Package dataset loads the lookup table from a remote CSV document and keeps
// an immutable, periodically refreshed snapshot of its rows.
package dataset

import "time"

// Record is one row of the lookup table. Values are trimmed and never mutated after parsing.
type Record struct {
	ID         string // compared as a string, never parsed for equality
	Keyword    string
	AltKeyword string
	ImageURL   string
	Episode    string
	AudioURL   string // empty when the row has no audio clip
}

// HasImage reports whether the record carries an image locator.
func (r Record) HasImage() bool {
	return r.ImageURL != ""
}

// HasAudio reports whether the record carries an audio locator.
func (r Record) HasAudio() bool {
	return r.AudioURL != ""
}

// Snapshot is an immutable view of the dataset at one fetch.
type Snapshot struct {
	Records   []Record
	FetchedAt time.Time
	Source    string
}

// Len returns the number of records, tolerating a nil snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

// Columns maps record fields to CSV header names.
type Columns struct {
	ID         string
	Keyword    string
	AltKeyword string
	ImageURL   string
	Episode    string
	AudioURL   string // optional column
}

// DefaultColumns returns the header names used by the published sheet.
func DefaultColumns() Columns {
	return Columns{
		ID:         "編號",
		Keyword:    "關鍵字",
		AltKeyword: "藝人",
		ImageURL:   "圖片網址",
		Episode:    "集數資訊",
		AudioURL:   "音檔",
	}
}
