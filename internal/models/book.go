// file: internal/models/book.go
// version: 1.0.0
// guid: 8f2a4c6e-1b3d-4e5f-9a7b-2c4d6e8f0a1c

package models

import "strings"

// BookRecord holds everything resolved for a single ISBN. Fields are filled
// incrementally during resolution and follow a first-writer-wins policy: a
// field set by an earlier provider stage is never overwritten by a later one.
type BookRecord struct {
	ISBN        string   `json:"isbn"`
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Description string   `json:"description"`
	PageCount   int      `json:"page_count"`
	Price       string   `json:"price"`
	Genres      []string `json:"genres"`
	ImagePath   string   `json:"image_path,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	ImageSource string   `json:"image_source,omitempty"`
	Errors      []string `json:"errors,omitempty"`
}

// NewBookRecord returns an empty record for the given identifier.
func NewBookRecord(isbn string) *BookRecord {
	return &BookRecord{ISBN: isbn}
}

// FillString sets *dst to v only when *dst is still empty.
func FillString(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

// FillInt sets *dst to v only when *dst is still zero.
func FillInt(dst *int, v int) {
	if *dst == 0 && v != 0 {
		*dst = v
	}
}

// FillGenres sets *dst to v only when *dst is still empty.
func FillGenres(dst *[]string, v []string) {
	if len(*dst) == 0 && len(v) > 0 {
		*dst = v
	}
}

// AddError appends a diagnostic note. Diagnostics are append-only and never
// cleared for the lifetime of the record.
func (b *BookRecord) AddError(msg string) {
	b.Errors = append(b.Errors, msg)
}

// HasTitle reports whether the metadata stage produced a usable result.
// Records without a title are not written to the cache so a later run can
// retry the lookup.
func (b *BookRecord) HasTitle() bool {
	return strings.TrimSpace(b.Title) != ""
}

// HasImage reports whether a validated cover image was stored locally.
func (b *BookRecord) HasImage() bool {
	return b.ImagePath != ""
}

// DisplayName returns the catalog item name, "Title by Author" when an
// author is known, otherwise just the title.
func (b *BookRecord) DisplayName() string {
	if b.Title == "" {
		return ""
	}
	if b.Author == "" {
		return b.Title
	}
	return b.Title + " by " + b.Author
}
