// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared records of the maezuru scan pipeline:
// scan requests, grounding citations, discovered profiles, the structured
// personal-data block and the history entries that persist them.
package types

import (
	"fmt"
	"strings"
	"time"
)

// SearchType tags what kind of identifier a scan targets.
type SearchType string

const (
	SearchUsername   SearchType = "USERNAME"
	SearchEmail      SearchType = "EMAIL"
	SearchPhone      SearchType = "PHONE"
	SearchRealName   SearchType = "REALNAME"
	SearchDomain     SearchType = "DOMAIN"
	SearchMultimedia SearchType = "MULTIMIDIA"
)

// SearchTypes lists every accepted SearchType in display order.
var SearchTypes = []SearchType{
	SearchUsername,
	SearchEmail,
	SearchPhone,
	SearchRealName,
	SearchDomain,
	SearchMultimedia,
}

// ParseSearchType resolves a user-supplied tag to a SearchType. Matching is
// case-insensitive and accepts both MULTIMEDIA and the MULTIMIDIA wire tag.
func ParseSearchType(s string) (SearchType, error) {
	tag := strings.ToUpper(strings.TrimSpace(s))
	if tag == "MULTIMEDIA" {
		return SearchMultimedia, nil
	}
	for _, st := range SearchTypes {
		if string(st) == tag {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown search type %q", s)
}

// Attachment is a file handed to the AI collaborator alongside the prompt.
type Attachment struct {
	// MimeType is the detected media type (e.g. "image/png").
	MimeType string `json:"mime_type" yaml:"mime_type" validate:"required"`

	// Data is the file content, base64 encoded.
	Data string `json:"data" yaml:"data" validate:"required,base64"`
}

// ScanRequest describes exactly one scan. It is not modified after construction.
type ScanRequest struct {
	Query      string      `json:"query" yaml:"query" validate:"required_without=Attachment"`
	Type       SearchType  `json:"type" yaml:"type" validate:"required,oneof=USERNAME EMAIL PHONE REALNAME DOMAIN MULTIMIDIA"`
	DeepScan   bool        `json:"deep_scan" yaml:"deep_scan"`
	Attachment *Attachment `json:"attachment,omitempty" yaml:"attachment,omitempty"`
}

// WebSource is a web page cited by the AI collaborator.
type WebSource struct {
	URI   string `json:"uri" yaml:"uri"`
	Title string `json:"title" yaml:"title"`
}

// MapsSource is a map entry cited by the AI collaborator.
type MapsSource struct {
	URI     string `json:"uri" yaml:"uri"`
	Title   string `json:"title" yaml:"title"`
	PlaceID string `json:"place_id,omitempty" yaml:"place_id,omitempty"`
}

// SourceReference is one grounding citation. Exactly one of Web or Maps is
// normally set; both may be nil when the collaborator returns an unknown kind.
type SourceReference struct {
	Web  *WebSource  `json:"web,omitempty" yaml:"web,omitempty"`
	Maps *MapsSource `json:"maps,omitempty" yaml:"maps,omitempty"`
}

// URI returns the citation's link, preferring the web variant.
func (s SourceReference) URI() string {
	if s.Web != nil {
		return s.Web.URI
	}
	if s.Maps != nil {
		return s.Maps.URI
	}
	return ""
}

// Title returns the citation's title, preferring the web variant.
func (s SourceReference) Title() string {
	if s.Web != nil {
		return s.Web.Title
	}
	if s.Maps != nil {
		return s.Maps.Title
	}
	return ""
}

// Confidence grades how strongly a discovered profile matches the query.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// DiscoveredProfile is a classified, scored web citation.
type DiscoveredProfile struct {
	// Platform is one of the fixed platform labels, "Web" when none matched.
	Platform string `json:"platform" yaml:"platform"`

	// URL is unique within a ScanResult.
	URL string `json:"url" yaml:"url"`

	Confidence Confidence `json:"confidence" yaml:"confidence"`

	// Pivot is the identifier to re-scan as a username, taken from the last
	// URL path segment. Empty when the URL offers none.
	Pivot string `json:"pivot,omitempty" yaml:"pivot,omitempty"`
}

// ScanResult is the assembled output of one successful scan.
type ScanResult struct {
	// Summary is the narrative report with the structured block removed.
	Summary string `json:"summary" yaml:"summary"`

	// Sources holds every citation in the order the collaborator returned them.
	Sources []SourceReference `json:"sources" yaml:"sources"`

	// FoundProfiles holds the deduplicated web citations, first-seen order.
	FoundProfiles []DiscoveredProfile `json:"found_profiles" yaml:"found_profiles"`

	// PersonalData is nil unless the report carried a well-formed block.
	PersonalData *PersonalData `json:"personal_data,omitempty" yaml:"personal_data,omitempty"`

	// CapturedAt is stamped by the caller after assembly.
	CapturedAt *time.Time `json:"captured_at,omitempty" yaml:"captured_at,omitempty"`
}

// WithCapture returns a copy of r stamped with t.
func (r ScanResult) WithCapture(t time.Time) ScanResult {
	r.CapturedAt = &t
	return r
}
