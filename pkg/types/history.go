// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HistoryEntry records one successful scan in the local history.
type HistoryEntry struct {
	ID string `json:"id" yaml:"id"`

	// Query is the scanned identifier truncated to 30 characters.
	Query string `json:"query" yaml:"query"`

	Type       SearchType `json:"type" yaml:"type"`
	CapturedAt time.Time  `json:"timestamp" yaml:"timestamp"`
	Result     ScanResult `json:"result" yaml:"result"`
}
