// Package announce defines the domain types and interfaces for the
// announcement ingestion and notification pipeline. Leaf packages implement
// the interfaces; keeping them here decouples the pipeline from any specific
// HTTP client, database, or mail transport.
package announce

import (
	"strings"
	"time"
)

// SourceIGNOU tags records scraped from the IGNOU announcements page.
const SourceIGNOU = "IGNOU"

// Record is one parsed announcement.
type Record struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Time        string    `json:"time"` // date label as displayed by the source; not necessarily parseable
	Source      string    `json:"source"`
	ScrapedAt   time.Time `json:"scrapedAt"`
}

// Identity is the dedup key. Two records are the same announcement iff
// their identity triples are equal as exact strings. ScrapedAt never
// participates: it always differs.
type Identity struct {
	Title       string
	Description string
	Time        string
}

// Identity returns the record's dedup key.
func (r Record) Identity() Identity {
	return Identity{Title: r.Title, Description: r.Description, Time: r.Time}
}

// SaveResult reports the outcome of a deduplicating batch save. Per-record
// failures are absorbed (logged and excluded), so a partially processed
// batch still yields a SaveResult rather than an error.
type SaveResult struct {
	NewCount int      `json:"newCount"`
	Saved    []Record `json:"notifications,omitempty"`
	Message  string   `json:"message"`
}

// RunStatus classifies one orchestrator invocation.
type RunStatus string

const (
	RunStatusNoNew      RunStatus = "no-new-records"
	RunStatusNewRecords RunStatus = "new-records"
	RunStatusFailed     RunStatus = "failed"
)

// RunOutcome is the result of one fetch -> extract -> save run.
type RunOutcome struct {
	RunID      string
	Status     RunStatus
	Scraped    []Record
	Save       SaveResult
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunRecord is the persisted history row for one run.
type RunRecord struct {
	ID         string    `json:"id"`
	Status     RunStatus `json:"status"`
	Message    string    `json:"message"`
	NewCount   int       `json:"newCount"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// NormalizeEmail canonicalizes a recipient address for dedup purposes.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
