// Package catalog maintains the persistent mapping from face embeddings to
// stable identity labels. The catalog is an insertion-ordered sequence of
// records; insertion order is part of the matching contract.
package catalog

import "github.com/google/uuid"

// Record pairs one face embedding with its identity label. Labels are random
// UUIDs assigned once and never reused or reassigned.
type Record struct {
	Label     string    `json:"label"`
	Embedding []float32 `json:"embedding"`
}

// Catalog holds all known (embedding, label) pairs in insertion order.
//
// A Catalog is not safe for concurrent use. During a run it is owned and
// mutated exclusively by the background worker; ownership returns to the
// caller once the run's completion event has been observed.
type Catalog struct {
	matcher Matcher
	records []Record
}

// New creates an empty catalog using the given matcher.
func New(m Matcher) *Catalog {
	return &Catalog{matcher: m}
}

// FromRecords creates a catalog seeded with previously persisted records.
// The slice order is preserved; it determines match precedence.
func FromRecords(m Matcher, records []Record) *Catalog {
	return &Catalog{matcher: m, records: records}
}

// MatchOrRegister resolves an embedding to an identity label.
//
// The catalog is scanned in insertion order and the FIRST record within the
// matcher's threshold wins, even if a later record is numerically closer.
// This first-match tie-break keeps identity assignment stable for ambiguous
// inputs and must not be replaced with best-match. If no record matches, a
// new identity is registered at the end of the catalog.
func (c *Catalog) MatchOrRegister(embedding []float32) string {
	for _, rec := range c.records {
		if c.matcher.Matches(rec.Embedding, embedding) {
			return rec.Label
		}
	}

	rec := Record{
		Label:     uuid.NewString(),
		Embedding: embedding,
	}
	c.records = append(c.records, rec)
	return rec.Label
}

// Records returns a copy of the catalog's records in insertion order.
func (c *Catalog) Records() []Record {
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// Len returns the number of known identities.
func (c *Catalog) Len() int {
	return len(c.records)
}

// Dim returns the embedding length of the first record, or 0 for an empty catalog.
func (c *Catalog) Dim() int {
	if len(c.records) == 0 {
		return 0
	}
	return len(c.records[0].Embedding)
}

// Matcher returns the matcher configuration in use.
func (c *Catalog) Matcher() Matcher {
	return c.matcher
}
