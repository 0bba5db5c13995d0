// Package model defines the core data types shared across perfcrawl:
// extracted perfume records, transport identities, and run summaries.
// It has no dependencies on other internal packages so that every
// component can import it without cycles.
package model
