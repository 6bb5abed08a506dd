package catalog

import (
	"context"
	"time"
)

// Intent is a cataloged user goal the system can respond to.
type Intent struct {
	ID          int64
	Name        string
	Description string
	Version     string
	Active      bool
}

// RequiredEntity is a slot an intent must have filled before a final
// response can be produced. Prompt is the question asked when the slot
// is still missing.
type RequiredEntity struct {
	EntityName string
	Required   bool
	Prompt     string
}

// CandidateResponse is a canned reply for an intent and language. A
// response with an empty Condition is the default candidate; otherwise
// every Condition key must be compared against the turn's parameters.
type CandidateResponse struct {
	ID           int64
	IntentID     int64
	Text         string
	LanguageCode string
	Condition    map[string]string
}

// HasCondition reports whether the response is condition-scoped.
func (r CandidateResponse) HasCondition() bool {
	return len(r.Condition) > 0
}

// ValidationResult is the outcome of an intent lookup. When Valid is
// false, Message carries the user-facing rejection text.
type ValidationResult struct {
	Valid      bool
	IntentID   int64
	IntentName string
	Message    string
}

// Interaction is one completed turn, as recorded in the audit history.
type Interaction struct {
	ID         int64             `json:"id"`
	Intent     string            `json:"intent"`
	Parameters map[string]string `json:"parameters"`
	Response   string            `json:"response"`
	Date       time.Time         `json:"date"`
}

// IntentCatalog resolves intent names against the configured intents.
type IntentCatalog interface {
	// ValidateIntent matches the name exactly (case-sensitive) against
	// active intents.
	ValidateIntent(ctx context.Context, name string) (ValidationResult, error)
	// RequiredEntities returns the required slots for an intent, in the
	// catalog's declared order.
	RequiredEntities(ctx context.Context, intentID int64) ([]RequiredEntity, error)
}

// EntityVocabulary normalizes raw parameter values against an entity's
// canonical values and synonyms. Normalization is best-effort: an
// unknown entity or value passes through unchanged.
type EntityVocabulary interface {
	Normalize(ctx context.Context, value, entityName string) (string, error)
}

// ResponseCatalog serves candidate responses for response selection.
type ResponseCatalog interface {
	FindResponses(ctx context.Context, intentID int64, languageCode string) ([]CandidateResponse, error)
	IntentIDByName(ctx context.Context, name string) (int64, bool, error)
}

// HistorySink records completed turns. Record failures must not abort
// the turn that produced them.
type HistorySink interface {
	Record(ctx context.Context, intent string, parameters map[string]string, responseText string) error
	Recent(ctx context.Context, limit int) ([]Interaction, error)
}
