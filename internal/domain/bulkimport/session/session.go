// Package session implements the import session aggregate: the state machine
// that carries one upload from parsing through validation, explicit user
// confirmation, and chunked persistence.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrocampo/farm-ops/internal/domain/bulkimport/extractor"
	"github.com/agrocampo/farm-ops/internal/domain/catalog"
	"github.com/agrocampo/farm-ops/pkg/money"
)

// State is the session's position in the import lifecycle.
type State string

const (
	StateIdle                 State = "idle"
	StateParsing              State = "parsing"
	StateValidating           State = "validating"
	StateValidationFailed     State = "validation_failed"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateInserting            State = "inserting"
	StateCompleted            State = "completed"
	StateInsertionFailed      State = "insertion_failed"
)

// ValidationError is one row-level problem. Errors accumulate across the whole
// file; a row stops at its first failing field but later rows are still
// attempted.
type ValidationError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidatedRecord is a fully reconciled row: every catalog reference resolved
// to an ID, the date normalized to YYYY-MM-DD, and the amount parsed.
// CreatedEntities tags which catalog entities were auto-created to support
// this record.
type ValidatedRecord struct {
	Line            int
	Fecha           string
	NegocioID       uuid.UUID
	RegionID        uuid.UUID
	CategoriaID     *uuid.UUID
	ConceptoID      *uuid.UUID
	ProveedorID     *uuid.UUID
	CompradorID     *uuid.UUID
	MedioPagoID     uuid.UUID
	Nombre          string
	Valor           decimal.Decimal
	Observaciones   *string
	Estado          *string
	CreatedEntities []catalog.Entity
}

// Summary is what the user sees while the session awaits confirmation.
type Summary struct {
	Rows            int             `json:"rows"`
	Total           decimal.Decimal `json:"total"`
	TotalDisplay    string          `json:"total_display"`
	CreatedEntities int             `json:"created_entities"`
}

// Session owns one upload-to-persist cycle: the catalog caches, the
// accumulated errors, the validated records, and the current state. All of it
// is scoped to the one session; two sessions never share mutable state. An
// internal mutex guards every state transition and read, so concurrent HTTP
// calls on the same session (a double-clicked confirm, a status poll during
// insertion) cannot interleave. Persist releases the mutex around each chunk
// write so polls observe progress mid-insert, and it is also what keeps the
// resolver's check-then-create sequence race-free within the session.
type Session struct {
	ID         uuid.UUID
	RecordType extractor.RecordType
	Filename   string

	mu       sync.Mutex
	state    State
	resolver *catalog.Resolver
	errors   []ValidationError
	records  []ValidatedRecord
	inserted int
	progress float64

	CreatedAt time.Time
	touchedAt time.Time
}

// New creates a session in the Idle state over a resolver whose cache was
// freshly loaded for this session.
func New(rt extractor.RecordType, filename string, resolver *catalog.Resolver) *Session {
	now := time.Now()
	return &Session{
		ID:         uuid.New(),
		RecordType: rt,
		Filename:   filename,
		state:      StateIdle,
		resolver:   resolver,
		CreatedAt:  now,
		touchedAt:  now,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Errors returns every accumulated validation error, in row order.
func (s *Session) Errors() []ValidationError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors
}

// Records returns the validated record set.
func (s *Session) Records() []ValidatedRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records
}

// Inserted reports how many records have been persisted so far.
func (s *Session) Inserted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserted
}

// Progress reports the persistence progress percentage, floored to one
// decimal place.
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// TouchedAt reports when the session last changed state or progress; the
// janitor compares it against the TTL.
func (s *Session) TouchedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchedAt
}

// CreatedEntities returns the catalog entities auto-created during
// validation, in creation order.
func (s *Session) CreatedEntities() []catalog.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolver.Created()
}

// Summary builds the confirmation summary: row count, total monetary value,
// and how many catalog entities were newly created.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, r := range s.records {
		total = total.Add(r.Valor)
	}
	return Summary{
		Rows:            len(s.records),
		Total:           total,
		TotalDisplay:    money.FormatCOP(total),
		CreatedEntities: s.resolver.CreatedCount(),
	}
}

// touch records activity. Callers hold the mutex.
func (s *Session) touch() { s.touchedAt = time.Now() }

// transition guards: every state change goes through one of these.

func (s *Session) beginParsing() { s.state = StateParsing; s.touch() }

// Confirm moves the session into Inserting. Only a session that passed
// validation and is awaiting the user's explicit confirmation may proceed;
// nothing is written before this call. A second concurrent confirm finds the
// session already Inserting and fails the guard.
func (s *Session) Confirm() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAwaitingConfirmation {
		return fmt.Errorf("cannot confirm import in state %q", s.state)
	}
	s.state = StateInserting
	s.touch()
	return nil
}

// Cancel discards the validated records and the in-memory pending-creation
// bookkeeping. Catalog entities already written to the store during
// resolution are not rolled back. Only allowed while awaiting confirmation;
// once the first chunk write starts the import runs to completion or first
// failure.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAwaitingConfirmation {
		return fmt.Errorf("cannot cancel import in state %q", s.state)
	}
	s.records = nil
	s.resolver.DiscardPending()
	s.state = StateIdle
	s.touch()
	return nil
}

// Retry re-offers the same already-resolved record set after a chunk failure.
// Catalog resolution is not re-run; only the write step repeats, so a retry
// never re-creates catalog entities.
func (s *Session) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInsertionFailed {
		return fmt.Errorf("cannot retry import in state %q", s.state)
	}
	s.state = StateAwaitingConfirmation
	s.touch()
	return nil
}
