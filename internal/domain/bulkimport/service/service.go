// Package service orchestrates import sessions: it owns the session
// registry, drives the parse/validate/persist phases, and fans results out
// to the notification sink and the metrics.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/agrocampo/farm-ops/internal/domain/bulkimport/extractor"
	"github.com/agrocampo/farm-ops/internal/domain/bulkimport/session"
	"github.com/agrocampo/farm-ops/internal/domain/bulkimport/template"
	"github.com/agrocampo/farm-ops/internal/domain/catalog"
	"github.com/agrocampo/farm-ops/pkg/metrics"
)

// MaxDisplayedErrors caps the validation errors returned to the client; the
// remainder is reported as a count so huge broken files stay readable.
const MaxDisplayedErrors = 20

var (
	// ErrSessionNotFound is returned when the session id is unknown or the
	// session was already purged.
	ErrSessionNotFound = errors.New("import session not found")
	// ErrNoRows is returned when the uploaded file parses but contains no
	// data rows.
	ErrNoRows = errors.New("el archivo no contiene filas de datos")
	// ErrUnknownRecordType is returned for a record type other than gastos
	// or ingresos.
	ErrUnknownRecordType = errors.New("tipo de registro desconocido")
)

// Notifier receives exactly one callback per session terminal transition.
type Notifier interface {
	ImportSucceeded(count int)
	ImportFailed(message string)
}

// Status is the client-facing snapshot of a session.
type Status struct {
	ID            uuid.UUID                 `json:"id"`
	RecordType    extractor.RecordType      `json:"record_type"`
	Filename      string                    `json:"filename"`
	State         session.State             `json:"state"`
	Rows          int                       `json:"rows"`
	Inserted      int                       `json:"inserted"`
	Progress      float64                   `json:"progress"`
	Errors        []session.ValidationError `json:"errors,omitempty"`
	OmittedErrors int                       `json:"omitted_errors,omitempty"`
	Summary       *session.Summary          `json:"summary,omitempty"`
}

// ImportService drives the bulk import workflow end to end.
type ImportService struct {
	catalogs catalog.Store
	records  session.ChunkWriter
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.ImportMetrics
	tracer   trace.Tracer
	ttl      time.Duration

	mu       sync.Mutex
	sessions map[uuid.UUID]*session.Session
}

// NewImportService creates the import service. ttl bounds how long an
// untouched session stays in the registry before the janitor purges it.
func NewImportService(catalogs catalog.Store, records session.ChunkWriter, notifier Notifier, m *metrics.ImportMetrics, logger *slog.Logger, ttl time.Duration) *ImportService {
	return &ImportService{
		catalogs: catalogs,
		records:  records,
		notifier: notifier,
		logger:   logger,
		metrics:  m,
		tracer:   otel.Tracer("bulkimport"),
		ttl:      ttl,
		sessions: make(map[uuid.UUID]*session.Session),
	}
}

// Begin parses and validates an uploaded file under a fresh session. The
// session gets its own catalog cache loaded from the store, so two
// concurrent uploads can never observe each other's pending entities.
func (s *ImportService) Begin(ctx context.Context, rt extractor.RecordType, filename string, data []byte) (*Status, error) {
	if !rt.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRecordType, rt)
	}

	ctx, span := s.tracer.Start(ctx, "import.begin")
	defer span.End()

	s.metrics.SessionsStarted.WithLabelValues(string(rt)).Inc()

	cache, err := catalog.LoadCache(ctx, s.catalogs, catalog.Kinds)
	if err != nil {
		return nil, fmt.Errorf("load catalog cache: %w", err)
	}

	sess := session.New(rt, filename, catalog.NewResolver(cache, s.catalogs))
	if err := sess.Run(ctx, data); err != nil {
		s.metrics.SessionsFailed.WithLabelValues(string(rt), "parse").Inc()
		s.logger.Warn("import file failed to parse",
			slog.String("filename", filename), slog.Any("error", err))
		s.notifier.ImportFailed(err.Error())
		return nil, err
	}

	switch sess.State() {
	case session.StateValidationFailed:
		s.metrics.SessionsFailed.WithLabelValues(string(rt), "validation").Inc()
		s.metrics.RowsRejected.WithLabelValues(string(rt)).Add(float64(len(sess.Errors())))
		s.logger.Info("import rejected by validation",
			slog.String("filename", filename), slog.Int("errors", len(sess.Errors())))
		s.notifier.ImportFailed(fmt.Sprintf("%d filas con errores", len(sess.Errors())))
	case session.StateAwaitingConfirmation:
		if len(sess.Records()) == 0 {
			return nil, ErrNoRows
		}
		s.metrics.RowsValidated.WithLabelValues(string(rt)).Add(float64(len(sess.Records())))
		for _, e := range sess.CreatedEntities() {
			s.metrics.EntitiesCreated.WithLabelValues(string(e.Kind)).Inc()
		}
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return s.snapshot(sess), nil
}

// Confirm runs the chunked persistence for a session awaiting confirmation.
// It blocks until the batch completes or the first chunk fails.
func (s *ImportService) Confirm(ctx context.Context, id uuid.UUID) (*Status, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "import.persist")
	defer span.End()

	if err := sess.Confirm(); err != nil {
		return nil, err
	}

	rt := string(sess.RecordType)
	s.metrics.BatchSize.WithLabelValues(rt).Observe(float64(len(sess.Records())))

	err = sess.Persist(ctx, s.records, func(pct float64) {
		s.logger.Info("import progress",
			slog.String("session_id", id.String()), slog.Float64("pct", pct))
	})
	if err != nil {
		s.metrics.SessionsFailed.WithLabelValues(rt, "insert").Inc()
		s.logger.Warn("import persistence failed",
			slog.String("session_id", id.String()), slog.Any("error", err))
		s.notifier.ImportFailed(err.Error())
		return s.snapshot(sess), err
	}

	s.metrics.SessionsCompleted.WithLabelValues(rt).Inc()
	s.logger.Info("import completed",
		slog.String("session_id", id.String()), slog.Int("rows", sess.Inserted()))
	s.notifier.ImportSucceeded(sess.Inserted())
	return s.snapshot(sess), nil
}

// Cancel discards a session awaiting confirmation and drops it from the
// registry. Catalog entities created during resolution stay in the store.
func (s *ImportService) Cancel(_ context.Context, id uuid.UUID) error {
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	if err := sess.Cancel(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	s.logger.Info("import cancelled", slog.String("session_id", id.String()))
	return nil
}

// Retry re-arms a session that failed mid-insert. The already-resolved
// records are kept; a subsequent Confirm resumes from the first unwritten
// chunk.
func (s *ImportService) Retry(_ context.Context, id uuid.UUID) (*Status, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := sess.Retry(); err != nil {
		return nil, err
	}
	return s.snapshot(sess), nil
}

// Get returns the current snapshot of a session.
func (s *ImportService) Get(_ context.Context, id uuid.UUID) (*Status, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return s.snapshot(sess), nil
}

// Template renders the record type's downloadable workbook from live
// catalog data.
func (s *ImportService) Template(ctx context.Context, rt extractor.RecordType) ([]byte, string, error) {
	if !rt.Valid() {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownRecordType, rt)
	}
	data, err := template.Build(ctx, s.catalogs, rt)
	if err != nil {
		return nil, "", fmt.Errorf("build %s template: %w", rt, err)
	}
	return data, template.Filename(rt), nil
}

// PurgeStale drops sessions untouched for longer than the TTL and returns
// how many were removed. Wired to the cron janitor.
func (s *ImportService) PurgeStale(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.TouchedAt()) > s.ttl {
			delete(s.sessions, id)
			purged++
		}
	}
	if purged > 0 {
		s.logger.Info("purged stale import sessions", slog.Int("count", purged))
	}
	return purged
}

func (s *ImportService) lookup(id uuid.UUID) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// snapshot builds the client-facing view, capping the error list.
func (s *ImportService) snapshot(sess *session.Session) *Status {
	st := &Status{
		ID:         sess.ID,
		RecordType: sess.RecordType,
		Filename:   sess.Filename,
		State:      sess.State(),
		Rows:       len(sess.Records()),
		Inserted:   sess.Inserted(),
		Progress:   sess.Progress(),
	}

	errs := sess.Errors()
	if len(errs) > MaxDisplayedErrors {
		st.Errors = errs[:MaxDisplayedErrors]
		st.OmittedErrors = len(errs) - MaxDisplayedErrors
	} else if len(errs) > 0 {
		st.Errors = errs
	}

	if sess.State() == session.StateAwaitingConfirmation || sess.State() == session.StateCompleted {
		summary := sess.Summary()
		st.Summary = &summary
	}
	return st
}
