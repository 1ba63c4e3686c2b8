package session

import (
	"context"
	"fmt"
	"math"

	"github.com/agrocampo/farm-ops/internal/domain/bulkimport/extractor"
)

// ChunkSize is the fixed number of records written per store request.
const ChunkSize = 50

// ChunkWriter persists one chunk of validated records in a single request.
type ChunkWriter interface {
	WriteChunk(ctx context.Context, rt extractor.RecordType, records []ValidatedRecord) error
}

// PersistenceError reports a failed chunk write. Chunks written before the
// failure remain persisted; there is no compensating delete. The session can
// be retried without re-validating. Both counts are cumulative across retry
// attempts, so a failure during a resumed run still reports the batch total.
type PersistenceError struct {
	ChunksWritten  int
	RecordsWritten int
	Err            error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("insert failed after %d records (%d chunks): %v",
		e.RecordsWritten, e.ChunksWritten, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Persist writes the confirmed record set in fixed-size chunks, sequentially,
// awaiting each chunk before starting the next. onProgress (optional) fires
// after every completed chunk with the cumulative percentage. On the first
// chunk failure persistence stops immediately and the session moves to
// InsertionFailed; a later retry resumes from the first unwritten chunk so
// already-persisted records are not duplicated.
func (s *Session) Persist(ctx context.Context, w ChunkWriter, onProgress func(pct float64)) error {
	s.mu.Lock()
	if s.state != StateInserting {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("cannot persist in state %q", state)
	}
	records := s.records
	inserted := s.inserted
	s.mu.Unlock()

	// records is immutable while Inserting: Cancel is only allowed before
	// confirmation, so the slice can be walked outside the lock.
	total := len(records)
	for inserted < total {
		end := inserted + ChunkSize
		if end > total {
			end = total
		}

		if err := w.WriteChunk(ctx, s.RecordType, records[inserted:end]); err != nil {
			s.mu.Lock()
			s.state = StateInsertionFailed
			s.touch()
			s.mu.Unlock()
			return &PersistenceError{
				ChunksWritten:  inserted / ChunkSize,
				RecordsWritten: inserted,
				Err:            err,
			}
		}

		inserted = end
		pct := floorPct(inserted, total)

		s.mu.Lock()
		s.inserted = inserted
		s.progress = pct
		s.touch()
		s.mu.Unlock()

		if onProgress != nil {
			onProgress(pct)
		}
	}

	s.mu.Lock()
	s.progress = 100
	s.state = StateCompleted
	s.touch()
	s.mu.Unlock()
	return nil
}

// floorPct floors inserted/total×100 to one decimal, matching the progress
// strings users see (50/120 → 41.6, 100/120 → 83.3).
func floorPct(inserted, total int) float64 {
	if total == 0 {
		return 100
	}
	pct := float64(inserted) / float64(total) * 100
	return math.Floor(pct*10) / 10
}
