// Package storage archives the original upload of each import session, so a
// disputed batch can be traced back to the exact file the user sent.
package storage

import "context"

// Archiver stores a copy of an uploaded file and returns its location.
type Archiver interface {
	Archive(ctx context.Context, filename string, data []byte) (string, error)
}
