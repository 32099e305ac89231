// Package staffdir defines the read-only staff directory port (interface).
package staffdir

import (
	"context"

	"github.com/opsdeck/opsdeck/internal/domain/staff"
)

// Directory resolves staff ids to directory records. The core never writes
// to the directory.
type Directory interface {
	Resolve(ctx context.Context, id string) (*staff.Member, error)
}
