package service

import (
	"context"
	"log/slog"

	"github.com/opsdeck/opsdeck/internal/domain/staff"
	"github.com/opsdeck/opsdeck/internal/port/staffdir"
)

// StaffService resolves staff ids to directory records for display. The
// directory is an external read-only system; a lookup failure degrades to
// the bare id instead of failing the caller.
type StaffService struct {
	dir staffdir.Directory
}

// NewStaffService creates a new StaffService.
func NewStaffService(dir staffdir.Directory) *StaffService {
	return &StaffService{dir: dir}
}

// Resolve returns the directory record for one staff id.
func (s *StaffService) Resolve(ctx context.Context, id string) (*staff.Member, error) {
	return s.dir.Resolve(ctx, id)
}

// DisplayName returns the member's name, falling back to the raw id when the
// directory is unreachable or has no record.
func (s *StaffService) DisplayName(ctx context.Context, id string) string {
	if id == "" {
		return ""
	}
	m, err := s.dir.Resolve(ctx, id)
	if err != nil {
		slog.Debug("resolve staff member", "staff_id", id, "error", err)
		return id
	}
	return m.Name
}
