package service

import (
	"context"
	"errors"
	"testing"

	"github.com/opsdeck/opsdeck/internal/domain/staff"
)

// mockDirectory implements staffdir.Directory for testing.
type mockDirectory struct {
	members map[string]staff.Member
	err     error
}

func (d *mockDirectory) Resolve(_ context.Context, id string) (*staff.Member, error) {
	if d.err != nil {
		return nil, d.err
	}
	m, ok := d.members[id]
	if !ok {
		return nil, errors.New("no record")
	}
	return &m, nil
}

func TestStaffServiceDisplayName(t *testing.T) {
	svc := NewStaffService(&mockDirectory{members: map[string]staff.Member{
		"u1": {ID: "u1", Name: "Alice Chen"},
	}})

	if got := svc.DisplayName(context.Background(), "u1"); got != "Alice Chen" {
		t.Errorf("expected Alice Chen, got %q", got)
	}
}

func TestStaffServiceDisplayNameFallsBack(t *testing.T) {
	svc := NewStaffService(&mockDirectory{err: errors.New("directory down")})

	if got := svc.DisplayName(context.Background(), "u1"); got != "u1" {
		t.Errorf("expected fallback to raw id, got %q", got)
	}
	if got := svc.DisplayName(context.Background(), ""); got != "" {
		t.Errorf("expected empty for empty id, got %q", got)
	}
}
