package storage

import (
	"fmt"
	"testing"

	"github.com/julianstephens/cadence/internal/errors"
)

func TestUpsertOnConflict(t *testing.T) {
	boom := errors.New("boom")
	conflict := fmt.Errorf("%w: duplicate key", errors.ErrConflict)

	tests := []struct {
		name       string
		insertErr  error
		updateErr  error
		wantErr    error
		wantUpdate bool
	}{
		{"insert succeeds", nil, nil, nil, false},
		{"conflict falls back to update", conflict, nil, nil, true},
		{"conflict then update fails", conflict, boom, boom, true},
		{"other insert error is returned", boom, nil, boom, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated := false
			err := UpsertOnConflict(
				func() error { return tt.insertErr },
				func() error { updated = true; return tt.updateErr },
			)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if updated != tt.wantUpdate {
				t.Errorf("update called = %v, want %v", updated, tt.wantUpdate)
			}
		})
	}
}

func TestIgnoreConflict(t *testing.T) {
	if err := IgnoreConflict(fmt.Errorf("%w: x", errors.ErrConflict)); err != nil {
		t.Errorf("conflict should be ignored, got %v", err)
	}
	boom := errors.New("boom")
	if err := IgnoreConflict(boom); err != boom {
		t.Errorf("other errors should pass through, got %v", err)
	}
	if err := IgnoreConflict(nil); err != nil {
		t.Errorf("nil should stay nil, got %v", err)
	}
}
