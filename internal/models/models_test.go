package models

import "testing"

func TestRevisionStatusTransitions(t *testing.T) {
	tests := []struct {
		status    RevisionStatus
		valid     bool
		canSave   bool
		canReopen bool
	}{
		{StatusOpen, true, true, false},
		{StatusFinalized, true, false, true},
		{RevisionStatus("archived"), false, false, false},
		{RevisionStatus(""), false, false, false},
	}

	for _, tt := range tests {
		if got := tt.status.Valid(); got != tt.valid {
			t.Errorf("Valid(%q) = %v, expected %v", tt.status, got, tt.valid)
		}
		if got := tt.status.CanSave(); got != tt.canSave {
			t.Errorf("CanSave(%q) = %v, expected %v", tt.status, got, tt.canSave)
		}
		if got := tt.status.CanReopen(); got != tt.canReopen {
			t.Errorf("CanReopen(%q) = %v, expected %v", tt.status, got, tt.canReopen)
		}
	}
}
