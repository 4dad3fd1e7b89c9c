package service

import (
	"testing"
	"time"

	"quality-backend/internal/models"
)

func sessionAt(start time.Time, end *time.Time) models.RevisionSession {
	return models.RevisionSession{StartedAt: start, EndedAt: end}
}

func TestSessionMinutes(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	start := now.Add(-30 * time.Minute)
	end := now.Add(-5 * time.Minute)
	got := SessionMinutes(sessionAt(start, &end), now)
	if got != 25 {
		t.Errorf("Expected 25 minutes, got %d", got)
	}
}

func TestSessionMinutesRunning(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	got := SessionMinutes(sessionAt(now.Add(-45*time.Minute), nil), now)
	if got != 45 {
		t.Errorf("Running session should count up to now, expected 45, got %d", got)
	}
}

func TestSessionMinutesFloorsPartialMinute(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	start := now.Add(-10*time.Minute - 59*time.Second)
	end := now
	got := SessionMinutes(sessionAt(start, &end), now)
	if got != 10 {
		t.Errorf("Partial minutes should be floored, expected 10, got %d", got)
	}
}

func TestSessionMinutesClampsNegative(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	// End before start, as happens after a terminal clock adjustment
	start := now
	end := now.Add(-20 * time.Minute)
	got := SessionMinutes(sessionAt(start, &end), now)
	if got != 0 {
		t.Errorf("Negative duration should count as zero, got %d", got)
	}
}

func TestTotalMinutes(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	end1 := now.Add(-90 * time.Minute)
	end2 := now.Add(-10 * time.Minute)
	sessions := []models.RevisionSession{
		sessionAt(now.Add(-120*time.Minute), &end1), // 30 min
		sessionAt(now.Add(-25*time.Minute), &end2),  // 15 min
	}

	got := TotalMinutes(sessions, now)
	if got != 45 {
		t.Errorf("Expected 45 total minutes, got %d", got)
	}
}

func TestTotalMinutesIgnoresNegativeSessions(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	end1 := now.Add(-30 * time.Minute)
	end2 := now.Add(-60 * time.Minute)
	sessions := []models.RevisionSession{
		sessionAt(now.Add(-60*time.Minute), &end1), // 30 min
		sessionAt(now.Add(-10*time.Minute), &end2), // negative, counts as 0
	}

	got := TotalMinutes(sessions, now)
	if got != 30 {
		t.Errorf("Negative session should not subtract, expected 30, got %d", got)
	}
}

func TestTotalMinutesEmpty(t *testing.T) {
	if got := TotalMinutes(nil, time.Now()); got != 0 {
		t.Errorf("Expected 0 for no sessions, got %d", got)
	}
}
