package service

import (
	"time"

	"quality-backend/internal/models"
)

// SessionMinutes returns the whole minutes covered by one work session.
// A session without an end is treated as running until now. Sessions
// whose end precedes their start (clock adjustments on terminals)
// count as zero rather than subtracting from the total.
func SessionMinutes(session models.RevisionSession, now time.Time) int {
	end := now
	if session.EndedAt != nil {
		end = *session.EndedAt
	}

	minutes := int(end.Sub(session.StartedAt).Minutes())
	if minutes < 0 {
		return 0
	}
	return minutes
}

// TotalMinutes sums the minutes of all sessions of a revision
func TotalMinutes(sessions []models.RevisionSession, now time.Time) int {
	total := 0
	for _, s := range sessions {
		total += SessionMinutes(s, now)
	}
	return total
}
