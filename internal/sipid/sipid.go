// Package sipid generates the identifiers the admin API needs but that
// have no natural source elsewhere: request-correlation
// IDs for the admin HTTP surface, in the same style the audit package
// uses for event IDs.
package sipid

import "github.com/google/uuid"

// NewCorrelationID returns a fresh identifier suitable for tagging one
// admin API request end to end in logs.
func NewCorrelationID() string {
	return uuid.New().String()
}
