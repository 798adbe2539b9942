/*
errors.go - Centralized error types for the scoring core

PURPOSE:
  All error types in one place for consistency and discoverability.
  Pure calculators never fail; every failure originates at the persistence
  boundary and is returned to the caller, never swallowed.

ERROR CATEGORIES:
  1. Not-found errors  - Missing evaluation/entity/achievement (not retryable)
  2. Validation errors - Score or period spec out of range (not retryable)
  3. Conflict errors   - Optimistic-locking collisions (retryable)
  4. Store errors      - Timeouts / IO failures (retryable with backoff)
  5. Invariant errors  - Double-grant attempts (surfaced as a non-fatal no-op)

USAGE:
  if gamification.IsRetryable(err) {
      // retry ProcessEvaluation with the same evaluation ID
  }
*/
package gamification

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEvaluationNotFound is returned when the referenced evaluation
	// does not exist. Permanent rejection; do not retry.
	ErrEvaluationNotFound = errors.New("evaluation not found")

	// ErrEntityNotFound is returned when the referenced entity does not exist.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrAchievementNotFound is returned when a referenced achievement
	// definition does not exist.
	ErrAchievementNotFound = errors.New("achievement not found")

	// ErrInvalidScore is returned when an incoming score is outside 1..5.
	// Raised only at intake; the engine treats stored out-of-range scores
	// as zero-point data-quality warnings so replay cannot fail on them.
	ErrInvalidScore = errors.New("score out of range (must be 1-5)")

	// ErrInvalidPeriod is returned for malformed period specs.
	ErrInvalidPeriod = errors.New("invalid period spec")

	// ErrConcurrentModification is returned when the optimistic lock on
	// GamificationState.UpdatedAt detects a conflicting write.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrDuplicateGrant is returned when inserting a grant that already
	// exists for the (entity, achievement) pair. The engine treats this as
	// a no-op, not a crash: the uniqueness constraint held.
	ErrDuplicateGrant = errors.New("achievement already granted")

	// ErrStoreUnavailable is returned on storage timeouts and IO failures.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// StateConflictError reports a lost optimistic-lock race on an entity's state.
type StateConflictError struct {
	EntityID EntityID
	Expected time.Time
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("gamification state for %s changed since %s", e.EntityID, e.Expected.Format(time.RFC3339))
}

func (e *StateConflictError) Unwrap() error { return ErrConcurrentModification }

// GrantConflictError reports an attempted double grant.
type GrantConflictError struct {
	EntityID      EntityID
	AchievementID AchievementID
}

func (e *GrantConflictError) Error() string {
	return fmt.Sprintf("achievement %s already granted to %s", e.AchievementID, e.EntityID)
}

func (e *GrantConflictError) Unwrap() error { return ErrDuplicateGrant }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
// Callers should use exponential backoff for ErrStoreUnavailable.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrStoreUnavailable)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidScore) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsDuplicateGrant returns true if the error reports a double-grant attempt.
// Callers treat this as success: the at-most-once invariant held.
func IsDuplicateGrant(err error) bool {
	return errors.Is(err, ErrDuplicateGrant)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEvaluationNotFound) ||
		errors.Is(err, ErrEntityNotFound) ||
		errors.Is(err, ErrAchievementNotFound)
}
