/*
store.go - Persistence interfaces for the scoring core

PURPOSE:
  Defines the boundary between the domain logic and the database. Components
  receive an explicit store handle through their constructors - never a
  process-wide singleton client - so tests can substitute doubles and
  transactional scopes are visible in the types.

OWNERSHIP CONTRACT:
  - evaluations:         append-only, owned by the intake collaborator;
                         the core only reads them in OccurredAt order
  - gamification_state:  written only by the Engine (CAS on UpdatedAt)
  - achievement_grants:  inserted once by the Engine, deleted only by replay
  - achievement catalog: read-only to the core
  - performance_metrics: upserted only by the Aggregator

OPTIMISTIC CONCURRENCY:
  SaveState compare-and-swaps on the state's UpdatedAt value. A lost race
  returns ErrConcurrentModification; the Engine retries the whole unit.

ATOMIC UNITS:
  WithTx executes a function against transaction-scoped stores. If the
  function errors, every write inside it is rolled back. ProcessEvaluation
  and the replay reset each run as one such unit.

IMPLEMENTATIONS:
  - store/sqlite:                production SQLite store
  - gamification/store (memory): in-memory store for tests and dev
*/
package gamification

import (
	"context"
	"time"
)

// =============================================================================
// READ SIDE - Evaluation history (append-only log, externally owned)
// =============================================================================

// EvaluationStore reads the immutable evaluation log.
type EvaluationStore interface {
	// GetEvaluation returns the evaluation or nil if it does not exist.
	GetEvaluation(ctx context.Context, id EvaluationID) (*Evaluation, error)

	// EvaluationsByEntity returns all evaluations for an entity ordered by
	// OccurredAt ascending.
	EvaluationsByEntity(ctx context.Context, entityID EntityID) ([]Evaluation, error)

	// EvaluationsInRange returns the entity's evaluations with
	// from <= OccurredAt <= to, ordered by OccurredAt ascending.
	EvaluationsInRange(ctx context.Context, entityID EntityID, from, to time.Time) ([]Evaluation, error)
}

// EntityStore answers existence checks for the scored entities themselves.
// Entity records are owned by the surrounding host application.
type EntityStore interface {
	EntityExists(ctx context.Context, id EntityID) (bool, error)
}

// =============================================================================
// WRITE SIDE - Derived state owned by the core
// =============================================================================

// StateStore persists the per-entity gamification aggregate.
type StateStore interface {
	// GetState returns the entity's state or nil if none exists yet.
	GetState(ctx context.Context, entityID EntityID) (*GamificationState, error)

	// SaveState inserts or updates the state with optimistic concurrency:
	// expected is the UpdatedAt value read before modification (zero for a
	// lazily created state). A mismatch returns ErrConcurrentModification
	// and writes nothing.
	SaveState(ctx context.Context, state GamificationState, expected time.Time) error

	// DeleteState removes the entity's state row. Used only by the replay
	// reset; the engine never deletes state.
	DeleteState(ctx context.Context, entityID EntityID) error
}

// GrantStore persists achievement grants.
type GrantStore interface {
	// GrantsByEntity returns all grants for an entity ordered by GrantedAt.
	GrantsByEntity(ctx context.Context, entityID EntityID) ([]AchievementGrant, error)

	// InsertGrant records a grant. Violating the (entity, achievement)
	// uniqueness invariant returns ErrDuplicateGrant and writes nothing.
	InsertGrant(ctx context.Context, grant AchievementGrant) error

	// DeleteGrants removes all grants for an entity. Replay reset only.
	DeleteGrants(ctx context.Context, entityID EntityID) error
}

// DefinitionStore reads the achievement catalog.
type DefinitionStore interface {
	// ActiveDefinitions returns the achievement definitions with the
	// active flag set, in stable (ID) order.
	ActiveDefinitions(ctx context.Context) ([]AchievementDefinition, error)
}

// MetricStore persists per-period performance metrics.
type MetricStore interface {
	// UpsertMetric inserts or replaces the metric row keyed by
	// (entity, period type, period start).
	UpsertMetric(ctx context.Context, metric PerformanceMetric) error

	// GetMetric returns the stored metric for the period, or nil.
	GetMetric(ctx context.Context, entityID EntityID, period Period) (*PerformanceMetric, error)
}

// =============================================================================
// COMPOSED INTERFACES
// =============================================================================

// Stores bundles every persistence capability the core needs. Transaction
// scopes expose the same bundle so domain code is agnostic to whether it
// runs inside a transaction.
type Stores interface {
	EvaluationStore
	EntityStore
	StateStore
	GrantStore
	DefinitionStore
	MetricStore
}

// TxStores adds atomic execution on top of Stores.
type TxStores interface {
	Stores

	// WithTx executes fn against transaction-scoped stores. If fn returns
	// an error the transaction is rolled back; otherwise it is committed.
	WithTx(ctx context.Context, fn func(Stores) error) error
}
