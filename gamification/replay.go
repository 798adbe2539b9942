/*
replay.go - Full re-derivation of an entity's state from the evaluation log

PURPOSE:
  The evaluation log is the source of truth; gamification state, grants and
  metrics are derived. Recompute throws the derived state away and re-runs the
  engine over the full history in OccurredAt order. Used after rule changes
  (points table, level thresholds, streak window) and for corruption recovery.

DETERMINISM:
  Replaying the same history always converges to the same derived values.
  Bookkeeping timestamps (UpdatedAt, GrantedAt, ComputedAt) reflect the replay
  wall clock and are excluded from that guarantee.
*/
package gamification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/warp/scoring-engine/telemetry"
)

// ReplayController rebuilds one entity's derived state from scratch.
type ReplayController struct {
	Stores TxStores
	Engine *Engine
	Logger *zap.Logger
}

func NewReplayController(stores TxStores, engine *Engine, logger *zap.Logger) *ReplayController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplayController{Stores: stores, Engine: engine, Logger: logger}
}

// Recompute deletes the entity's gamification state and grants, then
// re-processes its full evaluation history in order. Returns the final view.
//
// The reset runs in its own transaction; each evaluation then replays through
// the regular engine pipeline, so replay exercises exactly the production
// code path (including metric refreshes).
func (r *ReplayController) Recompute(ctx context.Context, entityID EntityID) (*StateView, error) {
	exists, err := r.Stores.EntityExists(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("entity %s: %w", entityID, ErrEntityNotFound)
	}

	err = r.Stores.WithTx(ctx, func(s Stores) error {
		if err := s.DeleteGrants(ctx, entityID); err != nil {
			return err
		}
		return s.DeleteState(ctx, entityID)
	})
	if err != nil {
		return nil, err
	}

	history, err := r.Stores.EvaluationsByEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}

	r.Logger.Info("replaying evaluation history",
		zap.String("entity_id", string(entityID)),
		zap.Int("evaluations", len(history)))

	var view *StateView
	for _, ev := range history {
		view, err = r.Engine.ProcessEvaluation(ctx, ev.ID)
		if err != nil {
			return nil, fmt.Errorf("replay of evaluation %s: %w", ev.ID, err)
		}
	}

	if view == nil {
		// No history at all: the entity ends up with a fresh zero view.
		view, err = r.Engine.StateView(ctx, entityID)
		if err != nil {
			return nil, err
		}
	}

	telemetry.RecordReplay()
	return view, nil
}
