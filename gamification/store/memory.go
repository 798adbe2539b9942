// Package store provides Stores implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/scoring-engine/gamification"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	entities    map[gamification.EntityID]bool
	evaluations map[gamification.EntityID][]gamification.Evaluation
	byID        map[gamification.EvaluationID]gamification.Evaluation
	states      map[gamification.EntityID]gamification.GamificationState
	grants      map[gamification.EntityID][]gamification.AchievementGrant
	grantKeys   map[grantKey]bool
	definitions []gamification.AchievementDefinition
	metrics     map[metricKey]gamification.PerformanceMetric
}

type grantKey struct {
	EntityID      gamification.EntityID
	AchievementID gamification.AchievementID
}

type metricKey struct {
	EntityID   gamification.EntityID
	PeriodType gamification.PeriodType
	Start      int64
}

func NewMemory() *Memory {
	return &Memory{
		entities:    make(map[gamification.EntityID]bool),
		evaluations: make(map[gamification.EntityID][]gamification.Evaluation),
		byID:        make(map[gamification.EvaluationID]gamification.Evaluation),
		states:      make(map[gamification.EntityID]gamification.GamificationState),
		grants:      make(map[gamification.EntityID][]gamification.AchievementGrant),
		grantKeys:   make(map[grantKey]bool),
		metrics:     make(map[metricKey]gamification.PerformanceMetric),
	}
}

// -----------------------------------------------------------------------------
// Seeding helpers (not part of the Stores interface)
// -----------------------------------------------------------------------------

// AddEntity registers an entity so existence checks pass.
func (m *Memory) AddEntity(id gamification.EntityID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[id] = true
}

// AddEvaluation appends to the evaluation log, keeping OccurredAt order.
func (m *Memory) AddEvaluation(ev gamification.Evaluation) {
	m.mu.Lock()
	defer m.mu.Unlock()

	evs := m.evaluations[ev.EntityID]
	i := sort.Search(len(evs), func(i int) bool {
		return evs[i].OccurredAt.After(ev.OccurredAt)
	})
	evs = append(evs, gamification.Evaluation{})
	copy(evs[i+1:], evs[i:])
	evs[i] = ev
	m.evaluations[ev.EntityID] = evs
	m.byID[ev.ID] = ev
}

// SeedDefinitions replaces the achievement catalog.
func (m *Memory) SeedDefinitions(defs []gamification.AchievementDefinition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.definitions = append([]gamification.AchievementDefinition{}, defs...)
	sort.Slice(m.definitions, func(i, j int) bool {
		return m.definitions[i].ID < m.definitions[j].ID
	})
}

// -----------------------------------------------------------------------------
// EvaluationStore / EntityStore
// -----------------------------------------------------------------------------

func (m *Memory) GetEvaluation(_ context.Context, id gamification.EvaluationID) (*gamification.Evaluation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getEvaluationLocked(id)
}

func (m *Memory) getEvaluationLocked(id gamification.EvaluationID) (*gamification.Evaluation, error) {
	ev, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return &ev, nil
}

func (m *Memory) EvaluationsByEntity(_ context.Context, entityID gamification.EntityID) ([]gamification.Evaluation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.evaluationsByEntityLocked(entityID)
}

func (m *Memory) evaluationsByEntityLocked(entityID gamification.EntityID) ([]gamification.Evaluation, error) {
	result := make([]gamification.Evaluation, len(m.evaluations[entityID]))
	copy(result, m.evaluations[entityID])
	return result, nil
}

func (m *Memory) EvaluationsInRange(_ context.Context, entityID gamification.EntityID, from, to time.Time) ([]gamification.Evaluation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.evaluationsInRangeLocked(entityID, from, to)
}

func (m *Memory) evaluationsInRangeLocked(entityID gamification.EntityID, from, to time.Time) ([]gamification.Evaluation, error) {
	var result []gamification.Evaluation
	for _, ev := range m.evaluations[entityID] {
		if !ev.OccurredAt.Before(from) && !ev.OccurredAt.After(to) {
			result = append(result, ev)
		}
	}
	return result, nil
}

func (m *Memory) EntityExists(_ context.Context, id gamification.EntityID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entities[id], nil
}

// -----------------------------------------------------------------------------
// StateStore
// -----------------------------------------------------------------------------

func (m *Memory) GetState(_ context.Context, entityID gamification.EntityID) (*gamification.GamificationState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getStateLocked(entityID)
}

func (m *Memory) getStateLocked(entityID gamification.EntityID) (*gamification.GamificationState, error) {
	state, ok := m.states[entityID]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (m *Memory) SaveState(_ context.Context, state gamification.GamificationState, expected time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveStateLocked(state, expected)
}

func (m *Memory) saveStateLocked(state gamification.GamificationState, expected time.Time) error {
	existing, ok := m.states[state.EntityID]
	if ok {
		if !existing.UpdatedAt.Equal(expected) {
			return &gamification.StateConflictError{EntityID: state.EntityID, Expected: expected}
		}
	} else if !expected.IsZero() {
		return &gamification.StateConflictError{EntityID: state.EntityID, Expected: expected}
	}
	m.states[state.EntityID] = state
	return nil
}

func (m *Memory) DeleteState(_ context.Context, entityID gamification.EntityID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteStateLocked(entityID)
	return nil
}

func (m *Memory) deleteStateLocked(entityID gamification.EntityID) {
	delete(m.states, entityID)
}

// -----------------------------------------------------------------------------
// GrantStore / DefinitionStore
// -----------------------------------------------------------------------------

func (m *Memory) GrantsByEntity(_ context.Context, entityID gamification.EntityID) ([]gamification.AchievementGrant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.grantsByEntityLocked(entityID)
}

func (m *Memory) grantsByEntityLocked(entityID gamification.EntityID) ([]gamification.AchievementGrant, error) {
	result := make([]gamification.AchievementGrant, len(m.grants[entityID]))
	copy(result, m.grants[entityID])
	return result, nil
}

func (m *Memory) InsertGrant(_ context.Context, grant gamification.AchievementGrant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertGrantLocked(grant)
}

func (m *Memory) insertGrantLocked(grant gamification.AchievementGrant) error {
	k := grantKey{EntityID: grant.EntityID, AchievementID: grant.AchievementID}
	if m.grantKeys[k] {
		return &gamification.GrantConflictError{EntityID: grant.EntityID, AchievementID: grant.AchievementID}
	}
	m.grantKeys[k] = true
	m.grants[grant.EntityID] = append(m.grants[grant.EntityID], grant)
	return nil
}

func (m *Memory) DeleteGrants(_ context.Context, entityID gamification.EntityID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteGrantsLocked(entityID)
	return nil
}

func (m *Memory) deleteGrantsLocked(entityID gamification.EntityID) {
	for _, g := range m.grants[entityID] {
		delete(m.grantKeys, grantKey{EntityID: entityID, AchievementID: g.AchievementID})
	}
	delete(m.grants, entityID)
}

func (m *Memory) ActiveDefinitions(_ context.Context) ([]gamification.AchievementDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeDefinitionsLocked()
}

func (m *Memory) activeDefinitionsLocked() ([]gamification.AchievementDefinition, error) {
	var result []gamification.AchievementDefinition
	for _, def := range m.definitions {
		if def.Active {
			result = append(result, def)
		}
	}
	return result, nil
}

// -----------------------------------------------------------------------------
// MetricStore
// -----------------------------------------------------------------------------

func (m *Memory) UpsertMetric(_ context.Context, metric gamification.PerformanceMetric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertMetricLocked(metric)
	return nil
}

func (m *Memory) upsertMetricLocked(metric gamification.PerformanceMetric) {
	m.metrics[metricKeyFor(metric.EntityID, metric.Period)] = metric
}

func (m *Memory) GetMetric(_ context.Context, entityID gamification.EntityID, period gamification.Period) (*gamification.PerformanceMetric, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getMetricLocked(entityID, period)
}

func (m *Memory) getMetricLocked(entityID gamification.EntityID, period gamification.Period) (*gamification.PerformanceMetric, error) {
	metric, ok := m.metrics[metricKeyFor(entityID, period)]
	if !ok {
		return nil, nil
	}
	return &metric, nil
}

func metricKeyFor(entityID gamification.EntityID, p gamification.Period) metricKey {
	return metricKey{EntityID: entityID, PeriodType: p.Type, Start: p.Start.Unix()}
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For the memory store, this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(gamification.Stores) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()

	txStore := &txMemoryView{parent: tm}
	if err := fn(txStore); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		states:    make(map[gamification.EntityID]gamification.GamificationState, len(tm.states)),
		grants:    make(map[gamification.EntityID][]gamification.AchievementGrant, len(tm.grants)),
		grantKeys: make(map[grantKey]bool, len(tm.grantKeys)),
		metrics:   make(map[metricKey]gamification.PerformanceMetric, len(tm.metrics)),
	}
	for k, v := range tm.states {
		s.states[k] = v
	}
	for k, v := range tm.grants {
		s.grants[k] = append([]gamification.AchievementGrant{}, v...)
	}
	for k, v := range tm.grantKeys {
		s.grantKeys[k] = v
	}
	for k, v := range tm.metrics {
		s.metrics[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.states = s.states
	tm.grants = s.grants
	tm.grantKeys = s.grantKeys
	tm.metrics = s.metrics
}

// memorySnapshot captures only the mutable derived tables; the evaluation
// log and catalog are never written inside a transaction.
type memorySnapshot struct {
	states    map[gamification.EntityID]gamification.GamificationState
	grants    map[gamification.EntityID][]gamification.AchievementGrant
	grantKeys map[grantKey]bool
	metrics   map[metricKey]gamification.PerformanceMetric
}

type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) GetEvaluation(_ context.Context, id gamification.EvaluationID) (*gamification.Evaluation, error) {
	return tv.parent.getEvaluationLocked(id)
}

func (tv *txMemoryView) EvaluationsByEntity(_ context.Context, entityID gamification.EntityID) ([]gamification.Evaluation, error) {
	return tv.parent.evaluationsByEntityLocked(entityID)
}

func (tv *txMemoryView) EvaluationsInRange(_ context.Context, entityID gamification.EntityID, from, to time.Time) ([]gamification.Evaluation, error) {
	return tv.parent.evaluationsInRangeLocked(entityID, from, to)
}

func (tv *txMemoryView) EntityExists(_ context.Context, id gamification.EntityID) (bool, error) {
	return tv.parent.entities[id], nil
}

func (tv *txMemoryView) GetState(_ context.Context, entityID gamification.EntityID) (*gamification.GamificationState, error) {
	return tv.parent.getStateLocked(entityID)
}

func (tv *txMemoryView) SaveState(_ context.Context, state gamification.GamificationState, expected time.Time) error {
	return tv.parent.saveStateLocked(state, expected)
}

func (tv *txMemoryView) DeleteState(_ context.Context, entityID gamification.EntityID) error {
	tv.parent.deleteStateLocked(entityID)
	return nil
}

func (tv *txMemoryView) GrantsByEntity(_ context.Context, entityID gamification.EntityID) ([]gamification.AchievementGrant, error) {
	return tv.parent.grantsByEntityLocked(entityID)
}

func (tv *txMemoryView) InsertGrant(_ context.Context, grant gamification.AchievementGrant) error {
	return tv.parent.insertGrantLocked(grant)
}

func (tv *txMemoryView) DeleteGrants(_ context.Context, entityID gamification.EntityID) error {
	tv.parent.deleteGrantsLocked(entityID)
	return nil
}

func (tv *txMemoryView) ActiveDefinitions(_ context.Context) ([]gamification.AchievementDefinition, error) {
	return tv.parent.activeDefinitionsLocked()
}

func (tv *txMemoryView) UpsertMetric(_ context.Context, metric gamification.PerformanceMetric) error {
	tv.parent.upsertMetricLocked(metric)
	return nil
}

func (tv *txMemoryView) GetMetric(_ context.Context, entityID gamification.EntityID, period gamification.Period) (*gamification.PerformanceMetric, error) {
	return tv.parent.getMetricLocked(entityID, period)
}
