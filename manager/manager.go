// Package manager owns every chain across the three tiers. It is the only
// writer: chains are created here, linked to their parent's tip at creation,
// and soft-deleted here, cascading down the hierarchy.
package manager

import (
	"errors"
	"fmt"
	"strings"

	"attendance-ledger/ledger"
	"attendance-ledger/logger"
	"attendance-ledger/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Observer is called with an entity after each successful mutation.
type Observer func(e *ledger.Entity)

type Option func(*Manager)

// WithObserver registers fn for mutation notifications.
func WithObserver(fn Observer) Option {
	return func(m *Manager) {
		m.observers = append(m.observers, fn)
	}
}

type Manager struct {
	difficulty   int
	orgUnits     *store
	subUnits     *store
	leafEntities *store
	observers    []Observer
}

const (
	defaultOrgUnitReason = "Org unit removed"
	defaultSubUnitReason = "Sub-unit removed"
)

func New(difficulty int, opts ...Option) *Manager {
	m := &Manager{
		difficulty:   difficulty,
		orgUnits:     newStore(),
		subUnits:     newStore(),
		leafEntities: newStore(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Difficulty() int { return m.difficulty }

func (m *Manager) notify(e *ledger.Entity) {
	for _, fn := range m.observers {
		fn(e)
	}
}

func notFound(tier ledger.Tier, id string) error {
	return fmt.Errorf("%w: %s %s", ledger.ErrNotFound, tier, id)
}

func lookup(s *store, tier ledger.Tier, id string) (*ledger.Entity, error) {
	e, ok := s.get(id)
	if !ok {
		return nil, notFound(tier, id)
	}
	return e, nil
}

// parentTip captures the parent's tip hash at this moment.
func parentTip(parent *ledger.Entity) (string, error) {
	tip := parent.Chain().Tip()
	if tip == nil {
		return "", fmt.Errorf("%w: %s %s has no sealed blocks", ledger.ErrInvalidArgument, parent.Tier(), parent.ID())
	}
	return tip.Hash, nil
}

func (m *Manager) register(s *store, e *ledger.Entity, meta ledger.Record) error {
	if _, err := e.Initialize(meta); err != nil {
		return err
	}
	s.put(e)
	metrics.ChainsCreatedTotal.WithLabelValues(string(e.Tier())).Inc()
	m.notify(e)
	return nil
}

// CreateOrgUnit creates a root chain.
func (m *Manager) CreateOrgUnit(name string, meta ledger.Record) (*ledger.Entity, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: org unit name is required", ledger.ErrInvalidArgument)
	}

	e := ledger.NewOrgUnit(uuid.NewString(), name, m.difficulty)
	if err := m.register(m.orgUnits, e, meta); err != nil {
		return nil, err
	}
	logger.Logger.Info("Org unit created", zap.String("org_unit_id", e.ID()), zap.String("name", name))
	return e, nil
}

// CreateSubUnit creates a sub-unit whose genesis links to the org unit's
// current tip.
func (m *Manager) CreateSubUnit(name, orgUnitID string, meta ledger.Record) (*ledger.Entity, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: sub-unit name is required", ledger.ErrInvalidArgument)
	}
	org, err := lookup(m.orgUnits, ledger.TierOrgUnit, orgUnitID)
	if err != nil {
		return nil, err
	}
	tip, err := parentTip(org)
	if err != nil {
		return nil, err
	}

	e := ledger.NewSubUnit(uuid.NewString(), name, orgUnitID, tip, m.difficulty)
	if err := m.register(m.subUnits, e, meta); err != nil {
		return nil, err
	}
	logger.Logger.Info("Sub-unit created",
		zap.String("sub_unit_id", e.ID()),
		zap.String("name", name),
		zap.String("org_unit_id", orgUnitID))
	return e, nil
}

// AddLeafEntity creates a leaf entity under a sub-unit. externalKey
// uniqueness is the caller's responsibility.
func (m *Manager) AddLeafEntity(name, externalKey, subUnitID string, meta ledger.Record) (*ledger.Entity, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: leaf entity name is required", ledger.ErrInvalidArgument)
	}
	if strings.TrimSpace(externalKey) == "" {
		return nil, fmt.Errorf("%w: leaf entity external key is required", ledger.ErrInvalidArgument)
	}
	sub, err := lookup(m.subUnits, ledger.TierSubUnit, subUnitID)
	if err != nil {
		return nil, err
	}
	tip, err := parentTip(sub)
	if err != nil {
		return nil, err
	}

	e := ledger.NewLeafEntity(uuid.NewString(), name, externalKey, subUnitID, sub.ParentID(), tip, m.difficulty)
	if err := m.register(m.leafEntities, e, meta); err != nil {
		return nil, err
	}
	logger.Logger.Info("Leaf entity added",
		zap.String("entity_id", e.ID()),
		zap.String("name", name),
		zap.String("external_key", externalKey),
		zap.String("sub_unit_id", subUnitID))
	return e, nil
}

// update appends an UPDATE record. Status changes go through the delete
// operations so that deletion always cascades.
func (m *Manager) update(s *store, tier ledger.Tier, id string, delta ledger.Record) (*ledger.Block, error) {
	if _, ok := delta[ledger.FieldStatus]; ok {
		return nil, fmt.Errorf("%w: %s cannot be set by an update", ledger.ErrInvalidArgument, ledger.FieldStatus)
	}
	e, err := lookup(s, tier, id)
	if err != nil {
		return nil, err
	}
	b, err := e.RecordUpdate(delta)
	if err != nil {
		return nil, err
	}
	m.notify(e)
	return b, nil
}

func (m *Manager) UpdateOrgUnit(id string, delta ledger.Record) (*ledger.Block, error) {
	return m.update(m.orgUnits, ledger.TierOrgUnit, id, delta)
}

func (m *Manager) UpdateSubUnit(id string, delta ledger.Record) (*ledger.Block, error) {
	return m.update(m.subUnits, ledger.TierSubUnit, id, delta)
}

func (m *Manager) UpdateLeafEntity(id string, delta ledger.Record) (*ledger.Block, error) {
	return m.update(m.leafEntities, ledger.TierLeafEntity, id, delta)
}

func (m *Manager) markDeleted(e *ledger.Entity, reason string) error {
	if _, err := e.MarkDeleted(reason); err != nil {
		return fmt.Errorf("delete %s %s: %w", e.Tier(), e.ID(), err)
	}
	metrics.ChainsDeletedTotal.WithLabelValues(string(e.Tier())).Inc()
	m.notify(e)
	return nil
}

// DeleteOrgUnit marks the org unit deleted and cascades to every sub-unit
// under it, and through them to their leaf entities.
func (m *Manager) DeleteOrgUnit(id, reason string) error {
	org, err := lookup(m.orgUnits, ledger.TierOrgUnit, id)
	if err != nil {
		return err
	}
	if reason == "" {
		reason = defaultOrgUnitReason
	}
	if err := m.markDeleted(org, reason); err != nil {
		return err
	}

	var errs []error
	cascade := fmt.Sprintf("Cascade: parent org unit deleted (%s)", reason)
	for _, sub := range m.subUnits.childrenOf(id) {
		errs = append(errs, m.deleteSubUnit(sub, cascade))
	}
	logger.Logger.Info("Org unit deleted", zap.String("org_unit_id", id), zap.String("reason", reason))
	return errors.Join(errs...)
}

// DeleteSubUnit marks the sub-unit deleted and cascades to its leaf
// entities.
func (m *Manager) DeleteSubUnit(id, reason string) error {
	sub, err := lookup(m.subUnits, ledger.TierSubUnit, id)
	if err != nil {
		return err
	}
	return m.deleteSubUnit(sub, reason)
}

func (m *Manager) deleteSubUnit(sub *ledger.Entity, reason string) error {
	if reason == "" {
		reason = defaultSubUnitReason
	}
	if err := m.markDeleted(sub, reason); err != nil {
		return err
	}

	var errs []error
	cascade := fmt.Sprintf("Cascade: parent sub-unit deleted (%s)", reason)
	for _, leaf := range m.leafEntities.childrenOf(sub.ID()) {
		errs = append(errs, m.markDeleted(leaf, cascade))
	}
	logger.Logger.Info("Sub-unit deleted", zap.String("sub_unit_id", sub.ID()), zap.String("reason", reason))
	return errors.Join(errs...)
}

// RemoveLeafEntity marks one leaf entity deleted.
func (m *Manager) RemoveLeafEntity(id, reason string) error {
	leaf, err := lookup(m.leafEntities, ledger.TierLeafEntity, id)
	if err != nil {
		return err
	}
	return m.markDeleted(leaf, reason)
}

// RecordEvent appends an event to a leaf entity's ledger.
func (m *Manager) RecordEvent(id string, status ledger.EventStatus, date string, meta ledger.Record) (*ledger.Block, error) {
	leaf, err := lookup(m.leafEntities, ledger.TierLeafEntity, id)
	if err != nil {
		return nil, err
	}
	b, err := leaf.RecordEvent(status, date, meta)
	if err != nil {
		return nil, err
	}
	metrics.EventsRecordedTotal.WithLabelValues(string(status)).Inc()
	m.notify(leaf)
	return b, nil
}
