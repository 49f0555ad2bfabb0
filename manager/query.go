package manager

import (
	"fmt"
	"strings"
	"time"

	"attendance-ledger/ledger"
	"attendance-ledger/validator"
)

func (m *Manager) OrgUnit(id string) (*ledger.Entity, error) {
	return lookup(m.orgUnits, ledger.TierOrgUnit, id)
}

func (m *Manager) SubUnit(id string) (*ledger.Entity, error) {
	return lookup(m.subUnits, ledger.TierSubUnit, id)
}

func (m *Manager) LeafEntity(id string) (*ledger.Entity, error) {
	return lookup(m.leafEntities, ledger.TierLeafEntity, id)
}

// OrgUnits returns every org unit, deleted ones included, in creation order.
func (m *Manager) OrgUnits() []*ledger.Entity { return m.orgUnits.all() }

func (m *Manager) SubUnits() []*ledger.Entity { return m.subUnits.all() }

func (m *Manager) LeafEntities() []*ledger.Entity { return m.leafEntities.all() }

func (m *Manager) SubUnitsByOrgUnit(orgUnitID string) []*ledger.Entity {
	return m.subUnits.childrenOf(orgUnitID)
}

func (m *Manager) LeafEntitiesBySubUnit(subUnitID string) []*ledger.Entity {
	return m.leafEntities.childrenOf(subUnitID)
}

func (m *Manager) LeafEntitiesByOrgUnit(orgUnitID string) []*ledger.Entity {
	var out []*ledger.Entity
	for _, sub := range m.subUnits.childrenOf(orgUnitID) {
		out = append(out, m.leafEntities.childrenOf(sub.ID())...)
	}
	return out
}

// ActiveStates projects entities, dropping deleted ones.
func ActiveStates(entities []*ledger.Entity) []*ledger.State {
	out := []*ledger.State{}
	for _, e := range entities {
		if st := e.CurrentState(); st != nil && !st.Deleted() {
			out = append(out, st)
		}
	}
	return out
}

func search(entities []*ledger.Entity, query string, match func(st *ledger.State, q string) bool) []*ledger.State {
	q := strings.ToLower(query)
	out := []*ledger.State{}
	for _, st := range ActiveStates(entities) {
		if match(st, q) {
			out = append(out, st)
		}
	}
	return out
}

func nameContains(st *ledger.State, q string) bool {
	return strings.Contains(strings.ToLower(st.Name), q)
}

// SearchOrgUnits matches the query case-insensitively against names.
func (m *Manager) SearchOrgUnits(query string) []*ledger.State {
	return search(m.orgUnits.all(), query, nameContains)
}

func (m *Manager) SearchSubUnits(query string) []*ledger.State {
	return search(m.subUnits.all(), query, nameContains)
}

// LeafSummary pairs a leaf's state with its event counters.
type LeafSummary struct {
	*ledger.State
	Stats ledger.EventStats `json:"stats"`
}

// SearchLeafEntities matches names and external keys.
func (m *Manager) SearchLeafEntities(query string) []LeafSummary {
	q := strings.ToLower(query)
	out := []LeafSummary{}
	for _, e := range m.leafEntities.all() {
		st := e.CurrentState()
		if st == nil || st.Deleted() {
			continue
		}
		if nameContains(st, q) || strings.Contains(strings.ToLower(st.ExternalKey), q) {
			out = append(out, LeafSummary{State: st, Stats: e.EventStats()})
		}
	}
	return out
}

func (m *Manager) EventHistory(id string) ([]ledger.EventEntry, error) {
	leaf, err := m.LeafEntity(id)
	if err != nil {
		return nil, err
	}
	return leaf.EventHistory(), nil
}

func (m *Manager) EventStats(id string) (ledger.EventStats, error) {
	leaf, err := m.LeafEntity(id)
	if err != nil {
		return ledger.EventStats{}, err
	}
	return leaf.EventStats(), nil
}

func (m *Manager) CompleteLedger(id string) ([]ledger.LedgerEntry, error) {
	leaf, err := m.LeafEntity(id)
	if err != nil {
		return nil, err
	}
	return leaf.CompleteLedger(), nil
}

// AttendanceRecord is a leaf entity's event on a given date.
type AttendanceRecord struct {
	EntityID    string             `json:"entityId"`
	DisplayName string             `json:"displayName"`
	ExternalKey string             `json:"externalKey"`
	Status      ledger.EventStatus `json:"status"`
	Date        string             `json:"date"`
	BlockIndex  int64              `json:"blockIndex"`
	Timestamp   time.Time          `json:"timestamp"`
}

// SubUnitAttendance groups a sub-unit's records for one date.
type SubUnitAttendance struct {
	SubUnitID   string             `json:"subUnitId"`
	SubUnitName string             `json:"subUnitName"`
	Records     []AttendanceRecord `json:"records"`
}

// attendanceOn finds, per leaf, the first event whose date equals date
// exactly. No calendar or timezone normalization is applied.
func attendanceOn(leaves []*ledger.Entity, date string) []AttendanceRecord {
	out := []AttendanceRecord{}
	for _, leaf := range leaves {
		for _, ev := range leaf.EventHistory() {
			if ev.Date != date {
				continue
			}
			out = append(out, AttendanceRecord{
				EntityID:    leaf.ID(),
				DisplayName: leaf.Name(),
				ExternalKey: leaf.ExternalKey(),
				Status:      ev.Status,
				Date:        ev.Date,
				BlockIndex:  ev.BlockIndex,
				Timestamp:   ev.Timestamp,
			})
			break
		}
	}
	return out
}

// SubUnitAttendance returns the events recorded on date by the sub-unit's
// leaf entities.
func (m *Manager) SubUnitAttendance(subUnitID, date string) ([]AttendanceRecord, error) {
	if _, err := m.SubUnit(subUnitID); err != nil {
		return nil, err
	}
	return attendanceOn(m.leafEntities.childrenOf(subUnitID), date), nil
}

// OrgUnitAttendance fans SubUnitAttendance out over the org unit's
// sub-units.
func (m *Manager) OrgUnitAttendance(orgUnitID, date string) ([]SubUnitAttendance, error) {
	if _, err := m.OrgUnit(orgUnitID); err != nil {
		return nil, err
	}
	out := []SubUnitAttendance{}
	for _, sub := range m.subUnits.childrenOf(orgUnitID) {
		out = append(out, SubUnitAttendance{
			SubUnitID:   sub.ID(),
			SubUnitName: sub.Name(),
			Records:     attendanceOn(m.leafEntities.childrenOf(sub.ID()), date),
		})
	}
	return out, nil
}

// Snapshot is the read-only view handed to the validator.
func (m *Manager) Snapshot() validator.Snapshot {
	return validator.Snapshot{
		OrgUnits:     m.orgUnits.all(),
		SubUnits:     m.subUnits.all(),
		LeafEntities: m.leafEntities.all(),
	}
}

func (m *Manager) ValidateSystem() validator.SystemResult {
	return validator.ValidateSystem(m.Snapshot())
}

func (m *Manager) ValidationReport() string {
	return validator.GenerateReport(m.Snapshot())
}

func (m *Manager) TamperImpactOrgUnit(id string) (validator.OrgUnitImpact, error) {
	if _, err := m.OrgUnit(id); err != nil {
		return validator.OrgUnitImpact{}, err
	}
	return validator.CheckOrgUnitTamperImpact(m.Snapshot(), id), nil
}

func (m *Manager) TamperImpactSubUnit(id string) (validator.SubUnitImpact, error) {
	if _, err := m.SubUnit(id); err != nil {
		return validator.SubUnitImpact{}, err
	}
	return validator.CheckSubUnitTamperImpact(m.Snapshot(), id), nil
}

// ChainState is one entry of SystemState.
type ChainState struct {
	ID         string             `json:"id"`
	State      *ledger.State      `json:"state"`
	BlockCount int                `json:"blockCount"`
	Stats      *ledger.EventStats `json:"stats,omitempty"`
}

type SystemState struct {
	Timestamp    time.Time    `json:"timestamp"`
	OrgUnits     []ChainState `json:"orgUnits"`
	SubUnits     []ChainState `json:"subUnits"`
	LeafEntities []ChainState `json:"leafEntities"`
}

func chainStates(entities []*ledger.Entity) []ChainState {
	out := make([]ChainState, 0, len(entities))
	for _, e := range entities {
		cs := ChainState{ID: e.ID(), State: e.CurrentState(), BlockCount: e.Len()}
		if e.Tier() == ledger.TierLeafEntity {
			stats := e.EventStats()
			cs.Stats = &stats
		}
		out = append(out, cs)
	}
	return out
}

// SystemState projects the current state of every chain.
func (m *Manager) SystemState() SystemState {
	return SystemState{
		Timestamp:    time.Now().UTC(),
		OrgUnits:     chainStates(m.orgUnits.all()),
		SubUnits:     chainStates(m.subUnits.all()),
		LeafEntities: chainStates(m.leafEntities.all()),
	}
}

// SystemStats counts chains and blocks.
type SystemStats struct {
	OrgUnits     int `json:"orgUnits"`
	SubUnits     int `json:"subUnits"`
	LeafEntities int `json:"leafEntities"`
	TotalBlocks  int `json:"totalBlocks"`
	TotalEvents  int `json:"totalEvents"`
	Difficulty   int `json:"difficulty"`
}

func (m *Manager) Stats() SystemStats {
	st := SystemStats{
		OrgUnits:     m.orgUnits.count(),
		SubUnits:     m.subUnits.count(),
		LeafEntities: m.leafEntities.count(),
		Difficulty:   m.difficulty,
	}
	for _, set := range [][]*ledger.Entity{m.orgUnits.all(), m.subUnits.all(), m.leafEntities.all()} {
		for _, e := range set {
			st.TotalBlocks += e.Len()
		}
	}
	for _, e := range m.leafEntities.all() {
		st.TotalEvents += len(e.EventHistory())
	}
	return st
}

// SystemExport carries full block histories.
type SystemExport struct {
	Timestamp    time.Time              `json:"timestamp"`
	Validation   validator.SystemResult `json:"validation"`
	OrgUnits     []*ledger.Document     `json:"orgUnits"`
	SubUnits     []*ledger.Document     `json:"subUnits"`
	LeafEntities []*ledger.Document     `json:"leafEntities"`
}

func documents(entities []*ledger.Entity) []*ledger.Document {
	out := make([]*ledger.Document, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.Export())
	}
	return out
}

func (m *Manager) Export() SystemExport {
	return SystemExport{
		Timestamp:    time.Now().UTC(),
		Validation:   m.ValidateSystem(),
		OrgUnits:     documents(m.orgUnits.all()),
		SubUnits:     documents(m.subUnits.all()),
		LeafEntities: documents(m.leafEntities.all()),
	}
}

// Chain resolves an entity in any tier.
func (m *Manager) Chain(tier ledger.Tier, id string) (*ledger.Entity, error) {
	switch tier {
	case ledger.TierOrgUnit:
		return m.OrgUnit(id)
	case ledger.TierSubUnit:
		return m.SubUnit(id)
	case ledger.TierLeafEntity:
		return m.LeafEntity(id)
	}
	return nil, fmt.Errorf("%w: unknown tier %q", ledger.ErrInvalidArgument, tier)
}
