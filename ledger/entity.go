package ledger

import (
	"fmt"
	"iter"
	"sync"
	"time"
)

// StatusActive is reported by CurrentState for chains without a deletion.
const StatusActive = "active"

// kind is the tier strategy applied to the generic chain: which record tags
// it writes and which identity fields every record carries.
type kind struct {
	tier          Tier
	genesis       RecordType
	update        RecordType
	nameField     string
	defaultReason string
	identity      func(e *Entity) Record
}

// reserved lists the identity keys callers may not overwrite.
func (k *kind) reserved(e *Entity) []string {
	keys := make([]string, 0, 5)
	for key := range k.identity(e) {
		keys = append(keys, key)
	}
	return keys
}

var (
	orgUnitKind = &kind{
		tier:          TierOrgUnit,
		genesis:       OrgUnitGenesis,
		update:        OrgUnitUpdate,
		nameField:     FieldOrgUnitName,
		defaultReason: "Org unit removed",
		identity: func(e *Entity) Record {
			return Record{
				FieldOrgUnitID:   e.chain.id,
				FieldOrgUnitName: e.name,
			}
		},
	}
	subUnitKind = &kind{
		tier:          TierSubUnit,
		genesis:       SubUnitGenesis,
		update:        SubUnitUpdate,
		nameField:     FieldSubUnitName,
		defaultReason: "Sub-unit removed",
		identity: func(e *Entity) Record {
			return Record{
				FieldSubUnitID:   e.chain.id,
				FieldSubUnitName: e.name,
				FieldOrgUnitID:   e.orgUnitID,
			}
		},
	}
	leafEntityKind = &kind{
		tier:          TierLeafEntity,
		genesis:       LeafEntityGenesis,
		update:        LeafEntityUpdate,
		nameField:     FieldDisplayName,
		defaultReason: "Leaf entity removed",
		identity: func(e *Entity) Record {
			return Record{
				FieldEntityID:    e.chain.id,
				FieldDisplayName: e.name,
				FieldExternalKey: e.externalKey,
				FieldSubUnitID:   e.parentID,
				FieldOrgUnitID:   e.orgUnitID,
			}
		},
	}
)

func kindOf(t Tier) (*kind, bool) {
	switch t {
	case TierOrgUnit:
		return orgUnitKind, true
	case TierSubUnit:
		return subUnitKind, true
	case TierLeafEntity:
		return leafEntityKind, true
	}
	return nil, false
}

// Metadata tracks in-memory bookkeeping times; block timestamps remain the
// ledger's source of truth.
type Metadata struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Entity is a tier chain: one org unit, sub-unit or leaf entity and the
// ledger recording its life.
type Entity struct {
	kind  *kind
	chain *Chain

	mu          sync.RWMutex
	name        string
	externalKey string
	parentID    string
	orgUnitID   string
	parentHash  string
	counters    map[EventStatus]int
	metadata    Metadata
}

func newEntity(k *kind, id, name string, difficulty int) *Entity {
	now := time.Now().UTC()
	return &Entity{
		kind:     k,
		chain:    NewChain(id, k.tier, difficulty),
		name:     name,
		metadata: Metadata{CreatedAt: now, UpdatedAt: now},
	}
}

// NewOrgUnit returns an uninitialized org unit chain.
func NewOrgUnit(id, name string, difficulty int) *Entity {
	e := newEntity(orgUnitKind, id, name, difficulty)
	e.orgUnitID = id
	return e
}

// NewSubUnit returns an uninitialized sub-unit chain whose genesis will link
// to parentHash, the org unit's tip at creation.
func NewSubUnit(id, name, orgUnitID, parentHash string, difficulty int) *Entity {
	e := newEntity(subUnitKind, id, name, difficulty)
	e.parentID = orgUnitID
	e.orgUnitID = orgUnitID
	e.parentHash = parentHash
	return e
}

// NewLeafEntity returns an uninitialized leaf chain whose genesis will link
// to parentHash, the sub-unit's tip at creation.
func NewLeafEntity(id, name, externalKey, subUnitID, orgUnitID, parentHash string, difficulty int) *Entity {
	e := newEntity(leafEntityKind, id, name, difficulty)
	e.externalKey = externalKey
	e.parentID = subUnitID
	e.orgUnitID = orgUnitID
	e.parentHash = parentHash
	e.counters = newCounters()
	return e
}

// ID is the chain id.
func (e *Entity) ID() string { return e.chain.id }

// Tier reports which of the three hierarchy levels the entity belongs to.
func (e *Entity) Tier() Tier { return e.kind.tier }

func (e *Entity) Chain() *Chain { return e.chain }
func (e *Entity) Len() int { return e.chain.Len() }
func (e *Entity) Blocks() []*Block { return e.chain.Blocks() }

// Name is the current, possibly renamed, name.
func (e *Entity) Name() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.name
}

// ExternalKey is the caller-assigned key of a leaf entity, empty for other tiers.
func (e *Entity) ExternalKey() string { return e.externalKey }

// ParentID is the owning org unit for sub-units and the owning sub-unit for
// leaf entities. Org units have none.
func (e *Entity) ParentID() string { return e.parentID }

// OrgUnitID is the owning org unit; for org units it is their own id.
func (e *Entity) OrgUnitID() string { return e.orgUnitID }

// ParentHash is the parent tip hash captured when the chain was created.
func (e *Entity) ParentHash() string { return e.parentHash }

// Metadata returns the bookkeeping times.
func (e *Entity) Metadata() Metadata {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.metadata
}

// Initialize seals the tier genesis record built from the identity fields
// and meta.
func (e *Entity) Initialize(meta Record) (*Block, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec := e.kind.identity(e)
	rec[FieldType] = string(e.kind.genesis)
	merge(rec, meta, e.kind.reserved(e)...)

	prev := "0"
	if e.kind.tier != TierOrgUnit {
		prev = e.parentHash
	}
	return e.chain.AppendGenesis(rec, prev)
}

// RecordUpdate appends an UPDATE record. A name_updated delta renames the
// entity for every record built afterwards; earlier blocks keep their name.
func (e *Entity) RecordUpdate(delta Record) (*Block, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prevName := e.name
	if v, ok := delta[FieldNameUpdated]; ok {
		name, ok := v.(string)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %s must be a non-empty string", ErrInvalidArgument, FieldNameUpdated)
		}
		e.name = name
	}

	rec := e.kind.identity(e)
	rec[FieldType] = string(e.kind.update)
	merge(rec, delta, e.kind.reserved(e)...)

	b, err := e.chain.Append(rec)
	if err != nil {
		e.name = prevName
		return nil, err
	}
	e.metadata.UpdatedAt = time.Now().UTC()
	return b, nil
}

// MarkDeleted appends the terminal deletion record. History is kept.
func (e *Entity) MarkDeleted(reason string) (*Block, error) {
	if reason == "" {
		reason = e.kind.defaultReason
	}
	return e.RecordUpdate(Record{FieldStatus: StatusDeleted, FieldReason: reason})
}

// State is the current projection of an entity's ledger.
type State struct {
	ID          string     `json:"id"`
	Tier        Tier       `json:"tier"`
	Name        string     `json:"name,omitempty"`
	ExternalKey string     `json:"externalKey,omitempty"`
	ParentID    string     `json:"parentId,omitempty"`
	OrgUnitID   string     `json:"orgUnitId,omitempty"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	Reason      string     `json:"reason,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
	Fields      Record     `json:"fields,omitempty"`
}

// Deleted reports whether the state is terminal.
func (s *State) Deleted() bool {
	return s != nil && s.Status == StatusDeleted
}

// CurrentState projects the ledger. Any deletion record is terminal. It
// returns nil only for a chain without blocks.
func (e *Entity) CurrentState() *State {
	e.mu.RLock()
	defer e.mu.RUnlock()

	blocks := e.chain.Blocks()
	if len(blocks) == 0 {
		return nil
	}

	for i := len(blocks) - 1; i >= 0; i-- {
		rec := blocks[i].Record()
		if rec.Status() == StatusDeleted {
			at := blocks[i].Timestamp
			return &State{
				ID:        e.chain.id,
				Tier:      e.kind.tier,
				Status:    StatusDeleted,
				Reason:    rec.String(FieldReason),
				DeletedAt: &at,
			}
		}
	}

	var description string
	for i := len(blocks) - 1; i >= 0; i-- {
		rec := blocks[i].Record()
		if d := rec.String(FieldDescriptionUpdated); d != "" {
			description = d
			break
		}
		if d := rec.String(FieldDescription); d != "" {
			description = d
			break
		}
	}

	createdAt := blocks[0].Timestamp
	for i := len(blocks) - 1; i >= 0; i-- {
		rec := blocks[i].Record()
		if t := rec.Type(); t != e.kind.genesis && t != e.kind.update {
			continue
		}
		lastUpdated := blocks[i].Timestamp
		st := &State{
			ID:          e.chain.id,
			Tier:        e.kind.tier,
			Name:        e.name,
			ExternalKey: e.externalKey,
			ParentID:    e.parentID,
			OrgUnitID:   e.orgUnitID,
			Description: description,
			Status:      StatusActive,
			CreatedAt:   &createdAt,
			LastUpdated: &lastUpdated,
			Fields:      rec.Clone(),
		}
		// fields recorded in the block take precedence
		if name := rec.String(e.kind.nameField); name != "" {
			st.Name = name
		}
		if status := rec.Status(); status != "" {
			st.Status = status
		}
		return st
	}
	return nil
}

// HistoryEntry is one block as seen by History.
type HistoryEntry struct {
	BlockIndex int64      `json:"blockIndex"`
	Timestamp  time.Time  `json:"timestamp"`
	Hash       string     `json:"hash"`
	Action     RecordType `json:"action"`
	Status     string     `json:"status"`
	Record     Record     `json:"record"`
}

// History yields one entry per block in chain order. Each range over the
// sequence starts again from genesis.
func (e *Entity) History() iter.Seq[HistoryEntry] {
	return func(yield func(HistoryEntry) bool) {
		for _, b := range e.chain.Blocks() {
			rec := b.Record()
			status := rec.Status()
			if status == "" {
				status = StatusActive
			}
			entry := HistoryEntry{
				BlockIndex: b.Index,
				Timestamp:  b.Timestamp,
				Hash:       b.Hash,
				Action:     rec.Type(),
				Status:     status,
				Record:     rec,
			}
			if !yield(entry) {
				return
			}
		}
	}
}

// VerifyParentLinkage reports whether the genesis block links to expected.
func (e *Entity) VerifyParentLinkage(expected string) bool {
	genesis := e.chain.Block(0)
	return genesis != nil && genesis.PrevHash == expected
}

// ChainStats summarizes a chain.
type ChainStats struct {
	ChainID     string `json:"chainId"`
	Tier        Tier   `json:"tier"`
	BlockCount  int    `json:"blockCount"`
	Difficulty  int    `json:"difficulty"`
	IsValid     bool   `json:"isValid"`
	GenesisHash string `json:"genesisHash,omitempty"`
	LatestHash  string `json:"latestHash,omitempty"`
}

func (e *Entity) Stats() ChainStats {
	st := ChainStats{
		ChainID:    e.chain.id,
		Tier:       e.kind.tier,
		Difficulty: e.chain.difficulty,
		IsValid:    e.chain.ValidateStructure().Valid,
	}
	blocks := e.chain.Blocks()
	st.BlockCount = len(blocks)
	if len(blocks) > 0 {
		st.GenesisHash = blocks[0].Hash
		st.LatestHash = blocks[len(blocks)-1].Hash
	}
	return st
}
