package ledger

import "fmt"

// Document is the self-describing persisted form of an entity chain.
type Document struct {
	ChainID     string              `json:"chainId"`
	Tier        Tier                `json:"tier"`
	Name        string              `json:"name"`
	ExternalKey string              `json:"externalKey,omitempty"`
	ParentID    string              `json:"parentId,omitempty"`
	OrgUnitID   string              `json:"orgUnitId,omitempty"`
	ParentHash  string              `json:"parentHash,omitempty"`
	Difficulty  int                 `json:"difficulty"`
	Metadata    Metadata            `json:"metadata"`
	Counters    map[EventStatus]int `json:"counters,omitempty"`
	Validation  StructureResult     `json:"validation"`
	Blocks      []*Block            `json:"blocks"`
}

// Export captures the entity and a structural validation summary.
func (e *Entity) Export() *Document {
	e.mu.RLock()
	defer e.mu.RUnlock()

	doc := &Document{
		ChainID:     e.chain.id,
		Tier:        e.kind.tier,
		Name:        e.name,
		ExternalKey: e.externalKey,
		ParentID:    e.parentID,
		OrgUnitID:   e.orgUnitID,
		ParentHash:  e.parentHash,
		Difficulty:  e.chain.difficulty,
		Metadata:    e.metadata,
		Validation:  e.chain.ValidateStructure(),
		Blocks:      e.chain.Blocks(),
	}
	if e.counters != nil {
		doc.Counters = make(map[EventStatus]int, len(e.counters))
		for s, n := range e.counters {
			doc.Counters[s] = n
		}
	}
	return doc
}

// Restore rebuilds an entity from its document. Blocks are taken as stored;
// tampering is left for the validator to report.
func Restore(doc *Document) (*Entity, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", ErrInvalidArgument)
	}
	k, ok := kindOf(doc.Tier)
	if !ok {
		return nil, fmt.Errorf("%w: unknown tier %q", ErrInvalidArgument, doc.Tier)
	}
	if len(doc.Blocks) == 0 {
		return nil, fmt.Errorf("%w: chain %s has no blocks", ErrInvalidArgument, doc.ChainID)
	}

	e := newEntity(k, doc.ChainID, doc.Name, doc.Difficulty)
	e.externalKey = doc.ExternalKey
	e.parentID = doc.ParentID
	e.orgUnitID = doc.OrgUnitID
	e.parentHash = doc.ParentHash
	if !doc.Metadata.CreatedAt.IsZero() {
		e.metadata = doc.Metadata
	}
	if k.tier == TierLeafEntity {
		e.counters = newCounters()
		for s, n := range doc.Counters {
			if s.Valid() {
				e.counters[s] = n
			}
		}
	}
	e.chain.blocks = make([]*Block, len(doc.Blocks))
	copy(e.chain.blocks, doc.Blocks)
	return e, nil
}
