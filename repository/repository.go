package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"attendance-ledger/db"
	"attendance-ledger/ledger"
	"attendance-ledger/logger"
	"attendance-ledger/models"

	"go.uber.org/zap"
)

const checkpointPrefix = "checkpoint:"

// ChainRepositoryInterface abstracts the storage layer from the ledger
type ChainRepositoryInterface interface {
	PutChain(doc *ledger.Document) error
	GetChain(tier ledger.Tier, id string) (*ledger.Document, error)
	GetAllChains(tier ledger.Tier) ([]*ledger.Document, error)
	PutCheckpoint(cp *models.Checkpoint) error
	GetLatestCheckpoint() (*models.Checkpoint, error)
}

// ChainRepository implements ChainRepositoryInterface using LevelDB as the storage backend
type ChainRepository struct {
	db *db.LevelDB

	// guards the stored-length check in PutChain
	mu sync.Mutex
}

// NewChainRepository creates and returns a new ChainRepository instance
func NewChainRepository(db *db.LevelDB) *ChainRepository {
	return &ChainRepository{db: db}
}

func tierPrefix(tier ledger.Tier) string {
	return "chain:" + string(tier) + ":"
}

func chainKey(tier ledger.Tier, id string) []byte {
	return []byte(tierPrefix(tier) + id)
}

// storedLen returns the block count of the stored document, or -1 if none
func (r *ChainRepository) storedLen(key []byte) (int, error) {
	data, err := r.db.Get(key)
	if errors.Is(err, db.ErrNotFound) {
		return -1, nil
	}
	if err != nil {
		return 0, err
	}
	var stored struct {
		Blocks []json.RawMessage `json:"blocks"`
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		return 0, err
	}
	return len(stored.Blocks), nil
}

// PutChain stores the whole chain document, replacing any earlier version.
// Chains only grow, so a document shorter than the stored one is stale and
// is dropped.
func (r *ChainRepository) PutChain(doc *ledger.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	key := chainKey(doc.Tier, doc.ChainID)

	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.storedLen(key)
	if err != nil {
		return err
	}
	if n > len(doc.Blocks) {
		logger.Logger.Debug("Skipping stale chain document",
			zap.String("chain_id", doc.ChainID),
			zap.Int("stored_blocks", n),
			zap.Int("blocks", len(doc.Blocks)))
		return nil
	}
	return r.db.Put(key, data)
}

// GetChain retrieves a chain document by tier and ID
func (r *ChainRepository) GetChain(tier ledger.Tier, id string) (*ledger.Document, error) {
	data, err := r.db.Get(chainKey(tier, id))
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s %s", ledger.ErrNotFound, tier, id)
	}
	if err != nil {
		return nil, err
	}
	var doc ledger.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetAllChains retrieves every chain document of one tier
func (r *ChainRepository) GetAllChains(tier ledger.Tier) ([]*ledger.Document, error) {
	iter := r.db.NewIterator([]byte(tierPrefix(tier)))
	defer iter.Release()

	var docs []*ledger.Document
	for iter.Next() {
		var doc ledger.Document
		if err := json.Unmarshal(iter.Value(), &doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", iter.Key(), err)
		}
		docs = append(docs, &doc)
	}
	return docs, iter.Error()
}

// PutCheckpoint stores the outcome of an audit
func (r *ChainRepository) PutCheckpoint(cp *models.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return err
	}
	key := []byte(checkpointPrefix + cp.ID)
	return r.db.Put(key, data)
}

// GetLatestCheckpoint retrieves the most recent audit checkpoint, or nil if none was stored
func (r *ChainRepository) GetLatestCheckpoint() (*models.Checkpoint, error) {
	iter := r.db.NewIterator([]byte(checkpointPrefix))
	defer iter.Release()

	var latest *models.Checkpoint
	for iter.Next() {
		var cp models.Checkpoint
		if err := json.Unmarshal(iter.Value(), &cp); err != nil {
			return nil, err
		}
		if latest == nil || cp.Timestamp.After(latest.Timestamp) {
			latest = &cp
		}
	}
	return latest, iter.Error()
}
