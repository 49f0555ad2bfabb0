package ledger

import (
	"fmt"
	"sync"
	"time"

	"attendance-ledger/logger"
	"attendance-ledger/metrics"

	"go.uber.org/zap"
)

// Chain is an append-only sequence of blocks. Index 0 is the genesis block.
type Chain struct {
	id         string
	tier       Tier
	difficulty int

	mu     sync.RWMutex
	blocks []*Block
}

// StructureResult is the outcome of ValidateStructure.
type StructureResult struct {
	Valid      bool     `json:"isValid"`
	Errors     []string `json:"errors"`
	BlockCount int      `json:"blockCount"`
}

// NewChain returns an empty chain. Negative difficulties are treated as zero.
func NewChain(id string, tier Tier, difficulty int) *Chain {
	return &Chain{id: id, tier: tier, difficulty: max(difficulty, 0)}
}

func (c *Chain) ID() string { return c.id }
func (c *Chain) Tier() Tier { return c.tier }
func (c *Chain) Difficulty() int { return c.difficulty }

// AppendGenesis seals block 0. Calling it on a chain that already has blocks
// is a programming error and panics.
func (c *Chain) AppendGenesis(record Record, prevHash string) (*Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.blocks) > 0 {
		panic(fmt.Sprintf("ledger: genesis already sealed on chain %s", c.id))
	}
	return c.seal(newBlock(0, []Record{record}, prevHash, c.tier))
}

// Append seals a block linked to the current tip and returns it once its
// hash is final. Appending before genesis panics.
func (c *Chain) Append(records ...Record) (*Block, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: block needs at least one record", ErrInvalidArgument)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.blocks) == 0 {
		panic(fmt.Sprintf("ledger: append before genesis on chain %s", c.id))
	}
	tip := c.blocks[len(c.blocks)-1]
	return c.seal(newBlock(int64(len(c.blocks)), records, tip.Hash, c.tier))
}

// seal mines b and pushes it. c.mu must be held.
func (c *Chain) seal(b *Block) (*Block, error) {
	start := time.Now()
	if err := b.Mine(c.difficulty); err != nil {
		return nil, fmt.Errorf("%w: encode block payload: %v", ErrInvalidArgument, err)
	}
	elapsed := time.Since(start)

	metrics.BlocksMinedTotal.WithLabelValues(string(c.tier)).Inc()
	metrics.MiningDuration.WithLabelValues(string(c.tier)).Observe(elapsed.Seconds())
	metrics.MiningNonce.WithLabelValues(string(c.tier)).Observe(float64(b.Nonce))

	c.blocks = append(c.blocks, b)

	logger.Logger.Debug("Block sealed",
		zap.String("chain_id", c.id),
		zap.String("tier", string(c.tier)),
		zap.Int64("index", b.Index),
		zap.String("hash", b.Hash),
		zap.Int64("nonce", b.Nonce),
		zap.Duration("elapsed", elapsed))
	return b, nil
}

// Tip returns the last block, or nil for an empty chain.
func (c *Chain) Tip() *Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.blocks) == 0 {
		return nil
	}
	return c.blocks[len(c.blocks)-1]
}

// Len is the number of sealed blocks.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}

// Block returns the block at index, or nil.
func (c *Chain) Block(index int) *Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if index < 0 || index >= len(c.blocks) {
		return nil
	}
	return c.blocks[index]
}

// Blocks returns the sealed blocks in order. The slice is a copy; the blocks
// are shared and must be treated as read-only.
func (c *Chain) Blocks() []*Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// Hashes returns every block hash in chain order.
func (c *Chain) Hashes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.blocks))
	for i, b := range c.blocks {
		out[i] = b.Hash
	}
	return out
}

// HashIndex returns the index of the block carrying hash, or -1.
func (c *Chain) HashIndex(hash string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i, b := range c.blocks {
		if b.Hash == hash {
			return i
		}
	}
	return -1
}

// ValidateStructure recomputes every block and checks prev_hash continuity.
// Findings are returned as data.
func (c *Chain) ValidateStructure() StructureResult {
	blocks := c.Blocks()
	if len(blocks) == 0 {
		return StructureResult{Valid: false, Errors: []string{"No blocks in chain"}}
	}

	errs := []string{}
	for i, b := range blocks {
		if !b.IsValid(c.difficulty) {
			errs = append(errs, fmt.Sprintf("Block %d is invalid: hash or proof-of-work mismatch", i))
		}
		if i > 0 && b.PrevHash != blocks[i-1].Hash {
			errs = append(errs, fmt.Sprintf("Block %d: prev_hash does not match previous block's hash", i))
		}
	}
	return StructureResult{Valid: len(errs) == 0, Errors: errs, BlockCount: len(blocks)}
}
