// Package validator audits ledger chains. Every function is pure over a
// Snapshot: findings are returned as data and nothing is mutated.
package validator

import (
	"encoding/hex"
	"fmt"
	"time"

	"attendance-ledger/ledger"
	"attendance-ledger/logger"
	"attendance-ledger/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Snapshot is the read-only view of all three tiers.
type Snapshot struct {
	OrgUnits     []*ledger.Entity
	SubUnits     []*ledger.Entity
	LeafEntities []*ledger.Entity
}

func index(chains []*ledger.Entity) map[string]*ledger.Entity {
	m := make(map[string]*ledger.Entity, len(chains))
	for _, c := range chains {
		m[c.ID()] = c
	}
	return m
}

// PoWSummary counts blocks meeting the chain's difficulty target.
type PoWSummary struct {
	IsValid       bool `json:"isValid"`
	Difficulty    int  `json:"difficulty"`
	BlocksChecked int  `json:"blocksChecked"`
	ValidBlocks   int  `json:"validBlocks"`
}

// HashChainSummary reports prev_hash continuity.
type HashChainSummary struct {
	IsValid       bool     `json:"isValid"`
	Errors        []string `json:"errors"`
	BlocksChecked int      `json:"blocksChecked"`
}

// FieldIssue names the essential fields a block is missing.
type FieldIssue struct {
	BlockIndex int      `json:"blockIndex"`
	Missing    []string `json:"missingFields"`
}

// EssentialFieldsSummary is the six-field audit across a chain.
type EssentialFieldsSummary struct {
	IsValid          bool         `json:"isValid"`
	TotalBlocks      int          `json:"totalBlocks"`
	BlocksWithIssues int          `json:"blocksWithIssues"`
	Issues           []FieldIssue `json:"issues"`
	Summary          string       `json:"summary"`
}

// Linkage describes how a child genesis block points into its parent.
type Linkage struct {
	ParentID string `json:"parentId"`
	Valid    bool   `json:"isValid"`
	// ParentBlockIndex is -1 when the link is broken.
	ParentBlockIndex   int    `json:"parentBlockIndex"`
	Info               string `json:"info"`
	TipAtCreationMatch bool   `json:"tipAtCreationMatch"`
	Impact             string `json:"impact"`
}

// ChainResult is the audit of one chain.
type ChainResult struct {
	Tier            ledger.Tier            `json:"tier"`
	ChainID         string                 `json:"chainId"`
	ChainName       string                 `json:"chainName"`
	BlockCount      int                    `json:"blockCount"`
	IsValid         bool                   `json:"isValid"`
	Errors          []string               `json:"errors"`
	GenesisValid    bool                   `json:"genesisBlockValid"`
	PoW             PoWSummary             `json:"powValid"`
	HashChain       HashChainSummary       `json:"hashChainValid"`
	EssentialFields EssentialFieldsSummary `json:"essentialFields"`
	Linkage         *Linkage               `json:"parentLinkage,omitempty"`
	EventRecords    int                    `json:"eventRecords,omitempty"`
	EventStats      *ledger.EventStats     `json:"eventStats,omitempty"`
}

// SystemResult aggregates every chain audit.
type SystemResult struct {
	IsValid      bool          `json:"isValid"`
	Timestamp    time.Time     `json:"timestamp"`
	OrgUnits     []ChainResult `json:"orgUnits"`
	SubUnits     []ChainResult `json:"subUnits"`
	LeafEntities []ChainResult `json:"leafEntities"`
	Errors       []string      `json:"errors"`
}

// InvalidCount returns how many chains failed in each tier.
func (r SystemResult) InvalidCount() map[ledger.Tier]int {
	out := map[ledger.Tier]int{
		ledger.TierOrgUnit:    0,
		ledger.TierSubUnit:    0,
		ledger.TierLeafEntity: 0,
	}
	for _, set := range [][]ChainResult{r.OrgUnits, r.SubUnits, r.LeafEntities} {
		for _, c := range set {
			if !c.IsValid {
				out[c.Tier]++
			}
		}
	}
	return out
}

// ValidateSystem audits every chain, resolving each child's parent in the
// snapshot. The three tiers are audited concurrently.
func ValidateSystem(s Snapshot) SystemResult {
	orgs := index(s.OrgUnits)
	subs := index(s.SubUnits)

	res := SystemResult{
		Timestamp:    time.Now().UTC(),
		OrgUnits:     make([]ChainResult, len(s.OrgUnits)),
		SubUnits:     make([]ChainResult, len(s.SubUnits)),
		LeafEntities: make([]ChainResult, len(s.LeafEntities)),
	}

	var g errgroup.Group
	g.Go(func() error {
		for i, c := range s.OrgUnits {
			res.OrgUnits[i] = ValidateOrgUnitChain(c)
		}
		return nil
	})
	g.Go(func() error {
		for i, c := range s.SubUnits {
			res.SubUnits[i] = ValidateSubUnitChain(c, orgs[c.ParentID()])
		}
		return nil
	})
	g.Go(func() error {
		for i, c := range s.LeafEntities {
			res.LeafEntities[i] = ValidateLeafEntityChain(c, subs[c.ParentID()])
		}
		return nil
	})
	_ = g.Wait()

	res.IsValid = true
	res.Errors = []string{}
	for _, set := range [][]ChainResult{res.OrgUnits, res.SubUnits, res.LeafEntities} {
		for _, c := range set {
			if c.IsValid {
				continue
			}
			res.IsValid = false
			for _, e := range c.Errors {
				res.Errors = append(res.Errors, fmt.Sprintf("%s %s: %s", c.Tier, c.ChainID, e))
			}
			if c.Linkage != nil && !c.Linkage.Valid {
				res.Errors = append(res.Errors, fmt.Sprintf("%s %s: %s", c.Tier, c.ChainID, c.Linkage.Info))
			}
		}
	}

	outcome := "valid"
	if !res.IsValid {
		outcome = "invalid"
	}
	metrics.ValidationRunsTotal.WithLabelValues(outcome).Inc()
	invalid := res.InvalidCount()
	for tier, n := range invalid {
		metrics.InvalidChains.WithLabelValues(string(tier)).Set(float64(n))
	}

	logger.Logger.Info("System validated",
		zap.Bool("valid", res.IsValid),
		zap.Int("org_units", len(res.OrgUnits)),
		zap.Int("sub_units", len(res.SubUnits)),
		zap.Int("leaf_entities", len(res.LeafEntities)),
		zap.Int("errors", len(res.Errors)))
	return res
}

// ValidateOrgUnitChain audits a root chain.
func ValidateOrgUnitChain(c *ledger.Entity) ChainResult {
	res := baseResult(c)
	res.IsValid = res.IsValid && res.GenesisValid
	return res
}

// ValidateSubUnitChain audits a sub-unit and its link into parent, which may
// be nil when the org unit cannot be resolved.
func ValidateSubUnitChain(c, parent *ledger.Entity) ChainResult {
	res := baseResult(c)
	res.Linkage = linkage(c, parent, "Sub-unit")
	res.IsValid = res.IsValid && res.GenesisValid && res.Linkage.Valid
	return res
}

// ValidateLeafEntityChain audits a leaf entity and its link into parent.
func ValidateLeafEntityChain(c, parent *ledger.Entity) ChainResult {
	res := baseResult(c)
	res.ChainName = fmt.Sprintf("%s (%s)", c.Name(), c.ExternalKey())
	res.Linkage = linkage(c, parent, "Leaf entity")
	res.IsValid = res.IsValid && res.GenesisValid && res.Linkage.Valid

	for _, b := range c.Blocks() {
		if b.Record().Type() == ledger.LeafEntityEvent {
			res.EventRecords++
		}
	}
	stats := c.EventStats()
	res.EventStats = &stats
	return res
}

func baseResult(c *ledger.Entity) ChainResult {
	blocks := c.Blocks()
	structure := c.Chain().ValidateStructure()
	essential := EssentialFields(blocks)

	return ChainResult{
		Tier:            c.Tier(),
		ChainID:         c.ID(),
		ChainName:       c.Name(),
		BlockCount:      len(blocks),
		IsValid:         structure.Valid && essential.IsValid,
		Errors:          structure.Errors,
		GenesisValid:    GenesisValid(blocks),
		PoW:             ProofOfWork(blocks, c.Chain().Difficulty()),
		HashChain:       HashChain(blocks),
		EssentialFields: essential,
	}
}

// linkage checks membership of the genesis prev_hash in the parent's whole
// hash history. Parents keep growing after spawning children, so the tip at
// creation is usually no longer the parent's tip.
func linkage(c, parent *ledger.Entity, label string) *Linkage {
	l := &Linkage{ParentID: c.ParentID(), ParentBlockIndex: -1}

	genesis := c.Chain().Block(0)
	if genesis != nil {
		l.TipAtCreationMatch = c.VerifyParentLinkage(c.ParentHash())
	}

	switch {
	case parent == nil:
		l.Info = fmt.Sprintf("BROKEN: parent chain %s not found", c.ParentID())
	case genesis == nil:
		l.Info = "BROKEN: chain has no genesis block"
	default:
		l.ParentBlockIndex = parent.Chain().HashIndex(genesis.PrevHash)
		if l.ParentBlockIndex >= 0 {
			l.Valid = true
			l.Info = fmt.Sprintf("linked to parent block %d", l.ParentBlockIndex)
		} else {
			l.Info = fmt.Sprintf("BROKEN: prev_hash %s not found in parent chain", genesis.PrevHash)
		}
	}

	if l.Valid {
		l.Impact = "No impact"
	} else {
		l.Impact = fmt.Sprintf("%s chain broken: %s", label, l.Info)
		logger.Logger.Warn("Broken parent linkage",
			zap.String("chain_id", c.ID()),
			zap.String("parent_id", c.ParentID()),
			zap.String("info", l.Info))
	}
	return l
}

// GenesisValid reports whether block 0 exists, sits at index 0 and carries
// a genesis record.
func GenesisValid(blocks []*ledger.Block) bool {
	if len(blocks) == 0 {
		return false
	}
	return blocks[0].Index == 0 && blocks[0].Record().Type().IsGenesis()
}

// ProofOfWork checks the leading-zero target only; recomputation is part of
// the structural check.
func ProofOfWork(blocks []*ledger.Block, difficulty int) PoWSummary {
	s := PoWSummary{Difficulty: difficulty, BlocksChecked: len(blocks)}
	for _, b := range blocks {
		if ledger.MeetsTarget(b.Hash, difficulty) {
			s.ValidBlocks++
		}
	}
	s.IsValid = s.ValidBlocks == s.BlocksChecked
	return s
}

func HashChain(blocks []*ledger.Block) HashChainSummary {
	s := HashChainSummary{Errors: []string{}, BlocksChecked: len(blocks)}
	for i := 1; i < len(blocks); i++ {
		if blocks[i].PrevHash != blocks[i-1].Hash {
			s.Errors = append(s.Errors, fmt.Sprintf("Block %d: prev_hash mismatch. Expected %s, got %s",
				i, blocks[i-1].Hash, blocks[i].PrevHash))
		}
	}
	s.IsValid = len(s.Errors) == 0
	return s
}

// MissingFields lists which of the six essential block fields are absent or
// malformed: index, timestamp, transactions, prev_hash, nonce, hash.
func MissingFields(b *ledger.Block) []string {
	missing := []string{}
	if b.Index < 0 {
		missing = append(missing, "index")
	}
	if b.Timestamp.IsZero() {
		missing = append(missing, "timestamp")
	}
	if len(b.Transactions) == 0 {
		missing = append(missing, "transactions")
	}
	if b.PrevHash == "" {
		missing = append(missing, "prev_hash")
	}
	if b.Nonce < 0 {
		missing = append(missing, "nonce")
	}
	if !isDigest(b.Hash) {
		missing = append(missing, "hash")
	}
	return missing
}

func isDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// EssentialFields runs MissingFields over a chain.
func EssentialFields(blocks []*ledger.Block) EssentialFieldsSummary {
	s := EssentialFieldsSummary{TotalBlocks: len(blocks), Issues: []FieldIssue{}}
	for i, b := range blocks {
		if missing := MissingFields(b); len(missing) > 0 {
			s.Issues = append(s.Issues, FieldIssue{BlockIndex: i, Missing: missing})
		}
	}
	s.BlocksWithIssues = len(s.Issues)
	s.IsValid = s.BlocksWithIssues == 0
	s.Summary = fmt.Sprintf("%d/%d blocks have all 6 essential fields", len(blocks)-s.BlocksWithIssues, len(blocks))
	return s
}
