package manager

import (
	"errors"
	"fmt"
	"slices"

	"attendance-ledger/ledger"
	"attendance-ledger/logger"

	"go.uber.org/zap"
)

func genesisOrder(a, b *ledger.Document) int {
	return a.Blocks[0].Timestamp.Compare(b.Blocks[0].Timestamp)
}

// Restore loads persisted chains without re-mining. Parents are restored
// before children so the children index is complete; chains that fail
// structural validation are still loaded and left for the validator to
// report.
func (m *Manager) Restore(orgUnits, subUnits, leafEntities []*ledger.Document) error {
	var errs []error
	for _, tier := range []struct {
		tier  ledger.Tier
		docs  []*ledger.Document
		store *store
	}{
		{ledger.TierOrgUnit, orgUnits, m.orgUnits},
		{ledger.TierSubUnit, subUnits, m.subUnits},
		{ledger.TierLeafEntity, leafEntities, m.leafEntities},
	} {
		docs := slices.DeleteFunc(slices.Clone(tier.docs), func(d *ledger.Document) bool {
			switch {
			case d == nil || len(d.Blocks) == 0:
				errs = append(errs, fmt.Errorf("%w: empty document", ledger.ErrInvalidArgument))
				return true
			case d.Tier != tier.tier:
				errs = append(errs, fmt.Errorf("%w: %s document %s restored as %s", ledger.ErrInvalidArgument, d.Tier, d.ChainID, tier.tier))
				return true
			}
			return false
		})
		slices.SortStableFunc(docs, genesisOrder)

		for _, doc := range docs {
			e, err := ledger.Restore(doc)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if res := e.Chain().ValidateStructure(); !res.Valid {
				logger.Logger.Warn("Restored chain failed validation",
					zap.String("tier", string(e.Tier())),
					zap.String("chain_id", e.ID()),
					zap.Strings("errors", res.Errors))
			}
			tier.store.put(e)
		}
	}

	logger.Logger.Info("Ledger restored",
		zap.Int("org_units", m.orgUnits.count()),
		zap.Int("sub_units", m.subUnits.count()),
		zap.Int("leaf_entities", m.leafEntities.count()))
	return errors.Join(errs...)
}
