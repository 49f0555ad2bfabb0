package repository

import (
	"attendance-ledger/ledger"
	"attendance-ledger/logger"

	"go.uber.org/zap"
)

// PersistChain returns a mutation observer that writes the entity's
// document through repo. Write failures are logged; the in-memory chain
// stays authoritative.
func PersistChain(repo ChainRepositoryInterface) func(e *ledger.Entity) {
	return func(e *ledger.Entity) {
		if err := repo.PutChain(e.Export()); err != nil {
			logger.Logger.Error("Failed to persist chain",
				zap.String("tier", string(e.Tier())),
				zap.String("chain_id", e.ID()),
				zap.Error(err))
		}
	}
}

// LoadAll reads every stored chain, grouped by tier
func LoadAll(repo ChainRepositoryInterface) (orgUnits, subUnits, leafEntities []*ledger.Document, err error) {
	if orgUnits, err = repo.GetAllChains(ledger.TierOrgUnit); err != nil {
		return nil, nil, nil, err
	}
	if subUnits, err = repo.GetAllChains(ledger.TierSubUnit); err != nil {
		return nil, nil, nil, err
	}
	if leafEntities, err = repo.GetAllChains(ledger.TierLeafEntity); err != nil {
		return nil, nil, nil, err
	}
	return orgUnits, subUnits, leafEntities, nil
}
