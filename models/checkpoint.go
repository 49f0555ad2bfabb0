package models

import "time"

// Checkpoint records the outcome of one system audit
type Checkpoint struct {
	ID                  string    `json:"id"`
	Timestamp           time.Time `json:"timestamp"`
	IsValid             bool      `json:"isValid"`
	OrgUnits            int       `json:"orgUnits"`
	SubUnits            int       `json:"subUnits"`
	LeafEntities        int       `json:"leafEntities"`
	InvalidOrgUnits     int       `json:"invalidOrgUnits"`
	InvalidSubUnits     int       `json:"invalidSubUnits"`
	InvalidLeafEntities int       `json:"invalidLeafEntities"`
	TotalBlocks         int       `json:"totalBlocks"`
}
