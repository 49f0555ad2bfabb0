package validator

import "fmt"

// OrgUnitImpact is the set of chains orphaned if an org unit were
// compromised.
type OrgUnitImpact struct {
	TamperedOrgUnitID    string   `json:"tamperedOrgUnitId"`
	ImpactedSubUnits     []string `json:"impactedSubUnits"`
	ImpactedLeafEntities []string `json:"impactedLeafEntities"`
	Summary              string   `json:"cascadeImpact"`
}

// SubUnitImpact is the set of leaf chains orphaned if a sub-unit were
// compromised.
type SubUnitImpact struct {
	TamperedSubUnitID    string   `json:"tamperedSubUnitId"`
	ImpactedLeafEntities []string `json:"impactedLeafEntities"`
	Summary              string   `json:"cascadeImpact"`
}

// CheckOrgUnitTamperImpact walks the descendants of orgUnitID.
func CheckOrgUnitTamperImpact(s Snapshot, orgUnitID string) OrgUnitImpact {
	impact := OrgUnitImpact{
		TamperedOrgUnitID:    orgUnitID,
		ImpactedSubUnits:     []string{},
		ImpactedLeafEntities: []string{},
	}
	subs := map[string]bool{}
	for _, c := range s.SubUnits {
		if c.ParentID() == orgUnitID {
			subs[c.ID()] = true
			impact.ImpactedSubUnits = append(impact.ImpactedSubUnits, c.ID())
		}
	}
	for _, c := range s.LeafEntities {
		if subs[c.ParentID()] {
			impact.ImpactedLeafEntities = append(impact.ImpactedLeafEntities, c.ID())
		}
	}
	impact.Summary = fmt.Sprintf("Tampering org unit affects %d sub-units and %d leaf entities",
		len(impact.ImpactedSubUnits), len(impact.ImpactedLeafEntities))
	return impact
}

// CheckSubUnitTamperImpact lists the leaf entities under subUnitID.
func CheckSubUnitTamperImpact(s Snapshot, subUnitID string) SubUnitImpact {
	impact := SubUnitImpact{
		TamperedSubUnitID:    subUnitID,
		ImpactedLeafEntities: []string{},
	}
	for _, c := range s.LeafEntities {
		if c.ParentID() == subUnitID {
			impact.ImpactedLeafEntities = append(impact.ImpactedLeafEntities, c.ID())
		}
	}
	impact.Summary = fmt.Sprintf("Tampering sub-unit affects %d leaf entities", len(impact.ImpactedLeafEntities))
	return impact
}
