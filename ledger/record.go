package ledger

import "slices"

// Tier names one level of the org unit / sub-unit / leaf entity hierarchy.
type Tier string

const (
	TierOrgUnit    Tier = "org_unit"
	TierSubUnit    Tier = "sub_unit"
	TierLeafEntity Tier = "leaf_entity"
)

// RecordType tags a payload record.
type RecordType string

const (
	OrgUnitGenesis    RecordType = "ORG_UNIT_GENESIS"
	OrgUnitUpdate     RecordType = "ORG_UNIT_UPDATE"
	SubUnitGenesis    RecordType = "SUB_UNIT_GENESIS"
	SubUnitUpdate     RecordType = "SUB_UNIT_UPDATE"
	LeafEntityGenesis RecordType = "LEAF_ENTITY_GENESIS"
	LeafEntityUpdate  RecordType = "LEAF_ENTITY_UPDATE"
	LeafEntityEvent   RecordType = "LEAF_ENTITY_EVENT"
)

// IsGenesis reports whether t opens a chain.
func (t RecordType) IsGenesis() bool {
	return t == OrgUnitGenesis || t == SubUnitGenesis || t == LeafEntityGenesis
}

// Well-known record keys.
const (
	FieldType               = "type"
	FieldStatus             = "status"
	FieldReason             = "reason"
	FieldDate               = "date"
	FieldDescription        = "description"
	FieldDescriptionUpdated = "description_updated"
	FieldNameUpdated        = "name_updated"

	FieldOrgUnitID   = "orgUnitId"
	FieldOrgUnitName = "orgUnitName"
	FieldSubUnitID   = "subUnitId"
	FieldSubUnitName = "subUnitName"
	FieldEntityID    = "entityId"
	FieldDisplayName = "displayName"
	FieldExternalKey = "externalKey"
)

// StatusDeleted marks a record as the terminal deletion of its chain.
const StatusDeleted = "deleted"

// Record is one payload entry. It is encoded as a JSON object with sorted
// keys, so two records with the same fields hash the same way regardless of
// insertion order.
type Record map[string]any

func (r Record) Type() RecordType {
	return RecordType(r.String(FieldType))
}

func (r Record) Status() string {
	return r.String(FieldStatus)
}

// String returns the value under key if it is a string.
func (r Record) String(key string) string {
	if r == nil {
		return ""
	}
	s, _ := r[key].(string)
	return s
}

// Clone is a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// timestampKeys are always dropped from caller input; block time wins.
var timestampKeys = []string{"timestamp", "createdAt", "updatedAt"}

// merge copies src into dst, skipping reserved keys.
func merge(dst, src Record, reserved ...string) {
	for k, v := range src {
		if k == FieldType || slices.Contains(timestampKeys, k) || slices.Contains(reserved, k) {
			continue
		}
		dst[k] = v
	}
}
