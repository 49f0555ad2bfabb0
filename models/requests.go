package models

import "attendance-ledger/ledger"

// CreateOrgUnitRequest is the body of POST /org-units
type CreateOrgUnitRequest struct {
	Name     string        `json:"name"`
	Metadata ledger.Record `json:"metadata,omitempty"`
}

// CreateSubUnitRequest is the body of POST /sub-units
type CreateSubUnitRequest struct {
	Name      string        `json:"name"`
	OrgUnitID string        `json:"orgUnitId"`
	Metadata  ledger.Record `json:"metadata,omitempty"`
}

// CreateLeafEntityRequest is the body of POST /leaf-entities
type CreateLeafEntityRequest struct {
	Name        string        `json:"name"`
	ExternalKey string        `json:"externalKey"`
	SubUnitID   string        `json:"subUnitId"`
	Metadata    ledger.Record `json:"metadata,omitempty"`
}

// DeleteRequest is the optional body of DELETE requests
type DeleteRequest struct {
	Reason string `json:"reason"`
}

// RecordEventRequest is the body of POST /leaf-entities/{id}/events
type RecordEventRequest struct {
	Status   ledger.EventStatus `json:"status"`
	Date     string             `json:"date"`
	Metadata ledger.Record      `json:"metadata,omitempty"`
}

// UpdateRequest is the body of PUT requests. Only the name and the
// description can change through an update; deletion has its own route.
type UpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Delta maps the request onto update record fields
func (r UpdateRequest) Delta() ledger.Record {
	delta := ledger.Record{}
	if r.Name != nil {
		delta[ledger.FieldNameUpdated] = *r.Name
	}
	if r.Description != nil {
		delta[ledger.FieldDescriptionUpdated] = *r.Description
	}
	return delta
}
