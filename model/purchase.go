package model

import "time"

type PurchaseStatus string

const (
	StatusPending PurchaseStatus = "PENDING"
	StatusCreated PurchaseStatus = "CREATED"
)

// PurchaseRecord is one row of the offset purchase ledger.
// A record only ever moves from PENDING to CREATED, and OffsetID, TrackingID
// and CarbonDioxideKg are never cleared once set.
type PurchaseRecord struct {
	ID              int64          `json:"-"`
	PurchaseID      string         `json:"purchase_id"`
	Amount          int            `json:"amount"`
	Status          PurchaseStatus `json:"status"`
	OffsetID        *string        `json:"offset_id,omitempty"`
	TrackingID      *string        `json:"tracking_id,omitempty"`
	CarbonDioxideKg *float64       `json:"carbon_dioxide_kg,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

func (s PurchaseStatus) Valid() bool {
	return s == StatusPending || s == StatusCreated
}

func (p *PurchaseRecord) IsPending() bool {
	return p.Status == StatusPending
}

// PurchaseFields carries the optional remote identifiers attached to a record.
type PurchaseFields struct {
	OffsetID        *string
	TrackingID      *string
	CarbonDioxideKg *float64
}

// Merge returns the receiver with every nil field filled from other.
// Values already present are kept.
func (f PurchaseFields) Merge(other PurchaseFields) PurchaseFields {
	if f.OffsetID == nil {
		f.OffsetID = other.OffsetID
	}
	if f.TrackingID == nil {
		f.TrackingID = other.TrackingID
	}
	if f.CarbonDioxideKg == nil {
		f.CarbonDioxideKg = other.CarbonDioxideKg
	}
	return f
}

func (p *PurchaseRecord) Fields() PurchaseFields {
	return PurchaseFields{
		OffsetID:        p.OffsetID,
		TrackingID:      p.TrackingID,
		CarbonDioxideKg: p.CarbonDioxideKg,
	}
}

// PurchaseSummary is the admin listing of the ledger.
type PurchaseSummary struct {
	Purchases    []PurchaseRecord `json:"purchases"`
	PendingCount int              `json:"pending_count"`
}
