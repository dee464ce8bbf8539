package model

import "github.com/wacul/ptr"

// OffsetSuccess is the confirmed purchase returned by the offsetting API.
type OffsetSuccess struct {
	OffsetID        string  `json:"offset_id"`
	TrackingID      *string `json:"tracking_id,omitempty"`
	TrackingURL     *string `json:"tracking_url,omitempty"`
	CarbonDioxideKg float64 `json:"carbon_dioxide_kg"`
}

// OffsetFailure carries the best message available for a failed purchase.
type OffsetFailure struct {
	Message string `json:"message"`
}

// PurchaseResult is the outcome of a single purchase call. Exactly one of
// Success and Failure is set.
type PurchaseResult struct {
	Amount  int            `json:"amount"`
	Success *OffsetSuccess `json:"success,omitempty"`
	Failure *OffsetFailure `json:"failure,omitempty"`
}

func NewSuccessResult(amount int, success OffsetSuccess) PurchaseResult {
	return PurchaseResult{Amount: amount, Success: &success}
}

func NewFailureResult(amount int, message string) PurchaseResult {
	return PurchaseResult{Amount: amount, Failure: &OffsetFailure{Message: message}}
}

func (r PurchaseResult) Succeeded() bool {
	return r.Success != nil
}

// Fields maps a successful result onto the optional ledger fields.
// A failed result maps to no fields.
func (r PurchaseResult) Fields() PurchaseFields {
	if r.Success == nil {
		return PurchaseFields{}
	}
	return PurchaseFields{
		OffsetID:        ptr.String(r.Success.OffsetID),
		TrackingID:      r.Success.TrackingID,
		CarbonDioxideKg: ptr.Float64(r.Success.CarbonDioxideKg),
	}
}

// Receipt is the customer-facing summary of the most recent purchase attempt.
type Receipt struct {
	Amount          int      `json:"amount"`
	OffsetID        *string  `json:"offset_id,omitempty"`
	CarbonDioxideKg *float64 `json:"carbon_dioxide_kg,omitempty"`
	TrackingID      *string  `json:"tracking_id,omitempty"`
	TrackingURL     *string  `json:"tracking_url,omitempty"`
	Error           *string  `json:"error,omitempty"`
}

func (r PurchaseResult) Receipt() Receipt {
	receipt := Receipt{Amount: r.Amount}
	if r.Success != nil {
		receipt.OffsetID = ptr.String(r.Success.OffsetID)
		receipt.CarbonDioxideKg = ptr.Float64(r.Success.CarbonDioxideKg)
		receipt.TrackingID = r.Success.TrackingID
		receipt.TrackingURL = r.Success.TrackingURL
	}
	if r.Failure != nil {
		receipt.Error = ptr.String(r.Failure.Message)
	}
	return receipt
}
