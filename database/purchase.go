package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/clmte/clmte/internal/apierror"
	"github.com/clmte/clmte/model"
	"github.com/lib/pq"
)

const purchaseColumns = `id, purchase_id, amount, status, offset_id, tracking_id, carbon_dioxide, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPurchase(row rowScanner) (*model.PurchaseRecord, error) {
	var (
		record     model.PurchaseRecord
		status     string
		offsetID   sql.NullString
		trackingID sql.NullString
		carbon     sql.NullFloat64
	)
	err := row.Scan(&record.ID, &record.PurchaseID, &record.Amount, &status, &offsetID, &trackingID, &carbon, &record.CreatedAt)
	if err != nil {
		return nil, err
	}
	record.Status = model.PurchaseStatus(status)
	if offsetID.Valid {
		record.OffsetID = &offsetID.String
	}
	if trackingID.Valid {
		record.TrackingID = &trackingID.String
	}
	if carbon.Valid {
		record.CarbonDioxideKg = &carbon.Float64
	}
	return &record, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// CreatePurchase appends a row to the purchase ledger. An empty status means
// PENDING.
//
// Parameters:
// - ctx: request context.
// - amount: number of offsets, must be positive.
// - status: PENDING or CREATED.
// - fields: remote fields, set only for CREATED rows.
//
// Returns:
// - *model.PurchaseRecord: the stored row with its generated purchase id.
// - error: ErrInvalidInput for a bad amount, status or negative carbon dioxide,
//   ErrConflict on a duplicate purchase id, ErrInternalServer otherwise.
func (d Datasource) CreatePurchase(ctx context.Context, amount int, status model.PurchaseStatus, fields model.PurchaseFields) (*model.PurchaseRecord, error) {
	if amount <= 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Purchase amount must be positive", nil)
	}
	if status == "" {
		status = model.StatusPending
	}
	if !status.Valid() {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Unknown purchase status "+string(status), nil)
	}
	if fields.CarbonDioxideKg != nil && *fields.CarbonDioxideKg < 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Carbon dioxide cannot be negative", nil)
	}

	purchaseID := model.GenerateUUIDWithSuffix("pur")
	row := d.Conn.QueryRowContext(ctx, `
		INSERT INTO clmte.offsets_purchased (purchase_id, amount, status, offset_id, tracking_id, carbon_dioxide)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+purchaseColumns,
		purchaseID, amount, string(status), nullString(fields.OffsetID), nullString(fields.TrackingID), nullFloat(fields.CarbonDioxideKg))

	record, err := scanPurchase(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, apierror.NewAPIError(apierror.ErrConflict, "Purchase with this ID already exists", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record purchase", err)
	}
	return record, nil
}

// UpdatePurchaseToCreated moves a PENDING purchase to CREATED and fills in
// the remote fields. Optional fields already stored win over the ones passed
// in.
//
// Parameters:
// - ctx: request context.
// - purchaseID: the ledger row to update.
// - fields: offset id, tracking id and carbon dioxide returned by the remote purchase.
//
// Returns:
// - *model.PurchaseRecord: the updated row.
// - error: ErrNotFound when the row does not exist, ErrConflict when it is no
//   longer PENDING, ErrInternalServer otherwise.
func (d Datasource) UpdatePurchaseToCreated(ctx context.Context, purchaseID string, fields model.PurchaseFields) (*model.PurchaseRecord, error) {
	row := d.Conn.QueryRowContext(ctx, `
		UPDATE clmte.offsets_purchased
		SET status = $2,
			offset_id = COALESCE(offset_id, $3),
			tracking_id = COALESCE(tracking_id, $4),
			carbon_dioxide = COALESCE(carbon_dioxide, $5)
		WHERE purchase_id = $1 AND status = 'PENDING'
		RETURNING `+purchaseColumns,
		purchaseID, string(model.StatusCreated), nullString(fields.OffsetID), nullString(fields.TrackingID), nullFloat(fields.CarbonDioxideKg))

	record, err := scanPurchase(row)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update purchase", err)
	}

	existing, getErr := d.GetPurchase(ctx, purchaseID)
	if getErr != nil {
		return nil, getErr
	}
	return existing, apierror.NewAPIError(apierror.ErrConflict, "Purchase is already "+string(existing.Status), nil)
}

// GetPurchase returns one ledger row, or ErrNotFound.
func (d Datasource) GetPurchase(ctx context.Context, purchaseID string) (*model.PurchaseRecord, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+purchaseColumns+`
		FROM clmte.offsets_purchased
		WHERE purchase_id = $1
	`, purchaseID)

	record, err := scanPurchase(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Purchase not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve purchase", err)
	}
	return record, nil
}

// GetPendingPurchases returns every PENDING row, oldest first. It is
// re-queried on every call so concurrent writes are always visible.
func (d Datasource) GetPendingPurchases(ctx context.Context) ([]model.PurchaseRecord, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+purchaseColumns+`
		FROM clmte.offsets_purchased
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
	`, string(model.StatusPending))
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve pending purchases", err)
	}
	return collectPurchases(rows)
}

// GetAllPurchases pages through the ledger, newest first.
//
// Parameters:
// - ctx: request context.
// - limit: maximum number of rows to return.
// - offset: number of rows to skip.
//
// Returns:
// - []model.PurchaseRecord: the page, empty but never nil.
// - error: an error if the query fails.
func (d Datasource) GetAllPurchases(ctx context.Context, limit, offset int) ([]model.PurchaseRecord, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+purchaseColumns+`
		FROM clmte.offsets_purchased
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve purchases", err)
	}
	return collectPurchases(rows)
}

func (d Datasource) CountPendingPurchases(ctx context.Context) (int, error) {
	var count int
	err := d.Conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM clmte.offsets_purchased WHERE status = $1
	`, string(model.StatusPending)).Scan(&count)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to count pending purchases", err)
	}
	return count, nil
}

func collectPurchases(rows *sql.Rows) ([]model.PurchaseRecord, error) {
	defer rows.Close()

	purchases := []model.PurchaseRecord{}
	for rows.Next() {
		record, err := scanPurchase(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan purchase data", err)
		}
		purchases = append(purchases, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over purchases", err)
	}
	return purchases, nil
}
