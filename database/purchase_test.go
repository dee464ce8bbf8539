package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/clmte/clmte/internal/apierror"
	"github.com/clmte/clmte/model"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wacul/ptr"
)

var purchaseRowColumns = []string{"id", "purchase_id", "amount", "status", "offset_id", "tracking_id", "carbon_dioxide", "created_at"}

func TestCreatePurchase_Pending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	now := time.Now()

	mock.ExpectQuery("INSERT INTO clmte.offsets_purchased").
		WithArgs(sqlmock.AnyArg(), 3, "PENDING", nil, nil, nil).
		WillReturnRows(sqlmock.NewRows(purchaseRowColumns).
			AddRow(1, "pur_1", 3, "PENDING", nil, nil, nil, now))

	record, err := ds.CreatePurchase(context.Background(), 3, "", model.PurchaseFields{})
	assert.NoError(t, err)
	assert.Equal(t, "pur_1", record.PurchaseID)
	assert.Equal(t, model.StatusPending, record.Status)
	assert.Nil(t, record.OffsetID)
	assert.Nil(t, record.TrackingID)
	assert.Nil(t, record.CarbonDioxideKg)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePurchase_Created(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	now := time.Now()

	mock.ExpectQuery("INSERT INTO clmte.offsets_purchased").
		WithArgs(sqlmock.AnyArg(), 3, "CREATED", "off-1", "trk-1", 9.0).
		WillReturnRows(sqlmock.NewRows(purchaseRowColumns).
			AddRow(1, "pur_1", 3, "CREATED", "off-1", "trk-1", 9.0, now))

	record, err := ds.CreatePurchase(context.Background(), 3, model.StatusCreated, model.PurchaseFields{
		OffsetID:        ptr.String("off-1"),
		TrackingID:      ptr.String("trk-1"),
		CarbonDioxideKg: ptr.Float64(9),
	})
	assert.NoError(t, err)
	assert.Equal(t, model.StatusCreated, record.Status)
	assert.Equal(t, "off-1", *record.OffsetID)
	assert.Equal(t, "trk-1", *record.TrackingID)
	assert.Equal(t, 9.0, *record.CarbonDioxideKg)
	assert.WithinDuration(t, now, record.CreatedAt, time.Second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePurchase_InvalidInput(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	_, err = ds.CreatePurchase(context.Background(), 0, model.StatusPending, model.PurchaseFields{})
	assert.True(t, apierror.HasCode(err, apierror.ErrInvalidInput))

	_, err = ds.CreatePurchase(context.Background(), 1, "SETTLED", model.PurchaseFields{})
	assert.True(t, apierror.HasCode(err, apierror.ErrInvalidInput))

	_, err = ds.CreatePurchase(context.Background(), 1, model.StatusCreated, model.PurchaseFields{CarbonDioxideKg: ptr.Float64(-1)})
	assert.True(t, apierror.HasCode(err, apierror.ErrInvalidInput))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePurchase_UniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("INSERT INTO clmte.offsets_purchased").
		WillReturnError(&pq.Error{Code: "23505", Message: "unique_violation"})

	_, err = ds.CreatePurchase(context.Background(), 1, model.StatusPending, model.PurchaseFields{})
	assert.Error(t, err)
	var apiErr apierror.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apierror.ErrConflict, apiErr.Code)
}

func TestUpdatePurchaseToCreated_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	now := time.Now()

	mock.ExpectQuery("UPDATE clmte.offsets_purchased").
		WithArgs("pur_1", "CREATED", "off-2", nil, 4.5).
		WillReturnRows(sqlmock.NewRows(purchaseRowColumns).
			AddRow(1, "pur_1", 2, "CREATED", "off-2", nil, 4.5, now))

	record, err := ds.UpdatePurchaseToCreated(context.Background(), "pur_1", model.PurchaseFields{
		OffsetID:        ptr.String("off-2"),
		CarbonDioxideKg: ptr.Float64(4.5),
	})
	assert.NoError(t, err)
	assert.Equal(t, model.StatusCreated, record.Status)
	assert.Equal(t, "off-2", *record.OffsetID)
	assert.Nil(t, record.TrackingID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePurchaseToCreated_KeepsStoredFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	now := time.Now()

	// COALESCE keeps the stored value; the database echoes the row back.
	mock.ExpectQuery(`offset_id = COALESCE\(offset_id, \$3\)`).
		WithArgs("pur_1", "CREATED", nil, nil, nil).
		WillReturnRows(sqlmock.NewRows(purchaseRowColumns).
			AddRow(1, "pur_1", 2, "CREATED", "off-original", "trk-original", 1.5, now))

	record, err := ds.UpdatePurchaseToCreated(context.Background(), "pur_1", model.PurchaseFields{})
	assert.NoError(t, err)
	assert.Equal(t, "off-original", *record.OffsetID)
	assert.Equal(t, "trk-original", *record.TrackingID)
	assert.Equal(t, 1.5, *record.CarbonDioxideKg)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePurchaseToCreated_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("UPDATE clmte.offsets_purchased").
		WithArgs("missing", "CREATED", nil, nil, nil).
		WillReturnRows(sqlmock.NewRows(purchaseRowColumns))
	mock.ExpectQuery("SELECT (.+) FROM clmte.offsets_purchased WHERE purchase_id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(purchaseRowColumns))

	_, err = ds.UpdatePurchaseToCreated(context.Background(), "missing", model.PurchaseFields{})
	assert.True(t, apierror.HasCode(err, apierror.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePurchaseToCreated_AlreadyCreated(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	now := time.Now()

	mock.ExpectQuery(`WHERE purchase_id = \$1 AND status = 'PENDING'`).
		WithArgs("pur_1", "CREATED", "off-second", nil, 2.0).
		WillReturnRows(sqlmock.NewRows(purchaseRowColumns))
	mock.ExpectQuery("SELECT (.+) FROM clmte.offsets_purchased WHERE purchase_id").
		WithArgs("pur_1").
		WillReturnRows(sqlmock.NewRows(purchaseRowColumns).
			AddRow(1, "pur_1", 2, "CREATED", "off-first", nil, 2.0, now))

	record, err := ds.UpdatePurchaseToCreated(context.Background(), "pur_1", model.PurchaseFields{
		OffsetID:        ptr.String("off-second"),
		CarbonDioxideKg: ptr.Float64(2),
	})
	assert.True(t, apierror.HasCode(err, apierror.ErrConflict))
	require.NotNil(t, record)
	assert.Equal(t, "off-first", *record.OffsetID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPendingPurchases_OldestFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	older := time.Now().Add(-time.Hour)
	newer := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM clmte.offsets_purchased WHERE status = \\$1 ORDER BY created_at ASC, id ASC").
		WithArgs("PENDING").
		WillReturnRows(sqlmock.NewRows(purchaseRowColumns).
			AddRow(1, "pur_1", 2, "PENDING", nil, nil, nil, older).
			AddRow(2, "pur_2", 5, "PENDING", nil, nil, nil, newer))

	pending, err := ds.GetPendingPurchases(context.Background())
	assert.NoError(t, err)
	assert.Len(t, pending, 2)
	assert.Equal(t, "pur_1", pending[0].PurchaseID)
	assert.Equal(t, 5, pending[1].Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPendingPurchases_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT (.+) FROM clmte.offsets_purchased WHERE status").
		WithArgs("PENDING").
		WillReturnRows(sqlmock.NewRows(purchaseRowColumns))

	pending, err := ds.GetPendingPurchases(context.Background())
	assert.NoError(t, err)
	assert.NotNil(t, pending)
	assert.Empty(t, pending)
}

func TestGetAllPurchases(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT (.+) FROM clmte.offsets_purchased ORDER BY created_at DESC, id DESC LIMIT \\$1 OFFSET \\$2").
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows(purchaseRowColumns).
			AddRow(2, "pur_2", 1, "CREATED", "off-2", nil, 3.0, time.Now()).
			AddRow(1, "pur_1", 4, "PENDING", nil, nil, nil, time.Now().Add(-time.Minute)))

	purchases, err := ds.GetAllPurchases(context.Background(), 20, 0)
	assert.NoError(t, err)
	assert.Len(t, purchases, 2)
	assert.Equal(t, "pur_2", purchases[0].PurchaseID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPurchase_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT (.+) FROM clmte.offsets_purchased WHERE purchase_id").
		WithArgs("pur_x").
		WillReturnRows(sqlmock.NewRows(purchaseRowColumns))

	_, err = ds.GetPurchase(context.Background(), "pur_x")
	assert.True(t, apierror.HasCode(err, apierror.ErrNotFound))
}

func TestCountPendingPurchases(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM clmte.offsets_purchased").
		WithArgs("PENDING").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := ds.CountPendingPurchases(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
