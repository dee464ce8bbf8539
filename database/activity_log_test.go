package database

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/clmte/clmte/model"
	"github.com/stretchr/testify/assert"
)

func TestCreateLog(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	now := time.Now()

	mock.ExpectQuery("INSERT INTO clmte.activity_logs").
		WithArgs(sqlmock.AnyArg(), "error", "Offset purchase failed: out of stock").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(7, now))

	entry, err := ds.CreateLog(context.Background(), model.LogTypeError, "Offset purchase failed: out of stock")
	assert.NoError(t, err)
	assert.Equal(t, int64(7), entry.ID)
	assert.True(t, strings.HasPrefix(entry.LogID, "log_"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLogs(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT id, log_id, type, description, created_at FROM clmte.activity_logs (.+) LIMIT \\$1 OFFSET \\$2").
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "log_id", "type", "description", "created_at"}).
			AddRow(2, "log_2", "activity", "Synced 1 pending purchase", time.Now()).
			AddRow(1, "log_1", "error", "Offset purchase failed", time.Now().Add(-time.Minute)))

	logs, err := ds.GetLogs(context.Background(), 10, 0)
	assert.NoError(t, err)
	assert.Len(t, logs, 2)
	assert.Equal(t, model.LogTypeActivity, logs[0].Type)
	assert.Equal(t, model.LogTypeError, logs[1].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}
