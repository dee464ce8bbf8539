package database

import (
	"context"

	"github.com/clmte/clmte/internal/apierror"
	"github.com/clmte/clmte/model"
)

// CreateLog writes one activity or error entry.
//
// Parameters:
// - ctx: request context.
// - logType: error or activity.
// - description: human readable text shown in the admin log.
//
// Returns:
// - *model.ActivityLog: the stored entry with id and timestamp.
// - error: an error if the insert fails.
func (d Datasource) CreateLog(ctx context.Context, logType model.LogType, description string) (*model.ActivityLog, error) {
	entry := model.ActivityLog{
		LogID:       model.GenerateUUIDWithSuffix("log"),
		Type:        logType,
		Description: description,
	}

	err := d.Conn.QueryRowContext(ctx, `
		INSERT INTO clmte.activity_logs (log_id, type, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, entry.LogID, string(entry.Type), entry.Description).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create log", err)
	}
	return &entry, nil
}

func (d Datasource) GetLogs(ctx context.Context, limit, offset int) ([]model.ActivityLog, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, log_id, type, description, created_at
		FROM clmte.activity_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve logs", err)
	}
	defer rows.Close()

	logs := []model.ActivityLog{}
	for rows.Next() {
		var (
			entry   model.ActivityLog
			logType string
		)
		if err := rows.Scan(&entry.ID, &entry.LogID, &logType, &entry.Description, &entry.CreatedAt); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan log data", err)
		}
		entry.Type = model.LogType(logType)
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over logs", err)
	}
	return logs, nil
}
