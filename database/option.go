package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/clmte/clmte/internal/apierror"
)

// GetOption reads a stored setting. ok is false when it was never saved.
func (d Datasource) GetOption(ctx context.Context, name string) (string, bool, error) {
	var value sql.NullString
	err := d.Conn.QueryRowContext(ctx, `
		SELECT value FROM clmte.options WHERE name = $1
	`, name).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read option "+name, err)
	}
	return value.String, true, nil
}

// SetOption inserts or overwrites a setting.
func (d Datasource) SetOption(ctx context.Context, name, value string) error {
	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO clmte.options (name, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, name, value)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to save option "+name, err)
	}
	return nil
}

func (d Datasource) DeleteOption(ctx context.Context, name string) error {
	_, err := d.Conn.ExecContext(ctx, `DELETE FROM clmte.options WHERE name = $1`, name)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to delete option "+name, err)
	}
	return nil
}
