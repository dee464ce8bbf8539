package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/clmte/clmte/internal/apierror"
	"github.com/clmte/clmte/model"
	"github.com/sirupsen/logrus"
)

// UpsertOrder stores the shop's view of an order. Line items are replaced
// wholesale; the offset flag is never touched here.
func (d Datasource) UpsertOrder(ctx context.Context, order model.Order) (*model.Order, error) {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logrus.WithError(rbErr).Error("failed to rollback order upsert")
		}
	}()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO clmte.orders (order_id, paid)
		VALUES ($1, $2)
		ON CONFLICT (order_id) DO UPDATE SET paid = EXCLUDED.paid
		RETURNING offset_purchased, created_at
	`, order.OrderID, order.Paid).Scan(&order.OffsetPurchased, &order.CreatedAt)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to save order", err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM clmte.order_items WHERE order_id = $1`, order.OrderID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to replace order items", err)
	}

	for i := range order.Items {
		order.Items[i].Position = i
		item := order.Items[i]
		_, err = tx.ExecContext(ctx, `
			INSERT INTO clmte.order_items (order_id, position, product_id, quantity)
			VALUES ($1, $2, $3, $4)
		`, order.OrderID, item.Position, item.ProductID, item.Quantity)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to save order item", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit order", err)
	}
	return &order, nil
}

// GetOrderByID loads an order and its line items in position order.
//
// Parameters:
// - ctx: request context.
// - orderID: the shop's order id.
//
// Returns:
// - *model.Order: the order with items.
// - error: ErrNotFound when the order is unknown, ErrInternalServer otherwise.
func (d Datasource) GetOrderByID(ctx context.Context, orderID string) (*model.Order, error) {
	order := model.Order{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT order_id, paid, offset_purchased, created_at
		FROM clmte.orders
		WHERE order_id = $1
	`, orderID).Scan(&order.OrderID, &order.Paid, &order.OffsetPurchased, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Order not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve order", err)
	}

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT position, product_id, quantity
		FROM clmte.order_items
		WHERE order_id = $1
		ORDER BY position ASC
	`, orderID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve order items", err)
	}
	defer rows.Close()

	order.Items = []model.OrderItem{}
	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.Position, &item.ProductID, &item.Quantity); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan order item", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over order items", err)
	}

	return &order, nil
}

// GetOffsetFlag reports whether an offset was already bought for the order.
func (d Datasource) GetOffsetFlag(ctx context.Context, orderID string) (bool, error) {
	var purchased bool
	err := d.Conn.QueryRowContext(ctx, `
		SELECT offset_purchased FROM clmte.orders WHERE order_id = $1
	`, orderID).Scan(&purchased)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, apierror.NewAPIError(apierror.ErrNotFound, "Order not found", err)
		}
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read offset flag", err)
	}
	return purchased, nil
}

// SetOffsetFlag is a compare-and-set: it only flips an unset flag and reports
// whether this call was the one that flipped it.
func (d Datasource) SetOffsetFlag(ctx context.Context, orderID string) (bool, error) {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE clmte.orders
		SET offset_purchased = true
		WHERE order_id = $1 AND offset_purchased = false
	`, orderID)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to set offset flag", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to set offset flag", err)
	}
	return affected == 1, nil
}
