package database

import (
	"context"

	"github.com/clmte/clmte/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	purchase    // Offset purchase ledger
	option      // Key/value option store
	order       // Shop order snapshots and the offset flag
	activityLog // Error and activity log
}

// purchase defines methods for the offset purchase ledger.
type purchase interface {
	CreatePurchase(ctx context.Context, amount int, status model.PurchaseStatus, fields model.PurchaseFields) (*model.PurchaseRecord, error) // Appends a ledger row
	UpdatePurchaseToCreated(ctx context.Context, purchaseID string, fields model.PurchaseFields) (*model.PurchaseRecord, error)             // Moves a PENDING row to CREATED without clearing fields
	GetPurchase(ctx context.Context, purchaseID string) (*model.PurchaseRecord, error)                                                     // Retrieves a row by ID
	GetPendingPurchases(ctx context.Context) ([]model.PurchaseRecord, error)                                                               // PENDING rows, oldest first
	GetAllPurchases(ctx context.Context, limit, offset int) ([]model.PurchaseRecord, error)                                                // All rows, newest first
	CountPendingPurchases(ctx context.Context) (int, error)                                                                                // Number of PENDING rows
}

// option defines methods for the key/value option store.
type option interface {
	GetOption(ctx context.Context, name string) (string, bool, error) // Returns the value and whether it exists
	SetOption(ctx context.Context, name, value string) error          // Inserts or overwrites a value
	DeleteOption(ctx context.Context, name string) error              // Removes a value
}

// order defines methods for shop orders.
type order interface {
	UpsertOrder(ctx context.Context, order model.Order) (*model.Order, error) // Stores an order snapshot and its line items
	GetOrderByID(ctx context.Context, orderID string) (*model.Order, error)   // Retrieves an order with items in stored order
	GetOffsetFlag(ctx context.Context, orderID string) (bool, error)          // Reads the offset-purchased flag
	SetOffsetFlag(ctx context.Context, orderID string) (bool, error)          // Sets the flag; false when it was already set
}

// activityLog defines methods for the activity log.
type activityLog interface {
	CreateLog(ctx context.Context, logType model.LogType, description string) (*model.ActivityLog, error) // Records a log entry
	GetLogs(ctx context.Context, limit, offset int) ([]model.ActivityLog, error)                          // Lists entries, newest first
}
