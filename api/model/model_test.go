package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRecordOrder(t *testing.T) {
	tests := []struct {
		name    string
		order   RecordOrder
		wantErr bool
	}{
		{
			name:  "Valid order",
			order: RecordOrder{OrderID: "1001", Paid: true, Items: []OrderItem{{ProductID: "7", Quantity: 2}}},
		},
		{
			name:  "Order without items",
			order: RecordOrder{OrderID: "1002"},
		},
		{
			name:    "Missing order id",
			order:   RecordOrder{Items: []OrderItem{{ProductID: "7", Quantity: 1}}},
			wantErr: true,
		},
		{
			name:    "Item without product",
			order:   RecordOrder{OrderID: "1003", Items: []OrderItem{{Quantity: 1}}},
			wantErr: true,
		},
		{
			name:    "Negative quantity",
			order:   RecordOrder{OrderID: "1004", Items: []OrderItem{{ProductID: "7", Quantity: -1}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order.ValidateRecordOrder()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRecordOrderToOrder(t *testing.T) {
	req := RecordOrder{OrderID: "1001", Paid: true, Items: []OrderItem{
		{ProductID: "shirt", Quantity: 1},
		{ProductID: "7", Quantity: 3},
	}}

	order := req.ToOrder()
	assert.Equal(t, "1001", order.OrderID)
	assert.True(t, order.Paid)
	assert.Len(t, order.Items, 2)
	assert.Equal(t, 1, order.Items[1].Position)
	assert.Equal(t, 3, order.Items[1].Quantity)
}

func TestValidateUpdateSettings(t *testing.T) {
	valid := UpdateSettings{APIKey: "key", OrganisationID: "org", OffsetProductID: "7"}
	assert.NoError(t, valid.ValidateUpdateSettings())
	assert.Equal(t, "org", valid.ToSettings().OrganisationID)

	missing := UpdateSettings{APIKey: "key"}
	assert.Error(t, missing.ValidateUpdateSettings())
}

func TestValidatePagination(t *testing.T) {
	p := Pagination{}
	assert.NoError(t, p.ValidatePagination())
	assert.Equal(t, DefaultLimit, p.Limit)

	p = Pagination{Limit: MaxLimit + 1}
	assert.Error(t, p.ValidatePagination())

	p = Pagination{Limit: 5, Offset: -1}
	assert.Error(t, p.ValidatePagination())
}

func TestValidateSyncRequest(t *testing.T) {
	assert.NoError(t, (&SyncRequest{Limit: 0}).ValidateSyncRequest())
	assert.Error(t, (&SyncRequest{Limit: -2}).ValidateSyncRequest())
}
