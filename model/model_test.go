package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wacul/ptr"
)

func TestGenerateUUIDWithSuffix(t *testing.T) {
	id := GenerateUUIDWithSuffix("pur")
	assert.True(t, strings.HasPrefix(id, "pur_"))
	assert.Len(t, id, len("pur_")+36)
	assert.NotEqual(t, id, GenerateUUIDWithSuffix("pur"))
}

func TestPurchaseFieldsMerge(t *testing.T) {
	stored := PurchaseFields{OffsetID: ptr.String("off-1")}
	incoming := PurchaseFields{
		OffsetID:        ptr.String("off-2"),
		TrackingID:      ptr.String("trk-2"),
		CarbonDioxideKg: ptr.Float64(3),
	}

	merged := stored.Merge(incoming)
	assert.Equal(t, "off-1", *merged.OffsetID)
	assert.Equal(t, "trk-2", *merged.TrackingID)
	assert.Equal(t, 3.0, *merged.CarbonDioxideKg)
}

func TestOrderFindProduct(t *testing.T) {
	order := Order{Items: []OrderItem{
		{Position: 0, ProductID: "shirt", Quantity: 1},
		{Position: 1, ProductID: "7", Quantity: 2},
		{Position: 2, ProductID: "7", Quantity: 5},
	}}

	item, ok := order.FindProduct("7")
	assert.True(t, ok)
	assert.Equal(t, 2, item.Quantity)

	_, ok = order.FindProduct("missing")
	assert.False(t, ok)
}

func TestPurchaseResultReceipt(t *testing.T) {
	success := NewSuccessResult(3, OffsetSuccess{
		OffsetID:        "off-1",
		TrackingID:      ptr.String("trk-1"),
		TrackingURL:     ptr.String("https://clmte.com/track?trackingId=trk-1&amount=3"),
		CarbonDioxideKg: 9,
	})
	assert.True(t, success.Succeeded())

	receipt := success.Receipt()
	assert.Equal(t, 3, receipt.Amount)
	assert.Equal(t, "off-1", *receipt.OffsetID)
	assert.Equal(t, 9.0, *receipt.CarbonDioxideKg)
	assert.Equal(t, "trk-1", *receipt.TrackingID)
	assert.Nil(t, receipt.Error)

	fields := success.Fields()
	assert.Equal(t, "off-1", *fields.OffsetID)
	assert.Equal(t, "trk-1", *fields.TrackingID)

	failure := NewFailureResult(2, "Invalid amount")
	assert.False(t, failure.Succeeded())
	assert.Equal(t, PurchaseFields{}, failure.Fields())
	assert.Equal(t, "Invalid amount", *failure.Receipt().Error)
	assert.Nil(t, failure.Receipt().OffsetID)
}

func TestPurchaseStatusValid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusCreated.Valid())
	assert.False(t, PurchaseStatus("SETTLED").Valid())
}
