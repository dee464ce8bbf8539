package mocks

import (
	"context"

	"github.com/clmte/clmte/model"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Purchase methods

func (m *MockDataSource) CreatePurchase(ctx context.Context, amount int, status model.PurchaseStatus, fields model.PurchaseFields) (*model.PurchaseRecord, error) {
	args := m.Called(ctx, amount, status, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PurchaseRecord), args.Error(1)
}

func (m *MockDataSource) UpdatePurchaseToCreated(ctx context.Context, purchaseID string, fields model.PurchaseFields) (*model.PurchaseRecord, error) {
	args := m.Called(ctx, purchaseID, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PurchaseRecord), args.Error(1)
}

func (m *MockDataSource) GetPurchase(ctx context.Context, purchaseID string) (*model.PurchaseRecord, error) {
	args := m.Called(ctx, purchaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PurchaseRecord), args.Error(1)
}

func (m *MockDataSource) GetPendingPurchases(ctx context.Context) ([]model.PurchaseRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PurchaseRecord), args.Error(1)
}

func (m *MockDataSource) GetAllPurchases(ctx context.Context, limit, offset int) ([]model.PurchaseRecord, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PurchaseRecord), args.Error(1)
}

func (m *MockDataSource) CountPendingPurchases(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// Option methods

func (m *MockDataSource) GetOption(ctx context.Context, name string) (string, bool, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockDataSource) SetOption(ctx context.Context, name, value string) error {
	args := m.Called(ctx, name, value)
	return args.Error(0)
}

func (m *MockDataSource) DeleteOption(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

// Order methods

func (m *MockDataSource) UpsertOrder(ctx context.Context, order model.Order) (*model.Order, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockDataSource) GetOrderByID(ctx context.Context, orderID string) (*model.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockDataSource) GetOffsetFlag(ctx context.Context, orderID string) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) SetOffsetFlag(ctx context.Context, orderID string) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

// Activity log methods

func (m *MockDataSource) CreateLog(ctx context.Context, logType model.LogType, description string) (*model.ActivityLog, error) {
	args := m.Called(ctx, logType, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ActivityLog), args.Error(1)
}

func (m *MockDataSource) GetLogs(ctx context.Context, limit, offset int) ([]model.ActivityLog, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ActivityLog), args.Error(1)
}
