/*
Copyright 2024 CLMTE Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package clmte

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/clmte/clmte/config"
	redlock "github.com/clmte/clmte/internal/lock"
	"github.com/clmte/clmte/internal/notification"
	"github.com/clmte/clmte/internal/tundra"
	"github.com/clmte/clmte/model"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("clmte")

const orderLockTTL = time.Minute

// claimOrder takes the per-order lock. ok is false when another delivery of
// the same event holds it. Redis errors are logged and the purchase goes on
// unlocked; the compare-and-set on the offset flag still prevents a second
// success from being flagged.
func (c *Clmte) claimOrder(ctx context.Context, orderID string) (release func(), ok bool) {
	noop := func() {}
	if c.redis == nil {
		return noop, true
	}

	locker := redlock.NewOrderLocker(c.redis, orderID)
	if err := locker.Lock(ctx, orderLockTTL); err != nil {
		if errors.Is(err, redlock.ErrLockHeld) {
			return noop, false
		}
		logrus.WithError(err).WithField("order_id", orderID).Warn("order lock unavailable, continuing without it")
		return noop, true
	}
	return func() {
		if err := locker.Unlock(context.Background()); err != nil {
			logrus.WithError(err).WithField("order_id", orderID).Warn("failed to release order lock")
		}
	}, true
}

// ProcessPaymentComplete buys the offset attached to a paid order, at most
// once per order. The remote call never produces an error here; only a
// failure to record the outcome does.
//
// Once started the purchase is not tied to ctx cancellation: the remote
// call is bounded by the client timeout alone and its outcome is always
// written to the ledger.
//
// Parameters:
// - ctx: context carrying the trace span of the triggering event.
// - orderID: the shop order that completed payment.
//
// Returns:
// - *model.PurchaseResult: the purchase outcome, or nil when there was nothing to buy.
// - error: an error if the order could not be read or the outcome could not be recorded.
func (c *Clmte) ProcessPaymentComplete(ctx context.Context, orderID string) (*model.PurchaseResult, error) {
	ctx, span := tracer.Start(context.WithoutCancel(ctx), "ProcessPaymentComplete", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	logger := logrus.WithField("order_id", orderID)

	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	release, ok := c.claimOrder(ctx, orderID)
	if !ok {
		logger.Info("offset purchase already in progress for order")
		return nil, nil
	}
	defer release()

	purchased, err := c.datasource.GetOffsetFlag(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if purchased {
		logger.Debug("offset already purchased for order")
		return nil, nil
	}

	if err := c.datasource.DeleteOption(ctx, model.OptionLastPurchase); err != nil {
		return nil, c.persistenceFailure(ctx, err)
	}

	order, err := c.datasource.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Paid {
		logger.Debug("order not fully paid")
		return nil, nil
	}

	settings, err := c.Settings(ctx)
	if err != nil {
		return nil, err
	}
	if settings.OffsetProductID == "" {
		return nil, nil
	}
	item, found := order.FindProduct(settings.OffsetProductID)
	if !found {
		return nil, nil
	}
	if item.Quantity <= 0 {
		logger.WithField("quantity", item.Quantity).Warn("offset line item has no quantity")
		return nil, nil
	}

	logger = logger.WithField("amount", item.Quantity)
	result := c.api.Purchase(ctx, tundra.CompensationURL(settings.ProductionMode), settings.APIKey, item.Quantity)

	if !result.Succeeded() {
		span.SetStatus(codes.Error, result.Failure.Message)
		logger.WithField("message", result.Failure.Message).Warn("offset purchase failed, recording as pending")
		c.logError(ctx, "API POST request error: "+result.Failure.Message)

		record, err := c.datasource.CreatePurchase(ctx, item.Quantity, model.StatusPending, model.PurchaseFields{})
		if err != nil {
			return &result, c.persistenceFailure(ctx, err)
		}
		if cfg.Tundra.MarkFailedOrders {
			if _, err := c.datasource.SetOffsetFlag(ctx, orderID); err != nil {
				return &result, c.persistenceFailure(ctx, err)
			}
		}
		if err := c.saveReceipt(ctx, result); err != nil {
			return &result, c.persistenceFailure(ctx, err)
		}
		c.publish(EventOffsetPending, record)
		return &result, nil
	}

	record, err := c.datasource.CreatePurchase(ctx, item.Quantity, model.StatusCreated, result.Fields())
	if err != nil {
		return &result, c.persistenceFailure(ctx, err)
	}
	flipped, err := c.datasource.SetOffsetFlag(ctx, orderID)
	if err != nil {
		return &result, c.persistenceFailure(ctx, err)
	}
	if !flipped {
		logger.Warn("offset flag was already set by a concurrent delivery")
	}
	if err := c.saveReceipt(ctx, result); err != nil {
		return &result, c.persistenceFailure(ctx, err)
	}
	logger.WithField("offset_id", result.Success.OffsetID).Info("offset purchased")
	c.publish(EventOffsetCreated, record)

	if _, err := c.SyncPending(ctx, cfg.Tundra.SyncLimit()); err != nil {
		logger.WithError(err).Warn("backlog sync after purchase failed")
	}
	return &result, nil
}

func (c *Clmte) saveReceipt(ctx context.Context, result model.PurchaseResult) error {
	data, err := json.Marshal(result.Receipt())
	if err != nil {
		return err
	}
	return c.datasource.SetOption(ctx, model.OptionLastPurchase, string(data))
}

// GetReceipt returns the outcome of the most recent purchase attempt. ok is
// false when the last order carried no offset.
func (c *Clmte) GetReceipt(ctx context.Context) (model.Receipt, bool, error) {
	var receipt model.Receipt
	value, ok, err := c.datasource.GetOption(ctx, model.OptionLastPurchase)
	if err != nil || !ok || value == "" {
		return receipt, false, err
	}
	if err := json.Unmarshal([]byte(value), &receipt); err != nil {
		return receipt, false, err
	}
	return receipt, receipt.Amount > 0, nil
}

// persistenceFailure logs and escalates a failed write on the purchase path.
func (c *Clmte) persistenceFailure(ctx context.Context, err error) error {
	wrapped := fmt.Errorf("failed to record offset purchase: %w", err)
	logrus.WithContext(ctx).Error(wrapped)
	notification.NotifyError(wrapped)
	return wrapped
}

// ListPurchases is the admin view of the ledger, newest first.
//
// Parameters:
// - ctx: request context.
// - limit: page size.
// - offset: number of rows to skip.
//
// Returns:
// - model.PurchaseSummary: the page plus the total number of PENDING rows.
// - error: an error if either query fails.
func (c *Clmte) ListPurchases(ctx context.Context, limit, offset int) (model.PurchaseSummary, error) {
	purchases, err := c.datasource.GetAllPurchases(ctx, limit, offset)
	if err != nil {
		return model.PurchaseSummary{}, err
	}
	pending, err := c.datasource.CountPendingPurchases(ctx)
	if err != nil {
		return model.PurchaseSummary{}, err
	}
	return model.PurchaseSummary{Purchases: purchases, PendingCount: pending}, nil
}

// ListPendingPurchases returns the PENDING backlog, oldest first.
func (c *Clmte) ListPendingPurchases(ctx context.Context) ([]model.PurchaseRecord, error) {
	return c.datasource.GetPendingPurchases(ctx)
}

// RecordOrder stores the shop's view of an order.
func (c *Clmte) RecordOrder(ctx context.Context, order model.Order) (*model.Order, error) {
	return c.datasource.UpsertOrder(ctx, order)
}

// GetOrder returns the stored order with its line items and offset flag.
func (c *Clmte) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	return c.datasource.GetOrderByID(ctx, orderID)
}
