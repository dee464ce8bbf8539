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
	"errors"
	"fmt"
	"time"

	"github.com/clmte/clmte/internal/apierror"
	redlock "github.com/clmte/clmte/internal/lock"
	"github.com/clmte/clmte/internal/tundra"
	"github.com/clmte/clmte/model"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const purchaseLockTTL = time.Minute

// claimPending takes the per-row lock for a pending purchase and re-reads the
// row under it. ok is false when another drain holds the row or has already
// moved it to CREATED. Without Redis the row is not claimed and only the
// conditional ledger update guards it.
func (c *Clmte) claimPending(ctx context.Context, purchaseID string) (release func(), ok bool) {
	noop := func() {}
	if c.redis == nil {
		return noop, true
	}

	locker := redlock.NewPurchaseLocker(c.redis, purchaseID)
	if err := locker.Lock(ctx, purchaseLockTTL); err != nil {
		if errors.Is(err, redlock.ErrLockHeld) {
			return noop, false
		}
		logrus.WithError(err).WithField("purchase_id", purchaseID).Warn("purchase lock unavailable, continuing without it")
		return noop, true
	}
	release = func() {
		if err := locker.Unlock(context.Background()); err != nil {
			logrus.WithError(err).WithField("purchase_id", purchaseID).Warn("failed to release purchase lock")
		}
	}

	current, err := c.datasource.GetPurchase(ctx, purchaseID)
	if err != nil || current.Status != model.StatusPending {
		release()
		return noop, false
	}
	return release, true
}

// SyncPending retries PENDING purchases oldest first and stops after limit
// of them succeed. A limit of zero or less drains the whole backlog.
//
// Failed retries leave their rows untouched. Rows claimed by a concurrent
// drain are skipped. The run is detached from ctx cancellation: a retry that
// reached the offsetting API is recorded even if the caller goes away.
//
// Parameters:
// - ctx: context carrying the trace span.
// - limit: number of successful retries after which the drain stops.
//
// Returns:
// - int: the number of rows moved to CREATED.
// - error: an error if the backlog could not be read or a success could not be recorded.
func (c *Clmte) SyncPending(ctx context.Context, limit int) (int, error) {
	ctx, span := tracer.Start(context.WithoutCancel(ctx), "SyncPending")
	defer span.End()
	span.SetAttributes(attribute.Int("sync.limit", limit))

	pending, err := c.datasource.GetPendingPurchases(ctx)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	settings, err := c.Settings(ctx)
	if err != nil {
		return 0, err
	}
	url := tundra.CompensationURL(settings.ProductionMode)

	synced := 0
	for _, p := range pending {
		if limit > 0 && synced >= limit {
			break
		}

		ok, err := c.retryPending(ctx, url, settings.APIKey, p)
		if err != nil {
			return synced, err
		}
		if ok {
			synced++
		}
	}

	span.SetAttributes(attribute.Int("sync.synced", synced))
	c.activity(ctx, fmt.Sprintf("Synced %d of %d pending offsets", synced, len(pending)))
	return synced, nil
}

// retryPending buys the offset for one pending row and marks it CREATED.
func (c *Clmte) retryPending(ctx context.Context, url, apiKey string, p model.PurchaseRecord) (bool, error) {
	logger := logrus.WithField("purchase_id", p.PurchaseID)

	release, ok := c.claimPending(ctx, p.PurchaseID)
	if !ok {
		logger.Debug("pending purchase claimed by another sync")
		return false, nil
	}
	defer release()

	result := c.api.Purchase(ctx, url, apiKey, p.Amount)
	if !result.Succeeded() {
		logger.WithField("message", result.Failure.Message).Debug("pending purchase still failing")
		return false, nil
	}

	record, err := c.datasource.UpdatePurchaseToCreated(ctx, p.PurchaseID, result.Fields())
	if apierror.HasCode(err, apierror.ErrConflict) {
		logger.WithField("offset_id", result.Success.OffsetID).Warn("pending purchase was already created by another sync")
		return false, nil
	}
	if err != nil {
		return false, c.persistenceFailure(ctx, err)
	}
	c.publish(EventOffsetSynced, record)
	return true, nil
}
