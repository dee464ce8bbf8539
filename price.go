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
	"strings"
	"time"

	"github.com/clmte/clmte/config"
	"github.com/clmte/clmte/internal/tundra"
	"github.com/clmte/clmte/model"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	priceCacheKey = "offset:price"
	priceCacheTTL = time.Hour
)

type cachedPrice struct {
	Price *string
}

// FormatPrice renders amount with the shop's precision and separator.
// Zero and negative prices mean "no price" and come back as nil.
func FormatPrice(amount decimal.Decimal, decimals int, separator string) *string {
	rounded := amount.Round(int32(decimals))
	if !rounded.IsPositive() {
		return nil
	}
	formatted := rounded.StringFixed(int32(decimals))
	if separator != "." {
		formatted = strings.Replace(formatted, ".", separator, 1)
	}
	return &formatted
}

// parsePrice reads a formatted price back. ok is false for unreadable or
// zero prices.
func parsePrice(price, separator string) (decimal.Decimal, bool) {
	if separator != "." {
		price = strings.Replace(price, separator, ".", 1)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(price))
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

func decimalDigits(price, separator string) int {
	idx := strings.LastIndex(price, separator)
	if idx < 0 {
		return 0
	}
	return len(price) - idx - len(separator)
}

// storedPrice returns the last saved price, reading through the cache.
func (c *Clmte) storedPrice(ctx context.Context) (*string, error) {
	if c.cache != nil {
		var entry cachedPrice
		found, err := c.cache.Get(ctx, priceCacheKey, &entry)
		if err != nil {
			logrus.WithError(err).Warn("price cache read failed")
		} else if found {
			return entry.Price, nil
		}
	}

	value, ok, err := c.datasource.GetOption(ctx, model.OptionOffsetPrice)
	if err != nil {
		return nil, err
	}
	var price *string
	if ok && value != "" {
		price = &value
	}
	c.cachePrice(ctx, price)
	return price, nil
}

func (c *Clmte) cachePrice(ctx context.Context, price *string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, priceCacheKey, cachedPrice{Price: price}, priceCacheTTL); err != nil {
		logrus.WithError(err).Warn("price cache write failed")
	}
}

func (c *Clmte) savePrice(ctx context.Context, price *string) {
	var err error
	if price == nil {
		err = c.datasource.DeleteOption(ctx, model.OptionOffsetPrice)
	} else {
		err = c.datasource.SetOption(ctx, model.OptionOffsetPrice, *price)
	}
	if err != nil {
		logrus.WithError(err).Error("failed to persist offset price")
	}
	c.cachePrice(ctx, price)
}

// GetPrice returns the formatted unit price of one offset, or nil when no
// price is available. A stored non-zero price is reused unless forceRefresh
// is set. Fetch failures are logged and yield nil.
//
// Parameters:
// - ctx: request context.
// - forceRefresh: skip the stored price and ask the offsetting API.
//
// Returns:
// - *string: the formatted price, or nil when none is available.
func (c *Clmte) GetPrice(ctx context.Context, forceRefresh bool) *string {
	ctx, span := tracer.Start(ctx, "GetPrice")
	defer span.End()

	cfg, err := config.Fetch()
	if err != nil {
		logrus.Error(err)
		return nil
	}

	if !forceRefresh {
		price, err := c.storedPrice(ctx)
		if err != nil {
			logrus.WithError(err).Warn("failed to read stored offset price")
		} else if price != nil {
			if _, ok := parsePrice(*price, cfg.Shop.Separator()); ok {
				return price
			}
		}
	}

	return c.refreshPrice(ctx, cfg)
}

func (c *Clmte) refreshPrice(ctx context.Context, cfg *config.Configuration) *string {
	settings, err := c.Settings(ctx)
	if err != nil {
		logrus.WithError(err).Error("failed to load settings for price refresh")
		return nil
	}

	var price *string
	amount, err := c.api.GetPrice(ctx, tundra.CostURL(settings.ProductionMode, settings.OrganisationID))
	if err != nil {
		logrus.WithError(err).Warn("offset price unavailable")
		c.logError(ctx, "Failed to fetch offset price: "+err.Error())
	} else {
		price = FormatPrice(amount, cfg.Shop.Decimals(), cfg.Shop.Separator())
	}

	c.savePrice(ctx, price)
	if price != nil {
		c.activity(ctx, "Offset price updated to "+*price)
	}
	return price
}

// AlignPrecision refetches the price when the stored one was formatted with
// a different number of decimals than the shop now uses.
func (c *Clmte) AlignPrecision(ctx context.Context) {
	cfg, err := config.Fetch()
	if err != nil {
		logrus.Error(err)
		return
	}
	price, err := c.storedPrice(ctx)
	if err != nil || price == nil {
		return
	}
	if decimalDigits(*price, cfg.Shop.Separator()) != cfg.Shop.Decimals() {
		c.GetPrice(ctx, true)
	}
}

// GetOffsetPrice is the price shown at checkout.
func (c *Clmte) GetOffsetPrice(ctx context.Context) *string {
	c.AlignPrecision(ctx)
	return c.GetPrice(ctx, false)
}
