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
	"embed"

	"github.com/clmte/clmte/config"
	"github.com/clmte/clmte/database"
	"github.com/clmte/clmte/internal/cache"
	redis_db "github.com/clmte/clmte/internal/redis-db"
	"github.com/clmte/clmte/internal/tundra"
	"github.com/clmte/clmte/model"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

//go:embed sql/*.sql
var SQLFiles embed.FS

// OffsetAPI is the remote offsetting service.
type OffsetAPI interface {
	Purchase(ctx context.Context, endpointURL, apiKey string, amount int) model.PurchaseResult
	GetPrice(ctx context.Context, costURL string) (decimal.Decimal, error)
}

// Clmte wires the purchase ledger, the offsetting API and the optional Redis
// backed helpers together.
type Clmte struct {
	datasource database.IDataSource
	api        OffsetAPI
	redis      redis.UniversalClient
	cache      cache.Cache
	queue      *Queue
}

// NewClmte builds the service from the loaded configuration. Redis is
// optional: without it there is no price cache tier, no order lock and no
// task queue.
func NewClmte(db database.IDataSource) (*Clmte, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	c := &Clmte{
		datasource: db,
		api:        tundra.NewClient(cfg.Tundra.RequestTimeout()),
	}

	if cfg.Redis.Dns == "" {
		return c, nil
	}
	rdb, err := redis_db.NewRedisClient(cfg.Redis.Dns)
	if err != nil {
		logrus.WithError(err).Warn("redis unavailable, running without cache, locks and queue")
		return c, nil
	}
	c.redis = rdb.Client()
	c.cache = cache.NewCache(rdb.Client())
	c.queue = NewQueue(rdb.Options())
	return c, nil
}

// WithOffsetAPI swaps the offsetting API client.
func (c *Clmte) WithOffsetAPI(api OffsetAPI) *Clmte {
	c.api = api
	return c
}

// WithRedis attaches a Redis client for the order lock and the price cache.
func (c *Clmte) WithRedis(client redis.UniversalClient) *Clmte {
	c.redis = client
	if client != nil {
		c.cache = cache.NewCache(client)
	}
	return c
}

func (c *Clmte) WithQueue(q *Queue) *Clmte {
	c.queue = q
	return c
}

func (c *Clmte) Queue() *Queue {
	return c.queue
}

func (c *Clmte) Close() error {
	if c.queue != nil {
		return c.queue.Close()
	}
	return nil
}
