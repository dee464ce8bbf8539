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

package main

import (
	"context"
	"fmt"
	"log"

	"github.com/clmte/clmte"
	"github.com/clmte/clmte/config"
	pg_listener "github.com/clmte/clmte/internal/pg-listener"
	redis_db "github.com/clmte/clmte/internal/redis-db"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func initializeQueues(cfg *config.Configuration) map[string]int {
	return map[string]int{
		cfg.Queue.WebhookQueue: 3,
		cfg.Queue.SyncQueue:    1,
	}
}

func initializeWorkerServer(conf *config.Configuration, queues map[string]int) (*asynq.Server, error) {
	if conf.Redis.Dns == "" {
		return nil, fmt.Errorf("workers need redis: set redis.dns")
	}
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	return asynq.NewServer(
		clmte.RedisClientOpt(redisOption),
		asynq.Config{
			// A single worker keeps backlog syncs from overlapping.
			Concurrency: 1,
			Queues:      queues,
		},
	), nil
}

func initializeTaskHandlers(c *clmteInstance, mux *asynq.ServeMux) {
	mux.HandleFunc(clmte.TypeWebhook, clmte.ProcessWebhook)
	mux.HandleFunc(clmte.TypeSync, c.clmte.ProcessSync)
}

// listenForPaidOrders buys offsets for orders the database reports as paid.
func listenForPaidOrders(ctx context.Context, c *clmteInstance) {
	listener := pg_listener.NewDBListener(pg_listener.ListenerConfig{
		PgConnStr: c.cnf.DataSource.Dns,
	}, func(ctx context.Context, orderID string) error {
		_, err := c.clmte.ProcessPaymentComplete(ctx, orderID)
		return err
	})
	if err := listener.Start(ctx); err != nil {
		logrus.WithError(err).Error("paid order listener stopped")
	}
}

// workerCommands defines the "workers" command that delivers webhooks and
// runs queued backlog syncs.
func workerCommands(c *clmteInstance) *cobra.Command {
	var listenOrders bool
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start clmte workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			conf, err := config.Fetch()
			if err != nil {
				log.Fatal("Error fetching config:", err)
			}

			shutdown, err := initializeObservability(ctx, conf)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := shutdown(ctx); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()

			srv, err := initializeWorkerServer(conf, initializeQueues(conf))
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(c, mux)

			if listenOrders {
				listenCtx, cancel := context.WithCancel(ctx)
				defer cancel()
				go listenForPaidOrders(listenCtx, c)
			}

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}
	cmd.Flags().BoolVar(&listenOrders, "listen-orders", false, "buy offsets when the database reports an order as paid")

	return cmd
}
