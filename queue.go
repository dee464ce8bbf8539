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
	"encoding/json"
	"errors"
	"time"

	"github.com/clmte/clmte/config"
	"github.com/clmte/clmte/internal/apierror"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	TypeWebhook = "offset:webhook"
	TypeSync    = "offset:sync"

	syncUniqueWindow = time.Minute
	webhookMaxRetry  = 5
)

// Queue hands work to the worker process through asynq.
type Queue struct {
	Client *asynq.Client
}

// SyncPayload is the body of a backlog sync task. A non-positive limit drains
// the whole backlog.
type SyncPayload struct {
	Limit int `json:"limit"`
}

// RedisClientOpt converts parsed go-redis options into asynq's.
func RedisClientOpt(opts *redis.Options) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:      opts.Addr,
		Username:  opts.Username,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	}
}

func NewQueue(opts *redis.Options) *Queue {
	return &Queue{Client: asynq.NewClient(RedisClientOpt(opts))}
}

func (q *Queue) Close() error {
	return q.Client.Close()
}

func (q *Queue) EnqueueWebhook(hook NewWebhook) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}
	payload, err := json.Marshal(hook)
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeWebhook, payload,
		asynq.Queue(cfg.Queue.WebhookQueue),
		asynq.MaxRetry(webhookMaxRetry),
	)
	info, err := q.Client.Enqueue(task)
	if err != nil {
		logrus.WithError(err).WithField("event", hook.Event).Error("failed to enqueue webhook")
		return err
	}
	logrus.WithFields(logrus.Fields{"event": hook.Event, "task_id": info.ID}).Debug("webhook enqueued")
	return nil
}

// EnqueueSync schedules a backlog sync on the worker. Requests arriving while
// an identical one is still queued are rejected as a conflict.
func (q *Queue) EnqueueSync(limit int) (string, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(SyncPayload{Limit: limit})
	if err != nil {
		return "", err
	}
	task := asynq.NewTask(TypeSync, payload,
		asynq.Queue(cfg.Queue.SyncQueue),
		asynq.Unique(syncUniqueWindow),
		asynq.MaxRetry(0),
	)
	info, err := q.Client.Enqueue(task)
	if err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			return "", apierror.NewAPIError(apierror.ErrConflict, "A sync is already queued", nil)
		}
		return "", apierror.NewAPIError(apierror.ErrInternalServer, "Failed to queue sync", err)
	}
	return info.ID, nil
}
