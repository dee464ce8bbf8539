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

package redis_db

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 500 * time.Millisecond

// Redis wraps the client shared by the price cache, the order lock and the
// task queue.
type Redis struct {
	dns    string
	client redis.UniversalClient
}

// ParseRedisURL accepts either a bare host:port (as docker compose hands out)
// or a full redis:// URL.
func ParseRedisURL(rawURL string) (*redis.Options, error) {
	if rawURL == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	if !strings.Contains(rawURL, "//") && !strings.Contains(rawURL, "@") {
		return &redis.Options{Addr: rawURL}, nil
	}
	if !strings.HasPrefix(rawURL, "redis://") && !strings.HasPrefix(rawURL, "rediss://") {
		rawURL = "redis://" + strings.TrimPrefix(rawURL, "//")
	}
	return redis.ParseURL(rawURL)
}

// NewRedisClient connects to dns and pings it once. Callers treat an error as
// "run without Redis".
func NewRedisClient(dns string) (*Redis, error) {
	opts, err := ParseRedisURL(dns)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Redis{dns: dns, client: client}, nil
}

// Client returns the underlying universal client.
func (r *Redis) Client() redis.UniversalClient {
	return r.client
}

// Options returns the parsed connection options, used to build the asynq
// client and server against the same instance.
func (r *Redis) Options() *redis.Options {
	opts, _ := ParseRedisURL(r.dns)
	return opts
}

func (r *Redis) Close() error {
	return r.client.Close()
}
