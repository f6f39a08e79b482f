/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package store

import (
	"context"

	"github.com/redis/go-redis/v9"

	"quant-hft-core/strategy"
)

// RedisHashClient adapts a go-redis client to strategy.HashClient, letting
// the IntentInbox read the strategy:intent:<id>:latest hash directly.
type RedisHashClient struct {
	client *redis.Client
}

var _ strategy.HashClient = (*RedisHashClient)(nil)

func NewRedisHashClient(client *redis.Client) *RedisHashClient {
	return &RedisHashClient{client: client}
}

func (r *RedisHashClient) HGetAll(key string) (map[string]string, error) {
	return r.client.HGetAll(context.Background(), key).Result()
}
