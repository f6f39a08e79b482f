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
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectionConfig is the fully-populated storage-selection struct the core
// receives (it never reads environment variables itself; see
// cmd/core-engine/config.go for the example env-var loader). TimescaleDSN
// selects the production ledger; when empty, AllowFallback gates whether
// SQLitePath may be opened instead.
type ConnectionConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RealtimeTTL   time.Duration

	TimescaleDSN   string
	SQLitePath     string
	AllowFallback  bool
}

// ErrNoLedgerConfigured is returned when neither a Timescale DSN nor a
// SQLite fallback path (with AllowFallback set) is available.
var ErrNoLedgerConfigured = errors.New("store: no ledger backend configured")

// OpenLedger picks the Timescale ledger when TimescaleDSN is set, falling
// back to the embedded SQLite ledger only when AllowFallback is true,
// mirroring the *_TIMESCALE_MODE / *_STORAGE_ALLOW_FALLBACK selection rule.
func OpenLedger(cfg ConnectionConfig) (Ledger, error) {
	if cfg.TimescaleDSN != "" {
		return NewTimescaleLedger(cfg.TimescaleDSN)
	}
	if cfg.AllowFallback && cfg.SQLitePath != "" {
		return NewSQLiteLedger(cfg.SQLitePath)
	}
	return nil, ErrNoLedgerConfigured
}

// OpenRealtimeCache builds the go-redis client and wraps it in a
// RedisRealtimeCache using the default retry policy.
func OpenRealtimeCache(cfg ConnectionConfig) *RedisRealtimeCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return NewRedisRealtimeCache(client, DefaultRetryPolicy(), cfg.RealtimeTTL)
}
