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

// cmd/core-engine is the thin, demonstration-only wiring the spec
// explicitly places out of the core's unit-testable surface (§Non-goals:
// "config file parsing; CLI entry points"). It exists only to show the
// library packages composed end to end; the core never reads an
// environment variable or a flag itself.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"quant-hft-core/contracts"
	"quant-hft-core/store"
)

// appConfig bundles everything the wiring in main.go needs, assembled from
// the environment once at startup and never consulted again.
type appConfig struct {
	session contracts.SessionConfig
	storage store.ConnectionConfig

	accountID    string
	strategyID   string
	useSimulator bool
	logLevel     string
}

func loadConfigFromEnv() (appConfig, error) {
	cfg := appConfig{
		logLevel: envOr("CORE_LOG_LEVEL", "info"),
	}

	cfg.useSimulator = envBool("CORE_USE_SIMULATOR", true)
	cfg.accountID = envOr("CORE_ACCOUNT_ID", "demo-account")
	cfg.strategyID = envOr("CORE_STRATEGY_ID", "demo")

	cfg.session = contracts.SessionConfig{
		MarketFrontAddrs:          envList("CORE_MARKET_FRONTS"),
		TraderFrontAddrs:          envList("CORE_TRADER_FRONTS"),
		BrokerID:                  os.Getenv("CORE_BROKER_ID"),
		UserID:                    os.Getenv("CORE_USER_ID"),
		InvestorID:                os.Getenv("CORE_INVESTOR_ID"),
		Password:                  os.Getenv("CORE_PASSWORD"),
		AppID:                     os.Getenv("CORE_APP_ID"),
		AuthCode:                  os.Getenv("CORE_AUTH_CODE"),
		IsProduction:              envBool("CORE_IS_PRODUCTION", false),
		EnableRealAPI:             envBool("CORE_ENABLE_REAL_API", false),
		EnableTerminalAuth:        envBool("CORE_ENABLE_TERMINAL_AUTH", false),
		SettlementConfirmRequired: envBool("CORE_SETTLEMENT_CONFIRM_REQUIRED", false),
		ConnectTimeout:            envDuration("CORE_CONNECT_TIMEOUT", 5*time.Second),
		ReconnectInitialBackoff:   envDuration("CORE_RECONNECT_INITIAL_BACKOFF", 500*time.Millisecond),
		ReconnectMaxBackoff:       envDuration("CORE_RECONNECT_MAX_BACKOFF", 30*time.Second),
		ReconnectMaxAttempts:      envInt("CORE_RECONNECT_MAX_ATTEMPTS", 0),
		RecoveryQuietPeriod:       envDuration("CORE_RECOVERY_QUIET_PERIOD", 2*time.Second),
	}

	if !cfg.useSimulator {
		if cfg.session.BrokerID == "" || cfg.session.UserID == "" {
			return appConfig{}, fmt.Errorf("CORE_BROKER_ID and CORE_USER_ID are required unless CORE_USE_SIMULATOR=true")
		}
	}

	cfg.storage = store.ConnectionConfig{
		RedisAddr:     envOr("CORE_REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("CORE_REDIS_PASSWORD"),
		RedisDB:       envInt("CORE_REDIS_DB", 0),
		RealtimeTTL:   envDuration("CORE_REALTIME_TTL", 24*time.Hour),
		TimescaleDSN:  os.Getenv("CORE_TIMESCALE_DSN"),
		SQLitePath:    envOr("CORE_SQLITE_PATH", "core-engine-ledger.db"),
		AllowFallback: envBool("CORE_STORAGE_ALLOW_FALLBACK", true),
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == ',' {
			if i > start {
				out = append(out, v[start:i])
			}
			start = i + 1
		}
	}
	return out
}
