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

package transport

import (
	"strings"

	"quant-hft-core/constants"
	"quant-hft-core/contracts"
)

// NormalizeSnapshot fills in an exchange id the broker omitted by matching
// the instrument id's leading letters against the known exchange prefixes,
// and zeros a settlement price that falls outside the broker's "not yet
// published" sentinel band.
func NormalizeSnapshot(snap *contracts.MarketSnapshot) {
	if snap == nil {
		return
	}
	if snap.ExchangeID == "" {
		snap.ExchangeID = exchangeFromInstrument(snap.InstrumentID)
	}
	if snap.SettlementPrice != nil {
		price := *snap.SettlementPrice
		if price <= constants.SettlementSentinelLow || price >= constants.SettlementSentinelHigh {
			snap.SettlementPrice = nil
		}
	}
}

func exchangeFromInstrument(instrumentID string) string {
	upper := strings.ToUpper(instrumentID)
	for prefix, exchange := range constants.ExchangePrefixes {
		if strings.HasPrefix(upper, prefix) {
			return exchange
		}
	}
	return ""
}
