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
	"quant-hft-core/contracts"
	"quant-hft-core/logging"
)

// LedgerRiskRecorder adapts a Ledger to execution.RiskDecisionRecorder,
// giving every PlaceOrder risk-check outcome (accept or reject) a row in
// risk_decisions (SPEC_FULL supplemented feature 5).
type LedgerRiskRecorder struct {
	ledger Ledger
	log    *logging.Logger
}

func NewLedgerRiskRecorder(ledger Ledger, log *logging.Logger) *LedgerRiskRecorder {
	if log == nil {
		log = logging.Default()
	}
	return &LedgerRiskRecorder{ledger: ledger, log: log}
}

func (r *LedgerRiskRecorder) RecordRiskDecision(intent contracts.OrderIntent, decision contracts.RiskDecision) {
	if r.ledger == nil {
		return
	}
	if err := r.ledger.AppendRiskDecision(intent, decision); err != nil {
		r.log.Warn("risk_decision_persist_failed", logging.F("client_order_id", intent.ClientOrderID), logging.F("error", err.Error()))
	}
}
