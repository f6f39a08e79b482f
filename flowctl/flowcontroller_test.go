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

package flowctl

import (
	"testing"

	"quant-hft-core/constants"
	"quant-hft-core/contracts"
)

func TestControllerAllowsUnconfiguredOperations(t *testing.T) {
	c := NewController()
	res := c.Check(Operation{AccountID: "acct1", Type: contracts.OpOrderInsert, InstrumentID: "rb2410"})
	if !res.Allowed {
		t.Fatalf("expected unconfigured operation to be allowed, got %+v", res)
	}
}

func TestControllerInstrumentRuleTakesPrecedenceOverAccountRule(t *testing.T) {
	c := NewController()
	c.AddRule(Rule{AccountID: "acct1", Type: contracts.OpOrderInsert, InstrumentID: "", RatePerSecond: 100, Capacity: 100})
	c.AddRule(Rule{AccountID: "acct1", Type: contracts.OpOrderInsert, InstrumentID: "rb2410", RatePerSecond: 1, Capacity: 1})

	op := Operation{AccountID: "acct1", Type: contracts.OpOrderInsert, InstrumentID: "rb2410"}
	if !c.Check(op).Allowed {
		t.Fatal("expected first request to be allowed")
	}
	res := c.Check(op)
	if res.Allowed {
		t.Fatal("expected second request to be rejected by the narrower instrument-scoped rule")
	}
	if res.Reason != constants.ReasonRateLimited {
		t.Fatalf("reason = %q, want %q", res.Reason, constants.ReasonRateLimited)
	}
}

func TestControllerAccountScopedRuleAppliesAcrossInstruments(t *testing.T) {
	c := NewController()
	c.AddRule(Rule{AccountID: "acct1", Type: contracts.OpOrderInsert, InstrumentID: "", RatePerSecond: 1, Capacity: 1})

	if !c.Check(Operation{AccountID: "acct1", Type: contracts.OpOrderInsert, InstrumentID: "rb2410"}).Allowed {
		t.Fatal("expected first request for rb2410 to be allowed")
	}
	if c.Check(Operation{AccountID: "acct1", Type: contracts.OpOrderInsert, InstrumentID: "cu2410"}).Allowed {
		t.Fatal("expected account-scoped bucket to be shared across instruments")
	}
}
