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

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"quant-hft-core/constants"
	"quant-hft-core/contracts"
	"quant-hft-core/execution"
	"quant-hft-core/flowctl"
	"quant-hft-core/logging"
	"quant-hft-core/session"
	"quant-hft-core/store"
	"quant-hft-core/transport"
)

// runAdmin is the scripted, one-shot replacement for the teacher's readline
// REPL: the same command set (order, cancel, ordstatus, status, help,
// version), driven by argv instead of an interactive prompt. Every
// invocation other than help and version connects, issues exactly one
// command, and disconnects.
func runAdmin(args []string) int {
	if len(args) == 0 {
		printAdminHelp()
		return constants.ExitConfigError
	}

	cmd := strings.ToLower(args[0])
	rest := args[1:]

	if cmd == "help" {
		printAdminHelp()
		return constants.ExitOK
	}
	if cmd == "version" {
		fmt.Println("core-engine admin 1.0")
		return constants.ExitOK
	}

	cfg, err := loadConfigFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		return constants.ExitConfigError
	}
	log := logging.New("core-engine-admin", cfg.logLevel, os.Stderr)

	ledger, err := store.OpenLedger(cfg.storage)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ledger error:", err)
		return constants.ExitLedgerUnhealthy
	}
	defer ledger.Close()

	var bt transport.BrokerTransport
	if cfg.useSimulator {
		bt = transport.NewSimulator()
	} else {
		bt = transport.NewQuickfixTransport(log)
	}

	sessionMgr := session.New(bt, log)
	execEngine := execution.New(bt, sessionMgr, flowctl.NewController(), flowctl.NewCircuitBreakerManager(), execution.DefaultConfig())
	execEngine.SetRiskDecisionRecorder(store.NewLedgerRiskRecorder(ledger, log))

	if !sessionMgr.Connect(cfg.session) {
		fmt.Fprintln(os.Stderr, "session connect failed:", sessionMgr.LastError())
		return constants.ExitSessionConnect
	}
	defer sessionMgr.Disconnect()

	switch cmd {
	case "order":
		return adminOrderCommand(execEngine, cfg, rest)
	case "cancel":
		return adminCancelCommand(execEngine, cfg, rest)
	case "ordstatus":
		fmt.Println("order status tracking is internal to the execution engine; subscribe to OnOrderEvent to observe it")
		return constants.ExitOK
	case "status":
		fmt.Printf("session connected, account=%s strategy=%s\n", cfg.accountID, cfg.strategyID)
		return constants.ExitOK
	default:
		fmt.Println("unknown command:", cmd)
		printAdminHelp()
		return constants.ExitConfigError
	}
}

// adminOrderCommand handles: order <buy|sell> <open|close> <instrument> <volume> <price>
func adminOrderCommand(execEngine *execution.Engine, cfg appConfig, args []string) int {
	if len(args) < 5 {
		fmt.Println("usage: order <buy|sell> <open|close> <instrument> <volume> <price>")
		return constants.ExitConfigError
	}

	side, err := parseSide(args[0])
	if err != nil {
		fmt.Println(err)
		return constants.ExitConfigError
	}
	offset, err := parseOffset(args[1])
	if err != nil {
		fmt.Println(err)
		return constants.ExitConfigError
	}
	instrument := args[2]
	volume, err := strconv.Atoi(args[3])
	if err != nil {
		fmt.Println("invalid volume:", args[3])
		return constants.ExitConfigError
	}
	price, err := strconv.ParseFloat(args[4], 64)
	if err != nil {
		fmt.Println("invalid price:", args[4])
		return constants.ExitConfigError
	}

	accepted, reason := execEngine.PlaceOrder(contracts.OrderIntent{
		AccountID:     cfg.accountID,
		ClientOrderID: fmt.Sprintf("admin-%d", volume),
		StrategyID:    cfg.strategyID,
		InstrumentID:  instrument,
		Side:          side,
		Offset:        offset,
		Type:          contracts.OrderTypeLimit,
		Volume:        volume,
		Price:         price,
	})
	if !accepted {
		fmt.Println("rejected:", reason)
		return constants.ExitRiskReject
	}
	fmt.Println("accepted")
	return constants.ExitOK
}

// adminCancelCommand handles: cancel <clientOrderID> <instrument>
func adminCancelCommand(execEngine *execution.Engine, cfg appConfig, args []string) int {
	if len(args) < 2 {
		fmt.Println("usage: cancel <client_order_id> <instrument>")
		return constants.ExitConfigError
	}
	if !execEngine.CancelOrder(cfg.accountID, cfg.strategyID, args[0], args[1]) {
		fmt.Println("cancel rejected")
		return constants.ExitStateMachineReject
	}
	fmt.Println("cancel requested")
	return constants.ExitOK
}

func parseSide(s string) (contracts.Side, error) {
	switch strings.ToLower(s) {
	case "buy":
		return contracts.SideBuy, nil
	case "sell":
		return contracts.SideSell, nil
	default:
		return 0, fmt.Errorf("invalid side %q, want buy|sell", s)
	}
}

func parseOffset(s string) (contracts.Offset, error) {
	switch strings.ToLower(s) {
	case "open":
		return contracts.OffsetOpen, nil
	case "close":
		return contracts.OffsetClose, nil
	default:
		return 0, fmt.Errorf("invalid offset %q, want open|close", s)
	}
}

func printAdminHelp() {
	fmt.Print(`core-engine commands:
  order <buy|sell> <open|close> <instrument> <volume> <price>
  cancel <client_order_id> <instrument>
  ordstatus
  status
  help
  version

Running with no arguments starts the long-lived engine instead.
`)
}
