// Package diagnostics inspects a deployment and reports what is wrong
// with it instead of failing on the first problem. The checks run in
// dependency order: network first, then bytecode, then contract reads.
package diagnostics

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/GuillermoSiaira/simpleswap-cli/internal/gateway"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/model"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/registry"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/wallet"
)

type Checker struct {
	bridge   wallet.Bridge
	gw       *gateway.Gateway
	session  *wallet.Session
	required registry.ChainDescriptor
	log      *zap.Logger
}

func New(bridge wallet.Bridge, gw *gateway.Gateway, session *wallet.Session, required registry.ChainDescriptor, log *zap.Logger) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{bridge: bridge, gw: gw, session: session, required: required, log: log}
}

// Run executes every check and always returns a report. Later checks
// are skipped when an earlier one makes them meaningless, never because
// of an error.
func (c *Checker) Run(ctx context.Context) model.DiagnosticsReport {
	report := model.DiagnosticsReport{ChainID: c.required.ChainID}

	onRequiredChain := c.checkNetwork(ctx, &report)
	if !onRequiredChain {
		report.Healthy = false
		return report
	}

	deployed := c.checkBytecode(ctx, &report)
	if deployed {
		c.checkMetadata(ctx, &report)
		c.checkReserves(ctx, &report)
		c.checkBalances(ctx, &report)
	}

	report.Healthy = true
	for _, issue := range report.Issues {
		if issue.Severity == model.SeverityError {
			report.Healthy = false
			break
		}
	}
	return report
}

func (c *Checker) checkNetwork(ctx context.Context, report *model.DiagnosticsReport) bool {
	chainID, err := c.bridge.ChainID(ctx)
	if err != nil {
		report.Issues = append(report.Issues, model.Issue{
			Severity:    model.SeverityError,
			Check:       "network",
			Message:     fmt.Sprintf("cannot read chain id: %v", err),
			Remediation: "check the RPC endpoint and connectivity",
		})
		return false
	}
	if chainID.Int64() != c.required.ChainID {
		report.Issues = append(report.Issues, model.Issue{
			Severity:    model.SeverityError,
			Check:       "network",
			Message:     fmt.Sprintf("connected to chain %s, expected %s (%d)", chainID, c.required.Name, c.required.ChainID),
			Remediation: "run session connect to switch networks",
		})
		return false
	}
	return true
}

func (c *Checker) checkBytecode(ctx context.Context, report *model.DiagnosticsReport) bool {
	cfg := c.gw.Config()
	contracts := []struct {
		name string
		addr common.Address
	}{
		{"token A", cfg.TokenA},
		{"token B", cfg.TokenB},
		{"swap contract", cfg.Swap},
	}
	allDeployed := true
	for _, contract := range contracts {
		code, err := c.bridge.CodeAt(ctx, contract.addr)
		switch {
		case err != nil:
			allDeployed = false
			report.Issues = append(report.Issues, model.Issue{
				Severity: model.SeverityError,
				Check:    "bytecode",
				Message:  fmt.Sprintf("cannot read code for %s at %s: %v", contract.name, contract.addr.Hex(), err),
			})
		case len(code) == 0:
			allDeployed = false
			report.Issues = append(report.Issues, model.Issue{
				Severity:    model.SeverityError,
				Check:       "bytecode",
				Message:     fmt.Sprintf("no contract deployed for %s at %s", contract.name, contract.addr.Hex()),
				Remediation: "verify the configured addresses against the deployment",
			})
		}
	}
	return allDeployed
}

func (c *Checker) checkMetadata(ctx context.Context, report *model.DiagnosticsReport) {
	cfg := c.gw.Config()
	for _, token := range []struct {
		addr     common.Address
		fallback registry.TokenFallback
	}{
		{cfg.TokenA, registry.TokenAFallback},
		{cfg.TokenB, registry.TokenBFallback},
	} {
		info := c.gw.TokenMetadata(ctx, token.addr, token.fallback)
		if info.Fallback {
			report.Issues = append(report.Issues, model.Issue{
				Severity:    model.SeverityWarning,
				Check:       "metadata",
				Message:     fmt.Sprintf("token %s does not answer name/symbol/decimals, using %s defaults", token.addr.Hex(), info.Symbol),
				Remediation: "confirm the address points at an ERC-20 token",
			})
		}
	}
}

func (c *Checker) checkReserves(ctx context.Context, report *model.DiagnosticsReport) {
	reserveA, reserveB, err := c.gw.AMM().Reserves(ctx)
	if err != nil {
		report.Issues = append(report.Issues, model.Issue{
			Severity:    model.SeverityError,
			Check:       "reserves",
			Message:     fmt.Sprintf("cannot read pool reserves: %v", err),
			Remediation: "the swap contract may not match the configured variant",
		})
		return
	}
	if reserveA.Sign() == 0 || reserveB.Sign() == 0 {
		report.Issues = append(report.Issues, model.Issue{
			Severity:    model.SeverityError,
			Check:       "reserves",
			Message:     "pool has no liquidity, quotes and swaps will be unavailable",
			Remediation: "seed the pool with liquidity add",
		})
	}
}

func (c *Checker) checkBalances(ctx context.Context, report *model.DiagnosticsReport) {
	if c.session == nil {
		return
	}
	account, err := c.session.Account()
	if err != nil {
		report.Issues = append(report.Issues, model.Issue{
			Severity: model.SeverityInfo,
			Check:    "balances",
			Message:  "no wallet session, skipping balance checks",
		})
		return
	}

	cfg := c.gw.Config()
	holdsAny := false
	allReadable := true
	for _, token := range []struct {
		name string
		addr common.Address
	}{
		{"token A", cfg.TokenA},
		{"token B", cfg.TokenB},
	} {
		balance, err := c.gw.BalanceOf(ctx, token.addr, account)
		if err != nil {
			allReadable = false
			report.Issues = append(report.Issues, model.Issue{
				Severity: model.SeverityWarning,
				Check:    "balances",
				Message:  fmt.Sprintf("cannot read %s balance: %v", token.name, err),
			})
			continue
		}
		if balance.Sign() > 0 {
			holdsAny = true
		}
	}
	if allReadable && !holdsAny {
		report.Issues = append(report.Issues, model.Issue{
			Severity:    model.SeverityWarning,
			Check:       "balances",
			Message:     "account holds no balance of either token",
			Remediation: "fund the account before swapping",
		})
	}
}
