package model

import "time"

const EnvelopeVersion = "v1"

type Envelope struct {
	Version  string       `json:"version"`
	Success  bool         `json:"success"`
	Data     any          `json:"data,omitempty"`
	Error    *ErrorBody   `json:"error"`
	Warnings []string     `json:"warnings,omitempty"`
	Meta     EnvelopeMeta `json:"meta"`
}

type ErrorBody struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

type EnvelopeMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`
}

type AmountInfo struct {
	AmountBaseUnits string `json:"amount_base_units"`
	AmountDecimal   string `json:"amount_decimal"`
	Decimals        int    `json:"decimals"`
}

// SessionInfo is the externally visible wallet session state.
type SessionInfo struct {
	State        string `json:"state"`
	Account      string `json:"account,omitempty"`
	ChainID      int64  `json:"chain_id,omitempty"`
	WrongNetwork bool   `json:"wrong_network"`
	Network      string `json:"network,omitempty"`
}

type TokenInfo struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
	// Fallback is set when on-chain metadata reads failed and static
	// defaults are shown instead.
	Fallback bool `json:"fallback,omitempty"`
}

type PoolStatus struct {
	Swap       string     `json:"swap"`
	Variant    string     `json:"variant"`
	TokenA     TokenInfo  `json:"token_a"`
	TokenB     TokenInfo  `json:"token_b"`
	ReserveA   AmountInfo `json:"reserve_a"`
	ReserveB   AmountInfo `json:"reserve_b"`
	PriceAInB  string     `json:"price_a_in_b,omitempty"`
	PriceBInA  string     `json:"price_b_in_a,omitempty"`
	BalanceA   AmountInfo `json:"balance_a"`
	BalanceB   AmountInfo `json:"balance_b"`
	AllowanceA AmountInfo `json:"allowance_a"`
	AllowanceB AmountInfo `json:"allowance_b"`
}

// QuoteState distinguishes "no estimate" cases from a legitimate zero.
const (
	QuoteStateOK          = "ok"
	QuoteStateNoInput     = "no_input"
	QuoteStateNoLiquidity = "no_liquidity"
)

type QuoteInfo struct {
	State        string     `json:"state"`
	Direction    string     `json:"direction"`
	AmountIn     AmountInfo `json:"amount_in"`
	EstimatedOut AmountInfo `json:"estimated_out"`
	MinOut       AmountInfo `json:"min_out"`
	SlippageBps  int64      `json:"slippage_bps"`
	Price        string     `json:"price,omitempty"`
	Source       string     `json:"source"`
}

// Workflow phases reported by the orchestrator.
const (
	PhaseIdle              = "idle"
	PhaseValidating        = "validating"
	PhaseQuoting           = "quoting"
	PhaseCheckingAllowance = "checking_allowance"
	PhaseApproving         = "approving"
	PhaseSwapping          = "swapping"
	PhaseAdding            = "adding_liquidity"
	PhaseConfirming        = "confirming"
	PhaseDone              = "done"
	PhaseFailed            = "failed"
)

type TransactionRecord struct {
	Hash        string `json:"hash"`
	Kind        string `json:"kind"`
	Status      string `json:"status"`
	Account     string `json:"account"`
	ChainID     int64  `json:"chain_id"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	GasUsed     uint64 `json:"gas_used,omitempty"`
	SubmittedAt string `json:"submitted_at"`
	ConfirmedAt string `json:"confirmed_at,omitempty"`
	Error       string `json:"error,omitempty"`
}

type WorkflowResult struct {
	Kind           string              `json:"kind"`
	Phases         []string            `json:"phases"`
	Quote          *QuoteInfo          `json:"quote,omitempty"`
	ApprovalNeeded bool                `json:"approval_needed"`
	Transactions   []TransactionRecord `json:"transactions"`
	Status         string              `json:"status"`
}

// Issue severities reported by deployment diagnostics.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

type Issue struct {
	Severity    string `json:"severity"`
	Check       string `json:"check"`
	Message     string `json:"message"`
	Remediation string `json:"remediation,omitempty"`
}

type DiagnosticsReport struct {
	ChainID int64   `json:"chain_id"`
	Issues  []Issue `json:"issues"`
	Healthy bool    `json:"healthy"`
}

type ExplorerTransaction struct {
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	ValueWei    string `json:"value_wei"`
	BlockNumber uint64 `json:"block_number"`
	Timestamp   int64  `json:"timestamp"`
	Method      string `json:"method,omitempty"`
	Failed      bool   `json:"failed"`
	Link        string `json:"link,omitempty"`
}

type VersionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}
