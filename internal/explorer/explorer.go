// Package explorer fetches account transaction history from an
// Etherscan-compatible API.
package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	clierr "github.com/GuillermoSiaira/simpleswap-cli/internal/errors"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/httpx"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/model"
)

type Client struct {
	http         *httpx.Client
	apiURL       string
	apiKey       string
	pageSize     int
	explorerBase string
	log          *zap.Logger
}

func New(http *httpx.Client, apiURL, apiKey string, pageSize int, explorerBase string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Client{
		http:         http,
		apiURL:       apiURL,
		apiKey:       apiKey,
		pageSize:     pageSize,
		explorerBase: strings.TrimRight(explorerBase, "/"),
		log:          log,
	}
}

// listResponse is the Etherscan envelope. result is an array on success
// and a bare string on API-level errors, hence the RawMessage.
type listResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type listEntry struct {
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	IsError         string `json:"isError"`
	TxReceiptStatus string `json:"txreceipt_status"`
	FunctionName    string `json:"functionName"`
}

// RecentTransactions returns the account's newest transactions, most
// recent first. An account with no history is not an error.
func (c *Client) RecentTransactions(ctx context.Context, account common.Address, limit int) ([]model.ExplorerTransaction, error) {
	if c.apiURL == "" {
		return nil, clierr.New(clierr.CodeUsage, "no explorer API configured for this chain")
	}
	if limit <= 0 || limit > c.pageSize {
		limit = c.pageSize
	}

	query := url.Values{}
	query.Set("module", "account")
	query.Set("action", "txlist")
	query.Set("address", account.Hex())
	query.Set("startblock", "0")
	query.Set("endblock", "99999999")
	query.Set("page", "1")
	query.Set("offset", strconv.Itoa(limit))
	query.Set("sort", "desc")
	if c.apiKey != "" {
		query.Set("apikey", c.apiKey)
	}

	var envelope listResponse
	if _, err := httpx.GetJSON(ctx, c.http, c.apiURL+"?"+query.Encode(), &envelope); err != nil {
		return nil, err
	}

	var entries []listEntry
	if err := json.Unmarshal(envelope.Result, &entries); err != nil {
		// status "0" with a string result is an API-level failure, except
		// the "no transactions" case which Etherscan also flags as "0".
		if strings.EqualFold(envelope.Message, "No transactions found") {
			return []model.ExplorerTransaction{}, nil
		}
		var detail string
		_ = json.Unmarshal(envelope.Result, &detail)
		return nil, clierr.New(clierr.CodeUnavailable, fmt.Sprintf("explorer rejected the request: %s %s", envelope.Message, detail))
	}
	if envelope.Status != "1" && len(entries) == 0 {
		return []model.ExplorerTransaction{}, nil
	}

	txs := make([]model.ExplorerTransaction, 0, len(entries))
	for _, entry := range entries {
		tx, err := c.convert(entry)
		if err != nil {
			c.log.Warn("skip malformed explorer entry", zap.String("hash", entry.Hash), zap.Error(err))
			continue
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (c *Client) convert(entry listEntry) (model.ExplorerTransaction, error) {
	block, err := strconv.ParseUint(entry.BlockNumber, 10, 64)
	if err != nil {
		return model.ExplorerTransaction{}, fmt.Errorf("block number %q: %w", entry.BlockNumber, err)
	}
	timestamp, err := strconv.ParseInt(entry.TimeStamp, 10, 64)
	if err != nil {
		return model.ExplorerTransaction{}, fmt.Errorf("timestamp %q: %w", entry.TimeStamp, err)
	}

	tx := model.ExplorerTransaction{
		Hash:        entry.Hash,
		From:        entry.From,
		To:          entry.To,
		ValueWei:    entry.Value,
		BlockNumber: block,
		Timestamp:   timestamp,
		Method:      methodName(entry.FunctionName),
		Failed:      entry.IsError == "1" || entry.TxReceiptStatus == "0",
	}
	if c.explorerBase != "" {
		tx.Link = c.explorerBase + "/tx/" + entry.Hash
	}
	return tx, nil
}

// methodName trims an Etherscan function signature down to its name.
func methodName(signature string) string {
	if signature == "" {
		return ""
	}
	if idx := strings.IndexByte(signature, '('); idx > 0 {
		return signature[:idx]
	}
	return signature
}
