package registry

import (
	"fmt"
	"strings"
)

// ChainDescriptor carries everything needed to add a chain to a wallet
// bridge: identity, native currency and default endpoints.
type ChainDescriptor struct {
	ChainID           int64
	Name              string
	CurrencyName      string
	CurrencySymbol    string
	CurrencyDecimals  int
	RPCURLs           []string
	BlockExplorerURLs []string
}

// HexChainID returns the EIP-695 representation used on the wallet wire.
func (d ChainDescriptor) HexChainID() string {
	return fmt.Sprintf("0x%x", d.ChainID)
}

const SepoliaChainID int64 = 11155111

var chainDescriptorsByID = map[int64]ChainDescriptor{
	SepoliaChainID: {
		ChainID:           SepoliaChainID,
		Name:              "Sepolia Test Network",
		CurrencyName:      "SepoliaETH",
		CurrencySymbol:    "ETH",
		CurrencyDecimals:  18,
		RPCURLs:           []string{"https://ethereum-sepolia-rpc.publicnode.com", "https://rpc.sepolia.org"},
		BlockExplorerURLs: []string{"https://sepolia.etherscan.io/"},
	},
}

// Sepolia is the descriptor of the default deployment network.
var Sepolia = chainDescriptorsByID[SepoliaChainID]

func ChainByID(chainID int64) (ChainDescriptor, bool) {
	d, ok := chainDescriptorsByID[chainID]
	return d, ok
}

func DefaultRPCURL(chainID int64) (string, bool) {
	d, ok := chainDescriptorsByID[chainID]
	if !ok || len(d.RPCURLs) == 0 {
		return "", false
	}
	return d.RPCURLs[0], true
}

func ResolveRPCURL(override string, chainID int64) (string, error) {
	if strings.TrimSpace(override) != "" {
		return strings.TrimSpace(override), nil
	}
	if value, ok := DefaultRPCURL(chainID); ok {
		return value, nil
	}
	return "", fmt.Errorf("no default rpc configured for chain id %d; provide --rpc-url", chainID)
}

// Explorer API endpoints by chain ID.
var explorerAPIByChainID = map[int64]string{
	SepoliaChainID: "https://api-sepolia.etherscan.io/api",
}

func ExplorerAPIURL(chainID int64) (string, bool) {
	value, ok := explorerAPIByChainID[chainID]
	return value, ok
}
