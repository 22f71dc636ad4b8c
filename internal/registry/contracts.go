package registry

// Deployment is the contract trio a SimpleSwap pool is made of.
type Deployment struct {
	TokenA string
	TokenB string
	Swap   string
}

// TokenFallback is the display metadata used when on-chain metadata reads
// fail; quoting continues on approximate names instead of aborting.
type TokenFallback struct {
	Name     string
	Symbol   string
	Decimals int
}

// Canonical SimpleSwap deployments by chain ID.
var deploymentsByChainID = map[int64]Deployment{
	SepoliaChainID: {
		TokenA: "0xc3C4B92ccD54E42e23911F5212fE628370d99e2E",
		TokenB: "0x19546E766F5168dcDbB1A8F93733fFA23Aa79D52",
		Swap:   "0xBfBe54b54868C37034Cfa6A8E9E5d045CC1B8278",
	},
}

func DeploymentByChainID(chainID int64) (Deployment, bool) {
	d, ok := deploymentsByChainID[chainID]
	return d, ok
}

var (
	TokenAFallback = TokenFallback{Name: "Token A", Symbol: "TKNA", Decimals: 18}
	TokenBFallback = TokenFallback{Name: "Token B", Symbol: "TKNB", Decimals: 18}
)
