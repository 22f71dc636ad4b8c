package registry

import "testing"

func TestResolveRPCURLPrefersOverride(t *testing.T) {
	got, err := ResolveRPCURL("  https://example.invalid/rpc  ", SepoliaChainID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://example.invalid/rpc" {
		t.Fatalf("unexpected rpc url: %s", got)
	}
}

func TestResolveRPCURLUnknownChain(t *testing.T) {
	if _, err := ResolveRPCURL("", 424242); err == nil {
		t.Fatal("expected error for unknown chain")
	}
}

func TestSepoliaDescriptor(t *testing.T) {
	d, ok := ChainByID(SepoliaChainID)
	if !ok {
		t.Fatal("sepolia descriptor missing")
	}
	if d.HexChainID() != "0xaa36a7" {
		t.Fatalf("unexpected hex chain id: %s", d.HexChainID())
	}
	if len(d.RPCURLs) == 0 || len(d.BlockExplorerURLs) == 0 {
		t.Fatal("descriptor missing endpoints")
	}
}

func TestDeploymentByChainID(t *testing.T) {
	d, ok := DeploymentByChainID(SepoliaChainID)
	if !ok {
		t.Fatal("sepolia deployment missing")
	}
	if d.TokenA == "" || d.TokenB == "" || d.Swap == "" {
		t.Fatalf("incomplete deployment: %+v", d)
	}
}
