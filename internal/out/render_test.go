package out

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/GuillermoSiaira/simpleswap-cli/internal/config"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/model"
)

func TestRenderJSONSelectResultsOnly(t *testing.T) {
	env := model.Envelope{
		Version: "v1",
		Success: true,
		Data:    []map[string]any{{"hash": "0xabc", "status": "confirmed"}},
		Meta:    model.EnvelopeMeta{Timestamp: time.Now()},
	}
	settings := config.Settings{OutputMode: "json", SelectFields: []string{"hash"}, ResultsOnly: true}
	var buf bytes.Buffer
	if err := Render(&buf, env, settings); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	var out []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if len(out) != 1 || out[0]["hash"].(string) != "0xabc" {
		t.Fatalf("unexpected output: %s", buf.String())
	}
	if _, ok := out[0]["status"]; ok {
		t.Fatalf("field projection failed: %s", buf.String())
	}
}

func TestRenderPlain(t *testing.T) {
	env := model.Envelope{
		Version: "v1",
		Success: true,
		Data:    []map[string]any{{"symbol": "TKNA", "decimals": 18}},
		Meta:    model.EnvelopeMeta{Timestamp: time.Now()},
	}
	settings := config.Settings{OutputMode: "plain", ResultsOnly: true}
	var buf bytes.Buffer
	if err := Render(&buf, env, settings); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "symbol=TKNA") {
		t.Fatalf("unexpected plain output: %s", buf.String())
	}
}

func TestRenderPlainCollapsesAmounts(t *testing.T) {
	env := model.Envelope{
		Version: "v1",
		Success: true,
		Data: map[string]any{
			"direction": "a_to_b",
			"amount_in": model.AmountInfo{
				AmountBaseUnits: "1500000000000000000",
				AmountDecimal:   "1.5",
				Decimals:        18,
			},
		},
		Meta: model.EnvelopeMeta{Timestamp: time.Now()},
	}
	settings := config.Settings{OutputMode: "plain", ResultsOnly: true}
	var buf bytes.Buffer
	if err := Render(&buf, env, settings); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "amount_in=1.5 (1500000000000000000 base units)") {
		t.Fatalf("amount not collapsed: %s", buf.String())
	}
}

func TestRenderPlainFlattensNestedRecords(t *testing.T) {
	env := model.Envelope{
		Version: "v1",
		Success: true,
		Data: map[string]any{
			"kind":   "swap",
			"phases": []string{"quoting", "swapping"},
			"transactions": []map[string]any{
				{"hash": "0xabc", "status": "confirmed"},
			},
		},
		Meta: model.EnvelopeMeta{Timestamp: time.Now()},
	}
	settings := config.Settings{OutputMode: "plain", ResultsOnly: true}
	var buf bytes.Buffer
	if err := Render(&buf, env, settings); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "phases=[quoting,swapping]") {
		t.Fatalf("list not flattened: %s", out)
	}
	if !strings.Contains(out, "transactions=[{hash=0xabc status=confirmed}]") {
		t.Fatalf("nested record not flattened: %s", out)
	}
}

func TestRenderPlainKeepsIntegersExact(t *testing.T) {
	env := model.Envelope{
		Version: "v1",
		Success: true,
		Data:    map[string]any{"block_number": uint64(9123456789123456789)},
		Meta:    model.EnvelopeMeta{Timestamp: time.Now()},
	}
	settings := config.Settings{OutputMode: "plain", ResultsOnly: true}
	var buf bytes.Buffer
	if err := Render(&buf, env, settings); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "block_number=9123456789123456789") {
		t.Fatalf("integer lost precision: %s", buf.String())
	}
}
