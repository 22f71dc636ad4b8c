package txstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/GuillermoSiaira/simpleswap-cli/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "transactions.db"), filepath.Join(dir, "transactions.lock"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreSaveGetList(t *testing.T) {
	store := openTestStore(t)

	record := model.TransactionRecord{
		Hash:        "0xabc",
		Kind:        "swap",
		Status:      "submitted",
		Account:     "0x1111111111111111111111111111111111111111",
		ChainID:     11155111,
		SubmittedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := store.Save(record); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Get("0xabc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Kind != "swap" || got.Status != "submitted" {
		t.Fatalf("unexpected record: %+v", got)
	}

	got.Status = "confirmed"
	got.ConfirmedAt = time.Now().UTC().Format(time.RFC3339)
	if err := store.Save(got); err != nil {
		t.Fatalf("Save update failed: %v", err)
	}

	records, err := store.List(record.Account, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 1 || records[0].Status != "confirmed" {
		t.Fatalf("unexpected list: %+v", records)
	}
}

func TestStoreListFiltersAccount(t *testing.T) {
	store := openTestStore(t)

	for i, account := range []string{"0xaa", "0xbb"} {
		record := model.TransactionRecord{
			Hash:        "0x" + string(rune('1'+i)),
			Kind:        "approve",
			Status:      "confirmed",
			Account:     account,
			ChainID:     11155111,
			SubmittedAt: time.Now().UTC().Format(time.RFC3339),
		}
		if err := store.Save(record); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	records, err := store.List("0xAA", 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 1 || records[0].Account != "0xaa" {
		t.Fatalf("account filter failed: %+v", records)
	}
}

func TestStoreGetMissing(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Get("missing"); err == nil {
		t.Fatal("expected missing transaction error")
	}
}

func TestStoreRejectsEmptyHash(t *testing.T) {
	store := openTestStore(t)
	if err := store.Save(model.TransactionRecord{}); err == nil {
		t.Fatal("expected error for empty hash")
	}
}
