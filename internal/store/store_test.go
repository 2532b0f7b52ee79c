package store

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func tempStorePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "tokens.json")
}

func TestLoadMissingFile(t *testing.T) {
	s := Load(tempStorePath(t))
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d records", s.Len())
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := tempStorePath(t)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write corrupt file: %v", err)
	}

	s := Load(path)
	if s.Len() != 0 {
		t.Errorf("expected empty store for corrupt file, got %d records", s.Len())
	}

	// A corrupt file must not prevent new writes.
	if err := s.RecordBuy("0xAAA", "0xbuy", time.Now()); err != nil {
		t.Errorf("unexpected error recording buy after corrupt load: %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	path := tempStorePath(t)
	boughtAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	soldAt := boughtAt.Add(10 * time.Minute)

	s := Load(path)
	if err := s.RecordBuy("0xAaAa", "0xbuy1", boughtAt); err != nil {
		t.Fatalf("RecordBuy: %v", err)
	}
	if err := s.RecordBuy("0xbbbb", "0xbuy2", boughtAt); err != nil {
		t.Fatalf("RecordBuy: %v", err)
	}
	if err := s.RecordSell("0xBBBB", "0xsell2", soldAt); err != nil {
		t.Fatalf("RecordSell: %v", err)
	}

	reloaded := Load(path)
	if !reflect.DeepEqual(s.Records(), reloaded.Records()) {
		t.Errorf("round trip mismatch:\nwrote %+v\nread  %+v", s.Records(), reloaded.Records())
	}

	rec, ok := reloaded.Get("0xaaaa")
	if !ok {
		t.Fatal("expected record for 0xaaaa after reload")
	}
	if rec.BuyTxHash != "0xbuy1" || !rec.BoughtAt.Equal(boughtAt) {
		t.Errorf("buy fields not preserved: %+v", rec)
	}
}

func TestIdentityNormalization(t *testing.T) {
	s := Load(tempStorePath(t))
	if err := s.RecordBuy("0xAbCd", "0xbuy", time.Now()); err != nil {
		t.Fatalf("RecordBuy: %v", err)
	}

	for _, variant := range []string{"0xabcd", "0xABCD", "0xAbCd"} {
		if !s.HasBought(variant) {
			t.Errorf("HasBought(%q) = false, want true", variant)
		}
	}

	if err := s.RecordBuy("0xABCD", "0xother", time.Now()); err != ErrAlreadyBought {
		t.Errorf("duplicate buy error = %v, want ErrAlreadyBought", err)
	}
}

func TestRecordSellRequiresBuy(t *testing.T) {
	s := Load(tempStorePath(t))

	if err := s.RecordSell("0xaaa", "0xsell", time.Now()); err != ErrNotBought {
		t.Errorf("sell without buy error = %v, want ErrNotBought", err)
	}

	if err := s.RecordBuy("0xaaa", "0xbuy", time.Now()); err != nil {
		t.Fatalf("RecordBuy: %v", err)
	}
	if err := s.RecordSell("0xaaa", "0xsell", time.Now()); err != nil {
		t.Fatalf("RecordSell: %v", err)
	}
	if err := s.RecordSell("0xaaa", "0xsell2", time.Now()); err != ErrAlreadySold {
		t.Errorf("duplicate sell error = %v, want ErrAlreadySold", err)
	}
}

func TestPendingSells(t *testing.T) {
	path := tempStorePath(t)
	s := Load(path)

	// A: bought, not sold. B: bought and sold. C: no record at all.
	if err := s.RecordBuy("0xaaa", "0xbuyA", time.Now()); err != nil {
		t.Fatalf("RecordBuy: %v", err)
	}
	if err := s.RecordBuy("0xbbb", "0xbuyB", time.Now()); err != nil {
		t.Fatalf("RecordBuy: %v", err)
	}
	if err := s.RecordSell("0xbbb", "0xsellB", time.Now()); err != nil {
		t.Fatalf("RecordSell: %v", err)
	}

	pending := s.PendingSells()
	if len(pending) != 1 || pending[0] != "0xaaa" {
		t.Errorf("PendingSells() = %v, want [0xaaa]", pending)
	}
}

func TestPendingSellsSkipsMalformed(t *testing.T) {
	path := tempStorePath(t)
	malformed := `{
  "0xbad": {"tokenAddress": "0xbad", "sellTxHash": "0xsell"},
  "0xgood": {"tokenAddress": "0xgood", "buyTxHash": "0xbuy"}
}`
	if err := os.WriteFile(path, []byte(malformed), 0644); err != nil {
		t.Fatalf("failed to seed store file: %v", err)
	}

	s := Load(path)
	pending := s.PendingSells()
	if len(pending) != 1 || pending[0] != "0xgood" {
		t.Errorf("PendingSells() = %v, want [0xgood]", pending)
	}
}

func TestGuard(t *testing.T) {
	g := NewGuard()

	if !g.TryAcquire("0xAAA") {
		t.Fatal("first acquire should succeed")
	}
	if g.TryAcquire("0xaaa") {
		t.Error("second acquire with different casing should fail")
	}
	if !g.Held("0xAaA") {
		t.Error("token should be held")
	}

	g.Release("0xaAa")
	if g.Held("0xaaa") {
		t.Error("token should be released")
	}
	if !g.TryAcquire("0xaaa") {
		t.Error("acquire after release should succeed")
	}

	// Releasing a token that was never acquired must be harmless.
	g.Release("0xnever")
}
