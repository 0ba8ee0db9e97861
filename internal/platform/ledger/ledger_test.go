package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := OpenMemory()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func receipt(digest, kind, ref, user string, at time.Time) Receipt {
	return Receipt{Digest: digest, Kind: kind, Reference: ref, UserID: user, Network: "testnet", SubmittedAt: at}
}

func TestJournal_AppendAndGet(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	at := time.Date(2024, 1, 25, 12, 0, 0, 0, time.UTC)

	if err := j.Append(ctx, receipt("D1", "pay_invoice", "INV-001", "1", at)); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, err := j.Get(ctx, "D1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Reference != "INV-001" || !got.SubmittedAt.Equal(at) {
		t.Errorf("unexpected receipt: %+v", got)
	}
	if _, err := j.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestJournal_RejectsDuplicatesAndEmptyDigest(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	r := receipt("D1", "pay_invoice", "INV-001", "1", time.Now())

	if err := j.Append(ctx, r); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := j.Append(ctx, r); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	r.Digest = ""
	if err := j.Append(ctx, r); err == nil {
		t.Error("expected error for empty digest")
	}
}

func TestJournal_Indexes(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 25, 12, 0, 0, 0, time.UTC)

	for _, r := range []Receipt{
		receipt("D1", "pay_invoice", "INV-001", "1", base),
		receipt("D2", "pay_invoice", "INV-001", "1", base.Add(time.Minute)),
		receipt("D3", "pay_invoice", "INV-0011", "1", base.Add(2*time.Minute)),
		receipt("D4", "create_invoice", "INV-001", "4", base.Add(3*time.Minute)),
	} {
		if err := j.Append(ctx, r); err != nil {
			t.Fatalf("append %s: %v", r.Digest, err)
		}
	}

	paid, err := j.ByReference(ctx, "pay_invoice", "INV-001")
	if err != nil {
		t.Fatalf("by reference: %v", err)
	}
	if len(paid) != 2 || paid[0].Digest != "D1" || paid[1].Digest != "D2" {
		t.Errorf("unexpected payments: %+v", paid)
	}

	mine, err := j.ByUser(ctx, "1")
	if err != nil {
		t.Fatalf("by user: %v", err)
	}
	if len(mine) != 3 || mine[0].Digest != "D3" || mine[2].Digest != "D1" {
		t.Errorf("unexpected user receipts: %+v", mine)
	}
	if none, _ := j.ByUser(ctx, "99"); len(none) != 0 {
		t.Errorf("expected no receipts, got %d", len(none))
	}
}

func TestJournal_PersistsOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger")
	ctx := context.Background()

	j, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := j.Append(ctx, receipt("D1", "create_medical_record", "MR-001", "4", time.Now())); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	j, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j.Close()
	if _, err := j.Get(ctx, "D1"); err != nil {
		t.Errorf("receipt lost across reopen: %v", err)
	}
}
