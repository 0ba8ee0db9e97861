// Package ledger journals the wallet transactions submitted through the
// server in an embedded LevelDB store.
//
// Keys:
//
//	receipt/<digest>                          receipt JSON
//	ref/<kind>/<reference>/<digest>           index by what was paid or created
//	user/<user>/<submitted unix nanos>/<digest> index by submitter, time ordered
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	ErrNotFound  = errors.New("receipt not found")
	ErrDuplicate = errors.New("receipt already journaled")
)

// Receipt records one transaction digest returned by the wallet.
type Receipt struct {
	Digest      string    `json:"digest"`
	Kind        string    `json:"kind"`
	Reference   string    `json:"reference,omitempty"`
	Amount      float64   `json:"amount,omitempty"`
	UserID      string    `json:"user_id"`
	Address     string    `json:"address"`
	Network     string    `json:"network"`
	ExplorerURL string    `json:"explorer_url"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type Journal struct {
	db *leveldb.DB
}

// Open opens or creates the journal at path.
func Open(path string) (*Journal, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	return &Journal{db: db}, nil
}

// OpenMemory returns a journal that lives only in memory.
func OpenMemory() (*Journal, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("open memory ledger: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func receiptKey(digest string) []byte { return []byte("receipt/" + digest) }

func refPrefix(kind, reference string) []byte {
	return []byte("ref/" + kind + "/" + reference + "/")
}

func userPrefix(userID string) []byte { return []byte("user/" + userID + "/") }

// Append stores r and its index entries atomically. A digest can be
// journaled once.
func (j *Journal) Append(_ context.Context, r Receipt) error {
	if r.Digest == "" {
		return fmt.Errorf("receipt digest is required")
	}
	exists, err := j.db.Has(receiptKey(r.Digest), nil)
	if err != nil {
		return fmt.Errorf("check receipt: %w", err)
	}
	if exists {
		return ErrDuplicate
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}

	batch := new(leveldb.Batch)
	batch.Put(receiptKey(r.Digest), data)
	batch.Put(append(refPrefix(r.Kind, r.Reference), r.Digest...), []byte(r.Digest))
	userKey := fmt.Sprintf("%s%020d/%s", userPrefix(r.UserID), r.SubmittedAt.UnixNano(), r.Digest)
	batch.Put([]byte(userKey), []byte(r.Digest))
	if err := j.db.Write(batch, nil); err != nil {
		return fmt.Errorf("write receipt: %w", err)
	}
	return nil
}

func (j *Journal) Get(_ context.Context, digest string) (*Receipt, error) {
	data, err := j.db.Get(receiptKey(digest), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode receipt %s: %w", digest, err)
	}
	return &r, nil
}

// ByReference returns the receipts of kind for reference, oldest first.
func (j *Journal) ByReference(ctx context.Context, kind, reference string) ([]Receipt, error) {
	out, err := j.scan(ctx, refPrefix(kind, reference))
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(a, b int) bool { return out[a].SubmittedAt.Before(out[b].SubmittedAt) })
	return out, nil
}

// ByUser returns the receipts a user submitted, newest first.
func (j *Journal) ByUser(ctx context.Context, userID string) ([]Receipt, error) {
	out, err := j.scan(ctx, userPrefix(userID))
	if err != nil {
		return nil, err
	}
	for a, b := 0, len(out)-1; a < b; a, b = a+1, b-1 {
		out[a], out[b] = out[b], out[a]
	}
	return out, nil
}

// scan resolves every index entry under prefix to its receipt, in key order.
func (j *Journal) scan(ctx context.Context, prefix []byte) ([]Receipt, error) {
	iter := j.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	out := make([]Receipt, 0)
	for iter.Next() {
		r, err := j.Get(ctx, string(iter.Value()))
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("scan ledger: %w", err)
	}
	return out, nil
}
