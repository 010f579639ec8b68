package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/hyperjump/resumatch/pkg/utils"
)

// BoltFileName is the database file BoltIndex keeps inside its directory.
const BoltFileName = "vectors.bolt"

var (
	bucketVectors = []byte("vectors")
	bucketMeta    = []byte("meta")
	keyDimension  = []byte("dimension")
	keySeq        = []byte("seq")
)

// BoltIndex is the persistent incremental strategy. Each upsert is committed to a bbolt
// database before it becomes visible; on open the stored vectors are loaded, in insertion
// order, into a MemoryIndex that answers queries.
type BoltIndex struct {
	db  *bbolt.DB
	mem *MemoryIndex
	// mu serializes writers so the bolt commit and the in-memory update happen as one step.
	mu sync.Mutex
}

// NewBoltIndex opens or creates the index in dir. dimensions > 0 pins the dimension;
// opening an index stored with another dimension fails.
func NewBoltIndex(dir string, dimensions int) (*BoltIndex, error) {
	if dir == "" {
		return nil, fmt.Errorf("bolt index: directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	path := filepath.Join(dir, BoltFileName)
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt index: %w", err)
	}
	idx := &BoltIndex{db: db}
	if err := idx.load(dimensions); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

type storedVector struct {
	id  string
	seq uint64
	vec []float32
}

func (b *BoltIndex) load(dimensions int) error {
	var (
		stored    []storedVector
		storedDim int
	)
	err := b.db.Update(func(tx *bbolt.Tx) error {
		vb, err := tx.CreateBucketIfNotExists(bucketVectors)
		if err != nil {
			return err
		}
		mb, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		if v := mb.Get(keyDimension); len(v) == 4 {
			storedDim = int(binary.BigEndian.Uint32(v))
		}
		return vb.ForEach(func(k, v []byte) error {
			seq, vec, err := decodeBoltValue(v)
			if err != nil {
				return fmt.Errorf("decode %q: %w", k, err)
			}
			stored = append(stored, storedVector{id: string(k), seq: seq, vec: vec})
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("load bolt index: %w", err)
	}
	if dimensions > 0 && storedDim > 0 && storedDim != dimensions {
		return fmt.Errorf("load bolt index: %w", &DimensionMismatchError{Got: storedDim, Want: dimensions})
	}
	if dimensions == 0 {
		dimensions = storedDim
	}
	mem, err := NewMemoryIndex(dimensions)
	if err != nil {
		return err
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].seq < stored[j].seq })
	for _, s := range stored {
		if err := mem.Upsert(context.Background(), s.id, s.vec); err != nil {
			return fmt.Errorf("load bolt index: %q: %w", s.id, err)
		}
	}
	b.mem = mem
	return nil
}

func encodeBoltValue(seq uint64, vec []float32) []byte {
	out := make([]byte, 8, 8+len(vec)*4)
	binary.BigEndian.PutUint64(out, seq)
	return append(out, utils.Float32sToBytes(vec)...)
}

func decodeBoltValue(v []byte) (uint64, []float32, error) {
	if len(v) < 8 {
		return 0, nil, fmt.Errorf("value too short: %d bytes", len(v))
	}
	vec, err := utils.BytesToFloat32s(v[8:])
	if err != nil {
		return 0, nil, err
	}
	return binary.BigEndian.Uint64(v[:8]), vec, nil
}

// Type returns the index type identifier.
func (b *BoltIndex) Type() string {
	return string(IndexTypeIndexed)
}

// Upsert commits vec under id, then makes it queryable.
func (b *BoltIndex) Upsert(ctx context.Context, id string, vec []float32) error {
	if id == "" {
		return fmt.Errorf("empty id")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	dim := b.mem.Dimensions()
	if len(vec) == 0 {
		return &DimensionMismatchError{Got: 0, Want: dim}
	}
	if err := checkDimension(len(vec), dim); err != nil {
		return err
	}
	err := b.db.Update(func(tx *bbolt.Tx) error {
		vb := tx.Bucket(bucketVectors)
		mb := tx.Bucket(bucketMeta)
		var seq uint64
		if existing := vb.Get([]byte(id)); existing != nil {
			s, _, err := decodeBoltValue(existing)
			if err != nil {
				return err
			}
			seq = s
		} else {
			if v := mb.Get(keySeq); len(v) == 8 {
				seq = binary.BigEndian.Uint64(v)
			}
			next := make([]byte, 8)
			binary.BigEndian.PutUint64(next, seq+1)
			if err := mb.Put(keySeq, next); err != nil {
				return err
			}
		}
		if dim == 0 {
			d := make([]byte, 4)
			binary.BigEndian.PutUint32(d, uint32(len(vec)))
			if err := mb.Put(keyDimension, d); err != nil {
				return err
			}
		}
		return vb.Put([]byte(id), encodeBoltValue(seq, vec))
	})
	if err != nil {
		return fmt.Errorf("bolt upsert %q: %w", id, err)
	}
	return b.mem.Upsert(ctx, id, vec)
}

// Query delegates to the in-memory search structure.
func (b *BoltIndex) Query(ctx context.Context, vec []float32, k int) ([]Neighbor, error) {
	return b.mem.Query(ctx, vec, k)
}

// Count returns the number of stored vectors.
func (b *BoltIndex) Count(ctx context.Context) (int, error) {
	return b.mem.Count(ctx)
}

// ListIDs returns the stored IDs in insertion order.
func (b *BoltIndex) ListIDs(ctx context.Context) ([]string, error) {
	return b.mem.ListIDs(ctx)
}

// Close closes the database.
func (b *BoltIndex) Close() error {
	return b.db.Close()
}
