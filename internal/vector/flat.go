package vector

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hyperjump/resumatch/pkg/utils"
)

const (
	flatExt    = ".vec"
	flatTmpPfx = ".tmp-"
)

var flatMagic = [4]byte{'R', 'M', 'V', '1'}

// FlatIndex is the brute-force strategy: one file per vector, every query reads and
// scores all of them. It keeps no in-memory state besides the dimension and next sequence,
// so its cost is linear in the number of stored documents.
type FlatIndex struct {
	dir        string
	dimensions int
	nextSeq    uint64
	mu         sync.RWMutex
}

type flatRecord struct {
	id  string
	seq uint64
	vec []float32
}

// NewFlatIndex opens the directory-backed index. The directory is created on first write.
func NewFlatIndex(dir string, dimensions int) (*FlatIndex, error) {
	if dir == "" {
		return nil, fmt.Errorf("flat index: directory is required")
	}
	if dimensions < 0 {
		return nil, fmt.Errorf("dimensions must not be negative")
	}
	f := &FlatIndex{dir: dir, dimensions: dimensions}
	records, err := f.readAll()
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if f.dimensions == 0 {
			f.dimensions = len(r.vec)
		} else if len(r.vec) != f.dimensions {
			return nil, fmt.Errorf("open flat index: %q: %w", r.id,
				&DimensionMismatchError{Got: len(r.vec), Want: f.dimensions})
		}
		if r.seq >= f.nextSeq {
			f.nextSeq = r.seq + 1
		}
	}
	return f, nil
}

// Type returns the index type identifier.
func (f *FlatIndex) Type() string {
	return string(IndexTypeBruteForce)
}

func (f *FlatIndex) pathFor(id string) string {
	sum := sha256.Sum256([]byte(id))
	return filepath.Join(f.dir, hex.EncodeToString(sum[:])+flatExt)
}

// Upsert writes vec to its own file via temp file and rename.
func (f *FlatIndex) Upsert(ctx context.Context, id string, vec []float32) error {
	if id == "" {
		return fmt.Errorf("empty id")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(vec) == 0 {
		return &DimensionMismatchError{Got: 0, Want: f.dimensions}
	}
	if err := checkDimension(len(vec), f.dimensions); err != nil {
		return err
	}
	path := f.pathFor(id)
	seq := f.nextSeq
	replaced := false
	if existing, err := readFlatFile(path); err == nil {
		seq = existing.seq
		replaced = true
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("flat upsert %q: %w", id, err)
	}
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	if err := writeFileAtomic(f.dir, path, encodeFlat(flatRecord{id: id, seq: seq, vec: vec})); err != nil {
		return fmt.Errorf("flat upsert %q: %w", id, err)
	}
	if f.dimensions == 0 {
		f.dimensions = len(vec)
	}
	if !replaced {
		f.nextSeq++
	}
	return nil
}

// Query scores every stored vector and returns the k nearest.
func (f *FlatIndex) Query(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if k <= 0 {
		return []Neighbor{}, nil
	}
	records, err := f.readAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []Neighbor{}, nil
	}
	if err := checkDimension(len(query), f.dimensions); err != nil {
		return nil, err
	}
	qNorm := utils.L2Norm(query)
	cands := make([]candidate, len(records))
	for i, r := range records {
		cands[i] = candidate{
			id:   r.id,
			dist: 1 - cosine(query, r.vec, qNorm, utils.L2Norm(r.vec)),
			seq:  r.seq,
		}
	}
	return topK(cands, k), nil
}

// Count returns the number of vector files.
func (f *FlatIndex) Count(ctx context.Context) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names, err := f.listFiles()
	if err != nil {
		return 0, err
	}
	return len(names), nil
}

// ListIDs returns the stored IDs in insertion order.
func (f *FlatIndex) ListIDs(ctx context.Context) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	records, err := f.readAll()
	if err != nil {
		return nil, err
	}
	cands := make([]candidate, len(records))
	for i, r := range records {
		cands[i] = candidate{id: r.id, seq: r.seq}
	}
	ns := topK(cands, len(cands))
	ids := make([]string, len(ns))
	for i, n := range ns {
		ids[i] = n.ID
	}
	return ids, nil
}

// Close is a no-op; every write is already durable.
func (f *FlatIndex) Close() error {
	return nil
}

func (f *FlatIndex) listFiles() ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read index dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, flatTmpPfx) || filepath.Ext(name) != flatExt {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

func (f *FlatIndex) readAll() ([]flatRecord, error) {
	names, err := f.listFiles()
	if err != nil {
		return nil, err
	}
	records := make([]flatRecord, 0, len(names))
	for _, name := range names {
		r, err := readFlatFile(filepath.Join(f.dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		records = append(records, r)
	}
	return records, nil
}

// File layout: magic, dim uint32, seq uint64, idLen uint32, id, dim little-endian float32s.
func encodeFlat(r flatRecord) []byte {
	var buf bytes.Buffer
	buf.Write(flatMagic[:])
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(r.vec)))
	_ = binary.Write(&buf, binary.LittleEndian, r.seq)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(r.id)))
	buf.WriteString(r.id)
	buf.Write(utils.Float32sToBytes(r.vec))
	return buf.Bytes()
}

func decodeFlat(data []byte) (flatRecord, error) {
	rd := bytes.NewReader(data)
	var magic [4]byte
	if _, err := io.ReadFull(rd, magic[:]); err != nil || magic != flatMagic {
		return flatRecord{}, fmt.Errorf("bad vector file header")
	}
	var dim, idLen uint32
	var seq uint64
	if err := binary.Read(rd, binary.LittleEndian, &dim); err != nil {
		return flatRecord{}, err
	}
	if err := binary.Read(rd, binary.LittleEndian, &seq); err != nil {
		return flatRecord{}, err
	}
	if err := binary.Read(rd, binary.LittleEndian, &idLen); err != nil {
		return flatRecord{}, err
	}
	if int(idLen) > rd.Len() {
		return flatRecord{}, fmt.Errorf("truncated vector file")
	}
	id := make([]byte, idLen)
	if _, err := io.ReadFull(rd, id); err != nil {
		return flatRecord{}, err
	}
	rest := data[len(data)-rd.Len():]
	if len(rest) != int(dim)*4 {
		return flatRecord{}, fmt.Errorf("vector file: expected %d floats, have %d bytes", dim, len(rest))
	}
	vec, err := utils.BytesToFloat32s(rest)
	if err != nil {
		return flatRecord{}, err
	}
	return flatRecord{id: string(id), seq: seq, vec: vec}, nil
}

func readFlatFile(path string) (flatRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return flatRecord{}, err
	}
	return decodeFlat(data)
}

func writeFileAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, flatTmpPfx+"*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
