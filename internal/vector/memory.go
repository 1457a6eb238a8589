package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hyperjump/lexrag/pkg/utils"
)

const fileMagic uint32 = 0x4c585631 // "LXV1"

// MemoryIndex is an in-memory vector index using brute-force inner product search.
type MemoryIndex struct {
	dimensions int
	entries    []Entry
	positions  map[string]int
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		positions:  make(map[string]int),
	}, nil
}

// Dimensions returns the vector width.
func (m *MemoryIndex) Dimensions() int { return m.dimensions }

// Add stores entries. An entry whose ID already exists replaces it.
func (m *MemoryIndex) Add(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		if len(e.Vector) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch for %s: got %d, expected %d", e.ID, len(e.Vector), m.dimensions)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		vec := make([]float32, m.dimensions)
		copy(vec, e.Vector)
		e.Vector = vec
		if pos, ok := m.positions[e.ID]; ok {
			m.entries[pos] = e
			continue
		}
		m.positions[e.ID] = len(m.entries)
		m.entries = append(m.entries, e)
	}
	return nil
}

// Search returns the top-k entries by inner product that pass filter.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int, filter Filter) ([]*Result, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.entries) == 0 {
		return nil, nil
	}
	scores := make([]*Result, 0, len(m.entries))
	for _, e := range m.entries {
		if !filter.match(e.DocumentID) {
			continue
		}
		scores = append(scores, &Result{
			ID:         e.ID,
			DocumentID: e.DocumentID,
			Score:      float64(utils.Dot(query, e.Vector)),
		})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k], nil
}

// Remove deletes entries by ID. Unknown IDs are ignored.
func (m *MemoryIndex) Remove(ctx context.Context, ids []string) error {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retain(func(e Entry) bool { return !drop[e.ID] })
	return nil
}

// RemoveDocument deletes every entry of docID and reports how many went.
func (m *MemoryIndex) RemoveDocument(ctx context.Context, docID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	before := len(m.entries)
	m.retain(func(e Entry) bool { return e.DocumentID != docID })
	return before - len(m.entries), nil
}

// retain keeps entries for which keep is true. Caller holds the write lock.
func (m *MemoryIndex) retain(keep func(Entry) bool) {
	kept := m.entries[:0]
	for _, e := range m.entries {
		if keep(e) {
			kept = append(kept, e)
		}
	}
	clear(m.entries[len(kept):])
	m.entries = kept
	m.positions = make(map[string]int, len(kept))
	for i, e := range kept {
		m.positions[e.ID] = i
	}
}

// Save writes the index to path through a temp file and rename. Format:
// magic, dimensions, count (uint32 each), then per entry a length-prefixed
// ID, a length-prefixed document ID and dimensions float32 values.
func (m *MemoryIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create index dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := m.write(w); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to flush index file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func (m *MemoryIndex) write(w io.Writer) error {
	header := []uint32{fileMagic, uint32(m.dimensions), uint32(len(m.entries))}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	buf := make([]byte, m.dimensions*4)
	for _, e := range m.entries {
		for _, s := range []string{e.ID, e.DocumentID} {
			if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
				return fmt.Errorf("failed to write entry: %w", err)
			}
			if _, err := io.WriteString(w, s); err != nil {
				return fmt.Errorf("failed to write entry: %w", err)
			}
		}
		for i, v := range e.Vector {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("failed to write vector: %w", err)
		}
	}
	return nil
}

// Load replaces the in-memory contents with the file at path. A missing file
// leaves the index unchanged.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open index file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var header [3]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if header[0] != fileMagic {
		return fmt.Errorf("%s is not a vector index file", path)
	}
	if int(header[1]) != m.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", header[1], m.dimensions)
	}

	n := int(header[2])
	entries := make([]Entry, 0, n)
	buf := make([]byte, m.dimensions*4)
	readString := func() (string, error) {
		var l uint32
		if err := binary.Read(r, binary.LittleEndian, &l); err != nil {
			return "", err
		}
		b := make([]byte, l)
		_, err := io.ReadFull(r, b)
		return string(b), err
	}
	for i := 0; i < n; i++ {
		id, err := readString()
		if err != nil {
			return fmt.Errorf("failed to read entry %d: %w", i, err)
		}
		docID, err := readString()
		if err != nil {
			return fmt.Errorf("failed to read entry %d: %w", i, err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("failed to read vector %d: %w", i, err)
		}
		vec := make([]float32, m.dimensions)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4:]))
		}
		entries = append(entries, Entry{ID: id, DocumentID: docID, Vector: vec})
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = entries
	m.positions = make(map[string]int, len(entries))
	for i, e := range entries {
		m.positions[e.ID] = i
	}
	return nil
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
