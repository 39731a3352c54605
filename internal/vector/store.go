// Package vector provides a flat inner-product vector store with positional rows.
package vector

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
)

// Hit is a single nearest-neighbor result. Row is the zero-based row id in
// the store, which by construction equals the metadata record index.
type Hit struct {
	Row   int
	Score float64
}

// Store holds a row-major matrix of unit-normalized vectors and answers
// nearest-neighbor queries by brute-force inner product (equal to cosine
// similarity for normalized vectors). A store is append-only during index
// build and treated as immutable afterwards; concurrent searches against a
// built store need no coordination.
type Store struct {
	dimensions int
	vectors    [][]float32
}

// NewStore creates an empty store for vectors of the given dimension.
func NewStore(dimensions int) (*Store, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &Store{dimensions: dimensions}, nil
}

// Add appends vectors as new rows. Row ids are positional and never
// reassigned, so encounter order is preserved.
func (s *Store) Add(vectors [][]float32) error {
	for _, v := range vectors {
		if len(v) != s.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(v), s.dimensions)
		}
		row := make([]float32, s.dimensions)
		copy(row, v)
		s.vectors = append(s.vectors, row)
	}
	return nil
}

// Search returns up to k rows ordered by descending inner product with
// query; equal scores keep ascending row order.
func (s *Store) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != s.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), s.dimensions)
	}
	if k <= 0 || len(s.vectors) == 0 {
		return nil, nil
	}
	hits := make([]Hit, len(s.vectors))
	for i, vec := range s.vectors {
		var dot float64
		for j := 0; j < s.dimensions; j++ {
			dot += float64(query[j] * vec[j])
		}
		hits[i] = Hit{Row: i, Score: dot}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Rows returns the number of vectors in the store.
func (s *Store) Rows() int {
	return len(s.vectors)
}

// Dimensions returns the vector dimension.
func (s *Store) Dimensions() int {
	return s.dimensions
}

// Save writes the store to path. Format: dimensions (uint32), row count
// (uint32), then rows of dimensions*4 bytes, all little-endian.
func (s *Store) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create vector file: %w", err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, uint32(s.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(s.vectors))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, vec := range s.vectors {
		if _, err := f.Write(float32SliceToBytes(vec)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	return f.Sync()
}

// Load reads a store from path. A missing file is reported with an error
// wrapping os.ErrNotExist; a short file is a corruption error.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vector file: %w", err)
	}
	defer f.Close()
	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if dim == 0 {
		return nil, fmt.Errorf("vector file has zero dimensions")
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	s := &Store{dimensions: int(dim), vectors: make([][]float32, 0, n)}
	buf := make([]byte, int(dim)*4)
	for i := uint32(0); i < n; i++ {
		if _, err := io.ReadFull(f, buf); err != nil {
			return nil, fmt.Errorf("read row %d: %w", i, err)
		}
		s.vectors = append(s.vectors, bytesToFloat32Slice(buf))
	}
	return s, nil
}

func float32SliceToBytes(s []float32) []byte {
	out := make([]byte, len(s)*4)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*4:(i+1)*4], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : (i+1)*4]))
	}
	return out
}
