// Package index implements an exact in-memory vector index.
package index

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"paperrag/internal/domain"
)

// FlatL2 is a brute-force index ranking by squared Euclidean distance.
// Vectors are stored contiguously; position i is the i-th added vector.
// FlatL2 is not safe for concurrent mutation.
type FlatL2 struct {
	dim  int
	data []float32
}

// Neighbor is a search hit.
type Neighbor struct {
	Position int
	Distance float32 // squared L2
}

func NewFlatL2(dim int) *FlatL2 {
	return &FlatL2{dim: dim}
}

func (f *FlatL2) Dim() int { return f.dim }

// Len returns the number of stored vectors.
func (f *FlatL2) Len() int {
	if f.dim == 0 {
		return 0
	}
	return len(f.data) / f.dim
}

// Add appends vectors. Either all vectors are added or none.
func (f *FlatL2) Add(vectors ...[]float32) error {
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, index has %d",
				domain.ErrDimensionMismatch, i, len(v), f.dim)
		}
	}
	for _, v := range vectors {
		f.data = append(f.data, v...)
	}
	return nil
}

// vector returns a copy of the vector at position i.
func (f *FlatL2) vector(i int) []float32 {
	out := make([]float32, f.dim)
	copy(out, f.data[i*f.dim:(i+1)*f.dim])
	return out
}

// Clone returns an independent copy of the index.
func (f *FlatL2) Clone() *FlatL2 {
	data := make([]float32, len(f.data))
	copy(data, f.data)
	return &FlatL2{dim: f.dim, data: data}
}

// Search returns up to k nearest vectors, nearest first. Equal distances
// are ordered by position.
func (f *FlatL2) Search(query []float32, k int) ([]Neighbor, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(query), f.dim)
	}
	n := f.Len()
	if n == 0 || k <= 0 {
		return nil, nil
	}

	hits := make([]Neighbor, n)
	for i := 0; i < n; i++ {
		hits[i] = Neighbor{Position: i, Distance: squaredL2(query, f.data[i*f.dim:(i+1)*f.dim])}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Distance < hits[b].Distance
	})

	if k > n {
		k = n
	}
	return hits[:k], nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Binary layout, little-endian:
//
//	magic "PRVX" | version uint32 | dim uint32 | count uint64 | count*dim float32
var magic = [4]byte{'P', 'R', 'V', 'X'}

const (
	formatVersion = 1
	headerSize    = 4 + 4 + 4 + 8
)

var ErrBadFormat = errors.New("index: bad artifact format")

// MarshalBinary serializes the exact vector contents.
func (f *FlatL2) MarshalBinary() ([]byte, error) {
	out := make([]byte, headerSize+4*len(f.data))
	copy(out[0:4], magic[:])
	binary.LittleEndian.PutUint32(out[4:8], formatVersion)
	binary.LittleEndian.PutUint32(out[8:12], uint32(f.dim))
	binary.LittleEndian.PutUint64(out[12:20], uint64(f.Len()))

	off := headerSize
	for _, v := range f.data {
		binary.LittleEndian.PutUint32(out[off:], math.Float32bits(v))
		off += 4
	}
	return out, nil
}

// UnmarshalBinary restores an index written by MarshalBinary.
func (f *FlatL2) UnmarshalBinary(data []byte) error {
	if len(data) < headerSize {
		return fmt.Errorf("%w: %d byte header", ErrBadFormat, len(data))
	}
	if [4]byte(data[0:4]) != magic {
		return fmt.Errorf("%w: bad magic", ErrBadFormat)
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != formatVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrBadFormat, v)
	}
	dim := int(binary.LittleEndian.Uint32(data[8:12]))
	count := binary.LittleEndian.Uint64(data[12:20])

	payload := data[headerSize:]
	if dim <= 0 || uint64(len(payload)) != count*uint64(dim)*4 {
		return fmt.Errorf("%w: payload of %d bytes does not hold %d vectors of dim %d",
			ErrBadFormat, len(payload), count, dim)
	}

	vals := make([]float32, len(payload)/4)
	for i := range vals {
		vals[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}

	f.dim = dim
	f.data = vals
	return nil
}

// WriteFile writes the index to path, replacing it atomically.
func (f *FlatL2) WriteFile(path string) error {
	data, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, 0644)
}

// ReadFile loads an index previously written with WriteFile.
func ReadFile(path string) (*FlatL2, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f := &FlatL2{}
	if err := f.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}
