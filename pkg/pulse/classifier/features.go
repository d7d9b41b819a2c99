package classifier

import "fmt"

// Features is a vectorized batch: one row per text.
type Features interface {
	Rows() int
	Cols() int
}

// Sparse is a compressed-sparse-row matrix, the vectorizer's native output.
// Row i spans Indices[Indptr[i]:Indptr[i+1]] with matching Data.
type Sparse struct {
	NumRows int
	NumCols int
	Indptr  []int
	Indices []int
	Data    []float64
}

func (s *Sparse) Rows() int { return s.NumRows }
func (s *Sparse) Cols() int { return s.NumCols }

// Row returns the column indices and values of row i.
func (s *Sparse) Row(i int) ([]int, []float64) {
	start, end := s.Indptr[i], s.Indptr[i+1]
	return s.Indices[start:end], s.Data[start:end]
}

// Dense expands the matrix.
func (s *Sparse) Dense() *Dense {
	d := &Dense{NumCols: s.NumCols, Data: make([][]float64, s.NumRows)}
	for i := 0; i < s.NumRows; i++ {
		row := make([]float64, s.NumCols)
		idx, vals := s.Row(i)
		for k, j := range idx {
			row[j] += vals[k]
		}
		d.Data[i] = row
	}
	return d
}

// Validate checks the CSR invariants.
func (s *Sparse) Validate() error {
	if len(s.Indptr) != s.NumRows+1 {
		return fmt.Errorf("sparse: indptr has %d entries for %d rows", len(s.Indptr), s.NumRows)
	}
	if len(s.Indices) != len(s.Data) {
		return fmt.Errorf("sparse: %d indices vs %d values", len(s.Indices), len(s.Data))
	}
	for i := 0; i < s.NumRows; i++ {
		if s.Indptr[i] > s.Indptr[i+1] {
			return fmt.Errorf("sparse: indptr not monotonic at row %d", i)
		}
	}
	if s.Indptr[s.NumRows] != len(s.Indices) {
		return fmt.Errorf("sparse: indptr ends at %d, have %d entries", s.Indptr[s.NumRows], len(s.Indices))
	}
	for _, j := range s.Indices {
		if j < 0 || j >= s.NumCols {
			return fmt.Errorf("sparse: column %d out of range [0,%d)", j, s.NumCols)
		}
	}
	return nil
}

// Dense is a row-major matrix.
type Dense struct {
	NumCols int
	Data    [][]float64
}

func (d *Dense) Rows() int { return len(d.Data) }
func (d *Dense) Cols() int { return d.NumCols }
