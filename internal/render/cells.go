package render

// Cell is a horizontal world coordinate; the vertical level is the session's anchor Y.
type Cell struct {
	X, Z int
}

// CellSet records the cells written for one pattern, in placement order, each once.
type CellSet struct {
	order []Cell
	seen  map[Cell]struct{}
}

func NewCellSet(capacity int) *CellSet {
	if capacity < 0 {
		capacity = 0
	}
	return &CellSet{
		order: make([]Cell, 0, capacity),
		seen:  make(map[Cell]struct{}, capacity),
	}
}

// Add records c and reports whether it was new.
func (s *CellSet) Add(c Cell) bool {
	if _, ok := s.seen[c]; ok {
		return false
	}
	s.seen[c] = struct{}{}
	s.order = append(s.order, c)
	return true
}

func (s *CellSet) Contains(c Cell) bool {
	if s == nil {
		return false
	}
	_, ok := s.seen[c]
	return ok
}

func (s *CellSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Cells returns the cells in placement order. Callers must not modify the slice.
func (s *CellSet) Cells() []Cell {
	if s == nil {
		return nil
	}
	return s.order
}
