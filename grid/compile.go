// Package grid compiles board tile paintings into rectangular areas.
package grid

import "cardmass/domain"

// Box is the compiled bounding rectangle of one label. Label is the
// lower-cased key; Name keeps the casing of the first area seen.
type Box struct {
	Label     string `json:"label"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	TextBlack bool   `json:"textBlack"`
	MinRow    int    `json:"minRow"`
	MinCol    int    `json:"minCol"`
	MaxRow    int    `json:"maxRow"`
	MaxCol    int    `json:"maxCol"`
}

// Contains reports whether the cell lies inside the box.
func (b Box) Contains(row, col int) bool {
	return row >= b.MinRow && row <= b.MaxRow && col >= b.MinCol && col <= b.MaxCol
}

// Compile turns the tiles of areas into one bounding box per distinct label
// (case-insensitive), in row-major order of first occurrence. When a tile is
// declared by several areas the last declaration wins. A label whose tiles
// are not a filled rectangle still gets its bounding box, which may then
// cover cells owned by other labels.
func Compile(rows, cols int, areas []domain.Area) []Box {
	if rows <= 0 || cols <= 0 {
		return nil
	}
	owner := make([]int, rows*cols)
	for i := range owner {
		owner[i] = -1
	}
	for ai, a := range areas {
		for _, t := range a.Tiles {
			if t.Row < 0 || t.Row >= rows || t.Col < 0 || t.Col >= cols {
				continue
			}
			owner[t.Row*cols+t.Col] = ai
		}
	}

	boxes := []Box{}
	index := map[string]int{}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			ai := owner[r*cols+c]
			if ai < 0 {
				continue
			}
			a := areas[ai]
			key := a.Label.Key()
			bi, ok := index[key]
			if !ok {
				index[key] = len(boxes)
				boxes = append(boxes, Box{
					Label:     key,
					Name:      string(a.Label),
					Color:     a.Color,
					TextBlack: a.TextBlack != nil && *a.TextBlack,
					MinRow:    r,
					MinCol:    c,
					MaxRow:    r,
					MaxCol:    c,
				})
				continue
			}
			b := &boxes[bi]
			b.MinRow = min(b.MinRow, r)
			b.MinCol = min(b.MinCol, c)
			b.MaxRow = max(b.MaxRow, r)
			b.MaxCol = max(b.MaxCol, c)
		}
	}
	return boxes
}

// CompileBoard compiles b with its own dimensions.
func CompileBoard(b domain.Board) []Box {
	return Compile(b.Rows, b.Cols, b.Areas)
}

// HitTest returns the first box containing the cell.
func HitTest(boxes []Box, row, col int) (Box, bool) {
	for _, b := range boxes {
		if b.Contains(row, col) {
			return b, true
		}
	}
	return Box{}, false
}
