package domain

import "time"

// Tile is a single grid cell.
type Tile struct {
	Row int `json:"row" yaml:"row"`
	Col int `json:"col" yaml:"col"`
}

// TileHint carries a layout hint for one tile. The engine stores hints but
// does not interpret them.
type TileHint struct {
	Tile     Tile `json:"tile" yaml:"tile"`
	RowFirst bool `json:"rowFirst,omitempty" yaml:"rowFirst,omitempty"`
}

// Area is a labeled, colored set of tiles on a board.
type Area struct {
	Label     AreaLabel  `json:"label" yaml:"label"`
	Color     string     `json:"color" yaml:"color"`
	Tiles     []Tile     `json:"tiles" yaml:"tiles"`
	TextBlack *bool      `json:"textBlack,omitempty" yaml:"textBlack,omitempty"`
	Hints     []TileHint `json:"hints,omitempty" yaml:"hints,omitempty"`
}

// Board is a user-defined classification grid.
type Board struct {
	ID        BoardID   `json:"id" yaml:"id"`
	OrgID     string    `json:"orgId,omitempty" yaml:"-"`
	Slug      string    `json:"slug" yaml:"slug"`
	Rows      int       `json:"rows" yaml:"rows"`
	Cols      int       `json:"cols" yaml:"cols"`
	Areas     []Area    `json:"areas" yaml:"areas"`
	Version   int       `json:"version" yaml:"version"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"-"`
}

// MaxGridSize bounds rows and cols.
const MaxGridSize = 64

// Validate checks the board dimensions and area labels.
func (b Board) Validate() error {
	if b.Slug == "" {
		return Validationf("board slug is required")
	}
	if b.Rows <= 0 || b.Cols <= 0 || b.Rows > MaxGridSize || b.Cols > MaxGridSize {
		return Validationf("board grid %dx%d out of range", b.Rows, b.Cols)
	}
	for _, a := range b.Areas {
		if a.Label == "" {
			return Validationf("area label is required")
		}
	}
	return nil
}

// HasArea reports whether the board declares a label matching l.
func (b Board) HasArea(l AreaLabel) bool {
	for _, a := range b.Areas {
		if a.Label.Same(l) {
			return true
		}
	}
	return false
}
