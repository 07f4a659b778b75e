package grid

import "cardmass/domain"

// Clip resizes b to rows x cols. Tiles and hints falling outside the new
// bounds are dropped. Every area is kept, even one left without tiles, so its
// label stays declared for placements.
func Clip(b domain.Board, rows, cols int) domain.Board {
	out := b
	out.Rows = rows
	out.Cols = cols
	out.Areas = make([]domain.Area, 0, len(b.Areas))
	for _, a := range b.Areas {
		tiles := make([]domain.Tile, 0, len(a.Tiles))
		for _, t := range a.Tiles {
			if inBounds(t, rows, cols) {
				tiles = append(tiles, t)
			}
		}
		var hints []domain.TileHint
		for _, h := range a.Hints {
			if inBounds(h.Tile, rows, cols) {
				hints = append(hints, h)
			}
		}
		a.Tiles = tiles
		a.Hints = hints
		out.Areas = append(out.Areas, a)
	}
	return out
}

func inBounds(t domain.Tile, rows, cols int) bool {
	return t.Row >= 0 && t.Row < rows && t.Col >= 0 && t.Col < cols
}
