// Package grid converts between world meters and map-image pixels and
// formats positions as in-game grid references.
package grid

import (
	"errors"
	"fmt"
	"math"
)

// World and image dimensions. Every map region shares them.
const (
	MapWidthM  = 2184.0
	MapHeightM = 1890.0

	MapWidthPx  = 1024.0
	MapHeightPx = 888.0

	Columns = 17 // A through Q
	Rows    = 15

	CellWidthM  = MapWidthM / Columns
	CellHeightM = MapHeightM / Rows

	MetersPerPixelX = MapWidthM / MapWidthPx
	MetersPerPixelY = MapHeightM / MapHeightPx
)

// ErrInvalidPosition is returned for coordinates that are not finite or lie
// outside the map.
var ErrInvalidPosition = errors.New("invalid position")

// WorldPos is a position on the map in meters. The origin is the top-left
// corner and Y grows downward.
type WorldPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PixelPos is a position on the 1024x888 map image.
type PixelPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p PixelPos) ToWorld() WorldPos {
	return WorldPos{X: p.X * MetersPerPixelX, Y: p.Y * MetersPerPixelY}
}

func (p WorldPos) ToPixel() PixelPos {
	return PixelPos{X: p.X / MetersPerPixelX, Y: p.Y / MetersPerPixelY}
}

// ValidateWorld reports ErrInvalidPosition unless p is finite and inside
// [0, width) x [0, height).
func ValidateWorld(p WorldPos) error {
	return validate(p.X, p.Y, MapWidthM, MapHeightM)
}

// ValidatePixel is ValidateWorld for image pixels.
func ValidatePixel(p PixelPos) error {
	return validate(p.X, p.Y, MapWidthPx, MapHeightPx)
}

func validate(x, y, w, h float64) error {
	if !finite(x) || !finite(y) {
		return fmt.Errorf("%w: non-finite coordinate (%v, %v)", ErrInvalidPosition, x, y)
	}
	if x < 0 || x >= w || y < 0 || y >= h {
		return fmt.Errorf("%w: (%.2f, %.2f) outside %gx%g", ErrInvalidPosition, x, y, w, h)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// MetersToPixels converts a distance using the average of both axis scales.
// Overlay radii use it, the axes differ by under one percent.
func MetersToPixels(meters float64) float64 {
	avg := (MapWidthPx/MapWidthM + MapHeightPx/MapHeightM) / 2
	return meters * avg
}

// ColumnLetter returns the letter of a 0-based column, A through Q.
func ColumnLetter(col int) string {
	col = clampInt(col, 0, Columns-1)
	return string(rune('A' + col))
}

// ColumnLinePx is the image X of the left edge of a 0-based column.
func ColumnLinePx(col int) float64 {
	return float64(col) * (MapWidthPx / Columns)
}

// RowLinePx is the image Y of the top edge of a 0-based row.
func RowLinePx(row int) float64 {
	return float64(row) * (MapHeightPx / Rows)
}

// keypad digits indexed by [row][column] of the 3x3 sub-grid, laid out like
// a numeric keypad with 7 at the top left.
var keypad = [3][3]int{
	{7, 8, 9},
	{4, 5, 6},
	{1, 2, 3},
}

// Label formats p as a grid reference such as "G9k3". Positions outside the
// map are clamped to the nearest cell.
func Label(p WorldPos) string {
	x := clamp(p.X, 0, MapWidthM-0.01)
	y := clamp(p.Y, 0, MapHeightM-0.01)
	if !finite(x) {
		x = 0
	}
	if !finite(y) {
		y = 0
	}

	col := clampInt(int(x/CellWidthM), 0, Columns-1)
	row := clampInt(int(y/CellHeightM), 0, Rows-1)

	subX := (x - float64(col)*CellWidthM) / CellWidthM
	subY := (y - float64(row)*CellHeightM) / CellHeightM
	kx := clampInt(int(subX*3), 0, 2)
	ky := clampInt(int(subY*3), 0, 2)

	return fmt.Sprintf("%s%dk%d", ColumnLetter(col), row+1, keypad[ky][kx])
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
