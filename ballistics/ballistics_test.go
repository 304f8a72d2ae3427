package ballistics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artillery-planner/grid"
)

var testWeapon = Weapon{MinRange: 100, MaxRange: 300, AccuracyRadius: [2]float64{10, 30}}

func TestDistance(t *testing.T) {
	assert.InDelta(t, 100, Distance(grid.WorldPos{}, grid.WorldPos{X: 100}), 1e-9)
	assert.InDelta(t, 5, Distance(grid.WorldPos{}, grid.WorldPos{X: 3, Y: 4}), 1e-9)
}

func TestBearingCardinal(t *testing.T) {
	origin := grid.WorldPos{X: 500, Y: 500}
	cases := []struct {
		name string
		to   grid.WorldPos
		want float64
	}{
		{"north", grid.WorldPos{X: 500, Y: 400}, 0},
		{"east", grid.WorldPos{X: 600, Y: 500}, 90},
		{"south", grid.WorldPos{X: 500, Y: 600}, 180},
		{"west", grid.WorldPos{X: 400, Y: 500}, 270},
		{"north east", grid.WorldPos{X: 600, Y: 400}, 45},
		{"north west", grid.WorldPos{X: 400, Y: 400}, 315},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Bearing(origin, tc.to)
			assert.InDelta(t, tc.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.Less(t, got, 360.0)
		})
	}
}

func TestBearingNeverReaches360(t *testing.T) {
	got := Bearing(grid.WorldPos{X: 0, Y: 100}, grid.WorldPos{X: -1e-300, Y: 0})
	assert.Less(t, got, 360.0)
}

func TestAccuracyRadius(t *testing.T) {
	cases := []struct {
		name     string
		distance float64
		want     float64
	}{
		{"at min range", 100, 10},
		{"at max range", 300, 30},
		{"midpoint", 200, 20},
		{"below min clamps", 10, 10},
		{"beyond max clamps", 900, 30},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, AccuracyRadius(testWeapon, tc.distance), 1e-9)
		})
	}
}

func TestAccuracyRadiusDegenerateRange(t *testing.T) {
	w := Weapon{MinRange: 150, MaxRange: 150, AccuracyRadius: [2]float64{7, 40}}
	assert.Equal(t, 7.0, AccuracyRadius(w, 150))
	assert.Equal(t, 7.0, AccuracyRadius(w, 1000))
}

func TestWindOffsetAbsentWithoutStrength(t *testing.T) {
	for _, dir := range []float64{0, 90, 180, 359.9} {
		_, ok := WindOffset(Wind{Direction: dir, Strength: 0})
		assert.False(t, ok, "direction %v", dir)
	}
}

func TestWindOffsetPushesDownwind(t *testing.T) {
	// Wind from the north pushes shells south.
	off, ok := WindOffset(Wind{Direction: 0, Strength: 2})
	require.True(t, ok)
	assert.InDelta(t, 0, off.X, 1e-9)
	assert.InDelta(t, 16, off.Y, 1e-9)

	// Wind from the west pushes shells east.
	off, ok = WindOffset(Wind{Direction: 270, Strength: 1})
	require.True(t, ok)
	assert.InDelta(t, 8, off.X, 1e-9)
	assert.InDelta(t, 0, off.Y, 1e-9)
}

func TestSolveStraightSouth(t *testing.T) {
	s := Solve(grid.WorldPos{X: 0, Y: 0}, grid.WorldPos{X: 0, Y: 200}, testWeapon, nil)

	assert.InDelta(t, 200, s.Distance, 1e-9)
	assert.InDelta(t, 180, s.Bearing, 1e-9)
	assert.True(t, s.InRange)
	assert.InDelta(t, 20, s.AccuracyRadius, 1e-9)
	assert.Nil(t, s.Wind)
}

func TestSolveWithWind(t *testing.T) {
	wind := Wind{Direction: 270, Strength: 3}
	s := Solve(grid.WorldPos{X: 0, Y: 0}, grid.WorldPos{X: 0, Y: 200}, testWeapon, &wind)

	require.NotNil(t, s.Wind)
	assert.InDelta(t, 24, s.Wind.Offset, 1e-9)
	assert.Greater(t, math.Abs(s.Wind.Bearing-180), 1.0)
	// Aim point moves upwind, to (-24, 200).
	assert.InDelta(t, math.Hypot(24, 200), s.Wind.Distance, 1e-9)
	assert.InDelta(t, 180+math.Atan2(24, 200)*180/math.Pi, s.Wind.Bearing, 1e-9)
	// The uncorrected fields are unchanged by wind.
	assert.InDelta(t, 180, s.Bearing, 1e-9)
}

func TestSolveCalmWindHasNoCorrection(t *testing.T) {
	wind := Wind{Direction: 45, Strength: 0}
	s := Solve(grid.WorldPos{}, grid.WorldPos{X: 50, Y: 50}, testWeapon, &wind)
	assert.Nil(t, s.Wind)
}

func TestSolveOutOfRange(t *testing.T) {
	s := Solve(grid.WorldPos{}, grid.WorldPos{X: 400}, testWeapon, nil)
	assert.False(t, s.InRange)
	assert.InDelta(t, 30, s.AccuracyRadius, 1e-9)

	s = Solve(grid.WorldPos{}, grid.WorldPos{X: 99.9}, testWeapon, nil)
	assert.False(t, s.InRange)
}
