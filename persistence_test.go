package occmap

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/occgrid/occmap/grid"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	tr := NewTransform(0.1)
	g := grid.New[Occupancy]()
	g.SetValue(grid.Coord{I: 1, J: 2, K: 3}, Occupancy{LogOddsValue: 1.5, R: 0.2, Semantic: 7}, true)
	g.SetValue(grid.Coord{I: -4, J: 0, K: 9}, Occupancy{LogOddsValue: -0.5}, false)

	wantID := uuid.New()
	dir := t.TempDir()
	path, err := saveGrid(tr, g, dir, wantID, time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	loaded, loadedTr, loadedID, err := loadGrid[Occupancy](path)
	require.NoError(t, err)
	require.Equal(t, 0.1, loadedTr.Resolution())
	require.Equal(t, wantID, loadedID)

	wantActive := map[grid.Coord]Occupancy{
		{I: 1, J: 2, K: 3}: {LogOddsValue: 1.5, R: 0.2, Semantic: 7},
	}
	gotActive := 0
	for c, v := range loaded.IterActive() {
		gotActive++
		want, ok := wantActive[c]
		require.True(t, ok, "unexpected active voxel %+v in round trip", c)
		require.Equal(t, want.LogOddsValue, v.LogOddsValue)
		require.Equal(t, want.R, v.R)
		require.Equal(t, want.Semantic, v.Semantic)
	}
	require.Equal(t, len(wantActive), gotActive)

	_, active, found := loaded.Get(grid.Coord{I: -4, J: 0, K: 9})
	require.True(t, found)
	require.False(t, active, "the miss voxel must round-trip as present-and-inactive")
}

func TestLoadMissingFileIsIOError(t *testing.T) {
	_, _, _, err := loadGrid[Occupancy]("/nonexistent/path/map.cbor")
	require.Error(t, err)

	var oerr *Error
	require.ErrorAs(t, err, &oerr)
	require.Equal(t, IOError, oerr.Kind)
}
