package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowCursorNeverReturnsHeaderRow(t *testing.T) {
	tab := newFakeTabular()
	cursor := NewRowCursor(tab)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		row := cursor.Next(ctx, "Sheet5", "B")
		assert.Greater(t, row, headerRow, "call %d returned a reserved row", i)
	}
}

func TestRowCursorMonotonic(t *testing.T) {
	tab := newFakeTabular()
	cursor := NewRowCursor(tab)
	ctx := context.Background()

	prev := 0
	for i := 0; i < 10; i++ {
		row := cursor.Next(ctx, "Sheet5", "B")
		require.Greater(t, row, prev, "rows must only increase within one sheet")
		prev = row
	}
}

func TestRowCursorSkipsOccupiedRow(t *testing.T) {
	tab := newFakeTabular()
	// Row 2 already holds a value in the probe column.
	tab.seedRange("Sheet5!B2", [][]string{{"taken"}})

	cursor := NewRowCursor(tab)
	ctx := context.Background()

	first := cursor.Next(ctx, "Sheet5", "B")
	assert.Equal(t, 3, first, "occupied probe cell must advance the cursor")

	second := cursor.Next(ctx, "Sheet5", "B")
	assert.Greater(t, second, first)
}

func TestRowCursorSecondCallStrictlyGreaterWhenFirstPrepopulated(t *testing.T) {
	tab := newFakeTabular()
	tab.seedRange("Sheet5!B2", [][]string{{"concurrent write"}})
	cursor := NewRowCursor(tab)
	ctx := context.Background()

	first := cursor.Next(ctx, "Sheet5", "B")
	second := cursor.Next(ctx, "Sheet5", "B")
	assert.Greater(t, second, first)
}

func TestRowCursorFailOpenOnProbeError(t *testing.T) {
	tab := newFakeTabular()
	tab.readErr = errors.New("network down")
	cursor := NewRowCursor(tab)

	row := cursor.Next(context.Background(), "Sheet5", "B")
	assert.Equal(t, 2, row, "probe failure must still return the unprobed row")
}

func TestRowCursorReset(t *testing.T) {
	tab := newFakeTabular()
	cursor := NewRowCursor(tab)
	ctx := context.Background()

	cursor.Next(ctx, "Sheet5", "B")
	cursor.Next(ctx, "Sheet5", "B")
	cursor.Reset("Sheet5")

	assert.Equal(t, 2, cursor.Next(ctx, "Sheet5", "B"), "reset must restart numbering for the sheet")
}

func TestRowCursorColumnsAreIndependent(t *testing.T) {
	tab := newFakeTabular()
	cursor := NewRowCursor(tab)
	ctx := context.Background()

	cursor.Next(ctx, "Sheet5", "B")
	cursor.Next(ctx, "Sheet5", "B")

	assert.Equal(t, 2, cursor.Next(ctx, "Sheet5", "E"),
		"a second column stream starts at the first data row")
}

func TestRowCursorSheetsAreIndependent(t *testing.T) {
	tab := newFakeTabular()
	cursor := NewRowCursor(tab)
	ctx := context.Background()

	a1 := cursor.Next(ctx, "A", "B")
	b1 := cursor.Next(ctx, "B", "B")
	assert.Equal(t, a1, b1, "fresh sheets start at the same row")
}
