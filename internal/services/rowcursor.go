package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// headerRow is reserved for column headers and is never a write target.
const headerRow = 1

// RowCursor is a per-sheet monotonic row allocator. It is owned by the
// pipeline instance rather than held in package state, so two pipelines never
// alias each other's counters. Before handing out a row it probes the tabular
// store at the probe column; an occupied cell advances the cursor once and
// the probe repeats once. This is best-effort collision avoidance, not a
// transactional guarantee: two callers racing between probe and write can
// still land on the same row.
type RowCursor struct {
	store TabularStore

	mu   sync.Mutex
	next map[string]int // keyed by sheet!column; column streams count independently
}

// NewRowCursor creates a cursor probing the given store.
func NewRowCursor(store TabularStore) *RowCursor {
	return &RowCursor{
		store: store,
		next:  make(map[string]int),
	}
}

// Reset restarts every column counter for a sheet. Called whenever a sheet is
// created, since row numbering restarts with the sheet.
func (c *RowCursor) Reset(sheet string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := sheet + "!"
	for key := range c.next {
		if strings.HasPrefix(key, prefix) {
			delete(c.next, key)
		}
	}
}

// Next returns the next writable row for the sheet, skipping the header row
// and probing past occupied cells in probeColumn. If the probe read itself
// fails, the un-probed row is returned and the condition logged: availability
// over strict row correctness.
func (c *RowCursor) Next(ctx context.Context, sheet, probeColumn string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := sheet + "!" + probeColumn
	row := c.next[key] + 1
	if row <= headerRow {
		row = headerRow + 1
	}

	occupied, err := c.occupied(ctx, sheet, probeColumn, row)
	if err != nil {
		slog.Warn("Row probe failed, using unprobed row.", "sheet", sheet, "row", row, "error", err)
		c.next[key] = row
		return row
	}
	if occupied {
		row++
		occupied, err = c.occupied(ctx, sheet, probeColumn, row)
		if err == nil && occupied {
			slog.Warn("Row still occupied after advancing, writing anyway.", "sheet", sheet, "row", row)
		}
	}

	c.next[key] = row
	return row
}

func (c *RowCursor) occupied(ctx context.Context, sheet, column string, row int) (bool, error) {
	rng := fmt.Sprintf("%s!%s%d", sheet, column, row)
	values, err := c.store.ReadRange(ctx, rng)
	if err != nil {
		return false, err
	}
	return len(values) > 0 && len(values[0]) > 0 && values[0][0] != "", nil
}
