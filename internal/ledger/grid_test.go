package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vozruta/internal/core"
)

func TestMonthGrid(t *testing.T) {
	// March 2024 starts on a Friday.
	cells, err := MonthGrid("2024-03", map[string]int{"2024-03-01": 2, "2024-04-01": 1})
	require.NoError(t, err)
	require.Len(t, cells, GridCells)

	assert.Equal(t, DayCell{Date: "2024-02-26", Day: 26}, cells[0])
	assert.Equal(t, DayCell{Date: "2024-03-01", Day: 1, CurrentMonth: true, Count: 2}, cells[4])
	assert.Equal(t, DayCell{Date: "2024-03-31", Day: 31, CurrentMonth: true}, cells[34])
	assert.Equal(t, DayCell{Date: "2024-04-01", Day: 1, Count: 1}, cells[35])
	assert.Equal(t, "2024-04-07", cells[41].Date)

	inMonth := 0
	for _, c := range cells {
		if c.CurrentMonth {
			inMonth++
		}
	}
	assert.Equal(t, 31, inMonth)
}

func TestMonthGridStartsOnMonday(t *testing.T) {
	// April 2024 starts on a Monday.
	cells, err := MonthGrid("2024-04", nil)
	require.NoError(t, err)
	assert.Equal(t, "2024-04-01", cells[0].Date)
	assert.True(t, cells[0].CurrentMonth)
}

func TestMonthGridInvalidMonth(t *testing.T) {
	_, err := MonthGrid("2024-3", nil)
	assert.ErrorIs(t, err, core.ErrInvalidDate)
}

func TestSignal(t *testing.T) {
	s := NewSignal(1)
	var seen []int
	unsubscribe := s.Subscribe(func(v int) { seen = append(seen, v) })

	s.Set(2)
	s.Set(3)
	assert.Equal(t, 3, s.Get())
	unsubscribe()
	s.Set(4)

	assert.Equal(t, []int{2, 3}, seen)
	assert.Equal(t, 4, s.Get())
}
