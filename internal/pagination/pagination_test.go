package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow(t *testing.T) {
	tests := []struct {
		name                 string
		total, page, limit   int
		wantStart, wantEnd   int
	}{
		{"first full page", 7, 1, 5, 0, 5},
		{"second partial page", 7, 2, 5, 5, 7},
		{"page past the end", 7, 3, 5, 0, 0},
		{"exact boundary", 10, 2, 5, 5, 10},
		{"page below one clamps to first", 7, 0, 5, 0, 5},
		{"empty list", 0, 1, 5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := Window(tt.total, tt.page, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestWindow_InvalidLimit(t *testing.T) {
	_, _, err := Window(10, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)

	_, _, err = Window(10, 1, -3)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 2, TotalPages(7, 5))
	assert.Equal(t, 1, TotalPages(5, 5))
	assert.Equal(t, 3, TotalPages(11, 5))
	assert.Equal(t, 0, TotalPages(0, 5))
	assert.Equal(t, 0, TotalPages(10, 0))
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	page, err := Page(items, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{6, 7}, page)

	page, err = Page(items, 3, 5)
	require.NoError(t, err)
	assert.Empty(t, page)

	_, err = Page(items, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}
