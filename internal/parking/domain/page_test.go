package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/parklite/internal/parking/domain"
)

func TestPaginateMiddlePage(t *testing.T) {
	items := make([]int, 25)
	for i := range items {
		items[i] = i + 1
	}

	page := domain.Paginate(items, domain.NewPageRequest(2, 10, "asc"))
	require.Equal(t, []int{21, 22, 23, 24, 25}, page.Content)
	require.Equal(t, 2, page.Number)
	require.Equal(t, int64(25), page.TotalElements)
	require.Equal(t, 3, page.TotalPages)
}

func TestPaginatePastEndKeepsTotal(t *testing.T) {
	items := []int{1, 2, 3}

	page := domain.Paginate(items, domain.NewPageRequest(5, 10, "asc"))
	require.Empty(t, page.Content)
	require.NotNil(t, page.Content)
	require.Equal(t, 5, page.Number)
	require.Equal(t, int64(3), page.TotalElements)
	require.Equal(t, 1, page.TotalPages)
}

func TestNewPageRequestClampsInput(t *testing.T) {
	req := domain.NewPageRequest(-3, 0, "DESC")
	require.Equal(t, 0, req.Page)
	require.Equal(t, 10, req.Size)
	require.Equal(t, domain.SortDesc, req.Direction)
}
