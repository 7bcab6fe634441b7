package export

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBadges(n int) []Badge {
	badges := make([]Badge, n)
	for i := range badges {
		badges[i] = Badge{
			FullName:    fmt.Sprintf("Trần Văn %d", i),
			SaintName:   "Phêrô",
			Role:        "Chụp ảnh",
			Team:        "Truyền thông",
			Diocese:     "Tổng giáo phận Tokyo",
			InvoiceCode: "DH-20260601-ABC234",
		}
	}
	return badges
}

func TestBadgeSheetRender(t *testing.T) {
	var visited []int
	out, err := NewBadgeSheet().Render(sampleBadges(BadgesPerPage+1), func(i int) error {
		visited = append(visited, i)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Len(t, visited, BadgesPerPage+1)
}

func TestBadgeSheetAbort(t *testing.T) {
	stop := errors.New("stop")
	_, err := NewBadgeSheet().Render(sampleBadges(4), func(i int) error {
		if i == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)

	_, err = NewBadgeSheet().Render(nil, nil)
	assert.Error(t, err)
}
