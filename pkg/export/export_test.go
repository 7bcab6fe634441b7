package export

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset(n int) Dataset {
	data := Dataset{Headers: []string{"Full Name", "Diocese", "Notes"}}
	for i := 0; i < n; i++ {
		data.Rows = append(data.Rows, map[string]string{
			"Full Name": fmt.Sprintf("Nguyễn Văn %d", i),
			"Diocese":   "Tổng giáo phận Tokyo",
			"Notes":     `đi chung xe, "ghế trước"`,
		})
	}
	return data
}

func TestCSVRoundTrip(t *testing.T) {
	data := sampleDataset(25)
	data.Rows[3]["Notes"] = "line one\nline two, with comma"

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, utf8BOM))

	parsed, err := ParseCSV(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, data.Headers, parsed.Headers)
	assert.Equal(t, data.Len(), parsed.Len())
	assert.Equal(t, data.Column("Full Name"), parsed.Column("Full Name"))
	assert.Equal(t, "line one\nline two, with comma", parsed.Rows[3]["Notes"])
}

func TestCSVRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)

	_, err = ParseCSV(strings.NewReader(""))
	require.Error(t, err)
}

func TestPDFPaginatesLongTables(t *testing.T) {
	exporter := NewPDFExporter()
	layout := PDFLayout{
		Summary:      []SummaryLine{{Label: "Total", Value: "120"}},
		ColumnWidths: map[string]float64{"Full Name": 60},
	}

	short, err := exporter.build(sampleDataset(3), "Danh sách", layout)
	require.NoError(t, err)
	assert.Equal(t, 1, short.PageCount())

	long, err := exporter.build(sampleDataset(120), "Danh sách", layout)
	require.NoError(t, err)
	assert.Greater(t, long.PageCount(), 1)

	out, err := exporter.RenderWithLayout(sampleDataset(5), "Danh sách", layout)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestColumnWidths(t *testing.T) {
	widths := columnWidths([]string{"a", "b", "c"}, map[string]float64{"a": 90}, 190)
	assert.Equal(t, []float64{90, 50, 50}, widths)

	narrow := columnWidths([]string{"a", "b"}, map[string]float64{"a": 185}, 190)
	assert.Equal(t, 10.0, narrow[1])
}
