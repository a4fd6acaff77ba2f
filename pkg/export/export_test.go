package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterWithBOM(t *testing.T) {
	exporter := NewCSVExporter(WithBOM())
	out, err := exporter.Render(Dataset{
		Headers: []string{"staff_id", "name_chinese"},
		Rows:    []map[string]string{{"staff_id": "S001", "name_chinese": "陳大文"}},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, utf8BOM))
	assert.Equal(t, "staff_id,name_chinese\nS001,陳大文\n", string(StripBOM(out)))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	rows := make([]map[string]string, 0, 60)
	for i := 0; i < 60; i++ {
		rows = append(rows, map[string]string{"staff_id": "S", "staff_name": "Chan Tai Man"})
	}
	out, err := NewPDFExporter().Render(Dataset{Headers: []string{"staff_id", "staff_name"}, Rows: rows}, "Staff Roster", 1, 3)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestColumnWidths(t *testing.T) {
	assert.Equal(t, []float64{pageWidthLandscape / 2, pageWidthLandscape / 2}, columnWidths(2, nil))
	widths := columnWidths(2, []float64{1, 3})
	assert.InDelta(t, pageWidthLandscape/4, widths[0], 0.001)
	assert.Equal(t, []float64{pageWidthLandscape / 2, pageWidthLandscape / 2}, columnWidths(2, []float64{1, 0}))
}
