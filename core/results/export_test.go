package results_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/gradebook/core/results"
)

func TestWriteBroadsheet(t *testing.T) {
	records := results.Recompute([]results.StudentResult{
		{AdmissionNumber: "ADM-1", StudentName: "Ada", OverallAverage: 90, OverallRemark: "Excellent", Subjects: map[string]results.SubjectOutcome{
			"Mathematics": {Total: 90, Grade: "A"},
			"English":     {Total: 90, Grade: "A"},
		}},
		{AdmissionNumber: "ADM-2", StudentName: "Bola", OverallAverage: 60, OverallRemark: "Good", Subjects: map[string]results.SubjectOutcome{
			"Mathematics": {Total: 60, Grade: "C"},
		}},
	})

	var buf bytes.Buffer
	require.NoError(t, results.WriteBroadsheet(&buf, records))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"Broadsheet"}, f.GetSheetList())
	rows, err := f.GetRows("Broadsheet")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{
		"Admission No", "Name",
		"English Total", "English Grade", "English Position",
		"Mathematics Total", "Mathematics Grade", "Mathematics Position",
		"Average", "Position", "Remark",
	}, rows[0])
	assert.Equal(t, []string{"ADM-1", "Ada", "90", "A", "1", "90", "A", "1", "90", "1", "Excellent"}, rows[1])
	assert.Equal(t, []string{"ADM-2", "Bola", "", "", "", "60", "C", "2", "60", "2", "Good"}, rows[2])
}
