package results_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core/results"
	logsvc "github.com/trezcool/gradebook/services/logger"
	testutil "github.com/trezcool/gradebook/tests"
)

var (
	parseSubjects = []string{"Mathematics", "English"}
	parseTraits   = results.TraitSet{AffectiveTraits: []string{"Honesty"}, PsychomotorSkills: []string{"Drawing"}}
)

func parseSheet(t *testing.T, sheet *testutil.Sheet, opts results.ParseOptions) ([]results.ParsedStudentRow, int, []results.Note) {
	t.Helper()
	rows := sheet.Rows()
	require.True(t, len(rows) >= results.FirstDataRow)
	schema := results.MapSchema(rows[0], rows[1], parseSubjects, parseTraits, logsvc.NewMemoryLogger())
	return results.ParseRows(rows, schema, opts)
}

func newParseSheet(rows ...testutil.StudentRow) *testutil.Sheet {
	return testutil.NewSheet(parseSubjects, parseTraits.AffectiveTraits, parseTraits.PsychomotorSkills).Add(rows...)
}

func TestParseRows_skipsPlaceholders(t *testing.T) {
	sheet := newParseSheet(
		testutil.StudentRow{ID: "ADM-1", Name: "Ada"},
		testutil.StudentRow{ID: "", Name: "no id"},
		testutil.StudentRow{ID: "ex-001", Name: "lowercase example"},
		testutil.StudentRow{ID: "ADM-2", Name: "Bola"},
	)

	parsed, skipped, notes := parseSheet(t, sheet, results.ParseOptions{})
	require.Len(t, parsed, 2)
	assert.Equal(t, "ADM-1", parsed[0].AdmissionNumber)
	assert.Equal(t, 4, parsed[0].Row)
	assert.Equal(t, "ADM-2", parsed[1].AdmissionNumber)
	assert.Equal(t, 7, parsed[1].Row)
	assert.Equal(t, 3, skipped, "the example row, the row without id and the lowercase placeholder")
	assert.Empty(t, notes)
	for _, p := range parsed {
		assert.NotEqual(t, "EX-001", p.AdmissionNumber)
	}

	t.Run("custom placeholders", func(t *testing.T) {
		parsed, skipped, _ := parseSheet(t, sheet, results.ParseOptions{PlaceholderIDs: []string{"ADM-2"}})
		require.Len(t, parsed, 3)
		assert.Equal(t, "EX-001", parsed[0].AdmissionNumber)
		assert.Equal(t, "ex-001", parsed[2].AdmissionNumber)
		assert.Equal(t, 2, skipped)
	})
}

func TestParseRow_cells(t *testing.T) {
	sheet := newParseSheet(testutil.StudentRow{
		ID: " ADM-1 ", Name: "Ada", Attendance: "45 / 60", Sex: "F",
		Scores: map[string][4]string{
			"Mathematics": {"10", "8.5", "abc", "50"},
		},
		Traits:    map[string]string{"Honesty": "7", "Drawing": "Good"},
		Principal: "Keep it up", Tutor: "Brilliant",
	})

	parsed, _, notes := parseSheet(t, sheet, results.ParseOptions{DaysSchoolOpen: 58})
	require.Len(t, parsed, 1)
	row := parsed[0]

	assert.Equal(t, "ADM-1", row.AdmissionNumber)
	assert.Equal(t, "F", row.Demographics.Sex)
	assert.Equal(t, results.Attendance{DaysPresent: 45, DaysSchoolOpen: 60}, row.Attendance)
	assert.Equal(t, map[string]results.SubjectScores{
		"Mathematics": {CA1: 10, CA2: 8.5, Project: 0, Exam: 50},
	}, row.Scores, "blank subject blocks are left out")
	assert.Equal(t, map[string]results.TraitValue{"Honesty": results.TraitScore(5)}, row.Affective)
	assert.Equal(t, map[string]results.TraitValue{"Drawing": results.TraitLabel("Good")}, row.Psychomotor)
	assert.Equal(t, "Keep it up", row.PrincipalComment)
	assert.Equal(t, "Brilliant", row.TutorComment)

	assert.Equal(t, []results.Note{
		{Row: 4, Field: "Mathematics", Kind: results.NoteMalformedCell, Message: `"abc" is not a number, counted as 0`},
		{Row: 4, Field: "Drawing", Kind: results.NoteMalformedCell, Message: `"Good" is not a score, kept as label`},
	}, notes)
}

func TestParseRow_attendanceAndTraits(t *testing.T) {
	tests := []struct {
		name       string
		attendance string
		trait      string
		want       results.Attendance
		wantTrait  results.TraitValue
		wantNotes  int
	}{
		{name: "present/open", attendance: "45/60", trait: "3", want: results.Attendance{DaysPresent: 45, DaysSchoolOpen: 60}, wantTrait: results.TraitScore(3)},
		{name: "bare present", attendance: "45", trait: "4.6", want: results.Attendance{DaysPresent: 45, DaysSchoolOpen: 62}, wantTrait: results.TraitScore(5)},
		{name: "blank", attendance: "", trait: "0", want: results.Attendance{DaysSchoolOpen: 62}, wantTrait: results.TraitScore(1)},
		{name: "invalid", attendance: "lots", trait: "-3", want: results.Attendance{DaysSchoolOpen: 62}, wantTrait: results.TraitScore(1), wantNotes: 1},
		{name: "invalid open", attendance: "45/x", trait: "A+", want: results.Attendance{DaysPresent: 45, DaysSchoolOpen: 62}, wantTrait: results.TraitLabel("A+"), wantNotes: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet := newParseSheet(testutil.StudentRow{ID: "ADM-1", Attendance: tt.attendance, Traits: map[string]string{"Honesty": tt.trait}})
			parsed, _, notes := parseSheet(t, sheet, results.ParseOptions{DaysSchoolOpen: 62})
			require.Len(t, parsed, 1)
			assert.Equal(t, tt.want, parsed[0].Attendance)
			assert.Equal(t, tt.wantTrait, parsed[0].Affective["Honesty"])
			assert.Len(t, notes, tt.wantNotes)
		})
	}
}
