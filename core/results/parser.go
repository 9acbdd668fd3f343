package results

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/trezcool/gradebook/core"
)

// fixed leading columns
const (
	colID = iota
	colName
	colAttendance
	colSex
	colDOB
	colAge
	colHeight
	colWeight
	colFavouriteColor
)

const (
	// FirstDataRow is the index of the first row after the two header rows. It holds the example row,
	// which is dropped through its placeholder ID.
	FirstDataRow = 2

	traitMin = 1
	traitMax = 5
)

var DefaultPlaceholderIDs = []string{"EX-001"}

type ParseOptions struct {
	PlaceholderIDs []string
	// DaysSchoolOpen is used when the attendance cell only holds the days present.
	DaysSchoolOpen int
}

func (opts ParseOptions) isPlaceholder(id string) bool {
	ids := opts.PlaceholderIDs
	if ids == nil {
		ids = DefaultPlaceholderIDs
	}
	for _, p := range ids {
		if strings.EqualFold(id, strings.TrimSpace(p)) {
			return true
		}
	}
	return false
}

// ParseRows parses every data row of rows. Rows without an ID, or with a placeholder ID, are skipped.
func ParseRows(rows [][]string, schema SchemaDescriptor, opts ParseOptions) (parsed []ParsedStudentRow, skipped int, notes []Note) {
	for i := FirstDataRow; i < len(rows); i++ {
		row, rowNotes, ok := ParseRow(i+1, rows[i], schema, opts)
		if !ok {
			skipped++
			continue
		}
		parsed = append(parsed, row)
		notes = append(notes, rowNotes...)
	}
	return parsed, skipped, notes
}

// ParseRow converts one raw data row. ok is false when the row must be skipped.
// line is the 1-based line number used in notes.
func ParseRow(line int, raw []string, schema SchemaDescriptor, opts ParseOptions) (row ParsedStudentRow, notes []Note, ok bool) {
	id := cell(raw, colID)
	if id == "" || opts.isPlaceholder(id) {
		return ParsedStudentRow{}, nil, false
	}

	row = ParsedStudentRow{
		Row:             line,
		AdmissionNumber: id,
		Name:            cell(raw, colName),
		Demographics: Demographics{
			Sex:            cell(raw, colSex),
			DateOfBirth:    cell(raw, colDOB),
			Age:            cell(raw, colAge),
			Height:         cell(raw, colHeight),
			Weight:         cell(raw, colWeight),
			FavouriteColor: cell(raw, colFavouriteColor),
		},
		Scores:      make(map[string]SubjectScores, len(schema.Subjects)),
		Affective:   make(map[string]TraitValue, len(schema.Affective)),
		Psychomotor: make(map[string]TraitValue, len(schema.Psychomotor)),
	}

	note := func(field, msg string) {
		notes = append(notes, Note{Row: line, Field: field, Kind: NoteMalformedCell, Message: msg})
	}

	att, err := parseAttendance(cell(raw, colAttendance), opts.DaysSchoolOpen)
	if err != nil {
		note("Attendance", err.Error())
	}
	row.Attendance = att

	for _, subject := range schema.SubjectOrder {
		base := schema.Subjects[subject]
		cells := [subjectWidth]string{}
		present := false
		for j := range cells {
			cells[j] = cell(raw, base+j)
			present = present || cells[j] != ""
		}
		if !present {
			continue
		}

		var values [subjectWidth]float64
		for j, c := range cells {
			v, err := parseScore(c)
			if err != nil {
				note(subject, fmt.Sprintf("%q is not a number, counted as 0", c))
			}
			values[j] = v
		}
		row.Scores[subject] = SubjectScores{CA1: values[0], CA2: values[1], Project: values[2], Exam: values[3]}
	}

	parseTraits(raw, schema.Affective, row.Affective, note)
	parseTraits(raw, schema.Psychomotor, row.Psychomotor, note)

	if schema.PrincipalComment >= 0 {
		row.PrincipalComment = cell(raw, schema.PrincipalComment)
		row.TutorComment = cell(raw, schema.TutorComment)
	}
	return row, notes, true
}

func parseTraits(raw []string, columns map[string]int, out map[string]TraitValue, note func(field, msg string)) {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		c := cell(raw, columns[name])
		if c == "" {
			continue
		}
		v, err := strconv.ParseFloat(c, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			out[name] = TraitLabel(c)
			note(name, fmt.Sprintf("%q is not a score, kept as label", c))
			continue
		}
		out[name] = TraitScore(clamp(int(math.Round(v)), traitMin, traitMax))
	}
}

// parseScore reads a sub-score. Empty cells are 0; non-numeric cells are 0 and reported.
func parseScore(c string) (float64, error) {
	if c == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(c, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid score %q", c)
	}
	return v, nil
}

// parseAttendance reads "present/open" or a bare "present".
func parseAttendance(c string, daysOpen int) (Attendance, error) {
	att := Attendance{DaysSchoolOpen: daysOpen}
	if c == "" {
		return att, nil
	}

	present, open := c, ""
	if i := strings.Index(c, "/"); i >= 0 {
		present, open = strings.TrimSpace(c[:i]), strings.TrimSpace(c[i+1:])
	}

	p, err := strconv.Atoi(present)
	if err != nil || p < 0 {
		return att, fmt.Errorf("%q is not a valid attendance", c)
	}
	att.DaysPresent = p

	if open != "" {
		o, err := strconv.Atoi(open)
		if err != nil || o < 0 {
			// keep the days present, only the open count falls back
			return att, fmt.Errorf("%q is not a valid days open count", c)
		}
		att.DaysSchoolOpen = o
	}
	return att, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return core.CleanString(row[idx])
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
