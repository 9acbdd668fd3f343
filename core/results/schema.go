package results

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/gradebook/core"
)

const (
	fixedColumns = 9 // ID, Name, Attendance, Sex, DOB, Age, Height, Weight, Favourite Color
	subjectWidth = 4 // CA1, CA2, Project, Exam

	markerAffective   = "Affective Domains"
	markerPsychomotor = "Psychomotor Domains"
	markerComments    = "Comments"

	suggestionMinRatio = 0.6
)

// SchemaDescriptor locates every configured field of an import file. Built once per import by MapSchema.
type SchemaDescriptor struct {
	// Subjects maps a subject name to the first of its 4 consecutive columns.
	Subjects     map[string]int
	SubjectOrder []string
	Affective    map[string]int
	Psychomotor  map[string]int
	// PrincipalComment and TutorComment are -1 when the file has no Comments section.
	PrincipalComment int
	TutorComment     int
	Notes            []Note
}

// MapSchema reads the category and detail header rows of an import file.
// Subjects are matched by exact name (surrounding whitespace ignored) from the first non fixed column.
// Unmatched subjects and traits are logged and left out of the descriptor.
func MapSchema(category, detail []string, subjects []string, traits TraitSet, logger core.Logger) SchemaDescriptor {
	schema := SchemaDescriptor{
		Subjects:         make(map[string]int, len(subjects)),
		SubjectOrder:     make([]string, 0, len(subjects)),
		Affective:        make(map[string]int),
		Psychomotor:      make(map[string]int),
		PrincipalComment: -1,
		TutorComment:     -1,
	}

	for _, name := range subjects {
		name = core.CleanString(name)
		if _, dup := schema.Subjects[name]; dup || name == "" {
			continue
		}
		idx := indexOf(category, name, fixedColumns)
		if idx < 0 {
			fields := core.LogFields{"subject": name}
			msg := "no matching column"
			if suggestion := closestHeader(name, category); suggestion != "" {
				fields["suggestion"] = suggestion
				msg = fmt.Sprintf("no matching column (did you mean %q?)", suggestion)
			}
			logger.Warn("schema.subject_missing", fields)
			schema.Notes = append(schema.Notes, Note{Field: name, Kind: NoteSchemaMappingMiss, Message: msg})
			continue
		}
		schema.Subjects[name] = idx
		schema.SubjectOrder = append(schema.SubjectOrder, name)
		logger.Debug("schema.subject_mapped", core.LogFields{"subject": name, "column": idx})
	}

	schema.Affective = mapSection(category, detail, markerAffective, traits.AffectiveTraits, &schema, logger)
	schema.Psychomotor = mapSection(category, detail, markerPsychomotor, traits.PsychomotorSkills, &schema, logger)

	if idx := indexOf(category, markerComments, 0); idx >= 0 {
		schema.PrincipalComment = idx
		schema.TutorComment = idx + 1
	} else {
		logger.Warn("schema.section_missing", core.LogFields{"section": markerComments})
	}
	return schema
}

// mapSection maps every column with a non-empty detail header between marker and the next section marker.
func mapSection(category, detail []string, marker string, configured []string, schema *SchemaDescriptor, logger core.Logger) map[string]int {
	columns := make(map[string]int)

	start := indexOf(category, marker, 0)
	if start < 0 {
		logger.Warn("schema.section_missing", core.LogFields{"section": marker})
		if len(configured) > 0 {
			schema.Notes = append(schema.Notes, Note{
				Field:   marker,
				Kind:    NoteSchemaMappingMiss,
				Message: "section not found",
			})
		}
		return columns
	}

	end := len(category)
	for i := start + 1; i < len(category); i++ {
		if isSectionMarker(category[i]) {
			end = i
			break
		}
	}

	for i := start; i < end && i < len(detail); i++ {
		name := core.CleanString(detail[i])
		if name == "" {
			continue
		}
		if _, dup := columns[name]; dup {
			continue
		}
		columns[name] = i
		logger.Debug("schema.trait_mapped", core.LogFields{"section": marker, "trait": name, "column": i})
	}

	for _, name := range configured {
		name = core.CleanString(name)
		if _, ok := columns[name]; ok || name == "" {
			continue
		}
		logger.Warn("schema.trait_missing", core.LogFields{"section": marker, "trait": name})
		schema.Notes = append(schema.Notes, Note{Field: name, Kind: NoteSchemaMappingMiss, Message: "no matching column in " + marker})
	}
	return columns
}

func isSectionMarker(cell string) bool {
	switch core.CleanString(cell) {
	case markerComments, markerAffective, markerPsychomotor:
		return true
	}
	return false
}

func indexOf(row []string, value string, from int) int {
	for i := from; i < len(row); i++ {
		if core.CleanString(row[i]) == value {
			return i
		}
	}
	return -1
}

// closestHeader returns the category header most similar to name, if any is similar enough.
func closestHeader(name string, category []string) string {
	var (
		best      string
		bestRatio float64
	)
	a := strings.Split(strings.ToLower(name), "")
	for i := fixedColumns; i < len(category); i++ {
		candidate := core.CleanString(category[i])
		if candidate == "" || isSectionMarker(candidate) {
			continue
		}
		ratio := difflib.NewMatcher(a, strings.Split(strings.ToLower(candidate), "")).Ratio()
		if ratio > bestRatio {
			best, bestRatio = candidate, ratio
		}
	}
	if bestRatio < suggestionMinRatio {
		return ""
	}
	return best
}
