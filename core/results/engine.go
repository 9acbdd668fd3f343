package results

import (
	"math"

	"github.com/trezcool/gradebook/core/grading"
)

// overall remark thresholds, highest first
var overallRemarks = []struct {
	min    float64
	remark string
}{
	{80, "Excellent"},
	{70, "Very Good"},
	{60, "Good"},
	{50, "Fair"},
}

const lowestOverallRemark = "Needs Improvement"

func OverallRemark(average float64) string {
	for _, r := range overallRemarks {
		if average >= r.min {
			return r.remark
		}
	}
	return lowestOverallRemark
}

// BuildResult computes the per-student part of a result: subject totals, grades, remarks and the overall average.
// Class averages and positions are left for Recompute.
func BuildResult(scope Scope, student Student, row ParsedStudentRow, scale grading.Scale) StudentResult {
	res := StudentResult{
		Scope:            scope,
		StudentID:        student.ID,
		AdmissionNumber:  row.AdmissionNumber,
		StudentName:      row.Name,
		Demographics:     row.Demographics,
		Attendance:       row.Attendance,
		Subjects:         make(map[string]SubjectOutcome, len(row.Scores)),
		Affective:        copyTraits(row.Affective),
		Psychomotor:      copyTraits(row.Psychomotor),
		PrincipalComment: row.PrincipalComment,
		TutorComment:     row.TutorComment,
	}
	if res.StudentName == "" {
		res.StudentName = student.Name
	}

	var sum float64
	for name, scores := range row.Scores {
		total := scores.Total()
		grade := scale.Resolve(total)
		res.Subjects[name] = SubjectOutcome{
			SubjectScores: scores,
			Total:         total,
			Grade:         grade,
			Remark:        grading.Remark(grade),
		}
		sum += total
	}
	if n := len(row.Scores); n > 0 {
		res.OverallAverage = round2(sum / float64(n))
	}
	res.OverallRemark = OverallRemark(res.OverallAverage)
	return res
}

func copyTraits(traits map[string]TraitValue) map[string]TraitValue {
	cp := make(map[string]TraitValue, len(traits))
	for k, v := range traits {
		cp[k] = v
	}
	return cp
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
