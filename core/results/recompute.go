package results

import (
	"sort"
)

// Recompute assigns scope-wide statistics to records, which must be the complete set of results of one scope:
// the overall position of each student, and the class average and position of every subject.
//
// Positions are dense ranks on values compared at 2 decimals: equal values share a rank and the next
// distinct value takes the following rank (90, 90, 85 -> 1, 1, 2).
// The input is not modified. The output is ordered by overall position, then admission number.
func Recompute(records []StudentResult) []StudentResult {
	out := make([]StudentResult, len(records))
	for i, r := range records {
		r.Subjects = copySubjects(r.Subjects)
		out[i] = r
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].AdmissionNumber < out[j].AdmissionNumber })
	sort.SliceStable(out, func(i, j int) bool { return round2(out[i].OverallAverage) > round2(out[j].OverallAverage) })

	rank := 0
	for i := range out {
		if i == 0 || round2(out[i].OverallAverage) != round2(out[i-1].OverallAverage) {
			rank++
		}
		out[i].OverallPosition = rank
	}

	for _, subject := range subjectNames(out) {
		idxs := make([]int, 0, len(out))
		var sum float64
		for i := range out {
			if o, ok := out[i].Subjects[subject]; ok {
				idxs = append(idxs, i)
				sum += o.Total
			}
		}
		avg := round2(sum / float64(len(idxs)))

		sort.SliceStable(idxs, func(a, b int) bool {
			return round2(out[idxs[a]].Subjects[subject].Total) > round2(out[idxs[b]].Subjects[subject].Total)
		})

		rank, prev := 0, 0.0
		for n, i := range idxs {
			o := out[i].Subjects[subject]
			if n == 0 || round2(o.Total) != prev {
				rank++
				prev = round2(o.Total)
			}
			o.ClassAverage = avg
			o.PositionInClass = rank
			out[i].Subjects[subject] = o
		}
	}
	return out
}

// subjectNames returns every subject present on at least one record, sorted.
func subjectNames(records []StudentResult) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		for name := range r.Subjects {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func copySubjects(subjects map[string]SubjectOutcome) map[string]SubjectOutcome {
	cp := make(map[string]SubjectOutcome, len(subjects))
	for k, v := range subjects {
		cp[k] = v
	}
	return cp
}
