package compliance

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/medregula/casetrack/internal/domain/cases"
)

// ChecklistResult is the outcome of evaluating a case checklist against its
// executions.  Unmet lists one human-readable line per unsatisfied obligatory
// item; the consultation alternatives collapse into a single line.
type ChecklistResult struct {
	Satisfied bool
	Unmet     []string
}

var nameNormalizer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeName lowercases s and strips diacritics so entry matching survives
// accent and casing variation in template data.
func normalizeName(s string) string {
	out, _, err := transform.String(nameNormalizer, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// IsConsultEntry reports whether the entry name identifies a consultation,
// in-person or remote.  Matching is by normalized substring so "Consultation"
// and "Teleconsultation" both qualify.
func IsConsultEntry(name string) bool {
	return strings.Contains(normalizeName(name), "consult")
}

// IsAnatomicPathologyEntry reports whether the entry is an anatomic-pathology
// exam, the only procedure kind whose AWAITING_RESULT status already counts
// as performed for checklist purposes.
func IsAnatomicPathologyEntry(name string) bool {
	n := normalizeName(name)
	return strings.Contains(n, "anatomo") && strings.Contains(n, "pathol")
}

// executionMeets reports whether exec satisfies the checklist entry it
// belongs to.  DONE always satisfies; AWAITING_RESULT satisfies only
// anatomic-pathology entries, where the material has been collected and the
// case may proceed while the lab result is outstanding.
func executionMeets(entry *cases.ChecklistEntry, exec *cases.Execution) bool {
	switch exec.Status {
	case cases.ExecDone:
		return true
	case cases.ExecAwaitingResult:
		return IsAnatomicPathologyEntry(entry.Name)
	}
	return false
}

// EvaluateChecklist checks every obligatory entry of the template against the
// case's executions.  Consultation entries form a single OR-group: one
// satisfied consultation of any kind satisfies them all.  Every other
// obligatory entry must be individually satisfied.
func EvaluateChecklist(entries []*cases.ChecklistEntry, execs []*cases.Execution) ChecklistResult {
	met := make(map[string]bool, len(entries))
	for _, entry := range entries {
		for _, ex := range execs {
			if ex.EntryID == entry.ID && executionMeets(entry, ex) {
				met[entry.ID] = true
				break
			}
		}
	}

	var consultGroup []*cases.ChecklistEntry
	consultMet := false
	var unmet []string
	for _, entry := range ObligatoryEntries(entries) {
		if IsConsultEntry(entry.Name) {
			consultGroup = append(consultGroup, entry)
			if met[entry.ID] {
				consultMet = true
			}
			continue
		}
		if !met[entry.ID] {
			unmet = append(unmet, fmt.Sprintf("%s (%s)", entry.Name, entry.Code))
		}
	}
	if len(consultGroup) > 0 && !consultMet {
		names := make([]string, 0, len(consultGroup))
		for _, entry := range consultGroup {
			names = append(names, entry.Name)
		}
		unmet = append(unmet, "one of: "+strings.Join(names, " / "))
	}

	return ChecklistResult{Satisfied: len(unmet) == 0, Unmet: unmet}
}

// ObligatoryEntries re-exports the entity-level filter so callers evaluating
// templates do not need to import both packages.
func ObligatoryEntries(entries []*cases.ChecklistEntry) []*cases.ChecklistEntry {
	return cases.ObligatoryEntries(entries)
}
