package cases

// ChecklistEntry is one required sub-procedure type in a case-type template.
// Entries referenced by executions are immutable: template edits must not
// delete them.
type ChecklistEntry struct {
	ID           string `json:"id"`
	TemplateID   string `json:"template_id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Obligatory   bool   `json:"obligatory"`
	DisplayOrder int    `json:"display_order"`
}

// ObligatoryEntries filters the obligatory subset, preserving display order.
func ObligatoryEntries(entries []*ChecklistEntry) []*ChecklistEntry {
	var out []*ChecklistEntry
	for _, e := range entries {
		if e.Obligatory {
			out = append(out, e)
		}
	}
	return out
}
