package repositories

import (
	"context"

	"github.com/medregula/casetrack/internal/domain/cases"
	"github.com/medregula/casetrack/pkg/errors"
)

type templateRepo struct {
	baseRepo
}

func (r *templateRepo) FindEntries(ctx context.Context, templateID string) ([]*cases.ChecklistEntry, error) {
	query := `
		SELECT id, template_id, code, name, obligatory, display_order
		FROM checklist_entries
		WHERE template_id = $1
		ORDER BY display_order ASC`

	rows, err := r.executor().QueryContext(ctx, query, templateID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query checklist entries")
	}
	defer rows.Close()

	var out []*cases.ChecklistEntry
	for rows.Next() {
		var e cases.ChecklistEntry
		if err := rows.Scan(&e.ID, &e.TemplateID, &e.Code, &e.Name, &e.Obligatory, &e.DisplayOrder); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan checklist entry")
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate checklist entries")
	}
	if len(out) == 0 {
		return nil, errors.New(errors.ErrCodeTemplateNotFound, "template not found: "+templateID)
	}
	return out, nil
}
