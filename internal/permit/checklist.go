package permit

import (
	"context"
	"fmt"
	"strings"

	"ptw/internal/models"
)

// Catalog — read-only справочник (внешние master-data).
type Catalog interface {
	MandatoryQuestions(ctx context.Context, typ models.PermitType) ([]models.ChecklistQuestion, error)
}

// validateForSubmission возвращает ВСЕ нарушения разом, чтобы заявитель
// исправил форму за один проход, а не по одному отказу за запрос.
func validateForSubmission(ctx context.Context, catalog Catalog, p *models.Permit) ([]string, error) {
	var violations []string

	questions, err := catalog.MandatoryQuestions(ctx, p.Type)
	if err != nil {
		return nil, err
	}
	answered := make(map[uint]bool, len(p.Checklist))
	for _, r := range p.Checklist {
		if r.Answer != "" {
			answered[r.QuestionID] = true
		}
	}
	for _, q := range questions {
		if !answered[q.ID] {
			violations = append(violations,
				fmt.Sprintf("checklist question %d (%s) is not answered", q.ID, q.Text))
		}
	}

	if len(p.Hazards) == 0 {
		violations = append(violations, "at least one hazard must be selected")
	}
	if len(p.PPE) == 0 {
		violations = append(violations, "at least one PPE item must be selected")
	}
	if strings.TrimSpace(p.ControlMeasures) == "" {
		violations = append(violations, "control measures must not be empty")
	}
	return violations, nil
}
