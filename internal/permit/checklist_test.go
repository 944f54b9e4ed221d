package permit

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"ptw/internal/models"
)

func TestValidateForSubmissionCollectsAllViolations(t *testing.T) {
	catalog := DefaultCatalog()
	p := &models.Permit{
		Type:            models.TypeGeneral,
		ControlMeasures: "  ",
	}

	violations, err := validateForSubmission(context.Background(), catalog, p)
	require.NoError(t, err)

	// 3 обязательных вопроса general + опасности + СИЗ + меры контроля
	require.Len(t, violations, 6)
	joined := strings.Join(violations, "\n")
	require.Contains(t, joined, "hazard")
	require.Contains(t, joined, "PPE")
	require.Contains(t, joined, "control measures")
	require.Contains(t, joined, "checklist question 1")
}

func TestValidateForSubmissionPasses(t *testing.T) {
	catalog := DefaultCatalog()
	p := &models.Permit{
		Type:            models.TypeGeneral,
		ControlMeasures: "barricades, signage, supervision",
		Hazards:         []models.PermitHazard{{HazardID: 5}},
		PPE:             []models.PermitPPE{{PPEItemID: 1}},
		Checklist: []models.ChecklistResponse{
			{QuestionID: 1, Answer: models.AnswerYes},
			{QuestionID: 2, Answer: models.AnswerYes},
			{QuestionID: 3, Answer: models.AnswerNA},
		},
	}
	violations, err := validateForSubmission(context.Background(), catalog, p)
	require.NoError(t, err)
	require.Empty(t, violations)
}

func TestValidateForSubmissionIgnoresOptionalQuestions(t *testing.T) {
	catalog := DefaultCatalog()
	// вопрос 4 (general) необязательный — ответ на него не требуется
	p := &models.Permit{
		Type:            models.TypeGeneral,
		ControlMeasures: "isolation",
		Hazards:         []models.PermitHazard{{HazardID: 1}},
		PPE:             []models.PermitPPE{{PPEItemID: 1}},
		Checklist: []models.ChecklistResponse{
			{QuestionID: 1, Answer: models.AnswerYes},
			{QuestionID: 2, Answer: models.AnswerNo},
			{QuestionID: 3, Answer: models.AnswerYes},
		},
	}
	violations, err := validateForSubmission(context.Background(), catalog, p)
	require.NoError(t, err)
	require.Empty(t, violations)
}
