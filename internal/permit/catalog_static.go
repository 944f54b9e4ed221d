package permit

import (
	"context"

	"ptw/internal/models"
)

// StaticCatalog — справочник в памяти (режим без БД и тесты).
type StaticCatalog struct {
	Questions []models.ChecklistQuestion
	Hazards   []models.Hazard
	PPEItems  []models.PPEItem
}

func (c *StaticCatalog) MandatoryQuestions(_ context.Context, typ models.PermitType) ([]models.ChecklistQuestion, error) {
	var out []models.ChecklistQuestion
	for _, q := range c.Questions {
		if q.Type == typ && q.Mandatory {
			out = append(out, q)
		}
	}
	return out, nil
}

func (c *StaticCatalog) QuestionsForType(_ context.Context, typ models.PermitType) ([]models.ChecklistQuestion, error) {
	var out []models.ChecklistQuestion
	for _, q := range c.Questions {
		if q.Type == typ {
			out = append(out, q)
		}
	}
	return out, nil
}

func (c *StaticCatalog) ListHazards(_ context.Context) ([]models.Hazard, error) {
	return append([]models.Hazard(nil), c.Hazards...), nil
}

func (c *StaticCatalog) ListPPEItems(_ context.Context) ([]models.PPEItem, error) {
	return append([]models.PPEItem(nil), c.PPEItems...), nil
}

// DefaultCatalog — baseline-справочник: им же засеивается пустая БД
// (см. repo.CatalogStore.Seed).
func DefaultCatalog() *StaticCatalog {
	q := func(id uint, typ models.PermitType, text string, mandatory bool) models.ChecklistQuestion {
		return models.ChecklistQuestion{ID: id, Type: typ, Text: text, Mandatory: mandatory}
	}
	return &StaticCatalog{
		Questions: []models.ChecklistQuestion{
			q(1, models.TypeGeneral, "Has the work area been inspected before start?", true),
			q(2, models.TypeGeneral, "Are emergency contact numbers displayed on site?", true),
			q(3, models.TypeGeneral, "Has the crew been briefed on the scope of work?", true),
			q(4, models.TypeGeneral, "Is a first-aid kit available at the work location?", false),
			q(5, models.TypeHeight, "Are harnesses and lanyards inspected and tagged?", true),
			q(6, models.TypeHeight, "Are drop zones barricaded below the work area?", true),
			q(7, models.TypeHeight, "Is the scaffold/EWP certified for use?", true),
			q(8, models.TypeHotWork, "Is a fire watch assigned for the duration of work?", true),
			q(9, models.TypeHotWork, "Are combustibles removed or shielded within 10 m?", true),
			q(10, models.TypeHotWork, "Is a fire extinguisher present at the work spot?", true),
			q(11, models.TypeElectrical, "Is the circuit isolated and locked out?", true),
			q(12, models.TypeElectrical, "Has zero-energy been verified with a tester?", true),
			q(13, models.TypeConfinedSpace, "Has the atmosphere been gas-tested?", true),
			q(14, models.TypeConfinedSpace, "Is a standby attendant posted at the entry?", true),
			q(15, models.TypeConfinedSpace, "Is a rescue plan in place and communicated?", true),
		},
		Hazards: []models.Hazard{
			{ID: 1, Name: "Fall from height"},
			{ID: 2, Name: "Fire / explosion"},
			{ID: 3, Name: "Electric shock"},
			{ID: 4, Name: "Toxic atmosphere"},
			{ID: 5, Name: "Moving machinery"},
			{ID: 6, Name: "Falling objects"},
		},
		PPEItems: []models.PPEItem{
			{ID: 1, Name: "Safety helmet"},
			{ID: 2, Name: "Safety harness"},
			{ID: 3, Name: "Welding visor"},
			{ID: 4, Name: "Insulated gloves"},
			{ID: 5, Name: "Breathing apparatus"},
			{ID: 6, Name: "High-visibility vest"},
		},
	}
}
