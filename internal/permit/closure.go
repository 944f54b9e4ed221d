package permit

import (
	"time"

	"ptw/internal/models"
)

// ClosureInput — четыре пост-рабочие проверки плюс примечания.
type ClosureInput struct {
	Housekeeping bool
	ToolsRemoved bool
	LocksRemoved bool
	AreaRestored bool
	Remarks      string
}

// applyClosure создаёт акт закрытия и замораживает наряд в closed.
// Акт создаётся один раз и только при всех четырёх true.
func applyClosure(p *models.Permit, in ClosureInput, closedBy string, now time.Time) *Error {
	next, ferr := Next(p.Status, EventClose)
	if ferr != nil {
		return ferr
	}
	rec := models.ClosureRecord{
		PermitID:     p.ID,
		Housekeeping: in.Housekeeping,
		ToolsRemoved: in.ToolsRemoved,
		LocksRemoved: in.LocksRemoved,
		AreaRestored: in.AreaRestored,
		Remarks:      in.Remarks,
		ClosedBy:     closedBy,
		ClosedAt:     now,
	}
	if !rec.Complete() {
		return newError(CodeIncompleteClosure,
			"all closure checks must be confirmed (housekeeping=%t tools=%t locks=%t area=%t)",
			in.Housekeeping, in.ToolsRemoved, in.LocksRemoved, in.AreaRestored)
	}
	p.Closure = &rec
	p.Status = next
	return nil
}
