package permit

import (
	"time"

	"ptw/internal/models"
)

// ChainOutcome — исход цепочки согласования после записи очередного решения.
type ChainOutcome int

const (
	ChainPending  ChainOutcome = iota // остались нерешённые роли
	ChainComplete                     // все роли approved
	ChainRejected                     // любое reject — вето, цепочка закрыта
)

// recordDecision записывает решение роли в заранее зафиксированный набор
// (записи создаются при submit) и вычисляет исход цепочки.
//
// Решение роли неизменяемо: первое записанное — окончательное. Вето одной
// роли закрывает цепочку; последующие попытки других ролей получают
// AlreadyResolved, а не тихий no-op.
func recordDecision(p *models.Permit, role models.Role, decision models.Decision, approverID, comments string, now time.Time) (ChainOutcome, *Error) {
	for i := range p.Approvals {
		if p.Approvals[i].Decision == models.DecisionRejected {
			return ChainRejected, newError(CodeAlreadyResolved,
				"permit %s already rejected by %s", p.Serial, p.Approvals[i].Role)
		}
	}

	rec := p.Approval(role)
	if rec == nil {
		return ChainPending, newError(CodeUnknownRole,
			"role %s is not in the approval chain of permit %s", role, p.Serial)
	}
	if rec.Decision != models.DecisionPending {
		return ChainPending, newError(CodeDuplicateDecision,
			"role %s already decided %s on permit %s", role, rec.Decision, p.Serial)
	}

	rec.Decision = decision
	rec.ApproverID = approverID
	rec.Comments = comments
	rec.DecidedAt = &now

	if decision == models.DecisionRejected {
		return ChainRejected, nil
	}
	for i := range p.Approvals {
		if p.Approvals[i].Decision != models.DecisionApproved {
			return ChainPending, nil
		}
	}
	return ChainComplete, nil
}
