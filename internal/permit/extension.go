package permit

import (
	"time"

	"ptw/internal/models"
)

// applyExtensionRequest создаёт заявку на продление и переводит наряд в
// extension_requested. Вызывается только под пер-пермитной блокировкой:
// проверка «нет pending-заявки» и создание — одна атомарная единица.
func applyExtensionRequest(p *models.Permit, newEnd time.Time, reason, requestedBy string) *Error {
	next, ferr := Next(p.Status, EventRequestExtension)
	if ferr != nil {
		return ferr
	}
	if p.PendingExtension() != nil {
		return newError(CodeConflictingRequest,
			"permit %s already has a pending extension request", p.Serial)
	}
	if !newEnd.After(p.EndTime) {
		return newError(CodeInvalidEndTime,
			"new end time %s must be after current end time %s",
			newEnd.Format(time.RFC3339), p.EndTime.Format(time.RFC3339))
	}

	p.Extensions = append(p.Extensions, models.ExtensionRequest{
		PermitID:    p.ID,
		NewEndTime:  newEnd,
		Reason:      reason,
		RequestedBy: requestedBy,
		Decision:    models.DecisionPending,
	})
	p.Status = next
	return nil
}

// applyExtensionDecision решает pending-заявку. Approved сдвигает end_time
// строго вперёд; rejected оставляет его нетронутым. В обоих случаях наряд
// возвращается в active.
func applyExtensionDecision(p *models.Permit, decision models.Decision, decidedBy string, now time.Time) *Error {
	req := p.PendingExtension()
	if req == nil {
		return newError(CodeNoPendingRequest,
			"permit %s has no pending extension request", p.Serial)
	}
	next, ferr := Next(p.Status, EventResolveExtension)
	if ferr != nil {
		return ferr
	}

	req.Decision = decision
	req.DecidedBy = decidedBy
	req.DecidedAt = &now
	if decision == models.DecisionApproved {
		p.EndTime = req.NewEndTime
	}
	p.Status = next
	return nil
}
