package permit

import (
	"ptw/internal/models"
)

// Event — событие жизненного цикла наряда.
type Event string

const (
	EventSubmit           Event = "submit"
	EventApprove          Event = "approve"
	EventReject           Event = "reject"
	EventCancel           Event = "cancel"
	EventRequestExtension Event = "request_extension"
	EventResolveExtension Event = "resolve_extension"
	EventSuspend          Event = "suspend"
	EventResume           Event = "resume"
	EventClose            Event = "close"
)

// Явная таблица переходов вместо разбросанных if по строковому статусу.
// Терминальных статусов (closed/rejected/cancelled) здесь нет — из них
// переходы запрещены по построению.
var transitions = map[models.PermitStatus]map[Event]models.PermitStatus{
	models.StatusDraft: {
		EventSubmit: models.StatusPendingApproval,
		EventCancel: models.StatusCancelled,
	},
	models.StatusPendingApproval: {
		EventApprove: models.StatusActive,
		EventReject:  models.StatusRejected,
		EventCancel:  models.StatusCancelled,
	},
	models.StatusActive: {
		EventRequestExtension: models.StatusExtensionRequested,
		EventSuspend:          models.StatusSuspended,
		EventClose:            models.StatusClosed,
		EventCancel:           models.StatusCancelled,
	},
	models.StatusExtensionRequested: {
		// Решение по продлению всегда возвращает наряд в active,
		// независимо от исхода.
		EventResolveExtension: models.StatusActive,
	},
	models.StatusSuspended: {
		EventResume: models.StatusActive,
	},
}

// Next возвращает целевой статус для (статус, событие) либо InvalidState.
func Next(from models.PermitStatus, ev Event) (models.PermitStatus, *Error) {
	if m, ok := transitions[from]; ok {
		if to, ok := m[ev]; ok {
			return to, nil
		}
	}
	return "", newError(CodeInvalidState, "event %s not allowed in status %s", ev, from)
}

// CanTransition — разрешён ли прямой переход from→to хоть каким-то событием.
func CanTransition(from, to models.PermitStatus) bool {
	for _, target := range transitions[from] {
		if target == to {
			return true
		}
	}
	return false
}
