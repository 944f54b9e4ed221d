package models

import "fmt"

// Закрытые перечисления домена. Любые внешние строки проходят через Parse*,
// чтобы невалидное значение не попало в БД и в логику переходов.

type PermitType string

const (
	TypeGeneral       PermitType = "general"
	TypeHeight        PermitType = "height"
	TypeHotWork       PermitType = "hot_work"
	TypeElectrical    PermitType = "electrical"
	TypeConfinedSpace PermitType = "confined_space"
)

var permitTypes = map[PermitType]bool{
	TypeGeneral: true, TypeHeight: true, TypeHotWork: true,
	TypeElectrical: true, TypeConfinedSpace: true,
}

func ParsePermitType(s string) (PermitType, error) {
	t := PermitType(s)
	if !permitTypes[t] {
		return "", fmt.Errorf("unknown permit type: %q", s)
	}
	return t, nil
}

type PermitStatus string

const (
	StatusDraft              PermitStatus = "draft"
	StatusPendingApproval    PermitStatus = "pending_approval"
	StatusActive             PermitStatus = "active"
	StatusExtensionRequested PermitStatus = "extension_requested"
	StatusSuspended          PermitStatus = "suspended"
	StatusClosed             PermitStatus = "closed"
	StatusRejected           PermitStatus = "rejected"
	StatusCancelled          PermitStatus = "cancelled"
)

// Terminal — из этих статусов переходов нет.
func (s PermitStatus) Terminal() bool {
	return s == StatusClosed || s == StatusRejected || s == StatusCancelled
}

type Decision string

const (
	DecisionPending  Decision = "pending"
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

func ParseDecision(s string) (Decision, error) {
	switch d := Decision(s); d {
	case DecisionApproved, DecisionRejected:
		return d, nil
	}
	return "", fmt.Errorf("decision must be approved or rejected, got %q", s)
}

type Role string

const (
	RoleRequester     Role = "requester"
	RoleAreaManager   Role = "area_manager"
	RoleSafetyOfficer Role = "safety_officer"
	RoleSiteLeader    Role = "site_leader"
	RoleAdmin         Role = "admin"
)

var roles = map[Role]bool{
	RoleRequester: true, RoleAreaManager: true, RoleSafetyOfficer: true,
	RoleSiteLeader: true, RoleAdmin: true,
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !roles[r] {
		return "", fmt.Errorf("unknown role: %q", s)
	}
	return r, nil
}

type Answer string

const (
	AnswerYes Answer = "yes"
	AnswerNo  Answer = "no"
	AnswerNA  Answer = "na"
)

func ParseAnswer(s string) (Answer, error) {
	switch a := Answer(s); a {
	case AnswerYes, AnswerNo, AnswerNA:
		return a, nil
	}
	return "", fmt.Errorf("answer must be yes|no|na, got %q", s)
}

// Principal — аутентифицированный субъект от внешнего шлюза (см. middleware).
type Principal struct {
	ID   string
	Role Role
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }
