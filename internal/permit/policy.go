package permit

import (
	"encoding/json"
	"fmt"
	"sort"

	"ptw/internal/models"
)

type policyKey struct {
	SiteID uint
	Type   models.PermitType
}

// PolicyTable — наборы обязательных ролей-согласующих по (площадка, тип).
// Собирается и валидируется один раз при старте: опечатка в роли валит
// процесс сразу, а не первый запрос.
type PolicyTable struct {
	rules map[policyKey][]models.Role
}

// NewPolicyTable разбирает строки политики (Roles — JSON-массив строк) и
// проверяет каждую роль по закрытому перечислению.
func NewPolicyTable(rows []models.ApprovalPolicy) (*PolicyTable, error) {
	t := &PolicyTable{rules: make(map[policyKey][]models.Role, len(rows))}
	for _, row := range rows {
		if _, err := models.ParsePermitType(string(row.Type)); err != nil {
			return nil, fmt.Errorf("approval policy %d: %w", row.ID, err)
		}
		var raw []string
		if err := json.Unmarshal(row.Roles, &raw); err != nil {
			return nil, fmt.Errorf("approval policy %d: roles: %w", row.ID, err)
		}
		if len(raw) == 0 {
			return nil, fmt.Errorf("approval policy %d: empty role set", row.ID)
		}
		seen := map[models.Role]bool{}
		rs := make([]models.Role, 0, len(raw))
		for _, s := range raw {
			r, err := models.ParseRole(s)
			if err != nil {
				return nil, fmt.Errorf("approval policy %d: %w", row.ID, err)
			}
			if seen[r] {
				return nil, fmt.Errorf("approval policy %d: duplicate role %s", row.ID, r)
			}
			seen[r] = true
			rs = append(rs, r)
		}
		key := policyKey{SiteID: row.SiteID, Type: row.Type}
		if _, dup := t.rules[key]; dup {
			return nil, fmt.Errorf("approval policy %d: duplicate for site %d type %s", row.ID, row.SiteID, row.Type)
		}
		t.rules[key] = rs
	}
	return t, nil
}

// RequiredRoles: политика площадки → политика по умолчанию (site 0) →
// встроенный набор для типа.
func (t *PolicyTable) RequiredRoles(siteID uint, typ models.PermitType) []models.Role {
	if rs, ok := t.rules[policyKey{SiteID: siteID, Type: typ}]; ok {
		return rs
	}
	if rs, ok := t.rules[policyKey{SiteID: 0, Type: typ}]; ok {
		return rs
	}
	return builtinRoles(typ)
}

func builtinRoles(typ models.PermitType) []models.Role {
	switch typ {
	case models.TypeHotWork, models.TypeElectrical, models.TypeConfinedSpace:
		return []models.Role{models.RoleAreaManager, models.RoleSafetyOfficer, models.RoleSiteLeader}
	default:
		return []models.Role{models.RoleAreaManager, models.RoleSafetyOfficer}
	}
}

// DefaultPolicies — baseline-строки для пустой таблицы политик (site 0).
func DefaultPolicies() []models.ApprovalPolicy {
	types := []models.PermitType{
		models.TypeGeneral, models.TypeHeight, models.TypeHotWork,
		models.TypeElectrical, models.TypeConfinedSpace,
	}
	out := make([]models.ApprovalPolicy, 0, len(types))
	for _, typ := range types {
		rs := builtinRoles(typ)
		ss := make([]string, len(rs))
		for i, r := range rs {
			ss[i] = string(r)
		}
		sort.Strings(ss)
		raw, _ := json.Marshal(ss)
		out = append(out, models.ApprovalPolicy{SiteID: 0, Type: typ, Roles: raw})
	}
	return out
}
