package identity

import (
	"fmt"
	"strings"
)

// Role is the closed set of operator roles. Permission checks switch
// exhaustively on this type so a new role cannot silently slip past a gate.
type Role uint8

const (
	RoleUnknown Role = iota
	RoleFieldPersonnel
	RoleWarehouseStaff
	RoleLogisticsOfficer
	RoleLogisticsManager
	RoleAdmin
	RoleAuditor
)

// AllRoles lists every assignable role.
var AllRoles = []Role{
	RoleFieldPersonnel,
	RoleWarehouseStaff,
	RoleLogisticsOfficer,
	RoleLogisticsManager,
	RoleAdmin,
	RoleAuditor,
}

func (r Role) String() string {
	switch r {
	case RoleFieldPersonnel:
		return "FIELD_PERSONNEL"
	case RoleWarehouseStaff:
		return "WAREHOUSE_STAFF"
	case RoleLogisticsOfficer:
		return "LOGISTICS_OFFICER"
	case RoleLogisticsManager:
		return "LOGISTICS_MANAGER"
	case RoleAdmin:
		return "ADMIN"
	case RoleAuditor:
		return "AUDITOR"
	case RoleUnknown:
		return "UNKNOWN"
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// ParseRole maps a stored role string back to the enum.
func ParseRole(raw string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "FIELD_PERSONNEL":
		return RoleFieldPersonnel, nil
	case "WAREHOUSE_STAFF":
		return RoleWarehouseStaff, nil
	case "LOGISTICS_OFFICER":
		return RoleLogisticsOfficer, nil
	case "LOGISTICS_MANAGER":
		return RoleLogisticsManager, nil
	case "ADMIN":
		return RoleAdmin, nil
	case "AUDITOR":
		return RoleAuditor, nil
	}
	return RoleUnknown, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, raw)
}

// CanPrepareFulfilment reports whether the role may edit fulfilment allocations.
func (r Role) CanPrepareFulfilment() bool {
	switch r {
	case RoleLogisticsOfficer, RoleLogisticsManager, RoleAdmin:
		return true
	case RoleFieldPersonnel, RoleWarehouseStaff, RoleAuditor, RoleUnknown:
		return false
	}
	return false
}

// CanApproveFulfilment reports whether the role may approve or reject a prepared fulfilment.
func (r Role) CanApproveFulfilment() bool {
	switch r {
	case RoleLogisticsManager, RoleAdmin:
		return true
	case RoleFieldPersonnel, RoleWarehouseStaff, RoleLogisticsOfficer, RoleAuditor, RoleUnknown:
		return false
	}
	return false
}

// CanDispatch reports whether the role may execute a dispatch from a source hub.
func (r Role) CanDispatch() bool {
	switch r {
	case RoleWarehouseStaff, RoleAdmin:
		return true
	case RoleFieldPersonnel, RoleLogisticsOfficer, RoleLogisticsManager, RoleAuditor, RoleUnknown:
		return false
	}
	return false
}

// CanRequestRelief reports whether the role may create and submit needs lists
// on behalf of its assigned hub.
func (r Role) CanRequestRelief() bool {
	switch r {
	case RoleFieldPersonnel, RoleAdmin:
		return true
	case RoleWarehouseStaff, RoleLogisticsOfficer, RoleLogisticsManager, RoleAuditor, RoleUnknown:
		return false
	}
	return false
}

// CanManageEvents reports whether the role may open, edit or close disaster events.
func (r Role) CanManageEvents() bool {
	switch r {
	case RoleLogisticsManager, RoleAdmin:
		return true
	case RoleFieldPersonnel, RoleWarehouseStaff, RoleLogisticsOfficer, RoleAuditor, RoleUnknown:
		return false
	}
	return false
}

// CanRecordMovements reports whether the role may append stock ledger rows directly.
func (r Role) CanRecordMovements() bool {
	switch r {
	case RoleWarehouseStaff, RoleLogisticsOfficer, RoleLogisticsManager, RoleAdmin:
		return true
	case RoleFieldPersonnel, RoleAuditor, RoleUnknown:
		return false
	}
	return false
}
