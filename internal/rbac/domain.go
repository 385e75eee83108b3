package rbac

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Module is a closed enum of permission-bearing application areas. Matrices
// are validated against this set at the boundary so a mistyped module key
// fails fast instead of silently granting nothing.
type Module string

const (
	ModuleSales      Module = "sales"
	ModulePurchasing Module = "purchasing"
	ModuleInventory  Module = "inventory"
	ModuleReports    Module = "reports"
	ModuleUsers      Module = "users"
	ModuleBrands     Module = "brands"
)

// Action is one of the five per-module capabilities.
type Action string

const (
	ActionView    Action = "view"
	ActionCreate  Action = "create"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionApprove Action = "approve"
)

// Actions is the capability set a role holds for one module.
type Actions struct {
	View    bool `json:"view"`
	Create  bool `json:"create"`
	Edit    bool `json:"edit"`
	Delete  bool `json:"delete"`
	Approve bool `json:"approve"`
}

// Allows reports whether the set includes the given action.
func (a Actions) Allows(action Action) bool {
	switch action {
	case ActionView:
		return a.View
	case ActionCreate:
		return a.Create
	case ActionEdit:
		return a.Edit
	case ActionDelete:
		return a.Delete
	case ActionApprove:
		return a.Approve
	default:
		return false
	}
}

// Matrix maps modules to their granted actions.
type Matrix map[Module]Actions

// Built-in role names. Owner and admin are elevated: exempt from brand
// scoping and granted every permission.
const (
	RoleOwner     = "owner"
	RoleAdmin     = "admin"
	RoleFinance   = "finance"
	RoleWarehouse = "warehouse"
	RoleStaff     = "staff"
)

// Role is a named permission grouping.
type Role struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Matrix    Matrix    `json:"matrix"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// KnownModules lists every valid module, sorted for stable output.
func KnownModules() []Module {
	modules := []Module{
		ModuleSales, ModulePurchasing, ModuleInventory,
		ModuleReports, ModuleUsers, ModuleBrands,
	}
	sort.Slice(modules, func(i, j int) bool { return modules[i] < modules[j] })
	return modules
}

var validModules = map[Module]struct{}{
	ModuleSales:      {},
	ModulePurchasing: {},
	ModuleInventory:  {},
	ModuleReports:    {},
	ModuleUsers:      {},
	ModuleBrands:     {},
}

// ParseMatrix validates raw matrix input. Unknown module keys are rejected.
func ParseMatrix(raw map[string]Actions) (Matrix, error) {
	matrix := make(Matrix, len(raw))
	for key, actions := range raw {
		module := Module(strings.ToLower(strings.TrimSpace(key)))
		if _, ok := validModules[module]; !ok {
			return nil, fmt.Errorf("unknown module %q", key)
		}
		matrix[module] = actions
	}
	return matrix, nil
}

// Merge unions two matrices; any role granting an action grants it overall.
func (m Matrix) Merge(other Matrix) Matrix {
	merged := make(Matrix, len(m)+len(other))
	for module, actions := range m {
		merged[module] = actions
	}
	for module, actions := range other {
		existing := merged[module]
		merged[module] = Actions{
			View:    existing.View || actions.View,
			Create:  existing.Create || actions.Create,
			Edit:    existing.Edit || actions.Edit,
			Delete:  existing.Delete || actions.Delete,
			Approve: existing.Approve || actions.Approve,
		}
	}
	return merged
}

// Allows reports whether the matrix grants action on module.
func (m Matrix) Allows(module Module, action Action) bool {
	return m[module].Allows(action)
}

// IsElevated reports whether the role set contains owner or admin,
// case-insensitive.
func IsElevated(roles []string) bool {
	for _, role := range roles {
		switch strings.ToLower(strings.TrimSpace(role)) {
		case RoleOwner, RoleAdmin:
			return true
		}
	}
	return false
}
