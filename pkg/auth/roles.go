// Package auth holds the closed role set, the capabilities each role grants
// and the signed access tokens that carry them.
package auth

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleEmployee  Role = "EMPLOYEE"
	RoleAdmin     Role = "ADMIN"
	RoleSeniorDev Role = "SENIOR_DEV"
)

var Roles = []Role{RoleEmployee, RoleAdmin, RoleSeniorDev}

// ParseRole accepts any casing; the empty string maps to EMPLOYEE.
func ParseRole(s string) (Role, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return RoleEmployee, nil
	}
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil && r != ""
}

type Capability int

const (
	// CapViewSystemAnalytics allows the system-wide dashboard.
	CapViewSystemAnalytics Capability = iota
	CapViewLegacyEngagement
	CapManageKnowledge
	CapBatchIngest
	CapViewDocumentStats
	CapAuthorLegacy
	CapReadAllLegacy
	CapReadDailyWisdom
	// CapReceiveLegacyContext injects recent public legacy messages into chat prompts.
	CapReceiveLegacyContext
	CapManageUsers
)

var grants = map[Role]map[Capability]bool{
	RoleEmployee: {
		CapReadDailyWisdom:      true,
		CapReceiveLegacyContext: true,
	},
	RoleSeniorDev: {
		CapViewLegacyEngagement: true,
		CapManageKnowledge:      true,
		CapAuthorLegacy:         true,
	},
	RoleAdmin: {
		CapViewSystemAnalytics:  true,
		CapViewLegacyEngagement: true,
		CapManageKnowledge:      true,
		CapBatchIngest:          true,
		CapViewDocumentStats:    true,
		CapAuthorLegacy:         true,
		CapReadAllLegacy:        true,
		CapManageUsers:          true,
	},
}

func (r Role) Can(c Capability) bool {
	return grants[r][c]
}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID uint
	Email  string
	Role   Role
	JTI    string
}

func (p Principal) Can(c Capability) bool { return p.Role.Can(c) }
