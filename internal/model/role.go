package model

import (
	"fmt"
	"strings"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleRecycler       Role = "recycler"
	RoleCustomer       Role = "customer"
	RoleWasteCollector Role = "wastecollector"
	RoleAdmin          Role = "admin"
)

var allRoles = []Role{RoleRecycler, RoleCustomer, RoleWasteCollector, RoleAdmin}

// ParseRole converts user input into a Role.  Matching is case-insensitive;
// anything outside the closed set is rejected.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, r := range allRoles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// SelfRegistrable reports whether the role may be chosen at sign-up.  Admin
// accounts are provisioned out of band.
func (r Role) SelfRegistrable() bool {
	return r == RoleRecycler || r == RoleCustomer || r == RoleWasteCollector
}

// Capability names an operation gated by role.
type Capability string

const (
	CapApplyCertification    Capability = "apply_certification"
	CapEvaluateCertification Capability = "evaluate_certification"
	CapApproachCollector     Capability = "approach_collector"
	CapRespondApproach       Capability = "respond_approach"
	CapSubmitFeedback        Capability = "submit_feedback"
	CapViewCollectorStats    Capability = "view_collector_stats"
	CapManageCollectorProf   Capability = "manage_collector_profile"
	CapViewAdminDashboard    Capability = "view_admin_dashboard"
	CapManageUsers           Capability = "manage_users"
	CapVerifyCollectors      Capability = "verify_collectors"
	CapNotifyRecyclers       Capability = "notify_recyclers"
)

// Capabilities is the single source of truth for which role may perform
// which operation.
var Capabilities = map[Role]map[Capability]bool{
	RoleRecycler: {
		CapApplyCertification: true,
		CapApproachCollector:  true,
		CapSubmitFeedback:     true,
	},
	RoleCustomer: {},
	RoleWasteCollector: {
		CapRespondApproach:     true,
		CapViewCollectorStats:  true,
		CapManageCollectorProf: true,
	},
	RoleAdmin: {
		CapEvaluateCertification: true,
		CapViewAdminDashboard:    true,
		CapManageUsers:           true,
		CapVerifyCollectors:      true,
		CapNotifyRecyclers:       true,
	},
}

// Can reports whether role r holds capability c.
func Can(r Role, c Capability) bool {
	return Capabilities[r][c]
}

// RolesWith lists the roles holding every capability in caps, in a stable order.
func RolesWith(caps ...Capability) []Role {
	var out []Role
	for _, r := range allRoles {
		ok := true
		for _, c := range caps {
			if !Can(r, c) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, r)
		}
	}
	return out
}
