// Package statemachine holds the declarative transition tables of the
// certification and approach request lifecycles.  A transition is legal
// only if it is listed, and only for a role holding the listed capability.
package statemachine

import (
	"fmt"
	"strings"

	"github.com/iliyamo/ecowaste-cert/internal/model"
)

// CertTransition defines a valid certification state change and the
// capability required to perform it.
type CertTransition struct {
	From model.CertificationStatus
	To   model.CertificationStatus
	Cap  model.Capability
}

// certTransitions is the authoritative certification lifecycle.  Rejected
// and Revoked are terminal; a new application is a new record.
var certTransitions = []CertTransition{
	{From: model.CertPending, To: model.CertCertified, Cap: model.CapEvaluateCertification},
	{From: model.CertPending, To: model.CertRejected, Cap: model.CapEvaluateCertification},
	{From: model.CertPending, To: model.CertRevoked, Cap: model.CapEvaluateCertification},
	// compliance failure after the fact
	{From: model.CertCertified, To: model.CertRevoked, Cap: model.CapEvaluateCertification},
}

// ApproachTransition is the same for approach requests.
type ApproachTransition struct {
	From model.ApproachStatus
	To   model.ApproachStatus
	Cap  model.Capability
}

var approachTransitions = []ApproachTransition{
	{From: model.ApproachPending, To: model.ApproachAccepted, Cap: model.CapRespondApproach},
	{From: model.ApproachPending, To: model.ApproachRejected, Cap: model.CapRespondApproach},
	{From: model.ApproachAccepted, To: model.ApproachCompleted, Cap: model.CapRespondApproach},
}

type certKey struct {
	From, To model.CertificationStatus
}

type approachKey struct {
	From, To model.ApproachStatus
}

var (
	certMap = func() map[certKey]model.Capability {
		m := make(map[certKey]model.Capability, len(certTransitions))
		for _, t := range certTransitions {
			m[certKey{t.From, t.To}] = t.Cap
		}
		return m
	}()
	approachMap = func() map[approachKey]model.Capability {
		m := make(map[approachKey]model.Capability, len(approachTransitions))
		for _, t := range approachTransitions {
			m[approachKey{t.From, t.To}] = t.Cap
		}
		return m
	}()
)

// CanTransitionCertification checks whether role may move a certification
// from one state to another.
func CanTransitionCertification(from, to model.CertificationStatus, role model.Role) error {
	capability, ok := certMap[certKey{from, to}]
	if !ok {
		next := make([]string, 0, 2)
		for _, s := range NextCertificationStates(from) {
			next = append(next, string(s))
		}
		return invalid(string(from), string(to), next)
	}
	if !model.Can(role, capability) {
		return fmt.Errorf("role %q may not move a certification to %s", role, to)
	}
	return nil
}

// NextCertificationStates lists the states reachable from status.
func NextCertificationStates(status model.CertificationStatus) []model.CertificationStatus {
	var out []model.CertificationStatus
	for _, t := range certTransitions {
		if t.From == status {
			out = append(out, t.To)
		}
	}
	return out
}

// CanTransitionApproach checks whether role may move an approach request
// from one state to another.
func CanTransitionApproach(from, to model.ApproachStatus, role model.Role) error {
	capability, ok := approachMap[approachKey{from, to}]
	if !ok {
		var next []string
		for _, t := range approachTransitions {
			if t.From == from {
				next = append(next, string(t.To))
			}
		}
		return invalid(string(from), string(to), next)
	}
	if !model.Can(role, capability) {
		return fmt.Errorf("role %q may not move an approach request to %s", role, to)
	}
	return nil
}

// CertificationTransitions returns the full table for documentation.
func CertificationTransitions() []CertTransition {
	out := make([]CertTransition, len(certTransitions))
	copy(out, certTransitions)
	return out
}

func invalid(from, to string, next []string) error {
	valid := "none (terminal state)"
	if len(next) > 0 {
		valid = strings.Join(next, ", ")
	}
	return fmt.Errorf("invalid transition from %s to %s; valid transitions from %s: %s", from, to, from, valid)
}
