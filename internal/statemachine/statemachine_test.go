package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ecowaste-cert/internal/model"
)

func TestCertificationTransitions(t *testing.T) {
	cases := []struct {
		from, to model.CertificationStatus
		ok       bool
	}{
		{model.CertPending, model.CertCertified, true},
		{model.CertPending, model.CertRejected, true},
		{model.CertPending, model.CertRevoked, true},
		{model.CertCertified, model.CertRevoked, true},
		{model.CertCertified, model.CertPending, false},
		{model.CertRevoked, model.CertCertified, false},
		{model.CertRejected, model.CertPending, false},
		{model.CertPending, model.CertPending, false},
	}
	for _, tc := range cases {
		err := CanTransitionCertification(tc.from, tc.to, model.RoleAdmin)
		if tc.ok {
			assert.NoError(t, err, "%s -> %s", tc.from, tc.to)
		} else {
			assert.Error(t, err, "%s -> %s", tc.from, tc.to)
		}
	}
}

func TestCertificationTransitionRequiresEvaluator(t *testing.T) {
	err := CanTransitionCertification(model.CertPending, model.CertCertified, model.RoleRecycler)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recycler")
}

func TestTerminalStatesHaveNoSuccessors(t *testing.T) {
	assert.Empty(t, NextCertificationStates(model.CertRejected))
	assert.Empty(t, NextCertificationStates(model.CertRevoked))
	assert.ElementsMatch(t,
		[]model.CertificationStatus{model.CertCertified, model.CertRejected, model.CertRevoked},
		NextCertificationStates(model.CertPending))

	err := CanTransitionCertification(model.CertRevoked, model.CertCertified, model.RoleAdmin)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "terminal")
}

func TestApproachTransitions(t *testing.T) {
	assert.NoError(t, CanTransitionApproach(model.ApproachPending, model.ApproachAccepted, model.RoleWasteCollector))
	assert.NoError(t, CanTransitionApproach(model.ApproachAccepted, model.ApproachCompleted, model.RoleWasteCollector))
	assert.Error(t, CanTransitionApproach(model.ApproachPending, model.ApproachCompleted, model.RoleWasteCollector))
	assert.Error(t, CanTransitionApproach(model.ApproachPending, model.ApproachAccepted, model.RoleRecycler))
	assert.Error(t, CanTransitionApproach(model.ApproachRejected, model.ApproachAccepted, model.RoleWasteCollector))
}
