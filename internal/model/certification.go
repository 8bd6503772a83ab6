package model

import "time"

// CertificationStatus is the lifecycle state of an application.
type CertificationStatus string

const (
	CertPending   CertificationStatus = "Pending"
	CertCertified CertificationStatus = "Certified"
	CertRevoked   CertificationStatus = "Revoked"
	CertRejected  CertificationStatus = "Rejected"
)

// ParseCertificationStatus validates a status coming from an evaluator.
func ParseCertificationStatus(s string) (CertificationStatus, bool) {
	switch st := CertificationStatus(s); st {
	case CertPending, CertCertified, CertRevoked, CertRejected:
		return st, true
	}
	return "", false
}

// ComplianceStatus is the evaluator's compliance verdict.
type ComplianceStatus string

const (
	ComplianceCompliant    ComplianceStatus = "Compliant"
	ComplianceNonCompliant ComplianceStatus = "Non-Compliant"
	ComplianceUnderReview  ComplianceStatus = "Under Review"
)

func ParseComplianceStatus(s string) (ComplianceStatus, bool) {
	switch cs := ComplianceStatus(s); cs {
	case ComplianceCompliant, ComplianceNonCompliant, ComplianceUnderReview:
		return cs, true
	}
	return "", false
}

// CertificationValidity is how long a certification stays valid after it is granted.
const CertificationValidity = 365 * 24 * time.Hour

// Certification is a recycler's application and, once granted, credential.
// The recycler is recorded by email/name snapshot rather than by id.
type Certification struct {
	ID                 uint64              `json:"id"`
	RecyclerEmail      string              `json:"recyclerEmail"`
	RecyclerName       string              `json:"recyclerName"`
	BusinessName       string              `json:"businessName"`
	ActivityType       string              `json:"activityType"`
	DocumentName       string              `json:"documentName"`
	Status             CertificationStatus `json:"status"`
	ComplianceStatus   ComplianceStatus    `json:"complianceStatus"`
	AppliedAt          time.Time           `json:"appliedAt"`
	CertifiedAt        *time.Time          `json:"certifiedAt,omitempty"`
	ValidUntil         *time.Time          `json:"validUntil,omitempty"`
	LastEvaluationDate time.Time           `json:"lastEvaluationDate"`
	EvaluatorID        *uint64             `json:"evaluatorId,omitempty"`
	EvaluatorNotes     *string             `json:"evaluatorNotes,omitempty"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}
