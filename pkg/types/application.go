package types

import (
	"fmt"
	"strings"
	"time"
)

type PermitType string

const (
	PermitTypeBusiness  PermitType = "business"
	PermitTypeFranchise PermitType = "franchise"
	PermitTypeBarangay  PermitType = "barangay"
	PermitTypeBuilding  PermitType = "building"
)

var PermitTypes = []PermitType{
	PermitTypeBusiness,
	PermitTypeFranchise,
	PermitTypeBarangay,
	PermitTypeBuilding,
}

// ParsePermitType accepts any casing of a known permit type.
func ParsePermitType(s string) (PermitType, error) {
	candidate := PermitType(strings.ToLower(strings.TrimSpace(s)))
	for _, pt := range PermitTypes {
		if pt == candidate {
			return pt, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownPermitType, s)
}

func (p PermitType) Label() string {
	switch p {
	case PermitTypeBusiness:
		return "Business Permit"
	case PermitTypeFranchise:
		return "Franchise Permit"
	case PermitTypeBarangay:
		return "Barangay Clearance"
	case PermitTypeBuilding:
		return "Building Permit"
	default:
		return "Unknown"
	}
}

// Prefix starts every application reference of this permit type.
func (p PermitType) Prefix() string {
	switch p {
	case PermitTypeBusiness:
		return "BUS"
	case PermitTypeFranchise:
		return "FRN"
	case PermitTypeBarangay:
		return "BRGY"
	case PermitTypeBuilding:
		return "BLDG"
	default:
		return "APP"
	}
}

type ApplicationStatus string

const (
	StatusPending       ApplicationStatus = "Pending"
	StatusApproved      ApplicationStatus = "Approved"
	StatusRejected      ApplicationStatus = "Rejected"
	StatusForCompliance ApplicationStatus = "For Compliance"
)

var ApplicationStatuses = []ApplicationStatus{
	StatusPending,
	StatusApproved,
	StatusRejected,
	StatusForCompliance,
}

// ParseApplicationStatus is case-insensitive and treats "_" and "-" as spaces,
// so "for_compliance" resolves to StatusForCompliance.
func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	normalized := strings.NewReplacer("_", " ", "-", " ").Replace(strings.TrimSpace(s))
	for _, status := range ApplicationStatuses {
		if strings.EqualFold(string(status), normalized) {
			return status, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

func (s ApplicationStatus) Valid() bool {
	for _, status := range ApplicationStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// Application is one citizen submission. Fields holds the assembled flat record
// for the permit type; every declared non-file field is present, blank optional
// values are nil.
type Application struct {
	ID              string              `db:"id" json:"id"`
	PermitType      PermitType          `db:"permit_type" json:"permit_type"`
	ApplicationType string              `db:"application_type" json:"application_type"`
	Fields          map[string]any      `db:"fields" json:"fields"`
	Attachments     map[string][]string `db:"file_attachments" json:"file_attachments"`
	Status          ApplicationStatus   `db:"status" json:"status"`
	AssignedOfficer *string             `db:"assigned_officer" json:"assigned_officer"`
	ReviewComments  *string             `db:"review_comments" json:"review_comments"`
	SubmittedAt     time.Time           `db:"submitted_at" json:"submitted_at"`
	LastUpdated     time.Time           `db:"last_updated" json:"last_updated"`
}

var applicantNameFields = [][]string{
	{"full_name"},
	{"first_name", "middle_initial", "last_name", "suffix"},
	{"owner_first_name", "owner_last_name"},
	{"owner_name"},
	{"business_name"},
}

// ApplicantName picks the first populated name field set for display.
func (a *Application) ApplicantName() string {
	for _, group := range applicantNameFields {
		parts := make([]string, 0, len(group))
		for _, name := range group {
			if v := a.StringField(name); v != "" {
				parts = append(parts, v)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}
	}
	return ""
}

// StringField returns the trimmed string form of a field, or "" when the
// field is absent or null.
func (a *Application) StringField(name string) string {
	v, ok := a.Fields[name]
	if !ok || v == nil {
		return ""
	}

	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func (a *Application) Summary() ApplicationSummary {
	return ApplicationSummary{
		ID:              a.ID,
		PermitType:      a.PermitType,
		ApplicationType: a.ApplicationType,
		ApplicantName:   a.ApplicantName(),
		Status:          a.Status,
		AssignedOfficer: a.AssignedOfficer,
		SubmittedAt:     a.SubmittedAt,
		LastUpdated:     a.LastUpdated,
	}
}

type ApplicationSummary struct {
	ID              string            `json:"id"`
	PermitType      PermitType        `json:"permit_type"`
	ApplicationType string            `json:"application_type"`
	ApplicantName   string            `json:"applicant_name"`
	Status          ApplicationStatus `json:"status"`
	AssignedOfficer *string           `json:"assigned_officer"`
	TODA            *bool             `json:"toda,omitempty"`
	SubmittedAt     time.Time         `json:"submitted_at"`
	LastUpdated     time.Time         `json:"last_updated"`
}

// ApplicationQuery is the subset of listing filters the repositories apply.
type ApplicationQuery struct {
	Status          ApplicationStatus
	ApplicationType string
}

type StatusCounts struct {
	Total         int `json:"total"`
	Approved      int `json:"approved"`
	Rejected      int `json:"rejected"`
	Pending       int `json:"pending"`
	ForCompliance int `json:"for_compliance"`
}

type ReviewAction string

const (
	ReviewActionAssign       ReviewAction = "assign"
	ReviewActionTransition   ReviewAction = "transition"
	ReviewActionTODAOverride ReviewAction = "toda_override"
)

// ReviewEvent is one entry in the append-only staff action log.
type ReviewEvent struct {
	ID            string             `db:"id" json:"id"`
	ApplicationID string             `db:"application_id" json:"application_id"`
	Action        ReviewAction       `db:"action" json:"action"`
	Status        *ApplicationStatus `db:"status" json:"status,omitempty"`
	Comment       *string            `db:"comment" json:"comment,omitempty"`
	Actor         *string            `db:"actor" json:"actor,omitempty"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
}

type TODAStatus struct {
	Detected bool     `json:"detected"`
	Reasons  []string `json:"reasons"`
	Caloocan bool     `json:"caloocan"`
	Override *bool    `json:"override"`
	Final    bool     `json:"final"`
}
