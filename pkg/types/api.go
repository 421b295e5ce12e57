package types

// SubmitResult is the submission boundary's response body.
type SubmitResult struct {
	Success       bool              `json:"success"`
	ApplicationID string            `json:"application_id,omitempty"`
	Message       string            `json:"message"`
	Step          int               `json:"step,omitempty"`
	Errors        map[string]string `json:"errors,omitempty"`
}

// StepValidation reports one step. Errors block the step; Warnings name
// optional fields whose value will be dropped.
type StepValidation struct {
	Step     int               `json:"step"`
	Valid    bool              `json:"valid"`
	Errors   map[string]string `json:"errors"`
	Warnings map[string]string `json:"warnings,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type AttachmentLink struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type ApplicationDetail struct {
	Application *Application                `json:"application"`
	Attachments map[string][]AttachmentLink `json:"attachments"`
	TODA        *TODAStatus                 `json:"toda,omitempty"`
}

type ApplicationList struct {
	PermitType   PermitType           `json:"permit_type"`
	Applications []ApplicationSummary `json:"applications"`
	Counts       StatusCounts         `json:"counts"`
}

// ListFilter is decoded from the listing query string.
type ListFilter struct {
	Status          string `form:"status,omitempty"`
	ApplicationType string `form:"application_type,omitempty"`
	TODA            *bool  `form:"toda,omitempty"`
	Search          string `form:"search,omitempty"`
}

type TransitionRequest struct {
	Status  string `form:"status"`
	Comment string `form:"comment"`
}

type OfficerRequest struct {
	AssignedOfficer string `form:"assigned_officer"`
}

// TODAOverrideRequest.Override is "true", "false" or "clear".
type TODAOverrideRequest struct {
	Override string `form:"override"`
}

type StaffLoginRequest struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}
