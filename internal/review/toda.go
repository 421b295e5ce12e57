package review

import (
	"fmt"
	"strings"

	"goserveph/pkg/types"
)

// Barangays and landmarks that place an application in Caloocan.
var caloocanKeywords = []string{
	"caloocan", "bagong barrio", "bagumbong", "deparo", "camarin", "tala", "monumento", "marilao",
}

// Classification is a best-effort guess that a franchise application belongs
// to a TODA. Staff can override it per application.
type Classification struct {
	Classified bool     `json:"classified"`
	Reasons    []string `json:"reasons"`
}

func lowerField(app *types.Application, names ...string) string {
	for _, name := range names {
		if v := app.StringField(name); v != "" {
			return strings.ToLower(v)
		}
	}
	return ""
}

// ClassifyTODA matches free text in the application against TODA and
// tricycle hints. Each hint that fires adds a reason.
func ClassifyTODA(app *types.Application) Classification {
	reasons := []string{}

	name := lowerField(app, "name")
	toda := lowerField(app, "toda_name")
	applicant := lowerField(app, "contact_person", "full_name", "first_name")
	location := lowerField(app, "location", "home_address", "address", "barangay_of_operation")
	route := lowerField(app, "route_zone")
	vehicle := lowerField(app, "vehicle_type", "make_brand")

	if strings.Contains(toda, "toda") {
		before, _, _ := strings.Cut(toda, "toda")
		reasons = append(reasons, fmt.Sprintf("toda_name contains %q", strings.TrimSpace(before)))
	}
	if strings.Contains(name, "toda") {
		reasons = append(reasons, fmt.Sprintf("name contains %q", name))
	}
	if strings.Contains(applicant, "toda") {
		reasons = append(reasons, fmt.Sprintf("applicant contains %q", applicant))
	}

	if strings.Contains(vehicle, "tricycle") || strings.Contains(vehicle, "trike") {
		reasons = append(reasons, "vehicle indicates tricycle/trike")
	}
	if strings.Contains(route, "terminal") {
		reasons = append(reasons, `route contains "terminal"`)
	}

	combined := strings.Join([]string{toda, name, applicant, location, route}, " ")
	if strings.Contains(combined, "toda") {
		reasons = append(reasons, `combined fields include "toda"`)
	}
	if strings.Contains(combined, "tricycle") || strings.Contains(combined, "trike") {
		reasons = append(reasons, "combined fields include tricycle/trike")
	}

	return Classification{Classified: len(reasons) > 0, Reasons: reasons}
}

// LocatedInCaloocan looks for Caloocan place names in the address,
// operation area and staff notes.
func LocatedInCaloocan(app *types.Application) bool {
	parts := []string{
		lowerField(app, "location"),
		lowerField(app, "home_address", "contact_address", "address"),
		lowerField(app, "barangay_of_operation", "route_zone"),
		lowerField(app, "internal_notes"),
	}
	text := strings.Join(parts, " ")

	for _, k := range caloocanKeywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// ResolveTODA applies a staff override when one exists; otherwise an
// application counts as TODA when classified and located in Caloocan.
func ResolveTODA(app *types.Application, override *bool) types.TODAStatus {
	c := ClassifyTODA(app)
	status := types.TODAStatus{
		Detected: c.Classified,
		Reasons:  c.Reasons,
		Caloocan: LocatedInCaloocan(app),
		Override: override,
	}

	if override != nil {
		status.Final = *override
	} else {
		status.Final = status.Detected && status.Caloocan
	}

	return status
}
