package seed

import (
	"context"
	"fmt"

	"goserveph/internal/forms"
	"goserveph/internal/review"
	"goserveph/pkg/types"

	"github.com/sirupsen/logrus"
)

// placeholder attachment body; the PDF magic keeps content sniffing honest
var placeholderPDF = []byte("%PDF-1.4\n% goserveph demo attachment\n%%EOF\n")

type demoApplication struct {
	PermitType types.PermitType
	Values     forms.Values
	Files      map[string][]string

	// review activity applied after submission
	Officer string
	Status  types.ApplicationStatus
	Comment string
}

var demoApplications = []demoApplication{
	{
		PermitType: types.PermitTypeBusiness,
		Values: forms.Values{
			"application_type":     "New",
			"business_name":        "[seed] Aling Nena Sari-Sari Store",
			"business_nature":      "Retail",
			"ownership_type":       "Sole Proprietorship",
			"owner_first_name":     "Elena",
			"owner_last_name":      "Reyes",
			"owner_contact_number": "0917-123-4567",
			"owner_address":        "12 Mabini St., Caloocan City",
			"business_address":     "14 Mabini St., Caloocan City",
			"barangay":             "Bagong Barrio",
			"declarant_name":       "Elena Reyes",
			"agree_terms":          "true",
		},
		Files: map[string][]string{
			"owner_valid_id":     {"umid.pdf"},
			"barangay_clearance": {"barangay-clearance.pdf"},
			"registration_doc":   {"dti-registration.pdf"},
		},
		Officer: "M. Santos",
		Status:  types.StatusApproved,
		Comment: "Complete requirements.",
	},
	{
		PermitType: types.PermitTypeFranchise,
		Values: forms.Values{
			"application_type":      "New",
			"full_name":             "[seed] Jose Dela Cruz",
			"contact_number":        "09181234567",
			"home_address":          "Phase 1, Bagong Silang, Caloocan City",
			"vehicle_type":          "Tricycle",
			"make_brand":            "Honda",
			"plate_number":          "ABC 1234",
			"motor_number":          "KF12E-100234",
			"chassis_number":        "MH1KF1234K100234",
			"year_model":            "2019",
			"toda_name":             "Bagong Silang TODA",
			"route_zone":            "Zone 2 terminal",
			"barangay_of_operation": "Bagong Silang",
		},
		Files: map[string][]string{
			"proof_of_residency": {"meralco-bill.pdf"},
			"barangay_clearance": {"barangay-clearance.pdf"},
			"lto_or_cr":          {"or-cr.pdf"},
			"drivers_license":    {"license.pdf"},
		},
	},
	{
		PermitType: types.PermitTypeFranchise,
		Values: forms.Values{
			"application_type":      "Renewal",
			"full_name":             "[seed] Ramon Bautista",
			"contact_number":        "0918 765 4321",
			"home_address":          "Blk 4, Camarin, Caloocan City",
			"vehicle_type":          "Jeepney",
			"make_brand":            "Sarao",
			"plate_number":          "PUJ 778",
			"motor_number":          "4D56-7781",
			"chassis_number":        "SAR-7781",
			"route_zone":            "Monumento - Malabon",
			"barangay_of_operation": "Camarin",
		},
		Files: map[string][]string{
			"proof_of_residency": {"water-bill.pdf"},
			"barangay_clearance": {"barangay-clearance.pdf"},
			"lto_or_cr":          {"or-cr.pdf"},
			"drivers_license":    {"license.pdf"},
		},
		Status:  types.StatusForCompliance,
		Comment: "Insurance certificate missing.",
	},
	{
		PermitType: types.PermitTypeBarangay,
		Values: forms.Values{
			"application_type":  "New",
			"first_name":        "[seed] Maria",
			"last_name":         "Garcia",
			"contact_number":    "09271112222",
			"birth_date":        "1990-06-12",
			"gender":            "Female",
			"civil_status":      "Married",
			"nationality":       "Filipino",
			"house_no":          "21",
			"street":            "Rizal Ave.",
			"barangay":          "Tala",
			"city_municipality": "Caloocan City",
			"province":          "Metro Manila",
			"purpose":           "Employment",
			"id_type":           "PhilSys",
			"id_number":         "1234-5678-9012",
			"clearance_fee":     "100",
			"receipt_number":    "OR-0042",
			"confirm_details":   "true",
		},
		Files: map[string][]string{
			"attachments": {"cedula.pdf", "philsys.pdf"},
		},
	},
	{
		PermitType: types.PermitTypeBuilding,
		Values: forms.Values{
			"application_type": "Electrical",
			"owner_name":       "[seed] Carlos Mendoza",
			"owner_contact":    "0920-333-4444",
			"property_address": "88 Deparo Rd., Caloocan City",
			"engineer_name":    "Engr. Liza Ramos",
			"engineer_role":    "Professional Electrical Engineer",
			"prc_id":           "PEE-0099812",
			"ptr_number":       "PTR-2025-1181",
			"prc_expiry":       "2027-01-31",
			"plans_uploaded":   "yes",
		},
		Files: map[string][]string{
			"attachments": {"electrical-plan.pdf", "bill-of-materials.pdf"},
		},
		Officer: "A. Villanueva",
		Status:  types.StatusRejected,
		Comment: "Plans are unsigned.",
	},
}

func (d demoApplication) uploads() []forms.Upload {
	var uploads []forms.Upload
	for field, names := range d.Files {
		for _, name := range names {
			uploads = append(uploads, forms.BytesUpload(field, name, placeholderPDF))
		}
	}
	return uploads
}

// SeedApplications submits one demo application per entry through the
// same intake path the portal uses, then applies any review activity.
// workflow may be nil to leave every application Pending.
func SeedApplications(ctx context.Context, logger *logrus.Logger, intake *forms.Intake, workflow *review.Workflow) ([]*types.Application, error) {

	created := make([]*types.Application, 0, len(demoApplications))

	for _, demo := range demoApplications {
		app, err := intake.Submit(ctx, demo.PermitType, demo.Values.Clone(), demo.uploads())
		if err != nil {
			return created, fmt.Errorf("failed to seed %s application: %w", demo.PermitType, err)
		}

		if workflow != nil {
			id := app.ID
			if demo.Officer != "" {
				app, err = workflow.AssignOfficer(ctx, id, demo.Officer, "seed")
				if err != nil {
					return created, fmt.Errorf("failed to assign officer to %s: %w", id, err)
				}
			}
			if demo.Status != "" {
				app, err = workflow.Transition(ctx, id, demo.Status, demo.Comment, "seed")
				if err != nil {
					return created, fmt.Errorf("failed to transition %s: %w", id, err)
				}
			}
		}

		logger.WithFields(logrus.Fields{
			"application_id": app.ID,
			"permit_type":    app.PermitType,
			"status":         app.Status,
		}).Info("seeded application")

		created = append(created, app)
	}

	return created, nil
}
