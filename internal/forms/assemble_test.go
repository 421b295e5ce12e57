package forms

import (
	"encoding/json"
	"mime/multipart"
	"net/textproto"
	"testing"

	"goserveph/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleBusinessRecord(t *testing.T) {
	engine := testEngine(t, types.PermitTypeBusiness)

	values := validBusinessValues()
	values["corp_filipino_percent"] = "60"
	values["capital_investment"] = ""
	values["owner_contact_number"] = "09-171"
	values["operation_from_time"] = "08:00"
	values["operation_from_ampm"] = "am"
	values["operation_to_time"] = "17:00"
	values["home_based"] = "on"
	values["not_in_schema"] = "dropped"

	payload := engine.Assemble(values, map[string][]string{
		"owner_valid_id": {"business/abc_umid.jpg"},
	})

	assert.Equal(t, types.PermitTypeBusiness, payload.PermitType)
	assert.Equal(t, "New", payload.ApplicationType)

	require.Contains(t, payload.Fields, "capital_investment")
	assert.Nil(t, payload.Fields["capital_investment"])
	assert.Equal(t, float64(60), payload.Fields["corp_filipino_percent"])
	assert.Equal(t, "09171", payload.Fields["owner_contact_number"])
	assert.Equal(t, "08:00 AM", payload.Fields["operation_from_time"])
	assert.Equal(t, "AM", payload.Fields["operation_from_ampm"])
	assert.Equal(t, "17:00", payload.Fields["operation_to_time"])
	assert.Equal(t, true, payload.Fields["home_based"])
	assert.Equal(t, "2025-03-14", payload.Fields["application_date"])
	assert.Equal(t, "2025-03-14", payload.Fields["date_submitted"])
	assert.NotContains(t, payload.Fields, "not_in_schema")

	assert.Equal(t, map[string][]string{"owner_valid_id": {"business/abc_umid.jpg"}}, payload.Attachments)
	assert.NotContains(t, payload.Fields, "owner_valid_id")
}

func TestAssembleDropsMalformedOptionalValues(t *testing.T) {
	engine := testEngine(t, types.PermitTypeBusiness)

	values := validBusinessValues()
	values["capital_investment"] = "NaN"
	values["number_of_employees"] = "-Infinity"
	values["total_floor_area"] = "42.5"
	values["owner_email"] = "elena-at-example"
	values["application_date"] = "03/14/2025"

	payload := engine.Assemble(values, nil)

	assert.Nil(t, payload.Fields["capital_investment"])
	assert.Nil(t, payload.Fields["number_of_employees"])
	assert.Equal(t, 42.5, payload.Fields["total_floor_area"])
	assert.Nil(t, payload.Fields["owner_email"])
	assert.Equal(t, "2025-03-14", payload.Fields["application_date"])

	_, err := json.Marshal(payload)
	assert.NoError(t, err)
}

func TestAssembleEmitsEveryDeclaredField(t *testing.T) {
	for _, pt := range types.PermitTypes {
		t.Run(string(pt), func(t *testing.T) {
			engine := testEngine(t, pt)
			payload := engine.Assemble(Values{}, nil)

			for _, f := range engine.Schema().Fields() {
				if f.IsFile() {
					continue
				}
				assert.Contains(t, payload.Fields, f.Name)
			}

			record := payload.Record()
			assert.Contains(t, record, "file_attachments")
			assert.Len(t, record, len(payload.Fields)+1)
		})
	}
}

func TestPayloadApplication(t *testing.T) {
	engine := testEngine(t, types.PermitTypeBusiness)
	payload := engine.Assemble(validBusinessValues(), nil)

	app := payload.Application()
	assert.Equal(t, types.PermitTypeBusiness, app.PermitType)
	assert.Equal(t, "New", app.ApplicationType)
	assert.Equal(t, "Elena Reyes", app.ApplicantName())

	app.Fields["business_name"] = "changed"
	assert.Equal(t, "Aling Nena Sari-Sari Store", payload.Fields["business_name"])
}

func TestCollectAttachments(t *testing.T) {
	engine := testEngine(t, types.PermitTypeBarangay)

	uploads := []Upload{
		BytesUpload("attachments", "cedula.pdf", []byte("%PDF-1.4")),
		BytesUpload("attachments", "id.jpg", []byte{0xff, 0xd8, 0xff}),
		BytesUpload("first_name", "oops.txt", []byte("x")),
		BytesUpload("mystery", "x.txt", []byte("x")),
		BytesUpload("attachments", "", []byte("x")),
	}

	got := engine.CollectAttachments(uploads)
	require.Len(t, got, 1)
	assert.Len(t, got["attachments"], 2)
	assert.Equal(t, 2, got.Count())
	assert.Equal(t, Values{"attachments": "cedula.pdf, id.jpg"}, got.Names())

	business := testEngine(t, types.PermitTypeBusiness)
	got = business.CollectAttachments([]Upload{
		BytesUpload("owner_valid_id", "first.jpg", []byte("a")),
		BytesUpload("owner_valid_id", "second.jpg", []byte("b")),
	})
	require.Len(t, got["owner_valid_id"], 1)
	assert.Equal(t, "first.jpg", got["owner_valid_id"][0].FileName)
}

func TestUploadsFromMultipart(t *testing.T) {
	assert.Nil(t, UploadsFromMultipart(nil))

	form := &multipart.Form{
		File: map[string][]*multipart.FileHeader{
			"registration_doc": {{Filename: "dti.pdf", Size: 10, Header: textproto.MIMEHeader{}}},
			"barangay_clearance": {
				{Filename: "a.pdf", Size: 1},
				{Filename: "b.pdf", Size: 2},
			},
		},
	}

	uploads := UploadsFromMultipart(form)
	require.Len(t, uploads, 3)
	assert.Equal(t, "barangay_clearance", uploads[0].Field)
	assert.Equal(t, "b.pdf", uploads[1].FileName)
	assert.Equal(t, "registration_doc", uploads[2].Field)
	assert.Equal(t, int64(10), uploads[2].Size)
}

func TestSafeFileName(t *testing.T) {
	tests := map[string]string{
		"permit.pdf":              "permit.pdf",
		"../../etc/passwd":        "passwd",
		`C:\Users\juan\scan 1.jpg`: "scan_1.jpg",
		"résumé (final).docx":     "r_sum_final_.docx",
		"...":                     "file",
		"":                        "file",
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeFileName(in), in)
	}
}

func TestValuesFromForm(t *testing.T) {
	values := ValuesFromForm(map[string][]string{
		"system_types": {"CCTV", " ", "Fire Alarm"},
		"owner_name":   {"  Ana Cruz "},
	})
	assert.Equal(t, Values{"system_types": "CCTV, Fire Alarm", "owner_name": "Ana Cruz"}, values)

	merged := MergeValues(Values{"a": "1", "b": "2"}, Values{"b": "3"})
	assert.Equal(t, Values{"a": "1", "b": "3"}, merged)
	assert.Equal(t, "3", merged.Form().Get("b"))
	assert.Equal(t, "09171", DigitsOnly("+(09) 1-7.1"))
}
