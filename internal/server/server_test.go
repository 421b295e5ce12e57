package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"goserveph/internal/forms"
	"goserveph/internal/review"
	"goserveph/internal/storage"
	"goserveph/internal/store"
	"goserveph/pkg/types"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testService struct {
	*Service
	apps *store.MemoryApplicationRepository
}

func newTestService(t *testing.T) *testService {
	t.Helper()

	logger, _ := test.NewNullLogger()

	registry, err := forms.LoadRegistry()
	require.NoError(t, err)

	files, err := storage.NewDiskStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)

	apps := store.NewMemoryApplicationRepository()
	intake := forms.NewIntake(logger, registry, apps, files)
	workflow := review.NewWorkflow(logger, apps, store.NewMemoryReviewEventRepository(), store.NewMemoryTODAOverrideRepository())

	config := &types.Config{StaffGroup: "staff", MaxUploadMB: 1}

	return &testService{
		Service: New(config, logger, intake, workflow, files, nil, nil, ""),
		apps:    apps,
	}
}

func (ts *testService) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func multipartRequest(t *testing.T, target string, values map[string]string, files map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range values {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, name := range files {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("contents of " + name))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func formRequest(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func businessFields() map[string]string {
	return map[string]string{
		"application_type":     "new",
		"business_name":        "Aling Nena Sari-Sari Store",
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
	}
}

func businessFiles() map[string]string {
	return map[string]string{
		"owner_valid_id":     "umid.jpg",
		"barangay_clearance": "clearance.pdf",
		"registration_doc":   "dti.pdf",
	}
}

func franchiseFields(toda string) map[string]string {
	return map[string]string{
		"application_type":      "New",
		"full_name":             "Jose Dela Cruz",
		"contact_number":        "09181234567",
		"home_address":          "Phase 1, Bagong Silang, Caloocan City",
		"vehicle_type":          "Tricycle",
		"make_brand":            "Honda",
		"plate_number":          "ABC 1234",
		"motor_number":          "M-1",
		"chassis_number":        "C-1",
		"toda_name":             toda,
		"route_zone":            "Zone 2 terminal",
		"barangay_of_operation": "Bagong Silang",
	}
}

func franchiseFiles() map[string]string {
	return map[string]string{
		"proof_of_residency": "meralco.pdf",
		"barangay_clearance": "clearance.pdf",
		"lto_or_cr":          "orcr.pdf",
		"drivers_license":    "license.jpg",
	}
}

func (ts *testService) submit(t *testing.T, pt string, values, files map[string]string) types.SubmitResult {
	t.Helper()
	rec := ts.do(t, multipartRequest(t, "/api/permits/"+pt+"/applications", values, files))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[types.SubmitResult](t, rec)
}

func TestHealthAndPermitTypes(t *testing.T) {
	ts := newTestService(t)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/permits", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	permits := decodeBody[[]permitTypeInfo](t, rec)
	require.Len(t, permits, 4)
	assert.Equal(t, "business", permits[0].PermitType)
	assert.Equal(t, 5, permits[0].Steps)
}

func TestGetSchema(t *testing.T) {
	ts := newTestService(t)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/permits/Franchise/schema", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "toda_name")

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/permits/fishing/schema", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Unknown permit type.", decodeBody[types.ErrorResponse](t, rec).Message)
}

func TestValidateStep(t *testing.T) {
	ts := newTestService(t)

	t.Run("missing required fields", func(t *testing.T) {
		rec := ts.do(t, formRequest("/api/permits/business/steps/2/validate", url.Values{
			"owner_first_name":     {"Elena"},
			"owner_contact_number": {"0917abc"},
		}))
		require.Equal(t, http.StatusOK, rec.Code)

		result := decodeBody[types.StepValidation](t, rec)
		assert.False(t, result.Valid)
		assert.Contains(t, result.Errors, "owner_last_name")
		assert.Contains(t, result.Errors, "owner_valid_id")
		assert.Contains(t, result.Errors, "owner_contact_number")
	})

	t.Run("uploads satisfy file fields", func(t *testing.T) {
		rec := ts.do(t, multipartRequest(t, "/api/permits/business/steps/4/validate", map[string]string{}, map[string]string{
			"barangay_clearance": "clearance.pdf",
			"registration_doc":   "dti.pdf",
		}))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decodeBody[types.StepValidation](t, rec).Valid)
	})

	t.Run("malformed optional fields only warn", func(t *testing.T) {
		rec := ts.do(t, formRequest("/api/permits/business/steps/3/validate", url.Values{
			"business_address":   {"14 Mabini St., Caloocan City"},
			"barangay":           {"Bagong Barrio"},
			"capital_investment": {"NaN"},
			"total_floor_area":   {"Inf"},
		}))
		require.Equal(t, http.StatusOK, rec.Code)

		result := decodeBody[types.StepValidation](t, rec)
		assert.True(t, result.Valid)
		assert.Empty(t, result.Errors)
		assert.Equal(t, "Capital Investment must be a number.", result.Warnings["capital_investment"])
		assert.Contains(t, result.Warnings, "total_floor_area")
	})

	t.Run("step must be a number", func(t *testing.T) {
		rec := ts.do(t, formRequest("/api/permits/business/steps/two/validate", url.Values{}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSubmitApplication(t *testing.T) {
	ts := newTestService(t)

	result := ts.submit(t, "business", businessFields(), businessFiles())
	assert.True(t, result.Success)
	assert.True(t, strings.HasPrefix(result.ApplicationID, "BUS-"), result.ApplicationID)
	assert.Equal(t, "Business permit application submitted successfully.", result.Message)

	app, err := ts.apps.Application(t.Context(), result.ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, app.Status)
	assert.Equal(t, "New", app.ApplicationType)
	assert.Len(t, app.Attachments["owner_valid_id"], 1)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/applications/"+result.ApplicationID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decodeBody[types.ApplicationDetail](t, rec)
	assert.Nil(t, detail.TODA)
	links := detail.Attachments["barangay_clearance"]
	require.Len(t, links, 1)
	require.True(t, strings.HasPrefix(links[0].URL, "/uploads/business/"), links[0].URL)

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, links[0].URL, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "contents of clearance.pdf", rec.Body.String())
}

func TestSubmitApplicationNonFiniteNumber(t *testing.T) {
	ts := newTestService(t)

	values := businessFields()
	values["capital_investment"] = "NaN"
	values["number_of_employees"] = "+Inf"
	values["owner_email"] = "elena-at-example"

	result := ts.submit(t, "business", values, businessFiles())

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/applications/"+result.ApplicationID, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	detail := decodeBody[types.ApplicationDetail](t, rec)
	require.Contains(t, detail.Application.Fields, "capital_investment")
	assert.Nil(t, detail.Application.Fields["capital_investment"])
	assert.Nil(t, detail.Application.Fields["number_of_employees"])
	assert.Nil(t, detail.Application.Fields["owner_email"])

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/permits/business/applications", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestSubmitApplicationInvalid(t *testing.T) {
	ts := newTestService(t)

	values := businessFields()
	delete(values, "business_name")
	files := businessFiles()
	delete(files, "registration_doc")

	rec := ts.do(t, multipartRequest(t, "/api/permits/business/applications", values, files))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	result := decodeBody[types.SubmitResult](t, rec)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Step)
	assert.Contains(t, result.Errors, "business_name")
	assert.Contains(t, result.Errors, "registration_doc")

	apps, err := ts.apps.Applications(t.Context(), types.PermitTypeBusiness, types.ApplicationQuery{})
	require.NoError(t, err)
	assert.Empty(t, apps)
}

func TestSubmitApplicationTooLarge(t *testing.T) {
	ts := newTestService(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("owner_valid_id", "huge.jpg")
	require.NoError(t, err)
	_, err = io.CopyN(fw, zeroReader{}, 2<<20)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/permits/business/applications", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := ts.do(t, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

func TestReviewFlow(t *testing.T) {
	ts := newTestService(t)

	todaID := ts.submit(t, "franchise", franchiseFields("Bagong Silang TODA"), franchiseFiles()).ApplicationID
	plain := franchiseFields("")
	plain["vehicle_type"] = "Jeepney"
	plain["route_zone"] = "Monumento - Malabon"
	plainID := ts.submit(t, "franchise", plain, franchiseFiles()).ApplicationID

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/permits/franchise/applications?toda=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[types.ApplicationList](t, rec)
	require.Len(t, list.Applications, 1)
	assert.Equal(t, todaID, list.Applications[0].ID)
	assert.Equal(t, "Jose Dela Cruz", list.Applications[0].ApplicantName)
	assert.Equal(t, 1, list.Counts.Pending)

	rec = ts.do(t, formRequest("/api/applications/"+todaID+"/officer", url.Values{"assigned_officer": {"M. Santos"}}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "M. Santos", *decodeBody[types.Application](t, rec).AssignedOfficer)

	rec = ts.do(t, formRequest("/api/applications/"+todaID+"/status", url.Values{
		"status":  {"for_compliance"},
		"comment": {"Missing TODA endorsement."},
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	app := decodeBody[types.Application](t, rec)
	assert.Equal(t, types.StatusForCompliance, app.Status)
	assert.Equal(t, "Missing TODA endorsement.", *app.ReviewComments)

	rec = ts.do(t, formRequest("/api/applications/"+plainID+"/status", url.Values{"status": {"Approved"}}))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, formRequest("/api/applications/"+plainID+"/status", url.Values{"status": {"archived"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/permits/franchise/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.StatusCounts{Total: 2, Approved: 1, ForCompliance: 1}, decodeBody[types.StatusCounts](t, rec))

	rec = ts.do(t, formRequest("/api/applications/"+plainID+"/toda", url.Values{"override": {"true"}}))
	require.Equal(t, http.StatusOK, rec.Code)
	toda := decodeBody[types.TODAStatus](t, rec)
	assert.False(t, toda.Detected)
	assert.True(t, toda.Final)

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/permits/franchise/applications?toda=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[types.ApplicationList](t, rec).Applications, 2)

	rec = ts.do(t, formRequest("/api/applications/"+plainID+"/toda", url.Values{"override": {"maybe"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/applications/"+todaID+"/events", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	events := decodeBody[[]types.ReviewEvent](t, rec)
	require.Len(t, events, 2)
	assert.Equal(t, types.ReviewActionAssign, events[0].Action)
	assert.Equal(t, types.ReviewActionTransition, events[1].Action)
}

func TestTODAOverrideRejectedForOtherPermits(t *testing.T) {
	ts := newTestService(t)

	id := ts.submit(t, "business", businessFields(), businessFiles()).ApplicationID

	rec := ts.do(t, formRequest("/api/applications/"+id+"/toda", url.Values{"override": {"true"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApplicationNotFound(t *testing.T) {
	ts := newTestService(t)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/applications/BUS-NOPE", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, formRequest("/api/applications/BUS-NOPE/status", url.Values{"status": {"Approved"}}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequireStaff(t *testing.T) {
	ts := newTestService(t)
	ts.jwksCache = &jwk.Cache{}

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/permits/business/applications", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/permits/business/applications", nil)
	req.AddCookie(&http.Cookie{Name: cookieAccessTokenName, Value: "tampered"})
	rec = ts.do(t, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// uploaded documents are staff-only
	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/uploads/business/BUS-1/umid.jpg", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// public routes stay open
	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/permits/business/schema", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStaffLoginWithoutCognito(t *testing.T) {
	ts := newTestService(t)

	rec := ts.do(t, formRequest("/staff/login", url.Values{"email": {"a@b.ph"}, "password": {"x"}}))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStripTrailingSlash(t *testing.T) {
	ts := newTestService(t)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/permits/", nil))
	assert.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "/api/permits", rec.Header().Get("Location"))
}
