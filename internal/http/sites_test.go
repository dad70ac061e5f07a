package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"sitedir-backend-go/internal/config"
	"sitedir-backend-go/internal/models"
	"sitedir-backend-go/internal/services"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

const testSiteID = "11111111-1111-1111-1111-111111111111"

func newTestServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = mockDB.Close() })
	cfg := config.Config{
		AdminPassword:       "hunter2",
		SessionSecret:       "test-secret",
		SessionTTLSeconds:   28800,
		ProbeTimeoutSeconds: 1,
		ProbeConcurrency:    4,
	}
	return NewServer(sqlx.NewDb(mockDB, "sqlmock"), cfg, services.NewEventHub()), mock
}

func adminRequest(s *Server, method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: s.Sessions.Credential()})
	return req
}

func siteRow(site models.Site) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "name", "url", "logo_url", "light_logo_url", "dark_logo_url",
		"categories", "tags", "status", "live", "last_checked", "created_at", "updated_at",
	})
	return rows.AddRow(site.ID, site.Name, site.URL, site.LogoURL, site.LightLogoURL,
		site.DarkLogoURL, site.Categories, site.Tags, site.Status, site.Live,
		site.LastChecked, site.CreatedAt, site.UpdatedAt)
}

func emptySiteRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "url", "logo_url", "light_logo_url", "dark_logo_url",
		"categories", "tags", "status", "live", "last_checked", "created_at", "updated_at",
	})
}

func testSite() models.Site {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return models.Site{
		ID:         testSiteID,
		Name:       "Acme",
		URL:        "https://acme.test",
		Categories: []byte(`[]`),
		Tags:       []byte(`[]`),
		Status:     services.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestListSitesUnpaginatedReturnsArray(t *testing.T) {
	s, mock := newTestServer(t)
	sq := services.BuildSiteQuery("", "", "", "")
	listQuery := fmt.Sprintf(`SELECT %s FROM sites %s %s`, siteColumns, sq.Where, sq.Order)
	mock.ExpectQuery(regexp.QuoteMeta(listQuery)).WillReturnRows(siteRow(testSite()))

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sites", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	items := []SiteDTO{}
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("expected a bare array: %v", err)
	}
	if len(items) != 1 || items[0].ID != testSiteID || items[0].Status != "pending" {
		t.Fatalf("unexpected items: %#v", items)
	}
	if items[0].Live != nil {
		t.Fatalf("live should be omitted before the first probe, got %v", *items[0].Live)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestListSitesPaginated(t *testing.T) {
	s, mock := newTestServer(t)
	sq := services.BuildSiteQuery("approved", "", "", "")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM sites "+sq.Where)).
		WithArgs("approved").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))
	listQuery := fmt.Sprintf(`SELECT %s FROM sites %s %s LIMIT $2 OFFSET $3`, siteColumns, sq.Where, sq.Order)
	mock.ExpectQuery(regexp.QuoteMeta(listQuery)).
		WithArgs("approved", 12, 12).
		WillReturnRows(siteRow(testSite()))

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sites?status=approved&page=1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	resp := SiteListResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 25 || resp.Page != 1 || resp.PageSize != 12 || len(resp.Items) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestListSitesPageBeyondLastIsEmptyWithTotal(t *testing.T) {
	s, mock := newTestServer(t)
	sq := services.BuildSiteQuery("", "", "", "")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM sites " + sq.Where)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	listQuery := fmt.Sprintf(`SELECT %s FROM sites %s %s LIMIT $1 OFFSET $2`, siteColumns, sq.Where, sq.Order)
	mock.ExpectQuery(regexp.QuoteMeta(listQuery)).
		WithArgs(12, 84).
		WillReturnRows(emptySiteRows())

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sites?paginated=1&page=7", nil))

	resp := SiteListResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 || len(resp.Items) != 0 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestListSitesClampsPageSize(t *testing.T) {
	s, mock := newTestServer(t)
	sq := services.BuildSiteQuery("", "", "", "")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM sites " + sq.Where)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	listQuery := fmt.Sprintf(`SELECT %s FROM sites %s %s LIMIT $1 OFFSET $2`, siteColumns, sq.Where, sq.Order)
	mock.ExpectQuery(regexp.QuoteMeta(listQuery)).
		WithArgs(60, 0).
		WillReturnRows(emptySiteRows())

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sites?paginated=1&pageSize=500", nil))

	resp := SiteListResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.PageSize != 60 {
		t.Fatalf("pageSize not clamped: %+v", resp)
	}
}

func TestCreateSiteDefaultsStatusAndLive(t *testing.T) {
	s, mock := newTestServer(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO sites`)).
		WithArgs(sqlmock.AnyArg(), "Acme", "https://acme.test", nil, nil, nil,
			"[]", "[]", "pending", "down", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, adminRequest(s, http.MethodPost, "/api/sites",
		`{"name":"Acme","url":"https://acme.test","status":"deleted","live":"sideways"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	dto := SiteDTO{}
	if err := json.Unmarshal(rec.Body.Bytes(), &dto); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dto.Status != "pending" || dto.Live == nil || *dto.Live != "down" {
		t.Fatalf("unexpected defaults: %+v", dto)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestCreateSiteMissingFields(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, adminRequest(s, http.MethodPost, "/api/sites", `{"name":"Acme"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Missing fields") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestCreateSiteRejectsBadLogoURL(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, adminRequest(s, http.MethodPost, "/api/sites",
		`{"name":"Acme","url":"https://acme.test","logoUrl":"javascript:alert(1)"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateSiteAppliesOnlyTypeMatchedFields(t *testing.T) {
	s, mock := newTestServer(t)
	// name has the wrong type and must be dropped; logoUrl null clears the
	// column; status applies.
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE sites SET logo_url = $1, status = $2, updated_at = $3 WHERE id = $4`)).
		WithArgs(nil, "approved", sqlmock.AnyArg(), testSiteID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	updated := testSite()
	updated.Status = services.StatusApproved
	mock.ExpectQuery(regexp.QuoteMeta(fmt.Sprintf(`SELECT %s FROM sites WHERE id = $1`, siteColumns))).
		WithArgs(testSiteID).
		WillReturnRows(siteRow(updated))

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, adminRequest(s, http.MethodPatch, "/api/sites/"+testSiteID,
		`{"name":123,"logoUrl":null,"status":"approved","live":"flaky"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	dto := SiteDTO{}
	if err := json.Unmarshal(rec.Body.Bytes(), &dto); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dto.Status != "approved" {
		t.Fatalf("unexpected status: %+v", dto)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestUpdateSiteInvalidID(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, adminRequest(s, http.MethodPatch, "/api/sites/not-a-uuid", `{}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Invalid id") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestUpdateSiteUnknownIDIsNotFound(t *testing.T) {
	s, mock := newTestServer(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE sites SET updated_at = $1 WHERE id = $2`)).
		WithArgs(sqlmock.AnyArg(), testSiteID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(fmt.Sprintf(`SELECT %s FROM sites WHERE id = $1`, siteColumns))).
		WithArgs(testSiteID).
		WillReturnRows(emptySiteRows())

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, adminRequest(s, http.MethodPatch, "/api/sites/"+testSiteID, `{}`))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteSite(t *testing.T) {
	s, mock := newTestServer(t)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sites WHERE id = $1`)).
		WithArgs(testSiteID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, adminRequest(s, http.MethodDelete, "/api/sites/"+testSiteID, ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	resp := OKResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || !resp.OK {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestCheckSitesInvalidIDsOnly(t *testing.T) {
	s, mock := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, adminRequest(s, http.MethodPost, "/api/sites/check?ids=nope,still-nope", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	resp := CheckResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Checked != 0 || resp.Updated != 0 {
		t.Fatalf("unexpected counts: %+v", resp)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected SQL: %v", err)
	}
}
