package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sitedir-backend-go/internal/models"
	"sitedir-backend-go/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const siteColumns = `id, name, url, logo_url, light_logo_url, dark_logo_url,
       categories, tags, status, live, last_checked, created_at, updated_at`

// SiteDTO keeps the wire shape of the original API: the id is rendered
// under "_id", absent logos and lastChecked are explicit nulls, and live
// is omitted until the first probe runs.
type SiteDTO struct {
	ID           string   `json:"_id"`
	Name         string   `json:"name"`
	URL          string   `json:"url"`
	LogoURL      *string  `json:"logoUrl"`
	LightLogoURL *string  `json:"lightLogoUrl"`
	DarkLogoURL  *string  `json:"darkLogoUrl"`
	Categories   []string `json:"categories"`
	Tags         []string `json:"tags"`
	Status       string   `json:"status"`
	Live         *string  `json:"live,omitempty"`
	LastChecked  *string  `json:"lastChecked"`
	CreatedAt    string   `json:"createdAt"`
	UpdatedAt    string   `json:"updatedAt"`
}

type SiteListResponse struct {
	Items    []SiteDTO `json:"items"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
}

type SiteCreateRequest struct {
	Name         string          `json:"name"`
	URL          string          `json:"url"`
	LogoURL      *string         `json:"logoUrl"`
	LightLogoURL *string         `json:"lightLogoUrl"`
	DarkLogoURL  *string         `json:"darkLogoUrl"`
	Status       string          `json:"status"`
	Live         string          `json:"live"`
	Categories   json.RawMessage `json:"categories"`
	Tags         json.RawMessage `json:"tags"`
}

type CheckResponse struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
}

// ListSites serves public browsing and the admin table. Without
// pagination parameters it returns the full filtered, sorted list as a
// bare array; with them it returns items plus the pre-pagination total.
func (s *Server) ListSites(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	sq := services.BuildSiteQuery(
		strings.TrimSpace(query.Get("status")),
		query.Get("q"),
		query.Get("sort"),
		query.Get("dir"),
	)
	paginated := query.Get("paginated") == "1" || query.Has("page")

	if !paginated {
		rows := []models.Site{}
		listQuery := fmt.Sprintf(`SELECT %s FROM sites %s %s`, siteColumns, sq.Where, sq.Order)
		if err := s.DB.Select(&rows, listQuery, sq.Args...); err != nil {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		WriteJSON(w, http.StatusOK, siteDTOs(rows))
		return
	}

	page := parseInt(query.Get("page"), 0)
	if page < 0 {
		page = 0
	}
	pageSize := services.ClampPageSize(parseInt(query.Get("pageSize"), 0), 12)

	var total int
	if err := s.DB.Get(&total, "SELECT count(*) FROM sites "+sq.Where, sq.Args...); err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	args := append(sq.Args, pageSize, page*pageSize)
	listQuery := fmt.Sprintf(`SELECT %s FROM sites %s %s LIMIT $%d OFFSET $%d`,
		siteColumns, sq.Where, sq.Order, len(args)-1, len(args))
	rows := []models.Site{}
	if err := s.DB.Select(&rows, listQuery, args...); err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, SiteListResponse{
		Items:    siteDTOs(rows),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// CreateSite is the admin creation path: status and live are taken from
// the caller when valid and defaulted otherwise.
func (s *Server) CreateSite(w http.ResponseWriter, r *http.Request) {
	var req SiteCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	name, err := services.NormalizeRequired(req.Name, "Missing fields")
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	siteURL, err := services.NormalizeRequired(req.URL, "Missing fields")
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	logos, err := normalizeLogos(req.LogoURL, req.LightLogoURL, req.DarkLogoURL)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := services.NormalizeStatus(req.Status)
	live := services.NormalizeLive(req.Live, status)

	now := time.Now().UTC()
	site := models.Site{
		ID:           uuid.NewString(),
		Name:         name,
		URL:          siteURL,
		LogoURL:      logos[0],
		LightLogoURL: logos[1],
		DarkLogoURL:  logos[2],
		Categories:   marshalList(services.SplitList(req.Categories)),
		Tags:         marshalList(services.SplitList(req.Tags)),
		Status:       status,
		Live:         &live,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.insertSite(site); err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, siteDTO(site))
}

// UpdateSite applies a partial update. A field is written only when its
// JSON type matches what the column expects; mismatched fields are
// dropped silently rather than rejecting the whole request. updatedAt is
// refreshed unconditionally.
func (s *Server) UpdateSite(w http.ResponseWriter, r *http.Request) {
	id, err := parseSiteID(chi.URLParam(r, "siteId"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	body := map[string]json.RawMessage{}
	_ = json.NewDecoder(r.Body).Decode(&body)

	sets := []string{}
	args := []interface{}{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if value, ok := stringField(body["name"]); ok {
		add("name", value)
	}
	if value, ok := stringField(body["url"]); ok {
		add("url", value)
	}
	logoFields := []struct{ field, column string }{
		{"logoUrl", "logo_url"},
		{"lightLogoUrl", "light_logo_url"},
		{"darkLogoUrl", "dark_logo_url"},
	}
	for _, logo := range logoFields {
		if value, ok := nullableStringField(body[logo.field]); ok {
			add(logo.column, value)
		}
	}
	if value, ok := stringField(body["status"]); ok {
		if value == services.StatusApproved || value == services.StatusPending {
			add("status", value)
		}
	}
	if value, ok := stringField(body["live"]); ok {
		if value == services.LiveUp || value == services.LiveDown {
			add("live", value)
		}
	}
	if value, ok := nullableStringField(body["lastChecked"]); ok {
		if value == nil {
			add("last_checked", nil)
		} else if parsed, err := time.Parse(time.RFC3339, *value); err == nil {
			add("last_checked", parsed.UTC())
		}
	}
	add("updated_at", time.Now().UTC())

	args = append(args, id)
	updateQuery := fmt.Sprintf(`UPDATE sites SET %s WHERE id = $%d`,
		strings.Join(sets, ", "), len(args))
	if _, err := s.DB.Exec(updateQuery, args...); err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	site := models.Site{}
	err = s.DB.Get(&site, fmt.Sprintf(`SELECT %s FROM sites WHERE id = $1`, siteColumns), id)
	if errors.Is(err, sql.ErrNoRows) {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, siteDTO(site))
}

// DeleteSite removes a site by id. Deleting an unknown id is a no-op
// that still reports ok.
func (s *Server) DeleteSite(w http.ResponseWriter, r *http.Request) {
	id, err := parseSiteID(chi.URLParam(r, "siteId"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	if _, err := s.DB.Exec(`DELETE FROM sites WHERE id = $1`, id); err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, OKResponse{OK: true})
}

// CheckSites runs the liveness batch over all sites, or over the ids in
// the optional comma-separated "ids" query parameter.
func (s *Server) CheckSites(w http.ResponseWriter, r *http.Request) {
	ids := []string{}
	if raw := strings.TrimSpace(r.URL.Query().Get("ids")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if value := strings.TrimSpace(part); value != "" {
				ids = append(ids, value)
			}
		}
	}
	checked, updated, err := s.Prober.ProbeBatch(r.Context(), s.DB, ids)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, CheckResponse{Checked: checked, Updated: updated})
}

func (s *Server) insertSite(site models.Site) error {
	_, err := s.DB.Exec(`
INSERT INTO sites (id, name, url, logo_url, light_logo_url, dark_logo_url,
                   categories, tags, status, live, last_checked, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`, site.ID, site.Name, site.URL, site.LogoURL, site.LightLogoURL, site.DarkLogoURL,
		string(site.Categories), string(site.Tags), site.Status, site.Live, site.LastChecked,
		site.CreatedAt, site.UpdatedAt)
	return err
}

func normalizeLogos(logo, light, dark *string) ([3]*string, error) {
	out := [3]*string{}
	fields := []struct {
		value *string
		name  string
	}{
		{logo, "logoUrl"},
		{light, "lightLogoUrl"},
		{dark, "darkLogoUrl"},
	}
	for i, field := range fields {
		normalized, err := services.NormalizeLogoURL(field.value, field.name)
		if err != nil {
			return out, err
		}
		out[i] = normalized
	}
	return out, nil
}

func parseSiteID(raw string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}

func siteDTO(site models.Site) SiteDTO {
	dto := SiteDTO{
		ID:           site.ID,
		Name:         site.Name,
		URL:          site.URL,
		LogoURL:      site.LogoURL,
		LightLogoURL: site.LightLogoURL,
		DarkLogoURL:  site.DarkLogoURL,
		Categories:   unmarshalList(site.Categories),
		Tags:         unmarshalList(site.Tags),
		Status:       site.Status,
		Live:         site.Live,
		CreatedAt:    site.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    site.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if site.LastChecked != nil {
		formatted := site.LastChecked.UTC().Format(time.RFC3339)
		dto.LastChecked = &formatted
	}
	return dto
}

func siteDTOs(sites []models.Site) []SiteDTO {
	items := make([]SiteDTO, 0, len(sites))
	for _, site := range sites {
		items = append(items, siteDTO(site))
	}
	return items
}

func marshalList(items []string) []byte {
	encoded, err := json.Marshal(items)
	if err != nil {
		return []byte("[]")
	}
	return encoded
}

func unmarshalList(raw []byte) []string {
	items := []string{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &items)
	}
	return items
}

func stringField(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false
	}
	return value, true
}

// nullableStringField reports (nil, true) for an explicit JSON null and
// (&value, true) for a string; any other type is absent.
func nullableStringField(raw json.RawMessage) (*string, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	if string(raw) == "null" {
		return nil, true
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, false
	}
	return &value, true
}

func parseInt(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}
