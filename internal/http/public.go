package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"sitedir-backend-go/internal/models"
	"sitedir-backend-go/internal/services"

	"github.com/google/uuid"
)

type SubmitSiteRequest struct {
	Name         string          `json:"name"`
	URL          string          `json:"url"`
	LogoURL      *string         `json:"logoUrl"`
	LightLogoURL *string         `json:"lightLogoUrl"`
	DarkLogoURL  *string         `json:"darkLogoUrl"`
	Categories   json.RawMessage `json:"categories"`
	Tags         json.RawMessage `json:"tags"`
}

type VisitRequest struct {
	Path     *string `json:"path"`
	Referrer *string `json:"referrer"`
}

type VisitCountResponse struct {
	Total int `json:"total"`
}

// SubmitSite is the public submission path. Whatever the caller sends,
// the stored record is pending with no liveness state.
func (s *Server) SubmitSite(w http.ResponseWriter, r *http.Request) {
	var req SubmitSiteRequest
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
		Status:       services.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.insertSite(site); err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, siteDTO(site))
}

// TrackVisit records an anonymous page visit, best effort.
func (s *Server) TrackVisit(w http.ResponseWriter, r *http.Request) {
	var req VisitRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	ip := resolveClientIP(r)
	ua := trimString(r.Header.Get("User-Agent"), 512)
	path := trimString(ptrToString(req.Path), 255)
	ref := trimString(ptrToString(req.Referrer), 512)
	_, _ = s.DB.Exec(`
INSERT INTO site_visits (id, ip_address, user_agent, path, referrer, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, uuid.NewString(), nullIfEmpty(ip), nullIfEmpty(ua), nullIfEmpty(path), nullIfEmpty(ref), time.Now().UTC())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) VisitCount(w http.ResponseWriter, r *http.Request) {
	var total int
	_ = s.DB.Get(&total, `SELECT count(*) FROM site_visits`)
	WriteJSON(w, http.StatusOK, VisitCountResponse{Total: total})
}

func resolveClientIP(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	return r.RemoteAddr
}

func trimString(value string, maxLen int) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}
	return trimmed
}

func nullIfEmpty(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func ptrToString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
