package httpapi

import (
	"encoding/json"
	"net/http"
)

type AdminLoginRequest struct {
	Password string `json:"password"`
	Action   string `json:"action"`
}

// AdminLogin authenticates against the shared admin password or, with
// {action:"logout"}, drops the session cookie. Logout is unconditional
// and idempotent.
func (s *Server) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req AdminLoginRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if req.Action == "logout" {
		clearSessionCookie(w)
		WriteJSON(w, http.StatusOK, OKResponse{OK: true})
		return
	}

	if err := s.Sessions.CheckPassword(req.Password); err != nil {
		writeServiceError(w, err)
		return
	}
	setSessionCookie(w, s.Sessions.Credential(), s.Sessions.TTL)
	WriteJSON(w, http.StatusOK, OKResponse{OK: true})
}
