// ABOUTME: HTTP handlers for OEM requests, provider profiles and the OEM session
// ABOUTME: Decodes bodies, calls the directory and authenticator, and writes envelopes

package api

import (
	"errors"
	"net/http"

	"github.com/deflink/deflink/internal/auth"
	"github.com/deflink/deflink/internal/directory"
)

// LoginRequest is the JSON body of POST /api/auth/oem-login.
type LoginRequest struct {
	Password *string `json:"password"`
}

// ChangePasswordRequest is the JSON body of PATCH /api/admin/settings.
type ChangePasswordRequest struct {
	OemPassword *string `json:"oemPassword"`
}

func (a *API) handleTest(w http.ResponseWriter, r *http.Request) {
	writeData(w, map[string]string{"name": "DefLink API"})
}

// handleLogin handles POST /api/auth/oem-login.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if a.loginLimiter != nil && !a.loginLimiter.Allow(clientIP(r, a.trustProxy)) {
		a.metrics.ObserveLogin("limited")
		a.logger.Warn("login rate limited", "client_ip", clientIP(r, a.trustProxy))
		writeFailure(w, http.StatusTooManyRequests, "too many login attempts, try again later")
		return
	}

	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if req.Password == nil || *req.Password == "" {
		a.writeError(w, r, missing("password"))
		return
	}

	token, _, err := a.auth.Login(r.Context(), *req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			a.metrics.ObserveLogin("failure")
		} else {
			a.metrics.ObserveLogin("error")
		}
		a.writeError(w, r, err)
		return
	}

	a.metrics.ObserveLogin("success")
	auth.SetSessionCookie(w, token, a.cookie)
	writeData(w, map[string]bool{"loggedIn": true})
}

// handleLogout handles POST /api/auth/logout. The cookie is cleared even
// when the session is already gone.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	err := a.auth.Logout(r.Context(), auth.TokenFromRequest(r))
	auth.ClearSessionCookie(w, a.cookie)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, map[string]bool{"loggedOut": true})
}

// handleSession handles GET /api/auth/session.
func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
	_, err := a.auth.Authenticate(r.Context(), auth.TokenFromRequest(r))
	if err != nil && !errors.Is(err, auth.ErrInvalidSession) {
		a.writeError(w, r, err)
		return
	}
	writeData(w, map[string]bool{"loggedIn": err == nil})
}

func (a *API) handleListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := a.dir.ListRequests(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, requests)
}

func (a *API) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	var req directory.OemRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	created, err := a.dir.SubmitRequest(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, created)
}

func (a *API) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := a.dir.GetRequest(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, req)
}

func (a *API) handleUpdateRequest(w http.ResponseWriter, r *http.Request) {
	var patch directory.OemRequestPatch
	if err := decodeJSON(r, &patch); err != nil {
		a.writeError(w, r, err)
		return
	}
	updated, err := a.dir.UpdateRequest(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, updated)
}

func (a *API) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	deleted, err := a.dir.DeleteRequest(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, map[string]bool{"deleted": deleted})
}

func (a *API) handleListPublishedProviders(w http.ResponseWriter, r *http.Request) {
	a.listProviders(w, r, true)
}

func (a *API) handleListAllProviders(w http.ResponseWriter, r *http.Request) {
	a.listProviders(w, r, false)
}

func (a *API) listProviders(w http.ResponseWriter, r *http.Request, publishedOnly bool) {
	providers, err := a.dir.ListProviders(r.Context(), publishedOnly)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, providers)
}

func (a *API) handleSubmitProvider(w http.ResponseWriter, r *http.Request) {
	var p directory.ProviderProfile
	if err := decodeJSON(r, &p); err != nil {
		a.writeError(w, r, err)
		return
	}
	created, err := a.dir.SubmitProvider(r.Context(), p)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, created)
}

func (a *API) handleUpdateProvider(w http.ResponseWriter, r *http.Request) {
	var patch directory.ProviderProfilePatch
	if err := decodeJSON(r, &patch); err != nil {
		a.writeError(w, r, err)
		return
	}
	updated, err := a.dir.UpdateProvider(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, updated)
}

func (a *API) handleDeleteProvider(w http.ResponseWriter, r *http.Request) {
	deleted, err := a.dir.DeleteProvider(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, map[string]bool{"deleted": deleted})
}

// handleChangePassword handles PATCH /api/admin/settings. Every other
// session is signed out; the caller stays logged in.
func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if req.OemPassword == nil || *req.OemPassword == "" {
		a.writeError(w, r, missing("oemPassword"))
		return
	}

	session, _ := auth.SessionFromContext(r.Context())
	if err := a.auth.ChangePassword(r.Context(), session, *req.OemPassword); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, map[string]bool{"updated": true})
}
