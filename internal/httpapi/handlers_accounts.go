package httpapi

import (
	"net/http"
	"strings"
	"time"

	"MicroblogServer/internal/auth"
	"MicroblogServer/internal/domain"
	"MicroblogServer/internal/service"
)

type accountResponse struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Email       string              `json:"email,omitempty"`
	Admin       bool                `json:"admin"`
	ActivatedAt *time.Time          `json:"activated_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	Stats       *domain.FollowStats `json:"stats,omitempty"`
	Following   *bool               `json:"following,omitempty"`
}

func toAccountResponse(acc domain.Account, private bool) accountResponse {
	resp := accountResponse{
		ID:          acc.ID,
		Name:        acc.Name,
		Admin:       acc.Admin,
		ActivatedAt: acc.ActivatedAt,
		CreatedAt:   acc.CreatedAt,
	}
	if private {
		resp.Email = acc.Email
	}
	return resp
}

// writeAccount renders an account. Email is only included for its owner.
func writeAccount(w http.ResponseWriter, status int, acc domain.Account, private bool) {
	WriteJSON(w, status, toAccountResponse(acc, private))
}

type registerRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

func (a *api) handleAccountsCreate(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	acc, err := a.accountsSvc.Register(r.Context(), service.RegisterParams{
		Name:                 req.Name,
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{
		"account": toAccountResponse(acc, true),
		"message": "Please check your email to activate your account.",
	})
}

type activateRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

func (a *api) handleAccountsActivate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	acc, err := a.accountsSvc.Activate(r.Context(), req.Email, strings.TrimSpace(req.Token))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	sessID, err := a.authSvc.LogIn(r.Context(), acc, clientIP(r), r.UserAgent())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	auth.SetSessionCookie(w, a.cookieCodec.EncodeSessionID(sessID), a.sessionTTL, a.cookieSecure)
	writeAccount(w, http.StatusOK, acc, true)
}

func (a *api) handleAccountsList(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := offsetParams(r)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	accounts, err := a.accountsSvc.List(r.Context(), limit, offset)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	items := make([]accountResponse, 0, len(accounts))
	for _, acc := range accounts {
		items = append(items, toAccountResponse(acc, false))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"accounts": items})
}

func (a *api) handleAccountsShow(w http.ResponseWriter, r *http.Request) {
	acc, err := a.accountsSvc.Show(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	resp := toAccountResponse(acc, false)
	if a.graphSvc != nil {
		stats, err := a.graphSvc.Stats(r.Context(), acc.ID)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		resp.Stats = &stats

		if viewer, _, err := a.optionalAccount(r); err == nil && viewer.ID != acc.ID {
			following, err := a.graphSvc.IsFollowing(r.Context(), viewer.ID, acc.ID)
			if err != nil {
				WriteDomainError(w, err)
				return
			}
			resp.Following = &following
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}

type updateAccountRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

func (a *api) handleAccountsUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := CurrentAccount(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req updateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	acc, err := a.accountsSvc.Update(r.Context(), actor, r.PathValue("id"), service.UpdateParams{
		Name:                 req.Name,
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	writeAccount(w, http.StatusOK, acc, true)
}

func (a *api) handleAccountsDestroy(w http.ResponseWriter, r *http.Request) {
	actor, ok := CurrentAccount(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	targetID := r.PathValue("id")
	if err := a.accountsSvc.Destroy(r.Context(), actor, targetID); err != nil {
		WriteDomainError(w, err)
		return
	}

	if targetID == actor.ID {
		auth.ClearSessionCookie(w, a.cookieSecure)
		auth.ClearRememberCookie(w, a.cookieSecure)
	}
	w.WriteHeader(http.StatusNoContent)
}
