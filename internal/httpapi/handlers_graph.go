package httpapi

import (
	"net/http"

	"MicroblogServer/internal/domain"
)

func (a *api) handleFollow(w http.ResponseWriter, r *http.Request) {
	actor, ok := CurrentAccount(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	targetID := r.PathValue("id")
	if err := a.graphSvc.Follow(r.Context(), actor.ID, targetID); err != nil {
		WriteDomainError(w, err)
		return
	}
	a.writeStats(w, r, targetID)
}

func (a *api) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	actor, ok := CurrentAccount(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	targetID := r.PathValue("id")
	if err := a.graphSvc.Unfollow(r.Context(), actor.ID, targetID); err != nil {
		WriteDomainError(w, err)
		return
	}
	a.writeStats(w, r, targetID)
}

func (a *api) writeStats(w http.ResponseWriter, r *http.Request, accountID string) {
	stats, err := a.graphSvc.Stats(r.Context(), accountID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

func (a *api) handleFollowers(w http.ResponseWriter, r *http.Request) {
	items, err := a.graphSvc.FollowersOf(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	writeSummaries(w, "followers", items)
}

func (a *api) handleFollowing(w http.ResponseWriter, r *http.Request) {
	items, err := a.graphSvc.FollowingOf(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	writeSummaries(w, "following", items)
}

func writeSummaries(w http.ResponseWriter, key string, items []domain.AccountSummary) {
	if items == nil {
		items = []domain.AccountSummary{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{key: items})
}
