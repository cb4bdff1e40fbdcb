package httpapi

import (
	"net/http"

	"MicroblogServer/internal/domain"
)

type postsPage struct {
	Posts []domain.Post `json:"posts"`
	Next  string        `json:"next,omitempty"`
}

func writePostsPage(w http.ResponseWriter, posts []domain.Post, next domain.Cursor) {
	if posts == nil {
		posts = []domain.Post{}
	}
	WriteJSON(w, http.StatusOK, postsPage{Posts: posts, Next: next.Encode()})
}

func (a *api) handleFeed(w http.ResponseWriter, r *http.Request) {
	actor, ok := CurrentAccount(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	after, limit, err := pageParams(r)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	posts, next, err := a.feedSvc.FeedPage(r.Context(), actor.ID, after, limit)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writePostsPage(w, posts, next)
}

func (a *api) handleAccountPosts(w http.ResponseWriter, r *http.Request) {
	after, limit, err := pageParams(r)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	posts, next, err := a.feedSvc.PostsByAuthor(r.Context(), r.PathValue("id"), after, limit)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	writePostsPage(w, posts, next)
}

type createPostRequest struct {
	Content string `json:"content"`
}

func (a *api) handlePostsCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := CurrentAccount(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req createPostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	post, err := a.feedSvc.CreatePost(r.Context(), actor, req.Content)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, post)
}

func (a *api) handlePostsDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := CurrentAccount(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	if err := a.feedSvc.DeletePost(r.Context(), actor, r.PathValue("id")); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
