package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jeremyjsx/quill/internal/middleware"
	"github.com/jeremyjsx/quill/internal/posts"
	"github.com/jeremyjsx/quill/internal/render"
)

const maxBodyBytes = 1 << 20

type PostsHandler struct {
	svc      *posts.Service
	markdown *render.Markdown
	logger   *slog.Logger
}

func NewPostsHandler(svc *posts.Service, markdown *render.Markdown, logger *slog.Logger) *PostsHandler {
	return &PostsHandler{
		svc:      svc,
		markdown: markdown,
		logger:   logger,
	}
}

type CreatePostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type UpdatePostRequest struct {
	Title   string `json:"title"`
	Slug    string `json:"slug"`
	Content string `json:"content"`
}

type postView struct {
	*posts.Post
	ContentHTML string `json:"content_html"`
}

func (h *PostsHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePostRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		post, err := h.svc.CreatePost(r.Context(), req.Title, req.Content)
		if err != nil {
			writeServiceError(w, r, h.logger, "create post", err)
			return
		}

		writeJSON(w, http.StatusCreated, post)
	}
}

func (h *PostsHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := h.svc.GetAllPosts(r.Context())
		if err != nil {
			writeServiceError(w, r, h.logger, "list posts", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": all})
	}
}

func (h *PostsHandler) GetBySlug() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := r.PathValue("slug")
		if slug == "" {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "slug is required", nil)
			return
		}

		post, err := h.svc.GetPostBySlug(r.Context(), slug)
		if err != nil {
			writeServiceError(w, r, h.logger, "get post", err)
			return
		}

		html, err := h.markdown.HTML(post.Content)
		if err != nil {
			h.logger.Error("render post failed", "slug", slug, "error", err,
				"request_id", middleware.GetRequestID(r.Context()))
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", nil)
			return
		}

		writeJSON(w, http.StatusOK, postView{Post: post, ContentHTML: html})
	}
}

func (h *PostsHandler) GetForEdit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		post, err := h.svc.GetPostForEdit(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, h.logger, "get post for edit", err)
			return
		}
		writeJSON(w, http.StatusOK, post)
	}
}

func (h *PostsHandler) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var req UpdatePostRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		post, err := h.svc.UpdatePost(r.Context(), id, req.Title, req.Slug, req.Content)
		if err != nil {
			writeServiceError(w, r, h.logger, "update post", err)
			return
		}
		writeJSON(w, http.StatusOK, post)
	}
}

func (h *PostsHandler) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		if err := h.svc.DeletePost(r.Context(), id); err != nil {
			writeServiceError(w, r, h.logger, "delete post", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return false
	}
	return true
}
