package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/awesome-blog/internal/apperror"
	"github.com/sakif/awesome-blog/internal/auth"
	"github.com/sakif/awesome-blog/internal/repository"
	"github.com/sakif/awesome-blog/internal/service"
)

// BlogHandler serves the blog CRUD endpoints. Writes need a signed-in caller;
// the service decides whether that caller may touch a given blog.
type BlogHandler struct {
	blogs  *service.BlogService
	logger *slog.Logger
}

func NewBlogHandler(blogs *service.BlogService, logger *slog.Logger) *BlogHandler {
	return &BlogHandler{blogs: blogs, logger: logger}
}

// HandleList returns one page of blogs, newest first.
//
// HTTP: GET /api/blogs?limit=20&offset=0
//
// RESPONSE FORMAT:
//
//	{"blogs": [...], "total": 42, "limit": 20, "offset": 0}
func (h *BlogHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := h.blogs.List(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// HandleGet returns one blog.
//
// HTTP: GET /api/blogs/{id}
func (h *BlogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	blog, err := h.blogs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, blog)
}

// HandleCreate publishes a blog.
//
// HTTP: POST /api/blogs
// REQUEST BODY: {"name": "...", "summary": "...", "content": "..."}
func (h *BlogHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var in service.BlogInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	blog, err := h.blogs.Create(r.Context(), caller, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, blog)
}

// HandleUpdate edits a blog. Author or admin only.
//
// HTTP: PUT /api/blogs/{id}
func (h *BlogHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var in service.BlogInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	blog, err := h.blogs.Update(r.Context(), caller, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, blog)
}

// HandleDelete removes a blog and its comments. Author or admin only.
//
// HTTP: DELETE /api/blogs/{id}
func (h *BlogHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	if err := h.blogs.Delete(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listOptions reads ?limit= and ?offset=. Missing values fall back to the
// repository defaults; non-numbers are a 400.
func listOptions(r *http.Request) (repository.ListOptions, error) {
	var opts repository.ListOptions
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &opts.Limit}, {"offset", &opts.Offset}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return opts, apperror.ValidationFailed(p.name, p.name+" must be an integer")
		}
		*p.dst = n
	}
	return opts, nil
}

// callerIdentity fetches the identity RequireAuth stored, answering 401 when
// the route was mounted without it.
func callerIdentity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
	}
	return id, ok
}
