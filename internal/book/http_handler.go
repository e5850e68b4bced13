package book

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"bookquery/internal/httpx"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// Register mounts the book routes on mux. Mutating routes are wrapped in
// guard.
func (h *HTTPHandler) Register(mux *http.ServeMux, guard func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /v1/books/by/{field}", h.FindByField)
	mux.HandleFunc("GET /v1/books/range/{field}", h.FindByRange)
	mux.HandleFunc("GET /v1/books/search", h.Search)
	mux.Handle("PATCH /v1/books/{title}/price", guard(http.HandlerFunc(h.UpdatePrice)))
	mux.Handle("DELETE /v1/books/{title}", guard(http.HandlerFunc(h.Delete)))
	mux.Handle("PATCH /v1/books/id/{id}/price", guard(http.HandlerFunc(h.UpdatePriceByID)))
	mux.Handle("DELETE /v1/books/id/{id}", guard(http.HandlerFunc(h.DeleteByID)))

	mux.HandleFunc("GET /v1/stats/genres/avg-price", h.AveragePriceByGenre)
	mux.HandleFunc("GET /v1/stats/authors/top", h.TopAuthor)
	mux.HandleFunc("GET /v1/stats/decades", h.CountByDecade)

	mux.Handle("POST /v1/indexes", guard(http.HandlerFunc(h.EnsureIndex)))
	mux.HandleFunc("GET /v1/explain", h.Explain)
}

// writeError maps the two error kinds onto 400 and 503. Anything else is a
// 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrBadRequest):
		msg := strings.TrimPrefix(err.Error(), ErrBadRequest.Error()+": ")
		httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeBadRequest, msg, nil)
	case errors.Is(err, ErrStoreUnavailable):
		httpx.JSONError(w, r, http.StatusServiceUnavailable, httpx.CodeStoreUnavailable, "Document store unavailable", nil)
	default:
		httpx.JSONError(w, r, http.StatusInternalServerError, httpx.CodeInternal, "Internal server error", nil)
	}
}

// FindByField handles GET /v1/books/by/{field}?value=
func (h *HTTPHandler) FindByField(w http.ResponseWriter, r *http.Request) {
	field := r.PathValue("field")
	query := r.URL.Query()
	if !query.Has("value") {
		httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeValidation, "Validation failed",
			[]httpx.ErrorDetail{{Field: "value", Message: "value is required"}})
		return
	}
	if err := ValidateField(field); err != nil {
		writeError(w, r, err)
		return
	}
	value, err := ParseValue(field, query.Get("value"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	books, err := h.service.FindByField(r.Context(), field, value)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, books, map[string]any{"count": len(books)})
}

// FindByRange handles GET /v1/books/range/{field}?op=&value=
func (h *HTTPHandler) FindByRange(w http.ResponseWriter, r *http.Request) {
	field := r.PathValue("field")
	query := r.URL.Query()

	var details []httpx.ErrorDetail
	if query.Get("op") == "" {
		details = append(details, httpx.ErrorDetail{Field: "op", Message: "op is required"})
	}
	if !query.Has("value") {
		details = append(details, httpx.ErrorDetail{Field: "value", Message: "value is required"})
	}
	if len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeValidation, "Validation failed", details)
		return
	}
	if err := ValidateField(field); err != nil {
		writeError(w, r, err)
		return
	}
	value, err := ParseValue(field, query.Get("value"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	books, err := h.service.FindByRange(r.Context(), field, query.Get("op"), value)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, books, map[string]any{"count": len(books)})
}

// Search handles GET /v1/books/search. filter may repeat; fields is a comma
// separated allow-list.
func (h *HTTPHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	f, err := ParseFilter(query["filter"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	p := Projection{ExcludeID: query.Get("exclude_id") == "true"}
	for _, name := range strings.Split(query.Get("fields"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			p.Fields = append(p.Fields, name)
		}
	}

	var pg Page
	if sort := query.Get("sort"); sort != "" {
		dir := Asc
		if query.Get("desc") == "true" {
			dir = Desc
		}
		pg.Sort = &SortKey{Field: sort, Dir: dir}
	}
	var details []httpx.ErrorDetail
	if pg.Skip, err = intParam(query.Get("skip")); err != nil {
		details = append(details, httpx.ErrorDetail{Field: "skip", Message: "skip must be an integer"})
	}
	if pg.Limit, err = intParam(query.Get("limit")); err != nil {
		details = append(details, httpx.ErrorDetail{Field: "limit", Message: "limit must be an integer"})
	}
	if len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeValidation, "Validation failed", details)
		return
	}

	docs, err := h.service.FindProjected(r.Context(), f, p, pg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, docs, map[string]any{
		"count": len(docs),
		"skip":  pg.Skip,
		"limit": pg.Limit,
	})
}

func intParam(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

type updatePriceRequest struct {
	Price *float64 `json:"price" validate:"required,gte=0"`
}

// UpdatePrice handles PATCH /v1/books/{title}/price
func (h *HTTPHandler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	var req updatePriceRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	res, err := h.service.UpdateOnePrice(r.Context(), r.PathValue("title"), *req.Price)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, res, nil)
}

// UpdatePriceByID handles PATCH /v1/books/id/{id}/price
func (h *HTTPHandler) UpdatePriceByID(w http.ResponseWriter, r *http.Request) {
	var req updatePriceRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	res, err := h.service.UpdatePriceByID(r.Context(), r.PathValue("id"), *req.Price)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, res, nil)
}

// Delete handles DELETE /v1/books/{title}
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.DeleteOneByTitle(r.Context(), r.PathValue("title"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, res, nil)
}

// DeleteByID handles DELETE /v1/books/id/{id}
func (h *HTTPHandler) DeleteByID(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.DeleteByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, res, nil)
}

// AveragePriceByGenre handles GET /v1/stats/genres/avg-price
func (h *HTTPHandler) AveragePriceByGenre(w http.ResponseWriter, r *http.Request) {
	avg, err := h.service.AveragePriceByGenre(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, avg, map[string]any{"genres": len(avg)})
}

type topAuthorResponse struct {
	Found  bool   `json:"found"`
	Author string `json:"author,omitempty"`
	Count  int64  `json:"count,omitempty"`
}

// TopAuthor handles GET /v1/stats/authors/top
func (h *HTTPHandler) TopAuthor(w http.ResponseWriter, r *http.Request) {
	top, found, err := h.service.AuthorWithMostBooks(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, topAuthorResponse{Found: found, Author: top.Author, Count: top.Count}, nil)
}

// CountByDecade handles GET /v1/stats/decades
func (h *HTTPHandler) CountByDecade(w http.ResponseWriter, r *http.Request) {
	decades, err := h.service.CountByDecade(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, decades, nil)
}

type ensureIndexRequest struct {
	Keys []IndexKey `json:"keys" validate:"required,min=1,dive"`
}

// EnsureIndex handles POST /v1/indexes
func (h *HTTPHandler) EnsureIndex(w http.ResponseWriter, r *http.Request) {
	var req ensureIndexRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	name, err := h.service.EnsureIndex(r.Context(), IndexSpec(req.Keys))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccessCreated(w, r, map[string]string{"name": name})
}

// Explain handles GET /v1/explain?filter=
func (h *HTTPHandler) Explain(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query()["filter"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	plan, err := h.service.ExplainPlan(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, plan, map[string]any{"used_index": plan.UsedIndex()})
}
