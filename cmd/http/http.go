package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mg52/bizsearch/internal/engine"
	"github.com/mg52/bizsearch/internal/models"
	"github.com/mg52/bizsearch/internal/observability"
	"github.com/mg52/bizsearch/internal/store"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("invalid request")

// BusinessRequest is the create/update payload of a business. Keywords may
// be given as ids or as keyword objects carrying an id.
type BusinessRequest struct {
	models.Business
	KeywordIDs []int64 `json:"keywordIds"`
}

func (br BusinessRequest) input() engine.BusinessInput {
	ids := append([]int64(nil), br.KeywordIDs...)
	for _, k := range br.Keywords {
		if k.ID != 0 {
			ids = append(ids, k.ID)
		}
	}
	b := br.Business
	b.Owner = nil
	b.Keywords = nil
	return engine.BusinessInput{Business: b, KeywordIDs: ids}
}

// BulkResponse is returned after a bulk save.
type BulkResponse struct {
	SavedCount int               `json:"savedCount"`
	Duration   string            `json:"duration"`
	DurationMs int64             `json:"durationMs"`
	Data       []models.Business `json:"data"`
}

// AdminRequest toggles the admin flag of a user.
type AdminRequest struct {
	IsAdmin *bool `json:"isAdmin" validate:"required"`
}

// SearchRecordRequest records one search.
type SearchRecordRequest struct {
	Keyword string `json:"keyword" validate:"required,max=255"`
}

type HTTP struct {
	dir      *engine.Directory
	logger   *zap.Logger
	validate *validator.Validate
	health   func(context.Context) error
	timeout  time.Duration
}

type Option func(*HTTP)

func WithLogger(logger *zap.Logger) Option {
	return func(ht *HTTP) {
		if logger != nil {
			ht.logger = logger
		}
	}
}

// WithHealthCheck makes /healthz report the result of check.
func WithHealthCheck(check func(context.Context) error) Option {
	return func(ht *HTTP) { ht.health = check }
}

// WithRequestTimeout bounds every request; zero disables the bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(ht *HTTP) { ht.timeout = d }
}

// NewHTTP wires the handlers to a directory.
func NewHTTP(dir *engine.Directory, opts ...Option) *HTTP {
	ht := &HTTP{
		dir:      dir,
		logger:   zap.NewNop(),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(ht)
	}
	return ht
}

// Router returns the chi router serving the API.
func (ht *HTTP) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(ht.logger))
	r.Use(observability.Recoverer(ht.logger))
	if ht.timeout > 0 {
		r.Use(middleware.Timeout(ht.timeout))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Get("/healthz", ht.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/expand", ht.Expand)
		r.Get("/suggest", ht.Suggest)

		r.Route("/business", func(r chi.Router) {
			r.Get("/", ht.SearchBusinesses)
			r.Post("/", ht.SaveBusiness)
			r.Post("/bulk", ht.SaveBusinessesInBulk)
			r.Get("/{id}", ht.GetBusiness)
			r.Delete("/{id}", ht.DeleteBusiness)
		})
		r.Route("/users", func(r chi.Router) {
			r.Get("/", ht.SearchUsers)
			r.Post("/", ht.SaveUser)
			r.Patch("/{id}/admin", ht.SetAdmin)
			r.Delete("/{id}", ht.DeleteUser)
		})
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", ht.Categories)
			r.Post("/", ht.SaveCategory)
			r.Delete("/{id}", ht.DeleteCategory)
		})
		r.Route("/keyword", func(r chi.Router) {
			r.Get("/", ht.Keywords)
			r.Post("/", ht.SaveKeyword)
			r.Delete("/{id}", ht.DeleteKeyword)
		})
		r.Route("/popularsearches", func(r chi.Router) {
			r.Post("/", ht.RecordSearch)
			r.Get("/popular", ht.PopularBusinesses)
		})
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error":   code,
		"message": message,
	})
}

// ErrWriter maps err to a status code and writes the JSON error envelope.
// Unexpected errors are logged and reported without detail.
func ErrWriter(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, engine.ErrQueryTooComplex):
		writeError(w, http.StatusUnprocessableEntity, "query_too_complex", err.Error())
	case errors.Is(err, engine.ErrInvalidCategory):
		writeError(w, http.StatusBadRequest, "invalid_category", err.Error())
	case errors.Is(err, engine.ErrUnknownView):
		writeError(w, http.StatusBadRequest, "invalid_view", err.Error())
	case errors.As(err, &verrs):
		writeError(w, http.StatusBadRequest, "invalid_request", validationMessage(verrs))
	case errors.Is(err, engine.ErrEmptyKeyword), errors.Is(err, errBadRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		observability.FromContext(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func validationMessage(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

func (ht *HTTP) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errBadRequest, raw)
	}
	return id, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", errBadRequest, key, raw)
	}
	return n, nil
}

func searchRequest(r *http.Request) (engine.SearchRequest, error) {
	q := r.URL.Query()
	page, err := queryInt(r, "page")
	if err != nil {
		return engine.SearchRequest{}, err
	}
	size, err := queryInt(r, "pageSize")
	if err != nil {
		return engine.SearchRequest{}, err
	}
	return engine.SearchRequest{
		Query:    q.Get("q"),
		Category: q.Get("category"),
		Page:     page,
		PageSize: size,
		View:     q.Get("view"),
	}, nil
}

func (ht *HTTP) Health(w http.ResponseWriter, r *http.Request) {
	if ht.health != nil {
		if err := ht.health(r.Context()); err != nil {
			observability.FromContext(r.Context()).Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Expand returns every spelling the query is matched with.
func (ht *HTTP) Expand(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	candidates, err := ht.dir.Candidates(query)
	if err != nil {
		ErrWriter(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":      query,
		"candidates": candidates,
	})
}

func (ht *HTTP) Suggest(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		ErrWriter(w, r, err)
		return
	}
	prefix := r.URL.Query().Get("prefix")
	writeJSON(w, http.StatusOK, map[string]any{
		"prefix":      prefix,
		"suggestions": ht.dir.Suggest(prefix, limit),
	})
}

// SearchBusinesses handles GET /api/business?q=&category=&page=&pageSize=&view=.
func (ht *HTTP) SearchBusinesses(w http.ResponseWriter, r *http.Request) {
	req, err := searchRequest(r)
	if err != nil {
		ErrWriter(w, r, err)
		return
	}
	start := time.Now()
	page, err := ht.dir.SearchBusinesses(r.Context(), req)
	if err != nil {
		ErrWriter(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":    req.Query,
		"response": page,
		"duration": time.Since(start).String(),
	})
}

func (ht *HTTP) GetBusiness(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrWriter(w, r, err)
		return
	}
	b, err := ht.dir.Business(r.Context(), id)
	if err != nil {
		ErrWriter(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// SaveBusiness creates a business, or updates it when the body carries an id.
func (ht *HTTP) SaveBusiness(w http.ResponseWriter, r *http.Request) {
	var req BusinessRequest
	if err := ht.decode(w, r, &req); err != nil {
		ErrWriter(w, r, err)
		return
	}
	in := req.input()
	if err := ht.validate.Struct(in.Business); err != nil {
		ErrWriter(w, r, err)
		return
	}

	status := http.StatusOK
	if in.Business.ID == 0 {
		status = http.StatusCreated
	}
	if err := ht.dir.SaveBusiness(r.Context(), &in.Business, in.KeywordIDs); err != nil {
		ErrWriter(w, r, err)
		return
	}
	writeJSON(w, status, in.Business)
}

// SaveBusinessesInBulk saves a JSON array of businesses in order. It stops
// at the first failure; earlier businesses stay saved.
func (ht *HTTP) SaveBusinessesInBulk(w http.ResponseWriter, r *http.Request) {
	var reqs []BusinessRequest
	if err := ht.decode(w, r, &reqs); err != nil {
		ErrWriter(w, r, err)
		return
	}

	inputs := make([]engine.BusinessInput, 0, len(reqs))
	for i, req := range reqs {
		in := req.input()
		if err := ht.validate.Struct(in.Business); err != nil {
			ErrWriter(w, r, fmt.Errorf("business %d: %w", i+1, err))
			return
		}
		inputs = append(inputs, in)
	}

	start := time.Now()
	saved, err := ht.dir.SaveBusinesses(r.Context(), inputs)
	if err != nil {
		observability.FromContext(r.Context()).Warn("bulk save stopped",
			zap.Int("saved", len(saved)),
			zap.Int("requested", len(inputs)),
			zap.Error(err),
		)
		ErrWriter(w, r, err)
		return
	}
	elapsed := time.Since(start)
	writeJSON(w, http.StatusOK, BulkResponse{
		SavedCount: len(saved),
		Duration:   elapsed.String(),
		DurationMs: elapsed.Milliseconds(),
		Data:       saved,
	})
}

func (ht *HTTP) DeleteBusiness(w http.ResponseWriter, r *http.Request) {
	ht.deleteByID(w, r, ht.dir.DeleteBusiness)
}

func (ht *HTTP) deleteByID(w http.ResponseWriter, r *http.Request, del func(context.Context, int64) error) {
	id, err := pathID(r)
	if err != nil {
		ErrWriter(w, r, err)
		return
	}
	if err := del(r.Context(), id); err != nil {
		ErrWriter(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "id": id})
}

// SearchUsers handles GET /api/users?q=&page=&pageSize=.
func (ht *HTTP) SearchUsers(w http.ResponseWriter, r *http.Request) {
	req, err := searchRequest(r)
	if err != nil {
		ErrWriter(w, r, err)
		return
	}
	page, err := ht.dir.SearchUsers(r.Context(), req)
	if err != nil {
		ErrWriter(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":    req.Query,
		"response": page,
	})
}

func (ht *HTTP) SaveUser(w http.ResponseWriter, r *http.Request) {
	var u models.User
	if err := ht.decode(w, r, &u); err != nil {
		ErrWriter(w, r, err)
		return
	}
	if err := ht.validate.Struct(u); err != nil {
		ErrWriter(w, r, err)
		return
	}
	status := http.StatusOK
	if u.ID == 0 {
		status = http.StatusCreated
	}
	if err := ht.dir.SaveUser(r.Context(), &u); err != nil {
		ErrWriter(w, r, err)
		return
	}
	writeJSON(w, status, u)
}

// SetAdmin handles PATCH /api/users/{id}/admin with {"isAdmin": bool}.
func (ht *HTTP) SetAdmin(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrWriter(w, r, err)
		return
	}
	var req AdminRequest
	if err := ht.decode(w, r, &req); err != nil {
		ErrWriter(w, r, err)
		return
	}
	if err := ht.validate.Struct(req); err != nil {
		ErrWriter(w, r, err)
		return
	}
	u, err := ht.dir.SetAdmin(r.Context(), id, *req.IsAdmin)
	if err != nil {
		ErrWriter(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (ht *HTTP) DeleteUser(w http.ResponseWriter, r *http.Request) {
	ht.deleteByID(w, r, ht.dir.DeleteUser)
}

func (ht *HTTP) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := ht.dir.Categories(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		ErrWriter(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": categories})
}

func (ht *HTTP) SaveCategory(w http.ResponseWriter, r *http.Request) {
	var c models.Category
	if err := ht.decode(w, r, &c); err != nil {
		ErrWriter(w, r, err)
		return
	}
	if err := ht.validate.Struct(c); err != nil {
		ErrWriter(w, r, err)
		return
	}
	status := http.StatusOK
	if c.ID == 0 {
		status = http.StatusCreated
	}
	if err := ht.dir.SaveCategory(r.Context(), &c); err != nil {
		ErrWriter(w, r, err)
		return
	}
	writeJSON(w, status, c)
}

func (ht *HTTP) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	ht.deleteByID(w, r, ht.dir.DeleteCategory)
}

func (ht *HTTP) Keywords(w http.ResponseWriter, r *http.Request) {
	keywords, err := ht.dir.Keywords(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		ErrWriter(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": keywords})
}

func (ht *HTTP) SaveKeyword(w http.ResponseWriter, r *http.Request) {
	var k models.Keyword
	if err := ht.decode(w, r, &k); err != nil {
		ErrWriter(w, r, err)
		return
	}
	if err := ht.validate.Struct(k); err != nil {
		ErrWriter(w, r, err)
		return
	}
	status := http.StatusOK
	if k.ID == 0 {
		status = http.StatusCreated
	}
	if err := ht.dir.SaveKeyword(r.Context(), &k); err != nil {
		ErrWriter(w, r, err)
		return
	}
	writeJSON(w, status, k)
}

func (ht *HTTP) DeleteKeyword(w http.ResponseWriter, r *http.Request) {
	ht.deleteByID(w, r, ht.dir.DeleteKeyword)
}

// RecordSearch handles POST /api/popularsearches with {"keyword": "..."}.
func (ht *HTTP) RecordSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRecordRequest
	if err := ht.decode(w, r, &req); err != nil {
		ErrWriter(w, r, err)
		return
	}
	if err := ht.validate.Struct(req); err != nil {
		ErrWriter(w, r, err)
		return
	}
	ps, err := ht.dir.RecordSearch(r.Context(), req.Keyword)
	if err != nil {
		ErrWriter(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ps)
}

// PopularBusinesses handles GET /api/popularsearches/popular?limit=.
func (ht *HTTP) PopularBusinesses(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		ErrWriter(w, r, err)
		return
	}
	businesses, err := ht.dir.PopularBusinesses(r.Context(), limit)
	if err != nil {
		ErrWriter(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": businesses})
}
