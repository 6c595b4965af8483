// Package chi implements the HTTP API on the chi router.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/metarepo/internal/domain"
	aggregateuc "github.com/kailas-cloud/metarepo/internal/usecase/aggregate"
	attachmentuc "github.com/kailas-cloud/metarepo/internal/usecase/attachment"
	resourceuc "github.com/kailas-cloud/metarepo/internal/usecase/resource"
	searchuc "github.com/kailas-cloud/metarepo/internal/usecase/search"
)

// Pinger reports liveness of a backing component.
type Pinger interface {
	Ping(ctx context.Context) error
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the use case services behind the HTTP API.
type Server struct {
	resources *resourceuc.Service
	metadata  *attachmentuc.Service
	stats     *attachmentuc.Service
	search    *searchuc.Service
	aggregate *aggregateuc.Service
	health    map[string]Pinger
	logger    *zap.Logger

	defaultPageSize int
	maxPageSize     int

	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	resources *resourceuc.Service,
	metadata *attachmentuc.Service,
	stats *attachmentuc.Service,
	search *searchuc.Service,
	aggregate *aggregateuc.Service,
	health map[string]Pinger,
	logger *zap.Logger,
) *Server {
	s := &Server{
		resources:       resources,
		metadata:        metadata,
		stats:           stats,
		search:          search,
		aggregate:       aggregate,
		health:          health,
		logger:          logger,
		defaultPageSize: 20,
		maxPageSize:     100,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrResourceNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, codeAlreadyExists),
		sentinelHandler(domain.ErrInvalidRecord, http.StatusBadRequest, codeValidationFailed),
	}
	return s
}

// WithPagination overrides the default and maximum page sizes.
func (s *Server) WithPagination(defaultSize, maxSize int) *Server {
	if defaultSize > 0 {
		s.defaultPageSize = defaultSize
	}
	if maxSize > 0 {
		s.maxPageSize = maxSize
	}
	return s
}

// Routes registers all API routes on the router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.healthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/resources", func(r chi.Router) {
			r.Post("/", s.createResource)
			r.Get("/", s.listResources)
			r.Get("/search", s.searchKind(domain.KindResource))
			r.Route("/{uuid}", func(r chi.Router) {
				// Reads resolve across tenants; writes touch the
				// viewer's own copy only.
				r.Get("/", s.representativeResource)
				r.Patch("/", s.updateResource)
				r.Delete("/", s.deleteResource)
				r.Post("/metadata", s.createAttachment(domain.KindMetadata))
				r.Get("/metadata", s.unionAttachments(domain.KindMetadata))
				r.Post("/stats", s.createAttachment(domain.KindStats))
				r.Get("/stats", s.unionAttachments(domain.KindStats))
			})
		})

		for _, kind := range []domain.Kind{domain.KindMetadata, domain.KindStats} {
			r.Route("/"+kind.String(), func(r chi.Router) {
				r.Get("/", s.listAttachments(kind))
				r.Get("/search", s.searchKind(kind))
				r.Route("/{uuid}", func(r chi.Router) {
					r.Get("/", s.getAttachment(kind))
					r.Patch("/", s.updateAttachment(kind))
					r.Delete("/", s.deleteAttachment(kind))
				})
			})
		}
	})
}

// --- Resources ---

func (s *Server) createResource(w http.ResponseWriter, r *http.Request) {
	app, ok := applicationFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "no authenticated application")
		return
	}

	var req resourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	rec, err := s.resources.Create(r.Context(), app, resourceParams(&req))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resourceToDTO(&rec))
}

func (s *Server) listResources(w http.ResponseWriter, r *http.Request) {
	app, ok := applicationFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "no authenticated application")
		return
	}

	page, perPage := s.pageParams(r)
	res, err := s.resources.List(r.Context(), app, orderParams(r), page, perPage)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resourceListToDTO(res))
}

func (s *Server) updateResource(w http.ResponseWriter, r *http.Request) {
	app, ok := applicationFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "no authenticated application")
		return
	}

	var req resourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	rec, err := s.resources.Update(r.Context(), app, chi.URLParam(r, "uuid"), resourceParams(&req))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resourceToDTO(&rec))
}

func (s *Server) deleteResource(w http.ResponseWriter, r *http.Request) {
	app, ok := applicationFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "no authenticated application")
		return
	}

	if err := s.resources.Delete(r.Context(), app, chi.URLParam(r, "uuid")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Attachments ---

func (s *Server) attachmentSvc(kind domain.Kind) *attachmentuc.Service {
	if kind == domain.KindStats {
		return s.stats
	}
	return s.metadata
}

func (s *Server) createAttachment(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		app, ok := applicationFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "no authenticated application")
			return
		}

		var req attachmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
			return
		}

		rec, err := s.attachmentSvc(kind).Create(r.Context(), app, chi.URLParam(r, "uuid"), attachmentParams(&req))
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, attachmentToDTO(&rec))
	}
}

// listAttachments lists the viewer's own attachments of a kind,
// optionally narrowed to one parent resource via ?resource={uuid}.
func (s *Server) listAttachments(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		app, ok := applicationFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "no authenticated application")
			return
		}

		page, perPage := s.pageParams(r)
		resourceUUID := r.URL.Query().Get("resource")
		res, err := s.attachmentSvc(kind).List(r.Context(), app, resourceUUID, orderParams(r), page, perPage)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, attachmentListToDTO(res))
	}
}

func (s *Server) getAttachment(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		app, ok := applicationFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "no authenticated application")
			return
		}

		rec, err := s.attachmentSvc(kind).Get(r.Context(), app, chi.URLParam(r, "uuid"))
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, attachmentToDTO(&rec))
	}
}

func (s *Server) updateAttachment(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		app, ok := applicationFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "no authenticated application")
			return
		}

		var req attachmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
			return
		}

		rec, err := s.attachmentSvc(kind).Update(r.Context(), app, chi.URLParam(r, "uuid"), attachmentParams(&req))
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, attachmentToDTO(&rec))
	}
}

func (s *Server) deleteAttachment(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		app, ok := applicationFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "no authenticated application")
			return
		}

		if err := s.attachmentSvc(kind).Delete(r.Context(), app, chi.URLParam(r, "uuid")); err != nil {
			s.handleDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// --- Search ---

func (s *Server) searchKind(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		app, ok := applicationFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "no authenticated application")
			return
		}

		q := r.URL.Query()
		page, perPage := s.pageParams(r)
		params := &searchuc.Params{
			Kind:      kind,
			Query:     q.Get("query"),
			Language:  q.Get("language"),
			Prefix:    q.Get("prefix") == "true",
			Order:     orderParams(r),
			Page:      page,
			PerPage:   perPage,
			Highlight: q.Get("highlight") == "true",
		}

		res, err := s.search.Search(r.Context(), app, params)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		if kind == domain.KindResource {
			writeJSON(w, http.StatusOK, resourceListToDTO(res))
			return
		}
		writeJSON(w, http.StatusOK, attachmentListToDTO(res))
	}
}

// --- Aggregation ---

func (s *Server) representativeResource(w http.ResponseWriter, r *http.Request) {
	app, ok := applicationFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "no authenticated application")
		return
	}

	rec, err := s.aggregate.Representative(r.Context(), app, chi.URLParam(r, "uuid"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resourceToDTO(&rec))
}

func (s *Server) unionAttachments(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		app, ok := applicationFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "no authenticated application")
			return
		}

		recs, err := s.aggregate.Union(r.Context(), app, kind, chi.URLParam(r, "uuid"))
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		items := make([]attachmentResponse, len(recs))
		for i := range recs {
			items[i] = attachmentToDTO(&recs[i])
		}
		writeJSON(w, http.StatusOK, attachmentListResponse{
			Items:      items,
			TotalCount: len(items),
			Page:       1,
			PerPage:    len(items),
		})
	}
}

// --- Health ---

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(s.health))
	healthy := true
	for name, p := range s.health {
		if err := p.Ping(r.Context()); err != nil {
			s.logger.Warn("health check failed", zap.String("component", name), zap.Error(err))
			checks[name] = "unhealthy"
			healthy = false
			continue
		}
		checks[name] = "healthy"
	}

	status, httpStatus := "healthy", http.StatusOK
	if !healthy {
		status, httpStatus = "unhealthy", http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, map[string]any{
		"status": status,
		"checks": checks,
	})
}

// --- Helpers ---

func resourceParams(req *resourceRequest) *resourceuc.Params {
	return &resourceuc.Params{
		UUID:         req.ID,
		URI:          req.URI,
		ResourceType: req.ResourceType,
		Title:        req.Title,
		Content:      req.Content,
		Language:     req.Language,
		UserUUID:     req.UserID,
	}
}

func attachmentParams(req *attachmentRequest) *attachmentuc.Params {
	return &attachmentuc.Params{
		UUID:     req.ID,
		Value:    req.Value,
		Language: req.Language,
		UserUUID: req.UserID,
	}
}

// pageParams reads page and per_page, applying defaults and the size cap.
// An explicit non-numeric or negative per_page falls back to the default;
// an explicit zero is kept, it means "count only nothing".
func (s *Server) pageParams(r *http.Request) (int, int) {
	q := r.URL.Query()

	page := 1
	if raw := q.Get("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			page = v
		}
	}

	perPage := s.defaultPageSize
	if raw := q.Get("per_page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			perPage = v
		}
	}
	if perPage > s.maxPageSize {
		perPage = s.maxPageSize
	}
	return page, perPage
}

// orderParams collects order tokens from repeated and comma-separated
// "order_by" query parameters.
func orderParams(r *http.Request) []string {
	var tokens []string
	for _, raw := range r.URL.Query()["order_by"] {
		for _, tok := range strings.Split(raw, ",") {
			if tok = strings.TrimSpace(tok); tok != "" {
				tokens = append(tokens, tok)
			}
		}
	}
	return tokens
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrResourceNotFound,
		domain.ErrNotFound,
		domain.ErrAlreadyExists,
		domain.ErrInvalidRecord,
		domain.ErrApplicationNotFound,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			s.logger.Warn("domain error", zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
