package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/detectivedex/evidencegraph/internal/application"
	"github.com/detectivedex/evidencegraph/internal/domain"
	"github.com/detectivedex/evidencegraph/internal/report"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type Handler struct {
	service *application.EvidenceService
	reports *report.Generator
	logger  *zap.Logger
}

func NewRouter(service *application.EvidenceService, reports *report.Generator, logger *zap.Logger, allowedOrigins []string) http.Handler {
	h := &Handler{service: service, reports: reports, logger: logger}

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         3600,
	}))

	r.Route("/api", func(api chi.Router) {
		api.Route("/nodes", func(nodes chi.Router) {
			nodes.Get("/", h.handleListNodes)
			nodes.Post("/", h.handleCreateNode)
			nodes.Get("/type/{type}", h.handleListNodesByType)
			nodes.Get("/severity/{severity}", h.handleListNodesBySeverity)
			nodes.Get("/status/{status}", h.handleListNodesByStatus)
			nodes.Get("/{id}", h.handleGetNode)
			nodes.Put("/{id}", h.handleUpdateNode)
			nodes.Delete("/{id}", h.handleDeleteNode)
		})

		api.Route("/relations", func(relations chi.Router) {
			relations.Get("/", h.handleListRelations)
			relations.Post("/", h.handleCreateRelation)
			relations.Get("/from/{sourceId}", h.handleListRelationsFrom)
			relations.Get("/to/{targetId}", h.handleListRelationsTo)
			relations.Get("/type/{type}", h.handleListRelationsByType)
			relations.Get("/{id}", h.handleGetRelation)
			relations.Put("/{id}", h.handleUpdateRelation)
			relations.Delete("/{id}", h.handleDeleteRelation)
		})

		api.Route("/timeline", func(timeline chi.Router) {
			timeline.Get("/", h.handleListEvents)
			timeline.Post("/", h.handleCreateEvent)
			timeline.Get("/node/{nodeId}", h.handleListEventsForNode)
			timeline.Get("/type/{type}", h.handleListEventsByType)
			timeline.Get("/{id}", h.handleGetEvent)
			timeline.Put("/{id}", h.handleUpdateEvent)
			timeline.Delete("/{id}", h.handleDeleteEvent)
		})

		api.Route("/reports", func(reports chi.Router) {
			reports.Get("/export/json", h.handleExportJSON)
			reports.Get("/export/html", h.handleExportHTML)
			reports.Get("/statistics", h.handleStatistics)
		})
	})

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func (h *Handler) handleListNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.service.ListNodes(r.Context())
	if err != nil {
		h.writeError(w, err, "Node not found")
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (h *Handler) handleListNodesByType(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.service.ListNodesByType(r.Context(), chi.URLParam(r, "type"))
	if err != nil {
		h.writeError(w, err, "Node not found")
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (h *Handler) handleListNodesBySeverity(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.service.ListNodesBySeverity(r.Context(), chi.URLParam(r, "severity"))
	if err != nil {
		h.writeError(w, err, "Node not found")
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (h *Handler) handleListNodesByStatus(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.service.ListNodesByStatus(r.Context(), chi.URLParam(r, "status"))
	if err != nil {
		h.writeError(w, err, "Node not found")
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (h *Handler) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	var req application.CreateNodeInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	node, err := h.service.CreateNode(r.Context(), req)
	if err != nil {
		h.writeError(w, err, "Node not found")
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

func (h *Handler) handleGetNode(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	node, err := h.service.GetNode(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "Node not found")
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (h *Handler) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req application.UpdateNodeInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	node, err := h.service.UpdateNode(r.Context(), id, req)
	if err != nil {
		h.writeError(w, err, "Node not found")
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (h *Handler) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteNode(r.Context(), id); err != nil {
		h.writeError(w, err, "Node not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListRelations(w http.ResponseWriter, r *http.Request) {
	relations, err := h.service.ListRelations(r.Context())
	if err != nil {
		h.writeError(w, err, "Relation not found")
		return
	}
	writeJSON(w, http.StatusOK, relations)
}

func (h *Handler) handleListRelationsFrom(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUintParam(w, r, "sourceId")
	if !ok {
		return
	}
	relations, err := h.service.ListRelationsFrom(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "Relation not found")
		return
	}
	writeJSON(w, http.StatusOK, relations)
}

func (h *Handler) handleListRelationsTo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUintParam(w, r, "targetId")
	if !ok {
		return
	}
	relations, err := h.service.ListRelationsTo(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "Relation not found")
		return
	}
	writeJSON(w, http.StatusOK, relations)
}

func (h *Handler) handleListRelationsByType(w http.ResponseWriter, r *http.Request) {
	relations, err := h.service.ListRelationsByType(r.Context(), chi.URLParam(r, "type"))
	if err != nil {
		h.writeError(w, err, "Relation not found")
		return
	}
	writeJSON(w, http.StatusOK, relations)
}

func (h *Handler) handleCreateRelation(w http.ResponseWriter, r *http.Request) {
	var req application.CreateRelationInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	relation, err := h.service.CreateRelation(r.Context(), req)
	if err != nil {
		h.writeError(w, err, "Relation not found")
		return
	}
	writeJSON(w, http.StatusCreated, relation)
}

func (h *Handler) handleGetRelation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	relation, err := h.service.GetRelation(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "Relation not found")
		return
	}
	writeJSON(w, http.StatusOK, relation)
}

func (h *Handler) handleUpdateRelation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req application.UpdateRelationInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	relation, err := h.service.UpdateRelation(r.Context(), id, req)
	if err != nil {
		h.writeError(w, err, "Relation not found")
		return
	}
	writeJSON(w, http.StatusOK, relation)
}

func (h *Handler) handleDeleteRelation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteRelation(r.Context(), id); err != nil {
		h.writeError(w, err, "Relation not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.ListEvents(r.Context())
	if err != nil {
		h.writeError(w, err, "Event not found")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) handleListEventsForNode(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUintParam(w, r, "nodeId")
	if !ok {
		return
	}
	events, err := h.service.ListEventsForNode(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "Node not found")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) handleListEventsByType(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.ListEventsByType(r.Context(), chi.URLParam(r, "type"))
	if err != nil {
		h.writeError(w, err, "Event not found")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req application.CreateEventInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	event, err := h.service.CreateEvent(r.Context(), req)
	if err != nil {
		h.writeError(w, err, "Event not found")
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (h *Handler) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	event, err := h.service.GetEvent(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "Event not found")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *Handler) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req application.UpdateEventInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	event, err := h.service.UpdateEvent(r.Context(), id, req)
	if err != nil {
		h.writeError(w, err, "Event not found")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *Handler) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteEvent(r.Context(), id); err != nil {
		h.writeError(w, err, "Event not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	body, err := h.reports.ExportJSON(r.Context())
	if err != nil {
		h.writeError(w, err, "")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=evidencegraph-export.json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) handleExportHTML(w http.ResponseWriter, r *http.Request) {
	body, err := h.reports.ExportHTML(r.Context())
	if err != nil {
		h.writeError(w, err, "")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=evidencegraph-report.html")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reports.Statistics(r.Context())
	if err != nil {
		h.writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func parseID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	return parseUintParam(w, r, "id")
}

func parseUintParam(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	raw := chi.URLParam(r, name)
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid " + name})
		return 0, false
	}
	return uint(parsed), true
}

func (h *Handler) writeError(w http.ResponseWriter, err error, notFoundMessage string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": notFoundMessage})
	case domain.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "operation failed"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
