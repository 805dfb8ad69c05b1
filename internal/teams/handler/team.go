package handler

import (
	"encoding/json"
	"net/http"

	"roombook/internal/teams/service"
	apperrors "roombook/pkg/errors"
	httputil "roombook/pkg/http"
	"roombook/pkg/logger"
	"roombook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type TeamHandler struct {
	service service.TeamService
	log     *logger.Logger
}

func NewTeamHandler(service service.TeamService, log *logger.Logger) *TeamHandler {
	return &TeamHandler{
		service: service,
		log:     log,
	}
}

func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var team model.Team
	if err := json.NewDecoder(r.Body).Decode(&team); err != nil {
		h.fail(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.Create(r.Context(), &team); err != nil {
		h.fail(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, team); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *TeamHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httputil.ExtractID(ps)
	if err != nil {
		h.fail(w, "GetByID", err)
		return
	}

	team, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, team); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TeamHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.fail(w, "GetAll", err)
		return
	}

	teams, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		h.fail(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, teams, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *TeamHandler) AddMembers(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httputil.ExtractID(ps)
	if err != nil {
		h.fail(w, "AddMembers", err)
		return
	}

	var update model.TeamMembersUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.fail(w, "AddMembers", apperrors.InvalidInput("Invalid request body"))
		return
	}

	team, err := h.service.AddMembers(r.Context(), id, &update)
	if err != nil {
		h.fail(w, "AddMembers", err)
		return
	}

	if err := httputil.WriteSuccess(w, team); err != nil {
		h.log.Error("failed to write success response", "handler", "AddMembers", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httputil.ExtractID(ps)
	if err != nil {
		h.fail(w, "Delete", err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *TeamHandler) fail(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *TeamHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/teams", h.Create)
	router.GET("/api/v1/teams", h.GetAll)
	router.GET("/api/v1/teams/id/:id", h.GetByID)
	router.DELETE("/api/v1/teams/id/:id", h.Delete)
	router.POST("/api/v1/teams/id/:id/members", h.AddMembers)
}
