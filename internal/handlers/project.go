package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/workspace/internal/models"
	"github.com/monocle-dev/workspace/internal/store"
	"github.com/monocle-dev/workspace/internal/types"
	"github.com/monocle-dev/workspace/internal/utils"
)

func (h *Handler) ListProjects(ctx *gin.Context) {
	filter := store.ProjectFilter{
		Status: ctx.Query("status"),
		Search: ctx.Query("search"),
		Page:   utils.QueryInt(ctx, "page", types.DefaultPage),
		Limit:  utils.QueryInt(ctx, "limit", types.DefaultPageLimit),
	}.Normalize()

	projects, total, err := h.store.ListProjects(ctx.Request.Context(), filter)

	if err != nil {
		h.writeError(ctx, err, "Project not found", "Failed to retrieve projects")
		return
	}

	if projects == nil {
		projects = []models.Project{}
	}

	ctx.JSON(http.StatusOK, types.ProjectListResponse{
		Data:       projects,
		Pagination: types.NewPagination(filter.Page, filter.Limit, total),
	})
}

func (h *Handler) GetProject(ctx *gin.Context) {
	projectID, err := utils.GetProjectID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reqCtx := ctx.Request.Context()

	project, err := h.store.GetProject(reqCtx, projectID)
	if err != nil {
		h.writeError(ctx, err, "Project not found", "Failed to retrieve project")
		return
	}

	members, err := h.store.ProjectMembers(reqCtx, projectID)
	if err != nil {
		h.writeError(ctx, err, "Project not found", "Failed to retrieve project")
		return
	}

	activities, err := h.store.ProjectActivities(reqCtx, projectID)
	if err != nil {
		h.writeError(ctx, err, "Project not found", "Failed to retrieve project")
		return
	}

	if members == nil {
		members = []models.Member{}
	}
	if activities == nil {
		activities = []models.Activity{}
	}

	ctx.JSON(http.StatusOK, types.ProjectDetailResponse{
		Project:    project,
		Members:    members,
		Activities: activities,
	})
}

// UpdateProject merges the body into the project, stamps updatedAt and notifies
// websocket subscribers.
func (h *Handler) UpdateProject(ctx *gin.Context) {
	projectID, err := utils.GetProjectID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var patch models.ProjectPatch

	if err := ctx.ShouldBindJSON(&patch); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if patch.Status != nil && !patch.Status.Valid() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Project name is required"})
		return
	}

	project, err := h.store.UpdateProject(ctx.Request.Context(), projectID, patch, h.now().UTC())

	if err != nil {
		h.writeError(ctx, err, "Project not found", "Failed to persist project")
		return
	}

	if h.hub != nil {
		h.hub.BroadcastRefresh(projectID)
	}

	if patch.Status != nil {
		h.log.Infow("project status changed", "project_id", projectID, "status", project.Status)
	}

	ctx.JSON(http.StatusOK, types.ProjectUpdateResponse{
		Project: project,
		Message: "Project updated successfully",
	})
}
