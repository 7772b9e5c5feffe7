package publishing

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/creatorly/publisher/common"
	"github.com/creatorly/publisher/internal/dto"
	"github.com/creatorly/publisher/internal/queue"
	"github.com/creatorly/publisher/middleware"
)

// JobReader is the read-only queue surface exposed over HTTP for status
// displays. Mutation stays behind the service.
type JobReader interface {
	GetJob(id string) (*queue.Job, bool)
	JobsByUser(userID string) []*queue.Job
	Stats() queue.Stats
}

// Handler serves the publishing API. It is the only supported entry point
// for UI code; nothing reaches into the queue or registry directly.
type Handler struct {
	service ServiceInterface
	jobs    JobReader
}

func NewHandler(service ServiceInterface, jobs JobReader) *Handler {
	return &Handler{service: service, jobs: jobs}
}

// RegisterRoutes mounts the publishing surface under /v1.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	v1 := r.Group("/v1")
	v1.POST("/publish", h.Publish)
	v1.POST("/publish/batch", h.BatchPublish)
	v1.POST("/posts/:id/retry", h.RetryPost)
	v1.DELETE("/posts/:id", h.DeletePost)
	v1.GET("/posts", h.ListPosts)
	v1.GET("/jobs/:id", h.GetJob)
	v1.GET("/jobs", h.ListJobs)
	v1.GET("/queue/stats", h.QueueStats)
}

func (h *Handler) Publish(c *gin.Context) {
	var req dto.PublishRequestDTO
	if !middleware.Bind(c, &req) {
		c.Abort()
		return
	}

	result, err := h.service.PublishContent(c.Request.Context(), PublishRequest{
		ContentID:    req.ContentID,
		WorkspaceID:  req.WorkspaceID,
		UserID:       req.UserID,
		Platforms:    req.Platforms,
		ScheduledFor: req.ScheduledFor,
	})
	if err != nil {
		c.Error(common.Errf(http.StatusNotFound, "publish failed: %v", err))
		c.Abort()
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}

func (h *Handler) BatchPublish(c *gin.Context) {
	var req dto.BatchPublishRequestDTO
	if !middleware.Bind(c, &req) {
		c.Abort()
		return
	}

	results := h.service.BatchPublish(c.Request.Context(), BatchPublishRequest{
		ContentIDs:   req.ContentIDs,
		WorkspaceID:  req.WorkspaceID,
		UserID:       req.UserID,
		Platforms:    req.Platforms,
		ScheduledFor: req.ScheduledFor,
	})
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *Handler) RetryPost(c *gin.Context) {
	job, err := h.service.RetryFailedPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(common.Errf(http.StatusNotFound, "retry failed: %v", err))
		c.Abort()
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID})
}

func (h *Handler) DeletePost(c *gin.Context) {
	if err := h.service.DeletePublishedPost(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(common.Errf(http.StatusNotFound, "delete failed: %v", err))
		c.Abort()
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListPosts(c *gin.Context) {
	workspaceID := c.Query("workspace_id")
	if workspaceID == "" {
		c.Error(common.Errf(http.StatusBadRequest, "workspace_id is required"))
		c.Abort()
		return
	}

	limit := 50
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}

	posts, err := h.service.GetPublishedPosts(c.Request.Context(), workspaceID, PostFilter{
		Platform: c.Query("platform"),
		Status:   c.Query("status"),
		Limit:    limit,
	})
	if err != nil {
		c.Error(common.Errf(http.StatusInternalServerError, "list posts: %v", err))
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (h *Handler) GetJob(c *gin.Context) {
	job, ok := h.jobs.GetJob(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, common.APIError{Message: "job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) ListJobs(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.Error(common.Errf(http.StatusBadRequest, "user_id is required"))
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": h.jobs.JobsByUser(userID)})
}

func (h *Handler) QueueStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.jobs.Stats())
}
