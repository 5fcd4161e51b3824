package tasks

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/task-manager/internal/apierr"
	"github.com/yourusername/task-manager/internal/auth"
	"github.com/yourusername/task-manager/internal/logging"
)

const (
	msgInvalidBody  = "Invalid request body"
	msgListFailed   = "Error fetching tasks"
	msgGetFailed    = "Error fetching task"
	msgCreateFailed = "Error creating task"
	msgUpdateFailed = "Error updating task"
	msgDeleteFailed = "Error deleting task"
	msgTaskUpdated  = "Task updated"
	msgTaskDeleted  = "Task deleted"
)

// Handler は /api/tasks/* のハンドラーです。RequireLogin の後段に置く前提です。
type Handler struct {
	svc    *Service
	logger logging.Logger
}

// NewHandler は Handler を作成します。logger が nil の場合はログを出力しません。
func NewHandler(svc *Service, logger logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register は group に CRUD ルートを登録します。
func (h *Handler) Register(group gin.IRoutes) {
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.POST("", h.Create)
	group.PUT("/:id", h.Update)
	group.DELETE("/:id", h.Delete)
}

type createRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
}

type updateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
}

// List は GET /api/tasks のハンドラーです。
func (h *Handler) List(c *gin.Context) {
	tasks, err := h.svc.List(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.fail(c, err, msgListFailed)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// Get は GET /api/tasks/:id のハンドラーです。
func (h *Handler) Get(c *gin.Context) {
	task, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, msgGetFailed)
		return
	}
	c.JSON(http.StatusOK, task)
}

// Create は POST /api/tasks のハンドラーです。
func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}

	task, err := h.svc.Create(c.Request.Context(), auth.UserID(c), CreateInput(req))
	if err != nil {
		h.fail(c, err, msgCreateFailed)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// Update は PUT /api/tasks/:id のハンドラーです。
func (h *Handler) Update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}

	task, err := h.svc.Update(c.Request.Context(), c.Param("id"), UpdateInput(req))
	if err != nil {
		h.fail(c, err, msgUpdateFailed)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msgTaskUpdated, "task": task})
}

// Delete は DELETE /api/tasks/:id のハンドラーです。
func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err, msgDeleteFailed)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msgTaskDeleted})
}

func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	if apierr.Respond(c, err, fallback) {
		h.logger.Error(c.Request.Context(), fallback, "error", err, "path", c.FullPath())
	}
}
