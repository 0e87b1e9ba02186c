package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Karim-Nady/Smart-Task-Reminder/internal/models"
	"github.com/Karim-Nady/Smart-Task-Reminder/internal/repositories"
	"github.com/Karim-Nady/Smart-Task-Reminder/internal/services"
)

// TaskHandler はタスク関連のハンドラーを管理します。
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler は新しいTaskHandlerを作成します。
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// currentUserID は認証ミドルウェアがセットしたユーザーIDを取り出します。
func currentUserID(c *gin.Context) (int, bool) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return 0, false
	}
	userID, ok := userIDVal.(int)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID type in context"})
		return 0, false
	}
	return userID, true
}

// CreateTaskHandler は新しいタスクを作成します。
func (h *TaskHandler) CreateTaskHandler(c *gin.Context) {
	var req models.TaskCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	createdTask, err := h.taskService.CreateTask(req, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save task to database"})
		return
	}
	c.JSON(http.StatusCreated, createdTask)
}

// GetTasksHandler はタスク一覧をフィルタ・ソート・ページネーション付きで取得します。
func (h *TaskHandler) GetTasksHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	filter, err := parseTaskFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tasks, err := h.taskService.GetTasks(userID, *filter)
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidSortField) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sort field"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tasks"})
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

// parseTaskFilter はクエリパラメータをTaskFilterに変換します。
func parseTaskFilter(c *gin.Context) (*repositories.TaskFilter, error) {
	var f repositories.TaskFilter

	if status := c.Query("status"); status != "" {
		f.Status = &status
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		priority, err := strconv.Atoi(priorityStr)
		if err != nil || priority < 1 || priority > 3 {
			return nil, errors.New("priority must be 1, 2 or 3")
		}
		f.Priority = &priority
	}
	if dueBefore := c.Query("due_before"); dueBefore != "" {
		t, err := time.Parse(time.RFC3339, dueBefore)
		if err != nil {
			return nil, errors.New("due_before must be RFC3339")
		}
		f.DueBefore = &t
	}
	if dueAfter := c.Query("due_after"); dueAfter != "" {
		t, err := time.Parse(time.RFC3339, dueAfter)
		if err != nil {
			return nil, errors.New("due_after must be RFC3339")
		}
		f.DueAfter = &t
	}

	limitStr := c.DefaultQuery("limit", "100")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > 1000 {
		return nil, errors.New("limit must be between 1 and 1000")
	}
	f.Limit = limit

	offsetStr := c.DefaultQuery("offset", "0")
	offset, err := strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		return nil, errors.New("offset must be >= 0")
	}
	f.Offset = offset

	f.SortBy = c.DefaultQuery("sort_by", "created_at")
	order := c.DefaultQuery("order", "desc")
	if order != "asc" && order != "desc" {
		return nil, errors.New("order must be asc or desc")
	}
	f.Order = order

	return &f, nil
}

// GetTaskByIDHandler は指定IDのタスクを取得します。
func (h *TaskHandler) GetTaskByIDHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(id, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task"})
		return
	}
	c.JSON(http.StatusOK, task)
}

// UpdateTaskHandler はタスクを部分更新します。
func (h *TaskHandler) UpdateTaskHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req models.TaskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	updatedTask, err := h.taskService.UpdateTask(id, req, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
		return
	}
	c.JSON(http.StatusOK, updatedTask)
}

// DeleteTaskHandler はタスクを削除します。
func (h *TaskHandler) DeleteTaskHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(id, userID); err != nil {
		if errors.Is(err, repositories.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete task"})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetUpcomingTasksHandler は期限が未来のpendingタスクを返します。
func (h *TaskHandler) GetUpcomingTasksHandler(c *gin.Context) {
	h.listWith(c, h.taskService.Upcoming)
}

// GetOverdueTasksHandler は期限切れの未完了タスクを返します。
func (h *TaskHandler) GetOverdueTasksHandler(c *gin.Context) {
	h.listWith(c, h.taskService.Overdue)
}

// GetDueSoonTasksHandler は期限が24時間以内に迫ったタスクを返します。
func (h *TaskHandler) GetDueSoonTasksHandler(c *gin.Context) {
	h.listWith(c, h.taskService.DueSoon)
}

func (h *TaskHandler) listWith(c *gin.Context, fetch func(int) ([]*models.Task, error)) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	tasks, err := fetch(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tasks"})
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

// GetInsightsHandler はタスクの集計サマリーを返します。
func (h *TaskHandler) GetInsightsHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	insights, err := h.taskService.Insights(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute insights"})
		return
	}
	c.JSON(http.StatusOK, insights)
}
