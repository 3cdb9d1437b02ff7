package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/planora/planora/internal/store"
)

// tasksHandler groups task-related HTTP handlers.
type tasksHandler struct {
	store  *store.Store
	events *eventsHandler
}

func newTasksHandler(st *store.Store, events *eventsHandler) *tasksHandler {
	return &tasksHandler{store: st, events: events}
}

// loadTask fetches a task by id and checks the caller's access to its event.
func (h *tasksHandler) loadTask(w http.ResponseWriter, r *http.Request, userID string) *store.Task {
	id := chi.URLParam(r, "id")
	task, err := h.store.GetTask(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to get task")
		return nil
	}
	if task == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "task not found")
		return nil
	}
	if !h.events.requireEventAccess(w, r, userID, task.EventID) {
		return nil
	}
	return task
}

// CreateTask handles POST /api/v1/events/{id}/tasks.
func (h *tasksHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	eventID := chi.URLParam(r, "id")
	if !h.events.requireEventAccess(w, r, u.ID, eventID) {
		return
	}

	var in store.CreateTaskInput
	if err := readJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "failed to parse request body")
		return
	}
	in.EventID = eventID

	if in.Title == "" {
		writeError(w, http.StatusUnprocessableEntity, codeValidation, "title is required")
		return
	}

	task, err := h.store.CreateTask(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to create task")
		return
	}

	_ = h.store.RecordActivity(r.Context(), eventID, u.ID, "create_task", task.Title)

	writeJSON(w, http.StatusCreated, task)
}

// ListTasks handles GET /api/v1/events/{id}/tasks.
func (h *tasksHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	eventID := chi.URLParam(r, "id")
	if !h.events.requireEventAccess(w, r, u.ID, eventID) {
		return
	}

	tasks, err := h.store.GetTasksByEvent(r.Context(), eventID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []*store.Task{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// GetTask handles GET /api/v1/tasks/{id}.
func (h *tasksHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	task := h.loadTask(w, r, u.ID)
	if task == nil {
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// UpdateTask handles PUT /api/v1/tasks/{id}.
func (h *tasksHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	task := h.loadTask(w, r, u.ID)
	if task == nil {
		return
	}

	var in store.UpdateTaskInput
	if err := readJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "failed to parse request body")
		return
	}

	updated, err := h.store.UpdateTask(r.Context(), task.ID, in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to update task")
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "task not found")
		return
	}

	_ = h.store.RecordActivity(r.Context(), task.EventID, u.ID, "update_task", updated.Title)

	writeJSON(w, http.StatusOK, updated)
}

// DeleteTask handles DELETE /api/v1/tasks/{id}.
func (h *tasksHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	task := h.loadTask(w, r, u.ID)
	if task == nil {
		return
	}

	if err := h.store.DeleteTask(r.Context(), task.ID); err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to delete task")
		return
	}

	_ = h.store.RecordActivity(r.Context(), task.EventID, u.ID, "delete_task", task.Title)

	w.WriteHeader(http.StatusNoContent)
}

// ListAssignees handles GET /api/v1/tasks/{id}/assignees.
func (h *tasksHandler) ListAssignees(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	task := h.loadTask(w, r, u.ID)
	if task == nil {
		return
	}

	assignees, err := h.store.GetTaskAssignees(r.Context(), task.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to list assignees")
		return
	}
	if assignees == nil {
		assignees = []*store.TaskAssignee{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"assignees": assignees})
}

// AddAssignee handles PUT /api/v1/tasks/{id}/assignees/{userID}.
func (h *tasksHandler) AddAssignee(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	task := h.loadTask(w, r, u.ID)
	if task == nil {
		return
	}

	userID := chi.URLParam(r, "userID")

	// Assignees must already be on the event's team.
	ok, err := h.store.HasUserAccessToEvent(r.Context(), userID, task.EventID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to check assignee access")
		return
	}
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, codeValidation, "assignee is not on the event team")
		return
	}

	if err := h.store.AddTaskAssignee(r.Context(), task.ID, userID); err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to add assignee")
		return
	}

	_ = h.store.RecordActivity(r.Context(), task.EventID, u.ID, "assign_task", userID)

	w.WriteHeader(http.StatusNoContent)
}

// RemoveAssignee handles DELETE /api/v1/tasks/{id}/assignees/{userID}.
func (h *tasksHandler) RemoveAssignee(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	task := h.loadTask(w, r, u.ID)
	if task == nil {
		return
	}

	userID := chi.URLParam(r, "userID")
	if err := h.store.RemoveTaskAssignee(r.Context(), task.ID, userID); err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to remove assignee")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
