package handlers

import (
	"net/http"

	"github.com/saltyorg/taskd/internal/tasks"
)

const taskNotFound = "Task not found"

// ListTasks handles GET /task/?page=&page_size=
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) error {
	page, err := positiveQueryInt(r, "page", tasks.DefaultPage)
	if err != nil {
		return err
	}
	perPage, err := positiveQueryInt(r, "page_size", tasks.DefaultPerPage)
	if err != nil {
		return err
	}

	params := tasks.ListParameters{Page: page, PerPage: perPage}
	items, err := h.service(r).ListTasks(r.Context(), params)
	if err != nil {
		return err
	}

	h.jsonResponse(w, http.StatusOK, tasks.ListResponse{Parameters: params, Tasks: items})
	return nil
}

// GetTask handles GET /task/{id}
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) error {
	id, err := taskID(r)
	if err != nil {
		return err
	}

	task, err := h.service(r).GetTask(r.Context(), id)
	if err != nil {
		return err
	}
	if task == nil {
		return notFound(taskNotFound)
	}

	h.jsonResponse(w, http.StatusOK, task)
	return nil
}

// CreateTask handles POST /task/
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) error {
	var in tasks.TaskCreateDTO
	if err := decodeJSON(w, r, &in); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return unprocessable(err.Error())
	}

	task, err := h.service(r).CreateTask(r.Context(), in)
	if err != nil {
		return err
	}

	h.jsonResponse(w, http.StatusOK, task)
	return nil
}

// UpdateTask handles PUT /task/{id}
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) error {
	id, err := taskID(r)
	if err != nil {
		return err
	}
	var in tasks.TaskUpdateDTO
	if err := decodeJSON(w, r, &in); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return unprocessable(err.Error())
	}

	task, err := h.service(r).UpdateTask(r.Context(), id, in)
	if err != nil {
		return err
	}
	if task == nil {
		return notFound(taskNotFound)
	}

	h.jsonResponse(w, http.StatusOK, task)
	return nil
}

// DeleteTask handles DELETE /task/{id}
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) error {
	id, err := taskID(r)
	if err != nil {
		return err
	}

	deleted, err := h.service(r).DeleteTask(r.Context(), id)
	if err != nil {
		return err
	}
	if !deleted {
		return notFound(taskNotFound)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}
