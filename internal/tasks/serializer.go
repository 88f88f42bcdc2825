package tasks

import "github.com/saltyorg/taskd/internal/database"

// Serializer converts store records to wire DTOs
type Serializer struct{}

// Serialize maps a task record to its DTO
func (Serializer) Serialize(task *database.Task) TaskDTO {
	return TaskDTO{
		ID:        task.ID,
		Name:      task.Name,
		CreatedAt: Date(task.CreatedAt),
	}
}

// SerializeAll maps records in order; the result is never nil
func (s Serializer) SerializeAll(tasks []*database.Task) []TaskDTO {
	out := make([]TaskDTO, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, s.Serialize(task))
	}
	return out
}
