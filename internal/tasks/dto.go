package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DateLayout is the wire format of TaskDTO.CreatedAt
const DateLayout = "2006-01-02"

// Default pagination when the caller supplies none
const (
	DefaultPage    = 1
	DefaultPerPage = 10
)

// ErrMissingName is returned when a create or update body has no name
var ErrMissingName = errors.New("name is required")

// Date is a timestamp serialized as its calendar date only
type Date time.Time

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(d).Format(DateLayout))
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	*d = Date(t)
	return nil
}

// String returns the date in DateLayout
func (d Date) String() string {
	return time.Time(d).Format(DateLayout)
}

// TaskDTO is the wire representation of a task
type TaskDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt Date   `json:"created_at"`
}

// TaskCreateDTO is the body of a create request
type TaskCreateDTO struct {
	Name *string `json:"name"`
}

// Validate checks that name is present. Any string, empty included, is accepted.
func (d TaskCreateDTO) Validate() error {
	if d.Name == nil {
		return ErrMissingName
	}
	return nil
}

// TaskUpdateDTO is the body of an update request
type TaskUpdateDTO struct {
	Name *string `json:"name"`
}

// Validate checks that name is present
func (d TaskUpdateDTO) Validate() error {
	if d.Name == nil {
		return ErrMissingName
	}
	return nil
}

// ListParameters selects one page of tasks
type ListParameters struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// DefaultListParameters returns the first page with the default size
func DefaultListParameters() ListParameters {
	return ListParameters{Page: DefaultPage, PerPage: DefaultPerPage}
}

// ListResponse is the body of a list response
type ListResponse struct {
	Parameters ListParameters `json:"parameters"`
	Tasks      []TaskDTO      `json:"tasks"`
}
