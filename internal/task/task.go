package task

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
)

var (
	ErrTitleRequired      = errors.New("title is required")
	ErrTitleTooLong       = fmt.Errorf("title must be at most %d characters", MaxTitleLength)
	ErrDescriptionTooLong = fmt.Errorf("description must be at most %d characters", MaxDescriptionLength)
	ErrInvalidStatus      = errors.New("status must be 'pending' or 'completed'")
)

type Task struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Status      Status     `json:"status" db:"status"`
	Points      int        `json:"points" db:"points"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      Status `json:"status"`
}

// ReplaceTaskRequest is a full replacement: absent fields take their defaults.
type ReplaceTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      Status `json:"status"`
}

// PatchTaskRequest updates only the fields that are present in the body.
type PatchTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *Status `json:"status,omitempty"`
}

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

func (r *CreateTaskRequest) Validate() error {
	if err := validateTitle(r.Title); err != nil {
		return err
	}
	if len(r.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	if !r.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

func (r *ReplaceTaskRequest) Validate() error {
	if err := validateTitle(r.Title); err != nil {
		return err
	}
	if len(r.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	if !r.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

func (r *PatchTaskRequest) Validate() error {
	if r.Title != nil {
		if err := validateTitle(*r.Title); err != nil {
			return err
		}
	}
	if r.Description != nil && len(*r.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if r.Status != nil && !r.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// IsValidationError reports whether err is one of the request validation
// errors, so handlers can map it to a 400 instead of a 500.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrTitleRequired) ||
		errors.Is(err, ErrTitleTooLong) ||
		errors.Is(err, ErrDescriptionTooLong) ||
		errors.Is(err, ErrInvalidStatus)
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrTitleRequired
	}
	if len(title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}
