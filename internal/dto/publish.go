package dto

import (
	"time"
)

type PublishRequestDTO struct {
	ContentID    string     `json:"content_id" validate:"required"`
	WorkspaceID  string     `json:"workspace_id" validate:"required"`
	UserID       string     `json:"user_id" validate:"required"`
	Platforms    []string   `json:"platforms" validate:"required,min=1,dive,required"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
}

type BatchPublishRequestDTO struct {
	ContentIDs   []string   `json:"content_ids" validate:"required,min=1,dive,required"`
	WorkspaceID  string     `json:"workspace_id" validate:"required"`
	UserID       string     `json:"user_id" validate:"required"`
	Platforms    []string   `json:"platforms" validate:"required,min=1,dive,required"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
}
