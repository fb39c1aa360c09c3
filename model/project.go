package model

import "time"

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectOnHold    ProjectStatus = "on-hold"
	ProjectCompleted ProjectStatus = "completed"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectOnHold, ProjectCompleted:
		return true
	}
	return false
}

type Project struct {
	ID          string        `bson:"id" json:"id"`
	UserID      string        `bson:"user_id" json:"-"`
	Name        string        `bson:"name" json:"name" validate:"required"`
	URL         string        `bson:"url,omitempty" json:"url,omitempty" validate:"omitempty,url"`
	Description string        `bson:"description,omitempty" json:"description,omitempty"`
	Status      ProjectStatus `bson:"status" json:"status" validate:"required,oneof=active on-hold completed"`
	Priority    Priority      `bson:"priority" json:"priority" validate:"required,oneof=low medium high"`
	CreatedAt   time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updated_at" json:"updatedAt"`
}

func (p Project) EntityID() string { return p.ID }

// ProjectPatch is a merge-update: nil fields are left untouched.
type ProjectPatch struct {
	Name        *string        `json:"name,omitempty"`
	URL         *string        `json:"url,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *ProjectStatus `json:"status,omitempty"`
	Priority    *Priority      `json:"priority,omitempty"`
}

func (p ProjectPatch) IsEmpty() bool {
	return p.Name == nil && p.URL == nil && p.Description == nil && p.Status == nil && p.Priority == nil
}

func (p ProjectPatch) Apply(dst *Project) {
	if p.Name != nil {
		dst.Name = *p.Name
	}
	if p.URL != nil {
		dst.URL = *p.URL
	}
	if p.Description != nil {
		dst.Description = *p.Description
	}
	if p.Status != nil {
		dst.Status = *p.Status
	}
	if p.Priority != nil {
		dst.Priority = *p.Priority
	}
}
