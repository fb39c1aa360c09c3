package model

import "time"

type Reminder struct {
	ID          string    `bson:"id" json:"id"`
	UserID      string    `bson:"user_id" json:"-"`
	Title       string    `bson:"title" json:"title" validate:"required"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	DateTime    time.Time `bson:"date_time" json:"dateTime"`
	ProjectID   string    `bson:"project_id,omitempty" json:"projectId,omitempty"`
	Notified    bool      `bson:"notified" json:"notified"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updatedAt"`
}

func (r Reminder) EntityID() string { return r.ID }

// DueWithin reports whether the reminder is still pending and falls in (now, now+window].
func (r Reminder) DueWithin(now time.Time, window time.Duration) bool {
	if r.Notified {
		return false
	}
	delta := r.DateTime.Sub(now)
	return delta > 0 && delta <= window
}

// Overdue reports a past reminder that was never acknowledged.
func (r Reminder) Overdue(now time.Time) bool {
	return !r.Notified && r.DateTime.Before(now)
}

// Upcoming reports a reminder due within the next 24 hours.
func (r Reminder) Upcoming(now time.Time) bool {
	return r.DateTime.After(now) && r.DateTime.Before(now.Add(24*time.Hour))
}

// ReminderPatch is a merge-update for reminders. Notified may only move to true.
type ReminderPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	DateTime    *time.Time `json:"dateTime,omitempty"`
	ProjectID   *string    `json:"projectId,omitempty"`
	Notified    *bool      `json:"notified,omitempty"`
}

func (p ReminderPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.DateTime == nil && p.ProjectID == nil && p.Notified == nil
}

func (p ReminderPatch) Apply(dst *Reminder) {
	if p.Title != nil {
		dst.Title = *p.Title
	}
	if p.Description != nil {
		dst.Description = *p.Description
	}
	if p.DateTime != nil {
		dst.DateTime = *p.DateTime
	}
	if p.ProjectID != nil {
		dst.ProjectID = *p.ProjectID
	}
	if p.Notified != nil && *p.Notified {
		dst.Notified = true
	}
}
