// Package models provides the records persisted by the note store and the views derived from them.
package models

import "time"

// Note is a single user note. Timestamps are unix milliseconds.
type Note struct {
	ID        int64  `db:"id" json:"id"`
	Title     string `db:"title" json:"title"`
	Content   string `db:"content" json:"content"`
	Category  string `db:"category" json:"category"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
	UpdatedAt int64  `db:"updated_at" json:"updated_at"`
}

// TableName returns the table name for Note.
func (Note) TableName() string {
	return "notes"
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (n *Note) CreatedAtTime() time.Time {
	return time.UnixMilli(n.CreatedAt)
}

// UpdatedAtTime returns the UpdatedAt as time.Time.
func (n *Note) UpdatedAtTime() time.Time {
	return time.UnixMilli(n.UpdatedAt)
}

// Touch moves UpdatedAt to now, never behind CreatedAt.
func (n *Note) Touch(now time.Time) {
	n.UpdatedAt = now.UnixMilli()
	if n.UpdatedAt < n.CreatedAt {
		n.UpdatedAt = n.CreatedAt
	}
}

// Stamp sets both timestamps for a freshly created note.
func (n *Note) Stamp(now time.Time) {
	n.CreatedAt = now.UnixMilli()
	n.UpdatedAt = n.CreatedAt
}
