package models

// NoteTagLink records that a note carries a tag.
// The (NoteID, TagID) pair is the key; there is at most one link per pair.
type NoteTagLink struct {
	NoteID int64 `db:"note_id" json:"note_id"`
	TagID  int64 `db:"tag_id" json:"tag_id"`
}

// TableName returns the table name for NoteTagLink.
func (NoteTagLink) TableName() string {
	return "note_tag_link"
}

// NoteWithTags is a read-only view joining a note to its tags. It is never persisted.
type NoteWithTags struct {
	Note Note  `json:"note"`
	Tags []Tag `json:"tags"`
}

// TagIDs returns the ids of the attached tags in view order.
func (n NoteWithTags) TagIDs() []int64 {
	ids := make([]int64, 0, len(n.Tags))
	for _, t := range n.Tags {
		ids = append(ids, t.ID)
	}
	return ids
}
