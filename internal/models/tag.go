package models

// DefaultTagColor is assigned when a tag is created without a color.
const DefaultTagColor = "#6200EE"

// Tag is a user-defined label. Names are not required to be unique.
type Tag struct {
	ID    int64  `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Color string `db:"color" json:"color"`
}

// TableName returns the table name for Tag.
func (Tag) TableName() string {
	return "tags"
}

// Normalize fills in the default color and validates the result.
func (t *Tag) Normalize() error {
	if t.Color == "" {
		t.Color = DefaultTagColor
	}
	_, err := ParseColor(t.Color)
	return err
}
