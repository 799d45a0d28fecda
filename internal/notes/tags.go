package notes

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kimhsiao/memonotes/internal/db"
	"github.com/kimhsiao/memonotes/internal/errors"
	"github.com/kimhsiao/memonotes/internal/models"
)

// =====================================================
// Tag Operations
// =====================================================

const (
	tagColumns   = "id, name, color"
	allTagsQuery = "SELECT " + tagColumns + " FROM tags ORDER BY name ASC, id ASC"
)

func tagRow(t *models.Tag) db.Row {
	return db.Row{"id": t.ID, "name": t.Name, "color": t.Color}
}

func scanTags(rows *sql.Rows) ([]models.Tag, error) {
	defer rows.Close()
	out := []models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color); err != nil {
			return nil, scanErr("scan tag", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, scanErr("read tags", err)
	}
	return out, nil
}

// InsertTag stores a tag and returns its id. An empty color becomes the default;
// an invalid one is TAG_INVALID. A tag whose id already exists is replaced.
func (r *Repository) InsertTag(ctx context.Context, tag *models.Tag) (int64, error) {
	if err := checkID("tag", tag.ID); err != nil {
		return 0, err
	}
	t := *tag
	if err := t.Normalize(); err != nil {
		return 0, err
	}

	id, err := r.store.Insert(ctx, db.TagsTable, tagRow(&t), db.ConflictReplace)
	if err != nil {
		return 0, fmt.Errorf("insert tag: %w", err)
	}
	t.ID = id
	*tag = t
	r.log.Debug("tag inserted", map[string]interface{}{"tag_id": id})
	return id, nil
}

// UpdateTag replaces a tag's name and color. A missing tag is TAG_NOT_FOUND.
func (r *Repository) UpdateTag(ctx context.Context, tag *models.Tag) error {
	if err := checkID("tag", tag.ID); err != nil {
		return err
	}
	t := *tag
	if err := t.Normalize(); err != nil {
		return err
	}

	err := r.store.Update(ctx, db.TagsTable, tagRow(&t))
	if errors.Is(err, errors.ErrNotFound) {
		err = errors.Newf(errors.ErrTagNotFound, "tag %d not found", t.ID)
	}
	if err != nil {
		return fmt.Errorf("update tag %d: %w", t.ID, err)
	}
	*tag = t
	return nil
}

// DeleteTag removes a tag and every link to it. A missing tag is TAG_NOT_FOUND.
func (r *Repository) DeleteTag(ctx context.Context, id int64) error {
	if err := checkID("tag", id); err != nil {
		return err
	}
	err := r.store.Transaction(ctx, func(tx *db.Tx) error {
		n, err := tx.Delete(ctx, db.TagsTable, db.Row{"id": id})
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.Newf(errors.ErrTagNotFound, "tag %d not found", id)
		}
		_, err = tx.Delete(ctx, db.LinksTable, db.Row{"tag_id": id})
		return err
	})
	if err != nil {
		return fmt.Errorf("delete tag %d: %w", id, err)
	}
	r.log.Debug("tag deleted", map[string]interface{}{"tag_id": id})
	return nil
}

// GetTagByID returns the tag with id, or nil when there is none.
func (r *Repository) GetTagByID(ctx context.Context, id int64) (*models.Tag, error) {
	if err := checkID("tag", id); err != nil {
		return nil, err
	}
	var tag *models.Tag
	err := r.store.View(ctx, func(tx *db.Tx) error {
		rows, err := tx.Select(ctx, db.TagsTable, []string{"id", "name", "color"}, db.Row{"id": id}, "")
		if err != nil {
			return err
		}
		tags, err := scanTags(rows)
		if err != nil {
			return err
		}
		if len(tags) > 0 {
			tag = &tags[0]
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get tag %d: %w", id, err)
	}
	return tag, nil
}

// ListTags returns every tag ordered by name.
func (r *Repository) ListTags(ctx context.Context) ([]models.Tag, error) {
	var out []models.Tag
	err := r.store.View(ctx, func(tx *db.Tx) error {
		rows, err := tx.Query(ctx, allTagsQuery)
		if err != nil {
			return err
		}
		out, err = scanTags(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return out, nil
}
