package notes

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimhsiao/memonotes/internal/live"
	"github.com/kimhsiao/memonotes/internal/models"
)

func item(id int64, title, content, category string, tags ...string) models.NoteWithTags {
	n := models.NoteWithTags{Note: models.Note{ID: id, Title: title, Content: content, Category: category}}
	for i, name := range tags {
		n.Tags = append(n.Tags, models.Tag{ID: int64(i + 1), Name: name})
	}
	return n
}

func TestFilterNotesWithTags(t *testing.T) {
	items := []models.NoteWithTags{
		item(1, "Grocery List", "eggs, milk", "home", "errand"),
		item(2, "Quarterly report", "numbers", "Work", "urgent", "finance"),
		item(3, "Crème brûlée", "", ""),
	}

	tests := []struct {
		name   string
		filter string
		want   []int64
	}{
		{"blank returns all", "", []int64{1, 2, 3}},
		{"whitespace returns all", "   ", []int64{1, 2, 3}},
		{"title", "grocery", []int64{1}},
		{"title upper", "LIST", []int64{1}},
		{"across words", "ry li", []int64{1}},
		{"content", "MILK", []int64{1}},
		{"category", "work", []int64{2}},
		{"any tag", "FINANCE", []int64{2}},
		{"first tag", "errand", []int64{1}},
		{"unicode", "CRÈME", []int64{3}},
		{"no match", "bread", []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterNotesWithTags(items, tt.filter)
			ids := []int64{}
			for _, g := range got {
				ids = append(ids, g.Note.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func recvView(t *testing.T, sub *live.Subscription[[]models.NoteWithTags]) live.Snapshot[[]models.NoteWithTags] {
	t.Helper()
	select {
	case snap, ok := <-sub.C():
		require.True(t, ok)
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for view snapshot")
	}
	return live.Snapshot[[]models.NoteWithTags]{}
}

func TestComposer_StartsEmptyAndIdle(t *testing.T) {
	base := live.NewSubject[[]models.NoteWithTags]()
	c := NewComposer(base, nil)
	assert.Equal(t, Idle, c.Mode())
	assert.Equal(t, "", c.Filter())

	sub := c.View().Subscribe()
	defer sub.Close()
	first := recvView(t, sub)
	require.NoError(t, first.Err)
	assert.NotNil(t, first.Value)
	assert.Empty(t, first.Value)
}

func TestComposer_FilterAppliesToLatestBase(t *testing.T) {
	base := live.NewSubject[[]models.NoteWithTags]()
	c := NewComposer(base, live.NewState(""))
	sub := c.View().Subscribe()
	defer sub.Close()
	recvView(t, sub)

	base.Publish([]models.NoteWithTags{item(1, "x marks", "", ""), item(2, "plain", "", "")})
	assert.Equal(t, []string{"x marks", "plain"}, viewTitles(recvView(t, sub).Value))

	// The very next snapshot after a filter change filters the latest base data.
	c.SetFilter("x")
	assert.Equal(t, Filtering, c.Mode())
	assert.Equal(t, []string{"x marks"}, viewTitles(recvView(t, sub).Value))

	base.Publish([]models.NoteWithTags{item(3, "xylophone", "", ""), item(1, "x marks", "", "")})
	assert.Equal(t, []string{"xylophone", "x marks"}, viewTitles(recvView(t, sub).Value))

	c.Clear()
	assert.Equal(t, Idle, c.Mode())
	assert.Len(t, recvView(t, sub).Value, 2)
}

func TestComposer_LateSubscriberSeesLatest(t *testing.T) {
	base := live.NewSubject[[]models.NoteWithTags]()
	c := NewComposer(base, nil)
	early := c.View().Subscribe()
	defer early.Close()
	recvView(t, early)

	base.Publish([]models.NoteWithTags{item(1, "alpha", "", ""), item(2, "beta", "", "")})
	c.SetFilter("bet")
	awaitSnapshot(t, c.View(), func(s live.Snapshot[[]models.NoteWithTags]) bool {
		return len(s.Value) == 1
	})

	late := c.View().Subscribe()
	defer late.Close()
	assert.Equal(t, []string{"beta"}, viewTitles(recvView(t, late).Value))
	assert.Equal(t, 1, base.Subscribers(), "subscribers share one upstream subscription")
}

func TestComposer_ForwardsBaseErrors(t *testing.T) {
	base := live.NewSubject[[]models.NoteWithTags]()
	c := NewComposer(base, nil)
	sub := c.View().Subscribe()
	defer sub.Close()
	recvView(t, sub)

	boom := stderrors.New("storage unavailable")
	base.Fail(boom)
	snap := recvView(t, sub)
	assert.ErrorIs(t, snap.Err, boom)
	assert.Nil(t, snap.Value)
}

func TestComposer_SharedFilterState(t *testing.T) {
	filter := live.NewState("")
	base := live.NewSubject(live.WithInitial([]models.NoteWithTags{item(1, "a", "", ""), item(2, "b", "", "")}))
	one := NewComposer(base, filter)
	two := NewComposer(base, filter)

	one.SetFilter("b")
	assert.Equal(t, "b", two.Filter())

	snap := awaitSnapshot(t, two.View(), func(s live.Snapshot[[]models.NoteWithTags]) bool {
		return len(s.Value) == 1
	})
	assert.Equal(t, []string{"b"}, viewTitles(snap.Value))
}

func TestComposer_OverRepository(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	c := NewComposer(repo.AllNotesWithTags(), nil)

	sub := c.View().Subscribe()
	defer sub.Close()

	tagID := mustInsertTag(t, repo, "errand")
	_, err := repo.InsertNoteWithTags(ctx, &models.Note{Title: "Buy milk"}, []int64{tagID})
	require.NoError(t, err)
	mustInsertNote(t, repo, "Read book", "", "")

	c.SetFilter("ERRAND")
	snap := awaitSnapshot(t, c.View(), func(s live.Snapshot[[]models.NoteWithTags]) bool {
		return len(s.Value) == 1
	})
	assert.Equal(t, []string{"Buy milk"}, viewTitles(snap.Value))
}
