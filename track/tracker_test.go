package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Tracker_DetectChanges(t *testing.T) {
	t.Run("mutated synchronized entity becomes Updated", func(t *testing.T) {
		assert := assert.New(t)
		tr := NewTracker(widgetMapper(t))

		w := &widget{ID: idAlpha, Name: "before"}
		assert.NoError(tr.Update(w, NoChanges))

		w.Name = "after"
		tr.DetectChanges()

		entries := tr.Entries()
		assert.Len(entries, 1)
		assert.Equal(Updated, entries[0].State)
	})

	t.Run("untouched synchronized entity stays NoChanges", func(t *testing.T) {
		assert := assert.New(t)
		tr := NewTracker(widgetMapper(t))

		w := &widget{ID: idAlpha, Name: "same"}
		assert.NoError(tr.Update(w, NoChanges))

		tr.DetectChanges()

		assert.Equal(NoChanges, tr.Entries()[0].State)
	})

	t.Run("detection is idempotent", func(t *testing.T) {
		assert := assert.New(t)
		tr := NewTracker(widgetMapper(t))

		w := &widget{ID: idAlpha, Name: "before"}
		assert.NoError(tr.Update(w, NoChanges))
		w.Name = "after"

		tr.DetectChanges()
		firstPass := tr.Changeset()
		tr.DetectChanges()
		secondPass := tr.Changeset()

		assert.Equal(firstPass, secondPass)
	})

	t.Run("entity attached after being tracked Added gains a baseline", func(t *testing.T) {
		assert := assert.New(t)
		tr := NewTracker(widgetMapper(t))

		w := &widget{ID: idAlpha, Name: "before"}
		assert.NoError(tr.Add(w))
		assert.NoError(tr.Update(w, NoChanges))

		w.Name = "after"
		tr.DetectChanges()

		assert.Equal(Updated, tr.Entries()[0].State)
	})

	t.Run("re-attaching a mutated entity resets the baseline", func(t *testing.T) {
		assert := assert.New(t)
		tr := NewTracker(widgetMapper(t))

		w := &widget{ID: idAlpha, Name: "before"}
		assert.NoError(tr.Update(w, NoChanges))

		// the mutation is declared synchronized, so detection must not
		// promote it
		w.Name = "after"
		assert.NoError(tr.Update(w, NoChanges))
		tr.DetectChanges()

		assert.Equal(NoChanges, tr.Entries()[0].State)
	})

	t.Run("Added and Deleted entries are left alone", func(t *testing.T) {
		assert := assert.New(t)
		tr := NewTracker(widgetMapper(t))

		added := &widget{Name: "new"}
		doomed := &widget{ID: idBeta, Name: "doomed"}
		assert.NoError(tr.Add(added))
		assert.NoError(tr.Update(doomed, Deleted))

		tr.DetectChanges()

		entries := tr.Entries()
		assert.Equal(Added, entries[0].State)
		assert.Equal(Deleted, entries[1].State)
	})
}

func Test_Tracker_Changeset(t *testing.T) {
	assert := assert.New(t)
	tr := NewTracker(widgetMapper(t))

	added := &widget{Name: "added"}
	updated := &widget{ID: idAlpha, Name: "updated"}
	deleted := &widget{ID: idBeta, Name: "deleted"}
	unchanged := &widget{ID: idGamma, Name: "unchanged"}

	assert.NoError(tr.Add(added))
	assert.NoError(tr.Update(updated, Updated))
	assert.NoError(tr.Update(deleted, Deleted))
	assert.NoError(tr.Update(unchanged, NoChanges))

	cs := tr.Changeset()

	assert.Equal([]*widget{added}, cs.Added)
	assert.Equal([]*widget{updated}, cs.Updated)
	assert.Equal([]*widget{deleted}, cs.Deleted)
	assert.False(cs.Empty())
}

func Test_Tracker_CommitChanges(t *testing.T) {
	assert := assert.New(t)
	tr := NewTracker(widgetMapper(t))

	added := &widget{ID: idAlpha, Name: "added"}
	updated := &widget{ID: idBeta, Name: "updated"}
	deleted := &widget{ID: idGamma, Name: "deleted"}
	untouched := &widget{ID: idDelta, Name: "untouched"}
	assert.NoError(tr.Update(added, Added))
	assert.NoError(tr.Update(updated, Updated))
	assert.NoError(tr.Update(deleted, Deleted))
	assert.NoError(tr.Update(untouched, NoChanges))

	tr.CommitChanges()

	entries := tr.Entries()
	assert.Len(entries, 3)
	for _, ent := range entries {
		assert.Equal(NoChanges, ent.State)
	}

	// the commit snapshots current values, so detection right after finds
	// nothing to promote
	tr.DetectChanges()
	assert.True(tr.Changeset().Empty())

	// but a fresh mutation is visible to the next detection
	added.Name = "renamed"
	tr.DetectChanges()
	assert.Equal([]*widget{added}, tr.Changeset().Updated)
}
