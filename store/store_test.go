package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStores(t *testing.T) *Stores {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	stores := NewStores(db)
	t.Cleanup(func() { stores.Close() })
	return stores
}

func TestItemStoreCreateAndGet(t *testing.T) {
	stores := newTestStores(t)

	scheduled := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	item, err := stores.Items.Create(ItemFields{
		Title:       "buy groceries",
		Amount:      42.5,
		Type:        ItemTypeExpense,
		ScheduledAt: scheduled,
		Notes:       "weekly shop",
	})
	require.NoError(t, err)
	require.NotEmpty(t, item.ID)
	require.False(t, item.CreatedAt.IsZero())

	got, err := stores.Items.GetByID(item.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "buy groceries", got.Title)
	require.Equal(t, ItemTypeExpense, got.Type)
	require.True(t, got.ScheduledAt.Equal(scheduled))
	require.Nil(t, got.ExecutedAt)
	require.Nil(t, got.MealLog)
}

func TestItemStoreGetByIDAbsent(t *testing.T) {
	stores := newTestStores(t)

	got, err := stores.Items.GetByID("no-such-id")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestItemStoreMealLogRoundTrip(t *testing.T) {
	stores := newTestStores(t)

	item, err := stores.Items.Create(ItemFields{
		Title:       "lunch",
		Type:        ItemTypeTodo,
		ScheduledAt: time.Now().UTC(),
		MealLog:     &MealLog{Calories: 650, Protein: 32, Memo: "ramen"},
	})
	require.NoError(t, err)

	got, err := stores.Items.GetByID(item.ID)
	require.NoError(t, err)
	require.NotNil(t, got.MealLog)
	require.Equal(t, 650.0, got.MealLog.Calories)
	require.Equal(t, "ramen", got.MealLog.Memo)
}

func TestItemStoreUpdateAndDelete(t *testing.T) {
	stores := newTestStores(t)

	item, err := stores.Items.Create(ItemFields{
		Title:       "draft report",
		Type:        ItemTypeTodo,
		ScheduledAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	executed := time.Date(2026, 3, 15, 17, 30, 0, 0, time.UTC)
	item.IsCompleted = true
	item.ExecutedAt = &executed
	require.NoError(t, stores.Items.Update(item))

	got, err := stores.Items.GetByID(item.ID)
	require.NoError(t, err)
	require.True(t, got.IsCompleted)
	require.NotNil(t, got.ExecutedAt)
	require.True(t, got.ExecutedAt.Equal(executed))

	require.NoError(t, stores.Items.Delete(item.ID))
	got, err = stores.Items.GetByID(item.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestItemStoreListByDateRange(t *testing.T) {
	stores := newTestStores(t)

	for _, day := range []int{10, 15, 20} {
		_, err := stores.Items.Create(ItemFields{
			Title:       "item",
			Type:        ItemTypeTodo,
			ScheduledAt: time.Date(2026, 4, day, 12, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}

	start := time.Date(2026, 4, 12, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 4, 20, 12, 0, 0, 0, time.UTC)
	items, err := stores.Items.ListByDateRange(start, end)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 15, items[0].ScheduledAt.Day())
}

func TestItemStoreCachedView(t *testing.T) {
	stores := newTestStores(t)

	require.Empty(t, stores.Items.Items())

	_, err := stores.Items.Create(ItemFields{
		Title:       "cached",
		Type:        ItemTypeTodo,
		ScheduledAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	// The cache only changes on Load.
	require.Empty(t, stores.Items.Items())
	require.NoError(t, stores.Items.Load())
	require.Len(t, stores.Items.Items(), 1)
}

func TestRoutineLogUpsertByCompositeKey(t *testing.T) {
	stores := newTestStores(t)

	routine, err := stores.Routines.Create(RoutineFields{Title: "stretch", YearMonth: "2026-03"})
	require.NoError(t, err)

	log := RoutineLog{RoutineID: routine.ID, Date: "2026-03-14", Status: RoutineNotAchieved}
	require.NoError(t, stores.RoutineLogs.SaveByCompositeKey(&log))

	completed := time.Now().UTC()
	again := RoutineLog{RoutineID: routine.ID, Date: "2026-03-14", Status: RoutineAchieved, CompletedAt: &completed}
	require.NoError(t, stores.RoutineLogs.SaveByCompositeKey(&again))

	logs, err := stores.RoutineLogs.ListAll()
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, RoutineAchieved, logs[0].Status)
	require.NotNil(t, logs[0].CompletedAt)
}

func TestDayTitleUpsertByDate(t *testing.T) {
	stores := newTestStores(t)

	require.NoError(t, stores.DayTitles.Save("2026-03-14", "pi day"))
	require.NoError(t, stores.DayTitles.Save("2026-03-14", "still pi day"))

	titles, err := stores.DayTitles.ListAll()
	require.NoError(t, err)
	require.Len(t, titles, 1)
	require.Equal(t, "still pi day", titles[0].Title)
}

func TestAppSettingsUpsert(t *testing.T) {
	stores := newTestStores(t)

	settings := AppSettings{ID: "app-settings", Language: "en", DarkMode: true}
	require.NoError(t, stores.AppSettings.Save(&settings))

	settings.Language = "ja"
	require.NoError(t, stores.AppSettings.Save(&settings))

	all, err := stores.AppSettings.ListAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "ja", all[0].Language)
	require.True(t, all[0].DarkMode)
}

func TestHealthDataUpsert(t *testing.T) {
	stores := newTestStores(t)

	weight := 72.4
	record := HealthData{Date: "2026-03-14", Weight: &weight}
	require.NoError(t, stores.HealthData.Save(&record))
	require.NotEmpty(t, record.ID)

	steps := 8200.0
	record.Steps = &steps
	require.NoError(t, stores.HealthData.Save(&record))

	all, err := stores.HealthData.ListAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].Weight)
	require.NotNil(t, all[0].Steps)
	require.Nil(t, all[0].HeartRate)
}

func TestPrefStoreRoundTrip(t *testing.T) {
	stores := newTestStores(t)

	_, ok, err := stores.Prefs.Get("missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, stores.Prefs.Set("k", []byte("v1")))
	require.NoError(t, stores.Prefs.Set("k", []byte("v2")))

	value, ok, err := stores.Prefs.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v2"), value)

	require.NoError(t, stores.Prefs.Delete("k"))
	_, ok, err = stores.Prefs.Get("k")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, stores.Prefs.Delete("k"))
}
