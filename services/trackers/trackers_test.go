package trackers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reacttracker/core"
	"reacttracker/models"
	"reacttracker/services/modules"
)

var (
	testOwner = models.UserRef{ID: "u_owner", GuildID: "g1", DisplayName: "Owner"}
	testMsg   = models.MessageRef{GuildID: "g1", ChannelID: "c1", MessageID: "m1"}
)

// renderRecorder counts render invocations per message for callback assertions.
type renderRecorder struct {
	renders map[string]int
}

func newRenderRecorder() *renderRecorder {
	return &renderRecorder{renders: make(map[string]int)}
}

func (r *renderRecorder) render(ctx context.Context, item *models.TrackedItem) error {
	r.renders[item.MessageID]++
	return nil
}

func (r *renderRecorder) postProcess(ctx context.Context, item *models.TrackedItem) (any, error) {
	return nil, nil
}

func setupTrackersService(t *testing.T) (*TrackersService, *modules.ModulesService, *renderRecorder) {
	t.Helper()

	modulesService := modules.NewModulesService()
	recorder := newRenderRecorder()
	require.NoError(t, modulesService.RegisterCallbacks("rsvp", recorder.render, recorder.postProcess))

	return NewTrackersService(modulesService, 0), modulesService, recorder
}

func mustCreate(t *testing.T, svc *TrackersService, params CreateTrackedItemParams) *models.TrackedItem {
	t.Helper()
	item, err := svc.CreateTrackedItem(context.Background(), params)
	require.NoError(t, err)
	return item
}

func TestCreateTrackedItem(t *testing.T) {
	t.Run("Success_DefaultExpiration", func(t *testing.T) {
		svc, _, _ := setupTrackersService(t)

		before := time.Now().UTC()
		item := mustCreate(t, svc, CreateTrackedItemParams{
			Message:     testMsg,
			Owner:       testOwner,
			Payload:     "game night",
			OwnerModule: "rsvp",
		})
		after := time.Now().UTC()

		assert.True(t, core.IsValidULID(item.ID))
		assert.Equal(t, "m1", item.MessageID)
		assert.Empty(t, item.Entries)
		assert.False(t, item.ExpiresAt.Before(before.Add(DefaultTTL)))
		assert.False(t, item.ExpiresAt.After(after.Add(DefaultTTL)))
	})

	t.Run("Success_ExplicitExpiration", func(t *testing.T) {
		svc, _, _ := setupTrackersService(t)

		expiresAt := time.Now().UTC().Add(72 * time.Hour)
		item := mustCreate(t, svc, CreateTrackedItemParams{
			Message:     testMsg,
			Owner:       testOwner,
			OwnerModule: "rsvp",
			ExpiresAt:   expiresAt,
		})

		assert.Equal(t, expiresAt, item.ExpiresAt)
	})

	t.Run("Success_OverwritesPriorItem", func(t *testing.T) {
		svc, _, _ := setupTrackersService(t)

		first := mustCreate(t, svc, CreateTrackedItemParams{
			Message: testMsg, Owner: testOwner, Payload: "first", OwnerModule: "rsvp",
		})
		second := mustCreate(t, svc, CreateTrackedItemParams{
			Message: testMsg, Owner: testOwner, Payload: "second", OwnerModule: "rsvp",
		})
		require.NotEqual(t, first.ID, second.ID)

		maybeItem, err := svc.GetTrackedItem(context.Background(), "m1")
		require.NoError(t, err)
		assert.Equal(t, "second", maybeItem.MustGet().Payload)
		assert.Equal(t, 1, svc.Count(context.Background()))
	})

	t.Run("Error_MissingMessageID", func(t *testing.T) {
		svc, _, _ := setupTrackersService(t)

		_, err := svc.CreateTrackedItem(context.Background(), CreateTrackedItemParams{
			Owner: testOwner, OwnerModule: "rsvp",
		})
		require.Error(t, err)
	})

	t.Run("Error_MissingOwner", func(t *testing.T) {
		svc, _, _ := setupTrackersService(t)

		_, err := svc.CreateTrackedItem(context.Background(), CreateTrackedItemParams{
			Message: testMsg, OwnerModule: "rsvp",
		})
		require.Error(t, err)
	})
}

func TestGetTrackedItem(t *testing.T) {
	t.Run("Success_UnknownMessageIsAbsent", func(t *testing.T) {
		svc, _, _ := setupTrackersService(t)

		maybeItem, err := svc.GetTrackedItem(context.Background(), "nope")
		require.NoError(t, err)
		assert.False(t, maybeItem.IsPresent())
	})

	t.Run("Success_ReturnsDeepCopy", func(t *testing.T) {
		svc, _, _ := setupTrackersService(t)
		mustCreate(t, svc, CreateTrackedItemParams{Message: testMsg, Owner: testOwner, OwnerModule: "rsvp"})
		require.NoError(t, svc.IngestReactionAdded(context.Background(), "m1", "u1", models.UnicodeReaction("👍")))

		maybeItem, err := svc.GetTrackedItem(context.Background(), "m1")
		require.NoError(t, err)
		got := maybeItem.MustGet()

		// Mutating the returned copy must not affect the store
		got.Entries[0].State = models.EntryStateInvalidated
		got.Payload = "tampered"

		maybeAgain, err := svc.GetTrackedItem(context.Background(), "m1")
		require.NoError(t, err)
		assert.Equal(t, models.EntryStateActive, maybeAgain.MustGet().Entries[0].State)
		assert.Empty(t, maybeAgain.MustGet().Payload)
	})
}

func TestDeleteTrackedItem(t *testing.T) {
	t.Run("Success_DeleteExisting", func(t *testing.T) {
		svc, _, _ := setupTrackersService(t)
		mustCreate(t, svc, CreateTrackedItemParams{Message: testMsg, Owner: testOwner, OwnerModule: "rsvp"})

		require.NoError(t, svc.DeleteTrackedItem(context.Background(), "m1"))

		maybeItem, err := svc.GetTrackedItem(context.Background(), "m1")
		require.NoError(t, err)
		assert.False(t, maybeItem.IsPresent())
	})

	t.Run("Success_DeleteAbsentIsNoop", func(t *testing.T) {
		svc, _, _ := setupTrackersService(t)

		require.NoError(t, svc.DeleteTrackedItem(context.Background(), "nope"))
	})
}

// Scenario: repeated adds of the same (user, reaction) leave exactly one
// active entry; a removal invalidates it without shrinking the history.
func TestIngestReactionLifecycle(t *testing.T) {
	svc, _, recorder := setupTrackersService(t)
	ctx := context.Background()

	mustCreate(t, svc, CreateTrackedItemParams{
		Message:     testMsg,
		Owner:       testOwner,
		OwnerModule: "rsvp",
		ExpiresAt:   time.Now().UTC().Add(36 * time.Hour),
	})

	react := models.UnicodeReaction("👍")

	require.NoError(t, svc.IngestReactionAdded(ctx, "m1", "u1", react))

	item := mustGet(t, svc, "m1")
	require.Len(t, item.Entries, 1)
	assert.True(t, item.Entries[0].IsActive())
	assert.Equal(t, "u1", item.Entries[0].UserID)
	assert.False(t, item.Entries[0].Timestamp.IsZero())

	// Duplicate notification is absorbed
	require.NoError(t, svc.IngestReactionAdded(ctx, "m1", "u1", react))
	item = mustGet(t, svc, "m1")
	require.Len(t, item.Entries, 1)
	assert.Equal(t, 1, len(item.ActiveEntries()))

	// Removal invalidates without deleting
	require.NoError(t, svc.IngestReactionRemoved(ctx, "m1", "u1", react))
	item = mustGet(t, svc, "m1")
	require.Len(t, item.Entries, 1)
	assert.Equal(t, models.EntryStateInvalidated, item.Entries[0].State)
	assert.Empty(t, item.ActiveEntries())

	// Re-add creates a brand-new entry, never resurrects the old one
	require.NoError(t, svc.IngestReactionAdded(ctx, "m1", "u1", react))
	item = mustGet(t, svc, "m1")
	require.Len(t, item.Entries, 2)
	assert.Equal(t, models.EntryStateInvalidated, item.Entries[0].State)
	assert.True(t, item.Entries[1].IsActive())

	// One render per effective mutation: add, remove, re-add (duplicate add excluded)
	assert.Equal(t, 3, recorder.renders["m1"])
}

func TestIngestReactionEdgeCases(t *testing.T) {
	t.Run("Success_UntrackedMessageIsNoop", func(t *testing.T) {
		svc, _, recorder := setupTrackersService(t)
		ctx := context.Background()

		require.NoError(t, svc.IngestReactionAdded(ctx, "nope", "u1", models.UnicodeReaction("👍")))
		require.NoError(t, svc.IngestReactionRemoved(ctx, "nope", "u1", models.UnicodeReaction("👍")))
		assert.Empty(t, recorder.renders)
	})

	t.Run("Success_OrphanRemovalIsNoop", func(t *testing.T) {
		svc, _, recorder := setupTrackersService(t)
		ctx := context.Background()
		mustCreate(t, svc, CreateTrackedItemParams{Message: testMsg, Owner: testOwner, OwnerModule: "rsvp"})

		require.NoError(t, svc.IngestReactionRemoved(ctx, "m1", "u1", models.UnicodeReaction("👍")))

		item := mustGet(t, svc, "m1")
		assert.Empty(t, item.Entries)
		assert.Zero(t, recorder.renders["m1"])
	})

	t.Run("Success_SameReactionByDifferentUsers", func(t *testing.T) {
		svc, _, _ := setupTrackersService(t)
		ctx := context.Background()
		mustCreate(t, svc, CreateTrackedItemParams{Message: testMsg, Owner: testOwner, OwnerModule: "rsvp"})

		require.NoError(t, svc.IngestReactionAdded(ctx, "m1", "u1", models.UnicodeReaction("👍")))
		require.NoError(t, svc.IngestReactionAdded(ctx, "m1", "u2", models.UnicodeReaction("👍")))

		item := mustGet(t, svc, "m1")
		assert.Len(t, item.ActiveEntries(), 2)
	})

	t.Run("Success_CustomAndUnicodeDoNotCollide", func(t *testing.T) {
		svc, _, _ := setupTrackersService(t)
		ctx := context.Background()
		mustCreate(t, svc, CreateTrackedItemParams{Message: testMsg, Owner: testOwner, OwnerModule: "rsvp"})

		require.NoError(t, svc.IngestReactionAdded(ctx, "m1", "u1", models.UnicodeReaction("🎲")))
		require.NoError(t, svc.IngestReactionAdded(ctx, "m1", "u1", models.CustomReaction("556941054277058560", "🎲")))

		item := mustGet(t, svc, "m1")
		assert.Len(t, item.ActiveEntries(), 2)
	})

	t.Run("Error_InvalidReaction", func(t *testing.T) {
		svc, _, _ := setupTrackersService(t)
		ctx := context.Background()
		mustCreate(t, svc, CreateTrackedItemParams{Message: testMsg, Owner: testOwner, OwnerModule: "rsvp"})

		err := svc.IngestReactionAdded(ctx, "m1", "u1", models.Reaction{Kind: models.ReactionKindCustom})
		require.Error(t, err)
	})
}

// Scenario: two items from different modules, only one module registered.
// Mutations on the unregistered module's item still apply but render nothing.
func TestCallbackDispatchPerModule(t *testing.T) {
	svc, _, recorder := setupTrackersService(t)
	ctx := context.Background()

	mustCreate(t, svc, CreateTrackedItemParams{Message: testMsg, Owner: testOwner, OwnerModule: "rsvp"})
	mustCreate(t, svc, CreateTrackedItemParams{
		Message:     models.MessageRef{GuildID: "g1", ChannelID: "c1", MessageID: "m2"},
		Owner:       testOwner,
		OwnerModule: "legacy-polls",
	})

	require.NoError(t, svc.IngestReactionAdded(ctx, "m1", "u1", models.UnicodeReaction("👍")))
	require.NoError(t, svc.IngestReactionAdded(ctx, "m2", "u1", models.UnicodeReaction("👍")))

	// The unregistered module's item still got the mutation
	assert.Len(t, mustGet(t, svc, "m2").ActiveEntries(), 1)

	assert.Equal(t, 1, recorder.renders["m1"])
	assert.Zero(t, recorder.renders["m2"])
}

// Scenario: advance past expiry, sweep, then confirm the item is gone and
// later ingestion for it is a no-op.
func TestSweep(t *testing.T) {
	t.Run("Success_RemovesExactlyExpiredItems", func(t *testing.T) {
		svc, _, _ := setupTrackersService(t)
		ctx := context.Background()
		now := time.Now().UTC()

		mustCreate(t, svc, CreateTrackedItemParams{
			Message: testMsg, Owner: testOwner, OwnerModule: "rsvp",
			ExpiresAt: now.Add(-time.Minute),
		})
		mustCreate(t, svc, CreateTrackedItemParams{
			Message: models.MessageRef{GuildID: "g1", ChannelID: "c1", MessageID: "m2"},
			Owner:   testOwner, OwnerModule: "rsvp",
			ExpiresAt: now, // expiresAt <= now is eligible
		})
		mustCreate(t, svc, CreateTrackedItemParams{
			Message: models.MessageRef{GuildID: "g1", ChannelID: "c1", MessageID: "m3"},
			Owner:   testOwner, OwnerModule: "rsvp",
			ExpiresAt: now.Add(time.Hour),
		})

		removed := svc.Sweep(ctx, now)
		assert.ElementsMatch(t, []string{"m1", "m2"}, removed)
		assert.Equal(t, 1, svc.Count(ctx))

		// Sweep is idempotent when re-run immediately
		assert.Empty(t, svc.Sweep(ctx, now))
		assert.Equal(t, 1, svc.Count(ctx))

		// The expired item is untracked: a late ingestion is a silent no-op
		require.NoError(t, svc.IngestReactionAdded(ctx, "m1", "u1", models.UnicodeReaction("👍")))
		maybeItem, err := svc.GetTrackedItem(ctx, "m1")
		require.NoError(t, err)
		assert.False(t, maybeItem.IsPresent())
	})

	t.Run("Success_EmptyStore", func(t *testing.T) {
		svc, _, _ := setupTrackersService(t)
		assert.Empty(t, svc.Sweep(context.Background(), time.Now().UTC()))
	})
}

func TestExtendExpiration(t *testing.T) {
	t.Run("Success_Extend", func(t *testing.T) {
		svc, _, recorder := setupTrackersService(t)
		ctx := context.Background()
		expiresAt := time.Now().UTC().Add(time.Hour)
		mustCreate(t, svc, CreateTrackedItemParams{
			Message: testMsg, Owner: testOwner, OwnerModule: "rsvp", ExpiresAt: expiresAt,
		})

		require.NoError(t, svc.ExtendExpiration(ctx, "m1", 24*time.Hour))

		item := mustGet(t, svc, "m1")
		assert.Equal(t, expiresAt.Add(24*time.Hour), item.ExpiresAt)
		assert.Equal(t, 1, recorder.renders["m1"])
	})

	t.Run("Error_NonPositiveDelta", func(t *testing.T) {
		svc, _, _ := setupTrackersService(t)
		mustCreate(t, svc, CreateTrackedItemParams{Message: testMsg, Owner: testOwner, OwnerModule: "rsvp"})

		require.Error(t, svc.ExtendExpiration(context.Background(), "m1", 0))
		require.Error(t, svc.ExtendExpiration(context.Background(), "m1", -time.Hour))
	})

	t.Run("Error_UnknownMessage", func(t *testing.T) {
		svc, _, _ := setupTrackersService(t)

		err := svc.ExtendExpiration(context.Background(), "nope", time.Hour)
		require.Error(t, err)
		assert.True(t, core.IsNotFoundError(err))
	})
}

func TestUpdatePayloadAndModuleData(t *testing.T) {
	t.Run("Success_UpdatePayloadRenders", func(t *testing.T) {
		svc, _, recorder := setupTrackersService(t)
		ctx := context.Background()
		mustCreate(t, svc, CreateTrackedItemParams{Message: testMsg, Owner: testOwner, OwnerModule: "rsvp"})

		require.NoError(t, svc.UpdatePayload(ctx, "m1", "updated text"))

		assert.Equal(t, "updated text", mustGet(t, svc, "m1").Payload)
		assert.Equal(t, 1, recorder.renders["m1"])
	})

	t.Run("Success_SetModuleDataDoesNotRender", func(t *testing.T) {
		svc, _, recorder := setupTrackersService(t)
		ctx := context.Background()
		mustCreate(t, svc, CreateTrackedItemParams{Message: testMsg, Owner: testOwner, OwnerModule: "rsvp"})

		require.NoError(t, svc.SetModuleData(ctx, "m1", []string{"🎲"}))

		assert.Equal(t, []string{"🎲"}, mustGet(t, svc, "m1").ModuleData)
		assert.Zero(t, recorder.renders["m1"])
	})

	t.Run("Error_UnknownMessage", func(t *testing.T) {
		svc, _, _ := setupTrackersService(t)

		assert.True(t, core.IsNotFoundError(svc.UpdatePayload(context.Background(), "nope", "x")))
		assert.True(t, core.IsNotFoundError(svc.SetModuleData(context.Background(), "nope", nil)))
	})
}

func TestRestoreItems(t *testing.T) {
	t.Run("Success_PostProcessRebuildsModuleData", func(t *testing.T) {
		modulesService := modules.NewModulesService()
		require.NoError(t, modulesService.RegisterCallbacks("rsvp",
			func(ctx context.Context, item *models.TrackedItem) error { return nil },
			func(ctx context.Context, item *models.TrackedItem) (any, error) {
				return "derived:" + item.MessageID, nil
			},
		))
		svc := NewTrackersService(modulesService, 0)

		restored := svc.RestoreItems(context.Background(), []*models.TrackedItem{
			{
				ID:          core.NewID("ti"),
				Owner:       testOwner,
				MessageID:   "m1",
				OwnerModule: "rsvp",
				ExpiresAt:   time.Now().UTC().Add(time.Hour),
			},
		})

		assert.Equal(t, 1, restored)
		assert.Equal(t, "derived:m1", mustGet(t, svc, "m1").ModuleData)
	})

	t.Run("Success_UnregisteredModuleRestoredWithoutPostProcess", func(t *testing.T) {
		svc, _, _ := setupTrackersService(t)

		restored := svc.RestoreItems(context.Background(), []*models.TrackedItem{
			{ID: core.NewID("ti"), Owner: testOwner, MessageID: "m9", OwnerModule: "legacy-polls"},
		})

		assert.Equal(t, 1, restored)
		item := mustGet(t, svc, "m9")
		assert.Nil(t, item.ModuleData)
	})

	t.Run("Success_SkipsRecordsWithoutMessageID", func(t *testing.T) {
		svc, _, _ := setupTrackersService(t)

		restored := svc.RestoreItems(context.Background(), []*models.TrackedItem{
			nil,
			{ID: core.NewID("ti"), Owner: testOwner},
		})

		assert.Zero(t, restored)
		assert.Zero(t, svc.Count(context.Background()))
	})
}

func mustGet(t *testing.T, svc *TrackersService, messageID string) *models.TrackedItem {
	t.Helper()
	maybeItem, err := svc.GetTrackedItem(context.Background(), messageID)
	require.NoError(t, err)
	require.True(t, maybeItem.IsPresent())
	return maybeItem.MustGet()
}
