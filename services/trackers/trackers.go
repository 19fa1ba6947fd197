package trackers

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/samber/mo"

	"reacttracker/core"
	"reacttracker/models"
	"reacttracker/services/modules"
)

// DefaultTTL is how long an item is tracked when the creator does not pick an
// explicit expiration.
const DefaultTTL = 36 * time.Hour

// TrackersService owns the map of all tracked items. All mutation goes
// through its methods under one lock: reaction ingestion, module-facing edits
// and the expiration sweeper are serialized, which keeps the entries of any
// single item consistent and keeps render invocations in mutation order.
//
// Render and post-process callbacks run while the lock is held and receive
// deep copies of the item. Callbacks must not call back into the service.
type TrackersService struct {
	mu             sync.Mutex
	items          map[string]*models.TrackedItem
	modulesService *modules.ModulesService
	defaultTTL     time.Duration
}

func NewTrackersService(modulesService *modules.ModulesService, defaultTTL time.Duration) *TrackersService {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &TrackersService{
		items:          make(map[string]*models.TrackedItem),
		modulesService: modulesService,
		defaultTTL:     defaultTTL,
	}
}

// CreateTrackedItemParams carries the inputs for CreateTrackedItem. ModuleData
// and ExpiresAt are optional; a zero ExpiresAt means now + default TTL.
type CreateTrackedItemParams struct {
	Message     models.MessageRef
	Owner       models.UserRef
	Payload     string
	OwnerModule string
	ModuleData  any
	ExpiresAt   time.Time
}

// CreateTrackedItem starts tracking reactions against a message. An existing
// item bound to the same message is overwritten.
func (s *TrackersService) CreateTrackedItem(
	ctx context.Context,
	params CreateTrackedItemParams,
) (*models.TrackedItem, error) {
	log.Printf("📋 Starting to create tracked item for message: %s, module: %s",
		params.Message.MessageID, params.OwnerModule)

	if params.Message.MessageID == "" {
		return nil, fmt.Errorf("message ID cannot be empty")
	}
	if params.Owner.ID == "" {
		return nil, fmt.Errorf("owner ID cannot be empty")
	}

	expiresAt := params.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = time.Now().UTC().Add(s.defaultTTL)
	}

	msg := params.Message
	item := &models.TrackedItem{
		ID:          core.NewID("ti"),
		Owner:       params.Owner,
		Payload:     params.Payload,
		Message:     &msg,
		MessageID:   params.Message.MessageID,
		Entries:     []models.Entry{},
		ExpiresAt:   expiresAt,
		ModuleData:  params.ModuleData,
		OwnerModule: params.OwnerModule,
	}

	s.mu.Lock()
	s.items[item.MessageID] = item
	s.mu.Unlock()

	log.Printf("📋 Completed successfully - created tracked item %s for message %s, expires at %s",
		item.ID, item.MessageID, item.ExpiresAt.Format(time.RFC3339))
	return item.Clone(), nil
}

// GetTrackedItem looks up an item by message ID. The returned item is a deep
// copy; mutating it has no effect on the store.
func (s *TrackersService) GetTrackedItem(
	ctx context.Context,
	messageID string,
) (mo.Option[*models.TrackedItem], error) {
	if messageID == "" {
		return mo.None[*models.TrackedItem](), fmt.Errorf("message ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[messageID]
	if !ok {
		return mo.None[*models.TrackedItem](), nil
	}
	return mo.Some(item.Clone()), nil
}

// DeleteTrackedItem stops tracking a message. Deleting an unknown message is
// a no-op; the external message itself is never touched.
func (s *TrackersService) DeleteTrackedItem(ctx context.Context, messageID string) error {
	if messageID == "" {
		return fmt.Errorf("message ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[messageID]; !ok {
		log.Printf("📋 Delete requested for untracked message %s - ignoring", messageID)
		return nil
	}

	delete(s.items, messageID)
	log.Printf("📋 Completed successfully - deleted tracked item for message %s", messageID)
	return nil
}

// IngestReactionAdded records a reaction-added notification. Unknown messages
// and duplicate notifications are absorbed silently: the platform does not
// deliver events exactly-once and the item owner's own seed reaction arrives
// through the same stream.
func (s *TrackersService) IngestReactionAdded(
	ctx context.Context,
	messageID, userID string,
	reaction models.Reaction,
) error {
	log.Printf("📋 Starting to ingest reaction added: %s by user %s on message %s",
		reaction, userID, messageID)

	if messageID == "" {
		return fmt.Errorf("message ID cannot be empty")
	}
	if userID == "" {
		return fmt.Errorf("user ID cannot be empty")
	}
	if err := reaction.Validate(); err != nil {
		return fmt.Errorf("invalid reaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[messageID]
	if !ok {
		log.Printf("📋 Message %s is not tracked - ignoring reaction", messageID)
		return nil
	}

	if item.FindActiveEntry(userID, reaction) >= 0 {
		log.Printf("📋 User %s already has an active %s entry on message %s - ignoring duplicate",
			userID, reaction, messageID)
		return nil
	}

	item.Entries = append(item.Entries, models.Entry{
		UserID:    userID,
		Reaction:  reaction,
		Timestamp: time.Now().UTC(),
		State:     models.EntryStateActive,
	})

	s.invokeRenderLocked(ctx, item)

	log.Printf("📋 Completed successfully - recorded reaction from user %s on message %s (%d entries)",
		userID, messageID, len(item.Entries))
	return nil
}

// IngestReactionRemoved records a reaction-removed notification by
// invalidating the matching active entry. Entries are never deleted, so the
// audit trail survives removal. A notification with no matching active entry
// is treated as already-consistent state and absorbed.
func (s *TrackersService) IngestReactionRemoved(
	ctx context.Context,
	messageID, userID string,
	reaction models.Reaction,
) error {
	log.Printf("📋 Starting to ingest reaction removed: %s by user %s on message %s",
		reaction, userID, messageID)

	if messageID == "" {
		return fmt.Errorf("message ID cannot be empty")
	}
	if userID == "" {
		return fmt.Errorf("user ID cannot be empty")
	}
	if err := reaction.Validate(); err != nil {
		return fmt.Errorf("invalid reaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[messageID]
	if !ok {
		log.Printf("📋 Message %s is not tracked - ignoring reaction removal", messageID)
		return nil
	}

	idx := item.FindActiveEntry(userID, reaction)
	if idx < 0 {
		log.Printf("📋 No active %s entry by user %s on message %s - ignoring removal",
			reaction, userID, messageID)
		return nil
	}

	item.Entries[idx].State = models.EntryStateInvalidated

	s.invokeRenderLocked(ctx, item)

	log.Printf("📋 Completed successfully - invalidated reaction from user %s on message %s",
		userID, messageID)
	return nil
}

// UpdatePayload replaces the item's payload text on behalf of its feature
// module and re-renders the item.
func (s *TrackersService) UpdatePayload(ctx context.Context, messageID, payload string) error {
	log.Printf("📋 Starting to update payload for message: %s", messageID)

	if messageID == "" {
		return fmt.Errorf("message ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[messageID]
	if !ok {
		return fmt.Errorf("tracked item for message %s: %w", messageID, core.ErrNotFound)
	}

	item.Payload = payload
	s.invokeRenderLocked(ctx, item)

	log.Printf("📋 Completed successfully - updated payload for message %s", messageID)
	return nil
}

// SetModuleData replaces the item's opaque module data. The store never
// interprets the value and never persists it.
func (s *TrackersService) SetModuleData(ctx context.Context, messageID string, data any) error {
	if messageID == "" {
		return fmt.Errorf("message ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[messageID]
	if !ok {
		return fmt.Errorf("tracked item for message %s: %w", messageID, core.ErrNotFound)
	}

	item.ModuleData = data
	return nil
}

// ExtendExpiration pushes the item's expiration further out. Only additive
// extensions are allowed; shortening an item's lifetime is not supported.
func (s *TrackersService) ExtendExpiration(
	ctx context.Context,
	messageID string,
	delta time.Duration,
) error {
	log.Printf("📋 Starting to extend expiration for message: %s by %s", messageID, delta)

	if messageID == "" {
		return fmt.Errorf("message ID cannot be empty")
	}
	if delta <= 0 {
		return fmt.Errorf("extension must be positive, got %s", delta)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[messageID]
	if !ok {
		return fmt.Errorf("tracked item for message %s: %w", messageID, core.ErrNotFound)
	}

	item.ExpiresAt = item.ExpiresAt.Add(delta)
	s.invokeRenderLocked(ctx, item)

	log.Printf("📋 Completed successfully - message %s now expires at %s",
		messageID, item.ExpiresAt.Format(time.RFC3339))
	return nil
}

// Count returns how many items are currently tracked.
func (s *TrackersService) Count(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// ListTrackedItems returns deep copies of every tracked item.
func (s *TrackersService) ListTrackedItems(ctx context.Context) []*models.TrackedItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]*models.TrackedItem, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item.Clone())
	}
	return items
}

// invokeRenderLocked calls the render callback of the item's owner module, if
// one is registered. Must be called with s.mu held so renders for a single
// item apply in the same order as its mutations. Render failures are logged
// and swallowed: a broken module must never take the ingestion path down.
func (s *TrackersService) invokeRenderLocked(ctx context.Context, item *models.TrackedItem) {
	if item.OwnerModule == "" {
		return
	}

	maybeCallbacks := s.modulesService.GetCallbacks(item.OwnerModule)
	if !maybeCallbacks.IsPresent() {
		log.Printf("📋 No callbacks registered for module %s - skipping render", item.OwnerModule)
		return
	}

	if err := maybeCallbacks.MustGet().Render(ctx, item.Clone()); err != nil {
		log.Printf("⚠️ Render callback for module %s failed on message %s: %v",
			item.OwnerModule, item.MessageID, err)
	}
}
