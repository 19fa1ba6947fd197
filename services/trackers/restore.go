package trackers

import (
	"context"
	"log"

	"reacttracker/models"
)

// RestoreItems installs items reconstructed from a snapshot and then invokes
// each owning module's post-process callback exactly once per item so the
// module can rebuild its derived state. ModuleData always starts empty after
// a restore; whatever the callback returns becomes the new ModuleData.
//
// Items owned by a module with no registered callbacks are restored as-is and
// simply receive no invocation. Returns the number of items installed.
func (s *TrackersService) RestoreItems(ctx context.Context, items []*models.TrackedItem) int {
	log.Printf("📋 Starting to restore %d tracked items from snapshot", len(items))

	s.mu.Lock()
	defer s.mu.Unlock()

	installed := make([]*models.TrackedItem, 0, len(items))
	for _, item := range items {
		if item == nil || item.MessageID == "" {
			log.Printf("⚠️ Skipping restored record with no message ID")
			continue
		}

		item.ModuleData = nil
		s.items[item.MessageID] = item
		installed = append(installed, item)
	}

	for _, item := range installed {
		if item.OwnerModule == "" {
			continue
		}

		maybeCallbacks := s.modulesService.GetCallbacks(item.OwnerModule)
		if !maybeCallbacks.IsPresent() {
			log.Printf("📋 No callbacks registered for module %s - restored message %s without post-processing",
				item.OwnerModule, item.MessageID)
			continue
		}

		data, err := maybeCallbacks.MustGet().PostProcess(ctx, item.Clone())
		if err != nil {
			log.Printf("⚠️ Post-process callback for module %s failed on message %s: %v",
				item.OwnerModule, item.MessageID, err)
			continue
		}
		item.ModuleData = data
	}

	log.Printf("📋 Completed successfully - restored %d tracked items", len(installed))
	return len(installed)
}
