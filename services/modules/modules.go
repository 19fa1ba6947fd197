package modules

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/samber/mo"

	"reacttracker/models"
)

// RenderCallback is invoked after any mutation to a tracked item so the
// owning feature module can republish the item's visible message. The item is
// a private deep copy; mutations to it are not observed by the store.
type RenderCallback func(ctx context.Context, item *models.TrackedItem) error

// PostProcessCallback is invoked once per item after a cold-start restore.
// The returned value becomes the item's ModuleData, letting the module
// rebuild derived state that is never persisted.
type PostProcessCallback func(ctx context.Context, item *models.TrackedItem) (any, error)

// Callbacks is the pair of functions a feature module registers for its
// tracked items.
type Callbacks struct {
	Render      RenderCallback
	PostProcess PostProcessCallback
}

// ModulesService maps a feature module name to its registered callbacks.
// Modules register once at startup; there is no removal path.
type ModulesService struct {
	mu        sync.RWMutex
	callbacks map[string]Callbacks
}

func NewModulesService() *ModulesService {
	return &ModulesService{
		callbacks: make(map[string]Callbacks),
	}
}

// RegisterCallbacks registers both callbacks for a module. Both are
// mandatory; a module that wants no behavior must pass explicit no-ops.
// The last registration for a given name wins.
func (s *ModulesService) RegisterCallbacks(
	name string,
	render RenderCallback,
	postProcess PostProcessCallback,
) error {
	if name == "" {
		return fmt.Errorf("module name cannot be empty")
	}
	if render == nil {
		return fmt.Errorf("render callback cannot be nil")
	}
	if postProcess == nil {
		return fmt.Errorf("post-process callback cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks[name] = Callbacks{Render: render, PostProcess: postProcess}

	log.Printf("📋 Registered callbacks for module: %s (%d modules total)", name, len(s.callbacks))
	return nil
}

// GetCallbacks looks up the callbacks for a module by exact name. A miss is
// not an error: items owned by an unregistered module simply receive no
// callback invocations.
func (s *ModulesService) GetCallbacks(name string) mo.Option[Callbacks] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cbs, ok := s.callbacks[name]
	if !ok {
		return mo.None[Callbacks]()
	}
	return mo.Some(cbs)
}
