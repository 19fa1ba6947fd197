package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	discordclient "reacttracker/clients/discord"
	"reacttracker/config"
	"reacttracker/handlers"
	"reacttracker/services/modules"
	"reacttracker/services/trackers"
	"reacttracker/snapshot"
)

func main() {
	if err := run(); err != nil {
		log.Printf("❌ Fatal error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	// Initialize services
	modulesService := modules.NewModulesService()
	trackersService := trackers.NewTrackersService(modulesService, cfg.DefaultTTL)
	snapshotStore := snapshot.NewFileStore(cfg.SnapshotPath)

	// Feature modules register their render/post-process callbacks here,
	// before the snapshot restore so restored items get post-processed.
	registerFeatureModules(modulesService)

	// Initialize Discord event handling
	discordHandler, err := handlers.NewDiscordEventsHandler(cfg.DiscordConfig.BotToken, trackersService)
	if err != nil {
		return err
	}

	if err := discordHandler.StartBot(); err != nil {
		return err
	}
	defer discordHandler.StopBot()

	// Restore in-flight state; record references are re-resolved over the
	// live session, so this must happen after the bot connects.
	ctx := context.Background()
	resolver := discordclient.NewDiscordResolver(discordHandler.Session())
	items, err := snapshotStore.Load(ctx, resolver)
	if err != nil {
		return err
	}
	trackersService.RestoreItems(ctx, items)

	// Start the expiration sweeper
	sweeperCtx, stopSweeper := context.WithCancel(ctx)
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		trackersService.RunSweeper(sweeperCtx, cfg.SweepInterval)
	}()

	// Admin/observability surface
	router := mux.NewRouter()
	handlers.NewAdminHandler(trackersService).RegisterRoutes(router)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           cors.AllowAll().Handler(router),
		ReadHeaderTimeout: 30 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("✅ Admin server listening on http://localhost%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("❌ Admin server error: %v", err)
		}
	}()

	<-stop
	log.Printf("🛑 Shutdown signal received, cleaning up...")

	// Stop taking events, let a running sweep finish, then persist
	discordHandler.StopBot()
	stopSweeper()
	<-sweeperDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Admin server shutdown error: %v", err)
	}

	if err := snapshotStore.Save(ctx, trackersService.ListTrackedItems(ctx)); err != nil {
		return err
	}

	log.Printf("✅ Shut down gracefully")
	return nil
}

// registerFeatureModules wires up the feature modules compiled into this
// deployment. Modules own their message content and command surface; the
// tracker only drives their callbacks. The bare tracker build bundles none.
func registerFeatureModules(modulesService *modules.ModulesService) {
}
