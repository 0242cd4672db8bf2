package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contest_registry/internal/api"
	"contest_registry/internal/app/service"
	"contest_registry/internal/app/worker"
	"contest_registry/internal/common/security"
	"contest_registry/internal/domain/repository"
	"contest_registry/internal/platform/cache"
	"contest_registry/internal/platform/config"
	"contest_registry/internal/platform/database"
	"contest_registry/internal/platform/metrics"
	"contest_registry/internal/platform/queue"
	"contest_registry/internal/platform/search"
)

func main() {
	// 1. Load Configuration
	config.Load()
	fmt.Println("Configuration loaded.")

	// 2. Initialize JWT
	security.InitJWT()
	fmt.Println("JWT initialized.")

	// 3. Initialize Database
	database.Connect()
	defer database.Close()
	if err := database.Migrate(database.DB); err != nil {
		log.Fatalf("Could not migrate database: %v", err)
	}
	fmt.Println("Database connected and migrated.")

	// 4. Initialize Redis
	queue.ConnectRedis()
	defer queue.CloseRedis()
	fmt.Println("Redis connected.")

	metrics.Register()

	// 5. Initialize Services
	importQueue := queue.NewImportQueue(queue.RDB, config.AppConfig.ImportQueueName, config.AppConfig.ImportLockKey, config.AppConfig.ImportLockTTL())
	deps := service.Deps{
		Cache: cache.NewStatsCache(queue.RDB, config.AppConfig.StatsCacheTTL()),
		Queue: importQueue,
	}
	if index := connectSearch(); index != nil {
		deps.Indexer = index
	}
	services := service.NewServices(repository.NewGormStore(database.DB), deps)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := services.Auth.EnsureAdmin(bootCtx, config.AppConfig.AdminUsername, config.AppConfig.AdminPassword, config.AppConfig.AdminFullName); err != nil {
		log.Fatalf("Could not create admin user: %v", err)
	}
	bootCancel()

	// 6. Initialize Import Worker (as a goroutine)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	workerDone := make(chan struct{})
	if config.AppConfig.RunImportWorker {
		importWorker := worker.NewImportWorker(importQueue, services.ImportJobs)
		go func() {
			defer close(workerDone)
			importWorker.Start(workerCtx)
		}()
		fmt.Println("Import worker started.")
	} else {
		close(workerDone)
	}

	// 7. Initialize Router & HTTP Server
	router := api.NewRouter(services, config.AppConfig.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 8. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", config.AppConfig.APIPort, err)
		}
	}()
	log.Println("Server started successfully.")

	<-stop

	log.Println("Shutting down server...")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.Println("WARN: import worker did not stop before the shutdown deadline")
	}

	log.Println("Server and worker stopped gracefully.")
}

// connectSearch returns nil when no index is configured or it cannot be reached.
// Contestant search then runs against the database.
func connectSearch() *search.ContestantIndex {
	if config.AppConfig.ElasticURL == "" {
		log.Println("INFO: ELASTIC_URL not set, contestant search uses the database")
		return nil
	}
	client, err := search.Connect(config.AppConfig.ElasticURL)
	if err != nil {
		log.Printf("WARN: search index unavailable, using the database: %v", err)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := search.EnsureIndexes(ctx, client); err != nil {
		log.Printf("WARN: could not prepare search index, using the database: %v", err)
		return nil
	}
	fmt.Println("Search index connected.")
	return search.NewContestantIndex(client)
}
