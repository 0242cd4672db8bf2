package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"contest_registry/internal/app/service"
	"contest_registry/internal/app/worker"
	"contest_registry/internal/domain/repository"
	"contest_registry/internal/platform/cache"
	"contest_registry/internal/platform/config"
	"contest_registry/internal/platform/database"
	"contest_registry/internal/platform/queue"
	"contest_registry/internal/platform/search"
)

// The worker binary drains the import queue on its own, so the API can run with RUN_IMPORT_WORKER=false.
func main() {
	log.Println("Import worker service starting...")
	config.Load()

	database.Connect()
	defer database.Close()
	queue.ConnectRedis()
	defer queue.CloseRedis()

	importQueue := queue.NewImportQueue(queue.RDB, config.AppConfig.ImportQueueName, config.AppConfig.ImportLockKey, config.AppConfig.ImportLockTTL())
	deps := service.Deps{Cache: cache.NewStatsCache(queue.RDB, config.AppConfig.StatsCacheTTL())}
	if config.AppConfig.ElasticURL != "" {
		if client, err := search.Connect(config.AppConfig.ElasticURL); err != nil {
			log.Printf("WARN: search index unavailable, imported contestants will not be indexed: %v", err)
		} else {
			deps.Indexer = search.NewContestantIndex(client)
		}
	}
	services := service.NewServices(repository.NewGormStore(database.DB), deps)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.NewImportWorker(importQueue, services.ImportJobs).Start(ctx)
	}()

	<-sigs
	log.Println("Shutdown signal received.")
	cancel()

	wg.Wait()
	log.Println("Worker exited cleanly.")
}
