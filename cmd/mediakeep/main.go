package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mediakeep/mediakeep/internal/cache"
	"github.com/mediakeep/mediakeep/internal/config"
	"github.com/mediakeep/mediakeep/internal/db"
	"github.com/mediakeep/mediakeep/internal/ffmpeg"
	"github.com/mediakeep/mediakeep/internal/jobs"
	"github.com/mediakeep/mediakeep/internal/probe"
	"github.com/mediakeep/mediakeep/internal/publish"
	"github.com/mediakeep/mediakeep/internal/recycle"
	"github.com/mediakeep/mediakeep/internal/repository"
	"github.com/mediakeep/mediakeep/internal/scanner"
	"github.com/mediakeep/mediakeep/internal/scheduler"
	"github.com/mediakeep/mediakeep/internal/version"
)

func main() {
	log.Printf("MediaKeep %s starting...", version.Load())

	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(database, "migrations"); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	cfg.MergeFromDB(repository.NewSettingsRepository(database))

	cacheRepo := repository.NewCacheRepository(database)
	libraryRepo := repository.NewLibraryRepository(database)
	recycleRepo := repository.NewRecycleRepository(database)
	reviewRepo := repository.NewReviewRepository(database)
	eventRepo := repository.NewEventRepository(database)

	store := cache.NewStore(cfg.CacheDir, cacheRepo, cfg.MaxAssetBytes, cfg.PhashMaxDistance)
	prober := probe.New(ffmpeg.NewFFprobe(cfg.FFprobePath), cfg.ProbeTimeout, cfg.ProbeWorkers)
	publisher := publish.NewPublisher(libraryRepo, store)
	restorer := publish.NewRestorer(libraryRepo, store, eventRepo)
	recycler := recycle.New(cfg.RecycleDir, recycleRepo)
	sc := scanner.New(prober, store, publisher, recycler, reviewRepo, cfg.LibraryDir)

	queue := jobs.NewQueue(cfg.RedisAddr, cfg.JobConcurrency)
	jobs.RegisterHandlers(queue, sc, restorer, store, libraryRepo, jobs.LogNotifier{}, cfg.RetentionWindow)
	if err := queue.Start(); err != nil {
		log.Fatalf("job queue failed to start: %v", err)
	}

	sched := scheduler.New(queue)
	if err := sched.Register(cfg.GCSchedule, cfg.VerifySchedule); err != nil {
		log.Fatalf("scheduler setup failed: %v", err)
	}
	sched.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	sched.Stop()
	queue.Stop()
	log.Println("stopped")
}
