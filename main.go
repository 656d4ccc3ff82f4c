package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EmpoweredVote/EV-PublicMap/internal/assignments"
	"github.com/EmpoweredVote/EV-PublicMap/internal/config"
	"github.com/EmpoweredVote/EV-PublicMap/internal/db"
	"github.com/EmpoweredVote/EV-PublicMap/internal/geocode"
	"github.com/EmpoweredVote/EV-PublicMap/internal/metrics"
	"github.com/EmpoweredVote/EV-PublicMap/internal/middleware"
	"github.com/EmpoweredVote/EV-PublicMap/internal/points"
	"github.com/EmpoweredVote/EV-PublicMap/internal/publicmap"
	"github.com/EmpoweredVote/EV-PublicMap/internal/reports"
	"github.com/EmpoweredVote/EV-PublicMap/internal/snapshot"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	loc, _ := cfg.Location()

	d, err := db.Connect(cfg.DatabaseURL, db.Options{Schema: cfg.DBSchema, LogLevel: cfg.DBLogLevel})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := points.Init(d); err != nil {
		log.Fatalf("init points: %v", err)
	}
	if err := snapshot.Init(d); err != nil {
		log.Fatalf("init snapshot: %v", err)
	}
	if err := geocode.Init(d); err != nil {
		log.Fatalf("init geocode: %v", err)
	}

	reader := snapshot.NewReader(d)
	task := snapshot.NewTask(snapshot.NewBuilder(d, loc), snapshot.LogObserver{}, snapshot.MetricsObserver{})

	var provider geocode.Provider
	if c := geocode.NewGoogleClient(cfg.GoogleMapsAPIKey, cfg.GeocodeTimeout); c != nil {
		provider = c
	} else {
		log.Println("[geocode] GOOGLE_MAPS_API_KEY not set, cache misses will report CONFIG")
	}
	geo := geocode.NewService(d, provider, geocode.Options{RPS: cfg.GeocodeRPS, Timeout: cfg.GeocodeTimeout})

	var locker snapshot.Locker = snapshot.NoopLocker{}
	if cfg.RedisAddress != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress, Password: cfg.RedisPassword})
		defer client.Close()
		locker = snapshot.NewRedisLocker(client, cfg.RedisPrefix)
		log.Printf("[snapshot] using redis lock at %s", cfg.RedisAddress)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Logger)
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	r.Use(middleware.ActorMiddleware(cfg.SystemActorID))
	r.Get("/", RootHandler)
	r.Handle("/metrics", metrics.Handler())

	r.Mount("/map", publicmap.SetupRoutes(publicmap.NewHandlers(reader)))
	r.Mount("/geocode", geocode.SetupRoutes(geocode.NewHandlers(geo)))
	r.Mount("/reports", reports.SetupRoutes(reports.NewHandlers(reports.NewEngine(reader, d))))
	r.Mount("/assignments", assignments.SetupRoutes(assignments.NewHandlers(assignments.NewManager(d), cfg.SystemActorID)))
	r.Mount("/admin", snapshot.SetupAdminRoutes(snapshot.NewHandlers(task, cfg.SystemActorID)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := snapshot.NewScheduler(task, snapshot.SchedulerOptions{
		Interval:   cfg.SnapshotInterval,
		RunOnStart: cfg.SnapshotOnStart,
		Locker:     locker,
	})
	go scheduler.Run(ctx)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Server listening on port :%s...\n", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
}
