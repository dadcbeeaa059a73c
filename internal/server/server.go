package server

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"crashcore/internal/broadcast"
	"crashcore/internal/cache"
	"crashcore/internal/database"
	"crashcore/internal/game"
	"crashcore/internal/ledger"
)

type FiberServer struct {
	*fiber.App

	db      database.Service
	cache   cache.Service
	engine  *game.Engine
	hub     *broadcast.Hub
	ledger  *ledger.RedisLedger
	store   *database.Store
	history *cache.RoundHistory
}

func New() *FiberServer {
	// Redis backs the wallet ledger; the engine cannot settle without it.
	redisService, err := cache.New()
	if err != nil {
		log.Fatalf("[SERVER] Redis is required for settlement: %v", err)
	}

	// Postgres is the audit archive; the engine runs without it, it just
	// stops persisting round history.
	db := database.New()

	hub := broadcast.NewHub()
	led := ledger.NewRedisLedger(redisService.GetClient())
	history := cache.NewRoundHistory(redisService.GetClient())

	var (
		store    *database.Store
		archiver game.Archiver = game.NopArchiver{}
	)
	if db != nil {
		store = database.NewStore(db.Pool())
		archiver = store
	} else {
		log.Println("[SERVER] Running without Postgres; round history lives in the Redis mirror only")
	}

	engine := game.NewEngine(engineConfig(), led, hub, game.LogCommission{},
		&mirroredArchiver{history: history, next: archiver})

	server := &FiberServer{
		App: fiber.New(fiber.Config{
			ServerHeader:  "crashcore",
			AppName:       "crashcore",
			ReadTimeout:   10 * time.Second,
			WriteTimeout:  10 * time.Second,
			IdleTimeout:   120 * time.Second,
			StrictRouting: false,
		}),

		db:      db,
		cache:   redisService,
		engine:  engine,
		hub:     hub,
		ledger:  led,
		store:   store,
		history: history,
	}

	server.App.Use(recover.New())
	// Backpressure only: settlement correctness never depends on this.
	server.App.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
	}))

	go hub.Run()
	engine.Start()

	log.Println("[SERVER] Engine started")

	return server
}

func engineConfig() game.Config {
	cfg := game.DefaultConfig()
	cfg.MasterSecret = os.Getenv("CRASH_MASTER_SECRET")
	if v := os.Getenv("CRASH_HOUSE_EDGE"); v != "" {
		if edge, err := strconv.ParseFloat(v, 64); err == nil && edge > 0 && edge < 1 {
			cfg.HouseEdge = edge
		}
	}
	if v := os.Getenv("CRASH_START_SEQUENCE"); v != "" {
		if seq, err := strconv.ParseInt(v, 10, 64); err == nil && seq >= 0 {
			cfg.StartSequence = seq
		}
	}
	return cfg
}

// Shutdown stops the engine and closes external connections.
func (s *FiberServer) Shutdown() error {
	log.Println("[SERVER] Shutting down...")

	if s.engine != nil {
		s.engine.Stop()
	}
	if s.cache != nil {
		s.cache.Close()
	}
	if s.db != nil {
		s.db.Close()
	}

	return nil
}
