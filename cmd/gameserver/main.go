// Package main provides the game server binary: the combat backend plus the
// websocket gateway that frontend clients connect to.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/emberfell/emberfell/internal/broadcast"
	"github.com/emberfell/emberfell/internal/config"
	"github.com/emberfell/emberfell/internal/game/dice"
	"github.com/emberfell/emberfell/internal/game/encounter"
	"github.com/emberfell/emberfell/internal/game/monster"
	"github.com/emberfell/emberfell/internal/game/room"
	"github.com/emberfell/emberfell/internal/gameserver"
	"github.com/emberfell/emberfell/internal/narrator"
	"github.com/emberfell/emberfell/internal/observability"
	"github.com/emberfell/emberfell/internal/scripting"
	"github.com/emberfell/emberfell/internal/server"
	"github.com/emberfell/emberfell/internal/storage/archive"
	"github.com/emberfell/emberfell/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	src := dice.NewCryptoSource()

	logger.Info("starting game server", zap.String("addr", cfg.Server.Addr()))

	// Connect to PostgreSQL for character persistence.
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)
	charRepo := postgres.NewCharacterRepository(pool.DB())

	// The encounter archive backend is Redis when configured, in-memory
	// otherwise.
	var (
		arch        archive.Archive
		redisClient *redis.Client
	)
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("connecting to redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		arch = archive.NewRedis(redisClient, cfg.Redis.ArchiveTTL)
		logger.Info("redis archive connected", zap.String("addr", cfg.Redis.Addr))
	} else {
		arch = archive.NewMemory()
		logger.Info("using in-memory encounter archive")
	}

	// Load monster templates.
	templates, err := monster.LoadTemplates(cfg.Game.MonstersDir)
	if err != nil {
		logger.Fatal("loading monster templates", zap.Error(err))
	}
	monsterMgr, err := monster.NewManager(templates)
	if err != nil {
		logger.Fatal("creating monster manager", zap.Error(err))
	}
	logger.Info("loaded monster templates", zap.Int("count", len(templates)))

	rooms := room.NewManager(cfg.Game.HistorySize)
	hub := broadcast.NewHub(logger, 64)
	engine := encounter.NewEngine()

	// The narrator uses the Anthropic API when a key is present, otherwise a
	// canned stub so local development works offline.
	var gen narrator.Generator
	if ag, err := narrator.NewAnthropicGenerator(cfg.Narrator, logger); err == nil {
		gen = ag
		logger.Info("anthropic narrator enabled", zap.String("model", cfg.Narrator.Model))
	} else {
		logger.Warn("anthropic narrator unavailable, using stub", zap.Error(err))
		gen = &narrator.StubGenerator{}
	}

	// Initialise room scripting. Each subdirectory of the scripts root is a
	// room's script set; the "global" subdirectory is shared by all rooms.
	var scriptMgr *scripting.Manager
	if cfg.Game.ScriptsDir != "" {
		scriptStart := time.Now()
		scriptMgr = scripting.NewManager(src, logger)

		entries, err := os.ReadDir(cfg.Game.ScriptsDir)
		if err != nil {
			logger.Fatal("reading scripts dir", zap.String("dir", cfg.Game.ScriptsDir), zap.Error(err))
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			dir := filepath.Join(cfg.Game.ScriptsDir, e.Name())
			if e.Name() == "global" {
				err = scriptMgr.LoadGlobal(dir, scripting.DefaultInstructionLimit)
			} else {
				err = scriptMgr.LoadRoom(e.Name(), dir, scripting.DefaultInstructionLimit)
			}
			if err != nil {
				logger.Fatal("loading scripts", zap.String("dir", dir), zap.Error(err))
			}
		}
		defer scriptMgr.Close()

		scriptMgr.Broadcast = func(roomCode, msg string) {
			hub.Send(roomCode, broadcast.NewDMEvent(msg))
			rooms.AppendHistory(roomCode, msg)
		}
		scriptMgr.GetCombatant = func(uid string) *scripting.CombatantInfo {
			code, ok := rooms.RoomOf(uid)
			if !ok {
				return nil
			}
			enc, ok := engine.Get(code)
			if !ok {
				return nil
			}
			c := enc.FindCombatant(uid)
			if c == nil {
				return nil
			}
			return &scripting.CombatantInfo{
				UID: c.ID, Name: c.Name, HP: c.CurrentHP, MaxHP: c.MaxHP, AC: c.AC,
			}
		}
		logger.Info("scripting engine initialized",
			zap.Duration("elapsed", time.Since(scriptStart)))
	}

	executor := gameserver.NewExecutor(charRepo, hub, logger)
	orchestrator := gameserver.NewOrchestrator(
		engine, rooms, executor, gen, hub, scriptMgr, arch, logger, cfg.Game.MaxAutoTurns)
	combatSvc := gameserver.NewCombatService(
		engine, rooms, monsterMgr, charRepo, executor, orchestrator, hub, src, logger)
	gateway := gameserver.NewGateway(hub, rooms, combatSvc, charRepo, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gateway.HandleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Health(r.Context(), 2*time.Second); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lifecycle := server.NewLifecycle(logger)

	lifecycle.Add("http", &server.FuncService{
		StartFn: func() error {
			logger.Info("http server listening", zap.String("addr", cfg.Server.Addr()))
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("serving http on %s: %w", cfg.Server.Addr(), err)
			}
			return nil
		},
		StopFn: func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("http shutdown", zap.Error(err))
			}
		},
	})

	lifecycle.Add("postgres", &server.FuncService{
		StartFn: func() error {
			for {
				time.Sleep(30 * time.Second)
				if err := pool.Health(ctx, 5*time.Second); err != nil {
					logger.Warn("database health check failed", zap.Error(err))
				}
			}
		},
		StopFn: func() {
			pool.Close()
			if redisClient != nil {
				if err := redisClient.Close(); err != nil {
					logger.Warn("closing redis client", zap.Error(err))
				}
			}
		},
	})

	logger.Info("game server initialized", zap.Duration("startup", time.Since(start)))

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
