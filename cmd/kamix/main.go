package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kashifkhan1020/KamiNewMods/internal/admin"
	"github.com/kashifkhan1020/KamiNewMods/internal/bot"
	"github.com/kashifkhan1020/KamiNewMods/internal/config"
	"github.com/kashifkhan1020/KamiNewMods/internal/intake"
	"github.com/kashifkhan1020/KamiNewMods/internal/logging"
	"github.com/kashifkhan1020/KamiNewMods/internal/metrics"
	"github.com/kashifkhan1020/KamiNewMods/internal/queue"
	"github.com/kashifkhan1020/KamiNewMods/internal/resolve"
	web "github.com/kashifkhan1020/KamiNewMods/internal/server"
	"github.com/kashifkhan1020/KamiNewMods/internal/session"
	"github.com/kashifkhan1020/KamiNewMods/internal/store"
	"github.com/kashifkhan1020/KamiNewMods/internal/telegram"
	"github.com/kashifkhan1020/KamiNewMods/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	cfg        config.Config
	configPath string
	redisAddr  string
	badgerPath string
	listenAddr string
)

var rootCmd = &cobra.Command{
	Use:   "kamix",
	Short: "kamix - self-hosted file, website and article hosting",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		// Flags win over file and environment
		if cmd.Flags().Changed("redis") {
			cfg.Redis.Addr = redisAddr
		}
		if cmd.Flags().Changed("badger") {
			cfg.Storage.BadgerPath = badgerPath
		}
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr = listenAddr
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger, err = logging.New(cfg.Log.Format, cfg.Log.Level)
		return err
	},
	SilenceUsage: true,
}

func newRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func openBlobs(ctx context.Context, st *store.BadgerStore) (store.BlobStore, error) {
	switch cfg.Storage.Blobs.Backend {
	case "disk":
		return store.NewDiskBlobs(cfg.Storage.Blobs.Dir)
	case "s3":
		return store.NewS3Blobs(ctx, cfg.Storage.Blobs.S3)
	}
	return st, nil
}

// openCatalog opens Badger and the configured blob backend. Badger holds
// a directory lock, so catalog commands cannot run next to a live server.
func openCatalog(ctx context.Context, m *metrics.Metrics) (*store.BadgerStore, *intake.Service) {
	st, err := store.OpenBadger(cfg.Storage.BadgerPath)
	if err != nil {
		logger.Fatal("Failed to open catalog", zap.String("path", cfg.Storage.BadgerPath), zap.Error(err))
	}
	blobs, err := openBlobs(ctx, st)
	if err != nil {
		st.Close()
		logger.Fatal("Failed to init blob store", zap.String("backend", cfg.Storage.Blobs.Backend), zap.Error(err))
	}
	return st, intake.NewService(st, blobs, logger, m)
}

func newGate() *admin.Gate {
	gate, err := admin.NewGate(cfg.Admin.Secret, cfg.Admin.SecretHash, cfg.Admin.UserID)
	if err != nil {
		logger.Fatal("Invalid admin settings", zap.Error(err))
	}
	return gate
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the web server, import workers and Telegram bot",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Setup Signal Handling (Ctrl+C)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		// Setup Manual 'q' input handling
		go func() {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				if scanner.Text() == "q" {
					fmt.Println(" 'q' pressed. Stopping...")
					cancel()
					return
				}
			}
		}()

		// Handle shutdown signals
		go func() {
			<-sigChan
			logger.Info("Shutting down...")
			cancel()
		}()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m := metrics.New(reg)

		st, svc := openCatalog(ctx, m)
		defer st.Close()
		resolver := resolve.NewResolver(st, svc.Blobs(), logger, m)
		gate := newGate()

		rdb := newRedis()
		defer rdb.Close()
		redisUp := rdb.Ping(ctx).Err() == nil
		if !redisUp {
			logger.Warn("Redis unreachable; imports disabled", zap.String("addr", cfg.Redis.Addr))
		}

		var q queue.Queue
		if redisUp && cfg.Import.Workers > 0 {
			rq := queue.NewRedisQueue(rdb)
			q = rq
			for i := 0; i < cfg.Import.Workers; i++ {
				w := worker.NewWorker(rq, svc, logger.With(zap.Int("worker", i)), m)
				go w.Start(ctx)
			}
		}

		var b *bot.Bot
		if cfg.Telegram.Mode != "off" {
			var sessions session.Store
			if cfg.Session.Backend == "memory" {
				sessions = session.NewMemoryStore(cfg.Session.TTL)
			} else {
				if !redisUp {
					logger.Fatal("The bot needs Redis for pending uploads", zap.String("addr", cfg.Redis.Addr))
				}
				sessions = session.NewRedisStore(rdb, cfg.Session.TTL)
			}
			tg := telegram.NewClient(cfg.Telegram.BaseURL, cfg.Telegram.Token)
			b = bot.New(tg, gate, sessions, svc, logger, m)
			if cfg.Telegram.Mode == "poll" {
				go bot.NewPoller(tg, b, logger, cfg.Telegram.PollTimeout).Start(ctx)
			}
		}

		// Reclaim value log space while running
		go func() {
			ticker := time.NewTicker(10 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := st.RunGC(); err != nil {
						logger.Warn("Badger GC failed", zap.Error(err))
					}
				}
			}
		}()

		srv := web.NewServer(web.Options{
			Store:          st,
			Intake:         svc,
			Resolver:       resolver,
			Gate:           gate,
			Queue:          q,
			Bot:            b,
			Metrics:        m,
			Gatherer:       reg,
			Logger:         logger,
			WebhookSecret:  cfg.Telegram.WebhookSecret,
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
		})
		go func() {
			if err := srv.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Web server stopped", zap.Error(err))
				cancel()
			}
		}()

		logger.Info("Server running.", zap.String("addr", cfg.Server.Addr), zap.String("bot", cfg.Telegram.Mode))
		fmt.Println("Press 'q' + Enter or Ctrl+C to stop.")

		// Block until shutdown
		<-ctx.Done()

		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Warn("Graceful shutdown failed", zap.Error(err))
		}
		logger.Info("Goodbye!")
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis", "localhost:6379", "Address of Redis server")
	rootCmd.PersistentFlags().StringVar(&badgerPath, "badger", "./badger-data", "Path to BadgerDB data directory")
	rootCmd.PersistentFlags().StringVar(&listenAddr, "addr", ":8080", "HTTP listen address")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(addLinkCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(combineCmd)

	err := rootCmd.Execute()
	if logger != nil {
		logger.Sync()
	}
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
