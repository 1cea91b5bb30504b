package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"schoolpay/internal/clients"
	"schoolpay/internal/config"
	"schoolpay/internal/repository"
	"schoolpay/internal/service"
	"schoolpay/internal/transport/auth"
	"schoolpay/internal/transport/rest"
	"schoolpay/internal/transport/websocket"
	"schoolpay/pkg/database/postgres"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system env or defaults")
	}

	// top-level context which we can cancel on shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := config.Load()

	db := mustInitPostgres(cfg.Postgres)
	defer postgres.Close(db)

	redisClient := mustInitRedis(cfg.Redis)
	defer redisClient.Close()

	artifacts, localDir := mustInitArtifacts(cfg)

	processor := clients.NewProcessorClient(clients.ProcessorConfig{
		BaseURL:   cfg.Processor.BaseURL,
		SecretKey: cfg.Processor.SecretKey,
		Timeout:   cfg.Processor.Timeout,
	})

	var sender clients.EmailSender
	switch cfg.Email.Driver {
	case "sendgrid":
		sender = clients.NewSendGridSender(cfg.Email.APIKey, cfg.Email.FromName, cfg.Email.FromEmail)
	default:
		sender = clients.ConsoleSender{}
	}

	wsHub := websocket.NewHub()
	go wsHub.Run(ctx)
	wsClient := clients.NewWebSocketClient(wsHub)

	debtRepo := repository.NewDebtRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	guardianRepo := repository.NewGuardianRepository(db)
	emailLogRepo := repository.NewEmailLogRepository(db)
	tokenRepo := repository.NewAccessTokenRepository(db)

	receiptSvc := service.NewReceiptService(paymentRepo, studentRepo, artifacts)
	notifySvc := service.NewNotifyService(paymentRepo, studentRepo, guardianRepo, emailLogRepo, receiptSvc, sender)
	intentSvc := service.NewIntentService(debtRepo, processor, redisClient)
	confirmSvc := service.NewConfirmService(paymentRepo, debtRepo, emailLogRepo, guardianRepo, processor, receiptSvc, notifySvc, wsClient, redisClient)
	statusSvc := service.NewStatusService(paymentRepo, processor, receiptSvc, redisClient)

	authorizer := auth.NewAuthorizer(guardianRepo)
	bearer := auth.BearerMiddleware(tokenRepo)

	handler := rest.NewHandler(intentSvc, confirmSvc, receiptSvc, notifySvc, statusSvc, authorizer)

	root := chi.NewRouter()

	root.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// public: serve locally stored receipts (s3 driver hands out presigned
	// URLs instead, so this route only matters for the local driver)
	if localDir != "" {
		root.Get(cfg.ReceiptPrefix+"/{file}", func(w http.ResponseWriter, r *http.Request) {
			file := chi.URLParam(r, "file")
			path := filepath.Join(localDir, filepath.Base(file))
			if _, err := os.Stat(path); err != nil {
				if os.IsNotExist(err) {
					http.NotFound(w, r)
					return
				}
				http.Error(w, "failed to access file", http.StatusInternalServerError)
				return
			}

			// prefer the original filename in Content-Disposition (strip
			// the random prefix)
			orig := file
			if idx := strings.IndexByte(file, '_'); idx >= 0 {
				orig = file[idx+1:]
			}
			w.Header().Set("Content-Disposition", `attachment; filename="`+orig+`"`)
			http.ServeFile(w, r, path)
		})
	}

	root.Group(func(r chi.Router) {
		r.Use(bearer)
		handler.Routes(r)

		r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			id, err := auth.GetIdentity(r.Context())
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			log.Printf("[WS] connected: user_id=%d", id.UserID)
			wsHub.HandleWebSocket(w, r, id.UserID)
		})
	})

	corsHandler := withCORS(root)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      corsHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on :%s\n", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			srvErr <- err
			return
		}
		srvErr <- nil
	}()

	// background sweep: flip past-due pending debts to overdue
	go func() {
		ticker := time.NewTicker(cfg.OverdueSweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := debtRepo.MarkOverdue(ctx, time.Now())
				if err != nil {
					log.Printf("[SWEEP] overdue sweep error: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("[SWEEP] marked %d debts overdue", n)
				}
			}
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-srvErr:
		if err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	case sig := <-stop:
		log.Printf("Shutdown signal received: %v", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server Shutdown error: %v", err)
		}

		// cancel top-level context so background services (websocket hub,
		// sweep ticker) stop
		cancel()

		postgres.Close(db)
		redisClient.Close()

		log.Println("Shutdown complete")
	}
}

func mustInitPostgres(cfg config.PostgresConfig) *sql.DB {
	db, err := postgres.NewPostgresConnection(postgres.ConnectionInfo{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.User,
		DBName:   cfg.DBName,
		SSLMode:  cfg.SSLMode,
		Password: cfg.Password,
	})
	if err != nil {
		log.Fatalf("postgres init error: %v", err)
	}
	return db
}

func mustInitRedis(cfg config.RedisConfig) *clients.RedisClient {
	client, err := clients.NewRedisClient(clients.RedisConfig{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		MaxRetries:  cfg.MaxRetries,
		DialTimeout: time.Duration(cfg.DialTimeout) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		Prefix:      cfg.Prefix,
	})
	if err != nil {
		log.Fatalf("redis init error: %v", err)
	}
	return client
}

// mustInitArtifacts picks the receipt store. The second return value is the
// local directory to serve receipts from, empty when the s3 driver is active.
func mustInitArtifacts(cfg config.AppConfig) (clients.ArtifactStore, string) {
	if cfg.StorageDriver == "s3" {
		store, err := clients.NewS3ArtifactStore(clients.S3Config{
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Bucket:          cfg.S3.Bucket,
			UseSSL:          cfg.S3.UseSSL,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
		})
		if err != nil {
			log.Fatalf("s3 init error: %v", err)
		}
		return store, ""
	}

	store, err := clients.NewLocalArtifactStore(cfg.ReceiptDir, cfg.ReceiptPrefix, cfg.ExternalURL)
	if err != nil {
		log.Fatalf("storage init error: %v", err)
	}
	return store, cfg.ReceiptDir
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")

			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
