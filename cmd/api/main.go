package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/converzia/lead-ingest/internal/infra/conversation"
	"github.com/converzia/lead-ingest/internal/infra/crypto"
	"github.com/converzia/lead-ingest/internal/infra/database"
	"github.com/converzia/lead-ingest/internal/infra/http/handlers"
	"github.com/converzia/lead-ingest/internal/infra/http/middleware"
	"github.com/converzia/lead-ingest/internal/infra/integration/meta"
	"github.com/converzia/lead-ingest/internal/infra/mail"
	"github.com/converzia/lead-ingest/internal/infra/queue"
	"github.com/converzia/lead-ingest/internal/usecase"
)

func main() {
	godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	db, err := database.NewDBConnection(dbURL)
	if err != nil {
		log.Fatalf("❌ Falha ao conectar no Postgres: %v", err)
	}
	defer db.Close()

	if getEnv("RUN_MIGRATIONS", "false") == "true" {
		// golang-migrate espera o scheme do driver pgx/v5
		migrateURL := strings.Replace(dbURL, "postgres://", "pgx5://", 1)
		if err := database.RunMigrations(migrateURL, getEnv("MIGRATIONS_PATH", "migrations")); err != nil {
			log.Fatalf("❌ %v", err)
		}
	}

	rabbitMQ, err := queue.NewRabbitMQ(
		getEnv("RABBITMQ_USER", "guest"),
		getEnv("RABBITMQ_PASS", "guest"),
		getEnv("RABBITMQ_HOST", "localhost"),
		getEnv("RABBITMQ_PORT", "5672"),
	)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer rabbitMQ.Conn.Close()
	defer rabbitMQ.Ch.Close()

	// 1. Repositórios
	leadRepo := database.NewLeadRepository(db)
	sourceRepo := database.NewLeadSourceRepository(db)
	offerRepo := database.NewLeadOfferRepository(db)
	adMapRepo := database.NewAdOfferMapRepository(db)
	eventRepo := database.NewLeadEventRepository(db)
	integrationRepo := database.NewTenantIntegrationRepository(db)

	// 2. Guard de PII (sem chave = campo de documento descartado)
	piiGuard, err := crypto.NewPIIGuard(os.Getenv("PII_ENCRYPTION_KEY"))
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if !piiGuard.Enabled() {
		log.Println("⚠️ PII_ENCRYPTION_KEY ausente: campos de DNI serão descartados")
	}

	// 3. Integrações e outbox
	graphClient := meta.NewClient(os.Getenv("META_GRAPH_URL"))
	producer := queue.NewProducer(rabbitMQ.Conn, rabbitMQ.Ch)

	var alerts usecase.AlertService
	if os.Getenv("ALERT_MAIL_HOST") != "" {
		port, _ := strconv.Atoi(getEnv("ALERT_MAIL_PORT", "587"))
		alerts = mail.NewAlertSender(
			os.Getenv("ALERT_MAIL_HOST"), port,
			os.Getenv("ALERT_MAIL_USER"), os.Getenv("ALERT_MAIL_PASS"),
			getEnv("ALERT_MAIL_FROM", "no-reply@converzia.app"),
			os.Getenv("ALERT_MAIL_TO"),
		)
	}

	// 4. Worker do gatilho de conversa (consome a outbox)
	convClient := conversation.NewClient(
		os.Getenv("CONVERSATION_API_URL"),
		os.Getenv("CONVERSATION_API_KEY"),
	)
	worker := queue.NewWorker(rabbitMQ.Ch, convClient)
	go worker.Start(queue.QueueName)

	// 5. UseCase de ingestão
	ingestUC := usecase.NewIngestLeadUseCase(
		adMapRepo, integrationRepo,
		leadRepo, sourceRepo, offerRepo, eventRepo,
		graphClient, piiGuard, producer, alerts,
		os.Getenv("META_ACCESS_TOKEN"),
		getEnv("DEFAULT_DIAL_PREFIX", "+34"),
	)

	// 6. Handlers
	limiter := handlers.NewRateLimiter(120, time.Minute)
	webhookHandler := handlers.NewWebhookHandler(
		ingestUC,
		os.Getenv("META_APP_SECRET"),
		os.Getenv("META_VERIFY_TOKEN"),
		limiter,
	)
	healthHandler := handlers.NewHealthHandler(db, rabbitMQ.Conn)

	// 7. Router
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	}))

	r.Get("/webhook/meta", webhookHandler.HandleVerify)
	r.Post("/webhook/meta", webhookHandler.Handle)
	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	port := ":" + getEnv("PORT", "8080")
	server := &http.Server{
		Addr:         port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("🔥 Converzia Lead Ingest rodando na porta %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Servidor caiu: %v", err)
		}
	}()

	// Shutdown gracioso: deixa as entregas em voo terminarem
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("⏳ Encerrando servidor...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Shutdown falhou: %v", err)
	}
	log.Println("✅ Servidor encerrado")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
