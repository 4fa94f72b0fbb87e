package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/Skufu/aidoctor/internal/classifier"
	"github.com/Skufu/aidoctor/internal/config"
	"github.com/Skufu/aidoctor/internal/diagnosis"
	"github.com/Skufu/aidoctor/internal/diseases"
	"github.com/Skufu/aidoctor/internal/events"
	"github.com/Skufu/aidoctor/internal/features"
	"github.com/Skufu/aidoctor/internal/handler"
	"github.com/Skufu/aidoctor/internal/logging"
	"github.com/Skufu/aidoctor/internal/patients"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// app holds everything loaded at startup.
type app struct {
	handler *handler.Handler
	db      HealthChecker
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	gin.SetMode(cfg.GinMode)

	a, err := newApp(context.Background(), cfg, log)
	if err != nil {
		log.WithError(err).Fatal("startup failed")
	}
	defer a.Close()

	router := setupRouter(a.handler, a.db, log)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	log.WithField("port", cfg.Port).Info("server listening")
	waitForShutdown(server, log)
}

// newApp loads the schema, model and disease table and opens the patient log.
// Any artifact that fails to load is fatal to startup.
func newApp(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*app, error) {
	a := &app{}

	schema, err := features.LoadSchema(cfg.FeaturesPath)
	if err != nil {
		return nil, fmt.Errorf("load feature schema: %w", err)
	}

	model, err := classifier.Load(classifier.Options{
		ModelPath:  cfg.ModelPath,
		LabelsPath: cfg.LabelsPath,
		LibPath:    cfg.ORTLibPath,
		Features:   schema.Len(),
	})
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	a.closers = append(a.closers, func() { _ = model.Close() })

	table, err := diseases.LoadTable(cfg.DiseaseTablePath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load disease table: %w", err)
	}

	var store patients.Store
	if cfg.EnableDB {
		pool, err := connectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		a.db = pool

		store, err = patients.NewPostgres(ctx, pool)
		if err != nil {
			a.Close()
			return nil, err
		}
	} else {
		store = patients.NewWorkbook(cfg.PatientLogPath)
	}

	var pub events.Publisher = events.Nop{}
	if cfg.KafkaEnabled() {
		pub = events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		a.closers = append(a.closers, func() {
			if err := pub.Close(); err != nil {
				log.WithError(err).Warn("close event publisher")
			}
		})
	}

	svc := diagnosis.NewService(schema, model, table, pub, log)
	a.handler = handler.NewHandler(svc, store, pub, log)

	log.WithFields(logrus.Fields{
		"symptoms": schema.Len(),
		"diseases": table.Len(),
		"model":    cfg.ModelPath,
		"db":       cfg.EnableDB,
		"kafka":    cfg.KafkaEnabled(),
	}).Info("artifacts loaded")
	return a, nil
}

func connectDB(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return pool, nil
}

func setupRouter(h *handler.Handler, db HealthChecker, log logrus.FieldLogger) *gin.Engine {
	router := gin.New()
	router.Use(
		requestID(),
		logging.AccessLog(log),
		gin.Recovery(),
		limitBodySize(1<<20), // 1MB max body
		cors.New(cors.Config{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/readyz", func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "disabled"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		dbStatus := "ok"
		if err := db.Ping(ctx); err != nil {
			dbStatus = fmt.Sprintf("unhealthy: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "degraded",
				"db":     dbStatus,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"db":     dbStatus,
		})
	})

	if h != nil {
		h.RegisterTemplates(router)
		h.RegisterHandler(router)
	}

	return router
}

func waitForShutdown(server *http.Server, log logrus.FieldLogger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

// requestID reuses an incoming X-Request-ID or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(logging.RequestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
