package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/retinacare/platform/pkg/alerting"
	"github.com/retinacare/platform/pkg/analysis"
	"github.com/retinacare/platform/pkg/clinical"
	"github.com/retinacare/platform/pkg/common/config"
	"github.com/retinacare/platform/pkg/common/database"
	"github.com/retinacare/platform/pkg/common/kafka"
	"github.com/retinacare/platform/pkg/common/logger"
	"github.com/retinacare/platform/pkg/common/middleware"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	clinicalRepo := clinical.NewRepository(db)
	if err := clinicalRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate clinical tables")
	}

	analysisRepo := analysis.NewRepository(db)
	if err := analysisRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate analysis tables")
	}

	inApp := alerting.NewInAppDispatcher(db)
	if err := inApp.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate notification tables")
	}

	producer := kafka.NewProducer(cfg.RiskTopic)
	defer producer.Close()

	clinicalService, err := clinical.NewService(analysisRepo, cfg.HighRiskListCap, cfg.AbnormalListCap, cfg.TrendWindowDays)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to build clinical service")
	}
	analysisService, err := analysis.NewService(analysisRepo, clinicalRepo, producer)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to build analysis service")
	}

	clinicalHandler := clinical.NewHandler(clinicalService, clinicalRepo)
	analysisHandler := analysis.NewHandler(analysisService)

	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Logging, middleware.MaxBody(cfg.MaxRequestBody))
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	clinicalHandler.Register(api)
	analysisHandler.Register(api)

	address := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithField("addr", address).Info("clinical service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start clinical service")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down clinical service...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("clinical service forced to shutdown")
	}
	database.ClosePostgres()
	logger.Log.Info("clinical service stopped")
}
