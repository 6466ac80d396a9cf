package main

import (
	"context"
	"encoding/gob"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"

	"tablecast/internal/config"
	"tablecast/internal/driver"
	"tablecast/internal/email"
	"tablecast/internal/server/api"
	"tablecast/internal/server/hub"
	"tablecast/internal/server/middleware"
	"tablecast/internal/server/store"
	"tablecast/internal/storage"
	"tablecast/internal/worker"
)

func main() {
	_ = godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Concrete types carried inside []any on agent data streams.
	gob.Register([]any{})
	gob.Register(map[string]any{})
	gob.Register([]byte{})
	gob.Register(time.Time{})

	cfg := config.Load()
	slog.Info("Starting tablecast exportd", "env", cfg.AppEnv)

	st, err := store.New(cfg.MetaDSN)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	if err := st.InitSchema(); err != nil {
		slog.Error("Migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Metadata database connected")

	provider := buildStorage(cfg)

	var src driver.Driver
	if cfg.SourceDSN != "" {
		src, err = driver.Open(cfg.SourceDriver, cfg.SourceDSN)
		if err != nil {
			slog.Error("Failed to open source driver", "driver", cfg.SourceDriver, "error", err)
			os.Exit(1)
		}
		defer src.Close()
	} else {
		slog.Warn("SOURCE_DSN not set, query exports disabled")
	}

	var sender email.Sender = email.NewLogSender()
	if cfg.SMTPHost != "" {
		sender = email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	}

	h := hub.NewHub()

	pool := worker.NewPool(cfg.WorkerCount, cfg.MaxDBConcurrency, src, provider, sender, cfg.Compression, cfg.AttachFile)

	handler := api.NewHandler(st, h, pool, provider, api.Config{
		APISecret:    cfg.APISecret,
		JWTSecret:    cfg.JWTSecret,
		JobTimeout:   cfg.DefaultTimeout,
		UseGzip:      cfg.Compression,
		SourceDriver: cfg.SourceDriver,
	})

	pool.SetNotifier(func(jobID string, status worker.JobStatus, rows int64) {
		handler.OnJobUpdate(jobID, status, rows)
		h.NotifyJob(jobID, status, rows)
	})
	pool.Start()
	defer pool.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/export", handler.HandleExport)
	mux.HandleFunc("/jobs", handler.HandleJobStatus)
	mux.HandleFunc("/dashboard/stream", handler.HandleDashboard)
	mux.HandleFunc("/auth/register", handler.HandleRegister)
	mux.HandleFunc("/auth/verify", handler.HandleVerify)
	mux.HandleFunc("/auth/keys/create", handler.HandleCreateKey)
	mux.HandleFunc("/auth/keys/list", handler.HandleListKeys)
	mux.HandleFunc("/agent/control", handler.HandleControl)
	mux.HandleFunc("/agent/data", handler.HandleData)

	finalHandler := middleware.CORS(cfg.AllowedOrigins, cfg.AppEnv)(mux)

	slog.Info("exportd listening", "port", cfg.ServerPort)
	if err := http.ListenAndServe(":"+cfg.ServerPort, finalHandler); err != nil {
		slog.Error("Server failed", "error", err)
	}
}

func buildStorage(cfg *config.Config) storage.Provider {
	if cfg.StorageType != "s3" {
		slog.Info("Using local storage", "path", cfg.LocalStoragePath)
		return storage.NewLocalProvider(cfg.LocalStoragePath)
	}

	// Credentials come straight from the standard env variables so custom
	// S3 endpoints (MinIO and friends) work without an AWS profile.
	creds := aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		}, nil
	})

	opts := s3.Options{
		Region:       cfg.AWSRegion,
		Credentials:  aws.NewCredentialsCache(creds),
		UsePathStyle: cfg.S3PathStyle,
	}
	if cfg.S3Endpoint != "" {
		opts.BaseEndpoint = &cfg.S3Endpoint
	}
	client := s3.New(opts)

	slog.Info("Using S3 storage", "bucket", cfg.S3Bucket, "region", cfg.AWSRegion)
	return storage.NewS3Provider(client, cfg.S3Bucket)
}
