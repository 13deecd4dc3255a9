package main

import (
	"log"
	"net/http"

	"github.com/caarlos0/env/v11"

	"dashboard-backend/cmd"
	"dashboard-backend/internal/core"
	"dashboard-backend/internal/database"
	"dashboard-backend/internal/messaging"
	"dashboard-backend/internal/metrics"
	"dashboard-backend/internal/rates"
	"dashboard-backend/internal/storage"
)

type WorkerConfig struct {
	DatabaseURL       string `env:"DATABASE_URL,notEmpty,required"`
	RabbitMQURL       string `env:"RABBITMQ_URL,notEmpty,required"`
	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
	UploadBucketName  string `env:"UPLOAD_BUCKET_NAME" envDefault:"uploads"`
	MetricsPort       string `env:"METRICS_PORT" envDefault:"9090"`
	RateServiceURL    string `env:"RATE_SERVICE_URL"`
	USDToIDRRate      float64 `env:"USD_TO_IDR_RATE" envDefault:"16000"`
}

func main() {
	log.Println("Starting Worker Process...")

	cmd.LoadEnvFile()

	var cfg WorkerConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	objectStore, err := storage.NewS3ObjectStore(storage.S3ClientConfig{
		Endpoint:        cfg.S3EndpointURL,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		log.Fatalf("Worker: Failed to create object store: %v", err)
	}

	publisher, err := messaging.NewRabbitMQPublisher(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}

	reciever, err := messaging.NewRabbitMQReceiver(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to create RabbitMQ receiver: %v", err)
	}

	var rateProvider rates.Provider
	if cfg.RateServiceURL != "" {
		rateProvider = rates.NewRestProvider(cfg.RateServiceURL, cfg.USDToIDRRate)
	} else {
		rateProvider = rates.StaticProvider{Rate: cfg.USDToIDRRate}
	}

	workerMetrics := metrics.NewWorkerMetrics()

	go func() {
		log.Printf("metrics listening on port %s", cfg.MetricsPort)
		if err := http.ListenAndServe(":"+cfg.MetricsPort, workerMetrics.Handler()); err != nil {
			log.Fatalf("metrics server error: %v", err)
		}
	}()

	summarizer := core.NewSummarizerWithRates(rateProvider)

	processor := core.NewTaskProcessor(db, objectStore, publisher, reciever, summarizer, cfg.UploadBucketName, workerMetrics)
	defer processor.Stop()

	log.Println("Worker started. Waiting for tasks. Press Ctrl+C to exit.")

	processor.Start()

	log.Println("Worker process stopped.")
}
