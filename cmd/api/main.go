package main

import (
	"context"
	"log"

	"github.com/calegrette/leaseguard/internal/config"
	"github.com/calegrette/leaseguard/internal/db"
	"github.com/calegrette/leaseguard/internal/httpapi"
	"github.com/calegrette/leaseguard/internal/storage"
	"github.com/calegrette/leaseguard/internal/store/rabbitmq"
	"github.com/calegrette/leaseguard/internal/store/redisstore"
)

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := rds.Ping(context.Background()); err != nil {
		log.Printf("redis unreachable at startup: %v", err)
	}

	uploader, err := storage.NewS3Uploader(context.Background(), storage.S3Config{
		AccessKey: cfg.AwsAccessKey,
		SecretKey: cfg.AwsSecretKey,
		Region:    cfg.AwsRegion,
		Bucket:    cfg.BucketName,
	})
	if err != nil {
		log.Fatalf("s3 uploader: %v", err)
	}

	rabbit, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatalf("rabbit publisher: %v", err)
	}
	defer rabbit.Close()

	r := httpapi.NewRouter(gdb, cfg, rds, uploader, rabbit)

	addr := ":" + cfg.Port
	log.Printf("api listening on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
