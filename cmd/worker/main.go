package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"gorm.io/gorm"

	"github.com/calegrette/leaseguard/internal/analysis"
	"github.com/calegrette/leaseguard/internal/config"
	"github.com/calegrette/leaseguard/internal/db"
	"github.com/calegrette/leaseguard/internal/email"
	"github.com/calegrette/leaseguard/internal/httpapi/handlers"
	"github.com/calegrette/leaseguard/internal/incident"
	"github.com/calegrette/leaseguard/internal/models"
	"github.com/calegrette/leaseguard/internal/notify"
	"github.com/calegrette/leaseguard/internal/report"
	"github.com/calegrette/leaseguard/internal/storage"
	"github.com/calegrette/leaseguard/internal/store/redisstore"
)

type jobMsg struct {
	JobID string `json:"job_id"`
}

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

// worker holds everything one analysis job needs end to end.
type worker struct {
	gdb       *gorm.DB
	cfg       config.Config
	incidents *incident.Service
	jobs      *analysis.Repo
	analyzer  *analysis.Service
	exporter  *report.AnalysisExporter
	smtp      email.SMTPConfig
}

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	incidents := incident.NewService(incident.NewRepo(gdb), rds)
	jobRepo := analysis.NewRepo(gdb)

	reg := handlers.NewRegistry(cfg)
	provider, err := reg.Get(context.Background(), cfg.AIProvider, handlers.DefaultModel(cfg))
	if err != nil {
		log.Fatalf("ai provider: %v", err)
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

	gen := report.NewGenerator(cfg.BrandName, report.NewHTTPImageFetcher(cfg.ImageFetchTimeout))

	w := &worker{
		gdb:       gdb,
		cfg:       cfg,
		incidents: incidents,
		jobs:      jobRepo,
		analyzer:  analysis.NewService(provider),
		exporter:  report.NewAnalysisExporter(gen, uploader, incidents, notify.LogNotifier{}),
		smtp: email.SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.SMTPFrom,
		},
	}

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	// args must match the publisher's declaration
	_, err = ch.QueueDeclare(cfg.RabbitQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.RabbitQueue + ".dlq",
	})
	if err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	concurrency := workerConcurrency()

	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("worker started, queue=%s concurrency=%d", cfg.RabbitQueue, concurrency)

	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var m jobMsg
				if err := json.Unmarshal(d.Body, &m); err != nil || m.JobID == "" {
					log.Printf("worker=%d bad message: %v", workerID, err)
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := w.handleJob(ctx, m.JobID); err != nil {
					log.Printf("worker=%d job %s failed cost=%s err=%v", workerID, m.JobID, time.Since(start), err)
					_ = d.Nack(false, false)
					continue
				}

				if err := d.Ack(false); err != nil {
					log.Printf("worker=%d ack failed job=%s err=%v", workerID, m.JobID, err)
				}
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			log.Printf("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}

func (w *worker) handleJob(ctx context.Context, jobID string) error {
	jobStart := time.Now()

	_ = w.jobs.UpdateJobStatusRunning(ctx, jobID)

	j, err := w.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return err
	}

	inc, err := w.incidents.GetOwned(ctx, j.UserID, j.IncidentID)
	if err != nil {
		_ = w.jobs.MarkJobFailed(ctx, jobID, "incident not found")
		return err
	}
	logs, err := w.incidents.Logs(ctx, inc.ID)
	if err != nil {
		_ = w.jobs.MarkJobFailed(ctx, jobID, err.Error())
		return err
	}

	res, err := w.analyzer.Analyze(ctx, inc, logs)
	if err != nil {
		_ = w.jobs.MarkJobFailed(ctx, jobID, err.Error())
		return err
	}

	resultLog, err := w.exporter.Export(ctx, inc, res)
	if err != nil {
		_ = w.jobs.MarkJobFailed(ctx, jobID, err.Error())
		return err
	}

	if err := w.jobs.MarkJobSucceeded(ctx, jobID, resultLog.ID); err != nil {
		return err
	}

	w.emailResult(ctx, j.UserID, inc)

	total := time.Since(jobStart)
	if total > 2*time.Second {
		log.Printf("job_timing job=%s incident=%d total=%s", jobID, inc.ID, total)
	}

	return nil
}

// emailResult is best effort: a mail failure never fails the job.
func (w *worker) emailResult(ctx context.Context, userID uint64, inc *incident.Incident) {
	if w.smtp.Host == "" {
		return
	}
	var u models.User
	if err := w.gdb.WithContext(ctx).First(&u, userID).Error; err != nil {
		log.Printf("result email skipped, user lookup failed user=%d err=%v", userID, err)
		return
	}
	subject := fmt.Sprintf("[%s] Case analysis ready: %s", w.cfg.BrandName, inc.Title)
	body := fmt.Sprintf("Your AI case analysis for %q is ready. Open the incident to view the report.", inc.Title)
	if err := email.SendText(w.smtp, u.Email, subject, body); err != nil {
		log.Printf("result email failed user=%d err=%v", userID, err)
	}
}
