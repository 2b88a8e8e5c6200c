package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"recipe-hand/config"
	"recipe-hand/services"
	"recipe-hand/storage"
)

const backupPrefix = "backup-"

type BackupConfig struct {
	PostgresHost     string `envconfig:"POSTGRES_HOST" required:"true"`
	PostgresPort     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresUser     string `envconfig:"POSTGRES_USER" required:"true"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	PostgresDB       string `envconfig:"POSTGRES_DB" required:"true"`

	// BACKUP_S3_ENDPOINT, BACKUP_S3_BUCKET, ...
	S3 config.S3Config `envconfig:"BACKUP_S3"`

	KeepBackups  int    `envconfig:"KEEP_BACKUPS" default:"4"`
	CronSchedule string `envconfig:"BACKUP_CRON_SCHEDULE"`

	WaitForDBInterval    time.Duration `envconfig:"WAIT_FOR_DB_INTERVAL" default:"1s"`
	WaitForDBMaxAttempts int           `envconfig:"WAIT_FOR_DB_MAX_ATTEMPTS" default:"60"`
}

func loadConfig() (BackupConfig, error) {
	var cfg BackupConfig
	err := envconfig.Process("", &cfg)
	return cfg, err
}

func (c BackupConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort)
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fehler beim Erstellen des Loggers: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	cfg, err := loadConfig()
	if err != nil {
		logging.Fatal("Fehler beim Laden der Konfiguration", zap.Error(err))
	}
	if !cfg.S3.Enabled() {
		logging.Fatal("BACKUP_S3_ENDPOINT und BACKUP_S3_BUCKET müssen gesetzt sein")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := storage.NewS3Client(ctx, cfg.S3)
	if err != nil {
		logging.Fatal("Fehler beim Erstellen des S3-Clients", zap.Error(err))
	}
	bucket := storage.NewBucket(client, cfg.S3)

	if cfg.CronSchedule == "" {
		if err := runBackup(ctx, cfg, bucket, logging); err != nil {
			logging.Fatal("Backup fehlgeschlagen", zap.Error(err))
		}
		return
	}

	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.CronSchedule, func() {
		if err := runBackup(ctx, cfg, bucket, logging); err != nil {
			logging.Error("Geplantes Backup fehlgeschlagen", zap.Error(err))
		}
	})
	if err != nil {
		logging.Fatal("Ungültiger BACKUP_CRON_SCHEDULE", zap.String("schedule", cfg.CronSchedule), zap.Error(err))
	}
	scheduler.Start()
	logging.Info("Backup-Scheduler gestartet", zap.String("schedule", cfg.CronSchedule))

	<-ctx.Done()
	<-scheduler.Stop().Done()
	logging.Info("Backup-Scheduler beendet")
}

func runBackup(ctx context.Context, cfg BackupConfig, bucket *storage.Bucket, log *zap.Logger) error {
	log.Info("Starte Backup-Prozess...")

	probe := &services.PostgresProbe{DSN: cfg.DSN(), Timeout: 5 * time.Second}
	if _, err := services.NewWaitGate(probe, cfg.WaitForDBInterval, cfg.WaitForDBMaxAttempts, log).Wait(ctx); err != nil {
		return err
	}

	dumpData, err := createDump(ctx, cfg)
	if err != nil {
		return fmt.Errorf("DB-Dump: %w", err)
	}

	key := fmt.Sprintf("%s%s.sql.gz", backupPrefix, time.Now().UTC().Format("2006-01-02T15-04-05Z"))
	if _, err := bucket.Upload(ctx, key, dumpData, "application/gzip"); err != nil {
		return err
	}
	log.Info("Backup erfolgreich hochgeladen",
		zap.String("bucket", bucket.Name),
		zap.String("key", key),
		zap.Int("bytes", len(dumpData)))

	return rotateBackups(ctx, cfg.KeepBackups, bucket, log)
}

func createDump(ctx context.Context, cfg BackupConfig) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "pg_dump",
		"-h", cfg.PostgresHost,
		"-p", strconv.Itoa(cfg.PostgresPort),
		"-U", cfg.PostgresUser,
		"-d", cfg.PostgresDB,
		"-w", // Passwort wird über PGPASSWORD bereitgestellt
	)
	cmd.Env = append(os.Environ(), fmt.Sprintf("PGPASSWORD=%s", cfg.PostgresPassword))

	var buf bytes.Buffer
	if err := compressOutput(cmd, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// compressOutput startet cmd und schreibt dessen Ausgabe gzip-komprimiert
// nach dst. Der Prozess wird in jedem Fall wieder eingesammelt.
func compressOutput(cmd *exec.Cmd, dst io.Writer) error {
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	gzipWriter := gzip.NewWriter(dst)
	_, err = io.Copy(gzipWriter, stdout)
	if err == nil {
		err = gzipWriter.Close()
	}
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("compress dump: %w", err)
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}

func rotateBackups(ctx context.Context, keep int, bucket *storage.Bucket, log *zap.Logger) error {
	objects, err := bucket.List(ctx, backupPrefix)
	if err != nil {
		return err
	}

	expired := storage.Expired(objects, keep)
	if len(expired) == 0 {
		log.Info("Keine Rotation nötig", zap.Int("backups", len(objects)), zap.Int("keep", keep))
		return nil
	}

	for _, obj := range expired {
		log.Info("Lösche altes Backup", zap.String("key", obj.Key))
		if err := bucket.Delete(ctx, obj.Key); err != nil {
			log.Error("Fehler beim Löschen", zap.String("key", obj.Key), zap.Error(err))
		}
	}
	return nil
}
