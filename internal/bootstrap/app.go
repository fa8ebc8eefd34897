package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"

	"photo-speech/internal/ocr"
	"photo-speech/internal/ocr/vision"
	"photo-speech/internal/photos"
	"photo-speech/internal/queue"
	"photo-speech/internal/records"
	"photo-speech/internal/services/health"
	"photo-speech/internal/shared/config"
	"photo-speech/internal/shared/gcp"
	"photo-speech/internal/shared/resilience"
	"photo-speech/internal/shared/server"
	"photo-speech/internal/shared/storage/db"
	"photo-speech/internal/shared/storage/object"
	localstore "photo-speech/internal/shared/storage/object/local"
	"photo-speech/internal/shared/storage/object/natsobj"
	s3store "photo-speech/internal/shared/storage/object/s3"
	"photo-speech/internal/shared/telemetry"
	"photo-speech/internal/speech"
	googletts "photo-speech/internal/speech/google"
	"photo-speech/internal/speech/elevenlabs"
)

// App holds the wired dependency graph.
type App struct {
	Config        config.Config
	Router        *gin.Engine
	Store         object.ObjectStore
	Records       records.Repo
	PhotosService *photos.Service
	Health        *health.Service

	closers []func() error
}

// Close releases connections opened by Build in reverse order.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Build wires stores, upstream clients, services and the router from cfg.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if strings.TrimSpace(cfg.RecordStoreType) == "" {
		cfg.RecordStoreType = "memory"
	}

	app := &App{
		Config: cfg,
		Health: health.NewService(map[string]string{
			"object_store": cfg.ObjectStoreType,
			"record_store": cfg.RecordStoreType,
			"ocr":          cfg.OCRProvider,
			"tts":          cfg.TTSProvider,
		}),
	}

	store, err := buildStore(ctx, app)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Store = store

	repo, err := buildRecords(ctx, app)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Records = repo
	if p, ok := repo.(records.Pinger); ok {
		app.Health.AddCheck("record_store", p)
	}

	exec := resilience.NewExecutor(resilience.FromAppConfig(cfg))
	extractor, err := buildOCR(ctx, app, exec)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	synth, err := buildSpeech(ctx, app, exec)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	voice := speech.Request{
		LanguageCode:  cfg.TTSLanguage,
		VoiceGender:   cfg.TTSVoiceGender,
		AudioEncoding: cfg.TTSAudioEncoding,
	}.WithDefaults()
	app.PhotosService = photos.NewService(store, extractor, synth, repo, voice, cfg.MaxUploadBytes)
	if cfg.SQSQueueURL != "" {
		events, err := queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		app.PhotosService.Events = events
	}

	deps := server.Deps{
		Config:  cfg,
		Photos:  photos.NewHandler(app.PhotosService),
		Records: records.NewHandler(records.NewService(repo)),
		Health:  app.Health,
	}
	if cfg.ObjectStoreType != "s3" {
		deps.Media = store
	}
	app.Router = server.NewRouter(deps)

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"object_store": cfg.ObjectStoreType,
		"record_store": cfg.RecordStoreType,
		"tts":          cfg.TTSProvider,
		"bucket":       cfg.Bucket,
		"events":       cfg.SQSQueueURL != "",
	})
	return app, nil
}

func buildStore(ctx context.Context, app *App) (object.ObjectStore, error) {
	cfg := app.Config
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, s3store.Options{
			Region:          cfg.AWSRegion,
			Bucket:          cfg.Bucket,
			Prefix:          cfg.S3Prefix,
			Endpoint:        cfg.S3Endpoint,
			PublicACL:       cfg.S3PublicACL,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
		})
	case "nats":
		conn, err := nats.Connect(cfg.NATSURL, nats.Name("photo-speech"))
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		app.closers = append(app.closers, func() error {
			conn.Close()
			return nil
		})
		js, err := conn.JetStream()
		if err != nil {
			return nil, fmt.Errorf("jetstream: %w", err)
		}
		app.Health.AddCheck("nats", natsPinger{conn: conn})
		return natsobj.New(js, cfg.Bucket, cfg.PublicBaseURL)
	default:
		return localstore.New(cfg.LocalStoreDir, cfg.Bucket, cfg.PublicBaseURL), nil
	}
}

func buildRecords(ctx context.Context, app *App) (records.Repo, error) {
	cfg := app.Config
	switch cfg.RecordStoreType {
	case "postgres":
		sqlDB, err := db.GetSingleton(ctx, cfg.DatabaseURL, db.RuntimeOptions())
		if err != nil {
			return nil, err
		}
		if !db.IsLambdaRuntime() {
			app.closers = append(app.closers, sqlDB.Close)
		}
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, err
		}
		return &records.PGRepo{DB: sqlDB}, nil
	case "dynamodb":
		opts := []func(*awsconfig.LoadOptions) error{}
		if strings.TrimSpace(cfg.AWSRegion) != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return records.NewDynamoRepo(dynamodb.NewFromConfig(awsCfg), cfg.DynamoTable), nil
	default:
		telemetry.Warn("bootstrap.memory_records", map[string]any{"env": cfg.Env})
		return records.NewMemoryRepo(), nil
	}
}

func buildOCR(ctx context.Context, app *App, exec *resilience.Executor) (ocr.Extractor, error) {
	cfg := app.Config
	opts, err := gcp.ClientOptions(ctx, gcp.Auth{APIKey: cfg.GoogleAPIKey, Endpoint: cfg.VisionEndpoint})
	if err != nil {
		return nil, err
	}
	images, err := vision.Dial(ctx, cfg.UpstreamTimeout, exec, opts...)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, images.Close)
	return ocr.Router{
		Images: images,
		PDF:    ocr.PDFExtractor{},
	}, nil
}

func buildSpeech(ctx context.Context, app *App, exec *resilience.Executor) (speech.Synthesizer, error) {
	cfg := app.Config
	if cfg.TTSProvider == "elevenlabs" {
		return elevenlabs.New(&http.Client{Timeout: cfg.UpstreamTimeout}, elevenlabs.Config{
			APIURL:  cfg.ElevenLabsAPIURL,
			APIKey:  cfg.ElevenLabsAPIKey,
			VoiceID: cfg.ElevenLabsVoiceID,
			ModelID: cfg.ElevenLabsModelID,
		}, exec), nil
	}
	opts, err := gcp.ClientOptions(ctx, gcp.Auth{APIKey: cfg.GoogleAPIKey, Endpoint: cfg.TTSEndpoint})
	if err != nil {
		return nil, err
	}
	tts, err := googletts.Dial(ctx, cfg.UpstreamTimeout, exec, opts...)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, tts.Close)
	return tts, nil
}

type natsPinger struct {
	conn *nats.Conn
}

func (p natsPinger) Ping(ctx context.Context) error {
	if !p.conn.IsConnected() {
		return fmt.Errorf("nats %s", p.conn.Status())
	}
	return p.conn.FlushWithContext(ctx)
}
