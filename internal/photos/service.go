package photos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"photo-speech/internal/ocr"
	"photo-speech/internal/queue"
	"photo-speech/internal/records"
	"photo-speech/internal/shared/metrics"
	"photo-speech/internal/shared/storage/object"
	"photo-speech/internal/shared/telemetry"
	"photo-speech/internal/shared/util"
	"photo-speech/internal/speech"
)

const (
	stageStoreImage = "store_image"
	stageOCR        = "ocr"
	stageSpeech     = "speech"
	stageStoreAudio = "store_audio"
	stageRecord     = "record"

	cleanupTimeout = 10 * time.Second
)

// Upload is a received file before any processing.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Service runs the upload pipeline: store image, extract text, synthesize speech,
// store audio, upsert the Record. Steps run sequentially and stop at the first failure.
type Service struct {
	Store    object.ObjectStore
	OCR      ocr.Extractor
	Speech   speech.Synthesizer
	Records  records.Repo
	Voice    speech.Request
	MaxBytes int64
	// Events is notified after each successful upsert. Optional.
	Events queue.Client

	NewID func() string
	Now   func() time.Time
}

// NewService constructs a Service with uuid audio names and the wall clock.
func NewService(store object.ObjectStore, extractor ocr.Extractor, synth speech.Synthesizer, repo records.Repo, voice speech.Request, maxBytes int64) *Service {
	return &Service{
		Store:    store,
		OCR:      extractor,
		Speech:   synth,
		Records:  repo,
		Voice:    voice.WithDefaults(),
		MaxBytes: maxBytes,
		NewID:    uuid.NewString,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// Process runs the pipeline for one upload and returns the written Record.
func (s *Service) Process(ctx context.Context, up Upload) (records.Record, error) {
	metrics.IncUploadStarted()

	name, contentType, err := s.validate(up)
	if err != nil {
		metrics.IncUploadFailed("validate")
		return records.Record{}, err
	}
	telemetry.Info("upload.start", map[string]any{
		"request_id":    telemetry.RequestIDFrom(ctx),
		"blob_name":     name,
		"content_type":  contentType,
		"declared_type": up.ContentType,
		"size_bytes":    len(up.Data),
	})

	var image object.Object
	if err := s.stage(ctx, stageStoreImage, name, func() error {
		var putErr error
		image, putErr = s.Store.Put(ctx, name, contentType, bytes.NewReader(up.Data))
		return putErr
	}); err != nil {
		return records.Record{}, err
	}

	var text string
	if err := s.stage(ctx, stageOCR, name, func() error {
		var ocrErr error
		text, ocrErr = s.OCR.ExtractText(ctx, ocr.Image{Content: up.Data, ContentType: contentType, URI: image.Location})
		return ocrErr
	}); err != nil {
		return records.Record{}, err
	}
	metrics.ObserveExtractedChars(len(text))

	rec := records.Record{
		Key:            name,
		BlobName:       name,
		ImagePublicURL: image.PublicURL,
		ExtractedText:  text,
		ContentType:    contentType,
		SizeBytes:      image.SizeBytes,
	}

	if strings.TrimSpace(text) == "" {
		telemetry.Info("upload.no_text", map[string]any{"blob_name": name})
	} else {
		audio, err := s.synthesizeAndStore(ctx, name, text)
		if err != nil {
			return records.Record{}, err
		}
		rec.GeneratedAudioURL = audio.PublicURL
		rec.AudioObjectName = audio.Name
	}

	if err := s.stage(ctx, stageRecord, name, func() error {
		return s.Records.Upsert(ctx, rec)
	}); err != nil {
		s.discardAudio(ctx, rec.AudioObjectName)
		return records.Record{}, err
	}

	rec.UpdatedAt = s.Now()
	s.notify(ctx, rec)
	metrics.IncUploadCompleted()
	telemetry.Info("upload.complete", map[string]any{
		"request_id":    telemetry.RequestIDFrom(ctx),
		"blob_name":     name,
		"audio_object":  rec.AudioObjectName,
		"text_chars":    len(text),
		"has_audio_url": rec.GeneratedAudioURL != "",
	})
	return rec, nil
}

// notify publishes the upsert event. The Record is already written, so failures are only logged.
func (s *Service) notify(ctx context.Context, rec records.Record) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Send(ctx, queue.RecordUpserted(rec, rec.UpdatedAt)); err != nil {
		telemetry.Warn("upload.notify_failed", map[string]any{"blob_name": rec.BlobName, "error": err.Error()})
	}
}

func (s *Service) synthesizeAndStore(ctx context.Context, name, text string) (object.Object, error) {
	req := s.Voice
	req.Text = text

	var audio []byte
	if err := s.stage(ctx, stageSpeech, name, func() error {
		var synthErr error
		audio, synthErr = s.Speech.Synthesize(ctx, req)
		return synthErr
	}); err != nil {
		return object.Object{}, err
	}

	audioName := util.AudioObjectName(name, s.NewID(), speech.Extension(req.AudioEncoding))
	var stored object.Object
	if err := s.stage(ctx, stageStoreAudio, name, func() error {
		var putErr error
		stored, putErr = s.Store.Put(ctx, audioName, speech.ContentType(req.AudioEncoding), bytes.NewReader(audio))
		return putErr
	}); err != nil {
		return object.Object{}, err
	}
	return stored, nil
}

// discardAudio removes this request's audio object after a failed upsert. The image
// is kept since its name may belong to an earlier successful upload.
func (s *Service) discardAudio(ctx context.Context, audioName string) {
	if audioName == "" {
		return
	}
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := s.Store.Delete(cleanupCtx, audioName); err != nil {
		telemetry.Warn("upload.audio_cleanup_failed", map[string]any{"audio_object": audioName, "error": err.Error()})
		return
	}
	telemetry.Info("upload.audio_discarded", map[string]any{"audio_object": audioName})
}

func (s *Service) stage(ctx context.Context, stage, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	metrics.ObserveStage(stage, elapsed)
	if err != nil {
		metrics.IncUploadFailed(stage)
		telemetry.Error("upload.stage_failed", map[string]any{
			"request_id":  telemetry.RequestIDFrom(ctx),
			"stage":       stage,
			"blob_name":   name,
			"duration_ms": elapsed.Milliseconds(),
			"error":       err.Error(),
		})
		return fmt.Errorf("%s: %w", stage, err)
	}
	telemetry.Debug("upload.stage_complete", map[string]any{
		"stage":       stage,
		"blob_name":   name,
		"duration_ms": elapsed.Milliseconds(),
	})
	return nil
}

func (s *Service) validate(up Upload) (string, string, error) {
	if len(up.Data) == 0 {
		return "", "", ErrEmptyFile
	}
	if s.MaxBytes > 0 && int64(len(up.Data)) > s.MaxBytes {
		return "", "", ErrFileTooLarge
	}
	name, err := util.SanitizeFileName(up.FileName)
	if err != nil {
		if errors.Is(err, util.ErrInvalidFileName) {
			return "", "", ErrInvalidName
		}
		return "", "", err
	}
	contentType := DetectContentType(up.Data)
	if !Supported(contentType) {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedMedia, contentType)
	}
	return name, contentType, nil
}

// DetectContentType sniffs the content type from the bytes. The declared type and the
// file extension are ignored.
func DetectContentType(data []byte) string {
	return ocr.NormalizeContentType(http.DetectContentType(data))
}

// Supported reports whether the pipeline accepts the content type.
func Supported(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") || contentType == ocr.MimePDF
}
