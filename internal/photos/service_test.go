package photos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"photo-speech/internal/queue"
	"photo-speech/internal/records"
	"photo-speech/internal/shared/telemetry"
	"photo-speech/internal/speech"
)

func TestProcessStoresImageAudioAndRecord(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	rec, err := f.svc.Process(ctx, Upload{FileName: "cat.jpg", ContentType: "image/jpeg", Data: photo("HELLO")})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if rec.Key != "cat.jpg" || rec.BlobName != "cat.jpg" {
		t.Fatalf("unexpected key: %+v", rec)
	}
	if rec.ExtractedText != "HELLO" {
		t.Fatalf("expected extracted text HELLO, got %q", rec.ExtractedText)
	}
	if rec.ImagePublicURL != "https://storage.test/photos/cat.jpg" {
		t.Fatalf("unexpected image url: %s", rec.ImagePublicURL)
	}
	if rec.AudioObjectName != "audio/cat-id1.mp3" || rec.GeneratedAudioURL != "https://storage.test/photos/audio/cat-id1.mp3" {
		t.Fatalf("unexpected audio: %s %s", rec.AudioObjectName, rec.GeneratedAudioURL)
	}
	if f.store.types["audio/cat-id1.mp3"] != "audio/mpeg" || f.store.types["cat.jpg"] != "image/png" {
		t.Fatalf("unexpected content types: %v", f.store.types)
	}

	req := f.speech.requests[0]
	if req.Text != "HELLO" || req.LanguageCode != "en-US" || req.VoiceGender != "NEUTRAL" || req.AudioEncoding != speech.EncodingMP3 {
		t.Fatalf("unexpected synthesis request: %+v", req)
	}

	stored, err := f.repo.Get(ctx, "cat.jpg")
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if stored.GeneratedAudioURL != rec.GeneratedAudioURL || stored.ExtractedText != "HELLO" {
		t.Fatalf("stored record mismatch: %+v", stored)
	}
}

func TestProcessSameNameTwiceUsesDistinctAudio(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.Process(ctx, Upload{FileName: "note.png", ContentType: "image/png", Data: photo("first text")})
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := f.svc.Process(ctx, Upload{FileName: "note.png", ContentType: "image/png", Data: photo("second text")})
	if err != nil {
		t.Fatalf("second: %v", err)
	}

	if first.AudioObjectName == second.AudioObjectName {
		t.Fatalf("expected distinct audio objects, both %s", first.AudioObjectName)
	}
	recs, err := f.repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected one record per file name, got %d", len(recs))
	}
	if recs[0].AudioObjectName != second.AudioObjectName || recs[0].ExtractedText != "second text" {
		t.Fatalf("expected last write to win, got %+v", recs[0])
	}
	if !f.store.has(first.AudioObjectName) || !f.store.has(second.AudioObjectName) {
		t.Fatalf("expected both audio objects to exist, got %v", f.store.names())
	}
}

func TestProcessConcurrentUploadsKeepOwnAudio(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Process(ctx, Upload{
				FileName:    fmt.Sprintf("photo-%d.jpg", i),
				ContentType: "image/jpeg",
				Data:        photo(fmt.Sprintf("text %d", i)),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("process: %v", err)
		}
	}

	recs, err := f.repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != n {
		t.Fatalf("expected %d records, got %d", n, len(recs))
	}
	seen := make(map[string]bool)
	for _, rec := range recs {
		if !strings.HasPrefix(rec.AudioObjectName, "audio/"+strings.TrimSuffix(rec.Key, ".jpg")+"-") {
			t.Fatalf("record %s references foreign audio %s", rec.Key, rec.AudioObjectName)
		}
		if seen[rec.AudioObjectName] {
			t.Fatalf("audio object shared: %s", rec.AudioObjectName)
		}
		seen[rec.AudioObjectName] = true
		if got := string(f.store.objects[rec.AudioObjectName]); got != "ID3:"+rec.ExtractedText {
			t.Fatalf("audio for %s holds %q", rec.Key, got)
		}
	}
}

func TestProcessEmptyTextSkipsSpeech(t *testing.T) {
	f := newFixture()
	f.ocr.blank = true

	rec, err := f.svc.Process(context.Background(), Upload{FileName: "blank.jpg", ContentType: "image/jpeg", Data: photo("pixels")})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if rec.ExtractedText != "" || rec.GeneratedAudioURL != "" || rec.AudioObjectName != "" {
		t.Fatalf("expected empty text and audio, got %+v", rec)
	}
	if f.speech.count() != 0 {
		t.Fatalf("expected no synthesis calls, got %d", f.speech.count())
	}
	if _, err := f.repo.Get(context.Background(), "blank.jpg"); err != nil {
		t.Fatalf("expected record to be written: %v", err)
	}
}

func TestProcessStageFailures(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(f *fixture)
		wantStage string
		wantAudio bool
	}{
		{
			name:      "image store",
			setup:     func(f *fixture) { f.store.failPut["cat"] = errBoom },
			wantStage: "store_image",
		},
		{
			name:      "ocr",
			setup:     func(f *fixture) { f.ocr.err = errBoom },
			wantStage: "ocr",
		},
		{
			name:      "speech",
			setup:     func(f *fixture) { f.speech.err = errBoom },
			wantStage: "speech",
		},
		{
			name:      "audio store",
			setup:     func(f *fixture) { f.store.failPut["audio/"] = errBoom },
			wantStage: "store_audio",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setup(f)

			_, err := f.svc.Process(context.Background(), Upload{FileName: "cat.jpg", ContentType: "image/jpeg", Data: photo("HELLO")})
			if !errors.Is(err, errBoom) {
				t.Fatalf("expected wrapped stage error, got %v", err)
			}
			if !strings.HasPrefix(err.Error(), tt.wantStage+":") {
				t.Fatalf("expected stage prefix %q, got %v", tt.wantStage, err)
			}
			if _, err := f.repo.Get(context.Background(), "cat.jpg"); !errors.Is(err, records.ErrNotFound) {
				t.Fatalf("expected no record after failure, got %v", err)
			}
		})
	}
}

func TestProcessUpsertFailureDiscardsAudio(t *testing.T) {
	f := newFixture()
	f.svc.Records = failingRepo{Repo: f.repo, err: errBoom}

	_, err := f.svc.Process(context.Background(), Upload{FileName: "cat.jpg", ContentType: "image/jpeg", Data: photo("HELLO")})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected upsert error, got %v", err)
	}
	if f.store.has("audio/cat-id1.mp3") {
		t.Fatal("expected audio object to be deleted")
	}
	if !f.store.has("cat.jpg") {
		t.Fatal("expected image object to be kept")
	}
	if len(f.store.deleted) != 1 || f.store.deleted[0] != "audio/cat-id1.mp3" {
		t.Fatalf("unexpected deletions: %v", f.store.deleted)
	}
}

func TestProcessPublishesUpsertEvent(t *testing.T) {
	f := newFixture()
	events := &stubEvents{}
	f.svc.Events = events

	if _, err := f.svc.Process(context.Background(), Upload{FileName: "cat.jpg", ContentType: "image/jpeg", Data: photo("HELLO")}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(events.sent) != 1 {
		t.Fatalf("expected one event, got %d", len(events.sent))
	}
	msg := events.sent[0]
	if msg.Event != queue.EventRecordUpserted || msg.Key != "cat.jpg" || msg.GeneratedAudioURL == "" {
		t.Fatalf("unexpected event: %+v", msg)
	}
}

func TestProcessEventFailureKeepsRecord(t *testing.T) {
	f := newFixture()
	f.svc.Events = &stubEvents{err: errBoom}

	if _, err := f.svc.Process(context.Background(), Upload{FileName: "cat.jpg", ContentType: "image/jpeg", Data: photo("HELLO")}); err != nil {
		t.Fatalf("expected publish failure to be ignored, got %v", err)
	}
	if _, err := f.repo.Get(context.Background(), "cat.jpg"); err != nil {
		t.Fatalf("expected record to be written: %v", err)
	}
}

func TestProcessNoEventOnFailure(t *testing.T) {
	f := newFixture()
	events := &stubEvents{}
	f.svc.Events = events
	f.svc.Records = failingRepo{Repo: f.repo, err: errBoom}

	if _, err := f.svc.Process(context.Background(), Upload{FileName: "cat.jpg", ContentType: "image/jpeg", Data: photo("HELLO")}); err == nil {
		t.Fatal("expected upsert failure")
	}
	if len(events.sent) != 0 {
		t.Fatalf("expected no events, got %d", len(events.sent))
	}
}

func TestProcessValidation(t *testing.T) {
	tests := []struct {
		name string
		up   Upload
		want error
	}{
		{name: "empty", up: Upload{FileName: "cat.jpg", ContentType: "image/jpeg"}, want: ErrEmptyFile},
		{name: "too large", up: Upload{FileName: "cat.jpg", ContentType: "image/jpeg", Data: make([]byte, 1<<20+1)}, want: ErrFileTooLarge},
		{name: "traversal", up: Upload{FileName: "../cat.jpg", ContentType: "image/jpeg", Data: []byte("x")}, want: ErrInvalidName},
		{name: "blank name", up: Upload{FileName: "  ", ContentType: "image/jpeg", Data: []byte("x")}, want: ErrInvalidName},
		{name: "plain text", up: Upload{FileName: "notes.txt", ContentType: "text/plain", Data: []byte("x")}, want: ErrUnsupportedMedia},
		{name: "sniffed text", up: Upload{FileName: "notes.bin", ContentType: "application/octet-stream", Data: []byte("just text")}, want: ErrUnsupportedMedia},
		{name: "html declared as image", up: Upload{FileName: "evil.html", ContentType: "image/png", Data: []byte("<script>alert(1)</script>")}, want: ErrUnsupportedMedia},
		{name: "dot name", up: Upload{FileName: ".", ContentType: "image/png", Data: photo("x")}, want: ErrInvalidName},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if _, err := f.svc.Process(context.Background(), tt.up); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if f.ocr.calls.Load() != 0 || len(f.store.names()) != 0 {
				t.Fatal("expected no side effects for rejected upload")
			}
		})
	}
}

func TestDetectContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{name: "png", data: pngHeader, want: "image/png"},
		{name: "jpeg", data: []byte("\xff\xd8\xff\xe0"), want: "image/jpeg"},
		{name: "pdf", data: []byte("%PDF-1.4\n"), want: "application/pdf"},
		{name: "html", data: []byte("<html><script>x</script>"), want: "text/html"},
	}
	for _, tt := range tests {
		if got := DetectContentType(tt.data); got != tt.want {
			t.Fatalf("%s: DetectContentType = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestProcessStoresSniffedType(t *testing.T) {
	f := newFixture()

	rec, err := f.svc.Process(context.Background(), Upload{FileName: "note.html", ContentType: "text/html", Data: photo("HELLO")})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if rec.ContentType != "image/png" || f.store.types["note.html"] != "image/png" {
		t.Fatalf("expected sniffed image/png, got record %q store %q", rec.ContentType, f.store.types["note.html"])
	}
}

func TestProcessLogsRequestID(t *testing.T) {
	var buf bytes.Buffer
	telemetry.Configure(&buf, "info")
	defer telemetry.Configure(nil, "info")

	f := newFixture()
	ctx := telemetry.WithRequestID(context.Background(), "req-7")
	if _, err := f.svc.Process(ctx, Upload{FileName: "cat.jpg", ContentType: "image/png", Data: photo("HELLO")}); err != nil {
		t.Fatalf("process: %v", err)
	}
	for _, want := range []string{`"msg":"upload.start"`, `"msg":"upload.complete"`, `"request_id":"req-7"`} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("expected log output to contain %s, got %s", want, buf.String())
		}
	}
}
