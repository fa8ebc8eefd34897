package photos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"photo-speech/internal/ocr"
	"photo-speech/internal/queue"
	"photo-speech/internal/records"
	"photo-speech/internal/shared/storage/object"
	"photo-speech/internal/speech"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	deleted []string
	failPut map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
		failPut: make(map[string]error),
	}
}

func (m *memStore) Put(ctx context.Context, name, contentType string, r io.Reader) (object.Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return object.Object{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for prefix, err := range m.failPut {
		if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
			return object.Object{}, err
		}
	}
	m.objects[name] = data
	m.types[name] = contentType
	return object.Object{
		Name:        name,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		PublicURL:   "https://storage.test/photos/" + name,
		Location:    "mem://photos/" + name,
	}, nil
}

func (m *memStore) Open(ctx context.Context, name string) (*object.Reader, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[name]
	if !ok {
		return nil, object.ErrNotFound
	}
	return object.NewReader(io.NopCloser(bytes.NewReader(data)), m.types[name]), nil
}

func (m *memStore) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, name)
	m.deleted = append(m.deleted, name)
	return nil
}

func (m *memStore) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for name := range m.objects {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (m *memStore) has(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[name]
	return ok
}

// stubOCR returns the uploaded bytes after the image header as text unless text, blank or err is set.
type stubOCR struct {
	text  string
	blank bool
	err   error
	calls atomic.Int32
}

func (s *stubOCR) ExtractText(ctx context.Context, img ocr.Image) (string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", s.err
	}
	if s.blank {
		return "", nil
	}
	if s.text != "" {
		return s.text, nil
	}
	return strings.TrimPrefix(string(img.Content), string(pngHeader)), nil
}

type stubSpeech struct {
	mu       sync.Mutex
	requests []speech.Request
	err      error
}

func (s *stubSpeech) Synthesize(ctx context.Context, req speech.Request) ([]byte, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return []byte("ID3:" + req.Text), nil
}

func (s *stubSpeech) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type stubEvents struct {
	mu   sync.Mutex
	sent []queue.Message
	err  error
}

func (s *stubEvents) Send(ctx context.Context, msg queue.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.err
}

type failingRepo struct {
	records.Repo
	err error
}

func (f failingRepo) Upsert(ctx context.Context, rec records.Record) error { return f.err }

type fixture struct {
	svc    *Service
	store  *memStore
	ocr    *stubOCR
	speech *stubSpeech
	repo   *records.MemoryRepo
}

func newFixture() *fixture {
	store := newMemStore()
	ocrStub := &stubOCR{}
	speechStub := &stubSpeech{}
	repo := records.NewMemoryRepo()
	svc := NewService(store, ocrStub, speechStub, repo, speech.Request{}, 1<<20)
	var n atomic.Int64
	svc.NewID = func() string { return fmt.Sprintf("id%d", n.Add(1)) }
	return &fixture{svc: svc, store: store, ocr: ocrStub, speech: speechStub, repo: repo}
}

var errBoom = errors.New("boom")

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n")

// photo returns PNG-sniffable bytes carrying text for stubOCR.
func photo(text string) []byte {
	return append(append([]byte{}, pngHeader...), text...)
}
