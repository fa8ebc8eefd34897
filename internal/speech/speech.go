// Package speech synthesizes audio from text through external TTS services.
package speech

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	EncodingMP3     = "MP3"
	EncodingOggOpus = "OGG_OPUS"
)

// Request describes one synthesis call. Empty voice fields fall back to en-US, NEUTRAL, MP3.
type Request struct {
	Text          string
	LanguageCode  string
	VoiceGender   string
	AudioEncoding string
}

// Synthesizer turns text into encoded audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) ([]byte, error)
}

// SynthesizerFunc adapts a function to Synthesizer.
type SynthesizerFunc func(ctx context.Context, req Request) ([]byte, error)

func (f SynthesizerFunc) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}

// WithDefaults fills empty voice fields.
func (r Request) WithDefaults() Request {
	if r.LanguageCode == "" {
		r.LanguageCode = "en-US"
	}
	if r.VoiceGender == "" {
		r.VoiceGender = "NEUTRAL"
	}
	if r.AudioEncoding == "" {
		r.AudioEncoding = EncodingMP3
	}
	return r
}

// ContentType returns the media type of audio produced with encoding.
func ContentType(encoding string) string {
	if strings.EqualFold(encoding, EncodingOggOpus) {
		return "audio/ogg"
	}
	return "audio/mpeg"
}

// Extension returns the file extension for audio produced with encoding.
func Extension(encoding string) string {
	if strings.EqualFold(encoding, EncodingOggOpus) {
		return "ogg"
	}
	return "mp3"
}

// SplitText breaks text into chunks of at most maxBytes, preferring sentence ends, then
// whitespace. Runes are never split.
func SplitText(text string, maxBytes int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxBytes <= 0 || len(text) <= maxBytes {
		return []string{text}
	}

	var chunks []string
	for len(text) > maxBytes {
		cut := splitPoint(text, maxBytes)
		chunk := strings.TrimSpace(text[:cut])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

func splitPoint(text string, maxBytes int) int {
	limit := maxBytes
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	window := text[:limit]

	if i := strings.LastIndexAny(window, ".!?\n"); i > limit/2 {
		return i + 1
	}
	if i := strings.LastIndexFunc(window, unicode.IsSpace); i > 0 {
		_, size := utf8.DecodeRuneInString(window[i:])
		return i + size
	}
	if limit == 0 {
		_, size := utf8.DecodeRuneInString(text)
		return size
	}
	return limit
}
