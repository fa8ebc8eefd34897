// Package google synthesizes speech through the Google Cloud Text-to-Speech API.
package google

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	"photo-speech/internal/shared/resilience"
	"photo-speech/internal/speech"
)

// MaxInputBytes stays under the 5000 byte per-request input limit.
const MaxInputBytes = 4800

var noRetry = gax.WithRetry(func() gax.Retryer { return nil })

// Synthesizer is the part of the Text-to-Speech client used here.
type Synthesizer interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
}

// Client implements speech.Synthesizer.
type Client struct {
	tts     Synthesizer
	timeout time.Duration
	exec    *resilience.Executor
	close   func() error
}

// New wraps a Text-to-Speech client. A zero timeout leaves call deadlines to ctx.
func New(tts Synthesizer, timeout time.Duration, exec *resilience.Executor) *Client {
	return &Client{tts: tts, timeout: timeout, exec: exec}
}

// Dial opens a Text-to-Speech client with opts. Close releases its connection.
func Dial(ctx context.Context, timeout time.Duration, exec *resilience.Executor, opts ...option.ClientOption) (*Client, error) {
	tts, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("tts: new client: %w", err)
	}
	c := New(tts, timeout, exec)
	c.close = tts.Close
	return c, nil
}

// Close releases the underlying connection when the client was opened by Dial.
func (c *Client) Close() error {
	if c == nil || c.close == nil {
		return nil
	}
	return c.close()
}

// Synthesize returns encoded audio. Long text is synthesized in chunks and the
// resulting MP3 or Ogg streams are concatenated.
func (c *Client) Synthesize(ctx context.Context, req speech.Request) ([]byte, error) {
	req = req.WithDefaults()
	chunks := speech.SplitText(req.Text, MaxInputBytes)
	if len(chunks) == 0 {
		return nil, errors.New("tts: empty text")
	}
	voice, audioConfig, err := voiceParams(req)
	if err != nil {
		return nil, err
	}

	var audio bytes.Buffer
	for _, chunk := range chunks {
		in := &texttospeechpb.SynthesizeSpeechRequest{
			Input:       &texttospeechpb.SynthesisInput{InputSource: &texttospeechpb.SynthesisInput_Text{Text: chunk}},
			Voice:       voice,
			AudioConfig: audioConfig,
		}
		var part []byte
		err := c.exec.Execute(ctx, "tts.synthesize", func(ctx context.Context) error {
			if c.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, c.timeout)
				defer cancel()
			}
			resp, callErr := c.tts.SynthesizeSpeech(ctx, in, noRetry)
			if callErr != nil {
				return fmt.Errorf("tts: synthesize: %w", callErr)
			}
			if len(resp.GetAudioContent()) == 0 {
				return errors.New("tts: empty audio content")
			}
			part = resp.GetAudioContent()
			return nil
		}, resilience.ClassifyGRPC)
		if err != nil {
			return nil, err
		}
		audio.Write(part)
	}
	return audio.Bytes(), nil
}

func voiceParams(req speech.Request) (*texttospeechpb.VoiceSelectionParams, *texttospeechpb.AudioConfig, error) {
	gender, ok := texttospeechpb.SsmlVoiceGender_value[strings.ToUpper(req.VoiceGender)]
	if !ok {
		return nil, nil, fmt.Errorf("tts: unknown voice gender %q", req.VoiceGender)
	}
	encoding, ok := texttospeechpb.AudioEncoding_value[strings.ToUpper(req.AudioEncoding)]
	if !ok {
		return nil, nil, fmt.Errorf("tts: unknown audio encoding %q", req.AudioEncoding)
	}
	return &texttospeechpb.VoiceSelectionParams{
			LanguageCode: req.LanguageCode,
			SsmlGender:   texttospeechpb.SsmlVoiceGender(gender),
		}, &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding(encoding),
		}, nil
}

var (
	_ speech.Synthesizer = (*Client)(nil)
	_ Synthesizer        = (*texttospeech.Client)(nil)
)
