package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	PublicBaseURL   string
	CORSAllowOrigin []string

	Bucket          string
	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Endpoint      string
	S3Prefix        string
	S3PublicACL     bool
	S3AccessKey     string
	S3SecretKey     string
	NATSURL         string
	SQSQueueURL     string

	RecordStoreType string
	DatabaseURL     string
	DynamoTable     string

	GoogleAPIKey     string
	OCRProvider      string
	VisionEndpoint   string
	TTSProvider      string
	TTSEndpoint      string
	TTSLanguage      string
	TTSVoiceGender   string
	TTSAudioEncoding string

	ElevenLabsAPIURL  string
	ElevenLabsAPIKey  string
	ElevenLabsVoiceID string
	ElevenLabsModelID string

	MaxUploadBytes   int64
	UploadRatePerSec float64
	UploadRateBurst  int
	UpstreamTimeout  time.Duration

	RetryMaxAttempts    int
	BreakerEnabled      bool
	BreakerMinRequests  int
	BreakerFailureRatio float64
	BreakerOpenTimeout  time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// Values from the TOML file named by CONFIG_FILE act as defaults beneath the environment.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	src := source{file: loadConfigFile(os.Getenv("CONFIG_FILE"))}

	return Config{
		Port:            src.get("PORT", "8080"),
		Env:             normalizeEnv(src.get("ENV", "dev")),
		LogLevel:        src.get("LOG_LEVEL", "info"),
		PublicBaseURL:   strings.TrimRight(src.get("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		CORSAllowOrigin: splitAndTrim(src.get("CORS_ALLOW_ORIGINS", "")),

		Bucket:          strings.TrimSpace(src.get("CLOUD_STORAGE_BUCKET", "")),
		ObjectStoreType: normalizeChoice(src.get("OBJECT_STORE", "local"), "local", "s3", "nats"),
		LocalStoreDir:   src.get("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       src.get("AWS_REGION", ""),
		S3Endpoint:      src.get("S3_ENDPOINT", ""),
		S3Prefix:        src.get("S3_PREFIX", ""),
		S3PublicACL:     src.getBool("S3_PUBLIC_ACL", true),
		S3AccessKey:     src.get("S3_ACCESS_KEY_ID", ""),
		S3SecretKey:     src.get("S3_SECRET_ACCESS_KEY", ""),
		NATSURL:         src.get("NATS_URL", "nats://localhost:4222"),
		SQSQueueURL:     strings.TrimSpace(src.get("SQS_QUEUE_URL", "")),

		RecordStoreType: normalizeChoice(src.get("RECORD_STORE", "memory"), "memory", "postgres", "dynamodb"),
		DatabaseURL:     src.get("DATABASE_URL", ""),
		DynamoTable:     src.get("DYNAMO_TABLE", ""),

		GoogleAPIKey:     src.get("GOOGLE_API_KEY", ""),
		OCRProvider:      normalizeChoice(src.get("OCR_PROVIDER", "vision"), "vision"),
		VisionEndpoint:   src.get("VISION_ENDPOINT", ""),
		TTSProvider:      normalizeChoice(src.get("TTS_PROVIDER", "google"), "google", "elevenlabs"),
		TTSEndpoint:      src.get("TTS_ENDPOINT", ""),
		TTSLanguage:      src.get("TTS_LANGUAGE", "en-US"),
		TTSVoiceGender:   strings.ToUpper(src.get("TTS_VOICE_GENDER", "NEUTRAL")),
		TTSAudioEncoding: strings.ToUpper(src.get("TTS_AUDIO_ENCODING", "MP3")),

		ElevenLabsAPIURL:  strings.TrimRight(src.get("ELEVEN_LABS_API_URL", "https://api.elevenlabs.io/v1/text-to-speech"), "/"),
		ElevenLabsAPIKey:  src.get("ELEVEN_LABS_API_KEY", ""),
		ElevenLabsVoiceID: src.get("ELEVEN_LABS_VOICE_ID", ""),
		ElevenLabsModelID: src.get("ELEVEN_LABS_MODEL_ID", "eleven_multilingual_v2"),

		MaxUploadBytes:   int64(src.getInt("MAX_UPLOAD_BYTES", 10<<20)),
		UploadRatePerSec: src.getFloat("UPLOAD_RATE_PER_SEC", 1),
		UploadRateBurst:  src.getInt("UPLOAD_RATE_BURST", 5),
		UpstreamTimeout:  src.getDuration("UPSTREAM_TIMEOUT", 60*time.Second),

		RetryMaxAttempts:    src.getInt("RETRY_MAX_ATTEMPTS", 1),
		BreakerEnabled:      src.getBool("BREAKER_ENABLED", true),
		BreakerMinRequests:  src.getInt("BREAKER_MIN_REQUESTS", 10),
		BreakerFailureRatio: src.getFloat("BREAKER_FAILURE_RATIO", 0.5),
		BreakerOpenTimeout:  src.getDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),
	}
}

// Validate reports configuration that prevents the service from starting.
func (c Config) Validate() error {
	var errs []error
	if c.Bucket == "" {
		errs = append(errs, errors.New("CLOUD_STORAGE_BUCKET is required"))
	}
	if c.RecordStoreType == "postgres" && strings.TrimSpace(c.DatabaseURL) == "" {
		errs = append(errs, errors.New("DATABASE_URL is required when RECORD_STORE=postgres"))
	}
	if c.RecordStoreType == "dynamodb" && strings.TrimSpace(c.DynamoTable) == "" {
		errs = append(errs, errors.New("DYNAMO_TABLE is required when RECORD_STORE=dynamodb"))
	}
	if c.TTSProvider == "elevenlabs" {
		if c.ElevenLabsAPIKey == "" || c.ElevenLabsVoiceID == "" {
			errs = append(errs, errors.New("ELEVEN_LABS_API_KEY and ELEVEN_LABS_VOICE_ID are required when TTS_PROVIDER=elevenlabs"))
		}
		if c.TTSAudioEncoding != "MP3" {
			errs = append(errs, fmt.Errorf("TTS_AUDIO_ENCODING %s is not supported by elevenlabs", c.TTSAudioEncoding))
		}
	}
	switch c.TTSAudioEncoding {
	case "MP3", "OGG_OPUS":
	default:
		errs = append(errs, fmt.Errorf("TTS_AUDIO_ENCODING %s is not supported", c.TTSAudioEncoding))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	return errors.Join(errs...)
}

type source struct {
	file map[string]string
}

func (s source) get(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if val, ok := s.file[key]; ok && val != "" {
		return val
	}
	return def
}

func (s source) getInt(key string, def int) int {
	raw := strings.TrimSpace(s.get(key, ""))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func (s source) getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(s.get(key, ""))
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return f
}

func (s source) getBool(key string, def bool) bool {
	raw := strings.TrimSpace(s.get(key, ""))
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}

func (s source) getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(s.get(key, ""))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	default:
		return "dev"
	}
}

// normalizeChoice lower-cases raw and falls back to the first allowed value.
func normalizeChoice(raw string, allowed ...string) string {
	clean := strings.ToLower(strings.TrimSpace(raw))
	for _, a := range allowed {
		if clean == a {
			return a
		}
	}
	return allowed[0]
}
