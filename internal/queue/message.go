package queue

import (
	"encoding/json"
	"time"

	"photo-speech/internal/records"
)

// EventRecordUpserted is emitted after an upload's Record has been written.
const EventRecordUpserted = "record.upserted"

const messageVersion = 1

// Message is the payload sent to downstream queue consumers.
type Message struct {
	Event             string `json:"event"`
	Key               string `json:"key"`
	BlobName          string `json:"blobName"`
	ImagePublicURL    string `json:"imagePublicUrl"`
	GeneratedAudioURL string `json:"generatedAudioUrl,omitempty"`
	TextChars         int    `json:"textChars"`
	EnqueuedAt        string `json:"enqueuedAt"`
	Version           int    `json:"version"`
}

// RecordUpserted builds the notification for a written Record.
func RecordUpserted(rec records.Record, at time.Time) Message {
	return Message{
		Event:             EventRecordUpserted,
		Key:               rec.Key,
		BlobName:          rec.BlobName,
		ImagePublicURL:    rec.ImagePublicURL,
		GeneratedAudioURL: rec.GeneratedAudioURL,
		TextChars:         len(rec.ExtractedText),
		EnqueuedAt:        at.UTC().Format(time.RFC3339),
		Version:           messageVersion,
	}
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
