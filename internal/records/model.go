package records

import "time"

// Record links an uploaded image to its extracted text and synthesized audio.
// Key equals BlobName, so re-uploading a file name overwrites its Record.
type Record struct {
	Key               string    `json:"key" dynamodbav:"key"`
	BlobName          string    `json:"blob_name" dynamodbav:"blob_name"`
	ImagePublicURL    string    `json:"image_public_url" dynamodbav:"image_public_url"`
	GeneratedAudioURL string    `json:"generated_audio_url" dynamodbav:"generated_audio_url"`
	ExtractedText     string    `json:"extracted_text" dynamodbav:"extracted_text"`
	AudioObjectName   string    `json:"audio_object_name,omitempty" dynamodbav:"audio_object_name"`
	ContentType       string    `json:"content_type,omitempty" dynamodbav:"content_type"`
	SizeBytes         int64     `json:"size_bytes,omitempty" dynamodbav:"size_bytes"`
	CreatedAt         time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" dynamodbav:"updated_at"`
}
