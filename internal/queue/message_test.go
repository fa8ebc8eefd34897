package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"photo-speech/internal/records"
)

func TestRecordUpsertedMessage(t *testing.T) {
	rec := records.Record{
		Key:               "cat.jpg",
		BlobName:          "cat.jpg",
		ImagePublicURL:    "http://localhost:8080/media/cat.jpg",
		GeneratedAudioURL: "http://localhost:8080/media/audio/cat-1.mp3",
		ExtractedText:     "HELLO",
	}
	at := time.Date(2026, time.January, 30, 22, 0, 0, 0, time.UTC)

	payload, err := EncodeMessage(RecordUpserted(rec, at))
	if err != nil {
		t.Fatalf("encode message: %v", err)
	}
	got, err := DecodeMessage(payload)
	if err != nil {
		t.Fatalf("decode message: %v", err)
	}

	if got.Event != EventRecordUpserted || got.Key != "cat.jpg" || got.TextChars != 5 {
		t.Fatalf("unexpected message: %+v", got)
	}
	if got.EnqueuedAt != "2026-01-30T22:00:00Z" || got.Version != 1 {
		t.Fatalf("unexpected envelope: %+v", got)
	}
}

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m1")}, nil
}

func TestSQSClientSend(t *testing.T) {
	api := &fakeSQS{}
	client := NewSQSClientWithAPI(api, "https://sqs.us-east-1.amazonaws.com/123/photos")

	msg := RecordUpserted(records.Record{Key: "cat.jpg", BlobName: "cat.jpg"}, time.Now())
	if err := client.Send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(api.inputs) != 1 {
		t.Fatalf("expected one send, got %d", len(api.inputs))
	}
	in := api.inputs[0]
	if aws.ToString(in.QueueUrl) != "https://sqs.us-east-1.amazonaws.com/123/photos" {
		t.Fatalf("unexpected queue url: %s", aws.ToString(in.QueueUrl))
	}
	decoded, err := DecodeMessage([]byte(aws.ToString(in.MessageBody)))
	if err != nil || decoded.Key != "cat.jpg" {
		t.Fatalf("unexpected body %q: %v", aws.ToString(in.MessageBody), err)
	}
	if aws.ToString(in.MessageAttributes["event"].StringValue) != EventRecordUpserted {
		t.Fatalf("missing event attribute")
	}
}

func TestSQSClientSendError(t *testing.T) {
	api := &fakeSQS{err: errors.New("throttled")}
	client := NewSQSClientWithAPI(api, "q")

	err := client.Send(context.Background(), Message{Event: EventRecordUpserted})
	if err == nil || !errors.Is(err, api.err) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestNewSQSClientRequiresQueueURL(t *testing.T) {
	if _, err := NewSQSClient(context.Background(), "us-east-1", " "); err == nil {
		t.Fatal("expected error for empty queue url")
	}
}
