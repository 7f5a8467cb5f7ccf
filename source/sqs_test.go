package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type fakeSQS struct {
	mu sync.Mutex

	queue   []sqstypes.Message
	deleted []string
	vischg  []string

	receiveErr error
	deleteErr  error
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.receiveErr != nil {
		return nil, f.receiveErr
	}
	n := int(in.MaxNumberOfMessages)
	if n > len(f.queue) {
		n = len(f.queue)
	}
	out := &sqs.ReceiveMessageOutput{Messages: f.queue[:n]}
	f.queue = f.queue[n:]
	return out, nil
}

func (f *fakeSQS) DeleteMessageBatch(ctx context.Context, in *sqs.DeleteMessageBatchInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	if len(in.Entries) > sqsBatchMax {
		return nil, fmt.Errorf("batch of %d exceeds limit", len(in.Entries))
	}
	for _, e := range in.Entries {
		f.deleted = append(f.deleted, aws.ToString(e.ReceiptHandle))
	}
	return &sqs.DeleteMessageBatchOutput{}, nil
}

func (f *fakeSQS) ChangeMessageVisibility(ctx context.Context, in *sqs.ChangeMessageVisibilityInput, _ ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vischg = append(f.vischg, aws.ToString(in.ReceiptHandle))
	return &sqs.ChangeMessageVisibilityOutput{}, nil
}

func (f *fakeSQS) ChangeMessageVisibilityBatch(ctx context.Context, in *sqs.ChangeMessageVisibilityBatchInput, _ ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityBatchOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range in.Entries {
		f.vischg = append(f.vischg, aws.ToString(e.ReceiptHandle))
	}
	return &sqs.ChangeMessageVisibilityBatchOutput{}, nil
}

func sqsMsg(id, body string) sqstypes.Message {
	rh := "rh-" + id
	idv := id
	bodyv := body
	return sqstypes.Message{MessageId: &idv, ReceiptHandle: &rh, Body: &bodyv}
}

func testCfg() SQSConfig {
	cfg := DefaultSQSConfig
	cfg.WaitTimeSeconds = 0
	cfg.Pollers = 1
	return cfg
}

func TestSQSConfig_validate(t *testing.T) {
	if err := DefaultSQSConfig.validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	c := DefaultSQSConfig
	c.MaxMessages = 11
	if err := c.validate(); err == nil {
		t.Fatalf("expected error for MaxMessages > 10")
	}

	c = DefaultSQSConfig
	c.Pollers = 0
	if err := c.validate(); err == nil {
		t.Fatalf("expected error for zero pollers")
	}
}

func TestSQS_ReceiveDeliversBody(t *testing.T) {
	fake := &fakeSQS{queue: []sqstypes.Message{sqsMsg("m1", `{"session_id":"s1"}`)}}

	s, err := NewSQS(context.Background(), fake, "https://sqs/q", testCfg())
	if err != nil {
		t.Fatalf("NewSQS: %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	m, err := s.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if string(m.Body()) != `{"session_id":"s1"}` {
		t.Fatalf("body = %s", m.Body())
	}
}

func TestSQS_AckMetasChunksByTen(t *testing.T) {
	fake := &fakeSQS{}
	s, err := NewSQS(context.Background(), fake, "https://sqs/q", testCfg())
	if err != nil {
		t.Fatalf("NewSQS: %v", err)
	}
	defer s.Close()

	metas := make([]AckMeta, 25)
	for i := range metas {
		metas[i] = AckMeta{ID: fmt.Sprintf("id%d", i), Handle: fmt.Sprintf("rh%d", i)}
	}
	if err := s.AckMetas(context.Background(), metas); err != nil {
		t.Fatalf("AckMetas: %v", err)
	}
	if len(fake.deleted) != 25 {
		t.Fatalf("deleted %d, want 25", len(fake.deleted))
	}
}

func TestSQS_AckGroupFastPath(t *testing.T) {
	fake := &fakeSQS{queue: []sqstypes.Message{sqsMsg("m1", "a"), sqsMsg("m2", "b")}}
	s, err := NewSQS(context.Background(), fake, "https://sqs/q", testCfg())
	if err != nil {
		t.Fatalf("NewSQS: %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var g AckGroup
	for i := 0; i < 2; i++ {
		m, err := s.Receive(ctx)
		if err != nil {
			t.Fatalf("Receive: %v", err)
		}
		g.Add(m)
	}
	if len(g.Metas()) != 2 {
		t.Fatalf("metas=%d want 2", len(g.Metas()))
	}

	if err := g.Commit(ctx, s); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(fake.deleted) != 2 {
		t.Fatalf("deleted %d, want 2", len(fake.deleted))
	}
}

func TestSQS_FailChangesVisibility(t *testing.T) {
	short := int32(0)
	cfg := testCfg()
	cfg.FailVisibilityTimeoutSeconds = &short

	fake := &fakeSQS{queue: []sqstypes.Message{sqsMsg("m1", "bad")}}
	s, err := NewSQS(context.Background(), fake, "https://sqs/q", cfg)
	if err != nil {
		t.Fatalf("NewSQS: %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	m, err := s.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if err := m.Fail(ctx, errors.New("decode")); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if len(fake.vischg) != 1 {
		t.Fatalf("visibility changes = %d, want 1", len(fake.vischg))
	}
}

func TestSQS_CloseDrainsThenErrStreamClosed(t *testing.T) {
	fake := &fakeSQS{receiveErr: errors.New("down")}
	s, err := NewSQS(context.Background(), fake, "https://sqs/q", testCfg())
	if err != nil {
		t.Fatalf("NewSQS: %v", err)
	}
	s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := s.Receive(ctx); !errors.Is(err, ErrStreamClosed) {
		t.Fatalf("want ErrStreamClosed, got %v", err)
	}
}

func TestSQS_ExtendVisibilityBatch(t *testing.T) {
	fake := &fakeSQS{}
	s, err := NewSQS(context.Background(), fake, "https://sqs/q", testCfg())
	if err != nil {
		t.Fatalf("NewSQS: %v", err)
	}
	defer s.Close()

	metas := []AckMeta{{ID: "a", Handle: "rh-a"}, {ID: "b", Handle: "rh-b"}}
	if err := s.ExtendVisibility(context.Background(), metas, 60); err != nil {
		t.Fatalf("ExtendVisibility: %v", err)
	}
	if len(fake.vischg) != 2 {
		t.Fatalf("visibility changes = %d, want 2", len(fake.vischg))
	}
}
