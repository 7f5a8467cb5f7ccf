package source

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// ErrStreamClosed is returned by Receive after the stream has been closed and
// its buffer drained.
var ErrStreamClosed = errors.New("stream closed")

// sqsBatchMax is the SQS limit for batched delete/visibility calls.
const sqsBatchMax = 10

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessageBatch(ctx context.Context, params *sqs.DeleteMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
	ChangeMessageVisibilityBatch(ctx context.Context, params *sqs.ChangeMessageVisibilityBatchInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityBatchOutput, error)
}

type SQSConfig struct {
	WaitTimeSeconds int32
	MaxMessages     int32
	VisibilityTO    int32

	Pollers int
	BufSize int

	// FailVisibilityTimeoutSeconds, when set, shortens the visibility of a
	// failed message so the queue redelivers it sooner.
	FailVisibilityTimeoutSeconds *int32
}

var DefaultSQSConfig = SQSConfig{
	WaitTimeSeconds: 20,
	MaxMessages:     10,
	VisibilityTO:    30,
	Pollers:         2,
	BufSize:         256,
}

func (c SQSConfig) validate() error {
	if c.WaitTimeSeconds < 0 || c.WaitTimeSeconds > 20 {
		return errors.New("WaitTimeSeconds must be between 0 and 20")
	}
	if c.MaxMessages < 1 || c.MaxMessages > sqsBatchMax {
		return fmt.Errorf("MaxMessages must be between 1 and %d", sqsBatchMax)
	}
	if c.VisibilityTO < 0 {
		return errors.New("VisibilityTO must be non-negative")
	}
	if c.Pollers < 1 {
		return errors.New("Pollers must be at least 1")
	}
	if c.BufSize < 1 {
		return errors.New("BufSize must be at least 1")
	}
	if c.FailVisibilityTimeoutSeconds != nil && *c.FailVisibilityTimeoutSeconds < 0 {
		return errors.New("FailVisibilityTimeoutSeconds must be non-negative")
	}
	return nil
}

// SQS is a Stream backed by an SQS queue. A fixed set of pollers long-polls
// the queue into a bounded buffer; Receive hands messages out one at a time.
type SQS struct {
	cfg SQSConfig

	client   sqsAPI
	queueURL string

	bufCh chan *sqstypes.Message

	closeOnce sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewSQS starts polling queueURL. Close stops the pollers; Receive keeps
// draining buffered messages until ErrStreamClosed.
func NewSQS(ctx context.Context, client sqsAPI, queueURL string, cfg SQSConfig) (*SQS, error) {
	if client == nil {
		return nil, errors.New("sqs client is nil")
	}
	if queueURL == "" {
		return nil, errors.New("queue url is empty")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &SQS{
		cfg:      cfg,
		client:   client,
		queueURL: queueURL,
		bufCh:    make(chan *sqstypes.Message, cfg.BufSize),
		cancel:   cancel,
	}

	s.wg.Add(cfg.Pollers)
	for i := 0; i < cfg.Pollers; i++ {
		go func() {
			defer s.wg.Done()
			s.pollLoop(ctx)
		}()
	}
	go func() {
		s.wg.Wait()
		close(s.bufCh)
	}()

	return s, nil
}

func (s *SQS) pollLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		reqCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.WaitTimeSeconds+5)*time.Second)
		out, err := s.client.ReceiveMessage(reqCtx, &sqs.ReceiveMessageInput{
			QueueUrl:            &s.queueURL,
			MaxNumberOfMessages: s.cfg.MaxMessages,
			WaitTimeSeconds:     s.cfg.WaitTimeSeconds,
			VisibilityTimeout:   s.cfg.VisibilityTO,
		})
		cancel()

		if err != nil {
			select {
			case <-time.After(250 * time.Millisecond):
				continue
			case <-ctx.Done():
				return
			}
		}

		for i := range out.Messages {
			select {
			case s.bufCh <- &out.Messages[i]:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *SQS) Close() {
	s.closeOnce.Do(s.cancel)
}

func (s *SQS) Receive(ctx context.Context) (Message, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case m, ok := <-s.bufCh:
		if !ok {
			return nil, ErrStreamClosed
		}
		return &sqsMessage{src: s, m: m}, nil
	}
}

func (s *SQS) AckBatch(ctx context.Context, msgs []Message) error {
	metas := make([]AckMeta, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		am, ok := m.(ackMetable)
		if !ok {
			return fmt.Errorf("message %T does not carry ack metadata", m)
		}
		meta, ok := am.AckMeta()
		if !ok {
			return fmt.Errorf("message %T has no receipt handle", m)
		}
		metas = append(metas, meta)
	}
	return s.AckMetas(ctx, metas)
}

// AckMetas deletes acknowledged messages in chunks of the SQS batch limit.
func (s *SQS) AckMetas(ctx context.Context, metas []AckMeta) error {
	for i := 0; i < len(metas); i += sqsBatchMax {
		end := i + sqsBatchMax
		if end > len(metas) {
			end = len(metas)
		}

		entries := make([]sqstypes.DeleteMessageBatchRequestEntry, 0, end-i)
		for j := i; j < end; j++ {
			entries = append(entries, sqstypes.DeleteMessageBatchRequestEntry{
				Id:            &metas[j].ID,
				ReceiptHandle: &metas[j].Handle,
			})
		}

		out, err := s.client.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
			QueueUrl: &s.queueURL,
			Entries:  entries,
		})
		if err != nil {
			return err
		}
		if len(out.Failed) > 0 {
			f := out.Failed[0]
			return fmt.Errorf("sqs delete failed id=%s code=%s message=%s",
				aws.ToString(f.Id), aws.ToString(f.Code), aws.ToString(f.Message))
		}
	}
	return nil
}

func (s *SQS) ExtendVisibility(ctx context.Context, metas []AckMeta, timeoutSeconds int32) error {
	for i := 0; i < len(metas); i += sqsBatchMax {
		end := i + sqsBatchMax
		if end > len(metas) {
			end = len(metas)
		}

		entries := make([]sqstypes.ChangeMessageVisibilityBatchRequestEntry, 0, end-i)
		for j := i; j < end; j++ {
			entries = append(entries, sqstypes.ChangeMessageVisibilityBatchRequestEntry{
				Id:                &metas[j].ID,
				ReceiptHandle:     &metas[j].Handle,
				VisibilityTimeout: timeoutSeconds,
			})
		}

		out, err := s.client.ChangeMessageVisibilityBatch(ctx, &sqs.ChangeMessageVisibilityBatchInput{
			QueueUrl: &s.queueURL,
			Entries:  entries,
		})
		if err != nil {
			return err
		}
		if len(out.Failed) > 0 {
			f := out.Failed[0]
			return fmt.Errorf("sqs visibility batch failed id=%s code=%s message=%s",
				aws.ToString(f.Id), aws.ToString(f.Code), aws.ToString(f.Message))
		}
	}
	return nil
}

type sqsMessage struct {
	src *SQS
	m   *sqstypes.Message
}

func (m *sqsMessage) Body() []byte {
	return []byte(aws.ToString(m.m.Body))
}

func (m *sqsMessage) AckMeta() (AckMeta, bool) {
	rh := aws.ToString(m.m.ReceiptHandle)
	if rh == "" {
		return AckMeta{}, false
	}
	id := aws.ToString(m.m.MessageId)
	if id == "" {
		id = strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return AckMeta{ID: id, Handle: rh}, true
}

func (m *sqsMessage) Fail(ctx context.Context, reason error) error {
	if m.src.cfg.FailVisibilityTimeoutSeconds == nil {
		return nil
	}
	_, err := m.src.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          &m.src.queueURL,
		ReceiptHandle:     m.m.ReceiptHandle,
		VisibilityTimeout: *m.src.cfg.FailVisibilityTimeoutSeconds,
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
