package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// EmailKind names a template family.
type EmailKind string

const (
	EmailInvite             EmailKind = "casting_invite"
	EmailApprovedBriefing   EmailKind = "approved_with_briefing"
	EmailApprovedNoBriefing EmailKind = "approved_without_briefing"
	EmailNotSelected        EmailKind = "not_selected"
	EmailCastingClosed      EmailKind = "casting_closed"
	EmailBriefingReady      EmailKind = "briefing_ready"
	EmailReviewReady        EmailKind = "review_ready"
)

// EmailJob is one queued send. Params is the flattened template-family
// parameter struct.
type EmailJob struct {
	ID        string            `json:"id"`
	Kind      EmailKind         `json:"kind"`
	Recipient string            `json:"recipient"`
	Params    map[string]string `json:"params"`
}

// Enqueuer is the write side of the queue, consumed by the orchestrator.
type Enqueuer interface {
	EnqueueBatch(ctx context.Context, jobs []EmailJob) error
}

func newJob(kind EmailKind, to string, params interface{}) EmailJob {
	flat := map[string]string{}
	if raw, err := json.Marshal(params); err == nil {
		_ = json.Unmarshal(raw, &flat)
	}
	return EmailJob{
		ID:        uuid.NewString(),
		Kind:      kind,
		Recipient: to,
		Params:    flat,
	}
}

// Job constructors, one per template family.

func InviteJob(to string, p InviteParams) EmailJob {
	return newJob(EmailInvite, to, p)
}

func ApprovedWithBriefingJob(to string, p ApprovedParams) EmailJob {
	return newJob(EmailApprovedBriefing, to, p)
}

func ApprovedWithoutBriefingJob(to string, p ApprovedParams) EmailJob {
	return newJob(EmailApprovedNoBriefing, to, p)
}

func NotSelectedJob(to string, p CastingParams) EmailJob {
	return newJob(EmailNotSelected, to, p)
}

func CastingClosedJob(to string, p CastingParams) EmailJob {
	return newJob(EmailCastingClosed, to, p)
}

func BriefingReadyJob(to string, p CastingParams) EmailJob {
	return newJob(EmailBriefingReady, to, p)
}

func ReviewReadyJob(to string, p CastingParams) EmailJob {
	return newJob(EmailReviewReady, to, p)
}

// EmailQueue is a Redis Streams backed email queue. Producers append batches
// in order; the consumer loop delivers with a fixed pacing delay between
// sends so a big fan-out cannot overwhelm the mail provider. Per-recipient
// failures are logged and acknowledged, never aborting the rest of a batch.
type EmailQueue struct {
	client    *redis.Client
	stream    string
	group     string
	consumer  string
	pace      time.Duration
	block     time.Duration
	maxLen    int64
	claimIdle time.Duration
	logger    *logrus.Logger
	once      sync.Once
}

// EmailQueueConfig configures an EmailQueue; zero values get defaults.
type EmailQueueConfig struct {
	Stream    string
	Group     string
	Consumer  string
	Pace      time.Duration
	Block     time.Duration
	MaxLen    int64
	ClaimIdle time.Duration
}

// NewEmailQueue wraps an existing redis client.
func NewEmailQueue(client *redis.Client, cfg EmailQueueConfig, logger *logrus.Logger) *EmailQueue {
	if cfg.Stream == "" {
		cfg.Stream = "emails"
	}
	if cfg.Group == "" {
		cfg.Group = "mailers"
	}
	if cfg.Consumer == "" {
		cfg.Consumer = "mailer-" + uuid.NewString()[:8]
	}
	if cfg.Pace <= 0 {
		cfg.Pace = 200 * time.Millisecond
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.MaxLen <= 0 {
		cfg.MaxLen = 10000
	}
	if cfg.ClaimIdle <= 0 {
		cfg.ClaimIdle = 30 * time.Second
	}
	return &EmailQueue{
		client:    client,
		stream:    cfg.Stream,
		group:     cfg.Group,
		consumer:  cfg.Consumer,
		pace:      cfg.Pace,
		block:     cfg.Block,
		maxLen:    cfg.MaxLen,
		claimIdle: cfg.ClaimIdle,
		logger:    logger,
	}
}

// EnqueueBatch appends the jobs to the stream in order and returns without
// waiting for delivery.
func (q *EmailQueue) EnqueueBatch(ctx context.Context, jobs []EmailJob) error {
	for _, job := range jobs {
		payload, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("could not encode email job: %w", err)
		}
		err = q.client.XAdd(ctx, &redis.XAddArgs{
			Stream: q.stream,
			MaxLen: q.maxLen,
			Approx: true,
			Values: map[string]any{"job": string(payload)},
		}).Err()
		if err != nil {
			return fmt.Errorf("could not enqueue email job: %w", err)
		}
	}
	return nil
}

// Start launches the consumer loop. It runs until ctx is cancelled.
func (q *EmailQueue) Start(ctx context.Context, mailer Mailer) {
	q.ensureGroup(ctx)
	go q.consumeLoop(ctx, mailer)
}

func (q *EmailQueue) ensureGroup(ctx context.Context) {
	q.once.Do(func() {
		err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			q.logger.WithError(err).Warn("could not create email consumer group")
		}
	})
}

func (q *EmailQueue) consumeLoop(ctx context.Context, mailer Mailer) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if msgs, err := q.claimPending(ctx); err == nil {
			for _, msg := range msgs {
				q.handleMessage(ctx, mailer, msg)
			}
		}

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: q.consumer,
			Streams:  []string{q.stream, ">"},
			Count:    10,
			Block:    q.block,
		}).Result()
		if err != nil {
			if err != redis.Nil && ctx.Err() == nil {
				q.logger.WithError(err).Warn("email queue read failed")
			}
			continue
		}
		for _, stream := range streams {
			for _, msg := range stream.Messages {
				q.handleMessage(ctx, mailer, msg)
			}
		}
	}
}

// claimPending takes over messages another consumer left unacknowledged.
func (q *EmailQueue) claimPending(ctx context.Context) ([]redis.XMessage, error) {
	res, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: q.consumer,
		MinIdle:  q.claimIdle,
		Start:    "0-0",
		Count:    10,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (q *EmailQueue) handleMessage(ctx context.Context, mailer Mailer, msg redis.XMessage) {
	defer q.ackAndDel(ctx, msg.ID)

	raw, _ := msg.Values["job"].(string)
	var job EmailJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		q.logger.WithError(err).WithField("message_id", msg.ID).Warn("dropping malformed email job")
		return
	}

	if err := Dispatch(ctx, mailer, job); err != nil {
		q.logger.WithError(err).WithFields(logrus.Fields{
			"recipient": job.Recipient,
			"kind":      job.Kind,
		}).Warn("email send failed")
	}

	select {
	case <-ctx.Done():
	case <-time.After(q.pace):
	}
}

func (q *EmailQueue) ackAndDel(ctx context.Context, msgID string) {
	_, _ = q.client.XAck(ctx, q.stream, q.group, msgID).Result()
	_, _ = q.client.XDel(ctx, q.stream, msgID).Result()
}

// Dispatch routes one job to the mailer method for its template family.
func Dispatch(ctx context.Context, mailer Mailer, job EmailJob) error {
	raw, err := json.Marshal(job.Params)
	if err != nil {
		return err
	}
	switch job.Kind {
	case EmailInvite:
		var p InviteParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		return mailer.SendCastingInvite(ctx, job.Recipient, p)
	case EmailApprovedBriefing:
		var p ApprovedParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		return mailer.SendApprovedWithBriefing(ctx, job.Recipient, p)
	case EmailApprovedNoBriefing:
		var p ApprovedParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		return mailer.SendApprovedWithoutBriefing(ctx, job.Recipient, p)
	case EmailNotSelected:
		var p CastingParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		return mailer.SendNotSelected(ctx, job.Recipient, p)
	case EmailCastingClosed:
		var p CastingParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		return mailer.SendCastingClosed(ctx, job.Recipient, p)
	case EmailBriefingReady:
		var p CastingParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		return mailer.SendBriefingReady(ctx, job.Recipient, p)
	case EmailReviewReady:
		var p CastingParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		return mailer.SendReviewReady(ctx, job.Recipient, p)
	default:
		return fmt.Errorf("unknown email kind: %s", job.Kind)
	}
}
