package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/prepcode-api/internal/models"
)

// SubmissionJudgedEvent is broadcast whenever a submission reaches a terminal status.
type SubmissionJudgedEvent struct {
	SubmissionID  uuid.UUID               `json:"submission_id"`
	UserID        uint                    `json:"user_id"`
	ProblemID     uuid.UUID               `json:"problem_id"`
	MockSessionID *uuid.UUID              `json:"mock_session_id,omitempty"`
	Status        models.SubmissionStatus `json:"status"`
	Passed        int                     `json:"passed"`
	Total         int                     `json:"total"`
	RuntimeMs     int64                   `json:"runtime_ms"`
	MemoryKB      int64                   `json:"memory_kb"`
	JudgedAt      time.Time               `json:"judged_at"`
}

// NewSubmissionJudgedEvent builds the event for a finalized submission.
func NewSubmissionJudgedEvent(submission models.Submission) SubmissionJudgedEvent {
	judgedAt := time.Now().UTC()
	if submission.EvaluatedAt != nil {
		judgedAt = submission.EvaluatedAt.UTC()
	}

	return SubmissionJudgedEvent{
		SubmissionID:  submission.ID,
		UserID:        submission.UserID,
		ProblemID:     submission.ProblemID,
		MockSessionID: submission.MockSessionID,
		Status:        submission.Status,
		Passed:        submission.TestCasesPassed,
		Total:         submission.TestCasesTotal,
		RuntimeMs:     submission.RuntimeMs,
		MemoryKB:      submission.MemoryKB,
		JudgedAt:      judgedAt,
	}
}

// VerdictPublisher fans verdict events out to subscribers.
type VerdictPublisher interface {
	Publish(ctx context.Context, event SubmissionJudgedEvent) error
}

type verdictPublisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
}

// NewVerdictPublisher publishes on "<base>:submissions:judged" over Redis and
// "<base>.submissions.judged" over NATS. Either transport may be nil.
func NewVerdictPublisher(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) VerdictPublisher {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":submissions:judged"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".submissions.judged"
	}

	return &verdictPublisher{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "verdict_publisher").Logger(),
	}
}

func (p *verdictPublisher) Publish(ctx context.Context, event SubmissionJudgedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var errs []error
	if p.redis != nil && p.redisChannel != "" {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			errs = append(errs, err)
		}
	}

	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	p.logger.Debug().Str("submission_id", event.SubmissionID.String()).Str("status", string(event.Status)).Msg("verdict published")
	return nil
}
