package judge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/prepcode-api/pkg/judge0"
)

// Submitter hands batches of test-case executions to the execution service.
type Submitter struct {
	executor judge0.Executor
	logger   zerolog.Logger
}

// NewSubmitter constructs a batch submitter around an executor client.
func NewSubmitter(executor judge0.Executor, logger zerolog.Logger) *Submitter {
	return &Submitter{
		executor: executor,
		logger:   logger.With().Str("component", "judge_submitter").Logger(),
	}
}

// SubmitBatch queues every request and returns one tracking token per request, in order.
func (s *Submitter) SubmitBatch(ctx context.Context, requests []Request) ([]string, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrExecutorUnavailable)
	}
	if s.executor == nil {
		return nil, fmt.Errorf("%w: executor not configured", ErrExecutorUnavailable)
	}

	batch := make([]judge0.Submission, 0, len(requests))
	for _, req := range requests {
		submission := judge0.Submission{
			SourceCode:   req.SourceCode,
			LanguageID:   req.LanguageID,
			Stdin:        req.Stdin,
			CPUTimeLimit: req.CPUTimeLimitSeconds,
			MemoryLimit:  req.MemoryLimitKB,
		}
		if req.ExpectedOutput != nil {
			normalized := NormalizeExpectedOutput(*req.ExpectedOutput)
			submission.ExpectedOutput = &normalized
		}
		batch = append(batch, submission)
	}

	tokens, err := s.executor.SubmitBatch(ctx, batch)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		s.logger.Warn().Err(err).Int("batch_size", len(batch)).Msg("batch submission failed")
		return nil, fmt.Errorf("%w: %v", ErrExecutorUnavailable, err)
	}
	if len(tokens) != len(requests) {
		return nil, fmt.Errorf("%w: got %d tokens for %d requests", ErrExecutorUnavailable, len(tokens), len(requests))
	}

	return tokens, nil
}

// NormalizeExpectedOutput converts line endings to LF and leaves exactly one trailing newline.
func NormalizeExpectedOutput(output string) string {
	normalized := strings.ReplaceAll(output, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	return strings.TrimRight(normalized, "\n") + "\n"
}
