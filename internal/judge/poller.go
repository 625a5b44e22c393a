package judge

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/prepcode-api/internal/models"
	"github.com/noah-isme/prepcode-api/internal/observability"
	"github.com/noah-isme/prepcode-api/pkg/judge0"
)

// Default polling budget.
const (
	DefaultPollInitialInterval = 500 * time.Millisecond
	DefaultPollMaxInterval     = 2 * time.Second
	DefaultPollMaxAttempts     = 30
	DefaultPollMaxWait         = 60 * time.Second
)

// PollerConfig bounds how long the poller waits for results.
type PollerConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxAttempts     int
	MaxWait         time.Duration
}

func (c PollerConfig) withDefaults() PollerConfig {
	if c.InitialInterval <= 0 {
		c.InitialInterval = DefaultPollInitialInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = DefaultPollMaxInterval
	}
	if c.MaxInterval < c.InitialInterval {
		c.MaxInterval = c.InitialInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultPollMaxAttempts
	}
	if c.MaxWait <= 0 {
		c.MaxWait = DefaultPollMaxWait
	}
	return c
}

// Poller retrieves execution results until all of them are terminal or the budget runs out.
type Poller struct {
	executor judge0.Executor
	cfg      PollerConfig
	clock    Clock
	logger   zerolog.Logger
}

// NewPoller constructs a poller using the system clock.
func NewPoller(executor judge0.Executor, cfg PollerConfig, logger zerolog.Logger) *Poller {
	return &Poller{
		executor: executor,
		cfg:      cfg.withDefaults(),
		clock:    RealClock(),
		logger:   logger.With().Str("component", "judge_poller").Logger(),
	}
}

// WithClock replaces the clock used for sleeping and deadline checks.
func (p *Poller) WithClock(clock Clock) *Poller {
	if clock != nil {
		p.clock = clock
	}
	return p
}

// AwaitResults polls the executor. results[i] corresponds to tokens[i]. A partial result set
// is never returned: either every token is terminal or the call fails with ErrResultsNotReady.
func (p *Poller) AwaitResults(ctx context.Context, tokens []string) ([]RawResult, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: no tokens to poll", ErrResultsNotReady)
	}
	if p.executor == nil {
		return nil, fmt.Errorf("%w: executor not configured", ErrResultsNotReady)
	}

	deadline := p.clock.Now().Add(p.cfg.MaxWait)
	interval := p.cfg.InitialInterval
	pending := len(tokens)
	var lastErr error

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResultsNotReady, err)
		}

		results, err := p.executor.GetBatch(ctx, tokens)
		switch {
		case err != nil:
			lastErr = err
			p.logger.Warn().Err(err).Int("attempt", attempt).Msg("fetching results failed")
		case len(results) != len(tokens):
			lastErr = fmt.Errorf("got %d results for %d tokens", len(results), len(tokens))
			p.logger.Warn().Err(lastErr).Int("attempt", attempt).Msg("executor returned misaligned results")
		default:
			lastErr = nil
			pending = countPending(results)
			if pending == 0 {
				observability.JudgePollRounds().Observe(float64(attempt))
				return convertResults(results), nil
			}
		}

		if attempt == p.cfg.MaxAttempts {
			break
		}

		wait := interval
		remaining := deadline.Sub(p.clock.Now())
		if remaining <= 0 {
			break
		}
		if wait > remaining {
			wait = remaining
		}
		if err := p.clock.Sleep(ctx, wait); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResultsNotReady, err)
		}
		interval = nextInterval(interval, p.cfg.MaxInterval)
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrResultsNotReady, lastErr)
	}
	return nil, fmt.Errorf("%w: %d of %d executions still running", ErrResultsNotReady, pending, len(tokens))
}

func nextInterval(current, max time.Duration) time.Duration {
	if current >= max || current > max/2 {
		return max
	}
	return current * 2
}

func countPending(results []judge0.Result) int {
	pending := 0
	for _, result := range results {
		if !result.Status.Terminal() {
			pending++
		}
	}
	return pending
}

func convertResults(results []judge0.Result) []RawResult {
	out := make([]RawResult, 0, len(results))
	for _, result := range results {
		out = append(out, RawResult{
			Token:         result.Token,
			Status:        StatusFromExecutor(result.Status.ID),
			Stdout:        result.StdoutText(),
			Stderr:        result.StderrText(),
			CompileOutput: result.CompileOutputText(),
			Message:       result.MessageText(),
			RuntimeMs:     result.RuntimeMs(),
			MemoryKB:      result.MemoryKB(),
		})
	}
	return out
}

// StatusFromExecutor maps a Judge0 status identifier onto a submission status.
func StatusFromExecutor(id int) models.SubmissionStatus {
	switch id {
	case judge0.StatusAccepted:
		return models.SubmissionStatusAccepted
	case judge0.StatusWrongAnswer:
		return models.SubmissionStatusWrongAnswer
	case judge0.StatusTimeLimitExceeded:
		return models.SubmissionStatusTimeLimitExceeded
	case judge0.StatusCompilationError:
		return models.SubmissionStatusCompilationError
	case judge0.StatusRuntimeSIGSEGV, judge0.StatusRuntimeSIGXFSZ, judge0.StatusRuntimeSIGFPE,
		judge0.StatusRuntimeSIGABRT, judge0.StatusRuntimeNZEC, judge0.StatusRuntimeOther,
		judge0.StatusExecFormatError:
		return models.SubmissionStatusRuntimeError
	default:
		return models.SubmissionStatusInternalError
	}
}
