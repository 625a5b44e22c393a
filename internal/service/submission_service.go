package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/prepcode-api/internal/dto"
	"github.com/noah-isme/prepcode-api/internal/judge"
	"github.com/noah-isme/prepcode-api/internal/models"
	"github.com/noah-isme/prepcode-api/internal/observability"
	"github.com/noah-isme/prepcode-api/internal/repository"
)

var (
	// ErrInvalidInput indicates the payload failed validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoTestCases indicates the problem has nothing to grade against.
	ErrNoTestCases = errors.New("problem has no test cases")
	// ErrSubmissionNotFound indicates the submission cannot be located.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrSubmissionForbidden indicates the caller may not view the submission.
	ErrSubmissionForbidden = errors.New("forbidden")
)

const (
	defaultHistoryPageSize = 20
	maxHistoryPageSize     = 100
)

// SubmissionService grades code submissions and exposes their history.
type SubmissionService interface {
	Submit(ctx context.Context, userID uint, payload dto.SubmitRequest) (dto.SubmissionResponse, error)
	Run(ctx context.Context, userID uint, payload dto.RunRequest) (dto.RunResponse, error)
	Get(ctx context.Context, id uuid.UUID, viewerID uint, role string) (dto.SubmissionResponse, error)
	ListForProblem(ctx context.Context, userID uint, problemID uuid.UUID, req dto.SubmissionListRequest) (dto.SubmissionListResponse, error)
}

// BatchSubmitter hands a batch of executions to the execution service.
type BatchSubmitter interface {
	SubmitBatch(ctx context.Context, requests []judge.Request) ([]string, error)
}

// ResultPoller waits until every token has a terminal result.
type ResultPoller interface {
	AwaitResults(ctx context.Context, tokens []string) ([]judge.RawResult, error)
}

// ProblemCache is notified when problem counters change.
type ProblemCache interface {
	Invalidate(ctx context.Context, id uuid.UUID)
}

// GradingPipeline bundles the execution-side collaborators of the submission service.
type GradingPipeline struct {
	Languages *judge.Registry
	Submitter BatchSubmitter
	Poller    ResultPoller
}

// SubmissionConfig describes grading limits.
type SubmissionConfig struct {
	MaxSourceBytes       int
	DefaultTimeLimitMs   int
	DefaultMemoryLimitKB int
}

type submissionService struct {
	submissions repository.SubmissionRepository
	problems    repository.ProblemRepository
	sessions    repository.MockSessionRepository
	pipeline    GradingPipeline
	publisher   VerdictPublisher
	cache       ProblemCache
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	config      SubmissionConfig
	now         func() time.Time
}

// NewSubmissionService constructs the submission orchestrator. publisher and cache may be nil.
func NewSubmissionService(submissions repository.SubmissionRepository, problems repository.ProblemRepository, sessions repository.MockSessionRepository, pipeline GradingPipeline, publisher VerdictPublisher, cache ProblemCache, validate *validator.Validate, logger zerolog.Logger, cfg SubmissionConfig) SubmissionService {
	if cfg.MaxSourceBytes <= 0 {
		cfg.MaxSourceBytes = 64 * 1024
	}
	if cfg.DefaultTimeLimitMs <= 0 {
		cfg.DefaultTimeLimitMs = models.DefaultTimeLimitMs
	}
	if cfg.DefaultMemoryLimitKB <= 0 {
		cfg.DefaultMemoryLimitKB = models.DefaultMemoryLimitKB
	}
	if pipeline.Languages == nil {
		pipeline.Languages = judge.NewRegistry()
	}

	return &submissionService{
		submissions: submissions,
		problems:    problems,
		sessions:    sessions,
		pipeline:    pipeline,
		publisher:   publisher,
		cache:       cache,
		validator:   validate,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/prepcode-api/internal/service/submission"),
		config:      cfg,
		now:         time.Now,
	}
}

func (s *submissionService) Submit(ctx context.Context, userID uint, payload dto.SubmitRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submissions.submit", trace.WithAttributes(
		attribute.Int("user.id", int(userID)),
		attribute.String("submission.language", payload.Language),
	))
	defer span.End()

	problemID, err := s.validateSource(payload, payload.ProblemID, payload.SourceCode)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	var mockSessionID *uuid.UUID
	if payload.MockSessionID != nil && strings.TrimSpace(*payload.MockSessionID) != "" {
		parsed, err := uuid.Parse(strings.TrimSpace(*payload.MockSessionID))
		if err != nil {
			return dto.SubmissionResponse{}, fmt.Errorf("%w: mock_session_id must be a uuid", ErrInvalidInput)
		}
		mockSessionID = &parsed
	}

	problem, testCases, err := s.loadProblem(ctx, problemID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	language, err := s.pipeline.Languages.Resolve(payload.Language)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	previous, err := s.submissions.CountByUserAndProblem(ctx, userID, problem.ID)
	if err != nil {
		return dto.SubmissionResponse{}, fmt.Errorf("count attempts: %w", err)
	}

	submission := models.Submission{
		UserID:         userID,
		ProblemID:      problem.ID,
		MockSessionID:  mockSessionID,
		SourceCode:     payload.SourceCode,
		Language:       language.Key,
		AttemptNumber:  int(previous) + 1,
		Status:         models.SubmissionStatusPending,
		TestCasesTotal: len(testCases),
	}
	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, fmt.Errorf("create submission: %w", err)
	}
	span.SetAttributes(attribute.String("submission.id", submission.ID.String()))

	logger := s.logger.With().
		Str("submission_id", submission.ID.String()).
		Str("problem_id", problem.ID.String()).
		Str("language", language.Key).
		Int("attempt", submission.AttemptNumber).
		Logger()

	requests := s.buildRequests(problem, language, payload.SourceCode, testCases)

	tokens, err := s.pipeline.Submitter.SubmitBatch(ctx, requests)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch submission failed")
		return s.fail(ctx, logger, submission, err)
	}

	raw, err := s.pipeline.Poller.AwaitResults(ctx, tokens)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "results not ready")
		return s.fail(ctx, logger, submission, err)
	}

	// Results are complete; from here on the record must reach a terminal state even if the
	// caller goes away.
	writeCtx := context.WithoutCancel(ctx)
	pending := submission

	for i := range raw {
		raw[i].Input = testCases[i].Input
		raw[i].ExpectedOutput = testCases[i].ExpectedOutput
	}
	raw = judge.ApplyMemoryLimit(raw, s.memoryLimitKB(problem))
	verdict := judge.Reduce(raw, len(problem.VisibleTestCases()))

	evaluatedAt := s.now().UTC()
	submission.Status = verdict.Status
	submission.RuntimeMs = verdict.RuntimeMs
	submission.MemoryKB = verdict.MemoryKB
	submission.TestCasesPassed = verdict.PassedCount
	submission.TestCasesTotal = verdict.TotalCount
	submission.Results = verdict.Results
	submission.ErrorMessage = verdict.ErrorMessage
	submission.EvaluatedAt = &evaluatedAt

	if err := s.submissions.Finalize(writeCtx, &submission); err != nil {
		span.RecordError(err)
		err = fmt.Errorf("finalize submission: %w", err)
		if errors.Is(err, repository.ErrSubmissionAlreadyFinal) {
			return dto.SubmissionResponse{}, err
		}
		return s.fail(writeCtx, logger, pending, err)
	}

	observability.JudgeVerdicts().WithLabelValues(language.Key, string(submission.Status)).Inc()
	logger.Info().
		Str("status", string(submission.Status)).
		Int("passed", submission.TestCasesPassed).
		Int("total", submission.TestCasesTotal).
		Int64("runtime_ms", submission.RuntimeMs).
		Int64("memory_kb", submission.MemoryKB).
		Msg("submission judged")

	s.applySideEffects(writeCtx, logger, submission)
	s.publish(writeCtx, logger, submission)

	return dto.NewSubmissionResponse(submission, true), nil
}

func (s *submissionService) Run(ctx context.Context, userID uint, payload dto.RunRequest) (dto.RunResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submissions.run", trace.WithAttributes(
		attribute.Int("user.id", int(userID)),
		attribute.String("submission.language", payload.Language),
	))
	defer span.End()

	problemID, err := s.validateSource(payload, payload.ProblemID, payload.SourceCode)
	if err != nil {
		return dto.RunResponse{}, err
	}

	problem, _, err := s.loadProblem(ctx, problemID)
	if err != nil {
		return dto.RunResponse{}, err
	}

	language, err := s.pipeline.Languages.Resolve(payload.Language)
	if err != nil {
		return dto.RunResponse{}, err
	}

	var testCase models.TestCase
	var expected *string
	if payload.CustomInput != nil {
		testCase.Input = *payload.CustomInput
	} else {
		visible := problem.VisibleTestCases()
		if len(visible) == 0 {
			return dto.RunResponse{}, ErrNoTestCases
		}
		testCase = visible[0]
		value := testCase.ExpectedOutput
		expected = &value
	}

	requests := s.buildRequests(problem, language, payload.SourceCode, []models.TestCase{testCase})
	if expected == nil {
		requests[0].ExpectedOutput = nil
	}

	tokens, err := s.pipeline.Submitter.SubmitBatch(ctx, requests)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch submission failed")
		return dto.RunResponse{}, err
	}

	raw, err := s.pipeline.Poller.AwaitResults(ctx, tokens)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "results not ready")
		return dto.RunResponse{}, err
	}

	raw[0].Input = testCase.Input
	if expected != nil {
		raw[0].ExpectedOutput = *expected
	}
	raw = judge.ApplyMemoryLimit(raw, s.memoryLimitKB(problem))
	verdict := judge.Reduce(raw, 1)

	s.logger.Debug().
		Uint("user_id", userID).
		Str("problem_id", problem.ID.String()).
		Str("language", language.Key).
		Str("status", string(verdict.Status)).
		Bool("custom_input", payload.CustomInput != nil).
		Msg("dry run finished")

	return dto.RunResponse{
		Status:         verdict.Status,
		Output:         raw[0].Stdout,
		ExpectedOutput: expected,
		Input:          testCase.Input,
		RuntimeMs:      verdict.RuntimeMs,
		MemoryKB:       verdict.MemoryKB,
		ErrorMessage:   verdict.ErrorMessage,
	}, nil
}

func (s *submissionService) Get(ctx context.Context, id uuid.UUID, viewerID uint, role string) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if !canViewSubmission(viewerID, role, submission) {
		return dto.SubmissionResponse{}, ErrSubmissionForbidden
	}

	return dto.NewSubmissionResponse(submission, true), nil
}

func (s *submissionService) ListForProblem(ctx context.Context, userID uint, problemID uuid.UUID, req dto.SubmissionListRequest) (dto.SubmissionListResponse, error) {
	page := req.Page
	if page <= 0 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultHistoryPageSize
	}
	if pageSize > maxHistoryPageSize {
		pageSize = maxHistoryPageSize
	}

	items, total, err := s.submissions.List(ctx, repository.SubmissionFilter{
		UserID:    userID,
		ProblemID: problemID,
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		return dto.SubmissionListResponse{}, err
	}

	responses := make([]dto.SubmissionResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, dto.NewSubmissionResponse(item, false))
	}

	return dto.SubmissionListResponse{
		Items:      responses,
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

func (s *submissionService) validateSource(payload interface{}, rawProblemID, source string) (uuid.UUID, error) {
	if err := s.validator.Struct(payload); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if strings.TrimSpace(source) == "" {
		return uuid.Nil, fmt.Errorf("%w: source_code must not be blank", ErrInvalidInput)
	}
	if len(source) > s.config.MaxSourceBytes {
		return uuid.Nil, fmt.Errorf("%w: source_code exceeds %d bytes", ErrInvalidInput, s.config.MaxSourceBytes)
	}

	problemID, err := uuid.Parse(strings.TrimSpace(rawProblemID))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: problem_id must be a uuid", ErrInvalidInput)
	}
	return problemID, nil
}

func (s *submissionService) loadProblem(ctx context.Context, id uuid.UUID) (models.Problem, []models.TestCase, error) {
	problem, err := s.problems.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Problem{}, nil, ErrProblemNotFound
		}
		return models.Problem{}, nil, err
	}

	testCases := problem.CombinedTestCases()
	if len(testCases) == 0 {
		return models.Problem{}, nil, ErrNoTestCases
	}
	return problem, testCases, nil
}

func (s *submissionService) timeLimitMs(problem models.Problem) int {
	return problem.EffectiveTimeLimitMs(s.config.DefaultTimeLimitMs)
}

func (s *submissionService) memoryLimitKB(problem models.Problem) int {
	return problem.EffectiveMemoryLimitKB(s.config.DefaultMemoryLimitKB)
}

func (s *submissionService) buildRequests(problem models.Problem, language judge.Language, source string, testCases []models.TestCase) []judge.Request {
	cpuSeconds := float64(s.timeLimitMs(problem)) / 1000
	memoryKB := s.memoryLimitKB(problem)

	requests := make([]judge.Request, 0, len(testCases))
	for _, tc := range testCases {
		expected := tc.ExpectedOutput
		requests = append(requests, judge.Request{
			SourceCode:          source,
			LanguageID:          language.ExecutorID,
			Stdin:               tc.Input,
			ExpectedOutput:      &expected,
			CPUTimeLimitSeconds: cpuSeconds,
			MemoryLimitKB:       memoryKB,
		})
	}
	return requests
}

// fail moves the submission to InternalError. The write ignores request cancellation so a
// record never stays Pending after the caller goes away.
func (s *submissionService) fail(ctx context.Context, logger zerolog.Logger, submission models.Submission, cause error) (dto.SubmissionResponse, error) {
	writeCtx := context.WithoutCancel(ctx)
	evaluatedAt := s.now().UTC()

	submission.Status = models.SubmissionStatusInternalError
	submission.ErrorMessage = cause.Error()
	submission.EvaluatedAt = &evaluatedAt

	if err := s.submissions.Finalize(writeCtx, &submission); err != nil {
		logger.Error().Err(err).AnErr("cause", cause).Msg("failed to record internal error")
		return dto.SubmissionResponse{}, errors.Join(cause, err)
	}

	observability.JudgeVerdicts().WithLabelValues(submission.Language, string(submission.Status)).Inc()
	logger.Error().Err(cause).Msg("submission could not be judged")
	s.publish(writeCtx, logger, submission)

	return dto.NewSubmissionResponse(submission, true), cause
}

func (s *submissionService) applySideEffects(ctx context.Context, logger zerolog.Logger, submission models.Submission) {
	accepted := submission.Status == models.SubmissionStatusAccepted

	if err := s.problems.IncrementCounters(ctx, submission.ProblemID, accepted); err != nil {
		observability.JudgeSideEffectFailures().WithLabelValues("problem_counters").Inc()
		logger.Warn().Err(err).Msg("failed to update problem counters")
	} else if s.cache != nil {
		s.cache.Invalidate(ctx, submission.ProblemID)
	}

	if !accepted || submission.MockSessionID == nil || s.sessions == nil {
		return
	}

	applied, err := s.sessions.MarkProblemSolved(ctx, *submission.MockSessionID, submission.UserID, submission.ProblemID, submission.ID, *submission.EvaluatedAt)
	if err != nil {
		observability.JudgeSideEffectFailures().WithLabelValues("mock_session").Inc()
		logger.Warn().Err(err).Str("mock_session_id", submission.MockSessionID.String()).Msg("failed to mark mock session problem solved")
		return
	}
	if !applied {
		logger.Debug().Str("mock_session_id", submission.MockSessionID.String()).Msg("mock session progress unchanged")
	}
}

func (s *submissionService) publish(ctx context.Context, logger zerolog.Logger, submission models.Submission) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, NewSubmissionJudgedEvent(submission)); err != nil {
		observability.JudgeSideEffectFailures().WithLabelValues("verdict_event").Inc()
		logger.Warn().Err(err).Msg("failed to publish verdict event")
	}
}

func canViewSubmission(viewerID uint, role string, submission models.Submission) bool {
	if viewerID != 0 && viewerID == submission.UserID {
		return true
	}
	role = strings.ToLower(strings.TrimSpace(role))
	return role == "admin" || role == "interviewer"
}
