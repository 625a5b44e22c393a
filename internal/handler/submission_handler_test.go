package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/prepcode-api/internal/config"
	"github.com/noah-isme/prepcode-api/internal/dto"
	"github.com/noah-isme/prepcode-api/internal/handler"
	"github.com/noah-isme/prepcode-api/internal/judge"
	"github.com/noah-isme/prepcode-api/internal/models"
	"github.com/noah-isme/prepcode-api/internal/router"
	"github.com/noah-isme/prepcode-api/internal/service"
)

type stubSubmissionService struct {
	mu sync.Mutex

	submitResponse dto.SubmissionResponse
	submitErr      error
	runResponse    dto.RunResponse
	runErr         error
	getResponse    dto.SubmissionResponse
	getErr         error
	listResponse   dto.SubmissionListResponse

	submitted  []dto.SubmitRequest
	submitUser uint
	viewerRole string
	listReq    dto.SubmissionListRequest
}

func (s *stubSubmissionService) Submit(_ context.Context, userID uint, payload dto.SubmitRequest) (dto.SubmissionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted = append(s.submitted, payload)
	s.submitUser = userID
	return s.submitResponse, s.submitErr
}

func (s *stubSubmissionService) Run(_ context.Context, _ uint, _ dto.RunRequest) (dto.RunResponse, error) {
	return s.runResponse, s.runErr
}

func (s *stubSubmissionService) Get(_ context.Context, _ uuid.UUID, _ uint, role string) (dto.SubmissionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewerRole = role
	return s.getResponse, s.getErr
}

func (s *stubSubmissionService) ListForProblem(_ context.Context, _ uint, _ uuid.UUID, req dto.SubmissionListRequest) (dto.SubmissionListResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listReq = req
	return s.listResponse, nil
}

type stubProblemService struct {
	response dto.ProblemResponse
	err      error
}

func (s stubProblemService) Get(context.Context, uuid.UUID) (dto.ProblemResponse, error) {
	return s.response, s.err
}

func (s stubProblemService) Invalidate(context.Context, uuid.UUID) {}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Details json.RawMessage `json:"details"`
	Message string          `json:"message"`
}

type testAppOptions struct {
	role       string
	rateLimit  int
	submission *stubSubmissionService
	problems   stubProblemService
}

func newTestApp(t *testing.T, opts testAppOptions) *fiber.App {
	t.Helper()

	logger := zerolog.New(io.Discard)
	if opts.submission == nil {
		opts.submission = &stubSubmissionService{}
	}
	rateLimit := opts.rateLimit
	if rateLimit == 0 {
		rateLimit = 100
	}

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", SubmitRateLimit: rateLimit, SubmitRateWindow: time.Minute}, router.Dependencies{
		LanguageHandler:   handler.NewLanguageHandler(judge.NewRegistry()),
		ProblemHandler:    handler.NewProblemHandler(opts.problems, opts.submission, logger),
		SubmissionHandler: handler.NewSubmissionHandler(opts.submission, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			c.Locals("user_id", uint(7))
			if opts.role != "" {
				c.Locals("user_role", opts.role)
			}
			return c.Next()
		},
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func judgedSubmission(status models.SubmissionStatus) dto.SubmissionResponse {
	return dto.SubmissionResponse{
		ID:              uuid.New(),
		UserID:          7,
		ProblemID:       uuid.New(),
		Language:        "python",
		AttemptNumber:   1,
		Status:          status,
		RuntimeMs:       30,
		MemoryKB:        1000,
		TestCasesPassed: 3,
		TestCasesTotal:  3,
		Results:         []models.TestCaseResult{},
		CreatedAt:       time.Now().UTC(),
	}
}

func submitBody() map[string]interface{} {
	return map[string]interface{}{
		"problem_id":  uuid.NewString(),
		"source_code": "print(input())",
		"language":    "python",
	}
}

func TestSubmitReturnsJudgedSubmission(t *testing.T) {
	stub := &stubSubmissionService{submitResponse: judgedSubmission(models.SubmissionStatusAccepted)}
	app := newTestApp(t, testAppOptions{submission: stub})

	status, body := doJSON(t, app, http.MethodPost, "/api/v2/submissions", submitBody())
	require.Equal(t, http.StatusCreated, status)
	require.True(t, body.Success)

	var data dto.SubmissionResponse
	require.NoError(t, json.Unmarshal(body.Data, &data))
	require.Equal(t, models.SubmissionStatusAccepted, data.Status)
	require.Equal(t, int64(30), data.RuntimeMs)

	require.Len(t, stub.submitted, 1)
	require.Equal(t, "python", stub.submitted[0].Language)
	require.Equal(t, uint(7), stub.submitUser)
}

func TestSubmitExecutorFailureReturnsRecordedSubmission(t *testing.T) {
	record := judgedSubmission(models.SubmissionStatusInternalError)
	record.ErrorMessage = "executor unavailable: connection refused"
	stub := &stubSubmissionService{
		submitResponse: record,
		submitErr:      fmt.Errorf("%w: connection refused", judge.ErrExecutorUnavailable),
	}
	app := newTestApp(t, testAppOptions{submission: stub})

	status, body := doJSON(t, app, http.MethodPost, "/api/v2/submissions", submitBody())
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.False(t, body.Success)

	var details dto.SubmissionResponse
	require.NoError(t, json.Unmarshal(body.Details, &details))
	require.Equal(t, models.SubmissionStatusInternalError, details.Status)
	require.Equal(t, record.ID, details.ID)
}

func TestSubmitMapsServiceErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "invalid input", err: fmt.Errorf("%w: source_code must not be blank", service.ErrInvalidInput), status: http.StatusBadRequest},
		{name: "unsupported language", err: fmt.Errorf("%w: %q", judge.ErrUnsupportedLanguage, "cobol"), status: http.StatusBadRequest},
		{name: "problem missing", err: service.ErrProblemNotFound, status: http.StatusNotFound},
		{name: "no test cases", err: service.ErrNoTestCases, status: http.StatusUnprocessableEntity},
		{name: "poll budget exhausted without record", err: fmt.Errorf("%w: 2 of 3 executions still running", judge.ErrResultsNotReady), status: http.StatusServiceUnavailable},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t, testAppOptions{submission: &stubSubmissionService{submitErr: tc.err}})

			status, body := doJSON(t, app, http.MethodPost, "/api/v2/submissions", submitBody())
			require.Equal(t, tc.status, status)
			require.False(t, body.Success)
		})
	}
}

func TestSubmitRejectsMalformedBody(t *testing.T) {
	stub := &stubSubmissionService{}
	app := newTestApp(t, testAppOptions{submission: stub})

	req := httptest.NewRequest(http.MethodPost, "/api/v2/submissions", bytes.NewBufferString("{not json"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Empty(t, stub.submitted)
}

func TestSubmitRequiresCandidateRole(t *testing.T) {
	stub := &stubSubmissionService{submitResponse: judgedSubmission(models.SubmissionStatusAccepted)}

	app := newTestApp(t, testAppOptions{submission: stub, role: "recruiter"})
	status, _ := doJSON(t, app, http.MethodPost, "/api/v2/submissions", submitBody())
	require.Equal(t, http.StatusForbidden, status)

	app = newTestApp(t, testAppOptions{submission: stub, role: "interviewer"})
	status, _ = doJSON(t, app, http.MethodPost, "/api/v2/submissions", submitBody())
	require.Equal(t, http.StatusCreated, status)
}

func TestSubmitIsRateLimitedPerUser(t *testing.T) {
	stub := &stubSubmissionService{submitResponse: judgedSubmission(models.SubmissionStatusAccepted)}
	app := newTestApp(t, testAppOptions{submission: stub, rateLimit: 1})

	status, _ := doJSON(t, app, http.MethodPost, "/api/v2/submissions", submitBody())
	require.Equal(t, http.StatusCreated, status)

	status, body := doJSON(t, app, http.MethodPost, "/api/v2/submissions", submitBody())
	require.Equal(t, http.StatusTooManyRequests, status)
	require.False(t, body.Success)
	require.Len(t, stub.submitted, 1)
}

func TestRunReturnsExecutionOutput(t *testing.T) {
	expected := "2\n"
	stub := &stubSubmissionService{runResponse: dto.RunResponse{
		Status:         models.SubmissionStatusAccepted,
		Output:         "2\n",
		ExpectedOutput: &expected,
		Input:          "1 1",
		RuntimeMs:      10,
	}}
	app := newTestApp(t, testAppOptions{submission: stub})

	body := submitBody()
	status, out := doJSON(t, app, http.MethodPost, "/api/v2/submissions/run", body)
	require.Equal(t, http.StatusOK, status)

	var data dto.RunResponse
	require.NoError(t, json.Unmarshal(out.Data, &data))
	require.Equal(t, "2\n", data.Output)
	require.Equal(t, "1 1", data.Input)
	require.Empty(t, stub.submitted)
}

func TestGetSubmissionHonoursOwnership(t *testing.T) {
	stub := &stubSubmissionService{getErr: service.ErrSubmissionForbidden}
	app := newTestApp(t, testAppOptions{submission: stub, role: "candidate"})

	status, _ := doJSON(t, app, http.MethodGet, "/api/v2/submissions/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "candidate", stub.viewerRole)

	stub.getErr = service.ErrSubmissionNotFound
	status, _ = doJSON(t, app, http.MethodGet, "/api/v2/submissions/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, status)

	status, _ = doJSON(t, app, http.MethodGet, "/api/v2/submissions/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestProblemEndpoints(t *testing.T) {
	problemID := uuid.New()
	submissions := &stubSubmissionService{listResponse: dto.SubmissionListResponse{
		Items:      []dto.SubmissionResponse{judgedSubmission(models.SubmissionStatusWrongAnswer)},
		Pagination: dto.NewPaginationMeta(2, 1, 3),
	}}
	app := newTestApp(t, testAppOptions{
		submission: submissions,
		problems:   stubProblemService{response: dto.ProblemResponse{ID: problemID, Title: "Sum", Examples: []dto.TestCaseResponse{}}},
	})

	status, body := doJSON(t, app, http.MethodGet, "/api/v2/problems/"+problemID.String(), nil)
	require.Equal(t, http.StatusOK, status)
	var problem dto.ProblemResponse
	require.NoError(t, json.Unmarshal(body.Data, &problem))
	require.Equal(t, "Sum", problem.Title)

	status, body = doJSON(t, app, http.MethodGet, "/api/v2/problems/"+problemID.String()+"/submissions?page=2&page_size=1", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, dto.SubmissionListRequest{Page: 2, PageSize: 1}, submissions.listReq)

	var meta dto.PaginationMeta
	require.NoError(t, json.Unmarshal(body.Meta, &meta))
	require.Equal(t, int64(3), meta.TotalItems)
	require.Equal(t, 3, meta.TotalPages)

	status, _ = doJSON(t, app, http.MethodGet, "/api/v2/problems/"+problemID.String()+"/submissions?page=abc", nil)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestProblemNotFound(t *testing.T) {
	app := newTestApp(t, testAppOptions{problems: stubProblemService{err: service.ErrProblemNotFound}})

	status, body := doJSON(t, app, http.MethodGet, "/api/v2/problems/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, status)
	require.False(t, body.Success)
}

func TestLanguagesAreListedWithoutAuthentication(t *testing.T) {
	app := newTestApp(t, testAppOptions{})

	status, body := doJSON(t, app, http.MethodGet, "/api/v1/languages", nil)
	require.Equal(t, http.StatusOK, status)

	var languages []dto.LanguageResponse
	require.NoError(t, json.Unmarshal(body.Data, &languages))
	require.Len(t, languages, len(judge.NewRegistry().Keys()))
	require.Equal(t, "c", languages[0].Key)
}
