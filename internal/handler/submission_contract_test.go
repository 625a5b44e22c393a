package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/noah-isme/prepcode-api/internal/dto"
	"github.com/noah-isme/prepcode-api/internal/models"
)

func TestSubmissionResponseContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("testdata", "submission_response.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + filepath.ToSlash(schemaPath))
	require.NoError(t, err)

	visibleInput := "1 2"
	visibleExpected := "3"
	visibleActual := "3\n"
	evaluatedAt := time.Now().UTC()
	submission := models.Submission{
		ID:              uuid.New(),
		UserID:          7,
		ProblemID:       uuid.New(),
		SourceCode:      "print(sum(map(int, input().split())))",
		Language:        "python",
		AttemptNumber:   2,
		Status:          models.SubmissionStatusAccepted,
		RuntimeMs:       24,
		MemoryKB:        3200,
		TestCasesPassed: 2,
		TestCasesTotal:  2,
		Results: datatypes.JSONSlice[models.TestCaseResult]{
			{Index: 0, Outcome: models.TestCaseOutcomePassed, Status: models.SubmissionStatusAccepted, RuntimeMs: 12, MemoryKB: 3200, Input: &visibleInput, ExpectedOutput: &visibleExpected, ActualOutput: &visibleActual},
			{Index: 1, Outcome: models.TestCaseOutcomePassed, Status: models.SubmissionStatusAccepted, RuntimeMs: 12, MemoryKB: 3100, Hidden: true},
		},
		EvaluatedAt: &evaluatedAt,
		CreatedAt:   evaluatedAt,
	}

	stub := &stubSubmissionService{getResponse: dto.NewSubmissionResponse(submission, true)}
	app := newTestApp(t, testAppOptions{submission: stub})

	req := httptest.NewRequest(http.MethodGet, "/api/v2/submissions/"+submission.ID.String(), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON))

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))

	results := payload.(map[string]interface{})["data"].(map[string]interface{})["results"].([]interface{})
	require.Len(t, results, 1)
}
