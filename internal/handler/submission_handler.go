package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/prepcode-api/internal/dto"
	"github.com/noah-isme/prepcode-api/internal/judge"
	"github.com/noah-isme/prepcode-api/internal/service"
	"github.com/noah-isme/prepcode-api/internal/utils"
)

// SubmissionHandler manages graded submissions and ad-hoc runs.
type SubmissionHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the read routes to the provided router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Get("/:id", h.get)
}

// RegisterGrading attaches the executing routes. They are mounted separately so
// the caller can put rate limiting in front of them.
func (h *SubmissionHandler) RegisterGrading(router fiber.Router, guards ...fiber.Handler) {
	router.Post("", append(guards, h.submit)...)
	router.Post("/run", append(guards, h.run)...)
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	var payload dto.SubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Submit(c.UserContext(), userIDFromContext(c), payload)
	if err != nil {
		if isExecutorFailure(err) && response.Status != "" {
			requestLogger(h.logger, c).Warn().Err(err).Str("submission_id", response.ID.String()).Msg("submission recorded as internal error")
			return utils.Fail(c, fiber.StatusServiceUnavailable, "code execution is temporarily unavailable", response)
		}
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission judged", response)
}

func (h *SubmissionHandler) run(c *fiber.Ctx) error {
	var payload dto.RunRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Run(c.UserContext(), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "code executed", response)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Get(c.UserContext(), id, userIDFromContext(c), userRoleFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission retrieved", response)
}

func (h *SubmissionHandler) handleError(c *fiber.Ctx, err error) error {
	if message, ok := validationMessage(err); ok {
		return utils.SendError(c, fiber.StatusBadRequest, message)
	}

	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, judge.ErrUnsupportedLanguage):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrProblemNotFound), errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNoTestCases):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrSubmissionForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "you cannot view this submission")
	case isExecutorFailure(err):
		requestLogger(h.logger, c).Warn().Err(err).Msg("execution service failure")
		return utils.SendError(c, fiber.StatusServiceUnavailable, "code execution is temporarily unavailable")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("submission request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func isExecutorFailure(err error) bool {
	return errors.Is(err, judge.ErrExecutorUnavailable) || errors.Is(err, judge.ErrResultsNotReady)
}
