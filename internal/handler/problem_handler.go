package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/prepcode-api/internal/dto"
	"github.com/noah-isme/prepcode-api/internal/service"
	"github.com/noah-isme/prepcode-api/internal/utils"
)

// ProblemHandler exposes problem detail and the caller's attempt history.
type ProblemHandler struct {
	problems    service.ProblemService
	submissions service.SubmissionService
	logger      zerolog.Logger
}

// NewProblemHandler constructs the handler.
func NewProblemHandler(problems service.ProblemService, submissions service.SubmissionService, logger zerolog.Logger) *ProblemHandler {
	return &ProblemHandler{
		problems:    problems,
		submissions: submissions,
		logger:      logger.With().Str("component", "problem_handler").Logger(),
	}
}

// Register wires the handler endpoints into the router group.
func (h *ProblemHandler) Register(router fiber.Router) {
	router.Get("/:id", h.get)
	router.Get("/:id/submissions", h.listSubmissions)
}

func (h *ProblemHandler) get(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.problems.Get(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, service.ErrProblemNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("problem lookup failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "problem retrieved", response)
}

func (h *ProblemHandler) listSubmissions(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "page must be a number")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "page_size must be a number")
	}

	result, err := h.submissions.ListForProblem(c.UserContext(), userIDFromContext(c), id, dto.SubmissionListRequest{Page: page, PageSize: pageSize})
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("listing submissions failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.OK(c, result.Items, "submissions retrieved", result.Pagination)
}
