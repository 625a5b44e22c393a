package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/prepcode-api/internal/dto"
	"github.com/noah-isme/prepcode-api/internal/repository"
)

// ErrProblemNotFound indicates the problem does not exist.
var ErrProblemNotFound = errors.New("problem not found")

// ProblemService exposes read access to problems.
type ProblemService interface {
	Get(ctx context.Context, id uuid.UUID) (dto.ProblemResponse, error)
	Invalidate(ctx context.Context, id uuid.UUID)
}

// ProblemConfig holds cache and limit settings for problem detail.
type ProblemConfig struct {
	CacheTTL time.Duration
	// Limits advertised for problems without their own; they must match SubmissionConfig.
	DefaultTimeLimitMs   int
	DefaultMemoryLimitKB int
}

type problemService struct {
	problems repository.ProblemRepository
	cache    *redis.Client
	config   ProblemConfig
	logger   zerolog.Logger
}

// NewProblemService constructs the problem service. cache may be nil.
func NewProblemService(problems repository.ProblemRepository, cache *redis.Client, cfg ProblemConfig, logger zerolog.Logger) ProblemService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	return &problemService{
		problems: problems,
		cache:    cache,
		config:   cfg,
		logger:   logger.With().Str("component", "problem_service").Logger(),
	}
}

func problemCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("problem:detail:%s", id)
}

func (s *problemService) Get(ctx context.Context, id uuid.UUID) (dto.ProblemResponse, error) {
	cacheKey := problemCacheKey(id)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.ProblemResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Str("problem_id", id.String()).Msg("problem cache hit")
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read problem cache")
		}
	}

	problem, err := s.problems.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProblemResponse{}, ErrProblemNotFound
		}
		return dto.ProblemResponse{}, err
	}

	response := dto.NewProblemResponse(problem, s.config.DefaultTimeLimitMs, s.config.DefaultMemoryLimitKB)

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.config.CacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store problem cache")
			}
		}
	}

	return response, nil
}

// Invalidate drops the cached detail so counters are re-read on the next request.
func (s *problemService) Invalidate(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, problemCacheKey(id)).Err(); err != nil {
		s.logger.Warn().Err(err).Str("problem_id", id.String()).Msg("failed to invalidate problem cache")
	}
}
