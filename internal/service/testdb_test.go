package service

import (
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/prepcode-api/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Problem{}, &models.TestCase{}, &models.Submission{}, &models.MockSession{}, &models.MockSessionProblem{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mini, client
}

func seedProblem(t *testing.T, db *gorm.DB, visible, hidden int) models.Problem {
	t.Helper()
	problem := models.Problem{
		Title:      "Sum of Two",
		Slug:       "sum-" + uuid.NewString()[:8],
		Difficulty: "easy",
	}
	for i := 0; i < visible; i++ {
		problem.TestCases = append(problem.TestCases, models.TestCase{
			Position:       i,
			Input:          fmt.Sprintf("%d %d", i, i),
			ExpectedOutput: fmt.Sprintf("%d", 2*i),
			Visible:        true,
		})
	}
	for i := 0; i < hidden; i++ {
		problem.TestCases = append(problem.TestCases, models.TestCase{
			Position:       i,
			Input:          fmt.Sprintf("secret %d", i),
			ExpectedOutput: fmt.Sprintf("hidden %d", i),
		})
	}
	require.NoError(t, db.Create(&problem).Error)
	return problem
}
