package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/leaderforge/leaderforge-bfa-go/internal/domain"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/observability"
	"github.com/leaderforge/leaderforge-bfa-go/internal/port"

	"go.uber.org/zap"
)

const (
	catalogCacheName = "training_catalog"
	catalogCacheKey  = "trainings"
)

// TrainingCatalog serves the video trainings published in the content API.
type TrainingCatalog struct {
	content  port.ContentFetcher
	cache    port.Cache[[]domain.Training]
	progress port.ActivityReader
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewTrainingCatalog creates the catalog service.
func NewTrainingCatalog(
	content port.ContentFetcher,
	cache port.Cache[[]domain.Training],
	progress port.ActivityReader,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *TrainingCatalog {
	return &TrainingCatalog{
		content:  content,
		cache:    cache,
		progress: progress,
		metrics:  metrics,
		logger:   logger,
	}
}

// ListTrainings returns the catalog ordered by publish date, oldest first.
func (c *TrainingCatalog) ListTrainings(ctx context.Context) ([]domain.Training, error) {
	if cached, ok := c.cache.Get(catalogCacheKey); ok {
		c.metrics.IncrCacheHit(catalogCacheName)
		return cached, nil
	}
	c.metrics.IncrCacheMiss(catalogCacheName)

	ctx, span := tracer.Start(ctx, "TrainingCatalog.ListTrainings")
	defer span.End()

	start := time.Now()
	trainings, err := c.content.ListTrainings(ctx)
	c.metrics.RecordDuration("list_trainings", time.Since(start))
	if err != nil {
		c.metrics.IncrExternalError("tribe")
		c.logger.Error("training catalog fetch failed", zap.Error(err))
		return nil, err
	}

	sortTrainings(trainings)
	c.cache.Set(catalogCacheKey, trainings)
	return trainings, nil
}

// Titles maps training ids to titles.
func (c *TrainingCatalog) Titles(ctx context.Context) (map[string]string, error) {
	trainings, err := c.ListTrainings(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(trainings))
	for _, t := range trainings {
		out[t.ID] = t.Title
	}
	return out, nil
}

// ForUser joins the catalog with the caller's progress.
func (c *TrainingCatalog) ForUser(ctx context.Context, sess domain.Session) (*domain.TrainingPlan, error) {
	trainings, err := c.ListTrainings(ctx)
	if err != nil {
		return nil, err
	}
	progress, err := c.progress.GetTrainingProgress(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("training progress: %w", err)
	}

	plan := &domain.TrainingPlan{Trainings: make([]domain.TrainingStatus, len(trainings))}
	lastDone := -1
	for i, t := range trainings {
		p := progress[t.ID]
		plan.Trainings[i] = domain.TrainingStatus{
			Training:           t,
			VideoCompleted:     p.VideoCompleted,
			WorksheetCompleted: p.WorksheetCompleted,
		}
		if p.Completed() {
			lastDone = i
		}
	}
	if next := lastDone + 1; next < len(trainings) {
		plan.NextTrainingID = trainings[next].ID
	}
	return plan, nil
}

func sortTrainings(ts []domain.Training) {
	sort.SliceStable(ts, func(i, j int) bool {
		if !ts[i].PublishedAt.Equal(ts[j].PublishedAt) {
			return ts[i].PublishedAt.Before(ts[j].PublishedAt)
		}
		return ts[i].ID < ts[j].ID
	})
}

// trainingTitle falls back to a generic label for ids missing from the catalog.
func trainingTitle(titles map[string]string, id string) string {
	if t, ok := titles[id]; ok && t != "" {
		return t
	}
	return "Training " + id
}
