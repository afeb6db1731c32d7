// Package tribe calls the Tribe content API that hosts the training videos.
package tribe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/leaderforge/leaderforge-bfa-go/internal/calendar"
	"github.com/leaderforge/leaderforge-bfa-go/internal/domain"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("tribe")

const (
	serviceName       = "tribe"
	defaultInstructor = "Brilliant OS"
)

// Client fetches the training collection from Tribe.
type Client struct {
	httpClient *http.Client
	contentURL string
	token      string
	cdnURL     string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	logger     *zap.Logger
}

// NewClient creates a Tribe content client.
func NewClient(httpClient *http.Client, contentURL, token, cdnURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		contentURL: contentURL,
		token:      token,
		cdnURL:     strings.TrimRight(cdnURL, "/"),
		cb:         cb,
		cfg:        cfg,
		logger:     logger,
	}
}

// collection is the subset of the Tribe collection payload we read.
type collection struct {
	Contents []content `json:"Contents"`
}

type content struct {
	ID                json.Number `json:"id"`
	Title             string      `json:"title"`
	Description       string      `json:"description"`
	DescriptionPlain  string      `json:"descriptionPlain"`
	PublishedDate     any         `json:"publishedDate"`
	CreatedAt         any         `json:"createdAt"`
	TranscodingDataLP string      `json:"transcodingDataLP"`
	FeaturedImage     string      `json:"featuredImage"`
	CoverImage        string      `json:"coverImage"`
	ImageURL          string      `json:"imageUrl"`
	Image             string      `json:"image"`
	User              *struct {
		Name string `json:"name"`
	} `json:"User"`
}

// ListTrainings returns the collection as trainings, oldest first.
func (c *Client) ListTrainings(ctx context.Context) ([]domain.Training, error) {
	ctx, span := tracer.Start(ctx, "Tribe.ListTrainings")
	defer span.End()

	var payload collection
	err := resilience.Call(ctx, c.cb, c.cfg, serviceName, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.contentURL, nil)
		if err != nil {
			return resilience.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			statusErr := fmt.Errorf("tribe API returned status %d", resp.StatusCode)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return resilience.Permanent(statusErr)
			}
			return statusErr
		}

		payload = collection{}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return resilience.Permanent(fmt.Errorf("decode collection: %w", err))
		}
		return nil
	})
	if err != nil {
		c.logger.Error("tribe: failed to fetch content", zap.Error(err))
		return nil, &domain.ErrExternalService{Service: serviceName, Err: err}
	}

	trainings := make([]domain.Training, 0, len(payload.Contents))
	for _, item := range payload.Contents {
		trainings = append(trainings, c.toTraining(item))
	}
	sort.SliceStable(trainings, func(i, j int) bool {
		return trainings[i].PublishedAt.Before(trainings[j].PublishedAt)
	})

	span.SetAttributes(attribute.Int("trainings.count", len(trainings)))
	return trainings, nil
}

func (c *Client) toTraining(item content) domain.Training {
	t := domain.Training{
		ID:            item.ID.String(),
		Title:         item.Title,
		Description:   item.DescriptionPlain,
		Instructor:    defaultInstructor,
		VideoURL:      c.videoURL(item),
		FeaturedImage: c.imageURL(item),
	}
	if t.Description == "" {
		t.Description = item.Description
	}
	if item.User != nil && item.User.Name != "" {
		t.Instructor = item.User.Name
	}
	if ts, ok := calendar.ToInstant(item.PublishedDate); ok {
		t.PublishedAt = ts
	} else if ts, ok := calendar.ToInstant(item.CreatedAt); ok {
		t.PublishedAt = ts
	}
	return t
}

// videoURL resolves the root HLS playlist from the transcoding metadata.
func (c *Client) videoURL(item content) string {
	if item.TranscodingDataLP == "" {
		return ""
	}
	var data struct {
		HLS string `json:"hls"`
	}
	if err := json.Unmarshal([]byte(item.TranscodingDataLP), &data); err != nil {
		c.logger.Warn("tribe: bad transcoding data",
			zap.String("content_id", item.ID.String()),
			zap.Error(err),
		)
		return ""
	}
	if data.HLS == "" {
		return ""
	}
	return c.cdnURL + "/" + data.HLS
}

func (c *Client) imageURL(item content) string {
	switch {
	case item.FeaturedImage != "":
		return c.cdnURL + "/" + item.FeaturedImage
	case item.CoverImage != "":
		return c.cdnURL + "/" + item.CoverImage
	case item.ImageURL != "":
		if strings.HasPrefix(item.ImageURL, "http") {
			return item.ImageURL
		}
		return c.cdnURL + "/" + item.ImageURL
	case item.Image != "":
		return c.cdnURL + "/" + item.Image
	}
	return ""
}
