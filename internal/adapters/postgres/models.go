package postgres

import (
	"time"

	"github.com/lib/pq"
)

const (
	postVisibilityPublic = "public"
	postStatusPublished  = "published"
)

type postModel struct {
	PostID       string         `gorm:"column:post_id;primaryKey"`
	AuthorID     string         `gorm:"column:author_id"`
	PublishedAt  time.Time      `gorm:"column:published_at"`
	Visibility   string         `gorm:"column:visibility"`
	Status       string         `gorm:"column:status"`
	Tags         pq.StringArray `gorm:"column:tags;type:text[]"`
	Hashtags     pq.StringArray `gorm:"column:hashtags;type:text[]"`
	LikeCount    int64          `gorm:"column:like_count"`
	CommentCount int64          `gorm:"column:comment_count"`
	ShareCount   int64          `gorm:"column:share_count"`
}

func (postModel) TableName() string { return "posts" }

type interactionModel struct {
	InteractionID int64     `gorm:"column:interaction_id;primaryKey"`
	UserID        string    `gorm:"column:user_id"`
	AuthorID      string    `gorm:"column:author_id"`
	PostID        string    `gorm:"column:post_id"`
	Kind          string    `gorm:"column:kind"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (interactionModel) TableName() string { return "interactions" }

type interactionCountsRow struct {
	AuthorID string `gorm:"column:author_id"`
	Likes    int64  `gorm:"column:likes"`
	Comments int64  `gorm:"column:comments"`
	Shares   int64  `gorm:"column:shares"`
}

type editorPickModel struct {
	PostID    string    `gorm:"column:post_id;primaryKey"`
	Priority  int       `gorm:"column:priority"`
	IsActive  bool      `gorm:"column:is_active"`
	AddedBy   string    `gorm:"column:added_by"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (editorPickModel) TableName() string { return "editor_picks" }

type cohortModel struct {
	CohortID        string    `gorm:"column:cohort_id;primaryKey"`
	Name            string    `gorm:"column:name"`
	Description     string    `gorm:"column:description"`
	AlgorithmConfig []byte    `gorm:"column:algorithm_config;type:jsonb"`
	Priority        int       `gorm:"column:priority"`
	IsActive        bool      `gorm:"column:is_active"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (cohortModel) TableName() string { return "feed_cohorts" }

type experimentModel struct {
	ExperimentID string     `gorm:"column:experiment_id;primaryKey"`
	CohortID     *string    `gorm:"column:cohort_id"`
	Name         string     `gorm:"column:name"`
	Description  string     `gorm:"column:description"`
	Status       string     `gorm:"column:status"`
	Variants     []byte     `gorm:"column:variants;type:jsonb"`
	StartDate    *time.Time `gorm:"column:start_date"`
	EndDate      *time.Time `gorm:"column:end_date"`
	CreatedBy    string     `gorm:"column:created_by"`
	Results      []byte     `gorm:"column:results;type:jsonb"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

func (experimentModel) TableName() string { return "feed_experiments" }

type experimentEventModel struct {
	EventID            string    `gorm:"column:event_id;primaryKey"`
	ExperimentID       string    `gorm:"column:experiment_id"`
	UserID             string    `gorm:"column:user_id"`
	VariantName        string    `gorm:"column:variant_name"`
	EventType          string    `gorm:"column:event_type"`
	PostID             string    `gorm:"column:post_id"`
	SessionDurationSec *int64    `gorm:"column:session_duration_s"`
	OccurredAt         time.Time `gorm:"column:occurred_at"`
}

func (experimentEventModel) TableName() string { return "experiment_events" }

type variantCountsRow struct {
	VariantName        string   `gorm:"column:variant_name"`
	Impressions        int64    `gorm:"column:impressions"`
	Clicks             int64    `gorm:"column:clicks"`
	Likes              int64    `gorm:"column:likes"`
	SessionStarts      int64    `gorm:"column:session_starts"`
	AvgSessionDuration *float64 `gorm:"column:avg_session_duration"`
}
