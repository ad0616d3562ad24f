package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bugdojo/internal/common/mq"
	"bugdojo/internal/grader/model"
	"bugdojo/pkg/utils/logger"
)

// GradedTopic is the event stream downstream consumers (stats, notifications)
// subscribe to.
const GradedTopic = "submission.graded"

// ReportPublisher emits an event for every graded submission.
type ReportPublisher interface {
	PublishGraded(ctx context.Context, event GradedEvent)
}

// GradedEvent is the payload published per graded submission.
type GradedEvent struct {
	SubmissionID string            `json:"submission_id"`
	ProblemID    string            `json:"problem_id"`
	Language     string            `json:"language"`
	Report       model.GradeReport `json:"report"`
	GradedAt     time.Time         `json:"graded_at"`
}

// MQReportPublisher publishes graded events to a message queue producer.
// Publishing is fire and forget: a broker outage must never fail a grade
// that already completed.
type MQReportPublisher struct {
	producer mq.Producer
}

// NewReportPublisher wraps a producer. producer may be nil, in which case
// events are dropped.
func NewReportPublisher(producer mq.Producer) *MQReportPublisher {
	return &MQReportPublisher{producer: producer}
}

func (p *MQReportPublisher) PublishGraded(ctx context.Context, event GradedEvent) {
	if p.producer == nil {
		return
	}
	if event.GradedAt.IsZero() {
		event.GradedAt = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		logger.Error(ctx, "marshal graded event", zap.Error(err))
		return
	}
	msg := mq.NewMessage(body)
	msg.ID = uuid.NewString()
	msg.Key = event.ProblemID
	msg.SetHeader("x-event-type", GradedTopic)

	if err := p.producer.Publish(ctx, GradedTopic, msg); err != nil {
		logger.Warn(ctx, "publish graded event failed",
			zap.String("submission_id", event.SubmissionID), zap.Error(err))
	}
}

var _ ReportPublisher = (*MQReportPublisher)(nil)
