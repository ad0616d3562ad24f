package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"bugdojo/internal/common/storage"
	"bugdojo/internal/grader/model"
	"bugdojo/pkg/utils/logger"
)

// SubmissionArchive keeps the submitted code and its grade report for later
// inspection. Archiving is best effort; a storage outage never fails the
// grade itself.
type SubmissionArchive interface {
	Archive(ctx context.Context, submissionID, language, userCode string, report model.GradeReport)
}

// ObjectSubmissionArchive writes each submission as two objects under
// submissions/<id>/: the raw source and the report JSON.
type ObjectSubmissionArchive struct {
	store  storage.ObjectStorage
	bucket string
}

// NewSubmissionArchive wraps an object store. store may be nil, in which
// case archiving is disabled.
func NewSubmissionArchive(store storage.ObjectStorage, bucket string) *ObjectSubmissionArchive {
	return &ObjectSubmissionArchive{store: store, bucket: bucket}
}

func (a *ObjectSubmissionArchive) Archive(ctx context.Context, submissionID, language, userCode string, report model.GradeReport) {
	if a.store == nil || submissionID == "" {
		return
	}

	codeKey := fmt.Sprintf("submissions/%s/code.%s", submissionID, sourceExt(language))
	if err := a.store.PutObject(ctx, a.bucket, codeKey,
		strings.NewReader(userCode), int64(len(userCode)), "text/plain"); err != nil {
		logger.Warn(ctx, "archive code failed", zap.String("submission_id", submissionID), zap.Error(err))
		return
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		logger.Error(ctx, "marshal report for archive", zap.Error(err))
		return
	}
	reportKey := fmt.Sprintf("submissions/%s/report.json", submissionID)
	if err := a.store.PutObject(ctx, a.bucket, reportKey,
		strings.NewReader(string(reportJSON)), int64(len(reportJSON)), "application/json"); err != nil {
		logger.Warn(ctx, "archive report failed", zap.String("submission_id", submissionID), zap.Error(err))
	}
}

func sourceExt(language string) string {
	switch language {
	case "c":
		return "c"
	case "python":
		return "py"
	default:
		return "txt"
	}
}

var _ SubmissionArchive = (*ObjectSubmissionArchive)(nil)
