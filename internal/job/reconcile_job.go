package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/raglib/docqa/internal/filestore"
	"github.com/raglib/docqa/internal/model"
	"github.com/raglib/docqa/internal/repo"
	"github.com/raglib/docqa/internal/service"
)

// ReconcileJob retries documents stuck in a non-ready state, typically after
// a crash mid-ingest or an ai provider outage.
type ReconcileJob struct {
	docs     *repo.DocumentRepo
	ingest   *service.IngestService
	files    filestore.Store
	minAge   time.Duration
	maxRetry int
}

func NewReconcileJob(docs *repo.DocumentRepo, ingest *service.IngestService, files filestore.Store) *ReconcileJob {
	return &ReconcileJob{
		docs:     docs,
		ingest:   ingest,
		files:    files,
		minAge:   10 * time.Minute,
		maxRetry: 5,
	}
}

func (j *ReconcileJob) Name() string {
	return "document_reconcile"
}

func (j *ReconcileJob) Run(ctx context.Context) error {
	if j.docs == nil || j.ingest == nil {
		return nil
	}
	// The s3 store is write-only, so reingest can never read the stored
	// file back. Retrying those documents just repeats the same failure.
	if j.files != nil && j.files.Type() == "s3" {
		logutil.GetLogger(ctx).Info("file store does not support reads, skip reconcile",
			zap.String("store_type", j.files.Type()))
		return nil
	}
	docs, err := j.docs.List(ctx)
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-j.minAge).Unix()
	retried := 0
	for _, doc := range docs {
		if doc.Status == model.DocumentStatusReady {
			continue
		}
		if doc.Mtime > cutoff {
			continue
		}
		if retried >= j.maxRetry {
			break
		}
		retried++
		logger := logutil.GetLogger(ctx).With(
			zap.String("filename", doc.Filename),
			zap.String("status", doc.Status),
		)
		if err := j.ingest.Reingest(ctx, doc.Filename); err != nil {
			logger.Warn("reingest failed", zap.Error(err))
			continue
		}
		logger.Info("document reingested")
	}
	return nil
}
