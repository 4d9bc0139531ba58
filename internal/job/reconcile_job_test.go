package job

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/raglib/docqa/internal/filestore"
	"github.com/raglib/docqa/internal/repo"
	"github.com/raglib/docqa/internal/service"
)

type writeOnlyStore struct{}

func (s writeOnlyStore) Type() string {
	return "s3"
}

func (s writeOnlyStore) Save(ctx context.Context, key string, r filestore.ReadSeekCloser, size int64) error {
	return nil
}

func (s writeOnlyStore) Open(ctx context.Context, key string) (filestore.ReadSeekCloser, error) {
	return nil, fmt.Errorf("store does not support open")
}

func (s writeOnlyStore) Delete(ctx context.Context, key string) error {
	return fmt.Errorf("store does not support delete")
}

func TestReconcileSkipsWriteOnlyStore(t *testing.T) {
	// A nil-db repo would panic if the job tried to list documents, so a
	// clean return proves the store check comes first.
	docs := repo.NewDocumentRepo(nil)
	ingest := service.NewIngestService(docs, writeOnlyStore{}, nil, nil, nil, 0)
	j := NewReconcileJob(docs, ingest, writeOnlyStore{})
	require.NoError(t, j.Run(context.Background()))
}
