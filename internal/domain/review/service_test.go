package review

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/photo-caption/internal/domain/caption"
	"github.com/yanqian/photo-caption/internal/infra/objectstore"
	apperrors "github.com/yanqian/photo-caption/pkg/errors"
)

func putRecord(t *testing.T, store *objectstore.MemoryStore, id, captionText string) {
	t.Helper()
	record := caption.AnalysisRecord{
		AnalysisID:       id,
		Timestamp:        time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		OriginalFilename: id + ".jpg",
		ImageKey:         "images/" + id + "_photo.jpg",
		Result: caption.Result{
			AnalysisID: id,
			Caption:    captionText,
			Tags:       []string{"a", "b"},
			Safety:     &caption.SafetyReport{Safe: true},
		},
	}
	payload, err := json.Marshal(record)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), caption.ResultKey(id), payload, "application/json"))
}

func newTestService(store ObjectReader) Service {
	return NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestListNewestFirst(t *testing.T) {
	store := objectstore.NewMemoryStore()
	putRecord(t, store, "analysis_20240501_120000_aaaaaaaa", "first")
	putRecord(t, store, "analysis_20240502_120000_bbbbbbbb", "second")
	putRecord(t, store, "analysis_20240503_120000_cccccccc", "third")
	require.NoError(t, store.Put(context.Background(), "results/broken.json", []byte("{"), "application/json"))

	svc := newTestService(store)
	items, err := svc.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "third", items[0].Caption)
	require.Equal(t, "second", items[1].Caption)
	require.NotNil(t, items[0].Safe)
	require.True(t, *items[0].Safe)

	all, err := svc.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestGetRecord(t *testing.T) {
	store := objectstore.NewMemoryStore()
	putRecord(t, store, "analysis_20240501_120000_aaaaaaaa", "first")
	svc := newTestService(store)

	record, err := svc.Get(context.Background(), "analysis_20240501_120000_aaaaaaaa")
	require.NoError(t, err)
	require.Equal(t, "first", record.Result.Caption)

	_, err = svc.Get(context.Background(), "analysis_missing")
	require.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	_, err = svc.Get(context.Background(), "../secrets")
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}

func TestStats(t *testing.T) {
	store := objectstore.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "images/a.jpg", make([]byte, 1<<20), "image/jpeg"))
	require.NoError(t, store.Put(ctx, "images/b.jpg", make([]byte, 1<<19), "image/jpeg"))
	require.NoError(t, store.Put(ctx, "results/a.json", []byte("{}"), "application/json"))

	stats, err := newTestService(store).Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.ImageCount)
	require.Equal(t, 1, stats.ResultCount)
	require.InDelta(t, 1.5, stats.TotalSizeMB, 0.01)
}
