package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-chat/internal/model"
)

type recorder struct {
	usages []model.TokenUsage
	err    error
}

func (r *recorder) Create(ctx context.Context, usage *model.TokenUsage) error {
	if r.err != nil {
		return r.err
	}
	r.usages = append(r.usages, *usage)
	return nil
}

func TestHandlePersistsUsage(t *testing.T) {
	rec := &recorder{}
	w := NewUsagePersistWorker(nil, rec, "usage")

	body := []byte(`{"id": 99, "session_id": "s1", "message_id": "m1", "model": "gpt-test",
		"prompt_tokens": 10, "completion_tokens": 4, "total_tokens": 14}`)
	require.NoError(t, w.handle(context.Background(), body))

	require.Len(t, rec.usages, 1)
	got := rec.usages[0]
	assert.Zero(t, got.ID)
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, "m1", got.MessageID)
	assert.Equal(t, 14, got.TotalTokens)
}

func TestHandleRejectsBadPayloads(t *testing.T) {
	rec := &recorder{}
	w := NewUsagePersistWorker(nil, rec, "usage")

	assert.Error(t, w.handle(context.Background(), []byte("not json")))
	assert.Error(t, w.handle(context.Background(), []byte(`{"message_id": "m1"}`)))
	assert.Empty(t, rec.usages)
}

func TestHandlePropagatesStoreError(t *testing.T) {
	rec := &recorder{err: errors.New("db down")}
	w := NewUsagePersistWorker(nil, rec, "usage")

	err := w.handle(context.Background(), []byte(`{"session_id": "s1"}`))
	assert.ErrorIs(t, err, rec.err)
}

func TestCloseWithoutStart(t *testing.T) {
	w := NewUsagePersistWorker(nil, &recorder{}, "usage")
	w.Close()
}
