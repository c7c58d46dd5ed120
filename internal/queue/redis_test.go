package queue_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/mock/gomock"

	"github.com/codearena/judge-api/internal/queue"
	mockqueue "github.com/codearena/judge-api/internal/queue/mock"
	"github.com/codearena/judge-api/internal/types"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := t.Context()

	ct, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7.4-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start redis container")
	t.Cleanup(func() {
		assert.NoError(t, testcontainers.TerminateContainer(ct))
	})

	endpoint, err := ct.Endpoint(ctx, "")
	require.NoError(t, err, "failed to get redis endpoint")

	rdb := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = rdb.Close() })

	require.NoError(t, rdb.Ping(ctx).Err())
	return rdb
}

func TestRedis(t *testing.T) {
	ctx := t.Context()
	rdb := startRedis(t)

	newQueuer := func(t *testing.T) *queue.RedisQueuer {
		q := queue.NewRedisQueuer(rdb, fmt.Sprintf("test:%s", t.Name()))
		q.BlockTimeout = 100 * time.Millisecond
		return q
	}

	t.Run("EnqueueDequeue", func(t *testing.T) {
		q := newQueuer(t)
		ctrl := gomock.NewController(t)
		handler := mockqueue.NewMockMessageHandler(ctrl)

		msg := types.NewJudgerMsgHeartbeat("judger-1", 1700000000000)
		require.NoError(t, q.Enqueue(ctx, msg))

		handler.EXPECT().
			Handle(gomock.Any(), gomock.Eq([]byte(`{"type":"heartbeat","judger_id":"judger-1","timestamp":1700000000000}`))).
			Return(nil)

		require.NoError(t, q.Dequeue(ctx, time.Minute, handler))

		assert.Zero(t, rdb.LLen(ctx, q.ProcessingKey()).Val(), "processing list should be empty")
		assert.Zero(t, rdb.LLen(ctx, q.DeadLetterKey()).Val())
	})

	t.Run("FIFO", func(t *testing.T) {
		q := newQueuer(t)
		ctrl := gomock.NewController(t)
		handler := mockqueue.NewMockMessageHandler(ctrl)

		require.NoError(t, q.Enqueue(ctx, "first"))
		require.NoError(t, q.Enqueue(ctx, "second"))

		gomock.InOrder(
			handler.EXPECT().Handle(gomock.Any(), gomock.Eq([]byte(`"first"`))),
			handler.EXPECT().Handle(gomock.Any(), gomock.Eq([]byte(`"second"`))),
		)

		require.NoError(t, q.Dequeue(ctx, time.Minute, handler))
		require.NoError(t, q.Dequeue(ctx, time.Minute, handler))
	})

	t.Run("Empty", func(t *testing.T) {
		q := newQueuer(t)
		ctrl := gomock.NewController(t)
		handler := mockqueue.NewMockMessageHandler(ctrl)
		handler.EXPECT().Handle(gomock.Any(), gomock.Any()).Times(0)

		cctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()

		require.Error(t, q.Dequeue(cctx, time.Minute, handler))
	})

	t.Run("Poisoned", func(t *testing.T) {
		q := newQueuer(t)
		ctrl := gomock.NewController(t)
		handler := mockqueue.NewMockMessageHandler(ctrl)

		require.NoError(t, q.Enqueue(ctx, "garbage"))
		handler.EXPECT().
			Handle(gomock.Any(), gomock.Any()).
			Return(queue.WrapPoisonError(errors.New("bad")))

		require.NoError(t, q.Dequeue(ctx, time.Minute, handler))

		assert.Zero(t, rdb.LLen(ctx, q.ProcessingKey()).Val())
		dead, err := rdb.LRange(ctx, q.DeadLetterKey(), 0, -1).Result()
		require.NoError(t, err)
		assert.Equal(t, []string{`"garbage"`}, dead)
	})

	t.Run("FailedIsRequeued", func(t *testing.T) {
		q := newQueuer(t)
		ctrl := gomock.NewController(t)
		handler := mockqueue.NewMockMessageHandler(ctrl)

		require.NoError(t, q.Enqueue(ctx, "flaky"))
		gomock.InOrder(
			handler.EXPECT().Handle(gomock.Any(), gomock.Any()).Return(errors.New("db down")),
			handler.EXPECT().Handle(gomock.Any(), gomock.Eq([]byte(`"flaky"`))).Return(nil),
		)

		err := q.Dequeue(ctx, time.Minute, handler)
		require.ErrorIs(t, err, queue.ErrRequeued)
		assert.ErrorContains(t, err, "db down")
		assert.False(t, queue.IsPoison(err))
		assert.Equal(t, int64(1), rdb.LLen(ctx, fmt.Sprintf("test:%s", t.Name())).Val())
		assert.Zero(t, rdb.LLen(ctx, q.ProcessingKey()).Val())

		require.NoError(t, q.Dequeue(ctx, time.Minute, handler))
		assert.Zero(t, rdb.LLen(ctx, q.ProcessingKey()).Val())
	})

	t.Run("Recover", func(t *testing.T) {
		q := newQueuer(t)
		ctrl := gomock.NewController(t)
		handler := mockqueue.NewMockMessageHandler(ctrl)

		// simulate a consumer that crashed mid-handle
		require.NoError(t, rdb.LPush(ctx, q.ProcessingKey(), `"stranded"`).Err())

		recovered, err := q.Recover(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, recovered)

		handler.EXPECT().Handle(gomock.Any(), gomock.Eq([]byte(`"stranded"`))).Return(nil)
		require.NoError(t, q.Dequeue(ctx, time.Minute, handler))
	})
}
