package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []string
	failKeys  map[string]bool
}

func (f *fakePublisher) PublishMessage(_ context.Context, _, routingKey string, message []byte, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failKeys[routingKey] {
		return errors.New("broker unavailable")
	}
	f.published = append(f.published, string(message))
	return nil
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}),
		&gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	return db, mock
}

func outboxRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "aggregate_type", "aggregate_id", "event_type", "payload",
		"target_exchange", "target_routing_key", "status", "retry_count",
	})
}

func TestProcessPending_PublishesAndUpdates(t *testing.T) {
	db, mock := newMockDB(t)
	pub := &fakePublisher{failKeys: map[string]bool{"analysis.broken": true}}
	relay := NewMessageRelay(db, pub, WithBatchSize(5))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `outbox_messages` WHERE status = \\?").
		WillReturnRows(outboxRows().
			AddRow(1, "analysis", "a1", "analysis.completed", `{"analysis_id":"a1"}`, "resume.analysis.exchange", "analysis.completed", "PENDING", 0).
			AddRow(2, "analysis", "a2", "analysis.completed", `{"analysis_id":"a2"}`, "resume.analysis.exchange", "analysis.broken", "PENDING", 4))
	mock.ExpectExec("UPDATE `outbox_messages`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `outbox_messages`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := relay.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{`{"analysis_id":"a1"}`}, pub.published)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessPending_EmptyPoll(t *testing.T) {
	db, mock := newMockDB(t)
	relay := NewMessageRelay(db, &fakePublisher{})

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `outbox_messages`").WillReturnRows(outboxRows())
	mock.ExpectCommit()

	n, err := relay.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessPending_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	relay := NewMessageRelay(db, &fakePublisher{})

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `outbox_messages`").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := relay.ProcessPending(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelay_StartStop(t *testing.T) {
	db, _ := newMockDB(t)
	relay := NewMessageRelay(db, &fakePublisher{}, WithPollingInterval(time.Hour))
	assert.Equal(t, time.Hour, relay.pollingInterval)
	assert.Equal(t, defaultBatchSize, relay.batchSize)

	relay.Start()
	relay.Stop()
	relay.Stop()
}
