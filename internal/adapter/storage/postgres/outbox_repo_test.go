package postgres

import (
	"context"
	"testing"
	"time"

	"payauth-platform/internal/core/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxRepository_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOutboxRepository(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)
	row := domain.OutboxRow{
		Destination:   domain.DestinationAuthRequests,
		MessageGroup:  "agg-1",
		DedupKey:      "agg-1:1",
		Payload:       []byte(`{}`),
		CreatedAt:     now,
		NextAttemptAt: now,
	}

	mock.ExpectExec("INSERT INTO payment_outbox").
		WithArgs(row.Destination, row.MessageGroup, row.DedupKey, row.Payload, row.CreatedAt, row.AttemptCount, row.NextAttemptAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Insert(context.Background(), mock, row)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_ClaimUndelivered(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOutboxRepository(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT .+ FROM payment_outbox WHERE processed_at IS NULL").
		WithArgs(5).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "destination", "message_group", "dedup_key", "payload", "created_at",
			"processed_at", "attempt_count", "next_attempt_at",
		}).AddRow(int64(1), domain.DestinationAuthRequests, "agg-1", "agg-1:1", []byte(`{}`), now, nil, 0, now))

	rows, err := repo.ClaimUndelivered(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.DestinationAuthRequests, rows[0].Destination)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_MarkDelivered(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOutboxRepository(mock)

	mock.ExpectExec("UPDATE payment_outbox SET processed_at").
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.MarkDelivered(context.Background(), 7)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_MarkAttempt(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOutboxRepository(mock)
	nextAttempt := time.Now().Add(time.Minute).Unix()

	mock.ExpectExec("UPDATE payment_outbox SET attempt_count").
		WithArgs(int64(7), time.Unix(nextAttempt, 0)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.MarkAttempt(context.Background(), 7, nextAttempt)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
