package database

import (
	"context"
	"encoding/json"
	"testing"

	"serwis-uzytkownikow/internal/models"

	"github.com/stretchr/testify/require"
)

func countEvents(t *testing.T) int {
	t.Helper()
	var count int
	err := testStore.GetPool().QueryRow(context.Background(),
		"SELECT count(*) FROM event_journal").Scan(&count)
	require.NoError(t, err)
	return count
}

func TestExecRecorded_JournalsWithMutation(t *testing.T) {
	ctx := context.Background()
	actor := createTestUser(t, CreateUserParams{Email: uniqueEmail(t)})

	var created *models.User
	err := testStore.ExecRecorded(ctx, &actor.ID, EventUserCreated, func(q *Queries) (int64, interface{}, error) {
		u, err := q.CreateUser(ctx, CreateUserParams{Email: uniqueEmail(t)})
		if err != nil {
			return 0, nil, err
		}
		created = u
		return u.ID, u, nil
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	events, err := testStore.GetEventsSince(ctx, 0)
	require.NoError(t, err)

	var found *Event
	for i := range events {
		if events[i].EventType == EventUserCreated && events[i].ActorID != nil && *events[i].ActorID == actor.ID {
			found = &events[i]
		}
	}
	require.NotNil(t, found, "a committed mutation always has its journal entry")

	var payload models.User
	require.NoError(t, json.Unmarshal(found.Payload, &payload))
	require.Equal(t, created.ID, payload.ID)
}

func TestExecRecorded_FailedMutationLeavesNoJournalEntry(t *testing.T) {
	ctx := context.Background()
	existing := createTestUser(t, CreateUserParams{Email: uniqueEmail(t)})

	before := countEvents(t)

	err := testStore.ExecRecorded(ctx, &existing.ID, EventUserCreated, func(q *Queries) (int64, interface{}, error) {
		u, err := q.CreateUser(ctx, CreateUserParams{Email: existing.Email})
		if err != nil {
			return 0, nil, err
		}
		return u.ID, u, nil
	})
	require.ErrorIs(t, err, ErrDuplicateEmail)

	require.Equal(t, before, countEvents(t), "a rolled-back mutation journals nothing")
}

func TestExecRecorded_FailedJournalRollsBackMutation(t *testing.T) {
	ctx := context.Background()
	email := uniqueEmail(t)

	// A channel payload cannot be marshaled, so the journal insert fails
	// after the user insert succeeded inside the same transaction.
	err := testStore.ExecRecorded(ctx, nil, EventUserCreated, func(q *Queries) (int64, interface{}, error) {
		u, err := q.CreateUser(ctx, CreateUserParams{Email: email})
		if err != nil {
			return 0, nil, err
		}
		return u.ID, make(chan int), nil
	})
	require.Error(t, err)

	ghost, err := testStore.GetUserByEmail(ctx, email)
	require.NoError(t, err)
	require.Nil(t, ghost, "the mutation must not outlive its journal entry")
}
