package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakeStore records appends. Like the real store it exposes no way to change
// or remove an entry once written.
type fakeStore struct {
	entries   []Entry
	appendErr error
}

func (s *fakeStore) Append(ctx context.Context, entry Entry) (Entry, error) {
	if s.appendErr != nil {
		return Entry{}, s.appendErr
	}
	s.entries = append(s.entries, entry)
	return entry, nil
}

func (s *fakeStore) Query(ctx context.Context, tenantID string, filters Filters, pagination Pagination) ([]Entry, int64, error) {
	var matched []Entry
	for _, entry := range s.entries {
		if entry.TenantID != tenantID {
			continue
		}
		if filters.Action != "" && entry.Action != filters.Action {
			continue
		}
		matched = append(matched, entry)
	}
	return matched, int64(len(matched)), nil
}

func (s *fakeStore) History(ctx context.Context, entityType, entityID string) ([]Entry, error) {
	var matched []Entry
	for _, entry := range s.entries {
		if entry.EntityType == entityType && entry.EntityID == entityID {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

func validEntry() Entry {
	return Entry{
		TenantID:   "tenant-a",
		ActorID:    "user-1",
		ActorRole:  "SPONSOR",
		Action:     "created",
		EntityType: "Proposal",
		EntityID:   "prop-1",
		Metadata:   map[string]string{"status": "DRAFT"},
	}
}

func TestAppendAssignsIDAndTimestamp(t *testing.T) {
	store := &fakeStore{}
	recorder := NewRecorder(store, zerolog.Nop())

	stored, err := recorder.Append(context.Background(), validEntry())
	require.NoError(t, err)
	require.NotEmpty(t, stored.ID)
	require.False(t, stored.CreatedAt.IsZero())
	require.Len(t, store.entries, 1)
}

func TestAppendRejectsIncompleteEntries(t *testing.T) {
	recorder := NewRecorder(&fakeStore{}, zerolog.Nop())

	for name, mutate := range map[string]func(*Entry){
		"missing tenant": func(e *Entry) { e.TenantID = "" },
		"missing actor":  func(e *Entry) { e.ActorID = "" },
		"missing action": func(e *Entry) { e.Action = "" },
	} {
		entry := validEntry()
		mutate(&entry)
		_, err := recorder.Append(context.Background(), entry)
		require.Error(t, err, name)
	}
}

func TestAppendSurfacesStoreFailure(t *testing.T) {
	boom := errors.New("disk full")
	recorder := NewRecorder(&fakeStore{appendErr: boom}, zerolog.Nop())

	_, err := recorder.Append(context.Background(), validEntry())
	require.ErrorIs(t, err, boom)
}

func TestQueryScopesToTenant(t *testing.T) {
	store := &fakeStore{}
	recorder := NewRecorder(store, zerolog.Nop())

	for _, tenant := range []string{"tenant-a", "tenant-b", "tenant-a"} {
		entry := validEntry()
		entry.TenantID = tenant
		_, err := recorder.Append(context.Background(), entry)
		require.NoError(t, err)
	}

	entries, total, err := recorder.Query(context.Background(), "tenant-a", Filters{}, Pagination{Limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	for _, entry := range entries {
		require.Equal(t, "tenant-a", entry.TenantID)
	}
}

func TestQueryClampsPagination(t *testing.T) {
	store := &fakeStore{}
	recorder := NewRecorder(store, zerolog.Nop())

	_, _, err := recorder.Query(context.Background(), "tenant-a", Filters{}, Pagination{Limit: -5, Offset: -1})
	require.NoError(t, err)
}
