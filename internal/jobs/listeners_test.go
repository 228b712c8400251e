package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sponsorhub/server/internal/domain/events"
	"github.com/sponsorhub/server/internal/eventbus"
)

type fakeInserter struct {
	inserted  []river.JobArgs
	opts      []*river.InsertOpts
	insertErr error
}

func (f *fakeInserter) Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.inserted = append(f.inserted, args)
	f.opts = append(f.opts, opts)
	return &rivertype.JobInsertResult{}, nil
}

type fakeDirectory struct {
	email string
	err   error
}

func (f *fakeDirectory) ContactEmail(ctx context.Context, tenantID, entityType, entityID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.email, nil
}

func listenerHarness(t *testing.T) (*eventbus.Bus, *fakeInserter) {
	t.Helper()
	inserter := &fakeInserter{}
	bus := eventbus.New(zerolog.Nop())
	NewListeners(inserter, &fakeDirectory{email: "contact@example.com"}, RetrySettings{}, zerolog.Nop()).Register(bus)
	return bus, inserter
}

func splitJobs(t *testing.T, inserted []river.JobArgs) ([]EmailArgs, []NotificationArgs) {
	t.Helper()
	var emailJobs []EmailArgs
	var notificationJobs []NotificationArgs
	for _, args := range inserted {
		switch typed := args.(type) {
		case EmailArgs:
			emailJobs = append(emailJobs, typed)
		case NotificationArgs:
			notificationJobs = append(notificationJobs, typed)
		default:
			t.Fatalf("unexpected job args type %T", args)
		}
	}
	return emailJobs, notificationJobs
}

func TestStatusChangeEnqueuesOneJobPerQueue(t *testing.T) {
	bus, inserter := listenerHarness(t)

	err := bus.Publish(context.Background(), events.ProposalStatusChanged{
		TenantID:       "tenant-a",
		ProposalID:     "prop-1",
		CompanyID:      "company-1",
		ActorID:        "user-1",
		ActorRole:      "SPONSOR",
		PreviousStatus: "DRAFT",
		NewStatus:      "SUBMITTED",
		OccurredAt:     time.Now().UTC(),
	})
	require.NoError(t, err)

	emailJobs, notificationJobs := splitJobs(t, inserter.inserted)
	require.Len(t, emailJobs, 1)
	require.Len(t, notificationJobs, 1)

	require.Equal(t, "contact@example.com", emailJobs[0].To)
	require.Equal(t, "DRAFT", emailJobs[0].PreviousStatus)
	require.Equal(t, "SUBMITTED", emailJobs[0].NewStatus)
	require.Equal(t, "prop-1", emailJobs[0].EntityID)

	require.Equal(t, "company-1", notificationJobs[0].RecipientID)
	require.Equal(t, "DRAFT", notificationJobs[0].PreviousStatus)
	require.Equal(t, "SUBMITTED", notificationJobs[0].NewStatus)
}

func TestProposalCreatedEnqueuesOneJobPerQueue(t *testing.T) {
	bus, inserter := listenerHarness(t)

	err := bus.Publish(context.Background(), events.ProposalCreated{
		TenantID:   "tenant-a",
		ProposalID: "prop-1",
		CompanyID:  "company-1",
		ActorID:    "user-1",
		Status:     "DRAFT",
		OccurredAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	emailJobs, notificationJobs := splitJobs(t, inserter.inserted)
	require.Len(t, emailJobs, 1)
	require.Len(t, notificationJobs, 1)
	require.Equal(t, "created", emailJobs[0].Action)
}

func TestVerificationDecidedEnqueuesOneJobPerQueue(t *testing.T) {
	bus, inserter := listenerHarness(t)

	err := bus.Publish(context.Background(), events.VerificationDecided{
		TenantID:   "tenant-a",
		EntityType: "company",
		EntityID:   "company-1",
		ActorID:    "mgr-1",
		Decision:   "APPROVED",
		OccurredAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	emailJobs, notificationJobs := splitJobs(t, inserter.inserted)
	require.Len(t, emailJobs, 1)
	require.Len(t, notificationJobs, 1)
	require.Equal(t, "APPROVED", emailJobs[0].Decision)
	require.Equal(t, "verification_decided:APPROVED", notificationJobs[0].Action)
}

func TestEnqueueCarriesConfiguredAttemptBudgets(t *testing.T) {
	inserter := &fakeInserter{}
	bus := eventbus.New(zerolog.Nop())
	retry := RetrySettings{EmailAttempts: 3, NotificationAttempts: 7}
	NewListeners(inserter, &fakeDirectory{email: "contact@example.com"}, retry, zerolog.Nop()).Register(bus)

	err := bus.Publish(context.Background(), events.ProposalCreated{
		TenantID:   "tenant-a",
		ProposalID: "prop-1",
		CompanyID:  "company-1",
	})
	require.NoError(t, err)
	require.Len(t, inserter.opts, 2)

	for i, args := range inserter.inserted {
		opts := inserter.opts[i]
		require.NotNil(t, opts)
		switch args.(type) {
		case EmailArgs:
			require.Equal(t, 3, opts.MaxAttempts)
		case NotificationArgs:
			require.Equal(t, 7, opts.MaxAttempts)
		default:
			t.Fatalf("unexpected job args type %T", args)
		}
	}
}

func TestDirectoryFailureSurfacesWithoutEnqueue(t *testing.T) {
	inserter := &fakeInserter{}
	bus := eventbus.New(zerolog.Nop())
	NewListeners(inserter, &fakeDirectory{err: errors.New("no contact on file")}, RetrySettings{}, zerolog.Nop()).Register(bus)

	err := bus.Publish(context.Background(), events.ProposalCreated{
		TenantID:   "tenant-a",
		ProposalID: "prop-1",
		CompanyID:  "company-1",
	})
	require.Error(t, err)
	require.Empty(t, inserter.inserted)
}

func TestEnqueueFailureIsObservable(t *testing.T) {
	inserter := &fakeInserter{insertErr: errors.New("queue unavailable")}
	bus := eventbus.New(zerolog.Nop())
	NewListeners(inserter, &fakeDirectory{email: "contact@example.com"}, RetrySettings{}, zerolog.Nop()).Register(bus)

	err := bus.Publish(context.Background(), events.ProposalCreated{
		TenantID:   "tenant-a",
		ProposalID: "prop-1",
		CompanyID:  "company-1",
	})
	require.Error(t, err)
}
