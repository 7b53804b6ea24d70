package audit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recordingStore struct {
	events []Event
	access []AccessEvent

	insertEventErr  error
	insertAccessErr error
	findErr         error
}

func (s *recordingStore) InsertEvent(_ context.Context, e *Event) error {
	if s.insertEventErr != nil {
		return s.insertEventErr
	}
	e.ID = int64(len(s.events) + 1)
	s.events = append(s.events, *e)
	return nil
}

func (s *recordingStore) InsertAccessEvent(_ context.Context, e *AccessEvent) error {
	if s.insertAccessErr != nil {
		return s.insertAccessErr
	}
	e.ID = int64(len(s.access) + 1)
	s.access = append(s.access, *e)
	return nil
}

func (s *recordingStore) FindRecentAccessEvent(_ context.Context, e AccessEvent, cutoff time.Time) (*AccessEvent, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for i := len(s.access) - 1; i >= 0; i-- {
		got := s.access[i]
		if got.Action != e.Action {
			continue
		}
		sameActor := (got.ActorUserID != nil && e.ActorUserID != nil && *got.ActorUserID == *e.ActorUserID) ||
			(got.ActorUserID == nil && e.ActorUserID == nil && got.AdminToken == e.AdminToken)
		sameTarget := got.TargetType == e.TargetType &&
			((got.TargetID == nil && e.TargetID == nil) ||
				(got.TargetID != nil && e.TargetID != nil && *got.TargetID == *e.TargetID))
		if sameActor && sameTarget && !got.CreatedAt.Before(cutoff) {
			return &got, nil
		}
	}
	return nil, nil
}

func (s *recordingStore) ListEvents(context.Context, EventFilter) ([]Event, error) {
	return s.events, nil
}

func TestAccessDedupReturnsExistingRow(t *testing.T) {
	store := &recordingStore{}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := NewRecorder(store, WithClock(func() time.Time { return now }))

	actor := int64(7)
	target := int64(42)
	e := AccessEvent{ActorUserID: &actor, Action: "update_user", TargetType: "user", TargetID: &target, Success: true}

	first := rec.Access(context.Background(), e, 60)
	now = now.Add(10 * time.Second)
	second := rec.Access(context.Background(), e, 60)

	if first.ID != second.ID {
		t.Fatalf("expected dedup to return the same row, got %d and %d", first.ID, second.ID)
	}
	if len(store.access) != 1 {
		t.Fatalf("expected 1 stored row, got %d", len(store.access))
	}
}

func TestAccessWithoutWindowAlwaysInserts(t *testing.T) {
	store := &recordingStore{}
	rec := NewRecorder(store)

	actor := int64(7)
	e := AccessEvent{ActorUserID: &actor, Action: "update_user", Success: true}

	first := rec.Access(context.Background(), e, 0)
	second := rec.Access(context.Background(), e, 0)

	if first.ID == second.ID {
		t.Fatalf("expected two distinct rows with no dedup window")
	}
	if len(store.access) != 2 {
		t.Fatalf("expected 2 stored rows, got %d", len(store.access))
	}
}

func TestAccessDedupLookupFailureDegradesToInsert(t *testing.T) {
	store := &recordingStore{findErr: errors.New("connection reset")}
	rec := NewRecorder(store)

	actor := int64(7)
	e := AccessEvent{ActorUserID: &actor, Action: "update_user", Success: true}

	out := rec.Access(context.Background(), e, 60)
	if out.ID == 0 {
		t.Fatalf("expected unconditional insert on lookup failure")
	}
	if len(store.access) != 1 {
		t.Fatalf("expected 1 stored row, got %d", len(store.access))
	}
}

func TestAccessWriteFailureIsSwallowed(t *testing.T) {
	store := &recordingStore{insertAccessErr: errors.New("disk full")}
	rec := NewRecorder(store)

	actor := int64(7)
	out := rec.Access(context.Background(), AccessEvent{ActorUserID: &actor, Action: "delete_user"}, 0)
	if out.ID != 0 {
		t.Fatalf("expected unstored row back, got id %d", out.ID)
	}
}

func TestEventWriteFailureIsSwallowed(t *testing.T) {
	store := &recordingStore{insertEventErr: errors.New("disk full")}
	rec := NewRecorder(store)

	// Must not panic or surface the error.
	rec.Event(context.Background(), Event{Action: "sql_generate", RequestType: RequestTypeSQLProxy, Status: StatusError})

	if len(store.events) != 0 {
		t.Fatalf("expected no stored events")
	}
}

func TestEventStampsRequestID(t *testing.T) {
	store := &recordingStore{}
	rec := NewRecorder(store)

	ctx := WithRequestID(context.Background(), "01JCOR7Q2Z")
	rec.Event(ctx, Event{Action: "login", RequestType: RequestTypeAuth, Status: StatusSuccess})

	if len(store.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(store.events))
	}
	if got := store.events[0].Details["request_id"]; got != "01JCOR7Q2Z" {
		t.Fatalf("request_id not stamped, details: %v", store.events[0].Details)
	}
}

func TestAdminTokenIdentityDedups(t *testing.T) {
	store := &recordingStore{}
	rec := NewRecorder(store)

	e := AccessEvent{AdminToken: "tok-1", Action: "create_database", TargetType: "database", Success: true}

	first := rec.Access(context.Background(), e, 120)
	second := rec.Access(context.Background(), e, 120)

	if first.ID != second.ID {
		t.Fatalf("expected admin-token identity to dedup, got %d and %d", first.ID, second.ID)
	}
}
