package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/univbase/backend-univ/internal/events"
)

type stubStore struct {
	lastTopic   string
	lastPayload []byte
	err         error
}

func (s *stubStore) InsertEvent(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	if s.err != nil {
		return events.Event{}, s.err
	}
	s.lastTopic = topic
	s.lastPayload = payload
	return events.Event{
		ID:          uuid.New(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  time.Now(),
	}, nil
}

type captureNotifier struct {
	events []events.Event
	err    error
}

func (c *captureNotifier) Notify(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return c.err
}

func TestEmitPersistsEvent(t *testing.T) {
	store := &stubStore{}
	notifier := &captureNotifier{}
	bus := events.Bus{Store: store, Notifiers: []events.Notifier{notifier}}

	aggregate := uuid.New()
	payload := map[string]any{"universityId": aggregate.String()}
	event, err := bus.Emit(context.Background(), events.TopicUniversityCreated, aggregate, payload)
	require.NoError(t, err)
	require.Equal(t, events.TopicUniversityCreated, store.lastTopic)
	require.JSONEq(t, `{"universityId":"`+aggregate.String()+`"}`, string(store.lastPayload))
	require.Len(t, notifier.events, 1)
	require.Equal(t, event.ID, notifier.events[0].ID)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	require.Equal(t, aggregate.String(), decoded["universityId"])
}

func TestEmitRejectsMissingTopic(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}
	_, err := bus.Emit(context.Background(), "  ", uuid.New(), nil)
	require.Error(t, err)
}

func TestEmitRejectsNilAggregate(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}
	_, err := bus.Emit(context.Background(), events.TopicTuitionUpdated, uuid.Nil, nil)
	require.Error(t, err)
}

func TestEmitNilPayloadDefaultsToEmptyObject(t *testing.T) {
	store := &stubStore{}
	bus := events.Bus{Store: store}
	_, err := bus.Emit(context.Background(), events.TopicFeesUpdated, uuid.New(), nil)
	require.NoError(t, err)
	require.Equal(t, "{}", string(store.lastPayload))
}

func TestEmitNotifierErrorsAreJoined(t *testing.T) {
	store := &stubStore{}
	failing := &captureNotifier{err: errors.New("boom")}
	bus := events.Bus{Store: store, Notifiers: []events.Notifier{failing}}

	event, err := bus.Emit(context.Background(), events.TopicScholarshipSaved, uuid.New(), "")
	require.Error(t, err)
	require.NotEqual(t, uuid.Nil, event.ID)
	require.Len(t, failing.events, 1)
}
