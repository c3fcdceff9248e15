package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitor-system-backend/internal/model"
	"visitor-system-backend/internal/store"
	"visitor-system-backend/internal/store/storetest"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

func response(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(""))}
}

func newTestStore(t *testing.T, endpoints ...string) store.Store {
	t.Helper()
	s := storetest.NewStore(t)
	for _, ep := range endpoints {
		require.NoError(t, s.UpsertSubscription(context.Background(), &model.PushSubscription{
			Endpoint: ep, AdminID: 1, P256DH: "p256dh-" + ep, Auth: "auth-" + ep,
		}))
	}
	return s
}

var testEvent = Event{
	Kind:        EventCheckIn,
	NIK:         "3171000001",
	VisitorName: "Budi",
	Institution: "BKN",
	At:          time.Date(2026, 10, 19, 9, 30, 0, 0, time.FixedZone("WIB", 7*3600)),
}

func TestWorkerPool_Notify(t *testing.T) {
	wp := NewWorkerPool(1, 1, nil, &webpush.Options{}, nil)

	wp.Notify(testEvent)
	// Queue is full; this one is dropped instead of blocking.
	wp.Notify(Event{Kind: EventCheckOut, NIK: "999"})

	select {
	case job := <-wp.Jobs():
		assert.Equal(t, testEvent, job)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
	assert.Empty(t, wp.Jobs())
}

func TestEvent_Payload(t *testing.T) {
	body, err := testEvent.Payload()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "Tamu masuk", got["title"])
	assert.Equal(t, "Budi (BKN) check-in pukul 09:30", got["body"])
	assert.Equal(t, "check_in", got["kind"])
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	t.Run("sends notification to every subscription", func(t *testing.T) {
		s := newTestStore(t, "https://example.com/a", "https://example.com/b")
		wp := NewWorkerPool(1, 4, s, &webpush.Options{}, nil)

		var (
			mu   sync.Mutex
			seen []string
			wg   sync.WaitGroup
		)
		wg.Add(2)
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				mu.Lock()
				seen = append(seen, sub.Endpoint)
				mu.Unlock()
				assert.Equal(t, "p256dh-"+sub.Endpoint, sub.Keys.P256dh)
				assert.Contains(t, string(payload), "Budi (BKN) check-in")
				wg.Done()
				return response(http.StatusCreated), nil
			},
		}

		ctx, cancel := context.WithCancel(context.Background())
		wp.Start(ctx)
		wp.Notify(testEvent)
		wg.Wait()
		cancel()
		wp.Wait()

		assert.ElementsMatch(t, []string{"https://example.com/a", "https://example.com/b"}, seen)
	})

	t.Run("deletes expired subscription", func(t *testing.T) {
		s := newTestStore(t, "https://example.com/expired", "https://example.com/live")
		wp := NewWorkerPool(1, 4, s, &webpush.Options{}, nil)

		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				if sub.Endpoint == "https://example.com/expired" {
					return response(http.StatusGone), nil
				}
				return response(http.StatusCreated), nil
			},
		}

		// Run the job inline so the deletion has happened when we assert.
		wp.sendEvent(context.Background(), testEvent)

		subs, err := s.ListSubscriptions(context.Background())
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, "https://example.com/live", subs[0].Endpoint)
	})

	t.Run("no subscriptions sends nothing", func(t *testing.T) {
		wp := NewWorkerPool(1, 1, newTestStore(t), &webpush.Options{}, nil)
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				t.Fatal("sender must not be called")
				return nil, nil
			},
		}
		wp.sendEvent(context.Background(), testEvent)
	})
}
