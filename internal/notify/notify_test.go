package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classaccess/internal/audit"
	"classaccess/internal/backend"
	"classaccess/internal/model"
	"classaccess/internal/queue"
)

type sent struct {
	cred    backend.Credential
	message string
	target  model.NotificationTarget
}

type fakeSender struct {
	mu   sync.Mutex
	got  []sent
	fail error
	done chan struct{}
}

func (f *fakeSender) SendNotification(ctx context.Context, cred backend.Credential, message string, target model.NotificationTarget) error {
	f.mu.Lock()
	f.got = append(f.got, sent{cred, message, target})
	f.mu.Unlock()
	if f.done != nil {
		f.done <- struct{}{}
	}
	return f.fail
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (f *fakeRecorder) Record(ctx context.Context, evt audit.Event) (audit.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	return evt, nil
}

func TestEnqueue_Validates(t *testing.T) {
	q := queue.NewInMemory(1)

	_, err := Enqueue(context.Background(), q, Job{Message: "", Target: model.TargetEveryone})
	assert.Error(t, err)
	_, err = Enqueue(context.Background(), q, Job{Message: "hola", Target: 7})
	assert.Error(t, err)

	id, err := Enqueue(context.Background(), q, Job{Message: "hola", Target: model.TargetStudents})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestDispatcher_DeliversQueuedJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queue.NewInMemory(4)
	sender := &fakeSender{done: make(chan struct{}, 1)}
	rec := &fakeRecorder{}
	d := NewDispatcher(sender, rec, backend.Credential{Token: "svc"}, nil)
	go func() { _ = d.Run(ctx, q) }()

	_, err := Enqueue(ctx, q, Job{Message: "Clases suspendidas", Target: model.TargetTeachers, ActorID: 3})
	require.NoError(t, err)

	select {
	case <-sender.done:
	case <-time.After(2 * time.Second):
		t.Fatal("job not delivered")
	}

	sender.mu.Lock()
	require.Len(t, sender.got, 1)
	assert.Equal(t, sent{backend.Credential{Token: "svc"}, "Clases suspendidas", model.TargetTeachers}, sender.got[0])
	sender.mu.Unlock()

	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.events) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, audit.ActionNotificationSent, rec.events[0].Action)
	assert.Equal(t, 3, rec.events[0].ActorID)
}

func TestDispatcher_RecordsFailures(t *testing.T) {
	sender := &fakeSender{fail: errors.New("backend down")}
	rec := &fakeRecorder{}
	d := NewDispatcher(sender, rec, backend.Credential{}, nil)

	msg, err := queue.NewMessage(MessageType, Job{Message: "x", Target: model.TargetEveryone})
	require.NoError(t, err)

	assert.Error(t, d.Handle(context.Background(), msg))
	require.Len(t, rec.events, 1)
	assert.Equal(t, audit.ActionNotificationFailed, rec.events[0].Action)
	assert.Equal(t, "backend down", rec.events[0].Detail)

	assert.Error(t, d.Handle(context.Background(), queue.Message{Type: MessageType, Body: []byte("{")}))
}
