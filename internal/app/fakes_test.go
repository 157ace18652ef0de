package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"study_streak_bot/internal/domain/activity"
	"study_streak_bot/internal/domain/notification"
)

// memoryNotifications is an in-memory notification store and dispatcher queue.
type memoryNotifications struct {
	mu      sync.Mutex
	now     func() time.Time
	seq     int
	entries map[string]notification.Entry

	listErr     error
	scheduleErr error
	cancelErrs  map[string]error
	cancelCalls int
}

func newMemoryNotifications(now func() time.Time) *memoryNotifications {
	return &memoryNotifications{
		now:        now,
		entries:    make(map[string]notification.Entry),
		cancelErrs: make(map[string]error),
	}
}

func (m *memoryNotifications) ListPending(_ context.Context, userID string) ([]notification.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []notification.Entry
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryNotifications) Cancel(_ context.Context, userID string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelCalls++
	if err := m.cancelErrs[id]; err != nil {
		return err
	}
	if e, ok := m.entries[id]; ok && e.UserID == userID {
		delete(m.entries, id)
	}
	return nil
}

func (m *memoryNotifications) Schedule(_ context.Context, userID string, content notification.Content, trigger notification.Trigger) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scheduleErr != nil {
		return "", m.scheduleErr
	}
	m.seq++
	id := fmt.Sprintf("n-%03d", m.seq)
	now := m.now()
	m.entries[id] = notification.Entry{
		ID:         id,
		UserID:     userID,
		Content:    content,
		Trigger:    trigger,
		NextFireAt: trigger.FirstFireAt(now),
		CreatedAt:  now,
	}
	return id, nil
}

func (m *memoryNotifications) ListDue(_ context.Context, now time.Time, limit int) ([]notification.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []notification.Entry
	for _, e := range m.entries {
		if !e.NextFireAt.After(now) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextFireAt.Before(out[j].NextFireAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryNotifications) Reschedule(_ context.Context, id string, next time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return fmt.Errorf("entry %s not found", id)
	}
	e.NextFireAt = next
	m.entries[id] = e
	return nil
}

func (m *memoryNotifications) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func (m *memoryNotifications) RemoveAllForUser(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.entries {
		if e.UserID == userID {
			delete(m.entries, id)
			n++
		}
	}
	return n, nil
}

// put inserts an entry directly, bypassing the scheduler.
func (m *memoryNotifications) put(e notification.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e
}

func (m *memoryNotifications) byCategory(userID string, c notification.Category) []notification.Entry {
	entries, _ := m.ListPending(context.Background(), userID)
	var out []notification.Entry
	for _, e := range entries {
		if e.Category() == c {
			out = append(out, e)
		}
	}
	return out
}

// fakeGate is a permission gate with a scripted status per user.
type fakeGate struct {
	mu        sync.Mutex
	status    map[string]notification.PermissionStatus
	onRequest notification.PermissionStatus // result of RequestPermission for undetermined users
	statusErr error
	requests  int
}

func newFakeGate() *fakeGate {
	return &fakeGate{
		status:    make(map[string]notification.PermissionStatus),
		onRequest: notification.PermissionGranted,
	}
}

func (g *fakeGate) PermissionStatus(_ context.Context, userID string) (notification.PermissionStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.statusErr != nil {
		return "", g.statusErr
	}
	if s, ok := g.status[userID]; ok {
		return s, nil
	}
	return notification.PermissionUndetermined, nil
}

func (g *fakeGate) RequestPermission(_ context.Context, userID string) (notification.PermissionStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests++
	if s, ok := g.status[userID]; ok && s == notification.PermissionDenied {
		return s, nil
	}
	g.status[userID] = g.onRequest
	return g.onRequest, nil
}

func (g *fakeGate) SetPermission(_ context.Context, userID string, status notification.PermissionStatus) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status[userID] = status
	return nil
}

// memoryActivity is an in-memory activity store.
type memoryActivity struct {
	docs       map[string]activity.Record
	getErr     error
	mergeErr   error
	getCalls   int
	mergeCalls []activity.Record
}

func newMemoryActivity() *memoryActivity {
	return &memoryActivity{docs: make(map[string]activity.Record)}
}

func (m *memoryActivity) Get(_ context.Context, userID string) (activity.Record, bool, error) {
	m.getCalls++
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	doc, ok := m.docs[userID]
	if !ok {
		return activity.Record{}, false, nil
	}
	out := make(activity.Record, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out, true, nil
}

func (m *memoryActivity) Merge(_ context.Context, userID string, partial activity.Record) error {
	m.mergeCalls = append(m.mergeCalls, partial)
	if m.mergeErr != nil {
		return m.mergeErr
	}
	doc, ok := m.docs[userID]
	if !ok {
		doc = activity.Record{}
		m.docs[userID] = doc
	}
	for k, v := range partial {
		doc[k] = v
	}
	return nil
}

type staticIdentity struct {
	userID string
}

func (s staticIdentity) CurrentUserID(context.Context) (string, bool) {
	return s.userID, s.userID != ""
}

// recordingDeliverer records deliveries and fails for scripted users.
type recordingDeliverer struct {
	sent []notification.Content
	errs map[string]error
}

func (d *recordingDeliverer) Deliver(_ context.Context, userID string, content notification.Content) error {
	if err := d.errs[userID]; err != nil {
		return err
	}
	d.sent = append(d.sent, content)
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
