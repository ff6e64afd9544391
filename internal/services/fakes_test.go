package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/govmatch/docanalysis/internal/ai"
	"github.com/govmatch/docanalysis/internal/extract"
	"github.com/govmatch/docanalysis/internal/models"
)

// processingSnapshot captures the interesting fields of one persisted
// processing write, so tests can assert on the checkpoint ladder without
// worrying about shared slice backing arrays.
type processingSnapshot struct {
	status   models.Status
	progress int
	step     string
	events   []string
}

type fakeStore struct {
	mu      sync.Mutex
	docs    map[string]*models.Document
	updates []map[string]any
	snaps   []processingSnapshot

	findErr    error
	failNext   int  // fail this many Update calls, then succeed
	failFinal  bool // fail every Update carrying an "analysis" field
	updateErrs int
}

func newFakeStore(docs ...*models.Document) *fakeStore {
	s := &fakeStore{docs: map[string]*models.Document{}}
	for _, doc := range docs {
		s.docs[doc.OrganizationID+"/"+doc.ID] = doc
	}
	return s
}

func (s *fakeStore) FindOne(_ context.Context, orgID, docID string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	doc, ok := s.docs[orgID+"/"+docID]
	if !ok {
		return nil, nil
	}
	// Hand out a copy: callers see stored state only through Update, the
	// way a real store behaves.
	copied := *doc
	return &copied, nil
}

func (s *fakeStore) Update(_ context.Context, docID string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext > 0 {
		s.failNext--
		s.updateErrs++
		return fmt.Errorf("injected update failure")
	}
	if _, hasAnalysis := fields["analysis"]; hasAnalysis && s.failFinal {
		s.updateErrs++
		return fmt.Errorf("injected final-write failure")
	}
	s.updates = append(s.updates, fields)
	if raw, ok := fields["processing"]; ok {
		if state, ok := raw.(models.ProcessingState); ok {
			for _, doc := range s.docs {
				if doc.ID == docID {
					doc.Processing = state
				}
			}
			snap := processingSnapshot{
				status:   state.CurrentStatus,
				progress: state.Progress,
				step:     state.CurrentStep,
			}
			for _, ev := range state.Events {
				snap.events = append(snap.events, ev.Event)
			}
			s.snaps = append(s.snaps, snap)
		}
	}
	return nil
}

func (s *fakeStore) lastSnap() processingSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snaps) == 0 {
		return processingSnapshot{}
	}
	return s.snaps[len(s.snaps)-1]
}

func (s *fakeStore) progressLadder() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ladder := make([]int, 0, len(s.snaps))
	for _, snap := range s.snaps {
		ladder = append(ladder, snap.progress)
	}
	return ladder
}

type fakeAI struct {
	mu        sync.Mutex
	responses map[ai.Task]string
	errs      map[ai.Task]error
	hooks     map[ai.Task]func() // runs before the task answers
	stall     map[ai.Task]bool   // block the task until the context is done
	calls     []ai.Task
}

func newFakeAI() *fakeAI {
	return &fakeAI{
		responses: map[ai.Task]string{},
		errs:      map[ai.Task]error{},
		hooks:     map[ai.Task]func(){},
		stall:     map[ai.Task]bool{},
	}
}

func (f *fakeAI) GenerateJSON(ctx context.Context, req ai.Request) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.Task)
	hook := f.hooks[req.Task]
	stall := f.stall[req.Task]
	err := f.errs[req.Task]
	resp, ok := f.responses[req.Task]
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if stall {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	if ok {
		return resp, nil
	}
	return "{}", nil
}

func (f *fakeAI) Close() error { return nil }

func (f *fakeAI) called(task ai.Task) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.calls {
		if t == task {
			return true
		}
	}
	return false
}

type fakeBlobs struct {
	data []byte
	key  string
	err  error
}

func (b *fakeBlobs) Download(_ context.Context, filePath, _ string) ([]byte, string, error) {
	if b.err != nil {
		return nil, "", b.err
	}
	key := b.key
	if key == "" {
		key = filePath
	}
	return b.data, key, nil
}

type fakeExtractor struct {
	text    string
	success bool
	err     error
}

func (e *fakeExtractor) Extract(_ context.Context, _ []byte, mimeType string) (extract.Result, error) {
	if e.err != nil {
		return extract.Result{}, e.err
	}
	return extract.Result{
		Success:  e.success,
		Text:     e.text,
		Metadata: extract.Metadata{MimeType: mimeType},
	}, nil
}

type fakeNotifications struct {
	mu      sync.Mutex
	created []*models.Notification
	err     error
}

func (n *fakeNotifications) Create(_ context.Context, notification *models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.created = append(n.created, notification)
	return nil
}

func (n *fakeNotifications) types() []models.NotificationType {
	n.mu.Lock()
	defer n.mu.Unlock()
	types := make([]models.NotificationType, 0, len(n.created))
	for _, notification := range n.created {
		types = append(types, notification.Type)
	}
	return types
}

type emittedEvent struct {
	name    string
	payload map[string]any
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []emittedEvent
}

func (e *fakeEmitter) Send(_ context.Context, eventName string, payload map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, emittedEvent{name: eventName, payload: payload})
}

func (e *fakeEmitter) names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.events))
	for _, ev := range e.events {
		names = append(names, ev.name)
	}
	return names
}
