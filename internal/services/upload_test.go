package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govmatch/docanalysis/internal/models"
)

type fakeUploadStore struct {
	mu       sync.Mutex
	byHash   map[string]*models.Document
	created  []*models.Document
	updates  map[string]map[string]any
	hashErr  error
	createID string
}

func newFakeUploadStore() *fakeUploadStore {
	return &fakeUploadStore{
		byHash:   map[string]*models.Document{},
		updates:  map[string]map[string]any{},
		createID: "doc-new",
	}
}

func (s *fakeUploadStore) FindByHash(_ context.Context, orgID, fileHash string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hashErr != nil {
		return nil, s.hashErr
	}
	return s.byHash[orgID+"/"+fileHash], nil
}

func (s *fakeUploadStore) Create(_ context.Context, doc *models.Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, doc)
	return s.createID, nil
}

func (s *fakeUploadStore) Update(_ context.Context, docID string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates[docID] = fields
	return nil
}

type fakeObjects struct {
	data map[string][]byte
	err  error
}

func (o *fakeObjects) Fetch(_ context.Context, bucket, object string) ([]byte, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.data[bucket+"/"+object], nil
}

type fakeLauncher struct {
	mu        sync.Mutex
	arguments []map[string]any
	err       error
}

func (l *fakeLauncher) Launch(_ context.Context, argument map[string]any) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return "", l.err
	}
	l.arguments = append(l.arguments, argument)
	return "executions/exec-42", nil
}

func pdfEvent(name string, metadata map[string]string) GCSEvent {
	return GCSEvent{
		Bucket:      "uploads-bucket",
		Name:        name,
		ContentType: "application/pdf",
		Metadata:    metadata,
	}
}

func TestUploadCreatesDocumentAndLaunchesWorkflow(t *testing.T) {
	data := []byte("%PDF-1.7 fake content")
	store := newFakeUploadStore()
	objects := &fakeObjects{data: map[string][]byte{"uploads-bucket/org-1/proposal.pdf": data}}
	launcher := &fakeLauncher{}
	trigger := NewUploadTrigger(store, objects, launcher, "")

	err := trigger.Process(context.Background(), pdfEvent("org-1/proposal.pdf", nil))
	require.NoError(t, err)

	require.Len(t, store.created, 1)
	doc := store.created[0]
	assert.Equal(t, "org-1", doc.OrganizationID)
	assert.Equal(t, "proposal.pdf", doc.Name)
	assert.Equal(t, "org-1/proposal.pdf", doc.FilePath)
	assert.Equal(t, models.StatusPending, doc.Processing.CurrentStatus)

	wantHash := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(wantHash[:]), doc.FileHash)

	require.Len(t, launcher.arguments, 1)
	arg := launcher.arguments[0]
	assert.Equal(t, "doc-new", arg["documentId"])
	assert.Equal(t, "org-1", arg["organizationId"])
	assert.Equal(t, models.VariantFull, arg["variant"])
	assert.Equal(t, "system", arg["userId"])
}

func TestUploadResolvesOrganizationFromMetadata(t *testing.T) {
	store := newFakeUploadStore()
	objects := &fakeObjects{data: map[string][]byte{"uploads-bucket/loose-object.pdf": []byte("x")}}
	trigger := NewUploadTrigger(store, objects, &fakeLauncher{}, "")

	metadata := map[string]string{"organizationId": "org-7", "userId": "user-9"}
	err := trigger.Process(context.Background(), pdfEvent("loose-object.pdf", metadata))
	require.NoError(t, err)

	require.Len(t, store.created, 1)
	assert.Equal(t, "org-7", store.created[0].OrganizationID)
}

func TestUploadResolvesOrganizationFromUploadsPrefix(t *testing.T) {
	store := newFakeUploadStore()
	objects := &fakeObjects{data: map[string][]byte{"uploads-bucket/uploads/org-3/doc.pdf": []byte("x")}}
	trigger := NewUploadTrigger(store, objects, &fakeLauncher{}, "")

	err := trigger.Process(context.Background(), pdfEvent("uploads/org-3/doc.pdf", nil))
	require.NoError(t, err)
	require.Len(t, store.created, 1)
	assert.Equal(t, "org-3", store.created[0].OrganizationID)
}

func TestUploadSkipsWhenNoOrganization(t *testing.T) {
	store := newFakeUploadStore()
	trigger := NewUploadTrigger(store, &fakeObjects{}, &fakeLauncher{}, "")

	// No metadata and no path prefix: nothing to attribute the upload to.
	err := trigger.Process(context.Background(), pdfEvent("orphan.pdf", nil))
	require.NoError(t, err)
	assert.Empty(t, store.created)
}

func TestUploadSkipsUnsupportedContentType(t *testing.T) {
	store := newFakeUploadStore()
	launcher := &fakeLauncher{}
	trigger := NewUploadTrigger(store, &fakeObjects{}, launcher, "")

	event := pdfEvent("org-1/archive.zip", nil)
	event.ContentType = "application/zip"
	err := trigger.Process(context.Background(), event)
	require.NoError(t, err)
	assert.Empty(t, store.created)
	assert.Empty(t, launcher.arguments)
}

func TestUploadSkipsDuplicates(t *testing.T) {
	data := []byte("duplicate bytes")
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	store := newFakeUploadStore()
	store.byHash["org-1/"+hash] = &models.Document{ID: "doc-existing", OrganizationID: "org-1", FileHash: hash}
	objects := &fakeObjects{data: map[string][]byte{"uploads-bucket/org-1/dupe.pdf": data}}
	launcher := &fakeLauncher{}
	trigger := NewUploadTrigger(store, objects, launcher, "")

	err := trigger.Process(context.Background(), pdfEvent("org-1/dupe.pdf", nil))
	require.NoError(t, err, "duplicates exit clean so the event is not redelivered")
	assert.Empty(t, store.created)
	assert.Empty(t, launcher.arguments)
}

func TestUploadLaunchFailureMarksDocumentFailed(t *testing.T) {
	store := newFakeUploadStore()
	objects := &fakeObjects{data: map[string][]byte{"uploads-bucket/org-1/doc.pdf": []byte("x")}}
	launcher := &fakeLauncher{err: errors.New("workflow quota exceeded")}
	trigger := NewUploadTrigger(store, objects, launcher, "")

	err := trigger.Process(context.Background(), pdfEvent("org-1/doc.pdf", nil))
	require.Error(t, err)

	fields, ok := store.updates["doc-new"]
	require.True(t, ok, "expected the document to be marked FAILED")
	assert.Equal(t, models.StatusFailed, fields["processing.currentStatus"])
}

func TestUploadFetchFailurePropagates(t *testing.T) {
	store := newFakeUploadStore()
	objects := &fakeObjects{err: errors.New("transient storage error")}
	trigger := NewUploadTrigger(store, objects, &fakeLauncher{}, "")

	err := trigger.Process(context.Background(), pdfEvent("org-1/doc.pdf", nil))
	require.Error(t, err)
	assert.Empty(t, store.created)
}
