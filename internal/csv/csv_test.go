package csv

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftloop/mailcore/internal/domain"
)

type fakeSubscriberRepo struct {
	byEmail map[string]*domain.Subscriber
	created []*domain.Subscriber
}

func newFakeSubscriberRepo() *fakeSubscriberRepo {
	return &fakeSubscriberRepo{byEmail: map[string]*domain.Subscriber{}}
}

func (f *fakeSubscriberRepo) Create(ctx context.Context, s *domain.Subscriber) error {
	f.byEmail[s.Email] = s
	f.created = append(f.created, s)
	return nil
}
func (f *fakeSubscriberRepo) Update(ctx context.Context, s *domain.Subscriber) error { return nil }
func (f *fakeSubscriberRepo) GetByID(ctx context.Context, id string) (*domain.Subscriber, error) {
	return nil, &domain.ErrNotFound{Entity: "subscriber", ID: id}
}
func (f *fakeSubscriberRepo) GetByEmail(ctx context.Context, email string) (*domain.Subscriber, error) {
	if s, ok := f.byEmail[email]; ok {
		return s, nil
	}
	return nil, &domain.ErrNotFound{Entity: "subscriber", ID: email}
}
func (f *fakeSubscriberRepo) GetByUnsubscribeToken(ctx context.Context, token string) (*domain.Subscriber, error) {
	return nil, &domain.ErrNotFound{Entity: "subscriber", ID: token}
}
func (f *fakeSubscriberRepo) List(ctx context.Context, filter domain.SubscriberFilter) ([]*domain.Subscriber, int, error) {
	out := make([]*domain.Subscriber, 0, len(f.created))
	for _, s := range f.created {
		out = append(out, s)
	}
	return out, len(out), nil
}
func (f *fakeSubscriberRepo) ListActiveForCampaign(ctx context.Context, listID string) ([]*domain.Subscriber, error) {
	return nil, nil
}

func TestImportSkipsExistingAndInvalidRows(t *testing.T) {
	repo := newFakeSubscriberRepo()
	repo.byEmail["existing@example.com"] = &domain.Subscriber{Email: "existing@example.com"}

	csvBody := "email,first_name,last_name\n" +
		"new@example.com,Ada,Lovelace\n" +
		"existing@example.com,Bob,Smith\n" +
		"not-an-email,Bad,Row\n"

	result, err := Import(context.Background(), strings.NewReader(csvBody), repo)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, "new@example.com", repo.created[0].Email)
	assert.Equal(t, "Ada Lovelace", repo.created[0].Name)
}

func TestImportRecognizesJapaneseEmailHeader(t *testing.T) {
	repo := newFakeSubscriberRepo()
	csvBody := "メールアドレス,name\nperson@example.com,Person One\n"

	result, err := Import(context.Background(), strings.NewReader(csvBody), repo)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, "person@example.com", repo.created[0].Email)
}

func TestImportErrorsWithoutEmailColumn(t *testing.T) {
	repo := newFakeSubscriberRepo()
	_, err := Import(context.Background(), strings.NewReader("foo,bar\n1,2\n"), repo)
	assert.Error(t, err)
}

func TestExportWritesHeaderAndRows(t *testing.T) {
	repo := newFakeSubscriberRepo()
	repo.created = append(repo.created, &domain.Subscriber{Email: "a@example.com", Name: "A One", Status: domain.SubscriberStatusActive})

	var buf bytes.Buffer
	err := Export(context.Background(), &buf, repo, ExportFilter{})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "email,first_name,last_name,status,created_at")
	assert.Contains(t, out, "a@example.com,A,One,active")
}
