package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contact-guard/pkg/clients/emailjs"
	"contact-guard/pkg/guard"
	"contact-guard/pkg/models"
	"contact-guard/pkg/storage"
)

var testNow = time.Date(2026, time.October, 15, 10, 30, 0, 0, time.UTC)

type fakeRelay struct {
	mu     sync.Mutex
	calls  int
	params map[string]string
	err    error

	// onSend runs before the relay answers
	onSend func()
}

func (f *fakeRelay) Send(_ context.Context, serviceID, templateID string, params map[string]string) (emailjs.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.params = params
	if f.onSend != nil {
		f.onSend()
	}
	if f.err != nil {
		return emailjs.Response{Status: 500}, f.err
	}
	return emailjs.Response{Status: 200, Text: "OK"}, nil
}

type fakeArchive struct {
	mu      sync.Mutex
	records []map[string]interface{}
	err     error
}

func (f *fakeArchive) CreateRecord(_ context.Context, table string, fields map[string]interface{}) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, fields)
	return "rec1", f.err
}

type fakeSMS struct {
	mu     sync.Mutex
	bodies []string
}

func (f *fakeSMS) SendSMS(to, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies = append(f.bodies, body)
	return "SM1", nil
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk full")
}
func (failingStore) Set(context.Context, string, string) error { return errors.New("disk full") }

type fixture struct {
	svc     ContactSubmissionService
	relay   *fakeRelay
	archive *fakeArchive
	sms     *fakeSMS
	store   *storage.MemoryStore
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		relay:   &fakeRelay{},
		archive: &fakeArchive{},
		sms:     &fakeSMS{},
		store:   storage.NewMemoryStore(),
		now:     testNow,
	}
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	f.svc = NewContactSubmissionService(
		guard.New(guard.DefaultPolicy()),
		f.relay, f.archive, f.sms, nil, nil,
		Options{
			ServiceID:    "service_site_web",
			TemplateID:   "template_x",
			Location:     paris,
			ArchiveTable: "Contact Requests",
			OwnerPhone:   "+33612345678",
			Now:          func() time.Time { return f.now },
		},
	)
	return f
}

func validForm() models.ContactForm {
	return models.ContactForm{
		Name:    "Al",
		Email:   "a@b.co",
		Service: "hypnose",
		Message: "1234567890",
	}
}

func TestProcessSubmission_Success(t *testing.T) {
	f := newFixture(t)

	note, err := f.svc.ProcessSubmission(context.Background(), f.store, validForm())
	require.NoError(t, err)
	assert.Equal(t, models.KindSuccess, note.Kind)
	assert.Equal(t, MessageSuccess, note.Message)

	require.Equal(t, 1, f.relay.calls)
	assert.Equal(t, "Hypnose SAJECE", f.relay.params["service"])
	assert.Equal(t, "Al", f.relay.params["from_name"])
	assert.Equal(t, "15 octobre 2026", f.relay.params["date"])
	assert.Equal(t, "12:30", f.relay.params["time"])

	state, err := storage.LoadState(context.Background(), f.store)
	require.NoError(t, err)
	assert.Equal(t, 1, state.DailyCount)
	assert.True(t, state.LastSubmit.Equal(testNow))
	assert.True(t, state.DailyReset.Equal(testNow.Add(24*time.Hour)))

	f.svc.Wait()
	require.Len(t, f.archive.records, 1)
	assert.Equal(t, "Hypnose SAJECE", f.archive.records[0]["Service"])
	require.Len(t, f.sms.bodies, 1)
	assert.Contains(t, f.sms.bodies[0], "Nouveau message de Al")
}

func TestProcessSubmission_SavesStateAfterClientDisconnect(t *testing.T) {
	f := newFixture(t)
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	// The visitor hangs up once the relay has taken the message.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.relay.onSend = cancel

	note, err := f.svc.ProcessSubmission(ctx, store, validForm())
	require.NoError(t, err)
	assert.Equal(t, models.KindSuccess, note.Kind)
	require.ErrorIs(t, ctx.Err(), context.Canceled)

	state, err := storage.LoadState(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, 1, state.DailyCount)
	assert.True(t, state.LastSubmit.Equal(testNow))

	f.now = testNow.Add(10 * time.Second)
	_, err = f.svc.ProcessSubmission(context.Background(), store, validForm())
	require.ErrorIs(t, err, guard.ErrRateLimited)
	assert.Equal(t, 1, f.relay.calls)
	f.svc.Wait()
}

func TestProcessSubmission_FollowUpsGetUnescapedText(t *testing.T) {
	f := newFixture(t)
	form := validForm()
	form.Name = "O'Brien"
	form.Message = "Séance pour <deux> personnes ?"

	_, err := f.svc.ProcessSubmission(context.Background(), f.store, form)
	require.NoError(t, err)
	assert.Equal(t, "O&#x27;Brien", f.relay.params["from_name"])

	f.svc.Wait()
	require.Len(t, f.sms.bodies, 1)
	assert.Contains(t, f.sms.bodies[0], "Nouveau message de O'Brien (Hypnose SAJECE)")
	assert.NotContains(t, f.sms.bodies[0], "&#x27;")

	require.Len(t, f.archive.records, 1)
	assert.Equal(t, "O'Brien", f.archive.records[0]["Name"])
	assert.Equal(t, "Séance pour <deux> personnes ?", f.archive.records[0]["Message"])
}

func TestProcessSubmission_HoneypotLeavesStateAlone(t *testing.T) {
	f := newFixture(t)
	form := validForm()
	form.Website = "bot"

	note, err := f.svc.ProcessSubmission(context.Background(), f.store, form)
	require.NoError(t, err)
	assert.Equal(t, models.KindSuccess, note.Kind)
	assert.Zero(t, f.relay.calls)

	_, ok, _ := f.store.Get(context.Background(), storage.KeyDailyCount)
	assert.False(t, ok)
}

func TestProcessSubmission_Cooldown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ProcessSubmission(ctx, f.store, validForm())
	require.NoError(t, err)

	f.now = testNow.Add(15500 * time.Millisecond)
	note, err := f.svc.ProcessSubmission(ctx, f.store, validForm())
	require.ErrorIs(t, err, guard.ErrRateLimited)
	assert.Equal(t, models.KindError, note.Kind)
	assert.Equal(t, guard.ReasonRateLimited, note.Reason)
	assert.Contains(t, note.Message, "45 secondes")
	assert.Equal(t, 1, f.relay.calls)
	f.svc.Wait()
}

func TestProcessSubmission_DailyLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.now = testNow.Add(time.Duration(i) * 2 * time.Minute)
		_, err := f.svc.ProcessSubmission(ctx, f.store, validForm())
		require.NoError(t, err, "submission %d", i)
	}

	f.now = testNow.Add(time.Hour)
	note, err := f.svc.ProcessSubmission(ctx, f.store, validForm())
	require.ErrorIs(t, err, guard.ErrRateLimited)
	assert.Contains(t, note.Message, "limite de 5 messages")
	assert.Equal(t, 5, f.relay.calls)

	// A day after the first submission the window opens again.
	f.now = testNow.Add(24*time.Hour + time.Second)
	_, err = f.svc.ProcessSubmission(ctx, f.store, validForm())
	require.NoError(t, err)

	state, err := storage.LoadState(ctx, f.store)
	require.NoError(t, err)
	assert.Equal(t, 1, state.DailyCount)
	f.svc.Wait()
}

func TestProcessSubmission_InvalidFieldNeverDispatches(t *testing.T) {
	f := newFixture(t)
	form := validForm()
	form.Email = "not-an-email"

	note, err := f.svc.ProcessSubmission(context.Background(), f.store, form)
	require.ErrorIs(t, err, guard.ErrFieldInvalid)
	assert.Equal(t, "email", note.Field)
	assert.Zero(t, f.relay.calls)
}

func TestProcessSubmission_Spam(t *testing.T) {
	f := newFixture(t)
	form := validForm()
	form.Message = "visit http://x.ru now"

	note, err := f.svc.ProcessSubmission(context.Background(), f.store, form)
	require.ErrorIs(t, err, guard.ErrSpamDetected)
	assert.Equal(t, guard.ReasonSpamDetected, note.Reason)
	assert.Zero(t, f.relay.calls)
}

func TestProcessSubmission_RelayFailureKeepsState(t *testing.T) {
	f := newFixture(t)
	f.relay.err = errors.New("relay down")

	note, err := f.svc.ProcessSubmission(context.Background(), f.store, validForm())
	require.ErrorIs(t, err, guard.ErrDispatchFailed)
	assert.Equal(t, MessageRetryLater, note.Message)
	assert.Equal(t, 1, f.relay.calls)

	_, ok, _ := f.store.Get(context.Background(), storage.KeyLastSubmit)
	assert.False(t, ok)

	f.svc.Wait()
	assert.Empty(t, f.archive.records)

	// No cooldown was started, so an immediate retry reaches the relay.
	f.relay.err = nil
	_, err = f.svc.ProcessSubmission(context.Background(), f.store, validForm())
	require.NoError(t, err)
	assert.Equal(t, 2, f.relay.calls)
	f.svc.Wait()
}

func TestProcessSubmission_StoreFailureRefuses(t *testing.T) {
	f := newFixture(t)

	note, err := f.svc.ProcessSubmission(context.Background(), failingStore{}, validForm())
	require.ErrorIs(t, err, ErrStateUnavailable)
	assert.Equal(t, models.KindError, note.Kind)
	assert.Zero(t, f.relay.calls)
}

func TestProcessSubmission_ArchiveFailureStillSucceeds(t *testing.T) {
	f := newFixture(t)
	f.archive.err = errors.New("airtable down")

	note, err := f.svc.ProcessSubmission(context.Background(), f.store, validForm())
	require.NoError(t, err)
	assert.Equal(t, models.KindSuccess, note.Kind)
	f.svc.Wait()
	assert.Len(t, f.sms.bodies, 1)
}
