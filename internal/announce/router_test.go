package announce

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"anonsbot/internal/database"
)

const (
	testTarget   = "@announcements"
	testSenderID = int64(123)
)

var testClock = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeStore is an in-memory database.Store for router tests.
type fakeStore struct {
	records map[int64]*database.Announcement
	getErr  error
	putErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[int64]*database.Announcement)}
}

func (s *fakeStore) Ping(context.Context) error { return nil }

func (s *fakeStore) SaveAnnouncement(_ context.Context, rec *database.Announcement) error {
	if s.putErr != nil {
		return s.putErr
	}
	cp := *rec
	s.records[rec.SenderID] = &cp
	return nil
}

func (s *fakeStore) GetAnnouncement(_ context.Context, senderID int64) (*database.Announcement, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	rec, ok := s.records[senderID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeStore) DeleteAnnouncement(_ context.Context, senderID int64) error {
	delete(s.records, senderID)
	return nil
}

func (s *fakeStore) PurgeExpired(context.Context) (int64, error) { return 0, nil }

// fakeMessenger records outbound calls.
type fakeMessenger struct {
	sends    []sentCall
	edits    []editCall
	replies  []string
	sendErr  error
	editErr  error
	nextID   int
	forwards int
}

type sentCall struct {
	chatID string
	text   string
}

type editCall struct {
	chatID    string
	messageID int
	text      string
	noPreview bool
}

func (m *fakeMessenger) Send(_ context.Context, chatID string, text string) (*SentMessage, error) {
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.sends = append(m.sends, sentCall{chatID, text})
	m.nextID++
	return &SentMessage{ID: m.nextID, Date: testClock}, nil
}

func (m *fakeMessenger) EditText(_ context.Context, chatID string, messageID int, text string, disablePreview bool) error {
	if m.editErr != nil {
		return m.editErr
	}
	m.edits = append(m.edits, editCall{chatID, messageID, text, disablePreview})
	return nil
}

func (m *fakeMessenger) Forward(_ context.Context, chatID string, _ int64, _ int) (*SentMessage, error) {
	m.forwards++
	m.nextID++
	return &SentMessage{ID: m.nextID, Date: testClock}, nil
}

func (m *fakeMessenger) Reply(_ context.Context, _ int64, _ int, text string) error {
	m.replies = append(m.replies, text)
	return nil
}

func (m *fakeMessenger) outboundCalls() int {
	return len(m.sends) + len(m.edits) + len(m.replies) + m.forwards
}

func newTestRouter(store database.Store, msgr Messenger, target string) *Router {
	r := NewRouter(
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		store,
		msgr,
		NewClassifier([]int64{testSenderID}),
		Options{TargetChannel: target},
	)
	r.now = func() time.Time { return testClock }
	return r
}

func textMsg(text string) Inbound {
	return Inbound{
		MessageID:    10,
		ChatID:       -100555,
		ChatType:     "supergroup",
		ChatUsername: "mychat",
		Date:         testClock,
		Text:         text,
	}
}

func pollMsg(age time.Duration) Inbound {
	return Inbound{
		MessageID:    77,
		ChatID:       -100555,
		ChatType:     "supergroup",
		ChatUsername: "mychat",
		Date:         testClock.Add(-age),
		HasPoll:      true,
	}
}

func storedRecord(age time.Duration, target string) *database.Announcement {
	created := testClock.Add(-age)
	return &database.Announcement{
		SenderID:  testSenderID,
		MessageID: 42,
		ChatID:    target,
		Content:   "#анонс Movie night Friday",
		CreatedAt: created,
		ExpiresAt: created.Add(10 * time.Minute),
	}
}

func TestRouterAnnouncementPostsAndRecords(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	msgr := &fakeMessenger{nextID: 41}
	router := newTestRouter(store, msgr, testTarget)

	router.Handle(context.Background(), textMsg("#анонс Movie night Friday"), Sender{ID: testSenderID})

	if len(msgr.sends) != 1 {
		t.Fatalf("expected 1 send, got %d", len(msgr.sends))
	}
	if msgr.sends[0].chatID != testTarget || msgr.sends[0].text != "#анонс Movie night Friday" {
		t.Errorf("unexpected send: %+v", msgr.sends[0])
	}

	rec := store.records[testSenderID]
	if rec == nil {
		t.Fatal("expected a correlation record to be stored")
	}
	if rec.MessageID != 42 {
		t.Errorf("record message_id = %d, want 42", rec.MessageID)
	}
	if rec.ChatID != testTarget {
		t.Errorf("record chat_id = %q, want %q", rec.ChatID, testTarget)
	}
	if !rec.CreatedAt.Equal(testClock) {
		t.Errorf("record created_at = %v, want %v", rec.CreatedAt, testClock)
	}
	if !rec.ExpiresAt.Equal(testClock.Add(10 * time.Minute)) {
		t.Errorf("record expires_at = %v, want created_at+10m", rec.ExpiresAt)
	}
}

func TestRouterAnnouncementReplacesPriorRecord(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.records[testSenderID] = storedRecord(5*time.Minute, testTarget)
	msgr := &fakeMessenger{nextID: 98}
	router := newTestRouter(store, msgr, testTarget)

	router.Handle(context.Background(), textMsg("#анонс second announcement"), Sender{ID: testSenderID})

	rec := store.records[testSenderID]
	if rec == nil || rec.MessageID != 99 {
		t.Fatalf("expected record replaced with message_id 99, got %+v", rec)
	}
}

func TestRouterAnnouncementWithoutTarget(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	msgr := &fakeMessenger{}
	router := newTestRouter(store, msgr, "")

	router.Handle(context.Background(), textMsg("#анонс no target"), Sender{ID: testSenderID})

	if len(msgr.sends) != 0 {
		t.Errorf("expected no send without a target channel, got %d", len(msgr.sends))
	}
	if len(msgr.replies) != 1 || !strings.Contains(msgr.replies[0], "not configured") {
		t.Errorf("expected a configuration error reply, got %v", msgr.replies)
	}
	if len(store.records) != 0 {
		t.Error("no record should be stored without a target channel")
	}
}

func TestRouterAnnouncementSendFailure(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	msgr := &fakeMessenger{sendErr: errors.New("boom")}
	router := newTestRouter(store, msgr, testTarget)

	router.Handle(context.Background(), textMsg("#анонс failing"), Sender{ID: testSenderID})

	if len(msgr.replies) != 1 || !strings.Contains(msgr.replies[0], "boom") {
		t.Errorf("expected error reply containing the underlying error, got %v", msgr.replies)
	}
	if len(store.records) != 0 {
		t.Error("no record should be stored after a failed send")
	}
}

func TestRouterPollAttachesPrompt(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.records[testSenderID] = storedRecord(5*time.Minute, testTarget)
	msgr := &fakeMessenger{}
	router := newTestRouter(store, msgr, testTarget)

	router.Handle(context.Background(), pollMsg(0), Sender{ID: testSenderID})

	if len(msgr.edits) != 1 {
		t.Fatalf("expected 1 edit, got %d", len(msgr.edits))
	}
	edit := msgr.edits[0]
	if edit.chatID != testTarget || edit.messageID != 42 {
		t.Errorf("edit addressed %s/%d, want %s/42", edit.chatID, edit.messageID, testTarget)
	}
	want := "#анонс Movie night Friday\n\n🗳 Голосование: https://t.me/mychat/77"
	if edit.text != want {
		t.Errorf("edit text = %q, want %q", edit.text, want)
	}
	if !edit.noPreview {
		t.Error("edit should suppress the link preview")
	}
	if _, ok := store.records[testSenderID]; ok {
		t.Error("record should be consumed after a successful edit")
	}
	if len(msgr.replies) != 0 {
		t.Errorf("no reply expected on success, got %v", msgr.replies)
	}
}

func TestRouterPollCaptionSelectsTemplate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		caption string
		marker  string
	}{
		{"caption with both keywords prefers poll template", "#анонс и #опрос", "🗳 Голосование:"},
		{"caption with announce keyword", "вот #анонс", "🔗 Подробнее:"},
		{"no caption falls back to poll template", "", "🗳 Голосование:"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := newFakeStore()
			store.records[testSenderID] = storedRecord(time.Minute, testTarget)
			msgr := &fakeMessenger{}
			router := newTestRouter(store, msgr, testTarget)

			msg := pollMsg(0)
			msg.PollCaption = tc.caption
			router.Handle(context.Background(), msg, Sender{ID: testSenderID})

			if len(msgr.edits) != 1 {
				t.Fatalf("expected 1 edit, got %d", len(msgr.edits))
			}
			if !strings.Contains(msgr.edits[0].text, tc.marker) {
				t.Errorf("edit text %q missing template marker %q", msgr.edits[0].text, tc.marker)
			}
		})
	}
}

func TestRouterRecordFreshnessBoundary(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		age      time.Duration
		wantEdit bool
	}{
		{"just inside the window", 9*time.Minute + 59*time.Second, true},
		{"exactly at the window", 10 * time.Minute, true},
		{"just past the window", 10*time.Minute + time.Second, false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := newFakeStore()
			store.records[testSenderID] = storedRecord(tc.age, testTarget)
			msgr := &fakeMessenger{}
			router := newTestRouter(store, msgr, testTarget)

			router.Handle(context.Background(), pollMsg(0), Sender{ID: testSenderID})

			if gotEdit := len(msgr.edits) == 1; gotEdit != tc.wantEdit {
				t.Errorf("edit issued = %v, want %v", gotEdit, tc.wantEdit)
			}
			if !tc.wantEdit {
				if len(msgr.replies) != 0 {
					t.Errorf("stale record must stay silent, got replies %v", msgr.replies)
				}
				if _, ok := store.records[testSenderID]; ok {
					t.Error("stale record should be deleted")
				}
			}
		})
	}
}

func TestRouterPollAgeBoundary(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		age      time.Duration
		wantEdit bool
	}{
		{"fresh poll", 59 * time.Minute, true},
		{"poll just past one hour", time.Hour + time.Second, false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := newFakeStore()
			store.records[testSenderID] = storedRecord(time.Minute, testTarget)
			msgr := &fakeMessenger{}
			router := newTestRouter(store, msgr, testTarget)

			router.Handle(context.Background(), pollMsg(tc.age), Sender{ID: testSenderID})

			if gotEdit := len(msgr.edits) == 1; gotEdit != tc.wantEdit {
				t.Errorf("edit issued = %v, want %v", gotEdit, tc.wantEdit)
			}
			if !tc.wantEdit && len(msgr.replies) != 0 {
				t.Errorf("old poll must be dropped silently, got replies %v", msgr.replies)
			}
		})
	}
}

func TestRouterPollWithoutTimestamp(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.records[testSenderID] = storedRecord(time.Minute, testTarget)
	msgr := &fakeMessenger{}
	router := newTestRouter(store, msgr, testTarget)

	msg := pollMsg(0)
	msg.Date = time.Time{}
	router.Handle(context.Background(), msg, Sender{ID: testSenderID})

	if msgr.outboundCalls() != 0 {
		t.Error("poll without a timestamp must be dropped silently")
	}
}

func TestRouterPollRecordTargetMismatch(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.records[testSenderID] = storedRecord(time.Minute, "@oldchannel")
	msgr := &fakeMessenger{}
	router := newTestRouter(store, msgr, testTarget)

	router.Handle(context.Background(), pollMsg(0), Sender{ID: testSenderID})

	if msgr.outboundCalls() != 0 {
		t.Error("record for a different target channel must be treated as stale, silently")
	}
	if _, ok := store.records[testSenderID]; ok {
		t.Error("mismatched record should be deleted")
	}
}

func TestRouterPollWithoutRecord(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	msgr := &fakeMessenger{}
	router := newTestRouter(store, msgr, testTarget)

	router.Handle(context.Background(), pollMsg(0), Sender{ID: testSenderID})

	if msgr.outboundCalls() != 0 {
		t.Error("poll without a correlation record must be dropped silently")
	}
}

func TestRouterPollStoreUnavailable(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.getErr = errors.New("store misconfigured")
	msgr := &fakeMessenger{}
	router := newTestRouter(store, msgr, testTarget)

	router.Handle(context.Background(), pollMsg(0), Sender{ID: testSenderID})

	if msgr.outboundCalls() != 0 {
		t.Error("store failure must degrade to silence, not outbound calls")
	}
}

func TestRouterPollFromPrivateChat(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.records[testSenderID] = storedRecord(time.Minute, testTarget)
	msgr := &fakeMessenger{}
	router := newTestRouter(store, msgr, testTarget)

	msg := pollMsg(0)
	msg.ChatType = "private"
	msg.ChatUsername = ""
	msg.ChatID = 54321
	router.Handle(context.Background(), msg, Sender{ID: testSenderID})

	if len(msgr.edits) != 0 {
		t.Error("no edit expected for a private-chat poll")
	}
	if len(msgr.replies) != 1 {
		t.Fatalf("expected an explanatory reply, got %d", len(msgr.replies))
	}
	if _, ok := store.records[testSenderID]; !ok {
		t.Error("record must stay intact for a later valid poll")
	}
}

func TestRouterPollEditFailureKeepsRecord(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.records[testSenderID] = storedRecord(time.Minute, testTarget)
	msgr := &fakeMessenger{editErr: errors.New("edit refused")}
	router := newTestRouter(store, msgr, testTarget)

	router.Handle(context.Background(), pollMsg(0), Sender{ID: testSenderID})

	if len(msgr.replies) != 1 || !strings.Contains(msgr.replies[0], "edit refused") {
		t.Errorf("expected error reply with the underlying error, got %v", msgr.replies)
	}
	if _, ok := store.records[testSenderID]; !ok {
		t.Error("record must survive a failed edit so a retry poll can attempt it")
	}
}

func TestRouterPollPromptReplacedOnRepeat(t *testing.T) {
	t.Parallel()

	rec := storedRecord(time.Minute, testTarget)
	rec.Content = "#анонс Movie night\n\n🗳 Голосование: https://t.me/mychat/11"
	store := newFakeStore()
	store.records[testSenderID] = rec
	msgr := &fakeMessenger{}
	router := newTestRouter(store, msgr, testTarget)

	router.Handle(context.Background(), pollMsg(0), Sender{ID: testSenderID})

	if len(msgr.edits) != 1 {
		t.Fatalf("expected 1 edit, got %d", len(msgr.edits))
	}
	want := "#анонс Movie night\n\n🗳 Голосование: https://t.me/mychat/77"
	if msgr.edits[0].text != want {
		t.Errorf("edit text = %q, want the old prompt replaced: %q", msgr.edits[0].text, want)
	}
}

func TestRouterUnauthorizedSilence(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	msgr := &fakeMessenger{}
	router := newTestRouter(store, msgr, testTarget)

	for _, msg := range []Inbound{textMsg("#анонс attempt"), pollMsg(0), textMsg("hello")} {
		router.Handle(context.Background(), msg, Sender{ID: 666})
	}

	if msgr.outboundCalls() != 0 {
		t.Error("unauthorized senders must never trigger outbound calls")
	}
}

func TestRouterIgnoredSilence(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	msgr := &fakeMessenger{}
	router := newTestRouter(store, msgr, testTarget)

	router.Handle(context.Background(), textMsg("no keyword here"), Sender{ID: testSenderID})

	if msgr.outboundCalls() != 0 {
		t.Error("messages without keyword or poll must be ignored silently")
	}
}
