package transcript

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/malonaz/aichat/chat"
)

const (
	chatA = "5b0c3f0e-8f3a-4d55-9a57-2f1c1d1e6a10"
	chatB = "9d7e0f7a-3b1c-4f0e-8a2d-6c5b4a392817"
)

type fakeStream struct {
	results   chan []*chat.Message
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{results: make(chan []*chat.Message, 4), closed: make(chan struct{})}
}

func (s *fakeStream) Recv(ctx context.Context) ([]*chat.Message, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.closed:
		return nil, io.EOF
	case messages := <-s.results:
		return messages, nil
	}
}

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

type fakeBackend struct {
	mu      sync.Mutex
	streams map[string]*fakeStream
	err     error
	opened  chan string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{streams: map[string]*fakeStream{}, opened: make(chan string, 8)}
}

func (b *fakeBackend) SubscribeMessages(ctx context.Context, chatID string) (chat.MessageStream, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.mu.Lock()
	stream := newFakeStream()
	b.streams[chatID] = stream
	b.mu.Unlock()
	b.opened <- chatID
	return stream, nil
}

func (b *fakeBackend) stream(t *testing.T, chatID string) *fakeStream {
	select {
	case opened := <-b.opened:
		require.Equal(t, chatID, opened)
	case <-time.After(5 * time.Second):
		t.Fatalf("no subscription opened for %s", chatID)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.streams[chatID]
}

func newTranscript(backend Backend) (*Transcript, chan Update) {
	updates := make(chan Update, 8)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(backend, log), updates
}

func receive(t *testing.T, updates chan Update) Update {
	select {
	case update := <-updates:
		return update
	case <-time.After(5 * time.Second):
		t.Fatal("no update received")
		return Update{}
	}
}

func message(id, chatID, userID, text string, second int) *chat.Message {
	return &chat.Message{
		ID:        id,
		ChatID:    chatID,
		UserID:    userID,
		Text:      text,
		CreatedAt: time.Date(2024, 5, 1, 10, 0, second, 0, time.UTC),
	}
}

func texts(messages []*chat.Message) []string {
	result := make([]string, 0, len(messages))
	for _, message := range messages {
		result = append(result, message.Text)
	}
	return result
}

func TestTranscriptKeepsReceivedOrder(t *testing.T) {
	backend := newFakeBackend()
	transcript, updates := newTranscript(backend)
	transcript.Switch(context.Background(), chatA, func(u Update) { updates <- u })
	defer transcript.Close()

	backend.stream(t, chatA).results <- []*chat.Message{
		message("1", chatA, "user-1", "a", 1),
		message("3", chatA, "ai", "b", 3),
		message("2", chatA, "user-1", "c", 2),
	}
	newIDs, accepted := transcript.Apply(receive(t, updates))
	require.True(t, accepted)
	require.Equal(t, []string{"1", "3", "2"}, newIDs)
	require.Equal(t, []string{"a", "b", "c"}, texts(transcript.Messages()))
	require.True(t, transcript.Loaded())
	require.Equal(t, 3, transcript.Count())
}

func TestTranscriptReportsNewIDs(t *testing.T) {
	backend := newFakeBackend()
	transcript, updates := newTranscript(backend)
	transcript.Switch(context.Background(), chatA, func(u Update) { updates <- u })
	defer transcript.Close()
	stream := backend.stream(t, chatA)

	stream.results <- []*chat.Message{message("1", chatA, "user-1", "hello", 1)}
	_, accepted := transcript.Apply(receive(t, updates))
	require.True(t, accepted)

	stream.results <- []*chat.Message{
		message("1", chatA, "user-1", "hello", 1),
		message("2", chatA, "ai", "hi!", 2),
	}
	newIDs, accepted := transcript.Apply(receive(t, updates))
	require.True(t, accepted)
	require.Equal(t, []string{"2"}, newIDs)

	// An identical result set has nothing new.
	stream.results <- transcript.Messages()
	newIDs, accepted = transcript.Apply(receive(t, updates))
	require.True(t, accepted)
	require.Empty(t, newIDs)
}

func TestSwitchUnsubscribesPreviousChat(t *testing.T) {
	backend := newFakeBackend()
	transcript, updates := newTranscript(backend)
	notify := func(u Update) { updates <- u }

	transcript.Switch(context.Background(), chatA, notify)
	streamA := backend.stream(t, chatA)
	streamA.results <- []*chat.Message{message("a1", chatA, "user-1", "from A", 1)}
	staleUpdate := receive(t, updates)
	_, accepted := transcript.Apply(staleUpdate)
	require.True(t, accepted)

	transcript.Switch(context.Background(), chatB, notify)
	defer transcript.Close()
	streamB := backend.stream(t, chatB)

	select {
	case <-streamA.closed:
	case <-time.After(5 * time.Second):
		t.Fatal("previous stream was not closed")
	}
	require.Equal(t, chatB, transcript.ChatID())
	require.Empty(t, transcript.Messages())

	// A late update of the previous chat is dropped.
	_, accepted = transcript.Apply(staleUpdate)
	require.False(t, accepted)
	require.Empty(t, transcript.Messages())

	streamB.results <- []*chat.Message{message("b1", chatB, "user-1", "from B", 1)}
	_, accepted = transcript.Apply(receive(t, updates))
	require.True(t, accepted)
	require.Equal(t, []string{"from B"}, texts(transcript.Messages()))
}

func TestSwitchBackToSameChatDropsOldGeneration(t *testing.T) {
	backend := newFakeBackend()
	transcript, updates := newTranscript(backend)
	notify := func(u Update) { updates <- u }

	transcript.Switch(context.Background(), chatA, notify)
	backend.stream(t, chatA).results <- []*chat.Message{message("1", chatA, "user-1", "old", 1)}
	old := receive(t, updates)

	transcript.Switch(context.Background(), chatA, notify)
	defer transcript.Close()
	backend.stream(t, chatA)

	_, accepted := transcript.Apply(old)
	require.False(t, accepted)
}

func TestSubscriptionErrorIsReported(t *testing.T) {
	backend := newFakeBackend()
	backend.err = errors.New("socket closed")
	transcript, updates := newTranscript(backend)
	transcript.Switch(context.Background(), chatA, func(u Update) { updates <- u })
	defer transcript.Close()

	update := receive(t, updates)
	require.Error(t, update.Err)
	_, accepted := transcript.Apply(update)
	require.True(t, accepted)
	require.EqualError(t, transcript.Err(), "socket closed")
	require.False(t, transcript.Loaded())
}

func TestCompletedSubscriptionIsReported(t *testing.T) {
	backend := newFakeBackend()
	transcript, updates := newTranscript(backend)
	transcript.Switch(context.Background(), chatA, func(u Update) { updates <- u })
	defer transcript.Close()
	stream := backend.stream(t, chatA)

	stream.results <- []*chat.Message{message("1", chatA, "user-1", "hello", 1)}
	transcript.Apply(receive(t, updates))
	require.False(t, transcript.Done())

	stream.Close()
	update := receive(t, updates)
	require.True(t, update.Done)
	newIDs, accepted := transcript.Apply(update)
	require.True(t, accepted)
	require.Empty(t, newIDs)
	require.True(t, transcript.Done())
	require.NoError(t, transcript.Err())
	require.Equal(t, []string{"hello"}, texts(transcript.Messages()))
}

func TestSwitchToNoChat(t *testing.T) {
	backend := newFakeBackend()
	transcript, updates := newTranscript(backend)
	transcript.Switch(context.Background(), chatA, func(u Update) { updates <- u })
	streamA := backend.stream(t, chatA)

	transcript.Switch(context.Background(), "", func(u Update) { updates <- u })
	select {
	case <-streamA.closed:
	case <-time.After(5 * time.Second):
		t.Fatal("previous stream was not closed")
	}
	require.Empty(t, transcript.ChatID())
}

func TestRows(t *testing.T) {
	backend := newFakeBackend()
	transcript, updates := newTranscript(backend)
	transcript.Switch(context.Background(), chatA, func(u Update) { updates <- u })
	defer transcript.Close()

	backend.stream(t, chatA).results <- []*chat.Message{
		message("1", chatA, "user-1", "question", 1),
		message("2", chatA, "ai-service", "answer", 2),
	}
	transcript.Apply(receive(t, updates))

	rows := transcript.Rows("user-1", false)
	require.Len(t, rows, 2)
	require.Equal(t, RowHuman, rows[0].Kind)
	require.Equal(t, RowAI, rows[1].Kind)

	rows = transcript.Rows("user-1", true)
	require.Len(t, rows, 3)
	require.Equal(t, RowThinking, rows[2].Kind)
	require.Nil(t, rows[2].Message)
}
