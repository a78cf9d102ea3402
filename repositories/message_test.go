package repositories

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chatd/domain"
)

func storeMessages(t *testing.T, repo *MessageRepository, channel uuid.UUID, n int) []domain.ChatMessage {
	t.Helper()
	base := time.Now().UTC().Truncate(time.Millisecond)
	messages := make([]domain.ChatMessage, 0, n)
	for i := 0; i < n; i++ {
		msg := domain.ChatMessage{
			ID:        uuid.New(),
			Author:    uuid.New(),
			Channel:   channel,
			Content:   fmt.Sprintf("message %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Store(msg))
		messages = append(messages, msg)
	}
	return messages
}

func TestMessageRepository_History_Newest_First(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default())
	channel := uuid.New()

	stored := storeMessages(t, repo, channel, 3)

	fetched, _, err := repo.History(channel, nil, 10)
	req.NoError(err)
	req.Len(fetched, 3)
	req.Equal(stored[2], fetched[0])
	req.Equal(stored[1], fetched[1])
	req.Equal(stored[0], fetched[2])
}

func TestMessageRepository_History_Cursor_Pagination(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default())
	channel := uuid.New()

	stored := storeMessages(t, repo, channel, 5)

	// When: walking the history two messages at a time
	page1, cursor1, err := repo.History(channel, nil, 2)
	req.NoError(err)
	req.Len(page1, 2)
	req.Equal("message 4", page1[0].Content)
	req.Equal("message 3", page1[1].Content)

	page2, cursor2, err := repo.History(channel, cursor1, 2)
	req.NoError(err)
	req.Len(page2, 2)
	req.Equal("message 2", page2[0].Content)
	req.Equal("message 1", page2[1].Content)

	page3, _, err := repo.History(channel, cursor2, 2)
	req.NoError(err)
	req.Len(page3, 1)
	req.Equal(stored[0], page3[0])
}

func TestMessageRepository_Channels_Are_Isolated(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default())
	channelA, channelB := uuid.New(), uuid.New()

	storeMessages(t, repo, channelA, 3)
	storeMessages(t, repo, channelB, 1)

	fetched, _, err := repo.History(channelA, nil, 10)
	req.NoError(err)
	req.Len(fetched, 3)
	for _, msg := range fetched {
		req.Equal(channelA, msg.Channel)
	}
}

func TestMessageRepository_Empty_Channel(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default())

	fetched, _, err := repo.History(uuid.New(), nil, 10)
	req.NoError(err)
	req.Empty(fetched)
}
