//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"chatd/domain"
)

type IMessageRepository interface {
	Store(msg domain.ChatMessage) error
	History(channel uuid.UUID, cursor *string, limit int) ([]domain.ChatMessage, *string, error)
}

// MessageRepository persists chat messages in BadgerDB.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

type messageRecord struct {
	ID      uuid.UUID `json:"id"`
	Channel uuid.UUID `json:"channel"`
	Author  uuid.UUID `json:"author"`
	Content string    `json:"content"`
	Lang    string    `json:"lang,omitempty"`
	At      time.Time `json:"at"`
}

// maxHistoryLimit caps one history page regardless of what the client asks
// for.
const maxHistoryLimit = 100

// Store persists one message. The key is "msg:{channel}:{timestamp}:{id}":
//  1. The 19-digit zero-padded nanosecond timestamp makes lexicographic
//     order chronological order.
//  2. The trailing id disambiguates two messages landing on the same
//     nanosecond.
func (r *MessageRepository) Store(msg domain.ChatMessage) error {
	key := fmt.Sprintf("msg:%s:%019d:%s", msg.Channel, msg.CreatedAt.UnixNano(), msg.ID)
	data, err := json.Marshal(fromMessage(msg))
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// History returns up to limit messages of a channel, newest first, using a
// reverse prefix scan. The returned cursor is the key suffix of the last
// collected message; passing it back resumes strictly after it.
func (r *MessageRepository) History(channel uuid.UUID, cursor *string, limit int) ([]domain.ChatMessage, *string, error) {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	var raw [][]byte
	var lastKey string
	err := r.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", channel)
		prefix := []byte(prefixStr)

		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past every possible timestamp, then walk backwards from
			// the newest message.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if len(raw) == limit {
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefixStr):])
			err := item.Value(func(val []byte) error {
				raw = append(raw, append([]byte(nil), val...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	messages := make([]messageRecord, 0, len(raw))
	for _, data := range raw {
		var record messageRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, nil, err
		}
		messages = append(messages, record)
	}
	return toMessages(messages), &lastKey, nil
}

func fromMessage(msg domain.ChatMessage) messageRecord {
	return messageRecord{
		ID:      msg.ID,
		Channel: msg.Channel,
		Author:  msg.Author,
		Content: msg.Content,
		Lang:    msg.Lang,
		At:      msg.CreatedAt,
	}
}

func toMessages(records []messageRecord) []domain.ChatMessage {
	return lo.Map(records, func(record messageRecord, _ int) domain.ChatMessage {
		return domain.ChatMessage{
			ID:        record.ID,
			Channel:   record.Channel,
			Author:    record.Author,
			Content:   record.Content,
			Lang:      record.Lang,
			CreatedAt: record.At.UTC(),
		}
	})
}
