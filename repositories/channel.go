//go:generate go run go.uber.org/mock/mockgen -source=channel.go -destination=../mocks/mock_channel_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"chatd/domain"
	"chatd/errors"
)

type IChannelRepository interface {
	Create(name, description string) (domain.TextChannel, error)
	Get(id uuid.UUID) (domain.TextChannel, error)
	GetAll() ([]domain.TextChannel, error)
	Exists(id uuid.UUID) (bool, error)
	Delete(id uuid.UUID) error
}

// ChannelRepository persists text channels under "channel:<id>" keys with a
// "channelname:<name>" uniqueness marker.
type ChannelRepository struct {
	db *badger.DB
}

func NewChannelRepository(db *badger.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

type channelRecord struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

var channelPrefix = []byte("channel:")

func channelKey(id uuid.UUID) []byte   { return []byte("channel:" + id.String()) }
func channelNameKey(name string) []byte { return []byte("channelname:" + name) }

func (r *ChannelRepository) Create(name, description string) (domain.TextChannel, error) {
	record := channelRecord{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return domain.TextChannel{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(channelNameKey(name)); err == nil {
			return fmt.Errorf("%w: channel name %q", errors.ErrAlreadyExists, name)
		}
		if err := txn.Set(channelKey(record.ID), data); err != nil {
			return err
		}
		return txn.Set(channelNameKey(name), record.ID[:])
	})
	if err != nil {
		return domain.TextChannel{}, err
	}
	return toChannel(record), nil
}

func (r *ChannelRepository) Get(id uuid.UUID) (domain.TextChannel, error) {
	var record channelRecord
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(channelKey(id))
		if err != nil {
			if goerrors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: channel %s", errors.ErrNotFound, id)
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err != nil {
		return domain.TextChannel{}, err
	}
	return toChannel(record), nil
}

// GetAll scans the channel prefix. Channel counts are modest (rooms, not
// messages), so a full scan at authentication time is fine.
func (r *ChannelRepository) GetAll() ([]domain.TextChannel, error) {
	var channels []domain.TextChannel
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(channelPrefix); it.ValidForPrefix(channelPrefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var record channelRecord
				if err := json.Unmarshal(val, &record); err != nil {
					return err
				}
				channels = append(channels, toChannel(record))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return channels, err
}

func (r *ChannelRepository) Exists(id uuid.UUID) (bool, error) {
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(channelKey(id))
		return err
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *ChannelRepository) Delete(id uuid.UUID) error {
	channel, err := r.Get(id)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(channelKey(id)); err != nil {
			return err
		}
		return txn.Delete(channelNameKey(channel.Name))
	})
}

func toChannel(record channelRecord) domain.TextChannel {
	return domain.TextChannel{
		ID:          record.ID,
		Name:        record.Name,
		Description: record.Description,
		CreatedAt:   record.CreatedAt,
	}
}
