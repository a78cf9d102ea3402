//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
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

type IUserRepository interface {
	Create(name, passwordHash string) (domain.User, error)
	GetByName(name string) (domain.User, error)
	GetByID(id uuid.UUID) (domain.User, error)
	Update(id uuid.UUID, name, passwordHash *string) (domain.User, error)
}

// UserRepository persists accounts in BadgerDB. Primary key is the unique
// name ("user:<name>"); a secondary "userid:<id>" key points back at the
// name so lookups by id stay a two-get operation instead of a scan.
type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

type userRecord struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

func userKey(name string) []byte    { return []byte("user:" + name) }
func userIDKey(id uuid.UUID) []byte { return []byte("userid:" + id.String()) }

// Create persists a new account. The name is unique; a second account with
// the same name fails with an AlreadyExists kind.
func (r *UserRepository) Create(name, passwordHash string) (domain.User, error) {
	record := userRecord{
		ID:           uuid.New(),
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return domain.User{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(name)); err == nil {
			return fmt.Errorf("%w: user name %q", errors.ErrAlreadyExists, name)
		}
		if err := txn.Set(userKey(name), data); err != nil {
			return err
		}
		return txn.Set(userIDKey(record.ID), []byte(name))
	})
	if err != nil {
		return domain.User{}, err
	}
	return toUser(record), nil
}

func (r *UserRepository) GetByName(name string) (domain.User, error) {
	var record userRecord
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(name))
		if err != nil {
			if goerrors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: user %q", errors.ErrNotFound, name)
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err != nil {
		return domain.User{}, err
	}
	return toUser(record), nil
}

func (r *UserRepository) GetByID(id uuid.UUID) (domain.User, error) {
	var name string
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userIDKey(id))
		if err != nil {
			if goerrors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: user %s", errors.ErrNotFound, id)
			}
			return err
		}
		return item.Value(func(val []byte) error {
			name = string(val)
			return nil
		})
	})
	if err != nil {
		return domain.User{}, err
	}
	return r.GetByName(name)
}

// Update rewrites the account's name and/or password hash; a nil field is
// left unchanged. Renames move the primary key, so the new name must be
// free, and the id pointer key is repointed in the same transaction.
func (r *UserRepository) Update(id uuid.UUID, name, passwordHash *string) (domain.User, error) {
	var record userRecord
	err := r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(userIDKey(id))
		if err != nil {
			if goerrors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: user %s", errors.ErrNotFound, id)
			}
			return err
		}
		var oldName string
		if err := item.Value(func(val []byte) error {
			oldName = string(val)
			return nil
		}); err != nil {
			return err
		}

		item, err = txn.Get(userKey(oldName))
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		}); err != nil {
			return err
		}

		if passwordHash != nil {
			record.PasswordHash = *passwordHash
		}
		if name != nil && *name != oldName {
			if _, err := txn.Get(userKey(*name)); err == nil {
				return fmt.Errorf("%w: user name %q", errors.ErrAlreadyExists, *name)
			}
			record.Name = *name
			if err := txn.Delete(userKey(oldName)); err != nil {
				return err
			}
			if err := txn.Set(userIDKey(id), []byte(*name)); err != nil {
				return err
			}
		}

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal failed: %w", err)
		}
		return txn.Set(userKey(record.Name), data)
	})
	if err != nil {
		return domain.User{}, err
	}
	return toUser(record), nil
}

func toUser(record userRecord) domain.User {
	return domain.User{
		ID:           record.ID,
		Name:         record.Name,
		PasswordHash: record.PasswordHash,
		CreatedAt:    record.CreatedAt,
	}
}
