package repositories

import (
	"chat-relay/errors"
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IUserRepository interface {
	CreateUser(username, email, hashedPassword string) (string, error)
	GetUserByEmail(email string) (User, error)
}

// User is the storage shape of an account. The password hash embeds its own
// Argon2 parameters, see auth.HashPassword.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// CreateUser persists the account under "user:{email}" and reserves the
// username under "username:{username}". Usernames must be unique because
// they are the routing key of the realtime core.
func (u *UserRepository) CreateUser(username, email, hashedPassword string) (string, error) {
	newID := uuid.NewString()
	user := User{
		ID:           newID,
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now().UTC(),
	}
	data, err := json.Marshal(user)
	if err != nil {
		return "", err
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		emailKey := []byte("user:" + email)
		if _, err := txn.Get(emailKey); err == nil {
			return errors.ErrUserAlreadyExists
		}
		usernameKey := []byte("username:" + username)
		if _, err := txn.Get(usernameKey); err == nil {
			return errors.ErrUsernameTaken
		}
		if err := txn.Set(usernameKey, []byte(email)); err != nil {
			return err
		}
		return txn.Set(emailKey, data)
	})
	if err != nil {
		return "", err
	}
	return newID, nil
}

// GetUserByEmail retrieves an account, or an error the caller maps to
// ErrInvalidCredentials to avoid user enumeration.
func (u *UserRepository) GetUserByEmail(email string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("user:" + email))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}
