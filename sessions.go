package twitter

import (
	"fmt"
	"log/slog"
	"time"

	bolt "go.etcd.io/bbolt"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const sessionBucket = "sessions"

// SessionStore persists per-account auth_token/ct0 pairs in a bbolt file.
// A nil *SessionStore is valid and stores nothing.
type SessionStore struct {
	db *bolt.DB
}

// OpenSessionStore opens (or creates) the session database at path.
func OpenSessionStore(path string) (*SessionStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open session db %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(sessionBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create session bucket: %w", err)
	}
	return &SessionStore{db: db}, nil
}

// Close releases the database file.
func (s *SessionStore) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// Save stores the credentials for username, stamped with the current time.
func (s *SessionStore) Save(username, authToken, ct0 string) error {
	if s == nil {
		return nil
	}
	rec, err := structpb.NewStruct(map[string]any{
		"auth_token": authToken,
		"ct0":        ct0,
		"saved_at":   float64(time.Now().Unix()),
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	data, err := proto.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(sessionBucket)).Put([]byte(username), data)
	})
	if err != nil {
		return fmt.Errorf("write session %s: %w", username, err)
	}
	slog.Debug("session saved", slog.String("user", username))
	return nil
}

// Load returns the stored credentials for username.
// Missing or expired sessions yield empty strings and no error.
func (s *SessionStore) Load(username string, ttl time.Duration) (authToken, ct0 string, err error) {
	if s == nil {
		return "", "", nil
	}
	var savedAt time.Time
	err = s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(sessionBucket)).Get([]byte(username))
		if data == nil {
			return nil
		}
		var rec structpb.Struct
		if err := proto.Unmarshal(data, &rec); err != nil {
			return err
		}
		fields := rec.GetFields()
		authToken = fields["auth_token"].GetStringValue()
		ct0 = fields["ct0"].GetStringValue()
		savedAt = time.Unix(int64(fields["saved_at"].GetNumberValue()), 0)
		return nil
	})
	if err != nil {
		return "", "", fmt.Errorf("read session %s: %w", username, err)
	}
	if authToken == "" || time.Since(savedAt) > ttl {
		if authToken != "" {
			slog.Debug("session expired", slog.String("user", username))
		}
		return "", "", nil
	}
	return authToken, ct0, nil
}

// Delete forgets the session for username.
func (s *SessionStore) Delete(username string) error {
	if s == nil {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(sessionBucket)).Delete([]byte(username))
	})
}
