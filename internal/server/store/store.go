package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Store persists dashboard users and agent API keys in MySQL.
type Store struct {
	db *sql.DB
}

type User struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func New(dsn string) (*Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) InitSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS api_keys (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			key_hash VARCHAR(255) NOT NULL UNIQUE,
			key_prefix VARCHAR(12) NOT NULL,
			type ENUM('live', 'test') NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			last_used_at TIMESTAMP NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		);`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			slog.Warn("Migration query issue", "error", err)
		}
	}
	return nil
}

func (s *Store) CreateUser(email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = s.db.Exec("INSERT INTO users (email, password_hash) VALUES (?, ?)", email, string(hash))
	return err
}

func (s *Store) AuthenticateUser(email, password string) (*User, error) {
	var user User
	var hash string

	err := s.db.QueryRow("SELECT id, email, password_hash, created_at FROM users WHERE email = ?", email).
		Scan(&user.ID, &user.Email, &hash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

// API key methods. Keys look like tk_live_<hex> or tk_test_<hex>; the DB
// stores a bcrypt hash plus the prefix used to narrow the lookup.

type APIKey struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	KeyPrefix string    `json:"key_prefix"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

const keyPrefixLen = 12

func (s *Store) CreateAPIKey(userID int, keyType string) (string, error) {
	if keyType != "live" && keyType != "test" {
		return "", fmt.Errorf("unknown key type %q", keyType)
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	rawKey := fmt.Sprintf("tk_%s_%s", keyType, hex.EncodeToString(buf))

	hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	_, err = s.db.Exec(
		"INSERT INTO api_keys (user_id, key_hash, key_prefix, type) VALUES (?, ?, ?, ?)",
		userID, string(hash), rawKey[:keyPrefixLen], keyType,
	)
	if err != nil {
		return "", err
	}

	return rawKey, nil
}

func (s *Store) VerifyAPIKey(rawKey string) (*APIKey, error) {
	prefix := rawKey
	if len(rawKey) > keyPrefixLen {
		prefix = rawKey[:keyPrefixLen]
	}

	rows, err := s.db.Query("SELECT id, user_id, key_hash, key_prefix, type, created_at FROM api_keys WHERE key_prefix = ?", prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var k APIKey
		var hash string
		if err := rows.Scan(&k.ID, &k.UserID, &hash, &k.KeyPrefix, &k.Type, &k.CreatedAt); err != nil {
			continue
		}

		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(rawKey)); err == nil {
			go s.db.Exec("UPDATE api_keys SET last_used_at = NOW() WHERE id = ?", k.ID)
			return &k, nil
		}
	}

	return nil, fmt.Errorf("invalid api key")
}

func (s *Store) ListAPIKeys(userID int) ([]APIKey, error) {
	query := "SELECT id, user_id, key_prefix, type, created_at FROM api_keys WHERE user_id = ? ORDER BY created_at DESC"
	rows, err := s.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		var k APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.KeyPrefix, &k.Type, &k.CreatedAt); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
