package httpx

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/oauth"
	"github.com/mbolis/quick-form/config"
	"github.com/mbolis/quick-form/log"
	"golang.org/x/crypto/bcrypt"
)

const refreshTokenTTL = 8760 * time.Hour

type credentialsVerifier struct {
	db            *sql.DB
	adminUsername string
	adminPassword string
}

// CredentialsVerifier checks admin logins against the user table. The first
// login as the configured admin creates that account with the configured
// password.
func CredentialsVerifier(db *sql.DB, cfg config.Config) oauth.CredentialsVerifier {
	return &credentialsVerifier{
		db:            db,
		adminUsername: strings.ToLower(cfg.AdminUsername),
		adminPassword: cfg.AdminPassword,
	}
}

func NewBearerServer(db *sql.DB, cfg config.Config) *oauth.BearerServer {
	return oauth.NewBearerServer(cfg.TokenSecret, cfg.TokenTTL, CredentialsVerifier(db, cfg), nil)
}

func (cs *credentialsVerifier) ValidateUser(username string, password string, scope string, r *http.Request) error {
	username = strings.ToLower(username)

	var hash []byte
	err := cs.db.
		QueryRowContext(r.Context(), "SELECT password_hash FROM user WHERE username=?", username).
		Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) && username == cs.adminUsername {
		hash, err = cs.createAdmin(r)
	}
	if err != nil {
		return err
	}

	return bcrypt.CompareHashAndPassword(hash, []byte(password))
}

// createAdmin inserts the bootstrap admin unless a concurrent login got there
// first, and returns the stored hash either way.
func (cs *credentialsVerifier) createAdmin(r *http.Request) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(cs.adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	res, err := cs.db.ExecContext(r.Context(),
		"INSERT OR IGNORE INTO user (username, password_hash) VALUES (?, ?)",
		cs.adminUsername,
		hash,
	)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.WithFields(log.Fields{"username": cs.adminUsername}).Info("default admin account created")
		return hash, nil
	}

	err = cs.db.
		QueryRowContext(r.Context(), "SELECT password_hash FROM user WHERE username=?", cs.adminUsername).
		Scan(&hash)
	return hash, err
}

func (cs *credentialsVerifier) StoreTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	_, err := cs.db.Exec(
		"INSERT INTO token (username, token_id, refresh_token_id, expiration) VALUES (?, ?, ?, ?)",
		strings.ToLower(credential),
		tokenID,
		refreshTokenID,
		time.Now().Add(refreshTokenTTL),
	)
	return err
}

func (cs *credentialsVerifier) ValidateTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	var expiration time.Time
	err := cs.db.
		QueryRow(`
			DELETE FROM token
			WHERE username = ?
				AND token_id = ?
				AND refresh_token_id = ?
			RETURNING expiration`,
			strings.ToLower(credential),
			tokenID,
			refreshTokenID,
		).
		Scan(&expiration)
	if err != nil {
		return errors.New("could not refresh")
	}

	if expiration.Before(time.Now()) {
		return errors.New("could not refresh")
	}
	return nil
}

func (*credentialsVerifier) AddClaims(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	return map[string]string{"roles": "admin", "username": credential}, nil
}
func (*credentialsVerifier) AddProperties(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	return map[string]string{}, nil
}
func (*credentialsVerifier) ValidateClient(clientID string, clientSecret string, scope string, r *http.Request) error {
	return errors.New("not supported")
}
