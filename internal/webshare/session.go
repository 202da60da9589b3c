package webshare

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	md5crypt "github.com/GehirnInc/crypt/md5_crypt"
	"golang.org/x/sync/semaphore"

	"mycinema/internal/logging"
	"mycinema/internal/services"
)

const statusOK = "OK"

type saltResponse struct {
	XMLName xml.Name `xml:"response"`
	Status  string   `xml:"status"`
	Code    string   `xml:"code"`
	Message string   `xml:"message"`
	Salt    string   `xml:"salt"`
}

type loginResponse struct {
	XMLName xml.Name `xml:"response"`
	Status  string   `xml:"status"`
	Code    string   `xml:"code"`
	Message string   `xml:"message"`
	Token   string   `xml:"token"`
}

// Session caches the Webshare API token. The first Token call performs the
// login; callers arriving while it is in flight wait for its result.
type Session struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	logger     *slog.Logger

	gate *semaphore.Weighted

	mu    sync.RWMutex
	token string
}

// NewSession builds a session for the supplied credentials.
func NewSession(baseURL, username, password string, httpClient *http.Client, logger *slog.Logger) *Session {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Session{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		username:   strings.TrimSpace(username),
		password:   password,
		httpClient: httpClient,
		logger:     logging.NewComponentLogger(logger, "webshare"),
		gate:       semaphore.NewWeighted(1),
	}
}

// Token returns the cached token, logging in when none is cached yet.
func (s *Session) Token(ctx context.Context) (string, error) {
	if token := s.cached(); token != "" {
		return token, nil
	}
	if err := s.gate.Acquire(ctx, 1); err != nil {
		return "", services.Wrap(services.ErrTransient, "webshare", "login", "wait for login", err)
	}
	defer s.gate.Release(1)

	if token := s.cached(); token != "" {
		return token, nil
	}
	token, err := s.login(ctx)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return token, nil
}

// Invalidate drops the cached token so the next Token call logs in again.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

func (s *Session) cached() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) login(ctx context.Context) (string, error) {
	if s.username == "" || s.password == "" {
		return "", services.Wrap(services.ErrConfiguration, "webshare", "login", "credentials not configured", nil)
	}
	s.logger.Info("logging in to webshare", logging.String("username", s.username))

	var salt saltResponse
	if err := s.post(ctx, "/salt/", url.Values{"username_or_email": {s.username}}, &salt); err != nil {
		return "", err
	}
	if salt.Status != statusOK || strings.TrimSpace(salt.Salt) == "" {
		return "", services.Wrap(services.ErrConfiguration, "webshare", "salt", describe(salt.Status, salt.Code, salt.Message), nil)
	}

	encrypted, err := encryptPassword(s.password, salt.Salt)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "webshare", "login", "hash password", err)
	}
	form := url.Values{
		"username_or_email": {s.username},
		"password":          {encrypted},
		"digest":            {loginDigest(s.username, encrypted)},
		"keep_logged_in":    {"1"},
	}
	var login loginResponse
	if err := s.post(ctx, "/login/", form, &login); err != nil {
		return "", err
	}
	if login.Status != statusOK || strings.TrimSpace(login.Token) == "" {
		return "", services.Wrap(services.ErrConfiguration, "webshare", "login", describe(login.Status, login.Code, login.Message), nil)
	}
	s.logger.Info("webshare login successful")
	return strings.TrimSpace(login.Token), nil
}

func (s *Session) post(ctx context.Context, path string, form url.Values, out any) error {
	return postXML(ctx, s.httpClient, s.baseURL+path, form, out)
}

// encryptPassword derives the password hash Webshare expects: the SHA1 hex of
// the md5-crypt string for the account salt.
func encryptPassword(password, salt string) (string, error) {
	crypted, err := md5crypt.New().Generate([]byte(password), []byte("$1$"+salt))
	if err != nil {
		return "", err
	}
	sum := sha1.Sum([]byte(crypted))
	return hex.EncodeToString(sum[:]), nil
}

func loginDigest(username, encrypted string) string {
	sum := md5.Sum([]byte(username + ":Webshare:" + encrypted))
	return hex.EncodeToString(sum[:])
}

func describe(status, code, message string) string {
	parts := []string{fmt.Sprintf("status %q", status)}
	if code = strings.TrimSpace(code); code != "" {
		parts = append(parts, "code "+code)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	return strings.Join(parts, ", ")
}
