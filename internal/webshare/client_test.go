package webshare_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mycinema/internal/linkmatch"
	"mycinema/internal/services"
	"mycinema/internal/webshare"
)

// Hash values for user "jan", password "tajne" and salt "Xy7abc12".
const (
	wantPassword = "613c253df9c524e0a476e3e5d3cae541fd7633eb"
	wantDigest   = "66de8d8cebef524360d246044aa341ca"
)

type fakeBackend struct {
	logins   atomic.Int32
	searches atomic.Int32
	mu       sync.Mutex
	tokens   []string
	reject   atomic.Int32
}

func (b *fakeBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/salt/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.FormValue("username_or_email") != "jan" {
			t.Errorf("unexpected salt request %s %v", r.Method, r.Form)
		}
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><response><status>OK</status><salt>Xy7abc12</salt></response>`))
	})
	mux.HandleFunc("/login/", func(w http.ResponseWriter, r *http.Request) {
		b.logins.Add(1)
		if r.FormValue("password") != wantPassword || r.FormValue("digest") != wantDigest || r.FormValue("keep_logged_in") != "1" {
			_, _ = w.Write([]byte(`<response><status>FATAL</status><code>LOGIN_FATAL_1</code><message>Bad credentials</message></response>`))
			return
		}
		_, _ = w.Write([]byte(`<response><status>OK</status><token>tok-1</token></response>`))
	})
	mux.HandleFunc("/search/", func(w http.ResponseWriter, r *http.Request) {
		b.searches.Add(1)
		b.mu.Lock()
		b.tokens = append(b.tokens, r.FormValue("wst"))
		b.mu.Unlock()
		if b.reject.Load() > 0 {
			b.reject.Add(-1)
			_, _ = w.Write([]byte(`<response><status>FATAL</status><code>SEARCH_FATAL_1</code></response>`))
			return
		}
		if r.FormValue("what") != "Pelíšky 1999" || r.FormValue("category") != "video" || r.FormValue("limit") != "500" {
			t.Errorf("unexpected search form %v", r.Form)
		}
		_, _ = w.Write([]byte(`<response><status>OK</status><total>2</total>
<file><ident>abc</ident><name>Pelisky.1999.1080p.mkv</name><size>8589934592</size></file>
<file><ident>def</ident><name>Pelisky.1999.avi</name><size>bogus</size></file>
</response>`))
	})
	return mux
}

func newClient(t *testing.T, backend *fakeBackend, password string) *webshare.Client {
	t.Helper()
	server := httptest.NewServer(backend.handler(t))
	t.Cleanup(server.Close)
	client, err := webshare.New(server.URL, "jan", password, webshare.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return client
}

func TestSearchLogsInAndParsesFiles(t *testing.T) {
	backend := &fakeBackend{}
	client := newClient(t, backend, "tajne")

	got, err := client.Search(context.Background(), "Pelíšky 1999")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	want := []linkmatch.Candidate{
		{ID: "abc", Name: "Pelisky.1999.1080p.mkv", Size: 8 * linkmatch.GiB},
		{ID: "def", Name: "Pelisky.1999.avi", Size: 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected files (-want +got):\n%s", diff)
	}
	if _, err := client.Search(context.Background(), "Pelíšky 1999"); err != nil {
		t.Fatalf("second Search failed: %v", err)
	}
	if backend.logins.Load() != 1 {
		t.Fatalf("expected a single login, got %d", backend.logins.Load())
	}
	if diff := cmp.Diff([]string{"tok-1", "tok-1"}, backend.tokens); diff != "" {
		t.Fatalf("unexpected tokens (-want +got):\n%s", diff)
	}
}

func TestConcurrentFirstCallersShareOneLogin(t *testing.T) {
	backend := &fakeBackend{}
	client := newClient(t, backend, "tajne")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Session().Token(context.Background()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Token failed: %v", err)
	}
	if backend.logins.Load() != 1 {
		t.Fatalf("expected one login, got %d", backend.logins.Load())
	}
}

func TestSearchRenewsRejectedToken(t *testing.T) {
	backend := &fakeBackend{}
	backend.reject.Store(1)
	client := newClient(t, backend, "tajne")

	got, err := client.Search(context.Background(), "Pelíšky 1999")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected files after retry, got %v", got)
	}
	if backend.logins.Load() != 2 || backend.searches.Load() != 2 {
		t.Fatalf("expected relogin and retry, got logins=%d searches=%d", backend.logins.Load(), backend.searches.Load())
	}
}

func TestLoginRejectedIsConfigurationError(t *testing.T) {
	backend := &fakeBackend{}
	client := newClient(t, backend, "wrong")

	_, err := client.Search(context.Background(), "Pelíšky 1999")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if backend.searches.Load() != 0 {
		t.Fatalf("expected no search without a token")
	}
}

func TestMissingCredentials(t *testing.T) {
	backend := &fakeBackend{}
	client := newClient(t, backend, "")
	if _, err := client.Session().Token(context.Background()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if backend.logins.Load() != 0 {
		t.Fatal("expected no login attempt")
	}
}

func TestSearchHTTPFailureIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)
	client, err := webshare.New(server.URL, "jan", "tajne")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := client.Search(context.Background(), "anything"); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}
