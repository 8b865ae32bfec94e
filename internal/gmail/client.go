package gmail

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const redirectTimeout = 120 * time.Second

// Auth locates the OAuth client credentials and the token cache, and says
// where to talk to the user during the first authorisation.
type Auth struct {
	CredentialsPath string // client_secret.json from the Google Cloud console
	TokenPath       string

	In  io.Reader // manual code paste; os.Stdin when nil
	Out io.Writer // prompts; os.Stderr when nil
	Log *zap.Logger
}

// NewService returns a Gmail service allowed to create drafts. A cached
// token is reused when it still works; otherwise the user authorises in the
// browser and the new token is cached.
func NewService(ctx context.Context, a Auth) (*gmailv1.Service, error) {
	if a.In == nil {
		a.In = os.Stdin
	}
	if a.Out == nil {
		a.Out = os.Stderr
	}
	if a.Log == nil {
		a.Log = zap.NewNop()
	}

	b, err := os.ReadFile(a.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials at %s: %w", a.CredentialsPath, err)
	}
	cfg, err := google.ConfigFromJSON(b, gmailv1.GmailComposeScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth config: %w", err)
	}

	tok, err := readToken(a.TokenPath)
	if err == nil {
		// Validate the cached token by making a lightweight API call.
		svc, err := gmailv1.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, tok)))
		if err == nil {
			_, err = svc.Users.GetProfile("me").Context(ctx).Do()
		}
		if err == nil {
			return svc, nil
		}
		a.Log.Info("cached gmail token rejected, re-authorising", zap.Error(err))
		os.Remove(a.TokenPath)
	}

	tok, err = a.tokenFromWeb(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := saveToken(a.TokenPath, tok); err != nil {
		return nil, fmt.Errorf("save token: %w", err)
	}

	svc, err := gmailv1.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return svc, nil
}

func readToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		f.Close()
		return err
	}
	f.Close()
	return os.Rename(tmp, path)
}

// tokenFromWeb runs a loopback HTTP server to capture the auth code.
// If that fails or times out, it falls back to manual paste (code or URL).
func (a Auth) tokenFromWeb(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	code, err := a.loopbackCode(ctx, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.Log.Debug("loopback authorisation unavailable", zap.Error(err))
		code, err = a.pastedCode(cfg)
		if err != nil {
			return nil, err
		}
	}

	fmt.Fprintln(a.Out, "Exchanging code for token…")
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	fmt.Fprintln(a.Out, "Authentication successful.")
	return tok, nil
}

// loopbackCode waits for the OAuth redirect on a random localhost port.
// cfg.RedirectURL stays pointed at the loopback address on success, because
// the exchange must use the same redirect.
func (a Auth) loopbackCode(ctx context.Context, cfg *oauth2.Config) (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("listen on loopback: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	redirect := fmt.Sprintf("http://127.0.0.1:%d/", port)
	oldRedirect := cfg.RedirectURL
	cfg.RedirectURL = redirect

	codes := make(chan string, 1)
	mux := http.NewServeMux()
	srv := &http.Server{
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           mux,
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "Missing 'code' parameter", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "Authentication complete. You can close this window.")
		select {
		case codes <- code:
		default:
		}
	})
	go func() { _ = srv.Serve(ln) }()
	defer srv.Shutdown(context.Background())

	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintln(a.Out, "A browser window will open. If it does not, copy this URL:")
	fmt.Fprintln(a.Out, authURL)
	fmt.Fprintf(a.Out, "Waiting for redirect on %s …\n", redirect)
	if err := OpenBrowser(authURL); err != nil {
		a.Log.Debug("open browser", zap.Error(err))
	}

	select {
	case <-ctx.Done():
		cfg.RedirectURL = oldRedirect
		return "", ctx.Err()
	case code := <-codes:
		return strings.TrimSpace(code), nil
	case <-time.After(redirectTimeout):
		cfg.RedirectURL = oldRedirect
		fmt.Fprintln(a.Out, "Timeout waiting for redirect; falling back to manual paste.")
		return "", errors.New("timeout waiting for redirect")
	}
}

func (a Auth) pastedCode(cfg *oauth2.Config) (string, error) {
	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintln(a.Out, "Open this URL in your browser to authorize replydraft:")
	fmt.Fprintln(a.Out, authURL)
	fmt.Fprintln(a.Out, "")
	fmt.Fprintln(a.Out, "Paste the AUTH CODE itself or the FULL redirect URL here, then press Enter.")
	fmt.Fprint(a.Out, "> ")

	sc := bufio.NewScanner(a.In)
	sc.Buffer(make([]byte, 0, 1024), 1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", fmt.Errorf("read auth code: %w", err)
		}
		return "", errors.New("empty authorization code")
	}
	return parseAuthCode(sc.Text())
}

// parseAuthCode accepts either the bare code or the full redirect URL.
func parseAuthCode(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("empty authorization code")
	}
	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		return input, nil
	}
	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("parse redirect URL: %w", err)
	}
	code := strings.TrimSpace(u.Query().Get("code"))
	if code == "" {
		return "", errors.New("no 'code' parameter found in pasted URL")
	}
	return code, nil
}
