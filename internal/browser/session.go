// Package browser connects to Chrome over the DevTools protocol, finds the
// webmail tab and keeps a reply-context detector attached to it.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"github.com/ysmood/gson"
	"go.uber.org/zap"

	"replydraft/internal/bus"
	"replydraft/internal/detector"
	"replydraft/internal/dom"
)

// ErrNotConnected is returned when the session has not been started.
var ErrNotConnected = errors.New("browser not connected")

type Config struct {
	DebuggerURL string
	ChromeBin   string
	Headless    bool
	UserDataDir string
	// WebmailURL is the URL prefix identifying webmail tabs.
	WebmailURL string

	Debounce      time.Duration
	SanitizeLimit int
}

// Session owns the connection to one browser and the detectors attached to
// its tabs. Tab ids are CDP target ids.
type Session struct {
	ID string

	cfg Config
	hub *bus.Hub
	log *zap.Logger

	mu         sync.Mutex
	browser    *rod.Browser
	controlURL string
	launched   *launcher.Launcher
	tabs       map[string]*attachment
	ctx        context.Context
}

type attachment struct {
	page       *rod.Page
	detector   *detector.Detector
	unregister func()
	stopExpose func() error
	removeJS   func() error
	ctx        context.Context
	cancel     context.CancelFunc
}

func New(cfg Config, hub *bus.Hub, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.NewString()
	return &Session{
		ID:   id,
		cfg:  cfg,
		hub:  hub,
		log:  log.Named("browser").With(zap.String("session", id)),
		tabs: make(map[string]*attachment),
		ctx:  context.Background(),
	}
}

// Start connects to the configured debugger URL, or launches Chrome when
// none is set. ctx bounds the whole session.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		if _, err := s.browser.Version(); err == nil {
			return nil
		}
		s.log.Warn("stale browser connection, reconnecting")
		s.detachAllLocked()
		_ = s.browser.Close()
		s.browser = nil
	}

	controlURL := s.cfg.DebuggerURL
	if controlURL == "" {
		l := launcher.New().Headless(s.cfg.Headless)
		if s.cfg.ChromeBin != "" {
			l = l.Bin(s.cfg.ChromeBin)
		}
		if s.cfg.UserDataDir != "" {
			l = l.UserDataDir(s.cfg.UserDataDir)
		}
		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("launch chrome: %w", err)
		}
		s.launched = l
		controlURL = u
	} else if !strings.HasPrefix(controlURL, "ws") {
		u, err := launcher.ResolveURL(controlURL)
		if err != nil {
			return fmt.Errorf("resolve debugger url: %w", err)
		}
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}
	if err := (proto.TargetSetDiscoverTargets{Discover: true}).Call(b); err != nil {
		s.log.Debug("discover targets", zap.Error(err))
	}
	go b.EachEvent(func(e *proto.TargetTargetDestroyed) {
		s.Detach(string(e.TargetID))
	})()

	s.browser = b
	s.controlURL = controlURL
	s.ctx = ctx
	s.log.Info("connected to browser", zap.String("control_url", controlURL))
	return nil
}

// Close detaches every detector and disconnects. A browser launched by Start
// is shut down; one we merely connected to is left running.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.detachAllLocked()
	if s.browser == nil {
		return nil
	}
	var err error
	if s.launched != nil {
		err = s.browser.Close()
		s.launched.Cleanup()
		s.launched = nil
	}
	s.browser = nil
	return err
}

// Navigate opens url in a new tab and returns the tab id.
func (s *Session) Navigate(ctx context.Context, url string) (string, error) {
	b, err := s.conn()
	if err != nil {
		return "", err
	}
	page, err := b.Context(ctx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return "", fmt.Errorf("open %s: %w", url, err)
	}
	if err := page.Context(ctx).WaitLoad(); err != nil {
		return "", fmt.Errorf("wait for %s: %w", url, err)
	}
	return string(page.TargetID), nil
}

func (s *Session) conn() (*rod.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser == nil {
		return nil, ErrNotConnected
	}
	return s.browser, nil
}

// ActiveWebmailTab returns the id of the webmail tab the user is looking at.
// ok is false when no open tab is on the webmail site.
func (s *Session) ActiveWebmailTab(ctx context.Context) (tabID string, ok bool, err error) {
	b, err := s.conn()
	if err != nil {
		return "", false, err
	}
	pages, err := b.Context(ctx).Pages()
	if err != nil {
		return "", false, fmt.Errorf("list tabs: %w", err)
	}

	var tabs []tabInfo
	for _, p := range pages {
		info, err := p.Context(ctx).Info()
		if err != nil {
			s.log.Debug("tab info", zap.String("tab", string(p.TargetID)), zap.Error(err))
			continue
		}
		if info.Type != proto.TargetTargetInfoTypePage {
			continue
		}
		t := tabInfo{ID: string(p.TargetID), URL: info.URL}
		if isWebmail(t.URL, s.cfg.WebmailURL) {
			res, err := p.Context(ctx).Eval(`() => document.visibilityState === 'visible'`)
			t.Visible = err == nil && res.Value.Bool()
		}
		tabs = append(tabs, t)
	}

	t, ok := pickWebmailTab(tabs, s.cfg.WebmailURL)
	return t.ID, ok, nil
}

// Inject attaches a detector to tabID unless one is already running there.
// The detector follows DOM mutations through a MutationObserver and is
// rebuilt whenever the tab navigates.
func (s *Session) Inject(ctx context.Context, tabID string) error {
	att, created, err := s.inject(ctx, tabID)
	if err != nil || !created {
		return err
	}
	// The initial pass answers queries that arrive right after injection.
	att.detector.Start(att.ctx)
	return nil
}

func (s *Session) inject(ctx context.Context, tabID string) (*attachment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser == nil {
		return nil, false, ErrNotConnected
	}
	if att, ok := s.tabs[tabID]; ok {
		return att, false, nil
	}

	page, err := s.browser.PageFromTarget(proto.TargetTargetID(tabID))
	if err != nil {
		return nil, false, fmt.Errorf("attach to tab %s: %w", tabID, err)
	}

	attCtx, cancel := context.WithCancel(s.ctx)
	att := &attachment{page: page, ctx: attCtx, cancel: cancel}

	stop, err := page.Expose(mutationBinding, func(gson.JSON) (interface{}, error) {
		s.mutated(tabID)
		return nil, nil
	})
	if err != nil {
		cancel()
		return nil, false, fmt.Errorf("expose mutation binding: %w", err)
	}
	att.stopExpose = stop

	remove, err := page.EvalOnNewDocument(observerScript())
	if err != nil {
		cancel()
		_ = stop()
		return nil, false, fmt.Errorf("install observer: %w", err)
	}
	att.removeJS = remove
	if _, err := page.Context(ctx).Evaluate(rod.Eval(observerFunc)); err != nil {
		s.log.Debug("start observer on current document", zap.String("tab", tabID), zap.Error(err))
	}

	go page.Context(attCtx).EachEvent(func(e *proto.PageFrameNavigated) {
		if e.Frame == nil || e.Frame.ParentID != "" {
			return
		}
		s.log.Debug("tab navigated", zap.String("tab", tabID), zap.String("url", e.Frame.URL))
		s.resetDetector(tabID)
	})()

	s.tabs[tabID] = att
	s.attachDetectorLocked(tabID, att)
	s.log.Info("detector attached", zap.String("tab", tabID))
	return att, true, nil
}

func (s *Session) attachDetectorLocked(tabID string, att *attachment) {
	d := detector.New(dom.NewRodPage(att.page), s.hub.Notifier(tabID),
		detector.WithLogger(s.log.Named("detector").With(zap.String("tab", tabID))),
		detector.WithDebounce(s.cfg.Debounce),
		detector.WithSanitizeLimit(s.cfg.SanitizeLimit))
	att.detector = d
	att.unregister = s.hub.Register(tabID, d)
}

// resetDetector replaces the detector of tabID after a navigation, which
// also resets its reply-open state.
func (s *Session) resetDetector(tabID string) {
	s.mu.Lock()
	att, ok := s.tabs[tabID]
	if !ok {
		s.mu.Unlock()
		return
	}
	att.detector.Close()
	att.unregister()
	s.attachDetectorLocked(tabID, att)
	d := att.detector
	ctx := att.ctx
	s.mu.Unlock()

	d.Start(ctx)
}

func (s *Session) mutated(tabID string) {
	s.mu.Lock()
	var d *detector.Detector
	if att, ok := s.tabs[tabID]; ok {
		d = att.detector
	}
	s.mu.Unlock()
	if d != nil {
		d.Schedule()
	}
}

// Detach stops the detector in tabID, if any.
func (s *Session) Detach(tabID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detachLocked(tabID)
}

func (s *Session) detachLocked(tabID string) {
	att, ok := s.tabs[tabID]
	if !ok {
		return
	}
	delete(s.tabs, tabID)
	att.detector.Close()
	att.unregister()
	att.cancel()
	if err := att.removeJS(); err != nil {
		s.log.Debug("remove observer script", zap.String("tab", tabID), zap.Error(err))
	}
	if err := att.stopExpose(); err != nil {
		s.log.Debug("remove mutation binding", zap.String("tab", tabID), zap.Error(err))
	}
	s.log.Info("detector detached", zap.String("tab", tabID))
}

func (s *Session) detachAllLocked() {
	for id := range s.tabs {
		s.detachLocked(id)
	}
}

// Snapshot returns the tab's HTML with visibility and focus recorded as
// attributes, so dom.HTMLPage can run detection on it offline.
func (s *Session) Snapshot(ctx context.Context, tabID string) (string, error) {
	b, err := s.conn()
	if err != nil {
		return "", err
	}
	page, err := b.PageFromTarget(proto.TargetTargetID(tabID))
	if err != nil {
		return "", fmt.Errorf("attach to tab %s: %w", tabID, err)
	}
	res, err := page.Context(ctx).Evaluate(rod.Eval(snapshotFunc, dom.AttrSnapshotVisible, dom.AttrSnapshotFocused))
	if err != nil {
		return "", fmt.Errorf("snapshot tab %s: %w", tabID, err)
	}
	return res.Value.Str(), nil
}
