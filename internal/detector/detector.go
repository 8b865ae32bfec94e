// Package detector finds the reply editor a user has open in a webmail page,
// extracts the surrounding conversation, and tells the rest of the program
// whenever a reply opens or closes.
//
// A Detector is bound to one page for that page's lifetime. Navigation
// replaces the Detector, which resets its reply-open state.
package detector

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"replydraft/internal/dom"
	"replydraft/internal/model"
	"replydraft/internal/util"
)

// DefaultDebounce is the quiet period after the last page mutation before a
// detection pass runs.
const DefaultDebounce = 200 * time.Millisecond

// ErrUnknownQuery is returned by HandleQuery for message kinds the detector
// does not answer.
var ErrUnknownQuery = errors.New("unknown query")

// Notifier carries reply-open state changes to whoever listens. Delivery is
// fire-and-forget; an error only means nobody received it.
type Notifier interface {
	Notify(ctx context.Context, n model.StateNotification) error
}

type replyState int

const (
	stateUnset replyState = iota
	stateClosed
	stateOpen
)

func (s replyState) String() string {
	switch s {
	case stateClosed:
		return "closed"
	case stateOpen:
		return "open"
	default:
		return "unset"
	}
}

type Option func(*Detector)

func WithLogger(l *zap.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.log = l
		}
	}
}

func WithClock(c Clock) Option {
	return func(d *Detector) { d.clock = c }
}

func WithDebounce(delay time.Duration) Option {
	return func(d *Detector) {
		if delay > 0 {
			d.delay = delay
		}
	}
}

// WithSanitizeLimit sets the rune limit used when deciding whether a
// fallback message body has any text.
func WithSanitizeLimit(n int) Option {
	return func(d *Detector) { d.sanitizeLimit = n }
}

type Detector struct {
	page     dom.Page
	notifier Notifier
	log      *zap.Logger

	clock         Clock
	delay         time.Duration
	sanitizeLimit int
	debouncer     *Debouncer

	// mu serialises detection passes and guards state.
	mu    sync.Mutex
	state replyState

	runMu  sync.Mutex
	runCtx context.Context
}

func New(page dom.Page, notifier Notifier, opts ...Option) *Detector {
	d := &Detector{
		page:          page,
		notifier:      notifier,
		log:           zap.NewNop(),
		delay:         DefaultDebounce,
		sanitizeLimit: util.DefaultSanitizeLimit,
		runCtx:        context.Background(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.debouncer = NewDebouncer(d.clock, d.delay)
	return d
}

// Start runs the initial detection pass. Debounced passes triggered later by
// Schedule use ctx as well.
func (d *Detector) Start(ctx context.Context) *model.ReplyContext {
	d.runMu.Lock()
	d.runCtx = ctx
	d.runMu.Unlock()
	return d.CheckAndNotify(ctx)
}

// Schedule records a burst of page mutations. Detection runs once the page
// has been quiet for the debounce delay.
func (d *Detector) Schedule() {
	d.debouncer.Trigger(func() {
		d.runMu.Lock()
		ctx := d.runCtx
		d.runMu.Unlock()
		if ctx.Err() != nil {
			return
		}
		d.CheckAndNotify(ctx)
	})
}

// Close cancels any pending detection pass.
func (d *Detector) Close() {
	d.debouncer.Stop()
}

// GetConversationContext returns the context around the active reply
// editor, or nil when no reply is open.
func (d *Detector) GetConversationContext(ctx context.Context) *model.ReplyContext {
	editor := d.LocateActiveEditor(ctx)
	if editor == nil {
		return nil
	}
	rc := d.ExtractContext(ctx, editor)
	return &rc
}

// CheckAndNotify runs one detection pass. When the reply-open state differs
// from the previous pass (always true for the first pass) the new state is
// sent to the notifier. The context is returned whether or not the state
// changed.
func (d *Detector) CheckAndNotify(ctx context.Context) *model.ReplyContext {
	d.mu.Lock()
	defer d.mu.Unlock()

	rc := d.GetConversationContext(ctx)
	next := stateClosed
	if rc != nil {
		next = stateOpen
	}
	if next == d.state {
		return rc
	}

	d.log.Debug("reply state changed",
		zap.Stringer("from", d.state),
		zap.Stringer("to", next))
	d.state = next
	if d.notifier != nil {
		if err := d.notifier.Notify(ctx, model.ReplyContextState(next == stateOpen)); err != nil {
			// Nobody listening yet; the next transition sends again.
			d.log.Debug("state notification dropped", zap.Error(err))
		}
	}
	return rc
}

// HandleQuery answers a CHECK_REPLY_CONTEXT request with a fresh detection
// pass.
func (d *Detector) HandleQuery(ctx context.Context, q model.Query) (model.CheckReply, error) {
	if q.Kind != model.KindCheckReplyContext {
		return model.CheckReply{}, ErrUnknownQuery
	}
	rc := d.CheckAndNotify(ctx)
	return model.CheckReply{HasReplyOpen: rc != nil, Context: rc}, nil
}
