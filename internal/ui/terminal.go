package ui

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/actionbus/internal/app"
	"github.com/dshills/actionbus/internal/event"
	"github.com/dshills/actionbus/internal/event/events"
	"github.com/dshills/actionbus/internal/event/topic"
)

// DefaultLogLines is the number of bus messages kept when none is configured.
const DefaultLogLines = 200

// Option configures a Terminal.
type Option func(*Terminal)

// WithLogger sets the logger.
func WithLogger(l *app.Logger) Option {
	return func(t *Terminal) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithLogLines sets how many bus messages the log view keeps.
func WithLogLines(n int) Option {
	return func(t *Terminal) {
		t.log = NewLogView(n)
	}
}

// WithLoop sets the loop that queues actions and idle callbacks.
func WithLoop(l *app.Loop) Option {
	return func(t *Terminal) {
		if l != nil {
			t.loop = l
		}
	}
}

// Terminal is the tcell host. It implements event.Scheduler.
type Terminal struct {
	screen tcell.Screen
	loop   *app.Loop
	logger *app.Logger

	bus     *event.Bus
	logSub  *event.PrefixFuncHandler
	statSub *event.FuncHandler

	log    *LogView
	status string

	running atomic.Bool
	quit    atomic.Bool
	ready   chan struct{}
}

// New creates a terminal host on screen. The screen is initialized by Run.
func New(screen tcell.Screen, opts ...Option) *Terminal {
	t := &Terminal{
		screen: screen,
		logger: app.NullLogger,
		log:    NewLogView(DefaultLogLines),
		status: "ready",
		ready:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.loop == nil {
		t.loop = app.NewLoop(app.WithLoopLogger(t.logger))
	}
	return t
}

// Post queues fn as a user action. It is safe to call from any goroutine.
func (t *Terminal) Post(fn func() error) error {
	if err := t.loop.Post(fn); err != nil {
		return err
	}
	t.wake()
	return nil
}

// ScheduleOnceHighPriority implements event.Scheduler. fn runs after the
// current action and before the next frame is shown.
func (t *Terminal) ScheduleOnceHighPriority(fn func() error) {
	t.loop.ScheduleOnceHighPriority(fn)
	t.wake()
}

// Quit asks Run to return after the current event.
func (t *Terminal) Quit() {
	t.quit.Store(true)
	t.wake()
}

// Ready is closed once the screen is initialized.
func (t *Terminal) Ready() <-chan struct{} {
	return t.ready
}

// Loop returns the loop queuing the terminal's actions.
func (t *Terminal) Loop() *app.Loop {
	return t.loop
}

// Bind subscribes the log view and the status line to bus. Keys are
// published on it. Call it before Run.
func (t *Terminal) Bind(bus *event.Bus) error {
	logSub := event.PrefixFunc(func(tp topic.Topic, payload any) error {
		t.log.Add(tp, payload)
		return nil
	})
	statSub := event.Func(func(any) error {
		t.refreshStatus()
		return nil
	})

	if err := bus.SubscribePrefix("", logSub); err != nil {
		return err
	}
	if err := bus.SubscribeExact(events.TopicStatusLineRefresh, statSub); err != nil {
		bus.UnsubscribePrefix("", logSub)
		return err
	}

	t.bus, t.logSub, t.statSub = bus, logSub, statSub
	t.refreshStatus()
	return nil
}

// Unbind removes the subscriptions made by Bind.
func (t *Terminal) Unbind() {
	if t.bus == nil {
		return
	}
	t.bus.UnsubscribePrefix("", t.logSub)
	t.bus.UnsubscribeExact(events.TopicStatusLineRefresh, t.statSub)
	t.bus = nil
}

// LogLines returns the bus messages in the log view, oldest first.
func (t *Terminal) LogLines() []string {
	return t.log.Lines()
}

// Status returns the status line text.
func (t *Terminal) Status() string {
	return t.status
}

// Run initializes the screen and processes events until ctx is cancelled,
// Quit is called, an action returns app.ErrQuit or the user presses q, Esc
// or Ctrl-C. The screen is restored before Run returns.
func (t *Terminal) Run(ctx context.Context) error {
	if !t.running.CompareAndSwap(false, true) {
		return app.ErrAlreadyRunning
	}

	if err := t.screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer t.screen.Fini()
	t.screen.EnablePaste()
	close(t.ready)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			t.Quit()
		case <-stop:
		}
	}()

	// Work queued before the screen existed
	quit := t.loop.RunPending()
	t.loop.RunIdle()
	if quit || t.quit.Load() {
		return nil
	}
	t.draw()

	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return nil
		}

		quit := t.handleEvent(ev)
		if t.loop.RunPending() {
			quit = true
		}
		t.loop.RunIdle()

		if quit || t.quit.Load() {
			return nil
		}
		t.draw()
	}
}

// handleEvent handles one screen event and reports whether to quit.
func (t *Terminal) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventInterrupt:
		// Wake-up only; queued actions run after every event

	case *tcell.EventKey:
		if isQuitKey(ev) {
			return true
		}
		if t.bus == nil {
			return false
		}
		key := events.Key{Name: ev.Name()}
		if ev.Key() == tcell.KeyRune {
			key.Rune = ev.Rune()
		}
		t.loop.RunAction(func() error {
			return event.PublishTyped(t.bus, events.KeyPressed, key)
		})
		t.loop.RunIdle()

	case *tcell.EventResize:
		t.screen.Sync()
		if t.bus == nil {
			return false
		}
		t.loop.RunAction(func() error {
			return t.bus.DeferPublish(events.TopicViewRefresh, "resize")
		})
		t.loop.RunIdle()
	}
	return false
}

func isQuitKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return ev.Rune() == 'q'
	}
	return false
}

// wake interrupts PollEvent. A failed post means events are already queued,
// and the loop drains its actions after each of them.
func (t *Terminal) wake() {
	select {
	case <-t.ready:
		_ = t.screen.PostEvent(tcell.NewEventInterrupt(nil))
	default:
	}
}

func (t *Terminal) refreshStatus() {
	m := t.loop.Metrics().Snapshot()
	if t.bus == nil {
		t.status = fmt.Sprintf("%d actions", m.Actions)
		return
	}
	s := t.bus.Snapshot()
	t.status = fmt.Sprintf("%d exact, %d prefix subscriptions | %d actions | %d flushes | %d errors",
		len(s.Exact), len(s.Prefix), m.Actions, s.EndOfAction.Flushes, m.ActionErrors+m.IdleErrors)
}

// draw renders a frame and shows it.
func (t *Terminal) draw() {
	width, height := t.screen.Size()
	if width <= 0 || height <= 0 {
		return
	}

	t.screen.Clear()
	drawText(t.screen, 0, 0, width, headerStyle, " actionbus   q quits")

	lines := t.log.Lines()
	rows := height - 2
	if rows > 0 {
		if len(lines) > rows {
			lines = lines[len(lines)-rows:]
		}
		for i, line := range lines {
			drawText(t.screen, 0, 1+i, width, logStyle, line)
		}
	}

	if height > 1 {
		drawText(t.screen, 0, height-1, width, statusStyle, " "+t.status)
	}

	t.screen.Show()
	t.loop.Metrics().RecordRepaint()
}

var _ event.Scheduler = (*Terminal)(nil)
