package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yukikurage/team-todo-api/internal/metrics"
	"github.com/yukikurage/team-todo-api/internal/push"
	"golang.org/x/sync/errgroup"
)

const (
	defaultSendLimit = 16
	defaultTimeout   = 30 * time.Second
)

// TokenSource resolves the device tokens registered by a set of users.
type TokenSource interface {
	TokensForUsers(ctx context.Context, userIDs []uint64) ([]string, error)
}

// Notifier is what services depend on. Neither method fails from the caller's point of view.
type Notifier interface {
	// Notify resolves the devices of n.Users and sends to each of them.
	Notify(ctx context.Context, n Notification)
	// NotifyDevices sends to tokens that were resolved up front, for audiences
	// whose tokens are about to be removed.
	NotifyDevices(ctx context.Context, event Event, subject string, tokens []string)
}

// Notification is one event addressed to a resolved audience.
type Notification struct {
	Event   Event
	Subject string
	Users   []uint64
}

// Report summarises one dispatch.
type Report struct {
	Tokens    int
	Delivered int
	Failed    int
}

type Fanout struct {
	tokens  TokenSource
	sender  push.Sender
	metrics metrics.Collector
	log     *slog.Logger

	sendLimit int
	timeout   time.Duration

	inflight sync.WaitGroup
}

func NewFanout(tokens TokenSource, sender push.Sender, collector metrics.Collector, log *slog.Logger) *Fanout {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Fanout{
		tokens:    tokens,
		sender:    sender,
		metrics:   collector,
		log:       log,
		sendLimit: defaultSendLimit,
		timeout:   defaultTimeout,
	}
}

// Notify dispatches n in the background, detached from the caller's cancellation.
// Use Wait to block until every started dispatch has finished.
func (f *Fanout) Notify(ctx context.Context, n Notification) {
	if len(n.Users) == 0 {
		return
	}

	detached := context.WithoutCancel(ctx)
	f.inflight.Add(1)
	go func() {
		defer f.inflight.Done()
		f.Dispatch(detached, n)
	}()
}

func (f *Fanout) NotifyDevices(ctx context.Context, event Event, subject string, tokens []string) {
	if len(tokens) == 0 {
		return
	}

	detached := context.WithoutCancel(ctx)
	f.inflight.Add(1)
	go func() {
		defer f.inflight.Done()

		ctx, cancel := context.WithTimeout(detached, f.timeout)
		defer cancel()
		f.send(ctx, f.log.With("event", string(event)), event, subject, tokens)
	}()
}

// Wait blocks until all dispatches started by Notify or NotifyDevices have returned.
func (f *Fanout) Wait() {
	f.inflight.Wait()
}

// Dispatch sends n to every token of its users and waits for all sends.
// Lookup and delivery failures are logged and counted, never returned.
func (f *Fanout) Dispatch(ctx context.Context, n Notification) Report {
	var report Report
	if len(n.Users) == 0 {
		return report
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	log := f.log.With("event", string(n.Event), "users", len(n.Users))

	tokens, err := f.tokens.TokensForUsers(ctx, n.Users)
	if err != nil {
		log.Error("failed to resolve device tokens", "error", err)
		f.metrics.Increment(metrics.NotificationsFailed, map[string]string{"event": string(n.Event), "stage": "lookup"})
		return report
	}
	if len(tokens) == 0 {
		log.Debug("no device tokens registered")
		return report
	}

	return f.send(ctx, log, n.Event, n.Subject, tokens)
}

func (f *Fanout) send(ctx context.Context, log *slog.Logger, event Event, subject string, tokens []string) Report {
	report := Report{Tokens: len(tokens)}
	title, body := Message(event, subject)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(f.sendLimit)

	for i, token := range tokens {
		g.Go(func() error {
			// one failed token must not cancel its siblings, so errors stay local
			if err := f.sender.Send(ctx, token, title, body); err != nil {
				log.Warn("push delivery failed", "token_index", i, "error", err)
				f.metrics.Increment(metrics.NotificationsFailed, map[string]string{"event": string(event), "stage": "send"})
				mu.Lock()
				report.Failed++
				mu.Unlock()
				return nil
			}
			f.metrics.Increment(metrics.NotificationsSent, map[string]string{"event": string(event)})
			mu.Lock()
			report.Delivered++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	log.Info("notification dispatched", "tokens", report.Tokens, "delivered", report.Delivered, "failed", report.Failed)
	return report
}
