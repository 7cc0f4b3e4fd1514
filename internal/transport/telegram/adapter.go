package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"svitlobot/internal/notify"
	"svitlobot/internal/schedule"
	"svitlobot/internal/storage"
	"svitlobot/pkg/logx"
)

// Config configures the telegram transport.
type Config struct {
	Token       string
	PollTimeout time.Duration
}

// SubscriberStore is what the command handlers need from storage.
type SubscriberStore interface {
	UpsertSubscriber(ctx context.Context, userID, chatID int64) error
	Subscriber(ctx context.Context, userID int64) (*storage.Subscriber, error)
	SetGroup(ctx context.Context, userID int64, group string) error
	SetSubscribed(ctx context.Context, userID int64, subscribed bool) error
	State(ctx context.Context, group string, slot schedule.Slot) (*schedule.State, error)
}

// Adapter owns the telebot instance. It is both the command front-end and
// the notify.Messenger implementation; the pipeline only sees the latter.
type Adapter struct {
	cfg   Config
	log   logx.Logger
	store SubscriberStore

	bot *tele.Bot

	runMu     sync.Mutex
	running   bool
	runCancel context.CancelFunc
	runWG     sync.WaitGroup
}

func New(cfg Config, store SubscriberStore, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	a := &Adapter{
		cfg:   cfg,
		log:   log.With(logx.String("comp", "telegram")),
		store: store,
		bot:   b,
	}
	a.registerHandlers()
	return a, nil
}

// Start begins long polling. Handlers run on telebot's own goroutines.
func (a *Adapter) Start(ctx context.Context) {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return
	}
	a.running = true
	rctx, cancel := context.WithCancel(ctx)
	a.runCancel = cancel
	a.runWG.Add(1)
	a.runMu.Unlock()

	go func() {
		defer a.runWG.Done()
		go func() {
			<-rctx.Done()
			a.bot.Stop()
		}()
		a.log.Info("polling started")
		a.bot.Start()
		a.log.Info("polling stopped")
	}()
}

func (a *Adapter) Stop() {
	a.runMu.Lock()
	cancel := a.runCancel
	a.runCancel = nil
	a.running = false
	a.runMu.Unlock()
	if cancel != nil {
		cancel()
		a.runWG.Wait()
	}
}

// SendJob implements notify.Messenger.
func (a *Adapter) SendJob(ctx context.Context, chatID int64, job notify.Job) error {
	return a.send(ctx, chatID, FormatJob(job), tele.ModeMarkdown, mainMenu())
}

// SendText implements logx.Sender for the operator log sink.
func (a *Adapter) SendText(ctx context.Context, chatID int64, text string) error {
	return a.send(ctx, chatID, text)
}

// send wraps telebot's blocking Send in a context so delivery attempts can
// be abandoned at their timeout. The abandoned goroutine finishes (or fails)
// on telebot's own HTTP timeout; nothing waits for it.
func (a *Adapter) send(ctx context.Context, chatID int64, text string, opts ...interface{}) error {
	done := make(chan error, 1)
	go func() {
		_, err := a.bot.Send(tele.ChatID(chatID), text, opts...)
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
