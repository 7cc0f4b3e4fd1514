package telegram

import (
	"context"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"svitlobot/internal/schedule"
	"svitlobot/pkg/logx"
)

const handlerTimeout = 10 * time.Second

const (
	textGreeting = "Привіт! 👋\n\n" +
		"Цей бот надсилає сповіщення про зміни графіку відключень електроенергії.\n\n" +
		"Оберіть групу через кнопку «Обрати групу»."
	textPickGroup = "Оберіть вашу групу:\n" +
		"Як дізнатись групу — https://poweron.loe.lviv.ua/shedule-off"
	textNoGroup = "Спочатку оберіть групу (кнопка «Обрати групу»)."
	textNoData  = "Дані ще не завантажено, спробуйте через хвилину."
	textHelp    = "📋 Список команд:\n\n" +
		"/start — початок роботи та вибір групи\n" +
		"/group — змінити групу\n" +
		"/status — показати поточний графік для вашої групи\n" +
		"/unsubscribe — відключити підписку на сповіщення\n" +
		"/help — показати цю довідку\n\n" +
		"Бот автоматично надсилає сповіщення при зміні графіку для вашої групи."
	textUnsubscribed = "Підписку відключено. Ви більше не будете отримувати сповіщення.\n\n" +
		"Оберіть групу ще раз, щоб знову активувати сповіщення."
)

func (a *Adapter) registerHandlers() {
	a.bot.Handle("/start", a.onStart)
	a.bot.Handle("/group", a.onGroup)
	a.bot.Handle("/status", a.onStatus)
	a.bot.Handle("/unsubscribe", a.onUnsubscribe)
	a.bot.Handle("/help", a.onHelp)

	a.bot.Handle(tele.OnText, a.onText)
	a.bot.Handle(tele.OnCallback, a.onCallback)
}

func handlerCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), handlerTimeout)
}

func (a *Adapter) onStart(c tele.Context) error {
	ctx, cancel := handlerCtx()
	defer cancel()

	userID := c.Sender().ID
	chatID := c.Chat().ID
	if err := a.store.UpsertSubscriber(ctx, userID, chatID); err != nil {
		a.log.Warn("subscriber upsert failed", logx.Int64("user_id", userID), logx.Err(err))
		return c.Send(textNoData, mainMenu())
	}

	sub, err := a.store.Subscriber(ctx, userID)
	if err == nil && sub != nil && sub.GroupCode != "" {
		return c.Send("Поточна група: "+sub.GroupCode, mainMenu())
	}
	return c.Send(textGreeting, mainMenu())
}

func (a *Adapter) onGroup(c tele.Context) error {
	return c.Send(textPickGroup, groupKeyboard())
}

func (a *Adapter) onStatus(c tele.Context) error {
	ctx, cancel := handlerCtx()
	defer cancel()
	return a.sendStored(ctx, c, c.Sender().ID)
}

func (a *Adapter) onUnsubscribe(c tele.Context) error {
	ctx, cancel := handlerCtx()
	defer cancel()

	userID := c.Sender().ID
	if err := a.store.SetSubscribed(ctx, userID, false); err != nil {
		a.log.Warn("unsubscribe failed", logx.Int64("user_id", userID), logx.Err(err))
	}
	return c.Send(textUnsubscribed, mainMenu())
}

func (a *Adapter) onHelp(c tele.Context) error {
	return c.Send(textHelp, mainMenu())
}

func (a *Adapter) onText(c tele.Context) error {
	switch c.Text() {
	case btnChooseGroup:
		return a.onGroup(c)
	case btnShowSchedule:
		return a.onStatus(c)
	case btnHelp:
		return a.onHelp(c)
	}
	// A bare group code typed by hand works too.
	if schedule.ValidGroup(c.Text()) {
		ctx, cancel := handlerCtx()
		defer cancel()
		return a.assignGroup(ctx, c, c.Text())
	}
	return nil
}

func (a *Adapter) onCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	// telebot encodes Data() callbacks as "unique|payload".
	unique, payload := splitCallback(cb.Data)
	if unique != "set_group" {
		return nil
	}
	if !schedule.ValidGroup(payload) {
		return c.Respond(&tele.CallbackResponse{Text: "Невірний код групи!", ShowAlert: true})
	}

	ctx, cancel := handlerCtx()
	defer cancel()

	if err := c.Respond(&tele.CallbackResponse{Text: "Група " + payload + " встановлена!"}); err != nil {
		a.log.Debug("callback respond failed", logx.Err(err))
	}
	_ = c.Edit("Група встановлена: " + payload)
	return a.assignGroup(ctx, c, payload)
}

// assignGroup binds the user to a group, re-enables their subscription and
// immediately sends the stored schedule so they see what they signed up for.
func (a *Adapter) assignGroup(ctx context.Context, c tele.Context, group string) error {
	userID := c.Sender().ID
	chatID := c.Chat().ID

	if err := a.store.UpsertSubscriber(ctx, userID, chatID); err != nil {
		a.log.Warn("subscriber upsert failed", logx.Int64("user_id", userID), logx.Err(err))
		return c.Send(textNoData, mainMenu())
	}
	if err := a.store.SetGroup(ctx, userID, group); err != nil {
		a.log.Warn("group assignment failed", logx.Int64("user_id", userID), logx.Err(err))
		return c.Send(textNoData, mainMenu())
	}

	a.log.Info("group selected", logx.Int64("user_id", userID), logx.String("group", group))
	return a.sendStored(ctx, c, userID)
}

// sendStored replies with the current stored schedule for the user's group.
func (a *Adapter) sendStored(ctx context.Context, c tele.Context, userID int64) error {
	sub, err := a.store.Subscriber(ctx, userID)
	if err != nil {
		a.log.Warn("subscriber lookup failed", logx.Int64("user_id", userID), logx.Err(err))
		return c.Send(textNoData, mainMenu())
	}
	if sub == nil || sub.GroupCode == "" {
		return c.Send(textNoGroup, mainMenu())
	}

	st, err := a.store.State(ctx, sub.GroupCode, schedule.SlotToday)
	if err != nil {
		a.log.Warn("state lookup failed", logx.String("group", sub.GroupCode), logx.Err(err))
		return c.Send(textNoData, mainMenu())
	}
	if st == nil {
		return c.Send(textNoData, mainMenu())
	}
	return c.Send(FormatState(st), tele.ModeMarkdown, mainMenu())
}

func splitCallback(data string) (unique, payload string) {
	// telebot prefixes data-carrying callbacks with "\f".
	data = strings.TrimPrefix(data, "\f")
	if i := strings.IndexByte(data, '|'); i >= 0 {
		return data[:i], data[i+1:]
	}
	return data, ""
}
