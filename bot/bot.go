package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"bakery-storefront/config"
	"bakery-storefront/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// SessionFactory builds the storefront for one chat. Toasts raised by the
// storefront must be delivered to n.
type SessionFactory func(ctx context.Context, chatID int64, n services.Notifier) (*services.Storefront, error)

type session struct {
	sf       *services.Storefront
	toasts   *services.ToastRecorder
	conv     *conversation
	lastSeen time.Time
}

const sweepInterval = time.Minute

// Bot presents one storefront session per chat. Updates are handled one at a
// time, so a session is never used concurrently.
type Bot struct {
	api     *tgbotapi.BotAPI
	cfg     *config.Config
	factory SessionFactory

	sessions   map[int64]*session
	sessionsMu sync.Mutex
	idleTTL    time.Duration // 0 keeps sessions forever
	lastSweep  time.Time
	now        func() time.Time
}

func New(cfg *config.Config, factory SessionFactory) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:      api,
		cfg:      cfg,
		factory:  factory,
		sessions: make(map[int64]*session),
		idleTTL:  cfg.Storefront.SessionIdleTTL,
		now:      time.Now,
	}, nil
}

func (b *Bot) session(ctx context.Context, chatID int64) (*session, error) {
	b.sessionsMu.Lock()
	defer b.sessionsMu.Unlock()
	now := time.Now()
	if b.now != nil {
		now = b.now()
	}
	b.evictIdle(now)
	if s, ok := b.sessions[chatID]; ok {
		s.lastSeen = now
		return s, nil
	}
	rec := &services.ToastRecorder{}
	sf, err := b.factory(ctx, chatID, rec)
	if err != nil {
		return nil, err
	}
	s := &session{sf: sf, toasts: rec, lastSeen: now}
	b.sessions[chatID] = s
	return s, nil
}

// evictIdle closes sessions untouched for idleTTL. Callers hold sessionsMu.
func (b *Bot) evictIdle(now time.Time) {
	if b.idleTTL <= 0 || now.Sub(b.lastSweep) < sweepInterval {
		return
	}
	b.lastSweep = now
	for id, s := range b.sessions {
		if now.Sub(s.lastSeen) >= b.idleTTL {
			s.sf.Close()
			delete(b.sessions, id)
		}
	}
}

func (b *Bot) setBotCommands() error {
	cfg := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Home"},
		tgbotapi.BotCommand{Command: "menu", Description: "Browse the menu"},
		tgbotapi.BotCommand{Command: "cart", Description: "Your cart"},
		tgbotapi.BotCommand{Command: "checkout", Description: "Place an order"},
		tgbotapi.BotCommand{Command: "reviews", Description: "Customer reviews"},
		tgbotapi.BotCommand{Command: "review", Description: "Write a review"},
		tgbotapi.BotCommand{Command: "account", Description: "Profile and orders"},
		tgbotapi.BotCommand{Command: "login", Description: "Sign in"},
		tgbotapi.BotCommand{Command: "register", Description: "Create an account"},
		tgbotapi.BotCommand{Command: "logout", Description: "Sign out"},
		tgbotapi.BotCommand{Command: "subscribe", Description: "Newsletter"},
		tgbotapi.BotCommand{Command: "contact", Description: "Send us a message"},
		tgbotapi.BotCommand{Command: "about", Description: "Address and hours"},
		tgbotapi.BotCommand{Command: "branding", Description: "Shop branding and theme"},
		tgbotapi.BotCommand{Command: "cancel", Description: "Cancel the current form"},
	)
	_, err := b.api.Request(cfg)
	return err
}

func (b *Bot) Start(ctx context.Context) {
	if err := b.setBotCommands(); err != nil {
		zap.S().Warnf("set bot commands: %v", err)
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	zap.S().Infof("bot @%s started", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message == nil {
		return
	}
	msg := update.Message
	chatID := msg.Chat.ID
	s, err := b.session(ctx, chatID)
	if err != nil {
		zap.S().Errorf("open session chat_id=%d: %v", chatID, err)
		b.send(chatID, "Sorry, the shop is unavailable right now.")
		return
	}

	text := strings.TrimSpace(msg.Text)
	if msg.IsCommand() {
		b.handleCommand(ctx, chatID, s, msg.Command())
		return
	}
	if s.conv == nil {
		b.sendCard(chatID, s.sf.HomeCard())
		return
	}
	if msg.Contact != nil {
		text = msg.Contact.PhoneNumber
	}
	if s.conv.current().secret {
		// keep passwords out of the chat history
		if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, msg.MessageID)); err != nil {
			zap.S().Debugf("delete secret message chat_id=%d: %v", chatID, err)
		}
	}
	b.advance(ctx, chatID, s, text)
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, s *session, cmd string) {
	if cmd != "cancel" && s.conv != nil {
		s.conv = nil
	}
	sf := s.sf
	switch cmd {
	case "start":
		sf.UI.ShowPage(services.PageHome)
		b.sendCard(chatID, sf.HomeCard())
	case "menu":
		sf.UI.ShowPage(services.PageMenu)
		b.sendCard(chatID, sf.MenuCard())
	case "cart":
		sf.UI.ShowPage(services.PageCart)
		b.sendCard(chatID, sf.CartCard())
	case "reviews":
		sf.UI.ShowPage(services.PageReviews)
		b.sendCard(chatID, sf.ReviewsCard())
	case "account":
		sf.UI.ShowPage(services.PageAccount)
		b.sendCard(chatID, sf.AccountCard())
	case "about":
		sf.UI.ShowPage(services.PageAbout)
		b.sendCard(chatID, sf.AboutCard())
	case "branding":
		b.sendCard(chatID, sf.BrandingCard())
	case "checkout":
		b.startCheckout(ctx, chatID, s)
	case "review":
		b.sendCard(chatID, services.RatingCard(sf.Forms.Rating()))
		b.startFlow(chatID, s, reviewFlow)
	case "contact":
		sf.UI.ShowPage(services.PageContact)
		b.startFlow(chatID, s, contactFlow)
	case "subscribe":
		b.startFlow(chatID, s, newsletterFlow)
	case "login":
		sf.UI.ShowModal(services.ModalLogin)
		b.startFlow(chatID, s, loginFlow)
	case "register":
		sf.UI.ShowModal(services.ModalRegister)
		b.startFlow(chatID, s, registerFlow)
	case "logout":
		if err := sf.Forms.Logout(ctx); err != nil {
			zap.S().Warnf("logout chat_id=%d: %v", chatID, err)
		}
		b.flushToasts(chatID, s)
		b.sendCard(chatID, sf.HomeCard())
	case "cancel":
		s.conv = nil
		sf.UI.HideModal(services.ModalLogin)
		sf.UI.HideModal(services.ModalRegister)
		b.removeKeyboard(chatID, "Cancelled.")
	default:
		b.sendCard(chatID, sf.HomeCard())
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil {
		return
	}
	chatID := cq.Message.Chat.ID
	msgID := cq.Message.MessageID

	s, err := b.session(ctx, chatID)
	if err != nil {
		zap.S().Errorf("open session chat_id=%d: %v", chatID, err)
		b.answer(cq.ID, "Sorry, the shop is unavailable right now.")
		return
	}
	a, err := services.ParseAction(cq.Data)
	if err != nil {
		zap.S().Debugf("callback chat_id=%d: %v", chatID, err)
		b.answer(cq.ID, "")
		return
	}
	sf := s.sf

	switch a.Kind {
	case services.ActionCheckout:
		b.answer(cq.ID, "")
		b.startCheckout(ctx, chatID, s)
		return
	case services.ActionModal:
		b.answer(cq.ID, "")
		// login and register replace each other
		other := services.ModalRegister
		if a.Value == services.ModalRegister {
			other = services.ModalLogin
		}
		sf.UI.SwitchModal(other, a.Value)
		switch a.Value {
		case services.ModalLogin:
			b.startFlow(chatID, s, loginFlow)
		case services.ModalRegister:
			b.startFlow(chatID, s, registerFlow)
		}
		return
	case services.ActionDelivery:
		b.answer(cq.ID, "")
		if s.conv != nil && s.conv.current().key == fieldDelivery {
			b.advance(ctx, chatID, s, a.Value)
		}
		return
	}

	if err := sf.Dispatch(ctx, a); err != nil {
		zap.S().Warnf("dispatch %q chat_id=%d: %v", cq.Data, chatID, err)
	}
	b.answer(cq.ID, toastText(s.toasts.Drain()))

	switch a.Kind {
	case services.ActionFilter:
		b.editCard(chatID, msgID, sf.MenuCard())
	case services.ActionQuantity, services.ActionRemove:
		b.editCard(chatID, msgID, sf.CartCard())
	case services.ActionRate:
		b.editCard(chatID, msgID, services.RatingCard(sf.Forms.Rating()))
	case services.ActionPage, services.ActionClosePromo:
		b.editCard(chatID, msgID, sf.PageCard())
	}
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		zap.S().Errorf("send error: %v", err)
	}
}

func (b *Bot) sendCard(chatID int64, c services.Card) {
	msg := tgbotapi.NewMessage(chatID, c.Text)
	if kb := cardMarkup(c); kb != nil {
		msg.ReplyMarkup = *kb
	}
	if _, err := b.api.Send(msg); err != nil {
		zap.S().Errorf("send error: %v", err)
	}
}

// editCard replaces the card a button was pressed on. "message is not
// modified" is ignored.
func (b *Bot) editCard(chatID int64, msgID int, c services.Card) {
	edit := tgbotapi.NewEditMessageText(chatID, msgID, c.Text)
	if kb := cardMarkup(c); kb != nil {
		edit.ReplyMarkup = kb
	}
	if _, err := b.api.Send(edit); err != nil && !strings.Contains(err.Error(), "message is not modified") {
		zap.S().Warnf("edit card chat_id=%d message_id=%d: %v", chatID, msgID, err)
	}
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		zap.S().Debugf("answer callback: %v", err)
	}
}

func (b *Bot) removeKeyboard(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	if _, err := b.api.Send(msg); err != nil {
		zap.S().Errorf("send error: %v", err)
	}
}

// flushToasts sends pending toasts as chat messages.
func (b *Bot) flushToasts(chatID int64, s *session) {
	for _, t := range s.toasts.Drain() {
		b.send(chatID, toastLine(t))
	}
}

func toastLine(t services.Toast) string {
	if t.Kind == services.ToastError {
		return "✗ " + t.Message
	}
	return "✓ " + t.Message
}

// toastText joins toasts for a callback answer, which Telegram shows as a
// short notification.
func toastText(toasts []services.Toast) string {
	lines := make([]string, 0, len(toasts))
	for _, t := range toasts {
		lines = append(lines, toastLine(t))
	}
	return strings.Join(lines, "\n")
}

// cardMarkup converts Card.Buttons to a Telegram inline keyboard (URL vs callback).
func cardMarkup(c services.Card) *tgbotapi.InlineKeyboardMarkup {
	if len(c.Buttons) == 0 {
		return nil
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, row := range c.Buttons {
		var btns []tgbotapi.InlineKeyboardButton
		for _, btn := range row {
			if btn.URL != "" {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonURL(btn.Text, btn.URL))
			} else {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.CallbackData))
			}
		}
		rows = append(rows, btns)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func (b *Bot) startCheckout(ctx context.Context, chatID int64, s *session) {
	if s.sf.Cart.Empty() {
		// reports the empty cart without touching the network
		if _, err := s.sf.Checkout(ctx); err != nil && !errors.Is(err, services.ErrEmptyCart) {
			zap.S().Warnf("checkout chat_id=%d: %v", chatID, err)
		}
		b.flushToasts(chatID, s)
		return
	}
	s.sf.UI.ShowPage(services.PageCart)
	b.startFlow(chatID, s, checkoutFlow)
}
