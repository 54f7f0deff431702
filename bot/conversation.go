package bot

import (
	"context"
	"errors"
	"strings"

	"bakery-storefront/models"
	"bakery-storefront/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	fieldName     = "name"
	fieldPhone    = "phone"
	fieldEmail    = "email"
	fieldDelivery = "delivery"
	fieldAddress  = "address"
	fieldPassword = "password"
	fieldComment  = "comment"
	fieldMessage  = "message"
)

// field is one question of a chat form.
type field struct {
	key     string
	prompt  string
	contact bool // offer the "share phone" keyboard
	secret  bool // delete the answer from the chat
	choices []services.CardButton
	skip    func(values map[string]string) bool
}

// flow is a chat form: its questions and what to do with the answers.
type flow struct {
	fields []field
	// submit returns true to ask the last question again with the other
	// answers kept.
	submit func(ctx context.Context, b *Bot, chatID int64, s *session, values map[string]string) (retry bool)
}

type conversation struct {
	flow   *flow
	step   int
	values map[string]string
}

func (c *conversation) current() field { return c.flow.fields[c.step] }

func (b *Bot) startFlow(chatID int64, s *session, f *flow) {
	s.conv = &conversation{flow: f, values: make(map[string]string)}
	b.prompt(chatID, s.conv.current())
}

func (b *Bot) prompt(chatID int64, f field) {
	msg := tgbotapi.NewMessage(chatID, f.prompt)
	switch {
	case f.contact:
		kb := tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButtonContact("📱 Share phone"),
			),
		)
		kb.OneTimeKeyboard = true
		kb.ResizeKeyboard = true
		msg.ReplyMarkup = kb
	case len(f.choices) > 0:
		msg.ReplyMarkup = *cardMarkup(services.Card{Buttons: [][]services.CardButton{f.choices}})
	default:
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	}
	if _, err := b.api.Send(msg); err != nil {
		zap.S().Errorf("send error: %v", err)
	}
}

// advance records an answer and asks the next question, or submits the form
// once every question has an answer.
func (b *Bot) advance(ctx context.Context, chatID int64, s *session, answer string) {
	c := s.conv
	f := c.current()
	answer = strings.TrimSpace(answer)
	if f.key == fieldDelivery {
		answer = strings.ToLower(answer)
		if answer != models.DeliveryPickup && answer != models.DeliveryDelivery {
			b.prompt(chatID, f)
			return
		}
	}
	c.values[f.key] = answer

	for c.step++; c.step < len(c.flow.fields); c.step++ {
		next := c.flow.fields[c.step]
		if next.skip == nil || !next.skip(c.values) {
			b.prompt(chatID, next)
			return
		}
	}
	s.conv = nil
	if c.flow.submit(ctx, b, chatID, s, c.values) {
		c.step = len(c.flow.fields) - 1
		s.conv = c
		b.prompt(chatID, c.current())
	}
}

var checkoutFlow = &flow{
	fields: []field{
		{key: fieldName, prompt: "What name should we put on the order?"},
		{key: fieldPhone, prompt: "Your phone number? Send it or tap the button below.", contact: true},
		{key: fieldEmail, prompt: "Your email address?"},
		{key: fieldDelivery, prompt: "Pickup or delivery?", choices: []services.CardButton{
			{Text: "🏪 Pickup", CallbackData: services.DeliveryAction(models.DeliveryPickup)},
			{Text: "🚚 Delivery", CallbackData: services.DeliveryAction(models.DeliveryDelivery)},
		}},
		{key: fieldAddress, prompt: "Delivery address?", skip: func(v map[string]string) bool {
			return v[fieldDelivery] != models.DeliveryDelivery
		}},
	},
	submit: func(ctx context.Context, b *Bot, chatID int64, s *session, v map[string]string) bool {
		s.sf.CheckoutForm = services.CheckoutForm{
			Name:         v[fieldName],
			Phone:        v[fieldPhone],
			Email:        v[fieldEmail],
			DeliveryType: v[fieldDelivery],
			Address:      v[fieldAddress],
		}
		b.send(chatID, "Placing your order…")
		res, err := s.sf.Checkout(ctx)
		if err != nil && !errors.Is(err, services.ErrEmptyCart) {
			zap.S().Errorf("checkout chat_id=%d: %v", chatID, err)
		}
		b.flushToasts(chatID, s)
		if res.OK {
			b.sendCard(chatID, s.sf.HomeCard())
		} else {
			b.sendCard(chatID, s.sf.CartCard())
		}
		return false
	},
}

var reviewFlow = &flow{
	fields: []field{
		{key: fieldName, prompt: "Your name?"},
		{key: fieldEmail, prompt: "Your email?"},
		{key: fieldComment, prompt: "Tell us about your visit."},
	},
	submit: func(ctx context.Context, b *Bot, chatID int64, s *session, v map[string]string) bool {
		err := s.sf.Forms.SubmitReview(ctx, services.ReviewForm{
			Name:    v[fieldName],
			Email:   v[fieldEmail],
			Comment: v[fieldComment],
		})
		b.flushToasts(chatID, s)
		if errors.Is(err, services.ErrRatingRequired) {
			b.sendCard(chatID, services.RatingCard(0))
			return true
		}
		if err == nil {
			b.sendCard(chatID, s.sf.ReviewsCard())
		}
		return false
	},
}

var contactFlow = &flow{
	fields: []field{
		{key: fieldName, prompt: "Your name?"},
		{key: fieldEmail, prompt: "Your email?"},
		{key: fieldMessage, prompt: "Your message?"},
	},
	submit: func(ctx context.Context, b *Bot, chatID int64, s *session, v map[string]string) bool {
		_ = s.sf.Forms.SubmitContact(ctx, services.ContactForm{
			Name:    v[fieldName],
			Email:   v[fieldEmail],
			Message: v[fieldMessage],
		})
		b.flushToasts(chatID, s)
		return false
	},
}

var newsletterFlow = &flow{
	fields: []field{
		{key: fieldEmail, prompt: "Which email should get the newsletter?"},
	},
	submit: func(ctx context.Context, b *Bot, chatID int64, s *session, v map[string]string) bool {
		_ = s.sf.Forms.SubscribeNewsletter(ctx, v[fieldEmail])
		b.flushToasts(chatID, s)
		return false
	},
}

var loginFlow = &flow{
	fields: []field{
		{key: fieldEmail, prompt: "Email?"},
		{key: fieldPassword, prompt: "Password?", secret: true},
	},
	submit: func(ctx context.Context, b *Bot, chatID int64, s *session, v map[string]string) bool {
		err := s.sf.Forms.Login(ctx, v[fieldEmail], v[fieldPassword])
		b.flushToasts(chatID, s)
		if err == nil {
			b.sendCard(chatID, s.sf.AccountCard())
		}
		return false
	},
}

var registerFlow = &flow{
	fields: []field{
		{key: fieldName, prompt: "Your name?"},
		{key: fieldEmail, prompt: "Email?"},
		{key: fieldPassword, prompt: "Choose a password.", secret: true},
	},
	submit: func(ctx context.Context, b *Bot, chatID int64, s *session, v map[string]string) bool {
		err := s.sf.Forms.Register(ctx, services.RegisterForm{
			Name:     v[fieldName],
			Email:    v[fieldEmail],
			Password: v[fieldPassword],
		})
		b.flushToasts(chatID, s)
		if err == nil {
			b.sendCard(chatID, s.sf.AccountCard())
		}
		return false
	},
}
