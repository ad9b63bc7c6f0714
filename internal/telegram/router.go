// Package telegram routes bot updates through the per-chat conversation
// state machine: multi-select pickers, manual entry, interval setup, and the
// slash commands.
package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/Mimonstr/CryptoMonitorBot/internal/pricing"
	"github.com/Mimonstr/CryptoMonitorBot/internal/session"
	"github.com/Mimonstr/CryptoMonitorBot/internal/store"
)

// botAPI is the slice of tgbotapi.BotAPI the router uses; tests substitute
// a recording fake.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// PriceGateway is the price API capability the dialog needs.
type PriceGateway interface {
	Price(ctx context.Context, symbol string) (float64, error)
	IsValid(ctx context.Context, symbol string) (bool, error)
	History(ctx context.Context, symbol string, g pricing.Granularity, limit int) ([]pricing.Candle, error)
}

// Router wires Telegram updates to handlers. Chat id doubles as user id:
// this is a private-chat bot.
type Router struct {
	api      botAPI
	log      *zap.Logger
	repo     store.Repo
	prices   PriceGateway
	sessions *session.Manager
	clock    clockwork.Clock
}

// NewRouter creates a Router on top of a live bot API.
func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, repo store.Repo, prices PriceGateway, clock clockwork.Clock) *Router {
	return newRouter(bot, log, repo, prices, clock)
}

func newRouter(api botAPI, log *zap.Logger, repo store.Repo, prices PriceGateway, clock clockwork.Clock) *Router {
	return &Router{
		api:      api,
		log:      log,
		repo:     repo,
		prices:   prices,
		sessions: session.NewManager(),
		clock:    clock,
	}
}

// HandleUpdate routes a single update. The transport delivers one update at
// a time per chat, so per-chat state transitions are effectively serialized.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.CallbackQuery != nil:
		r.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.Text != "":
		r.handleText(ctx, upd.Message)
	}
}

func (r *Router) handleText(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	// Pending text-entry flows take priority over command parsing: the
	// same "user sends text" event means different things mid-flow.
	switch r.sessions.Flow(chatID) {
	case session.FlowManualAdd:
		r.sessions.EndFlow(chatID)
		r.runSingle(ctx, chatID, text, actionAdd)
		return
	case session.FlowManualRemove:
		r.sessions.EndFlow(chatID)
		r.runSingle(ctx, chatID, text, actionRemove)
		return
	case session.FlowManualPrice:
		r.sessions.EndFlow(chatID)
		r.runSingle(ctx, chatID, text, actionPrice)
		return
	case session.FlowCustomInterval:
		r.handleCustomInterval(ctx, chatID, text)
		return
	}

	switch {
	case text == "/start":
		r.sendMainMenu(chatID)
	case text == "/add":
		r.startAddFlow(chatID)
	case text == "/list":
		r.handleList(ctx, chatID)
	case strings.HasPrefix(text, "/price "):
		r.runSingle(ctx, chatID, strings.TrimPrefix(text, "/price "), actionPrice)
	case strings.HasPrefix(text, "/remove "):
		r.runSingle(ctx, chatID, strings.TrimPrefix(text, "/remove "), actionRemove)
	default:
		r.sendText(chatID, unknownCommandText)
	}
}

func (r *Router) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID
	ev := parseCallback(cb.Data)

	ack := ""
	if ev.kind == cbChart {
		ack = "Loading chart for " + ev.symbol + "..."
	}
	if err := r.answerCallback(cb.ID, ack); err != nil {
		r.log.Warn("answer callback failed", zap.Error(err))
	}

	switch ev.kind {
	case cbMenuAdd:
		r.startAddFlow(chatID)
	case cbMenuRemove:
		r.startRemoveFlow(ctx, chatID)
	case cbMenuList:
		r.handleList(ctx, chatID)
	case cbMenuPrice:
		r.startPriceFlow(chatID)
	case cbMenuNotifications:
		r.sendNotificationMenu(ctx, chatID)
	case cbPick:
		r.handlePick(ctx, chatID, messageID, ev.symbol)
	case cbManual:
		r.handleManual(chatID)
	case cbDone:
		r.handleDone(ctx, chatID, messageID)
	case cbChart:
		r.handleChart(ctx, chatID, ev.symbol)
	case cbNotifyCurrency:
		r.sessions.SetPending(chatID, ev.symbol)
		r.sendIntervalOptions(chatID, ev.symbol)
	case cbInterval:
		r.applyInterval(ctx, chatID, messageID, ev.minutes)
	case cbIntervalCustom:
		r.startCustomInterval(chatID, messageID)
	case cbNotifyRemove:
		r.removeNotification(ctx, chatID, messageID, ev.symbol)
	case cbNotifyDone:
		r.sessions.EndFlow(chatID)
		r.sendMainMenu(chatID)
	case cbNotifyBack:
		r.sessions.EndFlow(chatID)
		r.sendNotificationMenu(ctx, chatID)
	default:
		// Unknown callback — ignore silently.
	}
}

// --- Transport helpers ---

func (r *Router) sendText(chatID int64, text string) {
	if _, err := r.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.log.Warn("send failed", zap.Error(err), zap.Int64("chat", chatID))
	}
}

func (r *Router) sendWithMarkup(chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	if _, err := r.api.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Error(err), zap.Int64("chat", chatID))
	}
}

// sendConfirmation edits the originating message when there is one, and
// falls back to a fresh message otherwise.
func (r *Router) sendConfirmation(chatID int64, messageID int, text string) {
	if messageID == 0 {
		r.sendText(chatID, text)
		return
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := r.api.Send(edit); err != nil {
		r.log.Warn("edit failed", zap.Error(err), zap.Int64("chat", chatID))
	}
}

func (r *Router) answerCallback(id, text string) error {
	_, err := r.api.Request(tgbotapi.NewCallback(id, text))
	return err
}

func (r *Router) sendMainMenu(chatID int64) {
	r.sendWithMarkup(chatID, mainMenuText, mainMenuKeyboard())
}

// --- scheduler.Notifier ---

// NotifyPrice delivers a scheduled price notification.
func (r *Router) NotifyPrice(userID int64, symbol string, price float64) error {
	_, err := r.api.Send(tgbotapi.NewMessage(userID, fmt.Sprintf(notifyPriceFmt, symbol, price)))
	return err
}

// NotifyUnavailable delivers the degraded notice when the price fetch
// failed for a due subscription.
func (r *Router) NotifyUnavailable(userID int64, symbol string) error {
	_, err := r.api.Send(tgbotapi.NewMessage(userID, fmt.Sprintf(notifyUnavailableFmt, symbol)))
	return err
}
