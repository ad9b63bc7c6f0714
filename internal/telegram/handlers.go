package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Mimonstr/CryptoMonitorBot/internal/domain"
	"github.com/Mimonstr/CryptoMonitorBot/internal/pricing"
	"github.com/Mimonstr/CryptoMonitorBot/internal/session"
)

// --- Multi-select flows ---

func (r *Router) startAddFlow(chatID int64) {
	r.sessions.StartFlow(chatID, session.FlowMultiAdd)
	r.sendWithMarkup(chatID, pickAddText, r.pickerFor(chatID, session.FlowMultiAdd, popularCurrencies))
}

func (r *Router) startPriceFlow(chatID int64) {
	r.sessions.StartFlow(chatID, session.FlowMultiPrice)
	r.sendWithMarkup(chatID, pickPriceText, r.pickerFor(chatID, session.FlowMultiPrice, popularCurrencies))
}

func (r *Router) startRemoveFlow(ctx context.Context, chatID int64) {
	favorites, err := r.repo.ListFavorites(ctx, chatID)
	if err != nil {
		r.log.Error("list favorites failed", zap.Error(err), zap.Int64("chat", chatID))
		r.sendText(chatID, storeErrorText)
		return
	}
	if len(favorites) == 0 {
		r.sendText(chatID, emptyFavoritesText)
		return
	}
	r.sessions.StartFlow(chatID, session.FlowMultiRemove)
	r.sendWithMarkup(chatID, pickRemoveText, r.pickerFor(chatID, session.FlowMultiRemove, favorites))
}

// pickerFor renders the multi-select keyboard for the flow. The remove
// picker offers only favorites and has no manual-entry shortcut button;
// manual removal is still reachable via /remove.
func (r *Router) pickerFor(chatID int64, flow session.Flow, symbols []string) tgbotapi.InlineKeyboardMarkup {
	mark := " ✅"
	withManual := true
	if flow == session.FlowMultiRemove {
		mark = " ❌"
		withManual = false
	}
	selected := func(sym string) bool { return r.sessions.Selected(chatID, sym) }
	return pickerKeyboard(symbols, selected, mark, withManual)
}

// handlePick toggles a currency and re-renders the picker in place.
// Replaying the same press toggles back: the operation is its own inverse.
func (r *Router) handlePick(ctx context.Context, chatID int64, messageID int, symbol string) {
	flow := r.sessions.Flow(chatID)

	var text string
	var symbols []string
	switch flow {
	case session.FlowMultiAdd:
		text, symbols = pickAddText, popularCurrencies
	case session.FlowMultiPrice:
		text, symbols = pickPriceText, popularCurrencies
	case session.FlowMultiRemove:
		favorites, err := r.repo.ListFavorites(ctx, chatID)
		if err != nil {
			r.log.Error("list favorites failed", zap.Error(err), zap.Int64("chat", chatID))
			return
		}
		text, symbols = pickRemoveText, favorites
	default:
		return // stale button from a finished flow
	}

	r.sessions.Toggle(chatID, symbol)

	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, r.pickerFor(chatID, flow, symbols))
	if _, err := r.api.Send(edit); err != nil {
		r.log.Warn("picker re-render failed", zap.Error(err), zap.Int64("chat", chatID))
	}
}

// handleManual switches the active multi-select into its manual text-entry
// counterpart.
func (r *Router) handleManual(chatID int64) {
	switch r.sessions.Flow(chatID) {
	case session.FlowMultiRemove:
		r.sessions.StartFlow(chatID, session.FlowManualRemove)
		r.sendText(chatID, manualRemovePrompt)
	case session.FlowMultiPrice:
		r.sessions.StartFlow(chatID, session.FlowManualPrice)
		r.sendText(chatID, manualPricePrompt)
	default:
		r.sessions.StartFlow(chatID, session.FlowManualAdd)
		r.sendText(chatID, manualAddPrompt)
	}
}

// handleDone finalizes the active multi-select. The session ends before the
// store calls run so no error path can leave the chat stuck mid-flow.
func (r *Router) handleDone(ctx context.Context, chatID int64, messageID int) {
	flow := r.sessions.Flow(chatID)
	selection := r.sessions.Selection(chatID)
	r.sessions.EndFlow(chatID)

	switch flow {
	case session.FlowMultiAdd:
		r.sendConfirmation(chatID, messageID, r.finalizeMutation(ctx, chatID, selection, actionAdd, addPhrasing))
	case session.FlowMultiRemove:
		r.sendConfirmation(chatID, messageID, r.finalizeMutation(ctx, chatID, selection, actionRemove, removePhrasing))
	case session.FlowMultiPrice:
		r.sendConfirmation(chatID, messageID, r.finalizePrice(ctx, chatID, selection))
	default:
		return
	}
	r.sendMainMenu(chatID)
}

// finalizeMutation applies the flow's store mutation per selected currency
// and builds the aggregated summary: succeeded and already-in-that-state
// partitions, each with singular or count-based phrasing.
func (r *Router) finalizeMutation(ctx context.Context, chatID int64, selection []string, act action, p phrasing) string {
	var done, already, failed []string
	for _, symbol := range selection {
		switch r.apply(ctx, chatID, symbol, act) {
		case outcomeDone:
			done = append(done, symbol)
		case outcomeAlready:
			already = append(already, symbol)
		default:
			failed = append(failed, symbol)
		}
	}

	text := buildSummary(done, already, p)
	if len(failed) > 0 {
		text += fmt.Sprintf(summaryFailedFmt, strings.Join(failed, ", "))
	}
	return text
}

func (r *Router) finalizePrice(ctx context.Context, chatID int64, selection []string) string {
	if len(selection) == 0 {
		return "⚠️ No currencies selected to check"
	}
	var b strings.Builder
	for _, symbol := range selection {
		price, err := r.prices.Price(ctx, symbol)
		if err != nil {
			r.log.Warn("price fetch failed", zap.Error(err), zap.String("symbol", symbol))
			fmt.Fprintf(&b, priceUnavailableLineFmt, symbol)
			continue
		}
		fmt.Fprintf(&b, priceLineFmt, symbol, price)
	}
	return b.String()
}

func buildSummary(success, other []string, p phrasing) string {
	var b strings.Builder
	switch {
	case len(success) == 1:
		fmt.Fprintf(&b, p.one, success[0])
	case len(success) > 1:
		fmt.Fprintf(&b, p.many, len(success), strings.Join(success, ", "))
	}
	switch {
	case len(other) == 1:
		fmt.Fprintf(&b, p.oneOther, other[0])
	case len(other) > 1:
		fmt.Fprintf(&b, p.manyOther, len(other), strings.Join(other, ", "))
	}
	if b.Len() == 0 {
		return p.empty
	}
	return b.String()
}

// --- Single-shot actions (manual entry and slash commands) ---

type action int

const (
	actionAdd action = iota
	actionRemove
	actionPrice
)

type outcome int

const (
	outcomeDone outcome = iota
	outcomeAlready
	outcomeInvalid
	outcomeFailed
)

// apply runs one per-currency store mutation. It is shared between the
// multi-select finalizers and manual entry so both validate the same way.
func (r *Router) apply(ctx context.Context, chatID int64, symbol string, act action) outcome {
	switch act {
	case actionAdd:
		fav, err := r.repo.IsFavorite(ctx, chatID, symbol)
		if err != nil {
			r.log.Error("favorite lookup failed", zap.Error(err), zap.String("symbol", symbol))
			return outcomeFailed
		}
		if fav {
			return outcomeAlready
		}
		valid, err := r.prices.IsValid(ctx, symbol)
		if err != nil {
			r.log.Warn("symbol validation failed", zap.Error(err), zap.String("symbol", symbol))
			return outcomeFailed
		}
		if !valid {
			return outcomeInvalid
		}
		if err := r.repo.AddFavorite(ctx, chatID, symbol); err != nil {
			r.log.Error("add favorite failed", zap.Error(err), zap.String("symbol", symbol))
			return outcomeFailed
		}
		return outcomeDone

	case actionRemove:
		fav, err := r.repo.IsFavorite(ctx, chatID, symbol)
		if err != nil {
			r.log.Error("favorite lookup failed", zap.Error(err), zap.String("symbol", symbol))
			return outcomeFailed
		}
		if !fav {
			return outcomeAlready
		}
		// Cascades the subscription for the same key.
		if err := r.repo.RemoveFavorite(ctx, chatID, symbol); err != nil {
			r.log.Error("remove favorite failed", zap.Error(err), zap.String("symbol", symbol))
			return outcomeFailed
		}
		return outcomeDone
	}
	return outcomeFailed
}

// runSingle handles one manually entered or command-supplied symbol. Any
// collaborator error becomes a user-facing message; the flow has already
// ended, so nothing is left dangling.
func (r *Router) runSingle(ctx context.Context, chatID int64, raw string, act action) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if symbol == "" {
		r.sendText(chatID, emptySymbolText)
		r.sendMainMenu(chatID)
		return
	}

	switch act {
	case actionAdd:
		switch r.apply(ctx, chatID, symbol, actionAdd) {
		case outcomeDone:
			r.sendText(chatID, fmt.Sprintf("✅ %s added to favorites!", symbol))
		case outcomeAlready:
			r.sendText(chatID, fmt.Sprintf("⚠️ %s is already in favorites!", symbol))
		case outcomeInvalid:
			r.sendText(chatID, fmt.Sprintf("❌ Currency %s not found. Check the symbol.", symbol))
		default:
			r.sendText(chatID, fmt.Sprintf("⚠️ Could not verify %s, please try again later", symbol))
		}

	case actionRemove:
		switch r.apply(ctx, chatID, symbol, actionRemove) {
		case outcomeDone:
			r.sendText(chatID, fmt.Sprintf("❌ %s removed from favorites!", symbol))
		case outcomeAlready:
			r.sendText(chatID, fmt.Sprintf("⚠️ %s was not in favorites", symbol))
		default:
			r.sendText(chatID, storeErrorText)
		}

	case actionPrice:
		price, err := r.prices.Price(ctx, symbol)
		if err != nil {
			r.log.Warn("price fetch failed", zap.Error(err), zap.String("symbol", symbol))
			r.sendText(chatID, fmt.Sprintf("Error: %s not found or the price API is unavailable", symbol))
		} else {
			r.sendText(chatID, fmt.Sprintf("%s price: $%.2f", symbol, price))
		}
	}

	r.sendMainMenu(chatID)
}

// --- Favorites list and charts ---

func (r *Router) handleList(ctx context.Context, chatID int64) {
	favorites, err := r.repo.ListFavorites(ctx, chatID)
	if err != nil {
		r.log.Error("list favorites failed", zap.Error(err), zap.Int64("chat", chatID))
		r.sendText(chatID, storeErrorText)
		return
	}
	if len(favorites) == 0 {
		r.sendText(chatID, emptyFavoritesText)
		r.sendMainMenu(chatID)
		return
	}

	entries := make([]listEntry, 0, len(favorites))
	for _, symbol := range favorites {
		priceText := "N/A"
		if price, err := r.prices.Price(ctx, symbol); err == nil {
			priceText = fmt.Sprintf("$%.2f", price)
		} else {
			r.log.Warn("price fetch failed", zap.Error(err), zap.String("symbol", symbol))
		}
		entries = append(entries, listEntry{symbol: symbol, priceText: priceText})
	}

	r.sendWithMarkup(chatID, listTitleText, listKeyboard(entries))
	r.sendMainMenu(chatID)
}

func (r *Router) handleChart(ctx context.Context, chatID int64, symbol string) {
	candles, err := r.prices.History(ctx, symbol, pricing.GranularityDay, 30)
	if err != nil {
		r.log.Warn("history fetch failed", zap.Error(err), zap.String("symbol", symbol))
		r.sendText(chatID, chartFailedText)
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(pricing.ChartURL(symbol, candles)))
	photo.Caption = fmt.Sprintf(chartCaptionFmt, symbol)
	if _, err := r.api.Send(photo); err != nil {
		r.log.Warn("chart delivery failed", zap.Error(err), zap.String("symbol", symbol))
		r.sendText(chatID, chartFailedText)
	}
}

// --- Notification setup ---

func (r *Router) sendNotificationMenu(ctx context.Context, chatID int64) {
	var b strings.Builder
	b.WriteString(notifyMenuTitle)

	subs, err := r.repo.ListSubscriptions(ctx, chatID)
	if err != nil {
		r.log.Error("list subscriptions failed", zap.Error(err), zap.Int64("chat", chatID))
		r.sendText(chatID, storeErrorText)
		return
	}
	if len(subs) == 0 {
		b.WriteString(notifyMenuEmpty)
	} else {
		b.WriteString(notifyMenuCurrent)
		for _, sub := range subs {
			fmt.Fprintf(&b, "• %s - every %s\n", sub.Currency, domain.FormatInterval(sub.IntervalMinutes))
		}
	}

	favorites, err := r.repo.ListFavorites(ctx, chatID)
	if err != nil {
		r.log.Error("list favorites failed", zap.Error(err), zap.Int64("chat", chatID))
		r.sendText(chatID, storeErrorText)
		return
	}
	if len(favorites) == 0 {
		b.WriteString(notifyMenuNoFavs)
	}

	r.sendWithMarkup(chatID, b.String(), notificationMenuKeyboard(favorites))
}

func (r *Router) sendIntervalOptions(chatID int64, currency string) {
	text := fmt.Sprintf("Choose a notification interval for %s\n"+
		"Minimum interval: %d minutes\n"+
		"All values must be multiples of 5 minutes",
		currency, domain.MinIntervalMinutes)
	r.sendWithMarkup(chatID, text, intervalKeyboard(currency))
}

// applyInterval upserts the subscription for a preset interval choice.
func (r *Router) applyInterval(ctx context.Context, chatID int64, messageID int, minutes int) {
	currency := r.sessions.Pending(chatID)
	if currency == "" {
		r.sendConfirmation(chatID, messageID, notifyNoCurrencyText)
		return
	}

	if err := r.repo.UpsertSubscription(ctx, chatID, currency, minutes, r.clock.Now().UTC()); err != nil {
		r.log.Error("upsert subscription failed", zap.Error(err), zap.String("symbol", currency))
		r.sendConfirmation(chatID, messageID, storeErrorText)
		r.sessions.EndFlow(chatID)
		return
	}

	r.sendConfirmation(chatID, messageID, fmt.Sprintf(notifySetFmt, currency, domain.FormatInterval(minutes)))
	r.sessions.EndFlow(chatID)
	r.sendNotificationMenu(ctx, chatID)
}

func (r *Router) startCustomInterval(chatID int64, messageID int) {
	currency := r.sessions.Pending(chatID)
	if currency == "" {
		r.sendConfirmation(chatID, messageID, notifyNoCurrencyText)
		return
	}
	r.sessions.StartFlow(chatID, session.FlowCustomInterval)
	r.sendText(chatID, fmt.Sprintf(customIntervalPromptFmt, currency, domain.MinIntervalMinutes))
}

// handleCustomInterval validates user-entered minutes. A failed check
// re-prompts and keeps the flow so the user can try again; only acceptance
// (or a lost pending currency) ends it.
func (r *Router) handleCustomInterval(ctx context.Context, chatID int64, text string) {
	minutes, err := domain.ParseInterval(text)
	switch {
	case errors.Is(err, domain.ErrIntervalNotNumber):
		r.sendText(chatID, customIntervalNotNumber)
		return
	case errors.Is(err, domain.ErrIntervalTooShort):
		r.sendText(chatID, fmt.Sprintf(customIntervalTooShortFmt, domain.MinIntervalMinutes))
		return
	case errors.Is(err, domain.ErrIntervalStep):
		r.sendText(chatID, customIntervalStep)
		return
	}

	currency := r.sessions.Pending(chatID)
	if currency == "" {
		r.sessions.EndFlow(chatID)
		r.sendText(chatID, notifyNoCurrencyText)
		return
	}

	if err := r.repo.UpsertSubscription(ctx, chatID, currency, minutes, r.clock.Now().UTC()); err != nil {
		r.log.Error("upsert subscription failed", zap.Error(err), zap.String("symbol", currency))
		r.sessions.EndFlow(chatID)
		r.sendText(chatID, storeErrorText)
		return
	}

	r.sessions.EndFlow(chatID)
	r.sendText(chatID, fmt.Sprintf(notifySetFmt, currency, domain.FormatInterval(minutes)))
	r.sendNotificationMenu(ctx, chatID)
}

func (r *Router) removeNotification(ctx context.Context, chatID int64, messageID int, currency string) {
	err := r.repo.RemoveSubscription(ctx, chatID, currency)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		r.sendConfirmation(chatID, messageID, fmt.Sprintf(notifyNotFoundFmt, currency))
	case err != nil:
		r.log.Error("remove subscription failed", zap.Error(err), zap.String("symbol", currency))
		r.sendConfirmation(chatID, messageID, storeErrorText)
	default:
		r.sendConfirmation(chatID, messageID, fmt.Sprintf(notifyRemovedFmt, currency))
	}
	r.sessions.EndFlow(chatID)
	r.sendNotificationMenu(ctx, chatID)
}
