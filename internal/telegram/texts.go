package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Mimonstr/CryptoMonitorBot/internal/domain"
)

// popularCurrencies are offered in the multi-select pickers; anything else
// goes through manual entry.
var popularCurrencies = []string{
	"BTC", "ETH", "XRP", "LTC", "ADA", "DOGE", "SOL", "DOT", "SHIB", "MATIC",
	"AVAX", "BNB", "LINK", "UNI", "XMR",
}

// UI texts
const (
	mainMenuText = "Crypto monitor main menu"

	pickAddText    = "Pick currencies from the popular list or enter one manually:"
	pickRemoveText = "Pick currencies to remove from favorites:"
	pickPriceText  = "Pick currencies to check the price for:"

	manualAddPrompt    = "Please enter a currency symbol (e.g. BTC, ETH)"
	manualRemovePrompt = "Please enter a currency symbol to remove (e.g. BTC, ETH)"
	manualPricePrompt  = "Please enter a currency symbol to check the price for"

	emptyFavoritesText = "Your favorites list is empty"
	emptySymbolText    = "Please send a currency symbol, e.g. BTC"
	listTitleText      = "Your favorite currencies with current prices:"
	unknownCommandText = "Unknown command. Use /start for help."

	notifyMenuTitle      = "🔔 Notification settings:\n\n"
	notifyMenuEmpty      = "You have no active notifications"
	notifyMenuCurrent    = "Current settings:\n"
	notifyMenuNoFavs     = "\n\nAdd currencies to favorites first"
	notifySetFmt         = "✅ Notifications for %s set to every %s"
	notifyRemovedFmt     = "✅ Notifications for %s removed"
	notifyNotFoundFmt    = "❌ No notifications found for %s"
	notifyNoCurrencyText = "❌ No currency selected"

	customIntervalPromptFmt = "Enter the notification interval for %s (in minutes):\n\n" +
		"🔹 Requirements:\n" +
		"• Minimum: %d minutes\n" +
		"• Must be a multiple of 5\n" +
		"• Valid examples: 5, 10, 15, 20, ...\n\n" +
		"Enter a number:"
	customIntervalNotNumber = "❌ Please enter a number (minutes).\n" +
		"The value must be a multiple of 5 (e.g. 5, 10, 15).\n" +
		"Try again."
	customIntervalTooShortFmt = "❌ The interval cannot be shorter than %d minutes.\nTry again."
	customIntervalStep        = "❌ The interval must be a multiple of 5 minutes.\n" +
		"Valid values: 5, 10, 15, 20, ...\nTry again."

	notifyPriceFmt       = "🔔 %s is now $%.2f"
	notifyUnavailableFmt = "❌ Could not fetch the price for %s. Will retry later."

	priceLineFmt            = "%s: $%.2f\n"
	priceUnavailableLineFmt = "%s: price unavailable\n"
	chartCaptionFmt         = "%s price over the last 30 days"
	chartFailedText         = "❌ Could not load the chart"

	storeErrorText = "⚠️ Storage error, please try again later"
)

// Aggregated summary phrasing for the multi-select finalizers. The first
// pair is used for exactly one item, the second for several.
type phrasing struct {
	one       string
	many      string
	oneOther  string
	manyOther string
	empty     string
}

var (
	addPhrasing = phrasing{
		one:       "✅ %s added to favorites!\n",
		many:      "✅ %d currencies added: %s\n",
		oneOther:  "⚠️ %s was already in favorites\n",
		manyOther: "⚠️ %d currencies were already in favorites: %s\n",
		empty:     "⚠️ No currencies selected to add",
	}
	removePhrasing = phrasing{
		one:       "❌ %s removed from favorites!\n",
		many:      "❌ %d currencies removed: %s\n",
		oneOther:  "⚠️ %s was not in favorites\n",
		manyOther: "⚠️ %d currencies were not in favorites: %s\n",
		empty:     "⚠️ No currencies selected to remove",
	}
)

const summaryFailedFmt = "⚠️ Failed to process: %s\n"

func mainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🆕 Add currency", tokenMenuAdd),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Remove currency", tokenMenuRemove),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 List", tokenMenuList),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Check price", tokenMenuPrice),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔔 Notifications", tokenMenuNotifications),
		),
	)
}

// pickerKeyboard lays out the symbols 3 per row with a toggle mark on the
// selected ones, then a "done" row and optionally a manual-entry row.
func pickerKeyboard(symbols []string, selected func(string) bool, mark string, withManual bool) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, sym := range symbols {
		label := sym
		if selected(sym) {
			label += mark
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, tokenPickPrefix+sym))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	if withManual {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Enter manually", tokenManual),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Finish selection", tokenDone),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// listKeyboard shows each favorite with its current price; pressing a
// button requests a chart.
func listKeyboard(lines []listEntry) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, e := range lines {
		label := e.symbol + " - " + e.priceText
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, tokenChartPrefix+e.symbol))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

type listEntry struct {
	symbol    string
	priceText string
}

func notificationMenuKeyboard(favorites []string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, sym := range favorites {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(sym, tokenNotifyPrefix+sym))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Finish setup", tokenNotifyDone),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func intervalKeyboard(currency string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, minutes := range domain.PresetIntervals {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				domain.FormatInterval(minutes),
				fmt.Sprintf("%s%d", tokenIntervalPrefix, minutes),
			),
		))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Custom interval (min)", tokenIntervalCustom),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Remove notification", tokenRemovePrefix+currency),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Back", tokenNotifyBack),
		),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
