package telegram

import (
	"strconv"
	"strings"
)

// Callback data tokens. Parsed once into a typed event so handler dispatch
// works off a tagged union instead of string prefixes.
const (
	tokenMenuAdd           = "menu:add"
	tokenMenuRemove        = "menu:remove"
	tokenMenuList          = "menu:list"
	tokenMenuPrice         = "menu:price"
	tokenMenuNotifications = "menu:notifications"

	tokenPickPrefix   = "pick:"
	tokenManual       = "manual"
	tokenDone         = "done"
	tokenChartPrefix  = "chart:"
	tokenNotifyPrefix = "notify:"

	tokenIntervalPrefix = "interval:"
	tokenIntervalCustom = "interval:custom"
	tokenRemovePrefix   = "notify_remove:"
	tokenNotifyDone     = "notify_done"
	tokenNotifyBack     = "notify_back"
)

type callbackKind int

const (
	cbUnknown callbackKind = iota
	cbMenuAdd
	cbMenuRemove
	cbMenuList
	cbMenuPrice
	cbMenuNotifications
	cbPick           // toggle a currency in the active multi-select
	cbManual         // switch to manual text entry
	cbDone           // finalize the active multi-select
	cbChart          // send a price chart for a currency
	cbNotifyCurrency // choose the currency whose interval is being set
	cbInterval       // preset interval selected
	cbIntervalCustom // switch to custom interval text entry
	cbNotifyRemove   // delete the currency's subscription
	cbNotifyDone     // leave the notification menu
	cbNotifyBack     // back to the notification menu
)

// callbackEvent is a parsed button press.
type callbackEvent struct {
	kind    callbackKind
	symbol  string
	minutes int
}

func parseCallback(data string) callbackEvent {
	switch data {
	case tokenMenuAdd:
		return callbackEvent{kind: cbMenuAdd}
	case tokenMenuRemove:
		return callbackEvent{kind: cbMenuRemove}
	case tokenMenuList:
		return callbackEvent{kind: cbMenuList}
	case tokenMenuPrice:
		return callbackEvent{kind: cbMenuPrice}
	case tokenMenuNotifications:
		return callbackEvent{kind: cbMenuNotifications}
	case tokenManual:
		return callbackEvent{kind: cbManual}
	case tokenDone:
		return callbackEvent{kind: cbDone}
	case tokenIntervalCustom:
		return callbackEvent{kind: cbIntervalCustom}
	case tokenNotifyDone:
		return callbackEvent{kind: cbNotifyDone}
	case tokenNotifyBack:
		return callbackEvent{kind: cbNotifyBack}
	}

	switch {
	case strings.HasPrefix(data, tokenPickPrefix):
		return callbackEvent{kind: cbPick, symbol: strings.TrimPrefix(data, tokenPickPrefix)}
	case strings.HasPrefix(data, tokenChartPrefix):
		return callbackEvent{kind: cbChart, symbol: strings.TrimPrefix(data, tokenChartPrefix)}
	case strings.HasPrefix(data, tokenRemovePrefix):
		return callbackEvent{kind: cbNotifyRemove, symbol: strings.TrimPrefix(data, tokenRemovePrefix)}
	case strings.HasPrefix(data, tokenIntervalPrefix):
		minutes, err := strconv.Atoi(strings.TrimPrefix(data, tokenIntervalPrefix))
		if err != nil || minutes <= 0 {
			return callbackEvent{kind: cbUnknown}
		}
		return callbackEvent{kind: cbInterval, minutes: minutes}
	case strings.HasPrefix(data, tokenNotifyPrefix):
		return callbackEvent{kind: cbNotifyCurrency, symbol: strings.TrimPrefix(data, tokenNotifyPrefix)}
	}

	return callbackEvent{kind: cbUnknown}
}
