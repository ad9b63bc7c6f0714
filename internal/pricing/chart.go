package pricing

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// ChartURL builds a quickchart.io line-chart URL for the given candles.
// Rendering is delegated entirely to the chart service; the bot only sends
// the URL as a photo.
func ChartURL(symbol string, candles []Candle) string {
	labels := make([]string, 0, len(candles))
	prices := make([]float64, 0, len(candles))
	for _, c := range candles {
		labels = append(labels, time.Unix(c.Time, 0).UTC().Format("02.01"))
		prices = append(prices, c.Close)
	}

	labelsJSON, _ := json.Marshal(labels)
	pricesJSON, _ := json.Marshal(prices)

	config := fmt.Sprintf(
		"{type:'line',data:{labels:%s,datasets:[{label:'%s/USD',data:%s,"+
			"borderColor:'#36A2EB',backgroundColor:'rgba(54,162,235,0.1)',fill:true}]},"+
			"options:{responsive:true,maintainAspectRatio:false,scales:{y:{beginAtZero:false}}}}",
		labelsJSON, symbol, pricesJSON,
	)

	return "https://quickchart.io/chart?c=" + url.QueryEscape(config)
}
