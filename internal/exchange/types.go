// Package exchange talks to the Binance spot API: historical klines and
// ticker prices over REST, market orders over signed REST, and live prices
// over the miniTicker websocket stream.
package exchange

// OrderFill is the outcome of an accepted market order.
type OrderFill struct {
	OrderID  int64
	Symbol   string
	Price    float64
	Quantity float64
	Status   string
}

// kline is the raw /api/v3/klines array entry. Binance returns each bar as
// a mixed-type JSON array; fields are decoded positionally.
type kline struct {
	OpenTime  int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime int64
}

type tickerPriceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

type orderResponse struct {
	Symbol      string `json:"symbol"`
	OrderID     int64  `json:"orderId"`
	Status      string `json:"status"`
	ExecutedQty string `json:"executedQty"`
	Fills       []struct {
		Price string `json:"price"`
		Qty   string `json:"qty"`
	} `json:"fills"`
}

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}
