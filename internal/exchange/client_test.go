package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"squeezebot/internal/model"
)

func TestFetchCandles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("symbol") != "BTCUSDT" || q.Get("interval") != "15m" {
			t.Errorf("query = %v", q)
		}
		w.Write([]byte(`[
			[1700000000000,"100.0","101.5","99.5","101.0","12.3",1700000899999,"0",0,"0","0","0"],
			[1700000900000,"101.0","102.0","100.0","101.8","8.1",1700001799999,"0",0,"0","0","0"]
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "secret")
	start := time.UnixMilli(1700000000000)
	series, err := c.FetchCandles(context.Background(), "BTCUSDT", "15m", start, start.Add(30*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(series) != 2 {
		t.Fatalf("got %d candles, want 2", len(series))
	}
	first := series[0]
	if !first.OpenTime.Equal(time.UnixMilli(1700000000000).UTC()) {
		t.Errorf("open time = %v", first.OpenTime)
	}
	if first.Open != 100 || first.High != 101.5 || first.Low != 99.5 || first.Close != 101 || first.Volume != 12.3 {
		t.Errorf("candle = %+v", first)
	}
	if !series[1].OpenTime.After(first.OpenTime) {
		t.Error("series not chronological")
	}
}

func TestFetchCandlesMalformedRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[1700000000000,"not-a-number","1","1","1","1",1700000899999]]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "secret")
	start := time.UnixMilli(1700000000000)
	if _, err := c.FetchCandles(context.Background(), "BTCUSDT", "15m", start, start.Add(time.Hour)); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFetchPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/ticker/price" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"64123.51000000"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "secret")
	price, err := c.FetchPrice(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}
	if price != 64123.51 {
		t.Errorf("price = %v", price)
	}
}

func TestSubmitMarketOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v3/order" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-MBX-APIKEY") != "key" {
			t.Error("missing API key header")
		}
		q := r.URL.Query()
		if q.Get("signature") == "" {
			t.Error("missing signature")
		}
		if q.Get("side") != "SELL" || q.Get("type") != "MARKET" || q.Get("quantity") != "0.5" {
			t.Errorf("query = %v", q)
		}
		w.Write([]byte(`{
			"symbol":"ETHUSDT","orderId":77,"status":"FILLED","executedQty":"0.5",
			"fills":[{"price":"3100.0","qty":"0.3"},{"price":"3101.0","qty":"0.2"}]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "secret")
	fill, err := c.SubmitMarketOrder(context.Background(), "ETHUSDT", model.SideSell, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if fill.OrderID != 77 || fill.Status != "FILLED" || fill.Quantity != 0.5 {
		t.Errorf("fill = %+v", fill)
	}
	// Weighted average of the partial fills.
	want := (3100.0*0.3 + 3101.0*0.2) / 0.5
	if diff := fill.Price - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("fill price = %v, want %v", fill.Price, want)
	}
}

func TestSubmitMarketOrderAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-2010,"msg":"Account has insufficient balance"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "secret")
	_, err := c.SubmitMarketOrder(context.Background(), "BTCUSDT", model.SideBuy, 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); !strings.Contains(got, "insufficient balance") {
		t.Errorf("err = %q", got)
	}
}
