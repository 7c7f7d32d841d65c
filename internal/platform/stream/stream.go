// Package stream delivers closed minute bars over a single batched
// websocket subscription. One connection carries the whole symbol list;
// on any read error the loop reconnects and resubscribes.
package stream

import (
	"context"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"orb_bot/internal/models"
	"orb_bot/pkg/logger"
)

type Client struct {
	url       string
	timeframe string
	dialer    *websocket.Dialer
}

func NewClient(url, timeframe string) *Client {
	return &Client{
		url:       url,
		timeframe: timeframe,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

type subArg struct {
	Channel string `json:"channel"`
	Symbol  string `json:"symbol"`
}

type frame struct {
	Arg struct {
		Channel string `json:"channel"`
		Symbol  string `json:"symbol"`
	} `json:"arg"`
	// rows: [ts_ms, open, high, low, close, volume, ..., confirm]
	Data [][]string `json:"data"`
}

// StreamBars subscribes the whole batch and emits only confirmed bars.
// The channel closes when ctx ends.
func (c *Client) StreamBars(ctx context.Context, symbols []string) (<-chan models.Bar, error) {
	ch := make(chan models.Bar)

	go func() {
		defer close(ch)
		if len(symbols) == 0 {
			return
		}

		channel := "bars" + c.timeframe
		args := make([]subArg, 0, len(symbols))
		for _, s := range symbols {
			args = append(args, subArg{Channel: channel, Symbol: s})
		}

		for {
			logger.Info("stream: connect %s, %d symbols", channel, len(symbols))
			conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
			if err != nil {
				logger.Error("stream: dial: %v", err)
				if !sleepOrDone(ctx, time.Second) {
					return
				}
				continue
			}

			sub, _ := sonic.Marshal(map[string]any{"op": "subscribe", "args": args})
			if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
				logger.Error("stream: subscribe: %v", err)
				_ = conn.Close()
				continue
			}

			// keepalive, some venues drop idle connections
			stopPing := make(chan struct{})
			go func() {
				t := time.NewTicker(20 * time.Second)
				defer t.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-stopPing:
						return
					case <-t.C:
						_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"op":"ping"}`))
					}
				}
			}()

			c.readLoop(ctx, conn, channel, ch)
			close(stopPing)
			_ = conn.Close()

			select {
			case <-ctx.Done():
				return
			default:
				time.Sleep(time.Second)
			}
		}
	}()

	return ch, nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, channel string, out chan<- models.Bar) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("stream: read: %v", err)
			}
			return
		}

		var f frame
		if err := sonic.Unmarshal(msg, &f); err != nil {
			continue
		}
		if f.Arg.Channel != channel || len(f.Data) == 0 {
			continue
		}

		for _, row := range f.Data {
			bar, ok := parseRow(f.Arg.Symbol, row)
			if !ok {
				continue
			}
			select {
			case out <- bar:
			case <-ctx.Done():
				return
			}
		}
	}
}

func parseRow(symbol string, row []string) (models.Bar, bool) {
	if len(row) < 6 {
		return models.Bar{}, false
	}
	// confirm flag rides in the last element
	if row[len(row)-1] != "1" {
		return models.Bar{}, false
	}
	tsMs, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return models.Bar{}, false
	}
	open, err1 := strconv.ParseFloat(row[1], 64)
	high, err2 := strconv.ParseFloat(row[2], 64)
	low, err3 := strconv.ParseFloat(row[3], 64)
	closep, err4 := strconv.ParseFloat(row[4], 64)
	vol, err5 := strconv.ParseFloat(row[5], 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		return models.Bar{}, false
	}
	if closep <= 0 {
		return models.Bar{}, false
	}
	return models.Bar{
		Symbol: symbol,
		Time:   time.UnixMilli(tsMs),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closep,
		Volume: vol,
	}, true
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
