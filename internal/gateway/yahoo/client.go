// Package yahoo 从 Yahoo Finance chart API 拉取最新价与 OHLCV 历史。
// 行情是外部协作方，核心引擎只消费这里产出的归一化 K 线。
package yahoo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"tplan/internal/market"
)

const (
	defaultBaseURL  = "https://query1.finance.yahoo.com"
	defaultTimeout  = 15 * time.Second
	defaultQuoteTTL = 15 * time.Second

	// 给 levels 引擎喂数据的默认窗口：60 天 30 分钟线，够重采样出 W/D/4H/30m
	DefaultRange    = "60d"
	DefaultInterval = "30m"
)

var (
	ErrEmptySymbol = errors.New("empty ticker")
	ErrNoData      = errors.New("no data returned")

	jpCodeRe = regexp.MustCompile(`^\d{4}$`)
)

// Config 行情网关配置。
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	QuoteTTL time.Duration
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.QuoteTTL <= 0 {
		c.QuoteTTL = defaultQuoteTTL
	}
	return c
}

// PriceResult 一次报价：归一化后的代码、最新价与取价时刻。
type PriceResult struct {
	Symbol string
	Price  float64
	AsOf   time.Time
}

// Client 带短 TTL 报价缓存，避免重复点击打爆接口。
type Client struct {
	cfg        Config
	httpClient *http.Client

	mu    sync.Mutex
	cache map[string]PriceResult

	now func() time.Time
}

func New(cfg Config) *Client {
	final := cfg.withDefaults()
	return &Client{
		cfg:        final,
		httpClient: &http.Client{Timeout: final.Timeout},
		cache:      make(map[string]PriceResult),
		now:        time.Now,
	}
}

// SetHTTPClient 注入测试用的 HTTP 客户端。
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// NormalizeSymbol 把用户输入规整成 Yahoo 认识的代码：
// 去掉 US-/JP- 前缀，纯 4 位数字视为东证代码补 .T。
func NormalizeSymbol(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	s = strings.TrimPrefix(s, "US-")
	s = strings.TrimPrefix(s, "JP-")
	if jpCodeRe.MatchString(s) {
		return s + ".T"
	}
	return s
}

// IsJPX 东证代码以 .T 结尾，Yahoo 上没有盘前盘后。
func IsJPX(symbol string) bool {
	return strings.HasSuffix(symbol, ".T")
}

// LastPrice 归一化 → 查缓存 → 拉 chart 接口 meta 里的最新价。
func (c *Client) LastPrice(ctx context.Context, rawSymbol string) (PriceResult, error) {
	symbol := NormalizeSymbol(rawSymbol)
	if symbol == "" {
		return PriceResult{}, ErrEmptySymbol
	}

	now := c.now()
	c.mu.Lock()
	if hit, ok := c.cache[symbol]; ok && now.Sub(hit.AsOf) < c.cfg.QuoteTTL {
		c.mu.Unlock()
		return hit, nil
	}
	c.mu.Unlock()

	body, err := c.fetchChart(ctx, symbol, "1d", "1m")
	if err != nil {
		return PriceResult{}, err
	}
	price := gjson.GetBytes(body, "chart.result.0.meta.regularMarketPrice").Float()
	if price <= 0 {
		// 节假日兜底:放宽窗口再取最后一笔收盘
		body, err = c.fetchChart(ctx, symbol, "5d", "1m")
		if err != nil {
			return PriceResult{}, err
		}
		closes := gjson.GetBytes(body, "chart.result.0.indicators.quote.0.close").Array()
		for i := len(closes) - 1; i >= 0; i-- {
			if v := closes[i].Float(); v > 0 {
				price = v
				break
			}
		}
	}
	if price <= 0 {
		return PriceResult{}, fmt.Errorf("%w: no price for %s", ErrNoData, symbol)
	}

	res := PriceResult{Symbol: symbol, Price: price, AsOf: now}
	c.mu.Lock()
	c.cache[symbol] = res
	c.mu.Unlock()
	return res, nil
}

// FetchOHLC 拉历史 K 线。rng/interval 为空时用默认的 60d/30m。
// 返回的蜡烛已按时间升序，缺口行（价格为 null）被跳过。
func (c *Client) FetchOHLC(ctx context.Context, rawSymbol, rng, interval string) ([]market.Candle, error) {
	symbol := NormalizeSymbol(rawSymbol)
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	if rng == "" {
		rng = DefaultRange
	}
	if interval == "" {
		interval = DefaultInterval
	}

	body, err := c.fetchChart(ctx, symbol, rng, interval)
	if err != nil {
		return nil, err
	}

	result := gjson.GetBytes(body, "chart.result.0")
	if !result.Exists() {
		return nil, fmt.Errorf("%w: %s (range=%s, interval=%s)", ErrNoData, symbol, rng, interval)
	}

	timestamps := result.Get("timestamp").Array()
	quote := result.Get("indicators.quote.0")
	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volumes := quote.Get("volume").Array()

	step := intervalMillis(interval)
	out := make([]market.Candle, 0, len(timestamps))
	for i, ts := range timestamps {
		if i >= len(opens) || i >= len(highs) || i >= len(lows) || i >= len(closes) {
			break
		}
		o, h, l, cl := opens[i], highs[i], lows[i], closes[i]
		if o.Type == gjson.Null || h.Type == gjson.Null || l.Type == gjson.Null || cl.Type == gjson.Null {
			continue
		}
		openTime := ts.Int() * 1000
		candle := market.Candle{
			OpenTime:  openTime,
			CloseTime: openTime + step,
			Open:      o.Float(),
			High:      h.Float(),
			Low:       l.Float(),
			Close:     cl.Float(),
		}
		if i < len(volumes) {
			candle.Volume = volumes[i].Float()
		}
		out = append(out, candle)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s (range=%s, interval=%s)", ErrNoData, symbol, rng, interval)
	}
	return out, nil
}

func (c *Client) fetchChart(ctx context.Context, symbol, rng, interval string) ([]byte, error) {
	q := url.Values{}
	q.Set("range", rng)
	q.Set("interval", interval)
	// 东证没有盘前盘后，其余市场默认带上
	q.Set("includePrePost", fmt.Sprintf("%t", !IsJPX(symbol)))

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(symbol), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build chart request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chart fetch failed for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chart response for %s: %w", symbol, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart fetch failed for %s: status %d", symbol, resp.StatusCode)
	}
	if errMsg := gjson.GetBytes(body, "chart.error.description"); errMsg.Exists() && errMsg.String() != "" {
		return nil, fmt.Errorf("chart fetch failed for %s: %s", symbol, errMsg.String())
	}
	return body, nil
}

func intervalMillis(interval string) int64 {
	d, err := time.ParseDuration(interval)
	if err == nil {
		return d.Milliseconds()
	}
	switch interval {
	case "1d":
		return 24 * time.Hour.Milliseconds()
	case "1wk":
		return 7 * 24 * time.Hour.Milliseconds()
	default:
		return 30 * time.Minute.Milliseconds()
	}
}
