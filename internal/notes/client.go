// Package notes 把成型的交易计划推送到 Notion 数据库。
// 外部协作方：核心引擎只产出 Record，序列化与网络都收在这里。
package notes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const (
	defaultBaseURL = "https://api.notion.com"
	notionVersion  = "2022-06-28"
	defaultTimeout = 30 * time.Second
)

var ErrNotConfigured = errors.New("notes push not configured")

// Record 推送给笔记库的纯数据载荷。
type Record struct {
	Ticker    string
	Side      string
	Entry     float64
	Stop      float64
	Target    float64
	Shares    int
	RMultiple float64
	Notes     string
	Report    string
}

// Config Token 或 DatabaseID 缺一不可，没配就不要构造 Client。
type Config struct {
	Token      string
	DatabaseID string
	BaseURL    string
	Timeout    time.Duration
}

func (c Config) Ready() bool {
	return strings.TrimSpace(c.Token) != "" && strings.TrimSpace(c.DatabaseID) != ""
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

func New(cfg Config) (*Client, error) {
	if !cfg.Ready() {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// SetHTTPClient 注入测试用的 HTTP 客户端。
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Push 在目标数据库里建一页，返回新页面 id。
// 每次推送带 uuid 幂等键，网络重试不会落重复页。
func (c *Client) Push(ctx context.Context, rec Record) (string, error) {
	payload := c.buildPayload(rec)
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode notes payload: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/pages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build notes request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", notionVersion)
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("notes push failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read notes response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(respBody, "message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(respBody))
		}
		return "", fmt.Errorf("notes push failed: status %d: %s", resp.StatusCode, msg)
	}

	pageID := gjson.GetBytes(respBody, "id").String()
	if pageID == "" {
		return "", fmt.Errorf("notes push: response missing page id")
	}
	return pageID, nil
}

func (c *Client) buildPayload(rec Record) map[string]any {
	side := rec.Side
	if side == "" {
		side = "Long"
	}
	props := map[string]any{
		"Name":   map[string]any{"title": []any{textContent(rec.Ticker)}},
		"Ticker": selectOption(rec.Ticker),
		"Side":   selectOption(side),
		"Entry":  numberProp(rec.Entry),
		"Stop":   numberProp(rec.Stop),
		"Target": numberProp(rec.Target),
		"Shares": numberProp(float64(rec.Shares)),
		"Status": map[string]any{"select": map[string]any{"name": "Idea"}},
		"Date": map[string]any{
			"date": map[string]any{"start": time.Now().Format("2006-01-02")},
		},
	}
	// R 值展示保留两位
	props["R-Multiple"] = numberProp(float64(int(rec.RMultiple*100+0.5)) / 100)
	if rec.Notes != "" {
		props["Notes"] = richText(rec.Notes)
	}

	payload := map[string]any{
		"parent":     map[string]any{"database_id": c.cfg.DatabaseID},
		"properties": props,
	}
	if blocks := reportBlocks(rec.Report); len(blocks) > 0 {
		payload["children"] = blocks
	}
	return payload
}

// reportBlocks 报告文本按空行切段落块，超长段落再按 rich_text 上限切片。
func reportBlocks(report string) []any {
	report = strings.TrimSpace(report)
	if report == "" {
		return nil
	}
	const chunkLimit = 1800
	var blocks []any
	for _, para := range strings.Split(report, "\n\n") {
		text := strings.ReplaceAll(para, "\t", "    ")
		for text != "" {
			chunk := text
			if len(chunk) > chunkLimit {
				chunk = chunk[:chunkLimit]
			}
			text = text[len(chunk):]
			blocks = append(blocks, map[string]any{
				"object": "block",
				"type":   "paragraph",
				"paragraph": map[string]any{
					"rich_text": []any{textContent(chunk)},
				},
			})
		}
	}
	return blocks
}

func textContent(s string) map[string]any {
	return map[string]any{"text": map[string]any{"content": s}}
}

func richText(s string) map[string]any {
	return map[string]any{"rich_text": []any{textContent(s)}}
}

func selectOption(name string) map[string]any {
	return map[string]any{"select": map[string]any{"name": name}}
}

func numberProp(v float64) map[string]any {
	return map[string]any{"number": v}
}
