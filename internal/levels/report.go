package levels

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	numberRe   = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	jpTickerRe = regexp.MustCompile(`^\d{3,4}[A-Z]?$`)
)

// IsJPTicker 判断是否日股代码（3~4 位数字，或 yfinance 风格的 .T 后缀）。
func IsJPTicker(code, symbol string) bool {
	if strings.HasSuffix(strings.ToUpper(strings.TrimSpace(symbol)), ".T") {
		return true
	}
	return jpTickerRe.MatchString(strings.TrimSpace(code))
}

// MarkdownTable 渲染结构位表为 Markdown。日股按整数円、其余两位小数。
func MarkdownTable(rows []Row, title, symbol string) string {
	fmtNum := pickFormatter(title, symbol)

	var sb strings.Builder
	if title != "" {
		sb.WriteString(fmt.Sprintf("**%s — Levels**\n\n", title))
	}
	headers := []string{"TF", "Current Candle", "Bottom", "Mid", "Top", "Support & Res", "Previous Highs"}
	sb.WriteString("| " + strings.Join(headers, " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat("---|", len(headers)) + "\n")
	for _, row := range rows {
		cells := []string{
			row.TF,
			reformatNumbers(row.CurrentCandle, fmtNum),
			cellOrDash(row.Bottom, fmtNum),
			cellOrDash(row.Mid, fmtNum),
			cellOrDash(row.Top, fmtNum),
			reformatNumbers(row.SupportRes, fmtNum),
			fmtFloatList(row.PrevHighs, fmtNum),
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func pickFormatter(title, symbol string) func(float64) string {
	code := ""
	if title != "" {
		head := strings.SplitN(title, "—", 2)[0]
		fields := strings.Fields(strings.TrimSpace(head))
		if len(fields) > 0 {
			code = fields[0]
		}
	}
	if IsJPTicker(code, symbol) {
		return fmtYen
	}
	return fmt2dp
}

// fmtYen 整数円（四舍五入，0.5 进位）。
func fmtYen(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatInt(int64(math.Floor(v+0.5)), 10)
}

func fmt2dp(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}

func cellOrDash(v float64, fmtNum func(float64) string) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmtNum(v)
}

// reformatNumbers 将文本里嵌的数字按目标格式重写（区间/配对文本复用同一套格式）。
func reformatNumbers(text string, fmtNum func(float64) string) string {
	if text == "" {
		return "-"
	}
	return numberRe.ReplaceAllStringFunc(text, func(m string) string {
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return m
		}
		return fmtNum(v)
	})
}

func fmtFloatList(values []float64, fmtNum func(float64) string) string {
	if len(values) == 0 {
		return ""
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmtNum(v)
	}
	return strings.Join(parts, ", ")
}
