package levels

// RangeMode 控制单个周期取区间的方式。
const (
	ModeCurrent  = "current"  // 最新一根 K 线的影线区间
	ModeBody     = "body"     // 最近 N 根实体均值区间
	ModeAuto     = "auto"     // 扩张行情切 current，否则 body
	ModeDonchian = "donchian" // 仅 4H：近 N 根最低低点/最高高点
)

// Config 描述 levels 引擎的全部可调参数。
type Config struct {
	// 基础周期（30m 由 IncludeM30 追加）
	TFs        []string `mapstructure:"tfs"`
	IncludeM30 bool     `mapstructure:"include_m30"`

	// 各周期实体平滑窗口（body 模式下取最近 N 根实体均值）
	SmoothBarsW   int `mapstructure:"smooth_bars_w"`
	SmoothBarsD   int `mapstructure:"smooth_bars_d"`
	SmoothBarsH4  int `mapstructure:"smooth_bars_h4"`
	SmoothBarsM30 int `mapstructure:"smooth_bars_m30"`

	// 各周期区间模式：current | body | auto（4H 另支持 donchian）
	RangeModeW    string  `mapstructure:"range_mode_w"`
	RangeModeD    string  `mapstructure:"range_mode_d"`
	RangeModeH4   string  `mapstructure:"range_mode_h4"`
	RangeModeM30  string  `mapstructure:"range_mode_m30"`
	ExpansionMult float64 `mapstructure:"expansion_mult"`

	// 4H Donchian 窗口（RangeModeH4 == donchian 时生效）
	DonchianBarsH4 int `mapstructure:"donchian_bars_h4"`

	// 4H 与周线几乎重合时向中值压缩，避免冗余行
	H4BiasWhenMatchesWeekly bool    `mapstructure:"h4_bias_when_matches_weekly"`
	H4BiasCompress          float64 `mapstructure:"h4_bias_compress"`
	H4BiasEpsRatio          float64 `mapstructure:"h4_bias_eps_ratio"`

	// 周线细分：单行 W 展开为 W / W-1 / W-low 三行
	WeeklyDetail     bool `mapstructure:"weekly_detail"`
	WeeklyDetailSpan int  `mapstructure:"weekly_detail_span"`

	// Flatten 输出的最大条数
	MaxLevels int `mapstructure:"max_levels"`
}

// DefaultConfig 返回与挂挡实盘一致的缺省参数。
func DefaultConfig() Config {
	return Config{
		TFs:                     []string{"W", "D", "4H"},
		IncludeM30:              true,
		SmoothBarsW:             3,
		SmoothBarsD:             2,
		SmoothBarsH4:            2,
		SmoothBarsM30:           1,
		RangeModeW:              ModeAuto,
		RangeModeD:              ModeAuto,
		RangeModeH4:             ModeAuto,
		RangeModeM30:            ModeAuto,
		ExpansionMult:           1.5,
		DonchianBarsH4:          8,
		H4BiasWhenMatchesWeekly: true,
		H4BiasCompress:          0.25,
		H4BiasEpsRatio:          0.02,
		WeeklyDetail:            true,
		WeeklyDetailSpan:        4,
		MaxLevels:               80,
	}
}

func (c *Config) normalized() Config {
	out := *c
	def := DefaultConfig()
	if len(out.TFs) == 0 {
		out.TFs = def.TFs
	}
	if out.SmoothBarsW <= 0 {
		out.SmoothBarsW = def.SmoothBarsW
	}
	if out.SmoothBarsD <= 0 {
		out.SmoothBarsD = def.SmoothBarsD
	}
	if out.SmoothBarsH4 <= 0 {
		out.SmoothBarsH4 = def.SmoothBarsH4
	}
	if out.SmoothBarsM30 <= 0 {
		out.SmoothBarsM30 = def.SmoothBarsM30
	}
	if out.RangeModeW == "" {
		out.RangeModeW = def.RangeModeW
	}
	if out.RangeModeD == "" {
		out.RangeModeD = def.RangeModeD
	}
	if out.RangeModeH4 == "" {
		out.RangeModeH4 = def.RangeModeH4
	}
	if out.RangeModeM30 == "" {
		out.RangeModeM30 = def.RangeModeM30
	}
	if out.ExpansionMult <= 0 {
		out.ExpansionMult = def.ExpansionMult
	}
	if out.DonchianBarsH4 <= 0 {
		out.DonchianBarsH4 = def.DonchianBarsH4
	}
	if out.H4BiasCompress <= 0 {
		out.H4BiasCompress = def.H4BiasCompress
	}
	if out.H4BiasEpsRatio <= 0 {
		out.H4BiasEpsRatio = def.H4BiasEpsRatio
	}
	if out.WeeklyDetailSpan <= 0 {
		out.WeeklyDetailSpan = def.WeeklyDetailSpan
	}
	if out.MaxLevels <= 0 {
		out.MaxLevels = def.MaxLevels
	}
	return out
}

func (c Config) smoothBars(tf string) int {
	switch tf {
	case "W":
		return c.SmoothBarsW
	case "D":
		return c.SmoothBarsD
	case "4H":
		return c.SmoothBarsH4
	case "30m":
		return c.SmoothBarsM30
	default:
		return 1
	}
}

func (c Config) rangeMode(tf string) string {
	switch tf {
	case "W":
		return c.RangeModeW
	case "D":
		return c.RangeModeD
	case "4H":
		return c.RangeModeH4
	case "30m":
		return c.RangeModeM30
	default:
		return ModeAuto
	}
}
