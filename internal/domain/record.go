package domain

import (
	"sort"
	"strings"
)

// Details 的常用 key（沿用各站点的"平铺字段"命名，NFO 与合并逻辑依赖这些名字）。
const (
	KeyActor           = "Actor"
	KeyActress         = "Actress"
	KeyDirector        = "Director"
	KeyStudio          = "Studio"
	KeyMaker           = "Maker"
	KeyReleaseDate     = "Release Date"
	KeyRuntime         = "Runtime"
	KeyGenre           = "Genre"
	KeyCategory        = "Category"
	KeyPlot            = "Plot"
	KeySeries          = "Series"
	KeyTrailer         = "Trailer"
	KeyActorThumb      = "Actor Thumb"
	KeyActressPortrait = "Actress Portrait"
)

// UnknownValue 是占位记录中演员/片商使用的固定值，不算有效信息。
const UnknownValue = "Unknown"

// SourceRecord 是单个站点 adapter 针对一个 CODE 的原始输出。
//
// 所有字段都可缺失；只在一次 acquisition 调用内存在。
type SourceRecord struct {
	Source string

	Title     string
	CoverURL  string
	FanartURL string
	PageURL   string // 详情页（或搜索页）URL，仅用于追溯

	Tags    []string
	Details map[string]string

	// Detailed 是站点提供的"整包"结构化元数据；nil 表示该站点没有提供。
	Detailed *DetailedMeta
}

// Detail 读取平铺字段（去空白）。
func (r SourceRecord) Detail(key string) string {
	if r.Details == nil {
		return ""
	}
	return strings.TrimSpace(r.Details[key])
}

// DetailedMeta 是一个来源的结构化元数据整包。
//
// 合并时它作为整体被替换，不做字段级合并。
type DetailedMeta struct {
	Code      string `json:"code,omitempty"`
	FullTitle string `json:"full_title,omitempty"`

	Actress   string   `json:"actress,omitempty"`
	Actresses string   `json:"actresses,omitempty"`
	Actor     string   `json:"actor,omitempty"`
	Cast      []string `json:"cast,omitempty"`

	Director string `json:"director,omitempty"`
	Studio   string `json:"studio,omitempty"`
	Label    string `json:"label,omitempty"`
	Series   string `json:"series,omitempty"`

	ReleaseDate string `json:"release_date,omitempty"`
	Runtime     string `json:"runtime,omitempty"`
	Duration    string `json:"duration,omitempty"`

	Category   string   `json:"category,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Tags       string   `json:"tags,omitempty"`
	Plot       string   `json:"plot,omitempty"`

	PosterURL     string `json:"poster_url,omitempty"`
	FanartURL     string `json:"fanart_url,omitempty"`
	LargeCoverURL string `json:"large_cover_url,omitempty"`
	ThumbURL      string `json:"thumb_url,omitempty"`

	ContentID string `json:"content_id,omitempty"`
	DVDID     string `json:"dvd_id,omitempty"`

	// NeedsWebpConversion 表示 FanartURL 指向的图片需要先转码再使用。
	NeedsWebpConversion bool   `json:"needs_webp_conversion,omitempty"`
	WebpURL             string `json:"webp_url,omitempty"`

	// Extra 保存站点给出、但没有专门字段的条目（key 已规范化为小写 + 下划线）。
	Extra map[string]string `json:"extra,omitempty"`
}

// Set 按字段名写入值；未知字段进入 Extra。
// name 使用规范化后的形态（小写，空格与 '-' 替换为 '_'）。
func (d *DetailedMeta) Set(name, value string) {
	value = strings.TrimSpace(value)
	switch name {
	case "code", "id", "dvd_id":
		if name == "dvd_id" {
			d.DVDID = value
		} else {
			d.Code = value
		}
	case "full_title", "title":
		d.FullTitle = value
	case "actress", "star":
		d.Actress = value
	case "actresses", "stars", "cast":
		d.Actresses = value
	case "actor", "actors":
		d.Actor = value
	case "director":
		d.Director = value
	case "studio", "maker":
		d.Studio = value
	case "label":
		d.Label = value
	case "series":
		d.Series = value
	case "release_date", "release", "date":
		d.ReleaseDate = value
	case "runtime", "length":
		d.Runtime = value
	case "duration":
		d.Duration = value
	case "category", "genre", "genres":
		d.Category = value
	case "tags", "tag":
		d.Tags = value
	case "plot":
		d.Plot = value
	default:
		if d.Extra == nil {
			d.Extra = map[string]string{}
		}
		d.Extra[name] = value
	}
}

// Empty 判断整包是否没有任何内容（nil 也视为空）。
func (d *DetailedMeta) Empty() bool {
	if d == nil {
		return true
	}
	if len(d.Cast) > 0 || len(d.Categories) > 0 || len(d.Extra) > 0 || d.NeedsWebpConversion {
		return false
	}
	for _, s := range []string{
		d.Code, d.FullTitle, d.Actress, d.Actresses, d.Actor, d.Director, d.Studio, d.Label, d.Series,
		d.ReleaseDate, d.Runtime, d.Duration, d.Category, d.Tags, d.Plot,
		d.PosterURL, d.FanartURL, d.LargeCoverURL, d.ThumbURL, d.ContentID, d.DVDID, d.WebpURL,
	} {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

// Clone 深拷贝，避免合并结果与 adapter 内部数据共享底层 slice/map。
func (d *DetailedMeta) Clone() *DetailedMeta {
	if d == nil {
		return nil
	}
	c := *d
	c.Cast = append([]string(nil), d.Cast...)
	c.Categories = append([]string(nil), d.Categories...)
	if d.Extra != nil {
		c.Extra = make(map[string]string, len(d.Extra))
		for k, v := range d.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

// MergedRecord 是一个 CODE 在一次 run 中的最终归一化记录。
type MergedRecord struct {
	Code Code `json:"jav_code"`

	// Accepted 按接受顺序保存被采纳的来源记录。
	Accepted []SourceRecord `json:"-"`

	BestTitle string            `json:"best_title"`
	BestCover string            `json:"best_cover"`
	Details   map[string]string `json:"all_details"`
	Detailed  *DetailedMeta     `json:"detailed_metadata,omitempty"`
}

// Source 返回首个被采纳来源的名字；没有来源时返回 "unknown"。
func (m MergedRecord) Source() string {
	if len(m.Accepted) == 0 {
		return "unknown"
	}
	return m.Accepted[0].Source
}

// SourceNames 返回被采纳来源名（按接受顺序）。
func (m MergedRecord) SourceNames() []string {
	out := make([]string, 0, len(m.Accepted))
	for _, r := range m.Accepted {
		out = append(out, r.Source)
	}
	return out
}

// Sources 以来源名索引被采纳的记录。
func (m MergedRecord) Sources() map[string]SourceRecord {
	out := make(map[string]SourceRecord, len(m.Accepted))
	for _, r := range m.Accepted {
		out[r.Source] = r
	}
	return out
}

// Detail 读取合并后的平铺字段（去空白）。
func (m MergedRecord) Detail(key string) string {
	if m.Details == nil {
		return ""
	}
	return strings.TrimSpace(m.Details[key])
}

// FanartURL 返回用于下载 fanart 的 URL：优先整包中的 fanart_url，其次 best cover。
func (m MergedRecord) FanartURL() string {
	if m.Detailed != nil && strings.TrimSpace(m.Detailed.FanartURL) != "" {
		return strings.TrimSpace(m.Detailed.FanartURL)
	}
	return strings.TrimSpace(m.BestCover)
}

// FanartNeedsConversion 判断 fanart 是否需要先转码。
func (m MergedRecord) FanartNeedsConversion() bool {
	if m.Detailed != nil && m.Detailed.NeedsWebpConversion {
		return true
	}
	return IsWebpURL(m.FanartURL())
}

// DetailKeys 返回 Details 的 key（已排序），便于日志与调试输出。
func (m MergedRecord) DetailKeys() []string {
	keys := make([]string, 0, len(m.Details))
	for k := range m.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PerformerPortrait 是为某个演员找到的头像。
type PerformerPortrait struct {
	Name            string
	URL             string
	NeedsConversion bool
	Adapter         string
}

// IsWebpURL 按路径后缀判断（忽略 query）。
func IsWebpURL(u string) bool {
	u = strings.TrimSpace(u)
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return strings.HasSuffix(strings.ToLower(u), ".webp")
}
