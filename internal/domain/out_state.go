package domain

// 输出目录中固定的 sidecar 文件名。
const (
	NFOName    = "movie.nfo"
	FanartName = "fanart.jpg"
	PosterName = "poster.jpg"
)

// OutState 描述输出目录的现状（只做 stat/ReadDir，不读内容）。
// 用于决定 sidecar 是"已满足"还是"需要生成"。
type OutState struct {
	Dir string

	HasNFO    bool
	HasPoster bool
	HasFanart bool

	// ExistingNames 是目录内现有文件名集合，用于 O(1) 冲突判定。
	ExistingNames map[string]struct{}
}

// Has 判断目录内是否已存在同名条目。
func (s OutState) Has(name string) bool {
	_, ok := s.ExistingNames[name]
	return ok
}
