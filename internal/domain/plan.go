package domain

// MovePlan 规划一次文件移动（只描述 src/dst）。
type MovePlan struct {
	SrcAbs string
	DstAbs string
}

// OutputPlan 描述某个视频的输出位置。
//
// Move 为 nil 表示不整理：sidecar 直接写在视频所在目录。
type OutputPlan struct {
	Dir       string
	Performer string // 目录名使用的演员名（已去除非法字符；未知时为 UNKNOWN）
	Move      *MovePlan
}

// VideoDst 返回视频最终所在路径（不整理时即原路径）。
func (p OutputPlan) VideoDst(src string) string {
	if p.Move == nil {
		return src
	}
	return p.Move.DstAbs
}
