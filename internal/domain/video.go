package domain

// VideoFile 描述一次扫描得到的视频文件（只做 stat，不读内容）。
//
// 不变量（实现必须遵守）：
// - AbsPath 必须是 clean + absolute
// - 扫描阶段只做 stat，不读文件内容
type VideoFile struct {
	AbsPath string
	RelPath string
	Dir     string // 所在目录（绝对路径）
	Base    string // filename without ext
	Ext     string // ".mp4"（保留原始大小写）
	Size    int64
	ModUnix int64
}

// Target 是一次 run 的最小处理单元：一个视频文件 + 从文件名提取出的 CODE。
type Target struct {
	File VideoFile
	Code Code
}
