//go:build !unix

package fsx

func isEXDEV(error) bool { return false }

// 非 unix 平台上目录 Sync 的语义不可靠，跳过。
func syncDir(string) {}
