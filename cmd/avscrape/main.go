package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// version 由构建时 -ldflags "-X main.version=..." 注入。
var version = "dev"

// exitCodeError 只携带退出码；对应的信息已经输出过。
type exitCodeError struct{ code int }

func (e exitCodeError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		var ec exitCodeError
		if errors.As(err, &ec) {
			os.Exit(ec.code)
		}
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
