package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cliffyan/gd-images/internal/cli"
)

func main() {
	// 中断时取消查询或优雅关闭服务器
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Run(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()
	os.Exit(code)
}
