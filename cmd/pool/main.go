package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"liuproxy_pool/internal/app"
	"liuproxy_pool/internal/shared/config"
	"liuproxy_pool/internal/shared/logger"
	"liuproxy_pool/internal/shared/types"
)

func main() {
	configDir := flag.String("configdir", "configs", "Path to config directory")
	flag.Parse()

	iniPath := filepath.Join(*configDir, "pool.ini")

	// 1. 加载 .ini 配置
	cfg := types.DefaultConfig()
	if err := config.LoadIni(cfg, iniPath); err != nil {
		// Use standard fmt before logger is initialized.
		fmt.Fprintf(os.Stderr, "Fatal: Failed to load config file '%s': %v\n", iniPath, err)
		os.Exit(1)
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: %v\n", err)
		os.Exit(1)
	}

	// 1.1 初始化日志系统
	if err := logger.Init(cfg.LogConf); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// 2. 组装流水线
	appServer, err := app.New(cfg, *configDir, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize proxy pool")
	}

	// 3. 运行直到收到退出信号
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := appServer.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Proxy pool exited with error")
	}
}
