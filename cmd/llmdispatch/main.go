// =============================================================================
// llmdispatch 命令行入口
// =============================================================================
// 从命令行发起一次生成请求，或以指标端点常驻。
//
// 使用方法:
//
//	llmdispatch generate --prompt "你好"              # 使用默认 Provider
//	llmdispatch generate --provider groq --prompt hi  # 指定 Provider
//	llmdispatch generate --image photo.png ...        # 附带图片（仅 google）
//	llmdispatch version                               # 显示版本信息
// =============================================================================
package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/llmdispatch"
	"github.com/BaSui01/llmdispatch/config"
	"github.com/BaSui01/llmdispatch/internal/telemetry"
	"github.com/BaSui01/llmdispatch/llm"
)

// 版本信息（构建时注入）
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate":
		runGenerate(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// generate 命令
// =============================================================================

func runGenerate(args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (YAML)")
	provider := fs.String("provider", "", "Provider label override")
	model := fs.String("model", "", "Model override")
	prompt := fs.String("prompt", "", "Prompt text (required)")
	imagePath := fs.String("image", "", "Path to an image file to attach")
	mimeType := fs.String("mime", "image/png", "MIME type of the attached image")
	metricsAddr := fs.String("metrics-addr", "", "Serve prometheus metrics on this address")
	fs.Parse(args)

	if *prompt == "" {
		fmt.Fprintln(os.Stderr, "generate: --prompt is required")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer otelProviders.Shutdown(context.Background())

	reg := prometheus.NewRegistry()
	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, reg, logger)
	}

	client, err := llmdispatch.New(cfg, logger, reg)
	if err != nil {
		logger.Fatal("failed to build client", zap.Error(err))
	}

	opts := llmdispatch.Options{
		Provider: *provider,
		Model:    *model,
	}
	if *imagePath != "" {
		data, err := os.ReadFile(*imagePath)
		if err != nil {
			logger.Fatal("failed to read image", zap.Error(err))
		}
		opts.Image = &llm.ImageData{
			MimeType:   *mimeType,
			Base64Data: base64.StdEncoding.EncodeToString(data),
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	text, err := client.GenerateResponse(ctx, *prompt, opts)
	if err != nil {
		logger.Fatal("generate failed", zap.Error(err))
	}

	fmt.Println(text)
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	logger.Info("serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", zap.Error(err))
	}
}

// =============================================================================
// 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoding = "console"
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

// =============================================================================
// 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("llmdispatch %s\n", Version)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`llmdispatch - multi-provider LLM dispatch layer

Usage:
  llmdispatch <command> [options]

Commands:
  generate  Send a single generation request
  version   Show version information
  help      Show this help message

Options for 'generate':
  --config <path>        Path to configuration file (YAML)
  --provider <name>      Provider label (google, openai, groq, claude,
                         cohere, huggingface, together, local, ollama)
  --model <name>         Model override
  --prompt <text>        Prompt text (required)
  --image <path>         Attach an image file (google only)
  --mime <type>          MIME type for --image (default image/png)
  --metrics-addr <addr>  Serve prometheus /metrics on this address`)
}
