// Package cli 实现 gd-images 命令行
//
// 参数手动解析而不使用 flag 包，Run 没有全局状态，测试可以传入自己的 stdout/stderr。
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cliffyan/gd-images/internal/config"
	"github.com/cliffyan/gd-images/internal/engine"
	"github.com/cliffyan/gd-images/internal/fragment"
	"github.com/cliffyan/gd-images/internal/logging"
	"github.com/cliffyan/gd-images/internal/server"
)

// 退出码
const (
	ExitOK    = 0
	ExitError = 1
)

// errUsage 参数错误，调用方打印用法
var errUsage = errors.New("usage error")

// options 命令行参数
type options struct {
	configPath string
	provider   string
	template   string
	maxItems   int
	maxTime    time.Duration
	word       string
	command    string
	positional []string
	help       bool
}

// Run 执行命令，返回进程退出码
// stdout 只写入 HTML 片段或帮助文本，日志和错误都写入 stderr。
func Run(ctx context.Context, stdout, stderr io.Writer, args []string) int {
	opts, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "gd-images: %s\n\n", err)
		printUsage(stderr)
		return ExitError
	}
	if opts.help {
		printUsage(stdout)
		return ExitOK
	}

	cfg, notes, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "gd-images: %s\n", err)
		return ExitError
	}
	opts.apply(cfg)

	if opts.command == "serve" && cfg.Log.Level == config.Default().Log.Level {
		cfg.Log.Level = "info"
	}

	logger, closer := logging.New(cfg.Log, stderr)
	defer func() {
		_ = logger.Sync()
		if closer != nil {
			closer.Close()
		}
	}()
	for _, note := range notes {
		if strings.HasPrefix(note, "⚠️") {
			logger.Warn(note)
		} else {
			logger.Info(note)
		}
	}

	tmpl, err := fragment.FromConfig(cfg.Fragment, cfg.Search.MaxItems)
	if err != nil {
		fmt.Fprintf(stderr, "gd-images: %s\n", err)
		return ExitError
	}

	manager, err := engine.NewManager(cfg, logger)
	if err != nil {
		if errors.Is(err, config.ErrMissingCredentials) {
			fmt.Fprintf(stderr, "gd-images: %s\n", err)
		} else {
			fmt.Fprintf(stderr, "gd-images: failed to initialize provider: %s\n", err)
		}
		return ExitError
	}
	defer manager.Close()

	builder := fragment.NewBuilder(tmpl)

	if opts.command == "serve" {
		srv := server.New(cfg, manager, builder, logger)
		if err := srv.Start(ctx); err != nil {
			logger.Error("❌ Server failed", zap.Error(err))
			return ExitError
		}
		return ExitOK
	}

	results := manager.Lookup(ctx, opts.word, tmpl.MaxItems)
	fmt.Fprintln(stdout, builder.Build(opts.word, results, tmpl.MaxItems))
	return ExitOK
}

// parseArgs 解析命令行参数
// 支持 -flag value、--flag value 和 --flag=value 三种写法。
func parseArgs(args []string) (*options, error) {
	opts := &options{}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if arg == "-h" || arg == "-help" || arg == "--help" {
			opts.help = true
			return opts, nil
		}

		if arg == "--" {
			opts.positional = append(opts.positional, args[i+1:]...)
			break
		}

		if !strings.HasPrefix(arg, "-") || arg == "-" {
			opts.positional = append(opts.positional, arg)
			continue
		}

		name := strings.TrimLeft(arg, "-")
		value, hasValue := "", false
		if k, v, ok := strings.Cut(name, "="); ok {
			name, value, hasValue = k, v, true
		}
		if !hasValue {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%w: flag -%s needs a value", errUsage, name)
			}
			i++
			value = args[i]
		}

		if err := opts.set(name, value); err != nil {
			return nil, err
		}
	}

	if len(opts.positional) > 0 && opts.positional[0] == "serve" && opts.word == "" {
		opts.command = "serve"
		opts.positional = opts.positional[1:]
		if len(opts.positional) > 0 {
			return nil, fmt.Errorf("%w: serve takes no arguments", errUsage)
		}
		return opts, nil
	}

	switch {
	case opts.word != "" && len(opts.positional) == 0:
	case opts.word == "" && len(opts.positional) == 1:
		opts.word = opts.positional[0]
	case opts.word == "" && len(opts.positional) == 0:
		return nil, fmt.Errorf("%w: missing search term", errUsage)
	default:
		return nil, fmt.Errorf("%w: expected exactly one search term", errUsage)
	}

	if strings.TrimSpace(opts.word) == "" {
		return nil, fmt.Errorf("%w: empty search term", errUsage)
	}
	return opts, nil
}

// set 设置单个参数
func (o *options) set(name, value string) error {
	switch name {
	case "config":
		o.configPath = value
	case "word":
		o.word = value
	case "provider":
		if !config.IsValidProvider(value) {
			return fmt.Errorf("%w: unknown provider %q (expected %s)", errUsage, value, strings.Join(config.ValidProviders, ", "))
		}
		o.provider = value
	case "template":
		if !config.IsValidTemplate(value) {
			return fmt.Errorf("%w: unknown template %q (expected %s)", errUsage, value, strings.Join(config.ValidTemplates, ", "))
		}
		o.template = value
	case "max-items":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: invalid --max-items %q", errUsage, value)
		}
		o.maxItems = n
	case "max-time":
		d, err := parseMaxTime(value)
		if err != nil {
			return fmt.Errorf("%w: invalid --max-time %q", errUsage, value)
		}
		o.maxTime = d
	default:
		return fmt.Errorf("%w: unknown flag -%s", errUsage, name)
	}
	return nil
}

// parseMaxTime 解析超时，纯数字按秒计算，也接受 1500ms 这类写法
func parseMaxTime(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, errors.New("non-positive timeout")
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("non-positive timeout")
	}
	return d, nil
}

// apply 用命令行参数覆盖配置
func (o *options) apply(cfg *config.Config) {
	if o.provider != "" {
		cfg.Search.Provider = o.provider
	}
	if o.template != "" {
		cfg.Fragment.Template = o.template
	}
	if o.maxItems > 0 {
		cfg.Search.MaxItems = o.maxItems
	}
	if o.maxTime > 0 {
		cfg.Search.Timeout = o.maxTime
	}
}

const helpText = `usage: gd-images [OPTIONS] <word>
       gd-images [OPTIONS] serve

Search images for a word and print an HTML gallery for GoldenDict.

OPTIONS
  --word WORD         search term (use this to search for the word "serve")
  --provider NAME     bing (default), bing_browser or google
  --max-items N       number of images to show
  --max-time SECONDS  maximum time to wait for the provider (default 6)
  --template NAME     gallery (default), plain or grid
  -config PATH        config file (default: $CONFIG_FILE, ./config.yaml)
  -h, --help          print this help

ENVIRONMENT
  GOOGLE_API_KEY, SEARCH_ENGINE_ID  credentials for the google provider

EXAMPLES
  gd-images %GDWORD%
  gd-images --max-time 6 --word "犬"
  gd-images --provider google --template grid 猫
  gd-images serve   # then add http://127.0.0.1:3457/images?word=%GDWORD% as a website
`

// printUsage 输出帮助信息
func printUsage(w io.Writer) {
	io.WriteString(w, helpText)
}
