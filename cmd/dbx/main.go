package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/John-Robertt/dramabox-extract/internal/app/run"
	"github.com/John-Robertt/dramabox-extract/internal/config"
	"github.com/John-Robertt/dramabox-extract/internal/domain"
	"github.com/John-Robertt/dramabox-extract/internal/infra/fsx"
	"github.com/John-Robertt/dramabox-extract/internal/infra/httpx"
	"github.com/John-Robertt/dramabox-extract/internal/infra/logx"
	"github.com/John-Robertt/dramabox-extract/internal/infra/snapshot"
	"github.com/John-Robertt/dramabox-extract/internal/provider"
	"github.com/John-Robertt/dramabox-extract/internal/provider/dramabox"
	"github.com/John-Robertt/dramabox-extract/internal/route"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// cliEnv 把进程环境收拢成参数，便于测试直接调用 runCLI。
type cliEnv struct {
	Cwd    string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		os.Exit(exitFail)
	}
	code := runCLI(ctx, os.Args[1:], cliEnv{Cwd: cwd, Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr})
	stop()
	os.Exit(code)
}

func runCLI(ctx context.Context, args []string, env cliEnv) int {
	if len(args) == 0 || isHelp(args[0]) {
		printUsage(env.Stdout)
		return exitOK
	}

	ca, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(env.Stderr, "参数错误：%v\n\n", err)
		printUsage(env.Stderr)
		return exitUsage
	}
	if ca.Help {
		printUsage(env.Stdout)
		return exitOK
	}

	eff, err := config.LoadEffective(env.Cwd, config.CLIArgs{
		ConfigFile:     ca.ConfigFile,
		Locale:         ca.Locale,
		LocaleSet:      ca.LocaleSet,
		SnapshotDir:    ca.Dump,
		SnapshotDirSet: ca.DumpSet,
	})
	if err != nil {
		emit(env, errorOutput{Command: ca.Command, ErrorCode: config.Code(err), ErrorMsg: err.Error()})
		return exitFail
	}

	log, err := logx.New(eff.LogLevel, eff.LogFormat, env.Stderr)
	if err != nil {
		emit(env, errorOutput{Command: ca.Command, ErrorCode: domain.ErrCodeConfigInvalid, ErrorMsg: err.Error()})
		return exitFail
	}

	p, err := newProvider(eff, log)
	if err != nil {
		emit(env, errorOutput{Command: ca.Command, ErrorCode: domain.ErrCodeConfigInvalid, ErrorMsg: err.Error()})
		return exitFail
	}

	if ca.Command == "batch" {
		return batchCmd(ctx, env, eff, p, log, ca.Args)
	}

	v, err := dispatch(ctx, p, ca)
	if err != nil {
		out, code := describeError(ca.Command, err)
		log.Error().Err(err).Str("command", ca.Command).Msg("抽取失败")
		emit(env, out)
		return code
	}
	emit(env, v)
	return exitOK
}

func newProvider(eff config.EffectiveConfig, log zerolog.Logger) (*dramabox.Provider, error) {
	u, err := url.Parse(eff.BaseURL)
	if err != nil {
		return nil, err
	}
	s, err := httpx.NewSession(httpx.Options{
		Origin:    u.Scheme + "://" + u.Host,
		Timeout:   eff.Timeout,
		WarmupTTL: eff.WarmupTTL,
		RateLimit: eff.RateLimit,
		Burst:     eff.Burst,
		ProxyURL:  eff.ProxyURL,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}
	return &dramabox.Provider{
		BaseURL:   eff.BaseURL,
		Locale:    eff.Locale,
		Fetcher:   s,
		Snapshots: snapshot.New(eff.SnapshotDir),
		Log:       log,
	}, nil
}

func dispatch(ctx context.Context, p *dramabox.Provider, ca cliArgs) (any, error) {
	switch ca.Command {
	case "home":
		return p.Home(ctx)
	case "browse":
		page := 1
		if len(ca.Args) > 1 {
			page, _ = strconv.Atoi(ca.Args[1])
		}
		return p.Browse(ctx, ca.Args[0], page)
	case "search":
		return p.Search(ctx, strings.Join(ca.Args, " "))
	case "genres":
		return p.Genres(ctx)
	case "drama":
		return p.Drama(ctx, ca.Args[0])
	case "episode":
		return p.Episode(ctx, ca.Args[0])
	default:
		return nil, fmt.Errorf("未知命令：%q", ca.Command)
	}
}

func batchCmd(ctx context.Context, env cliEnv, eff config.EffectiveConfig, p *dramabox.Provider, log zerolog.Logger, args []string) int {
	urls := args
	if len(args) == 1 && args[0] == "-" {
		var err error
		if urls, err = readURLs(env.Stdin); err != nil {
			fmt.Fprintf(env.Stderr, "读取 stdin 失败：%v\n", err)
			return exitFail
		}
	}

	rr := run.ExecuteWithObserver(ctx, eff, p, urls, newProgressLog(log))

	// 有快照目录时顺带落一份 report.json，方便和页面快照对照排查。
	if eff.SnapshotDir != "" {
		if err := writeReportFile(eff.SnapshotDir, rr); err != nil {
			log.Warn().Err(err).Msg("写入 report.json 失败")
		}
	}

	emit(env, rr)
	fmt.Fprintf(env.Stderr, "完成：ok=%d empty=%d locked=%d failed=%d unmatched=%d\n",
		rr.Summary.OK, rr.Summary.Empty, rr.Summary.Locked, rr.Summary.Failed, rr.Summary.Unmatched,
	)
	if rr.Summary.Failed == 0 && rr.Summary.Unmatched == 0 {
		return exitOK
	}
	return exitFail
}

// readURLs 每行一个 URL；空行与 # 开头的行忽略。
func readURLs(r io.Reader) ([]string, error) {
	if r == nil {
		return nil, nil
	}
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

func writeReportFile(dir string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomic(dir, "report.json", b)
}

// errorOutput 是单路由命令失败时 stdout 上的唯一 JSON。
type errorOutput struct {
	Command   string `json:"command"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
	At        string `json:"at"`
}

func describeError(command string, err error) (errorOutput, int) {
	out := errorOutput{Command: command, ErrorMsg: err.Error()}

	var ue *route.UnmatchedError
	var pe *provider.Error
	switch {
	case errors.As(err, &ue):
		out.ErrorCode = domain.ErrCodeUnmatchedURL
		return out, exitUsage
	case errors.Is(err, dramabox.ErrEmptyQuery), errors.Is(err, dramabox.ErrInvalidGenre):
		out.ErrorCode = domain.ErrCodeInvalidArgument
		return out, exitUsage
	case errors.As(err, &pe) && pe.Stage == provider.StageParse:
		out.ErrorCode = domain.ErrCodeParseFailed
		return out, exitFail
	default:
		out.ErrorCode = domain.ErrCodeFetchFailed
		return out, exitFail
	}
}

// emit 向 stdout 写且只写一个 JSON 文档。
func emit(env cliEnv, v any) {
	if e, ok := v.(errorOutput); ok && e.At == "" {
		e.At = time.Now().UTC().Format(time.RFC3339)
		v = e
	}
	if err := json.NewEncoder(env.Stdout).Encode(v); err != nil {
		fmt.Fprintf(env.Stderr, "输出 JSON 失败：%v\n", err)
	}
}

type cliArgs struct {
	Command string
	Args    []string
	Help    bool

	ConfigFile string

	Locale    string
	LocaleSet bool

	Dump    string
	DumpSet bool
}

// 每个命令的位置参数个数范围 [min, max]；max<0 表示不限。
var commands = map[string][2]int{
	"home":    {0, 0},
	"browse":  {1, 2},
	"search":  {1, -1},
	"genres":  {0, 0},
	"drama":   {1, 1},
	"episode": {1, 1},
	"batch":   {1, -1},
}

func parseArgs(args []string) (cliArgs, error) {
	ca := cliArgs{}

	// value 读取 "--flag v" 或 "--flag=v" 两种写法。
	value := func(i *int, name string) (string, error) {
		a := args[*i]
		if strings.HasPrefix(a, name+"=") {
			return strings.TrimPrefix(a, name+"="), nil
		}
		if *i+1 >= len(args) {
			return "", fmt.Errorf("%s 需要一个值", name)
		}
		*i++
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "-h" || a == "--help":
			ca.Help = true
		case a == "--config" || strings.HasPrefix(a, "--config="):
			v, err := value(&i, "--config")
			if err != nil {
				return cliArgs{}, err
			}
			if strings.TrimSpace(v) == "" {
				return cliArgs{}, fmt.Errorf("--config 不能为空")
			}
			ca.ConfigFile = v
		case a == "--locale" || strings.HasPrefix(a, "--locale="):
			v, err := value(&i, "--locale")
			if err != nil {
				return cliArgs{}, err
			}
			ca.Locale, ca.LocaleSet = v, true
		case a == "--dump" || strings.HasPrefix(a, "--dump="):
			v, err := value(&i, "--dump")
			if err != nil {
				return cliArgs{}, err
			}
			ca.Dump, ca.DumpSet = v, true
		case a == "-":
			ca.Args = append(ca.Args, a)
		case strings.HasPrefix(a, "-"):
			return cliArgs{}, fmt.Errorf("未知参数 %q", a)
		case ca.Command == "":
			if _, ok := commands[a]; !ok {
				return cliArgs{}, fmt.Errorf("未知命令：%q", a)
			}
			ca.Command = a
		default:
			ca.Args = append(ca.Args, a)
		}
	}

	if ca.Help {
		return ca, nil
	}
	if ca.Command == "" {
		return cliArgs{}, fmt.Errorf("缺少命令")
	}
	n := commands[ca.Command]
	if len(ca.Args) < n[0] || (n[1] >= 0 && len(ca.Args) > n[1]) {
		return cliArgs{}, fmt.Errorf("%s 的参数个数不对：%d", ca.Command, len(ca.Args))
	}
	if ca.Command == "browse" && len(ca.Args) > 1 {
		if p, err := strconv.Atoi(ca.Args[1]); err != nil || p < 1 {
			return cliArgs{}, fmt.Errorf("页码必须是正整数：%q", ca.Args[1])
		}
	}
	return ca, nil
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `用法：
  dbx <命令> [参数] [--config file] [--locale in] [--dump dir]

命令：
  home                    首页目录（All 分类第 1 页）
  browse <genreId> [page] 分类目录
  search <关键词...>       搜索
  genres                  分类列表
  drama <url>             详情页与剧集列表
  episode <url>           单集播放地址
  batch <url>... | -      批量抽取（"-" 表示从 stdin 逐行读取）

参数：
  --config  配置文件（yaml/json/toml）；未指定时尝试当前目录下的 dbx.*
  --locale  链接语言段，覆盖 site.locale
  --dump    把抓到的页面与结果写入该目录（--dump= 表示关闭）
  -h, --help  显示帮助

stdout 只输出一个 JSON；日志写到 stderr。
`)
}
