package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/creditsync/internal/app/run"
	"github.com/John-Robertt/creditsync/internal/config"
	"github.com/John-Robertt/creditsync/internal/domain"
	"github.com/John-Robertt/creditsync/internal/infra/cache"
	"github.com/John-Robertt/creditsync/internal/infra/httpx"
	"github.com/John-Robertt/creditsync/internal/infra/logx"
	"github.com/John-Robertt/creditsync/internal/provider/imdb"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := newCLI(os.Stdout, os.Stderr).execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// executor 是三个子命令共享的执行签名。
type executor func(ctx context.Context, eff config.EffectiveConfig, d run.Deps, obs run.Observer) (domain.RunReport, error)

type cli struct {
	stdout io.Writer
	stderr io.Writer
	getwd  func() (string, error)

	// interactive 默认按 TTY 判断是否输出进度；测试可替换。
	interactive func() (io.Writer, bool)

	code int
}

func newCLI(stdout, stderr io.Writer) *cli {
	c := &cli{stdout: stdout, stderr: stderr, getwd: os.Getwd}
	c.interactive = c.pickProgressWriter
	return c
}

// globalFlags 是所有子命令共享的持久化参数。
type globalFlags struct {
	configPath    string
	logLevel      string
	delay         time.Duration
	cacheDir      string
	cacheReadOnly bool
}

func (c *cli) execute(ctx context.Context, args []string) int {
	root := c.newRootCmd()
	root.SetArgs(args)
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		// 参数错误：cobra 已输出错误信息与用法。
		return 2
	}
	return c.code
}

func (c *cli) newRootCmd() *cobra.Command {
	var g globalFlags

	root := &cobra.Command{
		Use:   "creditsync",
		Short: "从 IMDb 抓取某位影人的作品与演职员信息，并合并到本地作品集文件",
		Long: `creditsync 有三个子命令，每个命令都有固定的输入 → 输出（来自 creditsync.yaml，可被参数覆盖）：

  verify   把参考清单中的每条作品解析为 IMDb 规范链接，并核对该人物是否在演职员名单中
  scrape   抓取人物页上的全部作品，输出 {"projects": [...]}（可选 Markdown）
  enrich   为作品集 JSON 中缺少 director / production_company 的条目补全信息

stdout 非 TTY 时只输出一个 RunReport JSON；进度与日志走 stderr。`,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "配置文件路径（默认读取 ./creditsync.yaml，若存在）")
	pf.StringVar(&g.logLevel, "log-level", "", "日志级别：debug|info|warn|error（默认 warn）")
	pf.DurationVar(&g.delay, "delay", config.DefaultRequestDelay, "相邻两次请求的最小间隔")
	pf.StringVar(&g.cacheDir, "cache-dir", "", "页面缓存目录（为空则不缓存）")
	pf.BoolVar(&g.cacheReadOnly, "cache-readonly", false, "只读缓存：命中则用，未命中时抓取但不写回")

	root.AddCommand(
		c.newVerifyCmd(&g),
		c.newScrapeCmd(&g),
		c.newEnrichCmd(&g),
	)
	return root
}

func (c *cli) newVerifyCmd(g *globalFlags) *cobra.Command {
	var person, input, output string
	var dropUnverified bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "核对参考清单并输出规范链接",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			args := baseArgs(cmd, g, config.CommandVerify)
			args.PersonName = person
			args.Input = input
			args.Output = output
			args.DropUnverified = dropUnverified
			args.DropUnverifiedSet = cmd.Flags().Changed("drop-unverified")
			c.runCommand(cmd.Context(), args, run.ExecuteVerify)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&person, "person", "", "被核对的人物姓名（区分大小写）")
	f.StringVar(&input, "input", "", "参考清单路径（默认 "+config.DefaultVerifyInput+"）")
	f.StringVar(&output, "output", "", "输出路径（默认 "+config.DefaultVerifyOutput+"）")
	f.BoolVar(&dropUnverified, "drop-unverified", false, "丢弃演职员名单中找不到该人物的结果行")
	return cmd
}

func (c *cli) newScrapeCmd(g *globalFlags) *cobra.Command {
	var person, personURL, output, markdown string

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "抓取人物页上的全部作品",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			args := baseArgs(cmd, g, config.CommandScrape)
			args.PersonName = person
			args.PersonURL = personURL
			args.Output = output
			args.Markdown = markdown
			c.runCommand(cmd.Context(), args, run.ExecuteScrape)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&person, "person", "", "人物姓名（用作 Markdown 标题）")
	f.StringVar(&personURL, "person-url", "", "人物页 URL，例如 https://www.imdb.com/name/nm1382130/")
	f.StringVar(&output, "output", "", "输出路径（默认 "+config.DefaultScrapeOutput+"）")
	f.StringVar(&markdown, "markdown", "", "同时输出 Markdown 到该路径")
	return cmd
}

func (c *cli) newEnrichCmd(g *globalFlags) *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "补全作品集中缺失的导演与制片公司",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			args := baseArgs(cmd, g, config.CommandEnrich)
			args.Input = input
			args.Output = output
			c.runCommand(cmd.Context(), args, run.ExecuteEnrich)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&input, "input", "", "作品集 JSON 路径（默认 "+config.DefaultEnrichInput+"）")
	f.StringVar(&output, "output", "", "输出路径（默认 "+config.DefaultEnrichOutput+"）")
	return cmd
}

func baseArgs(cmd *cobra.Command, g *globalFlags, command string) config.CLIArgs {
	return config.CLIArgs{
		Command:       command,
		ConfigPath:    g.configPath,
		Delay:         g.delay,
		DelaySet:      cmd.Flags().Changed("delay"),
		CacheDir:      g.cacheDir,
		CacheReadOnly: g.cacheReadOnly,
		LogLevel:      g.logLevel,
	}
}

// runCommand 加载配置、组装依赖并执行；退出码写入 c.code。
//
// 退出码：0 = 运行完成（即使部分条目失败，失败已写入 report）；1 = 配置错误或致命错误。
func (c *cli) runCommand(ctx context.Context, args config.CLIArgs, exec executor) {
	cwd, err := c.getwd()
	if err != nil {
		fmt.Fprintf(c.stderr, "读取当前目录失败：%v\n", err)
		c.code = 1
		return
	}

	eff, err := config.LoadEffective(cwd, args)
	if err != nil {
		c.emitReport(reportForError(args.Command, config.Code(err), err))
		c.code = 1
		return
	}

	log := logx.New(c.stderr, eff.LogLevel)
	defer func() { _ = log.Sync() }()

	fetcher, err := httpx.NewFetcher(httpx.Options{
		ProxyURL: eff.ProxyURL,
		Timeout:  eff.Timeout,
		Delay:    eff.RequestDelay,
		RetryMax: eff.RetryMax,
	})
	if err != nil {
		c.emitReport(reportForError(args.Command, config.ErrCodeInvalid, fmt.Errorf("proxy.url 无效：%w", err)))
		c.code = 1
		return
	}

	deps := run.Deps{
		Source: imdb.New(eff.BaseURL, log),
		Getter: fetcher,
		Cache:  cache.New(eff.CacheDir, eff.CacheReadOnly),
		Log:    log,
	}

	progressW, interactive := c.interactive()
	var obs run.Observer
	if interactive {
		ui := newProgressUI(progressW)
		defer ui.Stop()
		obs = ui
	}

	rr, err := exec(ctx, eff, deps, obs)
	c.emitReport(rr)
	if err != nil {
		fmt.Fprintf(c.stderr, "运行失败：%v\n", err)
		c.code = 1
		return
	}
	if interactive {
		emitLocations(progressW, rr)
	}
	c.code = 0
}
