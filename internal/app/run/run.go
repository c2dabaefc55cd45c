// Package run 串联 读取 → 规划 → 逐条抓取 → 写出 的流程，并产出对外稳定的 RunReport。
//
// 每个命令严格串行：一条记录完全处理完才开始下一条；请求间隔由注入的 Getter 负责。
package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/creditsync/internal/domain"
	"github.com/John-Robertt/creditsync/internal/infra/cache"
	"github.com/John-Robertt/creditsync/internal/provider"
)

// Deps 是执行所需的外部依赖（全部显式注入，便于测试替换）。
type Deps struct {
	Source provider.Source
	Getter provider.Getter
	Cache  cache.Store
	Log    *zap.Logger
}

func (d Deps) logger() *zap.Logger {
	if d.Log == nil {
		return zap.NewNop()
	}
	return d.Log
}

func (d Deps) validate() error {
	if d.Source == nil {
		return errors.New("source 不能为空")
	}
	if d.Getter == nil {
		return errors.New("getter 不能为空")
	}
	return nil
}

// FatalError 表示整次运行无法继续（输入不可读、输出无法写入、被取消）。
// 单条记录的失败永远不是 FatalError。
type FatalError struct {
	Code string
	Err  error
}

func (e *FatalError) Error() string {
	if e == nil {
		return "fatal error"
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

func newReport(command, input, output string) domain.RunReport {
	return domain.RunReport{
		Command:   command,
		Input:     input,
		Output:    output,
		StartedAt: time.Now().UTC(),
		Items:     make([]domain.ItemResult, 0, 64),
	}
}

func finish(rr *domain.RunReport) {
	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
}

// fatal 把致命错误记为一条合成的失败条目，补齐 report 后返回 *FatalError。
func fatal(rr *domain.RunReport, code string, err error) (domain.RunReport, error) {
	rr.Items = append(rr.Items, syntheticFailed(code, err.Error()))
	finish(rr)
	return *rr, &FatalError{Code: code, Err: err}
}

func syntheticFailed(code, msg string) domain.ItemResult {
	return domain.ItemResult{
		Status:    domain.StatusFailed,
		ErrorCode: code,
		ErrorMsg:  msg,
	}
}

func canceled(rr *domain.RunReport, err error) (domain.RunReport, error) {
	return fatal(rr, domain.ErrCodeCanceled, fmt.Errorf("运行被取消：%w", err))
}

// fetchProject 先查 cache（HTML），未命中再抓取；抓取成功后回写 HTML + JSON。
// cache 写入失败只记日志，不影响条目结果。
func fetchProject(ctx context.Context, d Deps, id domain.TitleID) (domain.ProjectRecord, error) {
	log := d.logger()
	name := d.Source.Name()

	if b, ok, err := d.Cache.ReadHTML(name, id); err == nil && ok {
		rec, perr := provider.ParseProject(d.Source, id, b)
		if perr == nil {
			log.Debug("cache 命中", zap.String("id", string(id)))
			return rec, nil
		}
		// 坏缓存：忽略，走网络。
		log.Debug("cache 无法解析，改为抓取", zap.String("id", string(id)), zap.Error(perr))
	} else if err != nil {
		log.Warn("读取 cache 失败", zap.String("id", string(id)), zap.Error(err))
	}

	rec, html, err := provider.Project(ctx, d.Source, d.Getter, id)
	if err != nil {
		return domain.ProjectRecord{}, err
	}

	if d.Cache.Enabled() && !d.Cache.ReadOnly {
		if err := d.Cache.WriteHTML(name, id, html); err != nil {
			log.Warn("写入 cache 失败", zap.String("id", string(id)), zap.Error(err))
		}
		if b, err := json.MarshalIndent(rec, "", "  "); err == nil {
			if err := d.Cache.WriteJSON(name, id, b); err != nil {
				log.Warn("写入 cache 失败", zap.String("id", string(id)), zap.Error(err))
			}
		}
	}
	return rec, nil
}

// fillProviderError 把 provider 阶段错误归类为 network_failure / parse_miss。
func fillProviderError(item *domain.ItemResult, status string, err error) {
	item.Status = status

	var pe *provider.Error
	if errors.As(err, &pe) {
		switch pe.Stage {
		case provider.StageParse:
			item.ErrorCode = domain.ErrCodeParseMiss
			item.ErrorMsg = humanizeParseError(pe.Provider, pe.Err)
		default:
			item.ErrorCode = domain.ErrCodeNetworkFailure
			item.ErrorMsg = humanizeFetchError(pe.Provider, pe.Err)
		}
		return
	}

	item.ErrorCode = domain.ErrCodeNetworkFailure
	item.ErrorMsg = err.Error()
}

func humanizeFetchError(providerName string, err error) string {
	if err == nil {
		return providerName + " 抓取失败"
	}

	var be *provider.BlockedError
	if errors.As(err, &be) {
		switch be.Reason {
		case "waf-challenge":
			return fmt.Sprintf("%s 返回了 WAF 挑战页（waf-challenge）。当前不支持绕过；建议增大 request_delay 或配置 proxy.url 后重试。", providerName)
		default:
			return fmt.Sprintf("%s 被站点拦截（%s）。建议配置 proxy.url 或稍后重试。", providerName, be.Reason)
		}
	}

	// HTTP 非 2xx：尽量给出可操作提示（限流/不存在是最常见问题）。
	var hs *provider.HTTPStatusError
	if errors.As(err, &hs) {
		switch {
		case hs.StatusCode == 403 || hs.StatusCode == 429:
			return fmt.Sprintf("%s 返回 HTTP %d（可能触发反爬/限流）。建议增大 request_delay 或配置 proxy.url。", providerName, hs.StatusCode)
		case hs.StatusCode == 404:
			return fmt.Sprintf("%s 返回 HTTP 404（页面不存在或链接已失效）。", providerName)
		case hs.StatusCode >= 500:
			return fmt.Sprintf("%s 返回 HTTP %d（站点临时故障）。可稍后重试或设置 retry_max。", providerName, hs.StatusCode)
		default:
			if loc := strings.TrimSpace(hs.Location); loc != "" {
				return fmt.Sprintf("%s 返回 HTTP %d（重定向）：%s", providerName, hs.StatusCode, loc)
			}
			return fmt.Sprintf("%s 返回 HTTP %d。", providerName, hs.StatusCode)
		}
	}

	low := strings.ToLower(err.Error())
	if errors.Is(err, context.Canceled) {
		return fmt.Sprintf("%s 抓取被取消。", providerName)
	}
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(low, "timeout") {
		return fmt.Sprintf("%s 抓取超时。建议检查网络/代理，或调大 timeout 后重试。", providerName)
	}
	if strings.Contains(low, "tls") || strings.Contains(low, "handshake") || strings.Contains(low, "ssl") {
		return fmt.Sprintf("%s 连接失败（TLS/SSL）。建议配置 proxy.url 或稍后重试。", providerName)
	}

	return fmt.Sprintf("%s 抓取失败：%v", providerName, err)
}

func humanizeParseError(providerName string, err error) string {
	if err == nil {
		return providerName + " 解析失败"
	}
	// 解析失败通常意味着站点结构漂移或被返回了非预期页面（例如验证页/空内容）。
	return fmt.Sprintf("%s 解析失败（站点结构可能变化或返回了非预期页面）：%v", providerName, err)
}
