package run

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/creditsync/internal/config"
	"github.com/John-Robertt/creditsync/internal/corpus"
	"github.com/John-Robertt/creditsync/internal/domain"
	"github.com/John-Robertt/creditsync/internal/infra/fsx"
	"github.com/John-Robertt/creditsync/internal/provider"
	"github.com/John-Robertt/creditsync/internal/verify"
)

// ExecuteVerify 逐行解析参考清单，把每条作品解析为规范链接并核对演职员名单，写出结果行。
//
// 单条失败（network_failure / parse_miss / no_match）只标记为 unresolved；
// 只有参考清单不可读、结果无法写出或被取消时返回 *FatalError。
func ExecuteVerify(ctx context.Context, eff config.EffectiveConfig, d Deps, obs Observer) (domain.RunReport, error) {
	obs = observerOrNop(obs)
	log := d.logger()
	obs.OnStart(eff)

	rr := newReport(config.CommandVerify, eff.Verify.Input, eff.Verify.Output)
	if err := d.validate(); err != nil {
		return fatal(&rr, domain.ErrCodeConfigInvalid, err)
	}

	readStarted := time.Now()
	refs, skipped, err := corpus.ReadFile(eff.Verify.Input)
	if err != nil {
		return fatal(&rr, domain.ErrCodeIOFailed, fmt.Errorf("读取参考清单失败：%w", err))
	}
	log.Debug("参考清单已读取",
		zap.String("path", eff.Verify.Input),
		zap.Int("records", len(refs)),
		zap.Int("skipped_lines", skipped),
	)
	obs.OnPhaseDone(PhaseRead, map[string]any{
		"records": len(refs),
		"skipped": skipped,
	}, time.Since(readStarted))
	obs.OnPhaseDone(PhaseExec, map[string]any{"total_items": len(refs)}, 0)

	v := verify.Verifier{
		Base:   eff.BaseURL,
		Person: eff.PersonName,
		Search: func(ctx context.Context, title string) ([]domain.Candidate, error) {
			return provider.Search(ctx, d.Source, d.Getter, title)
		},
		Fetch: func(ctx context.Context, canonicalURL string) ([]string, error) {
			credits, err := provider.Credits(ctx, d.Source, d.Getter, canonicalURL)
			if provider.IsParse(err) {
				return nil, fmt.Errorf("%w: %w", verify.ErrNoCredits, err)
			}
			return credits, err
		},
	}

	lines := make([]string, 0, len(refs))
	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			return canceled(&rr, err)
		}

		obs.OnItemStart(i+1, len(refs), ref.Title)
		started := time.Now()

		item := domain.ItemResult{Title: ref.Title, Year: ref.Year}
		rec, err := v.Verify(ctx, ref)
		switch {
		case err != nil:
			fillVerifyError(&item, d.Source.Name(), err)
			log.Info("未能解析",
				zap.String("title", ref.Title),
				zap.String("error_code", item.ErrorCode),
				zap.Error(err),
			)
		case rec.Verified:
			item.Status = domain.StatusVerified
			item.URL = rec.CanonicalURL
			lines = append(lines, corpus.FormatResolved(rec))
		default:
			item.Status = domain.StatusUnverified
			item.URL = rec.CanonicalURL
			item.ErrorMsg = fmt.Sprintf("演职员名单中没有 %q", eff.PersonName)
			if eff.Verify.DropUnverified {
				item.ErrorMsg += "，已按 drop_unverified 丢弃"
			} else {
				lines = append(lines, corpus.FormatResolved(rec))
			}
		}

		rr.Items = append(rr.Items, item)
		obs.OnItemDone(i+1, len(refs), ref.Title, item, time.Since(started))
	}

	writeStarted := time.Now()
	if err := fsx.WriteFile(eff.Verify.Output, corpus.Encode(lines)); err != nil {
		return fatal(&rr, domain.ErrCodeIOFailed, fmt.Errorf("写入结果失败：%w", err))
	}
	obs.OnPhaseDone(PhaseWrite, map[string]any{"lines": len(lines)}, time.Since(writeStarted))

	finish(&rr)
	return rr, nil
}

// fillVerifyError 把 *verify.Error 映射为 unresolved 条目。
func fillVerifyError(item *domain.ItemResult, providerName string, err error) {
	item.Status = domain.StatusUnresolved

	var ve *verify.Error
	if !errors.As(err, &ve) {
		item.ErrorCode = domain.ErrCodeNetworkFailure
		item.ErrorMsg = err.Error()
		return
	}

	switch ve.Kind {
	case verify.KindNoMatch:
		item.ErrorCode = domain.ErrCodeNoMatch
		item.Hint = ve.Hint
		item.ErrorMsg = fmt.Sprintf("%s 搜索结果中没有标题与年份同时匹配的作品", providerName)
		if ve.Hint != "" {
			item.ErrorMsg += fmt.Sprintf("；最接近的候选：%q", ve.Hint)
		}
	case verify.KindParseMiss:
		item.ErrorCode = domain.ErrCodeParseMiss
		item.ErrorMsg = humanizeParseError(providerName, verify.ErrNoCredits)
	default:
		fillProviderError(item, domain.StatusUnresolved, ve.Err)
	}
}
