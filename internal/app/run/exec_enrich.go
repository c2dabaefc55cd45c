package run

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/creditsync/internal/app/planner"
	"github.com/John-Robertt/creditsync/internal/config"
	"github.com/John-Robertt/creditsync/internal/domain"
	"github.com/John-Robertt/creditsync/internal/infra/fsx"
	"github.com/John-Robertt/creditsync/internal/portfolio"
)

// ExecuteEnrich 为作品集里缺少 director / production_company 的条目补全信息，写出到另一个文件。
//
// 抓取失败的条目把需要补全的字段写为 "Error"（与已有下游约定一致），条目计为 failed；
// 其余字段与键顺序保持不变。
func ExecuteEnrich(ctx context.Context, eff config.EffectiveConfig, d Deps, obs Observer) (domain.RunReport, error) {
	obs = observerOrNop(obs)
	log := d.logger()
	obs.OnStart(eff)

	rr := newReport(config.CommandEnrich, eff.Enrich.Input, eff.Enrich.Output)
	if err := d.validate(); err != nil {
		return fatal(&rr, domain.ErrCodeConfigInvalid, err)
	}

	readStarted := time.Now()
	raw, err := os.ReadFile(eff.Enrich.Input)
	if err != nil {
		return fatal(&rr, domain.ErrCodeIOFailed, fmt.Errorf("读取作品集失败：%w", err))
	}
	entries, err := portfolio.DecodeEntries(raw)
	if err != nil {
		return fatal(&rr, domain.ErrCodeIOFailed, fmt.Errorf("解析作品集失败：%w", err))
	}
	obs.OnPhaseDone(PhaseRead, map[string]any{"entries": len(entries)}, time.Since(readStarted))

	planStarted := time.Now()
	plans := planner.PlanEnrich(entries)
	var needFetch, skip int
	for _, p := range plans {
		if p.Skip() {
			skip++
		} else {
			needFetch++
		}
	}
	obs.OnPhaseDone(PhasePlan, map[string]any{
		"entries":    len(plans),
		"need_fetch": needFetch,
		"skip":       skip,
	}, time.Since(planStarted))
	obs.OnPhaseDone(PhaseExec, map[string]any{"total_items": len(plans)}, 0)

	for i, p := range plans {
		if err := ctx.Err(); err != nil {
			return canceled(&rr, err)
		}

		obs.OnItemStart(i+1, len(plans), p.Title)
		started := time.Now()

		item := domain.ItemResult{Title: p.Title, URL: p.URL}
		if p.Skip() {
			item.Status = domain.StatusSkipped
			item.ErrorMsg = p.SkipReason
		} else {
			enrichOne(ctx, d, p, &entries[p.Index], &item)
			if item.Failed() {
				log.Info("补全失败", zap.String("title", p.Title), zap.String("url", p.URL), zap.String("error_code", item.ErrorCode))
			}
		}

		rr.Items = append(rr.Items, item)
		obs.OnItemDone(i+1, len(plans), p.Title, item, time.Since(started))
	}

	writeStarted := time.Now()
	b, err := portfolio.EncodeEntries(entries)
	if err != nil {
		return fatal(&rr, domain.ErrCodeIOFailed, fmt.Errorf("序列化作品集失败：%w", err))
	}
	if err := fsx.WriteFile(eff.Enrich.Output, b); err != nil {
		return fatal(&rr, domain.ErrCodeIOFailed, fmt.Errorf("写入作品集失败：%w", err))
	}
	obs.OnPhaseDone(PhaseWrite, map[string]any{"entries": len(entries)}, time.Since(writeStarted))

	finish(&rr)
	return rr, nil
}

// enrichOne 只改写计划中标记为需要补全的字段。
func enrichOne(ctx context.Context, d Deps, p planner.EnrichPlan, e *portfolio.Entry, item *domain.ItemResult) {
	director, company := portfolio.ValueError, portfolio.ValueError

	rec, err := fetchProject(ctx, d, p.ID)
	if err != nil {
		fillProviderError(item, domain.StatusFailed, err)
	} else {
		item.Status = domain.StatusProcessed
		item.Year = rec.Year
		director, company = portfolio.Summarize(rec)
	}

	if p.NeedDirector {
		e.Set(portfolio.KeyDirector, director)
	}
	if p.NeedCompany {
		e.Set(portfolio.KeyProductionCompany, company)
	}
}
