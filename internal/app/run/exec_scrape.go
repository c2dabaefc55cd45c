package run

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/creditsync/internal/app/planner"
	"github.com/John-Robertt/creditsync/internal/config"
	"github.com/John-Robertt/creditsync/internal/domain"
	"github.com/John-Robertt/creditsync/internal/infra/fsx"
	"github.com/John-Robertt/creditsync/internal/portfolio"
	"github.com/John-Robertt/creditsync/internal/provider"
)

// ExecuteScrape 抓取人物页上的全部作品，逐条抽取为 ProjectRecord，写出 {"projects": [...]}（以及可选的 Markdown）。
//
// 人物页本身不可用视为致命错误（没有输入可处理）；单个作品失败只记入 report。
func ExecuteScrape(ctx context.Context, eff config.EffectiveConfig, d Deps, obs Observer) (domain.RunReport, error) {
	obs = observerOrNop(obs)
	log := d.logger()
	obs.OnStart(eff)

	rr := newReport(config.CommandScrape, eff.PersonURL, eff.Scrape.Output)
	if err := d.validate(); err != nil {
		return fatal(&rr, domain.ErrCodeConfigInvalid, err)
	}

	filmStarted := time.Now()
	links, err := provider.Filmography(ctx, d.Source, d.Getter, eff.PersonURL)
	if err != nil {
		var item domain.ItemResult
		fillProviderError(&item, domain.StatusFailed, err)
		return fatal(&rr, item.ErrorCode, fmt.Errorf("读取人物页失败：%s", item.ErrorMsg))
	}
	ids := planner.PlanScrape(links)
	log.Debug("人物页已读取", zap.Int("links", len(links)), zap.Int("titles", len(ids)))
	obs.OnPhaseDone(PhaseFilmography, map[string]any{
		"links":  len(links),
		"titles": len(ids),
	}, time.Since(filmStarted))
	obs.OnPhaseDone(PhaseExec, map[string]any{"total_items": len(ids)}, 0)

	recs := make([]domain.ProjectRecord, 0, len(ids))
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return canceled(&rr, err)
		}

		obs.OnItemStart(i+1, len(ids), string(id))
		started := time.Now()

		item := domain.ItemResult{Title: string(id), URL: d.Source.TitleURL(id)}
		rec, err := fetchProject(ctx, d, id)
		if err != nil {
			fillProviderError(&item, domain.StatusFailed, err)
			log.Info("抓取作品失败", zap.String("id", string(id)), zap.Error(err))
		} else {
			item.Status = domain.StatusProcessed
			item.Title = rec.Title
			item.Year = rec.Year
			item.URL = rec.URL
			recs = append(recs, rec)
		}

		rr.Items = append(rr.Items, item)
		obs.OnItemDone(i+1, len(ids), item.Title, item, time.Since(started))
	}

	writeStarted := time.Now()
	b, err := portfolio.EncodeProjects(recs)
	if err != nil {
		return fatal(&rr, domain.ErrCodeIOFailed, fmt.Errorf("序列化结果失败：%w", err))
	}
	if err := fsx.WriteFile(eff.Scrape.Output, b); err != nil {
		return fatal(&rr, domain.ErrCodeIOFailed, fmt.Errorf("写入结果失败：%w", err))
	}
	if eff.Scrape.Markdown != "" {
		if err := fsx.WriteFile(eff.Scrape.Markdown, portfolio.RenderMarkdown(eff.PersonName, recs)); err != nil {
			return fatal(&rr, domain.ErrCodeIOFailed, fmt.Errorf("写入 Markdown 失败：%w", err))
		}
	}
	obs.OnPhaseDone(PhaseWrite, map[string]any{"projects": len(recs)}, time.Since(writeStarted))

	finish(&rr)
	return rr, nil
}
