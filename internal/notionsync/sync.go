package notionsync

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/vaultmind/internal/alerts"
	"github.com/dvloznov/vaultmind/internal/logger"
	"github.com/jomei/notionapi"
)

// SyncResult counts the page changes a sync made, or would make in a dry run.
type SyncResult struct {
	Created  int
	Reopened int
	Resolved int
	Skipped  int
}

// SyncAlerts reconciles the alerts database with the current evaluation:
//  1. alerts without a page get a new Open page
//  2. Resolved pages whose alert fired again are reopened
//  3. Open pages whose alert no longer fires are marked Resolved
//
// Pages are matched on their Alert Key. Per-page failures are logged and
// skipped; only a failed database query aborts the sync.
func SyncAlerts(ctx context.Context, notionClient NotionService, databaseID string, found []alerts.Alert, now time.Time, dryRun bool) (SyncResult, error) {
	log := logger.FromContext(ctx)

	pages, err := queryAllNotionPages(ctx, notionClient, databaseID)
	if err != nil {
		return SyncResult{}, fmt.Errorf("SyncAlerts: %w", err)
	}
	log.Info().
		Int("alert_count", len(found)).
		Int("notion_page_count", len(pages)).
		Bool("dry_run", dryRun).
		Msg("Starting alert sync to Notion")

	existing := make(map[string]notionapi.Page, len(pages))
	for _, page := range pages {
		if key := extractAlertKey(page); key != "" {
			existing[key] = page
		}
	}

	var result SyncResult
	active := make(map[string]bool, len(found))
	for _, a := range found {
		key := AlertKey(a, now)
		if active[key] {
			continue
		}
		active[key] = true

		page, ok := existing[key]
		switch {
		case !ok:
			if !dryRun {
				if _, err := notionClient.CreatePage(ctx, databaseID, AlertToNotionProperties(a, key, now)); err != nil {
					log.Warn().Err(err).Str("alert_key", key).Msg("Failed to create Notion alert page")
					continue
				}
			}
			log.Info().Str("alert_key", key).Bool("dry_run", dryRun).Msg("Created Notion alert page")
			result.Created++
		case extractStatus(page) == StatusResolved:
			if !setStatus(ctx, notionClient, page, StatusOpen, dryRun) {
				continue
			}
			result.Reopened++
		default:
			result.Skipped++
		}
	}

	for key, page := range existing {
		if active[key] || extractStatus(page) != StatusOpen {
			continue
		}
		if setStatus(ctx, notionClient, page, StatusResolved, dryRun) {
			result.Resolved++
		}
	}

	log.Info().
		Int("created", result.Created).
		Int("reopened", result.Reopened).
		Int("resolved", result.Resolved).
		Int("skipped", result.Skipped).
		Msg("Alert sync completed")
	return result, nil
}

func setStatus(ctx context.Context, notionClient NotionService, page notionapi.Page, status string, dryRun bool) bool {
	log := logger.FromContext(ctx).With().
		Str("page_id", string(page.ID)).
		Str("status", status).
		Logger()

	if dryRun {
		log.Info().Msg("[DRY RUN] Would update Notion alert status")
		return true
	}
	if _, err := notionClient.UpdatePage(ctx, string(page.ID), notionapi.Properties{PropStatus: statusProperty(status)}); err != nil {
		log.Warn().Err(err).Msg("Failed to update Notion alert status")
		return false
	}
	log.Info().Msg("Updated Notion alert status")
	return true
}

// queryAllNotionPages queries all pages from a Notion database and returns them.
// Handles pagination automatically.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: maxPageSize}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}
		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
