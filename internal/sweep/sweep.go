// Package sweep implements the search-and-delete workflow for ordersweep.
//
// A sweep examines the most recent messages of a channel, newest first, and
// deletes every webhook-posted message whose text matches all of the
// requested criteria, reporting counts and snapshots of what was removed.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/restockops/ordersweep/internal/discord"
	"github.com/restockops/ordersweep/internal/models"
)

// Sweeper runs search-and-delete operations against a gateway connection.
// It is stateless and safe for concurrent use; the gateway serializes nothing,
// so two simultaneous sweeps of the same channel may race for the same message
// and the loser observes a non-fatal already-gone skip.
type Sweeper struct {
	gw discord.Gateway
}

// NewSweeper creates a Sweeper operating on the given gateway.
func NewSweeper(gw discord.Gateway) *Sweeper {
	return &Sweeper{gw: gw}
}

// matches reports whether the message is deletable: posted by a webhook (or
// bot integration) and containing every criterion as a case-insensitive
// substring of its content or embed text.
func matches(m *models.CandidateMessage, c models.Criteria) bool {
	if !m.Webhook {
		return false
	}
	return m.ContainsFold(c.ProductName) && m.ContainsFold(c.SKU) && m.ContainsFold(c.Size)
}

// SearchAndDelete scans up to limit of the channel's most recent messages and
// deletes every match, preserving encounter order (newest first) in the
// report. Deletions are immediate and best effort per message: an individual
// failure is skipped and the scan continues. The operation only fails as a
// whole when retrieval fails, the context expires mid-scan (partial report),
// or every matched message failed to delete.
func (s *Sweeper) SearchAndDelete(ctx context.Context, channelID int64, criteria models.Criteria, limit int) models.DeleteReport {
	channel := strconv.FormatInt(channelID, 10)
	slog.Info("Sweep starting", "channel_id", channel, "limit", limit,
		"product_name", criteria.ProductName, "sku", criteria.SKU, "size", criteria.Size)

	msgs, err := s.gw.FetchRecentMessages(ctx, channel, limit)
	if err != nil {
		slog.Error("Sweep failed to fetch channel history", "error", err, "channel_id", channel)
		return models.FailureReport(err)
	}

	report := models.DeleteReport{
		Success:         true,
		DeletedMessages: []models.DeletedMessage{},
		SearchCriteria:  &criteria,
	}
	var matched, failed int
	var lastErr error

	for i := range msgs {
		if ctxErr := ctx.Err(); ctxErr != nil {
			s.markPartial(&report, ctxErr)
			break
		}
		m := &msgs[i]
		report.MessagesChecked++

		if !matches(m, criteria) {
			continue
		}
		matched++

		// Snapshot before deletion; the platform object is gone afterwards.
		snapshot := models.NewDeletedMessage(*m)

		err := s.gw.DeleteMessage(ctx, channel, m.ID)
		switch {
		case err == nil:
			report.DeletedMessages = append(report.DeletedMessages, snapshot)
			report.DeletedCount++
			slog.Info("Sweep deleted message", "channel_id", channel, "message_id", m.ID, "author", m.Author)
		case errors.Is(err, models.ErrMessageGone):
			// Lost a race with another request; the message is gone either
			// way, so this is not a failure.
			matched--
			slog.Debug("Sweep message already deleted", "channel_id", channel, "message_id", m.ID)
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
			s.markPartial(&report, err)
		default:
			failed++
			lastErr = err
			slog.Warn("Sweep failed to delete message, continuing", "error", err, "channel_id", channel, "message_id", m.ID)
		}
		if !report.Success {
			break
		}
	}

	if report.Success && matched > 0 && report.DeletedCount == 0 && failed == matched {
		report.Success = false
		report.Error = fmt.Sprintf("failed to delete any matched message: %v", lastErr)
		report.Err = lastErr
	}

	slog.Info("Sweep finished", "channel_id", channel, "success", report.Success,
		"checked", report.MessagesChecked, "deleted", report.DeletedCount, "failed_deletes", failed)
	return report
}

// markPartial converts an in-progress report into a partial failure after the
// request's time budget ran out; counts reflect progress so far.
func (s *Sweeper) markPartial(report *models.DeleteReport, err error) {
	report.Success = false
	report.Error = fmt.Sprintf("scan abandoned before completion: %v", err)
	report.Err = err
	slog.Warn("Sweep abandoned mid-scan", "error", err,
		"checked", report.MessagesChecked, "deleted", report.DeletedCount)
}
