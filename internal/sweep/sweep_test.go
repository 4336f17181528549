package sweep

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/restockops/ordersweep/internal/discord"
	"github.com/restockops/ordersweep/internal/models"
)

const testChannel = int64(123456789012345678)

var testCriteria = models.Criteria{ProductName: "Nike Air Max", SKU: "ABC123", Size: "US 9"}

func webhookMsg(id, content string) models.CandidateMessage {
	return models.CandidateMessage{
		ID: id, Content: content, Author: "restock-feed#0000", Webhook: true,
		Timestamp: time.Now().UTC(),
	}
}

func userMsg(id, content string) models.CandidateMessage {
	return models.CandidateMessage{
		ID: id, Content: content, Author: "someone#1234",
		Timestamp: time.Now().UTC(),
	}
}

func matching(id string) models.CandidateMessage {
	return webhookMsg(id, "RESTOCK Nike Air Max 90 | SKU: ABC123 | Size: US 9")
}

// Five webhook messages, two matching all criteria, three not.
func scenarioAMessages() []models.CandidateMessage {
	return []models.CandidateMessage{
		matching("5"),
		webhookMsg("4", "Nike Air Max restock, SKU: XYZ999, Size US 9"),
		matching("3"),
		webhookMsg("2", "Jordan 1 | SKU: ABC123 | US 9"),
		webhookMsg("1", "Nike Air Max | SKU ABC123 | Size US 12"),
	}
}

func TestSearchAndDeleteScenarioA(t *testing.T) {
	gw := discord.NewMockGateway(scenarioAMessages()...)
	report := NewSweeper(gw).SearchAndDelete(context.Background(), testChannel, testCriteria, 10)

	if !report.Success {
		t.Fatalf("expected success, got error %q", report.Error)
	}
	if report.DeletedCount != 2 {
		t.Errorf("expected deleted_count=2, got %d", report.DeletedCount)
	}
	if report.MessagesChecked != 5 {
		t.Errorf("expected messages_checked=5, got %d", report.MessagesChecked)
	}
	if report.SearchCriteria == nil || *report.SearchCriteria != testCriteria {
		t.Errorf("expected criteria echoed, got %+v", report.SearchCriteria)
	}
}

func TestSearchAndDeleteOrderPreserved(t *testing.T) {
	gw := discord.NewMockGateway(matching("30"), userMsg("20", "noise"), matching("10"))
	report := NewSweeper(gw).SearchAndDelete(context.Background(), testChannel, testCriteria, 10)

	if len(report.DeletedMessages) != 2 {
		t.Fatalf("expected 2 deleted messages, got %d", len(report.DeletedMessages))
	}
	// Newest first, matching scan order.
	if report.DeletedMessages[0].MessageID != "30" || report.DeletedMessages[1].MessageID != "10" {
		t.Errorf("deletion order not preserved: %+v", report.DeletedMessages)
	}
}

func TestSearchAndDeleteRespectsLimit(t *testing.T) {
	gw := discord.NewMockGateway(scenarioAMessages()...)
	report := NewSweeper(gw).SearchAndDelete(context.Background(), testChannel, testCriteria, 3)

	if report.MessagesChecked > 3 {
		t.Errorf("messages_checked %d exceeds limit 3", report.MessagesChecked)
	}
	// Only the two newest of the three scanned match.
	if report.DeletedCount != 2 {
		t.Errorf("expected deleted_count=2 within limit, got %d", report.DeletedCount)
	}
}

func TestSearchAndDeleteSkipsRegularUsers(t *testing.T) {
	// Matching text posted by a regular user account must survive.
	gw := discord.NewMockGateway(userMsg("1", "Nike Air Max | ABC123 | US 9"))
	report := NewSweeper(gw).SearchAndDelete(context.Background(), testChannel, testCriteria, 10)

	if !report.Success {
		t.Fatalf("expected success, got %q", report.Error)
	}
	if report.DeletedCount != 0 {
		t.Errorf("user message must not be deleted, deleted_count=%d", report.DeletedCount)
	}
	if gw.Remaining() != 1 {
		t.Errorf("expected message to remain in channel, remaining=%d", gw.Remaining())
	}
}

func TestSearchAndDeleteAllCriteriaRequired(t *testing.T) {
	gw := discord.NewMockGateway(
		webhookMsg("3", "Nike Air Max only"),
		webhookMsg("2", "ABC123 only"),
		webhookMsg("1", "US 9 only"),
	)
	report := NewSweeper(gw).SearchAndDelete(context.Background(), testChannel, testCriteria, 10)

	if report.DeletedCount != 0 {
		t.Errorf("partial criteria matches must not be deleted, got %d", report.DeletedCount)
	}
	if report.MessagesChecked != 3 {
		t.Errorf("expected all messages checked, got %d", report.MessagesChecked)
	}
}

func TestSearchAndDeleteMatchesEmbeds(t *testing.T) {
	m := webhookMsg("1", "New restock!")
	m.Embeds = []string{"Nike Air Max 90\nSKU: ABC123\nSize: US 9"}
	gw := discord.NewMockGateway(m)

	report := NewSweeper(gw).SearchAndDelete(context.Background(), testChannel, testCriteria, 10)
	if report.DeletedCount != 1 {
		t.Errorf("expected embed-only match to be deleted, got %d", report.DeletedCount)
	}
}

func TestSearchAndDeleteZeroMatchesIsSuccess(t *testing.T) {
	gw := discord.NewMockGateway(webhookMsg("1", "nothing relevant"))
	report := NewSweeper(gw).SearchAndDelete(context.Background(), testChannel, testCriteria, 10)

	if !report.Success {
		t.Errorf("zero matches must still be a success, got %q", report.Error)
	}
	if report.DeletedMessages == nil || len(report.DeletedMessages) != 0 {
		t.Errorf("expected empty deleted_messages, got %v", report.DeletedMessages)
	}
}

func TestSearchAndDeleteIdempotence(t *testing.T) {
	gw := discord.NewMockGateway(scenarioAMessages()...)
	sweeper := NewSweeper(gw)

	first := sweeper.SearchAndDelete(context.Background(), testChannel, testCriteria, 10)
	if first.DeletedCount != 2 {
		t.Fatalf("first run: expected 2 deletions, got %d", first.DeletedCount)
	}

	second := sweeper.SearchAndDelete(context.Background(), testChannel, testCriteria, 10)
	if second.DeletedCount != 0 {
		t.Errorf("second run: expected 0 deletions, got %d", second.DeletedCount)
	}
	if second.MessagesChecked != 3 {
		t.Errorf("second run: expected shorter history of 3, checked %d", second.MessagesChecked)
	}
}

func TestSearchAndDeleteFetchFailure(t *testing.T) {
	gw := discord.NewMockGateway()
	gw.FetchErr = fmt.Errorf("Unknown Channel: %w", models.ErrChannelAccess)

	report := NewSweeper(gw).SearchAndDelete(context.Background(), testChannel, testCriteria, 10)
	if report.Success {
		t.Fatal("expected failure report")
	}
	if !errors.Is(report.Err, models.ErrChannelAccess) {
		t.Errorf("expected channel access sentinel, got %v", report.Err)
	}
	if report.Error == "" {
		t.Error("expected descriptive error text")
	}
}

func TestSearchAndDeletePerMessageFailureIsSkipped(t *testing.T) {
	gw := discord.NewMockGateway(matching("3"), matching("2"), matching("1"))
	gw.DeleteErrs = map[string]error{"2": errors.New("transient platform error")}

	report := NewSweeper(gw).SearchAndDelete(context.Background(), testChannel, testCriteria, 10)
	if !report.Success {
		t.Fatalf("isolated delete failure must not fail the sweep: %q", report.Error)
	}
	if report.DeletedCount != 2 {
		t.Errorf("expected 2 deletions around the failure, got %d", report.DeletedCount)
	}
	if report.MessagesChecked != 3 {
		t.Errorf("scan must continue past the failure, checked %d", report.MessagesChecked)
	}
}

func TestSearchAndDeleteAllDeletesFailed(t *testing.T) {
	gw := discord.NewMockGateway(matching("2"), matching("1"))
	gw.DeleteErrs = map[string]error{
		"2": fmt.Errorf("Missing Permissions: %w", models.ErrPermission),
		"1": fmt.Errorf("Missing Permissions: %w", models.ErrPermission),
	}

	report := NewSweeper(gw).SearchAndDelete(context.Background(), testChannel, testCriteria, 10)
	if report.Success {
		t.Fatal("expected failure when every candidate failed to delete")
	}
	if report.DeletedCount != 0 {
		t.Errorf("expected deleted_count=0, got %d", report.DeletedCount)
	}
	if !errors.Is(report.Err, models.ErrPermission) {
		t.Errorf("expected permission sentinel surfaced, got %v", report.Err)
	}
}

func TestSearchAndDeleteAlreadyGoneIsNotFailure(t *testing.T) {
	// A concurrent request won the race for message 2.
	gw := discord.NewMockGateway(matching("2"), matching("1"))
	gw.DeleteErrs = map[string]error{"2": models.ErrMessageGone}

	report := NewSweeper(gw).SearchAndDelete(context.Background(), testChannel, testCriteria, 10)
	if !report.Success {
		t.Fatalf("already-gone message must be a non-fatal skip: %q", report.Error)
	}
	if report.DeletedCount != 1 {
		t.Errorf("expected 1 deletion, got %d", report.DeletedCount)
	}
}

func TestSearchAndDeleteTimeoutYieldsPartialReport(t *testing.T) {
	gw := discord.NewMockGateway(matching("3"), matching("2"), matching("1"))
	gw.DeleteErrs = map[string]error{"2": context.DeadlineExceeded}

	report := NewSweeper(gw).SearchAndDelete(context.Background(), testChannel, testCriteria, 10)
	if report.Success {
		t.Fatal("expected partial failure report on timeout")
	}
	if !errors.Is(report.Err, context.DeadlineExceeded) {
		t.Errorf("expected deadline sentinel, got %v", report.Err)
	}
	// Progress before the timeout is preserved.
	if report.DeletedCount != 1 {
		t.Errorf("expected partial progress of 1 deletion, got %d", report.DeletedCount)
	}
	if report.MessagesChecked != 2 {
		t.Errorf("expected 2 messages checked before abandoning, got %d", report.MessagesChecked)
	}
}

func TestSearchAndDeleteCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gw := discord.NewMockGateway(matching("1"))
	report := NewSweeper(gw).SearchAndDelete(ctx, testChannel, testCriteria, 10)
	if report.Success {
		t.Fatal("expected failure with cancelled context")
	}
	if gw.Remaining() != 1 {
		t.Errorf("no deletion should happen after cancellation, remaining=%d", gw.Remaining())
	}
}
