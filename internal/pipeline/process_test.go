package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"replyrouter/internal"
	"replyrouter/internal/classify"
	"replyrouter/internal/config"
	"replyrouter/internal/profile"
	"replyrouter/internal/storage"
)

type fakeClassifier struct {
	verdict internal.Verdict
	err     error
	calls   int
	lastOpt classify.Options
}

func (f *fakeClassifier) Classify(ctx context.Context, reply string, opts classify.Options) (internal.Verdict, error) {
	f.calls++
	f.lastOpt = opts
	return f.verdict, f.err
}

type fakeSender struct {
	sent [][]byte
}

func (f *fakeSender) SendRaw(raw []byte) error {
	f.sent = append(f.sent, raw)
	return nil
}

func storeTestEmail(t *testing.T, db *storage.DB, dir, messageID, from string) internal.EmailRow {
	t.Helper()

	raw := "From: " + from + "\r\n" +
		"Subject: Re: RFQ 42\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"We can supply within 10 days.\r\n"

	rawPath := filepath.Join(dir, messageID+".eml")
	if err := os.WriteFile(rawPath, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	row, err := db.UpsertEmail(internal.FetchedMailMessage{
		Provider:   "imap",
		MessageID:  messageID,
		Subject:    "Re: RFQ 42",
		From:       from,
		ReceivedAt: "2025-09-10T08:00:00Z",
	}, "hash-"+messageID, rawPath, "fetched")
	if err != nil {
		t.Fatal(err)
	}
	return row
}

func TestProcessPending(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	storeTestEmail(t, db, dir, "m1", "sales@prusa3d.com")
	storeTestEmail(t, db, dir, "m2", "sales@other.test")

	classifier := &fakeClassifier{verdict: internal.VerdictPositive}
	sender := &fakeSender{}
	profiles := []profile.Profile{{
		MainLabel:     "3D Companies",
		Senders:       []string{"@prusa3d.com"},
		ForwardTo:     "purchasing@ours.test",
		LeadLimitDays: 10,
		Deadline:      "2025-10-01",
	}}

	cfg := config.Config{LeadLimitDays: 14, GmailUserEmail: "bot@ours.test"}
	svc := NewProcessingService(db, cfg, classifier, profiles, nil, sender)

	result, err := svc.ProcessPending(context.Background(), 10, "")
	if err != nil {
		t.Fatal(err)
	}
	if result.Processed != 2 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if classifier.calls != 2 {
		t.Fatalf("classifier calls: %d", classifier.calls)
	}

	// The matching profile's lead limit and deadline must reach the classifier.
	if classifier.lastOpt.LeadLimitDays != 10 {
		t.Fatalf("lead limit: %d", classifier.lastOpt.LeadLimitDays)
	}
	if classifier.lastOpt.Deadline == nil {
		t.Fatal("deadline not passed")
	}
	if classifier.lastOpt.Sent == nil || classifier.lastOpt.Sent.Format("2006-01-02") != "2025-09-10" {
		t.Fatalf("sent date: %v", classifier.lastOpt.Sent)
	}

	// Both emails resolve to the same profile (first is the default), so
	// both positives get forwarded.
	if len(sender.sent) != 2 {
		t.Fatalf("forwarded %d, want 2", len(sender.sent))
	}
	if !strings.Contains(string(sender.sent[0]), "X-Label: 3D Companies/POSITIVE") {
		t.Fatalf("forwarded message missing label header:\n%s", sender.sent[0])
	}

	pending, err := db.ListEmailsByStatus("fetched", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Fatalf("still pending: %d", len(pending))
	}
}

func TestProcessPendingNeutralNotForwarded(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	storeTestEmail(t, db, dir, "m1", "sales@prusa3d.com")

	sender := &fakeSender{}
	profiles := []profile.Profile{{
		MainLabel: "3D Companies",
		Senders:   []string{"@prusa3d.com"},
		ForwardTo: "purchasing@ours.test",
	}}
	svc := NewProcessingService(db, config.Config{}, &fakeClassifier{verdict: internal.VerdictNeutral}, profiles, nil, sender)

	if _, err := svc.ProcessPending(context.Background(), 10, ""); err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("neutral verdict was forwarded")
	}

	row, err := db.MustEmailByProviderMessageID("imap", "m1")
	if err != nil {
		t.Fatal(err)
	}
	if row.Status != "classified" || row.Verdict != "neutral" {
		t.Fatalf("row: %+v", row)
	}
}

func TestProcessPendingMarksFailed(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	row := storeTestEmail(t, db, dir, "m1", "sales@prusa3d.com")
	if err := os.Remove(row.RawRef); err != nil {
		t.Fatal(err)
	}
	storeTestEmail(t, db, dir, "m2", "sales@prusa3d.com")

	classifier := &fakeClassifier{verdict: internal.VerdictNegative}
	svc := NewProcessingService(db, config.Config{}, classifier, nil, nil, nil)

	result, err := svc.ProcessPending(context.Background(), 10, "")
	if err != nil {
		t.Fatal(err)
	}
	if result.Processed != 1 || result.Failed != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	failed, err := db.ListEmailsByStatus("failed", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 1 || failed[0].MessageID != "m1" {
		t.Fatalf("failed rows: %+v", failed)
	}
}
