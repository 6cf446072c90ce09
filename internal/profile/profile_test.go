package profile

import (
	"strings"
	"testing"
	"time"
)

func TestSaveAndLoadDir(t *testing.T) {
	dir := t.TempDir()

	p := Profile{
		MainLabel:     "3D Companies",
		Keywords:      []string{"filament", "nozzle"},
		Senders:       []string{"@prusa3d.com"},
		ForwardTo:     "purchasing@ours.test",
		LeadLimitDays: 10,
		Deadline:      "2025-10-01",
	}

	path, err := Save(dir, p, false)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(path, "3d-companies.json") {
		t.Fatalf("unexpected path %q", path)
	}

	// Second save without overwrite must refuse.
	if _, err := Save(dir, p, false); err == nil {
		t.Fatal("expected overwrite error")
	}
	if _, err := Save(dir, p, true); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(loaded))
	}
	if loaded[0].MainLabel != "3D Companies" || loaded[0].LeadLimitDays != 10 {
		t.Fatalf("unexpected profile: %+v", loaded[0])
	}
}

func TestLoadDirMissing(t *testing.T) {
	loaded, err := LoadDir("/nonexistent/profiles")
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty, got %d", len(loaded))
	}
}

func TestValidate(t *testing.T) {
	if err := (Profile{Keywords: []string{"x"}}).Validate(); err == nil {
		t.Error("missing main_label accepted")
	}
	if err := (Profile{MainLabel: "X"}).Validate(); err == nil {
		t.Error("profile without keywords or senders accepted")
	}
	if err := (Profile{MainLabel: "X", Senders: []string{"a@b"}, Deadline: "01.10.2025"}).Validate(); err == nil {
		t.Error("bad deadline format accepted")
	}
}

func TestMatchesSender(t *testing.T) {
	p := Profile{MainLabel: "X", Senders: []string{"@Prusa3D.com", "sales@other.test"}}
	if !p.MatchesSender("Info <info@prusa3d.com>") {
		t.Error("expected case-insensitive match")
	}
	if p.MatchesSender("noreply@unrelated.test") {
		t.Error("unexpected match")
	}
}

func TestDeadlineDate(t *testing.T) {
	p := Profile{MainLabel: "X", Senders: []string{"a"}, Deadline: "2025-10-01"}
	d, err := p.DeadlineDate()
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	if d == nil || !d.Equal(want) {
		t.Fatalf("got %v", d)
	}

	empty, err := Profile{MainLabel: "X", Senders: []string{"a"}}.DeadlineDate()
	if err != nil || empty != nil {
		t.Fatalf("got %v, %v", empty, err)
	}
}

func TestLeadLimitFallback(t *testing.T) {
	if got := (Profile{}).LeadLimit(14); got != 14 {
		t.Fatalf("got %d", got)
	}
	if got := (Profile{LeadLimitDays: 7}).LeadLimit(14); got != 7 {
		t.Fatalf("got %d", got)
	}
}
