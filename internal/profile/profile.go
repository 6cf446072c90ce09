package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Profile describes one monitored supplier segment: how to find its
// replies, under which label to file them, and how strict the lead-time
// check is.
type Profile struct {
	MainLabel       string   `json:"main_label"`
	Keywords        []string `json:"keywords"`
	Senders         []string `json:"senders"`
	PositiveColor   string   `json:"positive_color,omitempty"`
	ForwardTo       string   `json:"forward_to,omitempty"`
	HeaderName      string   `json:"header_name,omitempty"`
	LeadLimitDays   int      `json:"lead_limit_days,omitempty"`
	Deadline        string   `json:"deadline,omitempty"`
	ScheduleMinutes int      `json:"schedule_minutes,omitempty"`
}

func (p Profile) Validate() error {
	if strings.TrimSpace(p.MainLabel) == "" {
		return fmt.Errorf("profile: main_label is required")
	}
	if len(p.Keywords) == 0 && len(p.Senders) == 0 {
		return fmt.Errorf("profile %q: at least one keyword or sender is required", p.MainLabel)
	}
	if p.Deadline != "" {
		if _, err := time.Parse("2006-01-02", p.Deadline); err != nil {
			return fmt.Errorf("profile %q: deadline must be YYYY-MM-DD: %w", p.MainLabel, err)
		}
	}
	return nil
}

// MatchesSender reports whether any configured sender pattern occurs in
// the From header, case-insensitively.
func (p Profile) MatchesSender(from string) bool {
	lowered := strings.ToLower(from)
	for _, s := range p.Senders {
		if s == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

func (p Profile) LeadLimit(fallback int) int {
	if p.LeadLimitDays > 0 {
		return p.LeadLimitDays
	}
	return fallback
}

// DeadlineDate parses the optional deadline as a UTC date.
func (p Profile) DeadlineDate() (*time.Time, error) {
	if p.Deadline == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", p.Deadline)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

func (p Profile) HeaderOrDefault() string {
	if p.HeaderName != "" {
		return p.HeaderName
	}
	return "X-Label"
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	slug := slugRe.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}

// Save writes a profile to dir as <slug>.json. Refuses to overwrite an
// existing profile unless overwrite is set.
func Save(dir string, p Profile, overwrite bool) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, slugify(p.MainLabel)+".json")
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("profile file already exists: %s", path)
		}
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// LoadDir reads every *.json profile in dir, sorted by file name. A
// missing directory yields an empty slice.
func LoadDir(dir string) ([]Profile, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	profiles := make([]Profile, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		var p Profile
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parse profile %s: %w", name, err)
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}
