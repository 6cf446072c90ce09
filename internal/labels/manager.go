package labels

import (
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"

	"replyrouter/internal"
)

// API is the slice of the Gmail connector the label manager needs.
type API interface {
	ListLabels() (map[string]string, error)
	CreateLabel(name string) (string, error)
	PatchLabelColor(labelID, bgHex string) error
	ModifyLabels(providerID string, add, remove []string) error
}

type Manager struct {
	api   API
	cache map[string]string
}

func NewManager(api API) (*Manager, error) {
	m := &Manager{api: api}
	if err := m.refresh(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) refresh() error {
	listed, err := m.api.ListLabels()
	if err != nil {
		return err
	}
	m.cache = listed
	return nil
}

// ID returns the label ID for an exact label name, or "" when unknown.
func (m *Manager) ID(name string) string {
	return m.cache[name]
}

// GetOrCreate resolves a label name to its ID, creating the label when
// missing. A non-empty colorHex is applied on a best-effort basis: Gmail
// rejects colors outside its fixed palette with a 400, which is not worth
// failing the pipeline over.
func (m *Manager) GetOrCreate(name, colorHex string) (string, error) {
	if id, ok := m.cache[name]; ok {
		return id, nil
	}

	id, err := m.api.CreateLabel(name)
	if err != nil {
		// Another process may have created it since the last refresh.
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 409 {
			if refreshErr := m.refresh(); refreshErr == nil {
				if existing, ok := m.cache[name]; ok {
					return existing, nil
				}
			}
		}
		return "", fmt.Errorf("create label %q: %w", name, err)
	}
	m.cache[name] = id

	if colorHex != "" {
		if err := m.api.PatchLabelColor(id, colorHex); err != nil {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) && apiErr.Code == 400 {
				fmt.Printf("label %q: color %s rejected, keeping default\n", name, colorHex)
			} else {
				return "", fmt.Errorf("color label %q: %w", name, err)
			}
		}
	}

	return id, nil
}

func (m *Manager) Apply(providerID, labelID string) error {
	return m.api.ModifyLabels(providerID, []string{labelID}, nil)
}

func (m *Manager) Remove(providerID, labelID string) error {
	return m.api.ModifyLabels(providerID, nil, []string{labelID})
}

// AllVerdicts lists every verdict a reply can resolve to.
func AllVerdicts() []internal.Verdict {
	return []internal.Verdict{
		internal.VerdictPositive,
		internal.VerdictPositiveOutOfTerm,
		internal.VerdictNeutral,
		internal.VerdictNegative,
	}
}

// VerdictLabelPath builds the nested Gmail label name for a verdict
// under a profile's main label, e.g. "3D Companies/POSITIVE".
func VerdictLabelPath(mainLabel string, v internal.Verdict) string {
	return mainLabel + "/" + verdictSegment(v)
}

func verdictSegment(v internal.Verdict) string {
	switch v {
	case internal.VerdictPositive:
		return "POSITIVE"
	case internal.VerdictPositiveOutOfTerm:
		return "POSITIVE OUT OF TERM"
	case internal.VerdictNegative:
		return "NEGATIVE"
	default:
		return "NEUTRAL"
	}
}

// VerdictColor maps a verdict to a Gmail palette background color.
func VerdictColor(v internal.Verdict) string {
	switch v {
	case internal.VerdictPositive:
		return "#16a766"
	case internal.VerdictPositiveOutOfTerm:
		return "#ffad47"
	case internal.VerdictNegative:
		return "#fb4c2f"
	default:
		return "#cccccc"
	}
}
