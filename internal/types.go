package internal

// Verdict is the four-way final label for a supplier reply.
type Verdict string

const (
	VerdictNegative          Verdict = "negative"
	VerdictNeutral           Verdict = "neutral"
	VerdictPositive          Verdict = "positive"
	VerdictPositiveOutOfTerm Verdict = "positive_out_of_term"
)

// VerdictFromScore maps a raw model vote to its direct label.
// Out-of-term is never produced by the model itself, only by normalization.
func VerdictFromScore(score int) Verdict {
	switch {
	case score > 0:
		return VerdictPositive
	case score < 0:
		return VerdictNegative
	default:
		return VerdictNeutral
	}
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	ProviderID string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

type EmailRow struct {
	ID         int
	Provider   string
	MessageID  string
	ProviderID string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	Verdict    string
	RawRef     string
}
