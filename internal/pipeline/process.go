package pipeline

import (
	"context"
	"fmt"
	"os"

	"replyrouter/internal"
	"replyrouter/internal/classify"
	"replyrouter/internal/config"
	"replyrouter/internal/forward"
	"replyrouter/internal/labels"
	"replyrouter/internal/profile"
	"replyrouter/internal/storage"
)

// Classifier is the slice of classify.Classifier the pipeline needs.
type Classifier interface {
	Classify(ctx context.Context, reply string, opts classify.Options) (internal.Verdict, error)
}

// ProcessingService turns fetched emails into classified, labeled and
// optionally forwarded ones. The labeler and sender are nil for providers
// that cannot label or send (plain IMAP); those steps are then skipped.
type ProcessingService struct {
	db         *storage.DB
	cfg        config.Config
	classifier Classifier
	profiles   []profile.Profile
	labeler    *labels.Manager
	sender     forward.Sender
}

type ProcessResult struct {
	Processed int
	Failed    int
	Skipped   int
}

func NewProcessingService(db *storage.DB, cfg config.Config, classifier Classifier, profiles []profile.Profile, labeler *labels.Manager, sender forward.Sender) *ProcessingService {
	return &ProcessingService{
		db:         db,
		cfg:        cfg,
		classifier: classifier,
		profiles:   profiles,
		labeler:    labeler,
		sender:     sender,
	}
}

// ProcessPending classifies up to limit fetched emails. A failing email is
// marked failed and does not abort the batch; provider filters rows when
// non-empty.
func (s *ProcessingService) ProcessPending(ctx context.Context, limit int, provider string) (ProcessResult, error) {
	pending, err := s.db.ListEmailsByStatus("fetched", limit)
	if err != nil {
		return ProcessResult{}, err
	}

	result := ProcessResult{}
	for _, email := range pending {
		if provider != "" && email.Provider != provider {
			result.Skipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		verdict, err := s.ProcessEmail(ctx, email)
		if err != nil {
			fmt.Printf("email %d (%s): classification failed: %v\n", email.ID, email.MessageID, err)
			if statusErr := s.db.UpdateEmailStatus(email.ID, "failed"); statusErr != nil {
				return result, statusErr
			}
			result.Failed++
			continue
		}

		fmt.Printf("email %d (%s): %s\n", email.ID, email.MessageID, verdict)
		result.Processed++
	}

	return result, nil
}

// ProcessByMessageID reclassifies one stored email regardless of status.
func (s *ProcessingService) ProcessByMessageID(ctx context.Context, provider, messageID string) (internal.Verdict, error) {
	email, err := s.db.MustEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return "", err
	}
	return s.ProcessEmail(ctx, email)
}

// ProcessEmail runs the full path for one stored email: extract the reply,
// pick the matching profile, classify, persist the verdict, then label and
// forward where the provider supports it.
func (s *ProcessingService) ProcessEmail(ctx context.Context, email internal.EmailRow) (internal.Verdict, error) {
	raw, err := os.ReadFile(email.RawRef)
	if err != nil {
		return "", fmt.Errorf("read stored message: %w", err)
	}

	content, err := ExtractReplyFromRaw(raw)
	if err != nil {
		return "", fmt.Errorf("extract reply: %w", err)
	}
	if content.Text == "" {
		return "", fmt.Errorf("no classifiable text in message")
	}

	prof := s.profileFor(email.Sender)

	opts := classify.Options{}
	if prof != nil {
		opts.LeadLimitDays = prof.LeadLimit(s.cfg.LeadLimitDays)
		deadline, err := prof.DeadlineDate()
		if err != nil {
			return "", fmt.Errorf("profile %q: %w", prof.MainLabel, err)
		}
		opts.Deadline = deadline
	}
	if email.ReceivedAt != "" {
		if sent, err := classify.ParseDate(email.ReceivedAt); err == nil {
			opts.Sent = &sent
		}
	}

	verdict, err := s.classifier.Classify(ctx, content.Text, opts)
	if err != nil {
		return "", err
	}

	if err := s.db.SetEmailVerdict(email.ID, string(verdict)); err != nil {
		return "", err
	}

	if prof != nil && s.labeler != nil && email.ProviderID != "" {
		path := labels.VerdictLabelPath(prof.MainLabel, verdict)
		labelID, err := s.labeler.GetOrCreate(path, labels.VerdictColor(verdict))
		if err != nil {
			return "", fmt.Errorf("label %q: %w", path, err)
		}
		if err := s.labeler.Apply(email.ProviderID, labelID); err != nil {
			return "", fmt.Errorf("apply label %q: %w", path, err)
		}
	}

	if verdict == internal.VerdictPositive && prof != nil && prof.ForwardTo != "" && s.sender != nil {
		fwd := forward.NewForwarder(s.sender, s.cfg.GmailUserEmail, prof.ForwardTo, prof.HeaderOrDefault())
		path := labels.VerdictLabelPath(prof.MainLabel, verdict)
		if err := fwd.Forward(raw, path); err != nil {
			return "", fmt.Errorf("forward to %s: %w", prof.ForwardTo, err)
		}
	}

	return verdict, nil
}

// profileFor picks the first profile whose sender patterns match; with no
// match the first profile acts as the default, if any exist.
func (s *ProcessingService) profileFor(sender string) *profile.Profile {
	for i := range s.profiles {
		if s.profiles[i].MatchesSender(sender) {
			return &s.profiles[i]
		}
	}
	if len(s.profiles) > 0 {
		return &s.profiles[0]
	}
	return nil
}
