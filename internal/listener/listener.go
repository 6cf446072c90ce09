package listener

import (
	"context"
	"fmt"
	"strings"
	"time"

	"replyrouter/internal/classify"
	"replyrouter/internal/config"
	"replyrouter/internal/connectors"
	gmailconnector "replyrouter/internal/connectors/gmail"
	imapconnector "replyrouter/internal/connectors/imap"
	"replyrouter/internal/forward"
	"replyrouter/internal/labels"
	"replyrouter/internal/llm"
	"replyrouter/internal/pipeline"
	"replyrouter/internal/profile"
	"replyrouter/internal/storage"
)

// Service polls the mailbox on an interval: sweep profile labels onto
// matching mail (Gmail only), fetch and store new messages, then classify
// the backlog.
type Service struct {
	db  *storage.DB
	cfg config.Config
}

func NewService(db *storage.DB, cfg config.Config) *Service {
	return &Service{db: db, cfg: cfg}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.runCycle(ctx); err != nil {
			fmt.Printf("listener cycle error: %v\n", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.MailListenerIntervalSec) * time.Second):
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))

	profiles, err := profile.LoadDir(s.cfg.ProfilesDir)
	if err != nil {
		return err
	}

	classifier := classify.New(llm.NewClient(s.cfg), classify.Config{
		Mode:          classify.Mode(s.cfg.ClassifierMode),
		LeadLimitDays: s.cfg.LeadLimitDays,
		EnsembleN:     s.cfg.EnsembleN,
		MaxParseRetry: s.cfg.MaxParseRetry,
	})

	var labeler *labels.Manager
	var sender forward.Sender
	var fetched, stored int

	switch provider {
	case "gmail":
		gc, err := gmailconnector.NewConnector(s.cfg)
		if err != nil {
			return err
		}
		labeler, err = labels.NewManager(gc)
		if err != nil {
			return err
		}
		if s.cfg.MailListenerAutoForward {
			sender = gc
		}

		sweeper := pipeline.NewSweepService(gc, labeler, s.cfg.MailListenerFetchMax)
		swept, err := sweeper.SweepAll(profiles)
		if err != nil {
			return err
		}
		if swept > 0 {
			fmt.Printf("listener swept %d messages into profile labels\n", swept)
		}

		store := connectors.NewMailStoreService(s.db, s.cfg.RawMailDir)
		for _, p := range profiles {
			messages, err := gc.FetchQuery(fmt.Sprintf("label:%q", p.MainLabel), s.cfg.MailListenerFetchMax)
			if err != nil {
				return err
			}
			fetched += len(messages)
			for _, msg := range messages {
				if _, err := store.Store(msg); err != nil {
					return err
				}
				stored++
			}
		}

	case "imap":
		ic, err := imapconnector.NewConnector(s.cfg)
		if err != nil {
			return err
		}
		fetchService := connectors.NewFetchService(s.db, s.cfg.RawMailDir, ic)
		result, err := fetchService.FetchAndStore(s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
		if err != nil {
			return err
		}
		fetched, stored = result.Fetched, result.Stored

	default:
		return fmt.Errorf("unsupported listener provider: %s", provider)
	}

	processor := pipeline.NewProcessingService(s.db, s.cfg, classifier, profiles, labeler, sender)
	result, err := processor.ProcessPending(ctx, s.cfg.MailListenerProcessBatch, provider)
	if err != nil {
		return err
	}

	fmt.Printf("listener cycle done provider=%s fetched=%d stored=%d processed=%d failed=%d\n",
		provider, fetched, stored, result.Processed, result.Failed)
	return nil
}
