package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"replyrouter/internal/classify"
	"replyrouter/internal/config"
	"replyrouter/internal/connectors"
	gmailconnector "replyrouter/internal/connectors/gmail"
	imapconnector "replyrouter/internal/connectors/imap"
	"replyrouter/internal/forward"
	"replyrouter/internal/labels"
	"replyrouter/internal/listener"
	"replyrouter/internal/llm"
	"replyrouter/internal/pipeline"
	"replyrouter/internal/profile"
	"replyrouter/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "profile:create":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		mainLabel := fs.String("label", "", "main Gmail label for this profile")
		keywords := fs.String("keywords", "", "comma-separated search keywords")
		senders := fs.String("senders", "", "comma-separated sender patterns")
		forwardTo := fs.String("forward-to", "", "forward positive replies here")
		leadDays := fs.Int("lead-days", 0, "lead-time limit in days (0 = default)")
		deadline := fs.String("deadline", "", "hard deadline YYYY-MM-DD")
		overwrite := fs.Bool("overwrite", false, "replace an existing profile")
		_ = fs.Parse(os.Args[2:])

		p := profile.Profile{
			MainLabel:     *mainLabel,
			Keywords:      splitList(*keywords),
			Senders:       splitList(*senders),
			ForwardTo:     *forwardTo,
			LeadLimitDays: *leadDays,
			Deadline:      *deadline,
		}
		path, err := profile.Save(cfg.ProfilesDir, p, *overwrite)
		must(err)
		fmt.Printf("profile saved: %s\n", path)

	case "labels:ensure":
		gc, err := gmailconnector.NewConnector(cfg)
		must(err)
		labeler, err := labels.NewManager(gc)
		must(err)
		profiles, err := profile.LoadDir(cfg.ProfilesDir)
		must(err)
		verdicts := labels.AllVerdicts()
		for _, p := range profiles {
			_, err := labeler.GetOrCreate(p.MainLabel, "")
			must(err)
			for _, v := range verdicts {
				path := labels.VerdictLabelPath(p.MainLabel, v)
				_, err := labeler.GetOrCreate(path, labels.VerdictColor(v))
				must(err)
				fmt.Printf("label ready: %s\n", path)
			}
		}

	case "mail:sweep":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		max := fs.Int("max", 50, "max messages per query")
		_ = fs.Parse(os.Args[2:])
		gc, err := gmailconnector.NewConnector(cfg)
		must(err)
		labeler, err := labels.NewManager(gc)
		must(err)
		profiles, err := profile.LoadDir(cfg.ProfilesDir)
		must(err)
		sweeper := pipeline.NewSweepService(gc, labeler, *max)
		labeled, err := sweeper.SweepAll(profiles)
		must(err)
		fmt.Printf("sweep done labeled=%d\n", labeled)

	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "gmail", "gmail|imap")
		label := fs.String("label", "INBOX", "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := makeConnector(cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn)
		result, err := fetch.FetchAndStore(*label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d\n", *provider, result.Fetched, result.Stored)

	case "mail:classify":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "gmail", "gmail|imap")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(os.Args[2:])

		profiles, err := profile.LoadDir(cfg.ProfilesDir)
		must(err)
		classifier := newClassifier(cfg)

		var labeler *labels.Manager
		var sender forward.Sender
		if strings.ToLower(*provider) == "gmail" {
			gc, err := gmailconnector.NewConnector(cfg)
			must(err)
			labeler, err = labels.NewManager(gc)
			must(err)
			sender = gc
		}

		processor := pipeline.NewProcessingService(db, cfg, classifier, profiles, labeler, sender)
		if strings.TrimSpace(*messageID) != "" {
			verdict, err := processor.ProcessByMessageID(context.Background(), *provider, *messageID)
			must(err)
			fmt.Printf("classified %s: %s\n", *messageID, verdict)
			return
		}
		result, err := processor.ProcessPending(context.Background(), *batch, *provider)
		must(err)
		fmt.Printf("classified pending processed=%d failed=%d\n", result.Processed, result.Failed)

	case "mail:listen":
		s := listener.NewService(db, cfg)
		must(s.Run(context.Background()))

	case "classify":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		text := fs.String("text", "", "reply text to classify")
		mode := fs.String("mode", "", "single|ensemble|retry (default from env)")
		deadline := fs.String("deadline", "", "deadline YYYY-MM-DD")
		sent := fs.String("sent", "", "reply date YYYY-MM-DD (default today)")
		leadDays := fs.Int("lead-days", 0, "lead-time limit in days")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*text) == "" {
			must(fmt.Errorf("--text is required"))
		}

		opts := classify.Options{Mode: classify.Mode(*mode), LeadLimitDays: *leadDays}
		if *deadline != "" {
			d, err := classify.ParseDate(*deadline)
			must(err)
			opts.Deadline = &d
		}
		if *sent != "" {
			s, err := classify.ParseDate(*sent)
			must(err)
			opts.Sent = &s
		}

		verdict, err := newClassifier(cfg).Classify(context.Background(), *text, opts)
		must(err)
		fmt.Println(verdict)

	default:
		usage()
		os.Exit(1)
	}
}

func newClassifier(cfg config.Config) *classify.Classifier {
	return classify.New(llm.NewClient(cfg), classify.Config{
		Mode:          classify.Mode(cfg.ClassifierMode),
		LeadLimitDays: cfg.LeadLimitDays,
		EnsembleN:     cfg.EnsembleN,
		MaxParseRetry: cfg.MaxParseRetry,
	})
}

func makeConnector(cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func splitList(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func usage() {
	fmt.Println("usage: replyrouter <command>")
	fmt.Println("commands:")
	fmt.Println("  profile:create --label=... --keywords=a,b --senders=x,y [--forward-to=...] [--lead-days=14] [--deadline=YYYY-MM-DD] [--overwrite]")
	fmt.Println("  labels:ensure")
	fmt.Println("  mail:sweep [--max=50]")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  mail:classify --provider=gmail|imap [--messageId=...] [--batch=20]")
	fmt.Println("  mail:listen")
	fmt.Println("  classify --text=... [--mode=single|ensemble|retry] [--deadline=YYYY-MM-DD] [--sent=YYYY-MM-DD] [--lead-days=14]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
