package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"replyrouter/internal"
	"replyrouter/internal/config"
)

type Connector struct {
	service   *gmail.Service
	userEmail string
}

func NewConnector(cfg config.Config) (*Connector, error) {
	if err := cfg.Require("GMAIL_CLIENT_ID", cfg.GmailClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_CLIENT_SECRET", cfg.GmailClientSecret); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{gmail.GmailModifyScope, gmail.GmailSendScope},
	}

	tokenSource := oauthCfg.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	svc, err := gmail.NewService(context.Background(), option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &Connector{service: svc, userEmail: cfg.GmailUserEmail}, nil
}

func (c *Connector) UserEmail() string { return c.userEmail }

// FetchInbox pulls up to max messages carrying the given label ID
// (system labels like INBOX work by name).
func (c *Connector) FetchInbox(label string, max int) ([]internal.FetchedMailMessage, error) {
	listResp, err := c.service.Users.Messages.List("me").LabelIds(label).MaxResults(int64(max)).Do()
	if err != nil {
		return nil, err
	}
	return c.fetchRefs(listResp.Messages)
}

// FetchQuery pulls up to max messages matching a Gmail search query,
// e.g. `label:"3D Companies"` or `from:sales@supplier.test`.
func (c *Connector) FetchQuery(query string, max int) ([]internal.FetchedMailMessage, error) {
	listResp, err := c.service.Users.Messages.List("me").Q(query).MaxResults(int64(max)).Do()
	if err != nil {
		return nil, err
	}
	return c.fetchRefs(listResp.Messages)
}

// Search returns only the provider message IDs matching a query.
func (c *Connector) Search(query string, max int) ([]string, error) {
	listResp, err := c.service.Users.Messages.List("me").Q(query).MaxResults(int64(max)).Do()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(listResp.Messages))
	for _, ref := range listResp.Messages {
		if ref.Id != "" {
			ids = append(ids, ref.Id)
		}
	}
	return ids, nil
}

func (c *Connector) GetMessageRaw(providerID string) ([]byte, error) {
	resp, err := c.service.Users.Messages.Get("me", providerID).Format("raw").Do()
	if err != nil {
		return nil, err
	}
	return decodeBase64URL(resp.Raw)
}

func (c *Connector) ModifyLabels(providerID string, add, remove []string) error {
	if len(add) == 0 && len(remove) == 0 {
		return nil
	}
	_, err := c.service.Users.Messages.Modify("me", providerID, &gmail.ModifyMessageRequest{
		AddLabelIds:    add,
		RemoveLabelIds: remove,
	}).Do()
	return err
}

// ListLabels returns the account's labels as a name to ID map.
func (c *Connector) ListLabels() (map[string]string, error) {
	resp, err := c.service.Users.Labels.List("me").Do()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(resp.Labels))
	for _, label := range resp.Labels {
		out[label.Name] = label.Id
	}
	return out, nil
}

func (c *Connector) CreateLabel(name string) (string, error) {
	created, err := c.service.Users.Labels.Create("me", &gmail.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Do()
	if err != nil {
		return "", err
	}
	return created.Id, nil
}

func (c *Connector) PatchLabelColor(labelID, bgHex string) error {
	_, err := c.service.Users.Labels.Patch("me", labelID, &gmail.Label{
		Color: &gmail.LabelColor{
			BackgroundColor: strings.ToLower(bgHex),
			TextColor:       "#000000",
		},
	}).Do()
	return err
}

func (c *Connector) SendRaw(raw []byte) error {
	_, err := c.service.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.RawURLEncoding.EncodeToString(raw),
	}).Do()
	return err
}

func (c *Connector) fetchRefs(refs []*gmail.Message) ([]internal.FetchedMailMessage, error) {
	out := make([]internal.FetchedMailMessage, 0, len(refs))

	for _, msgRef := range refs {
		if msgRef.Id == "" {
			continue
		}

		rawResp, err := c.service.Users.Messages.Get("me", msgRef.Id).Format("raw").Do()
		if err != nil {
			return nil, err
		}
		metaResp, err := c.service.Users.Messages.Get("me", msgRef.Id).Format("metadata").MetadataHeaders("Subject", "From", "Date", "Message-ID").Do()
		if err != nil {
			return nil, err
		}

		if rawResp.Raw == "" {
			continue
		}

		rawBytes, err := decodeBase64URL(rawResp.Raw)
		if err != nil {
			return nil, err
		}

		headers := map[string]string{}
		if metaResp.Payload != nil {
			for _, h := range metaResp.Payload.Headers {
				headers[strings.ToLower(h.Name)] = h.Value
			}
		}

		received := time.Now().UTC().Format(time.RFC3339)
		if dateHeader := headers["date"]; dateHeader != "" {
			if t, err := time.Parse(time.RFC1123Z, dateHeader); err == nil {
				received = t.UTC().Format(time.RFC3339)
			} else if t, err := mailDateFallback(dateHeader); err == nil {
				received = t.UTC().Format(time.RFC3339)
			}
		}

		messageID := headers["message-id"]
		if messageID == "" {
			messageID = msgRef.Id
		}

		out = append(out, internal.FetchedMailMessage{
			Provider:   "gmail",
			MessageID:  messageID,
			ProviderID: msgRef.Id,
			Subject:    headers["subject"],
			From:       headers["from"],
			ReceivedAt: received,
			Raw:        rawBytes,
		})
	}

	return out, nil
}

func decodeBase64URL(input string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	decoded, err = base64.URLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("decode gmail raw payload: %w", err)
}

func mailDateFallback(value string) (time.Time, error) {
	layouts := []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822, time.RFC850, time.ANSIC}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format")
}
