package pipeline

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"replyrouter/internal/util"
)

// ReplyContent is the classifiable text pulled out of one raw message.
type ReplyContent struct {
	Subject         string
	Text            string
	AttachmentNames []string
}

// ExtractReplyFromRaw pulls the supplier's reply text out of a raw RFC 822
// message. The plain text part wins; an HTML-only message is stripped down
// via goquery. Text found in PDF and spreadsheet attachments is appended,
// since suppliers like to answer inside their own quote documents.
func ExtractReplyFromRaw(raw []byte) (ReplyContent, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return ReplyContent{}, err
	}

	text := strings.TrimSpace(env.Text)
	if text == "" && env.HTML != "" {
		text = htmlToText(env.HTML)
	}

	attachmentNames := make([]string, 0, len(env.Attachments))
	extra := make([]string, 0, len(env.Attachments))
	for _, att := range env.Attachments {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" {
			filename = "attachment"
		}
		attachmentNames = append(attachmentNames, filename)
		lower := strings.ToLower(filename)

		switch {
		case strings.HasSuffix(lower, ".pdf"):
			if attText, err := pdfToText(att.Content); err == nil && attText != "" {
				extra = append(extra, attText)
			}
		case strings.HasSuffix(lower, ".xlsx"), strings.HasSuffix(lower, ".xls"):
			if attText, err := xlsxToText(att.Content); err == nil && attText != "" {
				extra = append(extra, attText)
			}
		}
	}

	if len(extra) > 0 {
		text = strings.TrimSpace(text + "\n\n" + strings.Join(extra, "\n\n"))
	}

	return ReplyContent{
		Subject:         env.GetHeader("Subject"),
		Text:            text,
		AttachmentNames: attachmentNames,
	}, nil
}

func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script,style").Remove()
	body := doc.Find("body")
	if body.Length() == 0 {
		return util.NormalizeSpaces(doc.Text())
	}
	return util.NormalizeSpaces(body.Text())
}

func pdfToText(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}

func xlsxToText(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		for _, row := range rows {
			line := util.NormalizeSpaces(strings.Join(row, " "))
			if line == "" {
				continue
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return strings.TrimSpace(b.String()), nil
}
