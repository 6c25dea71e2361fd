// Package mailer builds MIME messages with inline images and submits them
// over SMTP.
package mailer

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/wneessen/go-mail"

	"mcp-insight-service/pkg/datauri"
)

// ContentIDDomain is the right-hand side of generated content ids
const ContentIDDomain = "mcp-insight"

// Attachment is an inline image referenced from the HTML body by content id
type Attachment struct {
	Filename    string
	Content     []byte
	ContentID   string
	ContentType string
}

// EmailMessage is one outgoing email
type EmailMessage struct {
	From        string
	To          string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// ContentID returns the content id for the n-th image, counting from 1
func ContentID(n int) string {
	return fmt.Sprintf("image%d@%s", n, ContentIDDomain)
}

// DecodeImage decodes base64 image data, with or without a data URI prefix,
// into an inline attachment numbered n
func DecodeImage(name, data string, n int) (Attachment, error) {
	contentType, content, err := datauri.Decode(data)
	if err != nil {
		return Attachment{}, err
	}

	if contentType == "" {
		contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	}
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}

	return Attachment{
		Filename:    name,
		Content:     content,
		ContentID:   ContentID(n),
		ContentType: contentType,
	}, nil
}

// BuildMessage converts msg into a multipart/alternative MIME message with
// the images embedded inline
func BuildMessage(msg *EmailMessage) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	for _, a := range msg.Attachments {
		err := m.EmbedReader(a.Filename, bytes.NewReader(a.Content),
			mail.WithFileContentID(a.ContentID),
			mail.WithFileContentType(mail.ContentType(a.ContentType)))
		if err != nil {
			return nil, fmt.Errorf("failed to embed %s: %w", a.Filename, err)
		}
	}
	return m, nil
}
