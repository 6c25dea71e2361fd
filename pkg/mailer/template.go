package mailer

import (
	"bytes"
	"html/template"
)

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Subject}}</title>
<style>
  body { margin: 0; padding: 0; background: #f4f5f7; font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; color: #1f2328; }
  .container { max-width: 640px; margin: 24px auto; background: #ffffff; border-radius: 8px; overflow: hidden; }
  .header { background: #2f5bea; color: #ffffff; padding: 20px 28px; font-size: 18px; font-weight: 600; }
  .content { padding: 24px 28px; line-height: 1.6; }
  .content pre { background: #f6f8fa; padding: 12px; border-radius: 6px; overflow-x: auto; }
  .content table { border-collapse: collapse; }
  .content td, .content th { border: 1px solid #d0d7de; padding: 4px 8px; }
  .images img { max-width: 100%; margin-top: 16px; border-radius: 4px; }
  .footer { padding: 16px 28px; font-size: 12px; color: #656d76; border-top: 1px solid #eaeef2; }
</style>
</head>
<body>
<div class="container">
  <div class="header">{{.Subject}}</div>
  <div class="content">
    {{.Body}}
    {{- if .Images}}
    <div class="images">
      {{- range .Images}}
      <img src="cid:{{.ContentID}}" alt="{{.Filename}}">
      {{- end}}
    </div>
    {{- end}}
  </div>
  <div class="footer">Sent by mcp-insight-service</div>
</div>
</body>
</html>
`))

// ComposeHTML wraps an HTML fragment in the email layout and appends an
// inline reference for every attachment
func ComposeHTML(subject, bodyHTML string, images []Attachment) (string, error) {
	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, struct {
		Subject string
		Body    template.HTML
		Images  []Attachment
	}{
		Subject: subject,
		Body:    template.HTML(bodyHTML),
		Images:  images,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
