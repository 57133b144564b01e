package mail

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html.tmpl"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt.tmpl"))
)

var subjects = map[string]string{
	KindActivation:    "Activate your Inkwell account",
	KindPasswordReset: "Reset your Inkwell password",
}

// templateData is what every email template can reference.
type templateData struct {
	Email string
	Link  string
}

// Render builds the message of the given kind for one recipient.
func Render(kind, to, link string) (Message, error) {
	subject, ok := subjects[kind]
	if !ok {
		return Message{}, fmt.Errorf("unknown email kind %q", kind)
	}
	data := templateData{Email: to, Link: link}

	var text, html bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&text, kind+".txt.tmpl", data); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", kind, err)
	}
	if err := htmlTemplates.ExecuteTemplate(&html, kind+".html.tmpl", data); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", kind, err)
	}
	return Message{
		Kind:    kind,
		To:      to,
		Subject: subject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
