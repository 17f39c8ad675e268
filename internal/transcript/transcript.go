// ABOUTME: HTML transcript export of the day-grouped conversation
// ABOUTME: Renders message markdown with goldmark under per-day headings

package transcript

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/yuin/goldmark"

	"github.com/2389/parley/internal/conversation"
)

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Conversation transcript</title>
<style>
body { font-family: sans-serif; max-width: 42rem; margin: 2rem auto; padding: 0 1rem; }
h2 { border-bottom: 1px solid #ccc; padding-bottom: 0.25rem; }
.message { margin: 0.75rem 0; }
.sender { font-weight: bold; }
.user .sender { color: #1a5fb4; }
.assistant .sender { color: #613583; }
.time { color: #777; font-size: 0.8rem; margin-left: 0.5rem; }
</style>
</head>
<body>
<h1>Conversation transcript</h1>
{{range .Days}}<h2>{{.Day}}</h2>
{{range .Messages}}<div class="message {{.Class}}">
<span class="sender">{{.Sender}}</span><span class="time">{{.Time}}</span>
{{.Body}}
</div>
{{end}}{{end}}</body>
</html>
`

var tmpl = template.Must(template.New("transcript").Parse(pageTemplate))

type messageView struct {
	Class  string
	Sender string
	Time   string
	Body   template.HTML
}

type dayView struct {
	Day      string
	Messages []messageView
}

// WriteHTML renders the grouped conversation as a standalone HTML page.
// Message text is treated as markdown; a message that fails to convert
// is rendered as a plain paragraph instead of failing the export.
func WriteHTML(w io.Writer, groups []conversation.DayGroup) error {
	days := make([]dayView, 0, len(groups))
	for _, g := range groups {
		day := dayView{Day: g.Day}
		for _, m := range g.Messages {
			day.Messages = append(day.Messages, messageView{
				Class:  senderClass(m.IsUser),
				Sender: senderLabel(m.IsUser),
				Time:   m.Timestamp.Format(time.Kitchen),
				Body:   renderMarkdown(m.Text),
			})
		}
		days = append(days, day)
	}

	data := struct{ Days []dayView }{Days: days}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("rendering transcript: %w", err)
	}
	return nil
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(text), &buf); err != nil {
		escaped := template.HTMLEscapeString(text)
		return template.HTML("<p>" + escaped + "</p>")
	}
	return template.HTML(buf.String())
}

func senderClass(isUser bool) string {
	if isUser {
		return "user"
	}
	return "assistant"
}

func senderLabel(isUser bool) string {
	if isUser {
		return "You"
	}
	return "Assistant"
}
