package adapter

import (
	"bytes"
	"encoding/base64"
	"html/template"

	"github.com/akolanti/CSDAssistant/internal/api"
	"github.com/akolanti/CSDAssistant/internal/domain/chatModel"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const AudioMime = "audio/mpeg"

// raw html in answers is dropped, only markdown is rendered
var markdown = goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough))

func RenderMarkdown(content string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(content), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(content))
	}
	return template.HTML(buf.String())
}

// MessageView is a message ready for the page template.
type MessageView struct {
	Role     string
	HTML     template.HTML
	AudioURL template.URL
	Language string
}

func AudioDataURL(audio []byte) template.URL {
	if len(audio) == 0 {
		return ""
	}
	return template.URL("data:" + AudioMime + ";base64," + base64.StdEncoding.EncodeToString(audio))
}

func ToMessageView(m chatModel.Message) MessageView {
	return MessageView{
		Role:     string(m.Role),
		HTML:     RenderMarkdown(m.Content),
		AudioURL: AudioDataURL(m.Audio),
		Language: m.Language,
	}
}

func ToMessageViews(messages []chatModel.Message) []MessageView {
	views := make([]MessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, ToMessageView(m))
	}
	return views
}

func ToMessageResponse(m chatModel.Message) api.MessageResponse {
	res := api.MessageResponse{
		Id:        m.Id,
		Role:      string(m.Role),
		Content:   m.Content,
		HTML:      string(RenderMarkdown(m.Content)),
		Language:  m.Language,
		CreatedAt: m.CreatedAt,
	}
	if len(m.Audio) > 0 {
		res.AudioBase64 = base64.StdEncoding.EncodeToString(m.Audio)
		res.AudioMime = AudioMime
	}
	return res
}

func ToSessionResponse(s chatModel.Session) api.SessionResponse {
	messages := make([]api.MessageResponse, 0, len(s.Messages))
	for _, m := range s.Messages {
		messages = append(messages, ToMessageResponse(m))
	}
	return api.SessionResponse{
		SessionId: s.Id,
		State:     string(s.State),
		Messages:  messages,
	}
}

func ToTurnResponse(sessionId string, r chatModel.TurnResult) api.TurnResponse {
	res := api.TurnResponse{
		SessionId:  sessionId,
		Step:       string(r.Step),
		Language:   r.Language,
		Sources:    r.Sources,
		Compressed: r.Compressed,
	}
	if r.User != nil {
		u := ToMessageResponse(*r.User)
		res.User = &u
	}
	if r.Assistant != nil {
		a := ToMessageResponse(*r.Assistant)
		res.Assistant = &a
	}
	for _, w := range r.Warnings {
		res.Warnings = append(res.Warnings, api.WarningResponse{Step: string(w.Step), Message: w.Message})
	}
	return res
}

func ToErrorResponse(code int, message string, retry bool) api.ErrorResponse {
	return api.ErrorResponse{Error: api.OutgoingError{Code: code, Message: message, Retry: retry}}
}
