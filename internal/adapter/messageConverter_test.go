package adapter

import (
	"strings"
	"testing"

	"github.com/akolanti/CSDAssistant/internal/domain/chatModel"
)

func TestRenderMarkdown(t *testing.T) {
	got := string(RenderMarkdown("El rector es **Juan Pérez**."))
	if !strings.Contains(got, "<strong>Juan Pérez</strong>") {
		t.Errorf("markdown not rendered: %s", got)
	}

	unsafe := string(RenderMarkdown("<script>alert(1)</script>"))
	if strings.Contains(unsafe, "<script>") {
		t.Errorf("raw html leaked: %s", unsafe)
	}
}

func TestToTurnResponse(t *testing.T) {
	user := chatModel.Message{Id: "u", Role: chatModel.RoleUser, Content: "¿Quién es el rector?"}
	assistant := chatModel.Message{Id: "a", Role: chatModel.RoleAssistant, Content: "Juan Pérez", Audio: []byte("mp3")}
	res := ToTurnResponse("s1", chatModel.TurnResult{
		User:      &user,
		Assistant: &assistant,
		Language:  "es",
		Step:      chatModel.Complete,
		Warnings:  []chatModel.TurnWarning{{Step: chatModel.TTSCall, Message: "sin audio"}},
		Sources:   []int{2},
	})

	if res.SessionId != "s1" || res.Step != "Complete" || res.Language != "es" {
		t.Errorf("header fields wrong: %+v", res)
	}
	if res.User.Content != user.Content || res.User.AudioBase64 != "" {
		t.Errorf("user message wrong: %+v", res.User)
	}
	if res.Assistant.AudioBase64 != "bXAz" || res.Assistant.AudioMime != AudioMime {
		t.Errorf("assistant audio wrong: %+v", res.Assistant)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Step != "TTS" {
		t.Errorf("warnings wrong: %+v", res.Warnings)
	}
}

func TestToMessageView_Audio(t *testing.T) {
	v := ToMessageView(chatModel.Message{Role: chatModel.RoleAssistant, Content: "hola", Audio: []byte("mp3")})
	if string(v.AudioURL) != "data:audio/mpeg;base64,bXAz" {
		t.Errorf("AudioURL got %s", v.AudioURL)
	}
	if ToMessageView(chatModel.Message{Content: "hola"}).AudioURL != "" {
		t.Error("Expected no audio url without audio")
	}
}
