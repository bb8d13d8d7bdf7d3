package api

import "time"

type OutgoingError struct {
	Code    int    `json:"code" example:"409"`
	Message string `json:"message" example:"recording in progress"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type ErrorResponse struct {
	Error OutgoingError `json:"error"`
}

type MessageResponse struct {
	Id          string    `json:"id" example:"2f0d8f1e-6c1b-4f44-9f3e-0b6f1f8a2c11"`
	Role        string    `json:"role" example:"assistant"`
	Content     string    `json:"content" example:"El rector es Juan Pérez."`
	HTML        string    `json:"html"`
	Language    string    `json:"language,omitempty" example:"es"`
	AudioBase64 string    `json:"audio_base64,omitempty"`
	AudioMime   string    `json:"audio_mime,omitempty" example:"audio/mpeg"`
	CreatedAt   time.Time `json:"created_at"`
}

type WarningResponse struct {
	Step    string `json:"step" example:"TTS"`
	Message string `json:"message"`
}

type TurnResponse struct {
	SessionId  string            `json:"session_id"`
	Step       string            `json:"step" example:"Complete"`
	Language   string            `json:"language,omitempty" example:"es"`
	User       *MessageResponse  `json:"user,omitempty"`
	Assistant  *MessageResponse  `json:"assistant,omitempty"`
	Warnings   []WarningResponse `json:"warnings,omitempty"`
	Sources    []int             `json:"sources,omitempty"`
	Compressed bool              `json:"compressed"`
	Error      *OutgoingError    `json:"error,omitempty"`
}

type SessionResponse struct {
	SessionId string            `json:"session_id"`
	State     string            `json:"state" example:"Idle"`
	Messages  []MessageResponse `json:"messages"`
}

type HealthResponse struct {
	Status      string `json:"status" example:"ok"`
	Error       string `json:"error,omitempty"`
	Chunks      int    `json:"chunks"`
	Index       string `json:"index" example:"chromem"`
	Model       string `json:"model" example:"gemini-1.5-flash"`
	Sessions    string `json:"sessions" example:"redis"`
	VoiceInput  bool   `json:"voice_input"`
	VoiceOutput bool   `json:"voice_output"`
}

// requests---------------------

type ChatRequest struct {
	Message string `json:"message" validate:"required"`
}
