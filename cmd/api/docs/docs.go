// Package docs holds the swagger spec served under /swagger, kept in the
// layout `swag init` writes (see adapter/utils/docs_info.go for the command).
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "me lol"
        },
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/chat": {
            "post": {
                "description": "Runs one turn for the session in the cookie: language detection, retrieval, generation and speech synthesis. Both messages are returned and saved together, or neither is.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Chat"],
                "summary": "Ask a question in text",
                "parameters": [
                    {
                        "description": "Question",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/api.ChatRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "Answered; warnings may report a missing audio reply", "schema": {"$ref": "#/definitions/api.TurnResponse"}},
                    "400": {"description": "Empty or malformed question", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "409": {"description": "A recording is in progress", "schema": {"$ref": "#/definitions/api.TurnResponse"}},
                    "502": {"description": "The answer could not be generated, can be retried", "schema": {"$ref": "#/definitions/api.TurnResponse"}},
                    "503": {"description": "Assistant failed to start", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/api/voice": {
            "post": {
                "description": "Accepts a 16 kHz mono WAV (or raw LINEAR16) recording, ends the recording state and runs the turn on the transcript. An unintelligible recording is reported as a warning and nothing is saved.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["Chat"],
                "summary": "Ask a question by voice",
                "parameters": [
                    {"type": "file", "description": "Recorded question", "name": "audio", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "Answered, or a transcription warning", "schema": {"$ref": "#/definitions/api.TurnResponse"}},
                    "400": {"description": "Missing audio", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "413": {"description": "Recording too large", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "502": {"description": "The answer could not be generated, can be retried", "schema": {"$ref": "#/definitions/api.TurnResponse"}},
                    "503": {"description": "Assistant failed to start", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/api/recording/start": {
            "post": {
                "description": "Moves the session to the Recording state; text questions are refused until the audio arrives or the recording is cancelled.",
                "produces": ["application/json"],
                "tags": ["Recording"],
                "summary": "Start recording",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.SessionResponse"}},
                    "409": {"description": "Already recording", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/api/recording/cancel": {
            "post": {
                "description": "Returns the session to Idle without running a turn.",
                "produces": ["application/json"],
                "tags": ["Recording"],
                "summary": "Cancel recording",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.SessionResponse"}},
                    "409": {"description": "Not recording", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/api/history": {
            "get": {
                "description": "Returns the ordered message log of the session in the cookie, starting with the welcome message.",
                "produces": ["application/json"],
                "tags": ["Chat"],
                "summary": "Conversation so far",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.SessionResponse"}},
                    "503": {"description": "Assistant failed to start", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/healthz": {
            "get": {
                "description": "Reports whether the assistant started, with the index size, the models in use and the session backend. A session store that stops answering turns the status to degraded.",
                "produces": ["application/json"],
                "tags": ["Status"],
                "summary": "Health",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/api.HealthResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.ChatRequest": {
            "type": "object",
            "required": ["message"],
            "properties": {
                "message": {"type": "string"}
            }
        },
        "api.OutgoingError": {
            "type": "object",
            "properties": {
                "can_retry": {"type": "boolean", "example": false},
                "code": {"type": "integer", "example": 409},
                "message": {"type": "string", "example": "recording in progress"}
            }
        },
        "api.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/api.OutgoingError"}
            }
        },
        "api.MessageResponse": {
            "type": "object",
            "properties": {
                "audio_base64": {"type": "string"},
                "audio_mime": {"type": "string", "example": "audio/mpeg"},
                "content": {"type": "string", "example": "El rector es Juan Pérez."},
                "created_at": {"type": "string"},
                "html": {"type": "string"},
                "id": {"type": "string", "example": "2f0d8f1e-6c1b-4f44-9f3e-0b6f1f8a2c11"},
                "language": {"type": "string", "example": "es"},
                "role": {"type": "string", "example": "assistant"}
            }
        },
        "api.WarningResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "step": {"type": "string", "example": "TTS"}
            }
        },
        "api.TurnResponse": {
            "type": "object",
            "properties": {
                "assistant": {"$ref": "#/definitions/api.MessageResponse"},
                "compressed": {"type": "boolean"},
                "error": {"$ref": "#/definitions/api.OutgoingError"},
                "language": {"type": "string", "example": "es"},
                "session_id": {"type": "string"},
                "sources": {"type": "array", "items": {"type": "integer"}},
                "step": {"type": "string", "example": "Complete"},
                "user": {"$ref": "#/definitions/api.MessageResponse"},
                "warnings": {"type": "array", "items": {"$ref": "#/definitions/api.WarningResponse"}}
            }
        },
        "api.SessionResponse": {
            "type": "object",
            "properties": {
                "messages": {"type": "array", "items": {"$ref": "#/definitions/api.MessageResponse"}},
                "session_id": {"type": "string"},
                "state": {"type": "string", "example": "Idle"}
            }
        },
        "api.HealthResponse": {
            "type": "object",
            "properties": {
                "chunks": {"type": "integer"},
                "error": {"type": "string"},
                "index": {"type": "string", "example": "chromem"},
                "model": {"type": "string", "example": "gemini-1.5-flash"},
                "sessions": {"type": "string", "example": "redis"},
                "status": {"type": "string", "example": "ok"},
                "voice_input": {"type": "boolean"},
                "voice_output": {"type": "boolean"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:3000",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "CSD Assistant API",
	Description:      "School assistant that answers questions about the official document, by text or voice.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
