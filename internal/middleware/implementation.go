package middleware

import (
	"context"
	"net"
	"net/http"

	"github.com/akolanti/CSDAssistant/internal/adapter/utils"
	"github.com/akolanti/CSDAssistant/internal/config"
	"github.com/akolanti/CSDAssistant/internal/handlers"
)

func injectTrace(re requestResponseStruct) requestResponseStruct {
	req := re.req
	if req == nil {
		//this is a bad request
		re.badRequest.httpCode = http.StatusBadRequest
		re.badRequest.errorMessage = "request is empty"
		re.badRequest.isBadRequest = true
		return re
	}
	trace := req.Header.Get("X-Trace-Id")
	if trace == "" {
		trace = utils.GetNewUUID()
	}
	re.logger = re.logger.With("traceId", trace)
	ctx := context.WithValue(req.Context(), config.TRACE_ID_KEY, trace)
	req.Header.Set(`X-Trace-Id`, trace)
	re.writer.Header().Set(`X-Trace-Id`, trace)
	re.req = req.WithContext(ctx)
	return re
}

// injectSession reuses the browser's session id or hands out a new one.
func injectSession(re requestResponseStruct) requestResponseStruct {
	id := ""
	if cookie, err := re.req.Cookie(config.SessionCookieName); err == nil && utils.IsUUID(cookie.Value) {
		id = cookie.Value
	}
	if id == "" {
		id = utils.GetNewUUID()
		re.logger.Debug("New session", "sessionId", id)
	}
	//refresh on every request so an active visitor keeps the session
	http.SetCookie(re.writer, &http.Cookie{
		Name:     config.SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(config.SessionCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   re.req.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	re.logger = re.logger.With("sessionId", id)
	re.req = re.req.WithContext(context.WithValue(re.req.Context(), config.SESSION_ID_KEY, id))
	return re
}

func rateLimiter(re requestResponseStruct) requestResponseStruct {
	ip, _, err := net.SplitHostPort(re.req.RemoteAddr)
	if err != nil {
		ip = re.req.RemoteAddr
	}

	if !limiterInstance.GetLimiter(ip).Allow() {
		re.logger.Warn("Too many requests", "ip", ip)
		re.badRequest = failureStruct{
			isBadRequest: true,
			httpCode:     http.StatusTooManyRequests,
			errorMessage: "Demasiadas preguntas seguidas. Espera un momento e intenta de nuevo.",
		}
	}
	return re
}

func handleBadRequest(re requestResponseStruct) {
	remote := ""
	if re.req != nil {
		remote = re.req.RemoteAddr
	}
	re.logger.Warn("Bad request", "httpCode", re.badRequest.httpCode, "errorMessage", re.badRequest.errorMessage, "IP", remote)
	handlers.WriteErrorResponse(re.writer, re.badRequest.httpCode, re.badRequest.errorMessage, re.badRequest.httpCode == http.StatusTooManyRequests)
}
