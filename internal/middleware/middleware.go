package middleware

import (
	"net/http"
	"strconv"

	"github.com/akolanti/CSDAssistant/internal/adapter/utils"
	"github.com/akolanti/CSDAssistant/internal/handlers"
	"github.com/akolanti/CSDAssistant/internal/metrics"
	"github.com/akolanti/CSDAssistant/pkg/logger_i"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
	limited    bool
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

var PageHandler = Wrap(handlers.PageHandler)
var HealthHandler = Wrap(handlers.HealthHandler)
var HistoryHandler = Wrap(handlers.HistoryHandler)
var HeaderImageHandler = Wrap(handlers.HeaderImageHandler)
var StylesHandler = Wrap(handlers.StylesHandler)
var StaticHandler = Wrap(handlers.StaticHandler().ServeHTTP)

// turn routes cost model calls, they are rate limited per ip
var ChatHandler = WrapTurn(handlers.ChatHandler)
var VoiceHandler = WrapTurn(handlers.VoiceHandler)
var StartRecordingHandler = WrapTurn(handlers.StartRecordingHandler)
var CancelRecordingHandler = WrapTurn(handlers.CancelRecordingHandler)

func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return wrap(next, false)
}

func WrapTurn(next http.HandlerFunc) http.HandlerFunc {
	return wrap(next, true)
}

func wrap(next http.HandlerFunc, limited bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: 200} //metrics
		re := processRequest(requestResponseStruct{req: r, writer: rec, limited: limited})

		if re.badRequest.isBadRequest {
			handleBadRequest(re)
		} else {
			next(rec, re.req)
		}

		metrics.HttpRequestsTotal.WithLabelValues(utils.RoutePattern(r), strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

func processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re = injectTrace(re)
	if re.badRequest.isBadRequest {
		return re
	}
	re.logger.Debug("New request received", "method", re.req.Method, "path", re.req.URL.Path)
	re = injectSession(re)
	if re.limited {
		re = rateLimiter(re)
	}
	return re
}
