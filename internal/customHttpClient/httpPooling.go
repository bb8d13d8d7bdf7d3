package customHttpClient

import (
	"net/http"

	"github.com/akolanti/CSDAssistant/internal/config"
)

var customTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

// GetPooledClient shares one transport between the gemini generation and embedding clients.
// Deadlines come from the request context, not from the client.
func GetPooledClient() *http.Client {
	return &http.Client{Transport: customTransport}
}
