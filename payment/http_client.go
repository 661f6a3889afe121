package payment

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"collegeevents/logger"
)

// LoggingTransport logs every gateway call. Bodies are not logged because
// they carry customer notes.
type LoggingTransport struct {
	Transport http.RoundTripper
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	transport := t.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	start := time.Now()
	resp, err := transport.RoundTrip(req)
	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Duration("latency", time.Since(start)),
	}
	if err != nil {
		logger.Log.Error("payment gateway request failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	logger.Log.Info("payment gateway request", append(fields, zap.Int("status", resp.StatusCode))...)
	return resp, nil
}

func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &LoggingTransport{Transport: http.DefaultTransport},
	}
}
