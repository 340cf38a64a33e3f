package httpclient

import (
	nethttp "net/http"
)

const defaultMaxPayloadLogBytes = 1024

// logRequest emits one info event per outbound request and, when payload
// logging is enabled, a debug event carrying headers and a truncated body
// preview.
func (c *client) logRequest(req *nethttp.Request, body []byte, traceID string) {
	if c.logger == nil {
		return
	}

	event := c.logger.Info().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", traceID)
	if n := len(req.Header); n > 0 {
		event = event.Int("header_count", n)
	}
	if len(body) > 0 {
		event = event.Int("body_size", len(body))
	}
	event.Msg("REST client request")

	if !c.config.LogPayloads {
		return
	}

	preview, truncated := truncatePayload(body, c.config.MaxPayloadLogBytes)
	c.logger.Debug().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", traceID).
		Interface("headers", req.Header).
		Int("body_size", len(body)).
		Str("body_truncated", boolString(truncated)).
		Bytes("body_preview", preview).
		Msg("REST client request")
}

// logResponse emits one info event per completed response plus an optional
// debug payload event, mirroring logRequest.
func (c *client) logResponse(resp *Response, traceID string) {
	if c.logger == nil {
		return
	}

	event := c.logger.Info().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Dur("elapsed", resp.Stats.ElapsedTime).
		Int64("call_count", resp.Stats.Attempts).
		Str("request_id", traceID)
	if len(resp.Body) > 0 {
		event = event.Int("body_size", len(resp.Body))
	}
	event.Msg("REST client response")

	if !c.config.LogPayloads {
		return
	}

	preview, truncated := truncatePayload(resp.Body, c.config.MaxPayloadLogBytes)
	c.logger.Debug().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Str("request_id", traceID).
		Interface("headers", resp.Headers).
		Int("body_size", len(resp.Body)).
		Str("body_truncated", boolString(truncated)).
		Bytes("body_preview", preview).
		Msg("REST client response")
}

func truncatePayload(body []byte, maxBytes int) (preview []byte, truncated bool) {
	if maxBytes <= 0 {
		maxBytes = defaultMaxPayloadLogBytes
	}
	if len(body) > maxBytes {
		return body[:maxBytes], true
	}
	return body, false
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
