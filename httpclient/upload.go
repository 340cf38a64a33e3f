package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"time"
)

// UploadRequest describes a multipart file upload.
type UploadRequest struct {
	Path string
	// Field is the multipart form field name for the file (default "file").
	Field    string
	FileName string
	File     io.Reader
	// Fields are additional plain form fields sent alongside the file.
	Fields  map[string]string
	Headers map[string]string
	Timeout time.Duration
	// OnProgress, when set, receives byte-level progress events as the
	// transport consumes the request body.
	OnProgress func(Progress)
}

// Progress reports upload advancement. Speed is computed from the byte delta
// since the previous event; EstimatedTime is the remaining bytes divided by
// that speed.
type Progress struct {
	Loaded        int64
	Total         int64
	Percentage    float64
	Speed         float64
	EstimatedTime time.Duration
}

// progressReader counts bytes as the transport reads the request body and
// emits progress events derived from consecutive reads.
type progressReader struct {
	reader     io.Reader
	total      int64
	loaded     int64
	lastAt     time.Time
	lastLoaded int64
	lastSpeed  float64
	onProgress func(Progress)
}

func newProgressReader(r io.Reader, total int64, onProgress func(Progress)) *progressReader {
	return &progressReader{
		reader:     r,
		total:      total,
		lastAt:     time.Now(),
		onProgress: onProgress,
	}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.reader.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		if p.onProgress != nil {
			p.onProgress(p.snapshot())
		}
	}
	return n, err
}

func (p *progressReader) snapshot() Progress {
	now := time.Now()
	elapsed := now.Sub(p.lastAt).Seconds()

	speed := p.lastSpeed
	if elapsed > 0 {
		speed = float64(p.loaded-p.lastLoaded) / elapsed
		p.lastAt = now
		p.lastLoaded = p.loaded
		p.lastSpeed = speed
	}

	progress := Progress{
		Loaded: p.loaded,
		Total:  p.total,
		Speed:  speed,
	}
	if p.total > 0 {
		progress.Percentage = float64(p.loaded) / float64(p.total) * 100
	}
	if speed > 0 && p.total > p.loaded {
		progress.EstimatedTime = time.Duration(float64(p.total-p.loaded) / speed * float64(time.Second))
	}
	return progress
}

// UploadFile sends req.File as a multipart POST. The body is buffered so
// retries resend the identical payload; progress restarts per attempt.
func (c *client) UploadFile(ctx context.Context, req *UploadRequest) (*Response, error) {
	if req == nil {
		return nil, NewValidationError("upload request must not be nil", "")
	}
	if req.File == nil {
		return nil, NewValidationError("upload file must not be nil", "file")
	}
	target, verr := c.resolveURL(req.Path, nil)
	if verr != nil {
		return nil, verr
	}

	field := req.Field
	if field == "" {
		field = "file"
	}
	fileName := req.FileName
	if fileName == "" {
		fileName = "upload"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range req.Fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, NewValidationError(fmt.Sprintf("writing form field %q", k), k)
		}
	}
	part, err := writer.CreateFormFile(field, fileName)
	if err != nil {
		return nil, NewValidationError("creating multipart file part", field)
	}
	if _, err := io.Copy(part, req.File); err != nil {
		return nil, NewNetworkError("reading upload payload", err)
	}
	if err := writer.Close(); err != nil {
		return nil, NewNetworkError("finalizing multipart body", err)
	}

	payload := buf.Bytes()
	total := int64(len(payload))

	headers := make(map[string]string, len(req.Headers)+1)
	for k, v := range req.Headers {
		headers[k] = v
	}
	headers["Content-Type"] = writer.FormDataContentType()

	bodyFactory := func() (io.Reader, int64) {
		return newProgressReader(bytes.NewReader(payload), total, req.OnProgress), total
	}

	resp, clientErr := c.execute(ctx, nethttp.MethodPost, target, headers, nil, bodyFactory, req.Timeout, nil)
	if clientErr != nil {
		final := c.interceptors.applyError(ctx, clientErr)
		c.triggerUnauthorized(ctx, final)
		return nil, final
	}
	return resp, nil
}
