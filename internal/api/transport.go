// Package api talks to the document processing service: the multipart
// upload used by the transfer controller and the informational endpoints.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lohnkonto/lohnkonto-client/internal/constants"
	"github.com/lohnkonto/lohnkonto-client/internal/logging"
	"github.com/lohnkonto/lohnkonto-client/internal/transfer"
)

var errResultTooLarge = fmt.Errorf("result exceeds %d bytes", constants.MaxResultBytes)

// Transport uploads documents to the processing endpoint.
// It implements transfer.Transport.
type Transport struct {
	client           *nethttp.Client
	endpoint         string
	logger           *logging.Logger
	progressInterval time.Duration
}

// NewTransport creates a transport posting to baseURL + /api/process-document.
func NewTransport(baseURL string, client *nethttp.Client, logger *logging.Logger) *Transport {
	if client == nil {
		client = nethttp.DefaultClient
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Transport{
		client:           client,
		endpoint:         strings.TrimRight(baseURL, "/") + constants.ProcessDocumentPath,
		logger:           logger,
		progressInterval: constants.ProgressUpdateInterval,
	}
}

// Send opens the file and starts the upload in the background. Errors that
// occur before the request is issued are returned directly. Once ctx is
// cancelled no callback is invoked.
func (t *Transport) Send(ctx context.Context, file *transfer.File, cb transfer.Callbacks) error {
	if file == nil || file.Open == nil {
		return errors.New("no file to upload")
	}
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file.Name, err)
	}

	body, contentType, length, err := newMultipartBody(file, src)
	if err != nil {
		src.Close()
		return err
	}
	counter := newCountingReader(body, src, length, t.progressInterval, cb.OnProgress)

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPost, t.endpoint, counter)
	if err != nil {
		src.Close()
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.ContentLength = length
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", constants.ResultContentType+", application/json")

	go t.run(ctx, req, cb)
	return nil
}

func (t *Transport) run(ctx context.Context, req *nethttp.Request, cb transfer.Callbacks) {
	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			t.logger.Debug().Err(err).Msg("upload aborted")
			return
		}
		if cb.OnError != nil {
			cb.OnError(err)
		}
		return
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(io.LimitReader(resp.Body, constants.MaxResultBytes+1))
	if readErr == nil && int64(len(data)) > constants.MaxResultBytes {
		readErr = errResultTooLarge
	}
	if ctx.Err() != nil {
		t.logger.Debug().Msg("upload aborted after response")
		return
	}

	t.logger.Debug().
		Int("status", resp.StatusCode).
		Int("bytes", len(data)).
		Dur("elapsed", time.Since(start)).
		Msg("upload response received")

	if cb.OnComplete != nil {
		cb.OnComplete(transfer.Response{
			StatusCode: resp.StatusCode,
			StatusText: statusText(resp),
			Header:     resp.Header,
			Body:       data,
			BodyErr:    readErr,
		})
	}
}

// statusText returns the reason phrase, which HTTP/2 responses do not carry.
func statusText(resp *nethttp.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = nethttp.StatusText(resp.StatusCode)
	}
	return text
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// newMultipartBody streams the form without buffering the document. length
// is -1 when the file size is unknown.
func newMultipartBody(file *transfer.File, src io.Reader) (body io.Reader, contentType string, length int64, err error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if file.Password != "" {
		if err := mw.WriteField(constants.PasswordFieldName, file.Password); err != nil {
			return nil, "", 0, fmt.Errorf("failed to write password field: %w", err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		constants.UploadFieldName, quoteEscaper.Replace(file.Name)))
	h.Set("Content-Type", constants.SourceContentType)
	if _, err := mw.CreatePart(h); err != nil {
		return nil, "", 0, fmt.Errorf("failed to write file part: %w", err)
	}
	head := append([]byte(nil), buf.Bytes()...)

	buf.Reset()
	if err := mw.Close(); err != nil {
		return nil, "", 0, fmt.Errorf("failed to close form: %w", err)
	}
	tail := append([]byte(nil), buf.Bytes()...)

	length = -1
	if file.Size >= 0 {
		length = int64(len(head)) + file.Size + int64(len(tail))
	}
	body = io.MultiReader(bytes.NewReader(head), src, bytes.NewReader(tail))
	return body, mw.FormDataContentType(), length, nil
}

// countingReader reports bytes consumed by the HTTP client. Updates are
// throttled to one per percent or interval, and the last byte is always
// reported.
type countingReader struct {
	r        io.Reader
	closer   io.Closer
	total    int64
	interval time.Duration
	report   func(sent, total int64)

	mu          sync.Mutex
	sent        int64
	lastPercent int64
	lastReport  time.Time
	closeOnce   sync.Once
}

func newCountingReader(r io.Reader, closer io.Closer, total int64, interval time.Duration, report func(sent, total int64)) *countingReader {
	return &countingReader{
		r:           r,
		closer:      closer,
		total:       total,
		interval:    interval,
		report:      report,
		lastPercent: -1,
	}
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 && c.report != nil {
		if sent, ok := c.advance(int64(n), err == io.EOF); ok {
			c.report(sent, c.total)
		}
	}
	return n, err
}

func (c *countingReader) advance(n int64, eof bool) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sent += n
	now := time.Now()
	final := eof || (c.total > 0 && c.sent >= c.total)

	var pct int64 = -1
	if c.total > 0 {
		pct = c.sent * 100 / c.total
	}
	if !final && pct == c.lastPercent && now.Sub(c.lastReport) < c.interval {
		return 0, false
	}
	c.lastPercent = pct
	c.lastReport = now
	return c.sent, true
}

func (c *countingReader) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.closer != nil {
			err = c.closer.Close()
		}
	})
	return err
}
