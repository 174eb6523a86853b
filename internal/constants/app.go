package constants

import (
	"time"
)

// Processing service contract
const (
	// DefaultAPIBaseURL - backend base URL used when nothing is configured
	DefaultAPIBaseURL = "http://localhost:8000"

	// ProcessDocumentPath - multipart upload endpoint of the processing service
	ProcessDocumentPath = "/api/process-document"

	// HealthPath - service health endpoint
	HealthPath = "/health"

	// InfoPath - service banner endpoint
	InfoPath = "/"

	// UploadFieldName - multipart field carrying the PDF bytes
	UploadFieldName = "file"

	// PasswordFieldName - optional multipart field for encrypted PDFs
	PasswordFieldName = "password"

	// DefaultResultFileName - suggested name when Content-Disposition carries none
	DefaultResultFileName = "processed_data.xlsx"

	// ResultContentType - media type of the generated spreadsheet
	ResultContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// SourceContentType - media type sent for the uploaded document part
	SourceContentType = "application/pdf"

	// ProcessingTimeHeader / PeopleCountHeader - optional result metadata headers
	ProcessingTimeHeader = "X-Processing-Time"
	PeopleCountHeader    = "X-People-Count"
)

// Disk space safety margin
const (
	// DiskSpaceBufferPercent - extra free space required before writing a result (15%)
	DiskSpaceBufferPercent = 0.15
)

// Event System
const (
	// EventBusDefaultBuffer - default buffer size for event channels (1000)
	// Large enough that a burst of progress events never blocks the controller
	EventBusDefaultBuffer = 1000

	// EventBusMaxBuffer - maximum buffer size for high-throughput scenarios (5000)
	EventBusMaxBuffer = 5000
)

// UI Updates
const (
	// ProgressUpdateInterval - minimum interval between upload progress callbacks (250ms)
	// A callback is also emitted whenever the integer percentage changes.
	ProgressUpdateInterval = 250 * time.Millisecond

	// ProgressRefreshRate - redraw rate of terminal progress bars
	ProgressRefreshRate = 150 * time.Millisecond
)

// Monitoring
const (
	// HealthCheckTimeout - upper bound for a single health/info probe including retries
	HealthCheckTimeout = 20 * time.Second

	// HealthCheckRetryMax - retries for idempotent GET probes
	HealthCheckRetryMax = 3

	// HealthCheckInterval - how often the GUI refreshes the service status line
	HealthCheckInterval = 60 * time.Second
)

// HTTP Client Timeouts
const (
	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (60 seconds)
	HTTPTLSHandshakeTimeout = 60 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (30 seconds)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second

	// HTTPProxyClientTimeout - overall timeout of the plain proxy-configured client.
	// The upload client clears it; processing a large PDF can take minutes.
	HTTPProxyClientTimeout = 300 * time.Second
)

// Log files
const (
	// LogFileMaxSizeMB - rotate the log file after this many megabytes
	LogFileMaxSizeMB = 10

	// LogFileMaxBackups - rotated files to keep
	LogFileMaxBackups = 5

	// LogFileMaxAgeDays - rotated files older than this are removed
	LogFileMaxAgeDays = 30
)

// Result limits
const (
	// MaxResultBytes bounds the spreadsheet held in memory.
	MaxResultBytes = 256 * 1024 * 1024
)
