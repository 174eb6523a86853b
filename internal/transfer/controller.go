package transfer

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/lohnkonto/lohnkonto-client/internal/events"
	"github.com/lohnkonto/lohnkonto-client/internal/logging"
)

// Callbacks receive the outcome of a single Send. OnProgress may be called
// any number of times before exactly one of OnComplete or OnError. A
// transport whose context was cancelled may call nothing at all.
type Callbacks struct {
	OnProgress func(sent, total int64)
	OnComplete func(Response)
	OnError    func(error)
}

// Transport issues the upload request for one attempt. Send must not block
// for the duration of the transfer; results are delivered through cb.
type Transport interface {
	Send(ctx context.Context, file *File, cb Callbacks) error
}

// DownloadFunc hands a finished artifact to its destination and returns a
// description of where it went.
type DownloadFunc func(ctx context.Context, a *Artifact) (location string, err error)

// Reporter surfaces failure messages to the user.
type Reporter interface {
	ReportError(message string, err error)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(message string, err error)

func (f ReporterFunc) ReportError(message string, err error) { f(message, err) }

// Options configures a Controller. Transport is required.
type Options struct {
	Transport Transport
	Download  DownloadFunc
	Reporter  Reporter
	EventBus  *events.EventBus
	Logger    *logging.Logger
}

// Controller owns exactly one logical transfer at a time.
// All methods are safe for concurrent use.
type Controller struct {
	transport Transport
	download  DownloadFunc
	reporter  Reporter
	bus       *events.EventBus
	logger    *logging.Logger

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc // Aborts the in-flight request of the current attempt
	pending []events.TransferEvent
	kinds   []events.EventType
}

var errNoTransport = errors.New("no transport configured")

// NewController creates a controller in the idle phase.
func NewController(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Controller{
		transport: opts.Transport,
		download:  opts.Download,
		reporter:  opts.Reporter,
		bus:       opts.EventBus,
		logger:    logger,
		state:     State{Phase: PhaseIdle},
	}
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// AcceptFile starts a new attempt for f. It is ignored unless the controller
// is idle, and a nil or unnamed file is a no-op.
func (c *Controller) AcceptFile(f *File) {
	if f == nil || f.Name == "" {
		return
	}

	c.mu.Lock()
	if c.state.Phase != PhaseIdle {
		phase := c.state.Phase
		c.mu.Unlock()
		c.logger.Warn().Str("phase", phase.String()).Str("file", f.Name).Msg("file ignored, a transfer is already in progress")
		return
	}

	attemptID := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.state = State{
		Phase:          PhaseIdle,
		AttemptID:      attemptID,
		SourceFileName: f.Name,
		BytesTotal:     f.Size,
	}
	c.transitionLocked(PhaseUploading)
	transport := c.transport
	c.mu.Unlock()
	c.flush()

	c.logger.WithAttempt(attemptID).Info().Str("file", f.Name).Int64("size", f.Size).Msg("upload started")

	if transport == nil {
		c.fail(attemptID, &TransportError{Err: errNoTransport})
		return
	}

	cb := Callbacks{
		OnProgress: func(sent, total int64) { c.progress(attemptID, sent, total) },
		OnComplete: func(resp Response) { c.complete(attemptID, resp) },
		OnError:    func(err error) { c.fail(attemptID, &TransportError{Err: err}) },
	}
	if err := transport.Send(ctx, f, cb); err != nil {
		c.fail(attemptID, &TransportError{Err: err})
	}
}

// OnUploadProgress records upload progress for the current attempt.
func (c *Controller) OnUploadProgress(sent, total int64) {
	c.progress(c.currentAttempt(), sent, total)
}

// OnTransportComplete handles the final response of the current attempt.
func (c *Controller) OnTransportComplete(resp Response) {
	c.complete(c.currentAttempt(), resp)
}

// OnTransportError handles a connection-level failure of the current attempt.
func (c *Controller) OnTransportError(err error) {
	c.fail(c.currentAttempt(), &TransportError{Err: err})
}

// Download hands the held artifact to the download effect. It does not
// change the phase and is a no-op outside the complete phase.
func (c *Controller) Download(ctx context.Context) error {
	c.mu.Lock()
	st := c.state
	download := c.download
	c.mu.Unlock()

	if st.Phase != PhaseComplete || st.Result == nil || download == nil {
		return nil
	}

	log := c.logger.WithAttempt(st.AttemptID)
	location, err := download(ctx, st.Result)
	if err != nil {
		derr := &DownloadError{Err: err}
		log.Error().Err(err).Str("result", st.Result.Name).Msg("download failed")
		c.report(derr)
		return derr
	}

	log.Info().Str("result", st.Result.Name).Str("location", location).Msg("result saved")
	c.publish(events.EventTransferDownloaded, events.TransferEvent{
		AttemptID:      st.AttemptID,
		Phase:          st.Phase.String(),
		SourceFileName: st.SourceFileName,
		ResultName:     st.Result.Name,
		ResultSize:     st.Result.Size(),
		Location:       location,
	})
	return nil
}

// Reset returns to idle from any phase. An in-flight request is aborted and
// its late callbacks are ignored. A held artifact is released.
func (c *Controller) Reset() {
	c.mu.Lock()
	attemptID := c.state.AttemptID
	wasIdle := c.state.Phase == PhaseIdle
	c.resetLocked()
	c.mu.Unlock()
	c.flush()

	if !wasIdle {
		c.logger.WithAttempt(attemptID).Info().Msg("transfer reset")
	}
}

func (c *Controller) currentAttempt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.AttemptID
}

func (c *Controller) progress(attemptID string, sent, total int64) {
	c.mu.Lock()
	if !c.currentLocked(attemptID) || c.state.Phase != PhaseUploading {
		c.mu.Unlock()
		return
	}
	p, ok := percent(sent, total)
	if !ok {
		c.mu.Unlock()
		return
	}
	c.state.BytesSent = sent
	c.state.BytesTotal = total
	changed := p != c.state.ProgressPercent
	c.state.ProgressPercent = p
	if changed {
		c.queueLocked(events.EventTransferProgress, c.eventLocked())
	}
	c.mu.Unlock()
	c.flush()
}

func (c *Controller) complete(attemptID string, resp Response) {
	if resp.StatusCode != 200 {
		c.fail(attemptID, ParseServerError(resp.StatusCode, resp.StatusText, resp.Body))
		return
	}

	c.mu.Lock()
	if !c.currentLocked(attemptID) || c.state.Phase != PhaseUploading {
		c.mu.Unlock()
		c.logger.Debug().Str("attempt", attemptID).Msg("dropping response of superseded attempt")
		return
	}
	// The service does not report processing progress; the phase is
	// published for observers and left immediately.
	c.state.ProgressPercent = 0
	c.transitionLocked(PhaseProcessing)

	artifact, err := newArtifact(resp)
	if err != nil {
		c.mu.Unlock()
		c.flush()
		c.fail(attemptID, err)
		return
	}

	c.state.Result = artifact
	c.state.ProgressPercent = 100
	c.transitionLocked(PhaseComplete)
	c.queueLocked(events.EventTransferCompleted, c.eventLocked())
	c.releaseAttemptLocked()
	c.mu.Unlock()
	c.flush()

	c.logger.WithAttempt(attemptID).Info().
		Str("result", artifact.Name).
		Int64("bytes", artifact.Size()).
		Dur("processing_time", artifact.ProcessingTime).
		Str("people", artifact.PeopleCount).
		Msg("processing complete")
}

// fail reports err and returns to idle if attemptID is still current.
func (c *Controller) fail(attemptID string, err error) {
	c.mu.Lock()
	if !c.currentLocked(attemptID) || c.state.Phase == PhaseIdle || c.state.Phase == PhaseComplete {
		c.mu.Unlock()
		c.logger.Debug().Str("attempt", attemptID).Err(err).Msg("dropping failure of superseded attempt")
		return
	}
	ev := c.eventLocked()
	ev.Message = UserMessage(err)
	ev.Error = err
	c.queueLocked(events.EventTransferFailed, ev)
	c.resetLocked()
	c.mu.Unlock()
	c.flush()

	c.logger.WithAttempt(attemptID).Error().Err(err).Msg("transfer failed")
	c.report(err)
}

func (c *Controller) report(err error) {
	if c.reporter != nil {
		c.reporter.ReportError(UserMessage(err), err)
	}
}

// currentLocked reports whether attemptID names the live attempt.
func (c *Controller) currentLocked(attemptID string) bool {
	return attemptID != "" && attemptID == c.state.AttemptID
}

// releaseAttemptLocked cancels the attempt context, aborting the request
// if it is still running.
func (c *Controller) releaseAttemptLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) resetLocked() {
	c.releaseAttemptLocked()
	from := c.state.Phase
	prev := c.state
	c.state = State{Phase: PhaseIdle}
	if from != PhaseIdle {
		ev := events.TransferEvent{
			AttemptID:      prev.AttemptID,
			Phase:          PhaseIdle.String(),
			PreviousPhase:  from.String(),
			SourceFileName: prev.SourceFileName,
		}
		c.queueLocked(events.EventTransferStateChanged, ev)
	}
}

func (c *Controller) transitionLocked(to Phase) {
	from := c.state.Phase
	if !CanTransition(from, to) {
		c.logger.Error().Str("from", from.String()).Str("to", to.String()).Msg("illegal phase transition")
		return
	}
	c.state.Phase = to
	ev := c.eventLocked()
	ev.PreviousPhase = from.String()
	c.queueLocked(events.EventTransferStateChanged, ev)
}

func (c *Controller) eventLocked() events.TransferEvent {
	ev := events.TransferEvent{
		AttemptID:       c.state.AttemptID,
		Phase:           c.state.Phase.String(),
		SourceFileName:  c.state.SourceFileName,
		ProgressPercent: c.state.ProgressPercent,
		BytesSent:       c.state.BytesSent,
		BytesTotal:      c.state.BytesTotal,
	}
	if c.state.Result != nil {
		ev.ResultName = c.state.Result.Name
		ev.ResultSize = c.state.Result.Size()
	}
	return ev
}

// queueLocked buffers an event; flush publishes it after the lock is released.
func (c *Controller) queueLocked(kind events.EventType, ev events.TransferEvent) {
	if c.bus == nil {
		return
	}
	c.kinds = append(c.kinds, kind)
	c.pending = append(c.pending, ev)
}

func (c *Controller) flush() {
	if c.bus == nil {
		return
	}
	c.mu.Lock()
	kinds, pending := c.kinds, c.pending
	c.kinds, c.pending = nil, nil
	c.mu.Unlock()

	for i := range pending {
		c.bus.PublishTransfer(kinds[i], pending[i])
	}
}

func (c *Controller) publish(kind events.EventType, ev events.TransferEvent) {
	if c.bus != nil {
		c.bus.PublishTransfer(kind, ev)
	}
}
