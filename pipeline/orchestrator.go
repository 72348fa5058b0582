package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/dgnsrekt/voxlate/internal/cache"
	"github.com/dgnsrekt/voxlate/internal/lang"
)

// Event is emitted on every pipeline state transition.
type Event struct {
	OperationID string
	State       State
	Progress    float64
	Err         error
}

// Deps bundles the orchestrator's collaborators. Everything is injected;
// the orchestrator owns no global state.
type Deps struct {
	Translator  *Translator
	Synthesizer *Synthesizer
	Recognizer  Recognizer
	Player      Player
	Cache       *cache.Manager
}

// Orchestrator sequences recognition, translation, synthesis and playback as
// a linear state machine. It is the only writer of pipeline state; the other
// components report through return values alone.
type Orchestrator struct {
	deps   Deps
	config Config
	logger *log.Logger

	mu       sync.Mutex
	machine  *stateMachine
	progress float64
	lastErr  error
	opID     string
	cancel   context.CancelFunc
	stopped  bool

	events chan Event
}

// NewOrchestrator creates a pipeline orchestrator.
func NewOrchestrator(deps Deps, config Config, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		deps:    deps,
		config:  config,
		logger:  logger.With("component", "orchestrator"),
		machine: newStateMachine(),
		events:  make(chan Event, config.EventBuffer),
	}
}

// Events returns the state/progress stream. The channel is bounded; when a
// subscriber falls behind, the oldest events are dropped.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// State returns the current state and progress.
func (o *Orchestrator) State() (State, float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.machine.state(), o.progress
}

// LastError returns the error carried by the most recent Error state.
func (o *Orchestrator) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// CacheStats exposes cache counters for diagnostics only.
func (o *Orchestrator) CacheStats() cache.Stats {
	return o.deps.Cache.Stats()
}

// ProcessTranslation listens for speech in the source language, then runs
// the recognized transcript through translation, synthesis and playback.
// It fails fast with a busy error while another operation is running.
func (o *Orchestrator) ProcessTranslation(ctx context.Context, sourceLang, targetLang string) (*Result, error) {
	opCtx, opID, err := o.begin(ctx, StateListening)
	if err != nil {
		return nil, err
	}
	defer o.finish()

	transcripts, err := o.deps.Recognizer.Start(opCtx, lang.Locale(sourceLang), o.config.SilenceThreshold)
	if err != nil {
		return nil, o.fail(opID, NewError(KindUnknown, "recognizer", err))
	}

	transcript, err := o.awaitFinalTranscript(opCtx, opID, transcripts)
	if err != nil {
		return nil, o.fail(opID, err)
	}

	return o.run(opCtx, opID, transcript, sourceLang, targetLang)
}

// ProcessTextTranslation runs text straight through translation, synthesis
// and playback, skipping recognition.
func (o *Orchestrator) ProcessTextTranslation(ctx context.Context, text, sourceLang, targetLang string) (*Result, error) {
	opCtx, opID, err := o.begin(ctx, StateTranslating)
	if err != nil {
		return nil, err
	}
	defer o.finish()

	return o.run(opCtx, opID, text, sourceLang, targetLang)
}

// Stop cancels in-flight recognition and playback and resets the pipeline to
// Idle. It is idempotent and safe from any state; completed network calls
// after a stop have their results discarded.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	cancel := o.cancel
	wasIdle := o.machine.state() == StateIdle
	o.stopped = true
	o.machine.transition(StateIdle)
	o.progress = 0
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if o.deps.Recognizer != nil {
		o.deps.Recognizer.Stop()
	}
	if o.deps.Player != nil {
		o.deps.Player.Stop()
	}

	if !wasIdle {
		o.emit(Event{State: StateIdle, Progress: 0})
	}
}

// begin claims the pipeline for a new operation, transitioning out of Idle
// atomically so concurrent calls fail fast instead of queuing. The operation
// context descends from the caller's, so caller cancellation propagates to
// every stage alongside Stop.
func (o *Orchestrator) begin(ctx context.Context, first State) (context.Context, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", NewError(KindCanceled, "orchestrator", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.machine.state() != StateIdle {
		return nil, "", NewError(KindBusy, "orchestrator", ErrAlreadyRunning)
	}

	opCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.stopped = false
	o.opID = uuid.NewString()
	o.lastErr = nil

	o.machine.transition(first)
	o.progress = first.Progress()
	o.emitLocked(Event{OperationID: o.opID, State: first, Progress: o.progress})

	return opCtx, o.opID, nil
}

// run is the shared tail of both entry points: translate, synthesize, play.
func (o *Orchestrator) run(ctx context.Context, opID, text, sourceLang, targetLang string) (*Result, error) {
	started := time.Now()

	o.advance(opID, StateTranslating)
	translation, audio, err := o.deps.Translator.TranslateWithAudio(ctx, text, sourceLang, targetLang, o.config.Voice)
	if err != nil {
		return nil, o.fail(opID, err)
	}
	if o.discarded() {
		return nil, NewError(KindCanceled, "orchestrator", context.Canceled)
	}

	o.advance(opID, StateSynthesizing)
	if audio == nil {
		audio, err = o.deps.Synthesizer.Synthesize(ctx, translation.TranslatedText, targetLang, o.config.Voice)
		if err != nil && KindOf(err) == KindCanceled {
			return nil, o.fail(opID, err)
		}
		if err != nil {
			// Text-only: audio is best effort, the pipeline continues.
			o.logger.Warn("audio unavailable, continuing text only", "err", err)
			audio = nil
		}
	}
	if o.discarded() {
		return nil, NewError(KindCanceled, "orchestrator", context.Canceled)
	}

	played := false
	if len(audio) > 0 {
		o.advance(opID, StatePlaying)
		played = o.deps.Player.Play(ctx, audio)
		if !played {
			o.logger.Warn("playback unavailable, translation text was still shown")
		}
	}
	if o.discarded() {
		return nil, NewError(KindCanceled, "orchestrator", context.Canceled)
	}

	o.advance(opID, StateCompleted)

	return &Result{
		OperationID:    opID,
		Transcript:     text,
		Translation:    translation,
		AudioData:      audio,
		AudioPlayed:    played,
		ProcessingTime: time.Since(started),
	}, nil
}

// awaitFinalTranscript consumes the recognizer stream until a final
// transcript arrives.
func (o *Orchestrator) awaitFinalTranscript(ctx context.Context, opID string, transcripts <-chan Transcript) (string, error) {
	o.advance(opID, StateRecognizing)

	for {
		select {
		case <-ctx.Done():
			return "", NewError(KindCanceled, "recognizer", ctx.Err())
		case transcript, ok := <-transcripts:
			if !ok {
				return "", NewError(KindEmptyResult, "recognizer", nil)
			}
			if transcript.IsFinal {
				return transcript.Text, nil
			}
		}
	}
}

// advance performs a legal forward transition and emits the event. Illegal
// moves are skipped so a stop during the operation cannot corrupt the
// machine.
func (o *Orchestrator) advance(opID string, to State) {
	o.mu.Lock()
	defer o.mu.Unlock()

	// A stopped operation stays at Idle; advancing again would emit a
	// stray event after Stop's reset.
	if o.stopped {
		return
	}
	if !o.machine.transition(to) {
		return
	}
	if p := to.Progress(); p > o.progress {
		o.progress = p
	}
	o.emitLocked(Event{OperationID: opID, State: to, Progress: o.progress})
}

// fail records the classified error, emits the Error state and returns the
// error for the caller.
func (o *Orchestrator) fail(opID string, err error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	// A stop-induced failure is the caller's doing: Stop already reset to
	// Idle and the result is discarded, so no Error state is shown.
	if o.stopped {
		return err
	}

	o.lastErr = err
	if o.machine.transition(StateError) {
		o.emitLocked(Event{OperationID: opID, State: StateError, Progress: o.progress, Err: err})
	}
	o.logger.Error("operation failed", "op", opID, "err", err)
	return err
}

// finish releases the pipeline for the next operation.
func (o *Orchestrator) finish() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.machine.transition(StateIdle)
	o.progress = 0
}

// discarded reports whether Stop ran during the operation; late results are
// thrown away rather than surfaced.
func (o *Orchestrator) discarded() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stopped
}

func (o *Orchestrator) emit(ev Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.emitLocked(ev)
}

// emitLocked publishes an event, dropping the oldest buffered one when the
// subscriber has fallen behind. Caller holds o.mu.
func (o *Orchestrator) emitLocked(ev Event) {
	select {
	case o.events <- ev:
		return
	default:
	}
	select {
	case <-o.events:
	default:
	}
	select {
	case o.events <- ev:
	default:
	}
}
