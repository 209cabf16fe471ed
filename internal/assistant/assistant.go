package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"med-assistant/internal/chunker"
	"med-assistant/internal/conversation"
	"med-assistant/internal/document"
	"med-assistant/internal/inference"
	"med-assistant/internal/llm"
	"med-assistant/internal/metrics"
	"med-assistant/internal/queue"
)

var (
	// ErrEmptyMessage is returned for blank submissions. Nothing is appended.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrExtraction wraps PDF extraction failures. Nothing is appended.
	ErrExtraction = errors.New("could not extract text from document")
	// ErrUnsupportedType is returned for uploads that are neither PDF nor PNG/JPEG.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrCaptionUnavailable is returned for image uploads when no captioner is configured.
	ErrCaptionUnavailable = errors.New("image description is not configured")
)

const appendTimeout = 5 * time.Second

// Kind labels what produced a turn.
type Kind string

const (
	KindMessage Kind = "message"
	KindReport  Kind = "report"
	KindImage   Kind = "image"
)

// Outcome summarises the remote calls behind a turn.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeDegraded Outcome = "degraded"
	OutcomeFailed   Outcome = "failed"
)

// Transcript is where completed turns are appended. session.Transcript implements it.
type Transcript interface {
	Append(ctx context.Context, turns ...conversation.Turn) error
	ID() uuid.UUID
}

// Upload is a file submitted for interpretation.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Reply is the assistant side of a completed turn.
type Reply struct {
	Text    string
	Preview string
	Outcome Outcome
}

// Options configures optional collaborators. Nil extractors disable their step.
type Options struct {
	Entities      inference.EntityExtractor
	Captioner     inference.Captioner
	Queue         queue.Queue
	Metrics       *metrics.Collector
	Log           *slog.Logger
	Chunking      chunker.Options
	PreviewLength int
	ExtractPDF    func([]byte) (string, error)
}

// Orchestrator runs one turn at a time: remote calls in sequence, then a single append.
type Orchestrator struct {
	chat       llm.Client
	entities   inference.EntityExtractor
	captioner  inference.Captioner
	queue      queue.Queue
	metrics    *metrics.Collector
	log        *slog.Logger
	chunking   chunker.Options
	previewLen int
	extractPDF func([]byte) (string, error)
}

func New(chat llm.Client, opts Options) *Orchestrator {
	o := &Orchestrator{
		chat:       chat,
		entities:   opts.Entities,
		captioner:  opts.Captioner,
		queue:      opts.Queue,
		metrics:    opts.Metrics,
		log:        opts.Log,
		chunking:   opts.Chunking,
		previewLen: opts.PreviewLength,
		extractPDF: opts.ExtractPDF,
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	if o.extractPDF == nil {
		o.extractPDF = document.ExtractPDF
	}
	return o
}

// Submit answers a typed message and appends the (user, assistant) pair.
// Remote failures become warning text in the reply; only a failed append is returned as an error.
func (o *Orchestrator) Submit(ctx context.Context, t Transcript, text string, flags Flags) (Reply, error) {
	if strings.TrimSpace(text) == "" {
		return Reply{}, ErrEmptyMessage
	}
	start := time.Now()

	var c composer
	if o.entities != nil {
		entities, err := o.extract(ctx, text)
		if err != nil {
			o.log.Warn("entity extraction failed", "session_id", t.ID(), "kind", inference.KindOf(err).String(), "err", err)
			c.fail(err)
		} else {
			c.ok(inference.FormatEntities(entities))
		}
	}

	answer, err := o.complete(ctx, BuildSystemPrompt(flags), text)
	if err != nil {
		o.log.Warn("chat completion failed", "session_id", t.ID(), "kind", inference.KindOf(err).String(), "err", err)
		c.fail(err)
	} else {
		c.ok(answer)
	}

	return o.finish(ctx, t, KindMessage, start, text, &c, "")
}

// Interpret explains an uploaded PDF report or medical image.
func (o *Orchestrator) Interpret(ctx context.Context, t Transcript, up Upload) (Reply, error) {
	switch DetectKind(up.ContentType) {
	case KindReport:
		return o.interpretReport(ctx, t, up)
	case KindImage:
		return o.interpretImage(ctx, t, up)
	default:
		return Reply{}, fmt.Errorf("%w: %s", ErrUnsupportedType, up.ContentType)
	}
}

// DetectKind maps an upload content type to the turn kind that handles it.
func DetectKind(contentType string) Kind {
	switch strings.ToLower(contentType) {
	case "application/pdf":
		return KindReport
	case "image/png", "image/jpeg", "image/jpg":
		return KindImage
	default:
		return ""
	}
}

func (o *Orchestrator) interpretReport(ctx context.Context, t Transcript, up Upload) (Reply, error) {
	start := time.Now()
	text, err := o.extractPDF(up.Data)
	if err != nil {
		o.metrics.ObserveTurn(string(KindReport), "rejected")
		return Reply{}, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	windows := chunker.Split(text, o.chunking)
	var c composer
	for _, w := range windows {
		prompt := "Explain this medical report:\n\n" + w.Text
		if len(windows) > 1 {
			prompt = fmt.Sprintf("Explain part %d of %d of this medical report:\n\n%s", w.Index+1, len(windows), w.Text)
		}
		answer, err := o.complete(ctx, reportPrompt, prompt)
		if err != nil {
			o.log.Warn("report interpretation failed", "session_id", t.ID(), "window", w.Index, "kind", inference.KindOf(err).String(), "err", err)
			c.fail(err)
			break
		}
		c.ok(answer)
	}

	return o.finish(ctx, t, KindReport, start, "📄 Uploaded "+up.Name, &c, document.Preview(text, o.previewLen))
}

func (o *Orchestrator) interpretImage(ctx context.Context, t Transcript, up Upload) (Reply, error) {
	if o.captioner == nil {
		return Reply{}, ErrCaptionUnavailable
	}
	start := time.Now()

	var c composer
	caption, err := o.caption(ctx, up.Data, up.ContentType)
	if err != nil {
		o.log.Warn("image caption failed", "session_id", t.ID(), "kind", inference.KindOf(err).String(), "err", err)
		c.fail(err)
	} else {
		c.add("🖼️ Image description: " + caption)
		explanation, err := o.complete(ctx, imagePrompt, "Image description: "+caption)
		if err != nil {
			o.log.Warn("image explanation failed", "session_id", t.ID(), "kind", inference.KindOf(err).String(), "err", err)
			c.fail(err)
		} else {
			c.ok(explanation)
		}
	}

	return o.finish(ctx, t, KindImage, start, "🖼️ Uploaded "+up.Name, &c, "")
}

func (o *Orchestrator) finish(ctx context.Context, t Transcript, kind Kind, start time.Time, userText string, c *composer, preview string) (Reply, error) {
	reply := Reply{Text: c.text(), Preview: preview, Outcome: c.outcome()}
	turns := []conversation.Turn{
		conversation.NewTurn(conversation.User, userText),
		conversation.NewTurn(conversation.Assistant, reply.Text),
	}
	// The request deadline may already have passed when a remote call timed out.
	appendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), appendTimeout)
	defer cancel()
	if err := t.Append(appendCtx, turns...); err != nil {
		return Reply{}, fmt.Errorf("append turns: %w", err)
	}

	o.metrics.ObserveTurn(string(kind), string(reply.Outcome))
	o.publish(ctx, queue.TurnEvent{
		SessionID:  t.ID(),
		Kind:       string(kind),
		Outcome:    string(reply.Outcome),
		DurationMS: time.Since(start).Milliseconds(),
		At:         time.Now().UTC(),
	})
	return reply, nil
}

// publish sends the audit event. Failures are logged; the turn is already stored.
func (o *Orchestrator) publish(ctx context.Context, ev queue.TurnEvent) {
	if o.queue == nil {
		return
	}
	task, err := queue.NewTurnTask(ev)
	if err != nil {
		o.log.Error("failed to build turn event", "err", err)
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := queue.EnqueueWithRetry(pubCtx, o.queue, task, 3, 100*time.Millisecond); err != nil {
		o.log.Warn("failed to publish turn event", "session_id", ev.SessionID, "err", err)
	}
}

func (o *Orchestrator) complete(ctx context.Context, system, user string) (string, error) {
	start := time.Now()
	out, err := o.chat.Complete(ctx, system, user)
	o.metrics.ObserveRemote(inference.CapabilityChat, outcomeLabel(err), time.Since(start))
	return out, err
}

func (o *Orchestrator) extract(ctx context.Context, text string) ([]inference.Entity, error) {
	start := time.Now()
	out, err := o.entities.Extract(ctx, text)
	o.metrics.ObserveRemote(inference.CapabilityEntities, outcomeLabel(err), time.Since(start))
	return out, err
}

func (o *Orchestrator) caption(ctx context.Context, image []byte, contentType string) (string, error) {
	start := time.Now()
	out, err := o.captioner.Caption(ctx, image, contentType)
	o.metrics.ObserveRemote(inference.CapabilityCaption, outcomeLabel(err), time.Since(start))
	return out, err
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return inference.KindOf(err).String()
}
