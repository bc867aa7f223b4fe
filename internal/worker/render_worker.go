package worker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"imprimecheque/internal/amqp"
	"imprimecheque/internal/compositor"
	"imprimecheque/internal/core"
	"imprimecheque/internal/log"
	"imprimecheque/internal/register"
	"imprimecheque/internal/services"
)

// Renderer renders an issued check by reference.
type Renderer interface {
	RenderCheck(ctx context.Context, reference string) (services.Document, core.CheckRecord, core.Bank, error)
	OutputFormat() compositor.Format
}

// RenderWorker writes the document of every issued check to the output
// directory and records it in the register.
type RenderWorker struct {
	renderer Renderer
	register register.Appender
	outDir   string
	logger   *log.Logger
	now      func() time.Time
}

func NewRenderWorker(renderer Renderer, reg register.Appender, outDir string, logger *log.Logger) *RenderWorker {
	if logger == nil {
		logger = log.Default(log.ComponentWorker)
	}
	return &RenderWorker{
		renderer: renderer,
		register: reg,
		outDir:   outDir,
		logger:   logger.WithComponent(log.ComponentWorker),
		now:      time.Now,
	}
}

// HandleCheckIssued renders one check. A returned error makes the message
// be redelivered, so checks that can never render (unknown reference, no
// template, incomplete layout) are logged and acknowledged instead.
func (w *RenderWorker) HandleCheckIssued(ctx context.Context, msg *amqp.CheckIssuedMessage) error {
	w.logger.InfoContext(ctx, "Processing check issued message",
		log.FieldReference, msg.Reference,
		log.FieldCheckID, msg.CheckID,
		"message_id", msg.ID)

	err := w.Render(ctx, msg.Reference)
	if err != nil && isPermanent(err) {
		w.logger.ErrorContext(ctx, "Check cannot be rendered, dropping message",
			log.FieldReference, msg.Reference, log.FieldError, err)
		return nil
	}
	return err
}

// Render writes <outDir>/<reference>.<ext> and appends the register row.
// Already rendered checks are skipped before rendering, so redelivered
// messages cost a stat and add no rows.
func (w *RenderWorker) Render(ctx context.Context, reference string) error {
	ref, err := core.CanonicalReference(reference)
	if err != nil {
		return fmt.Errorf("render %s: %w", reference, err)
	}
	path := filepath.Join(w.outDir, ref+"."+w.renderer.OutputFormat().Ext())
	if _, err := os.Stat(path); err == nil {
		w.logger.InfoContext(ctx, "Document already rendered, skipping", log.FieldReference, ref, log.FieldOutput, path)
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	doc, check, bank, err := w.renderer.RenderCheck(ctx, ref)
	if err != nil {
		return fmt.Errorf("render %s: %w", ref, err)
	}

	if err := writeFileAtomic(path, doc.Data); err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "Document rendered",
		log.FieldReference, doc.Reference,
		log.FieldOutput, path,
		"bytes", len(doc.Data))

	if w.register == nil {
		return nil
	}
	entry := register.Entry{
		Reference:     check.Reference,
		IssueDate:     check.Fields.Date.FormatFR(),
		BankCode:      bank.Code,
		Payee:         check.Fields.Payee,
		Amount:        check.Fields.Amount.Format(),
		AmountInWords: doc.AmountInWords,
		Document:      doc.FileName(),
		RenderedAt:    w.now(),
	}
	rng, err := w.register.Append(ctx, entry)
	if err != nil {
		// The document exists; a retry would skip it, so only log.
		w.logger.ErrorContext(ctx, "Failed to append check to register",
			log.FieldReference, check.Reference, log.FieldError, err, log.FieldOperation, log.OpAppend)
		return nil
	}
	w.logger.DebugContext(ctx, "Check registered", log.FieldReference, check.Reference, "range", rng)
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".render-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close document: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move document into place: %w", err)
	}
	return nil
}

func isPermanent(err error) bool {
	for _, target := range []error{core.ErrNotFound, core.ErrFormat, core.ErrMissingTemplate, core.ErrMissingLayout, core.ErrInvalidAmount} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
