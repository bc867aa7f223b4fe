package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"imprimecheque/internal/allocator"
	"imprimecheque/internal/amqp"
	"imprimecheque/internal/cache"
	"imprimecheque/internal/compositor"
	"imprimecheque/internal/core"
	"imprimecheque/internal/layout"
	"imprimecheque/internal/log"
	"imprimecheque/internal/metrics"
	"imprimecheque/internal/spell"
	"imprimecheque/internal/storage"
)

// Publisher announces issued checks to the render worker.
type Publisher interface {
	PublishCheckIssued(ctx context.Context, msg *amqp.CheckIssuedMessage) error
	Close() error
}

// TemplateLoader fetches the blank check image of a bank.
type TemplateLoader interface {
	LoadTemplate(ctx context.Context, bank core.Bank) ([]byte, error)
}

// IssueRequest is everything needed to issue one check.
type IssueRequest struct {
	CheckbookID int64
	Reference   string
	BankID      int64 // Optional, checked against the checkbook's bank when set
	UserID      int64
	Fields      core.FieldValues
}

// Document is a rendered check.
type Document struct {
	Reference     string
	Format        compositor.Format
	Data          []byte
	AmountInWords string
}

// FileName is the name the document is stored under.
func (d Document) FileName() string {
	return d.Reference + "." + d.Format.Ext()
}

type Options struct {
	Store      storage.Store
	Templates  TemplateLoader
	Publisher  Publisher // nil disables events
	Speller    *spell.Speller
	Compositor *compositor.Compositor
	Logger     *log.Logger
	// Caches registers the bank and template caches for periodic cleanup.
	Caches   *cache.Manager
	CacheTTL time.Duration
}

// CheckService is the entry point for issuing and printing checks.
type CheckService struct {
	store      storage.Store
	allocator  *allocator.Allocator
	speller    *spell.Speller
	compositor *compositor.Compositor
	templates  TemplateLoader
	publisher  Publisher

	banks         *cache.LRUCache[core.Bank]
	templateBytes *cache.LRUCache[[]byte]

	logger *log.Logger
	events *log.StructuredLogger
}

func NewCheckService(opts Options) (*CheckService, error) {
	if opts.Store == nil {
		return nil, errors.New("check service needs a store")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default(log.ComponentCheck)
	}
	logger = logger.WithComponent(log.ComponentCheck)

	speller := opts.Speller
	if speller == nil {
		speller = spell.New(spell.DZD)
	}
	comp := opts.Compositor
	if comp == nil {
		var err error
		if comp, err = compositor.New(compositor.Options{}); err != nil {
			return nil, fmt.Errorf("create compositor: %w", err)
		}
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	s := &CheckService{
		store:         opts.Store,
		allocator:     allocator.New(opts.Store, logger),
		speller:       speller,
		compositor:    comp,
		templates:     opts.Templates,
		publisher:     opts.Publisher,
		banks:         cache.NewLRUCache[core.Bank]("banks", 256, ttl),
		templateBytes: cache.NewLRUCache[[]byte]("templates", 32, ttl),
		logger:        logger,
		events:        log.NewStructuredLogger(logger),
	}
	if opts.Caches != nil {
		opts.Caches.Register(s.banks)
		opts.Caches.Register(s.templateBytes)
	}
	return s, nil
}

// SuggestReference proposes the next free reference of a checkbook. It
// reserves nothing.
func (s *CheckService) SuggestReference(ctx context.Context, checkbookID int64) (string, error) {
	return s.allocator.SuggestReference(ctx, checkbookID)
}

// NextAvailableReference is series + pad7(start + usedCount), unchecked.
func (s *CheckService) NextAvailableReference(ctx context.Context, checkbookID int64) (string, error) {
	return s.allocator.NextAvailableReference(ctx, checkbookID)
}

func (s *CheckService) ValidateReference(ctx context.Context, reference string, checkbookID int64) error {
	return s.allocator.ValidateReference(ctx, reference, checkbookID)
}

// ReferenceExists reports whether reference was already issued. The answer
// is advisory; IssueCheck is the only authority.
func (s *CheckService) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	canonical, err := core.CanonicalReference(reference)
	if err != nil {
		return false, err
	}
	return s.store.ReferenceExists(ctx, canonical)
}

// IssueCheck validates the request and records the check. On any error
// nothing is persisted.
func (s *CheckService) IssueCheck(ctx context.Context, req IssueRequest) (core.CheckRecord, error) {
	check, err := s.issue(ctx, req)
	if err != nil {
		reason, errType := classify(err)
		metrics.RecordIssuanceFailure(reason)
		if errType == log.ErrorTypeDatabase {
			s.events.LogError(ctx, "Check issuance failed", err, log.OpIssue,
				log.NewFields().WithCheck(req.Reference, req.CheckbookID, req.BankID, req.UserID))
		} else {
			s.events.LogIssuanceRejected(ctx, req.Reference, req.CheckbookID, errType, err)
		}
		return core.CheckRecord{}, err
	}

	metrics.RecordIssued()
	s.events.LogCheckIssued(ctx, check.Reference, check.CheckbookID, check.BankID, check.UserID, check.Fields.Amount.Cents)

	if err := s.publish(ctx, check); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish check issued message",
			log.FieldReference, check.Reference, log.FieldError, err)
	}
	return check, nil
}

func (s *CheckService) issue(ctx context.Context, req IssueRequest) (core.CheckRecord, error) {
	if err := req.Fields.Validate(); err != nil {
		return core.CheckRecord{}, err
	}
	// An amount the speller rejects could never be printed.
	if _, err := s.speller.SpellCents(req.Fields.Amount.Cents); err != nil {
		return core.CheckRecord{}, err
	}

	if req.BankID != 0 {
		cb, err := s.store.GetCheckbook(ctx, req.CheckbookID)
		if err != nil {
			return core.CheckRecord{}, fmt.Errorf("load checkbook: %w", err)
		}
		if cb.BankID != req.BankID {
			return core.CheckRecord{}, fmt.Errorf("checkbook %d, bank %d: %w", cb.ID, req.BankID, core.ErrBankMismatch)
		}
	}

	return s.allocator.IssueReference(ctx, req.Reference, req.CheckbookID, core.CheckRecord{
		UserID: req.UserID,
		Fields: req.Fields,
	})
}

func (s *CheckService) publish(ctx context.Context, check core.CheckRecord) error {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No publisher configured, skipping check issued message", log.FieldReference, check.Reference)
		return nil
	}
	return s.publisher.PublishCheckIssued(ctx, amqp.NewCheckIssuedMessage(check.ID, check.Reference, 1))
}

func classify(err error) (reason, errType string) {
	switch {
	case errors.Is(err, core.ErrConflict):
		return metrics.ReasonConflict, log.ErrorTypeConflict
	case errors.Is(err, core.ErrExhausted):
		return metrics.ReasonExhausted, log.ErrorTypeExhausted
	case errors.Is(err, core.ErrNotFound):
		return metrics.ReasonValidation, log.ErrorTypeNotFound
	case core.IsValidationError(err):
		return metrics.ReasonValidation, log.ErrorTypeValidation
	}
	return metrics.ReasonStorage, log.ErrorTypeDatabase
}

// Spell renders amount in words in the service currency.
func (s *CheckService) Spell(amount decimal.Decimal) (string, error) {
	return s.speller.Spell(amount)
}

// SpellString parses user input ("1 234,50") and spells it.
func (s *CheckService) SpellString(amount string) (string, error) {
	d, err := core.ParseAmount(amount)
	if err != nil {
		return "", err
	}
	return s.speller.Spell(d)
}

func (s *CheckService) bank(ctx context.Context, bankID int64) (core.Bank, error) {
	return s.banks.GetOrLoad(ctx, strconv.FormatInt(bankID, 10), func(ctx context.Context) (core.Bank, error) {
		return s.store.GetBank(ctx, bankID)
	})
}

// ResolveLayout merges the bank default with the user's calibration. A zero
// userID resolves the bank default alone.
func (s *CheckService) ResolveLayout(ctx context.Context, bankID, userID int64) (core.FieldLayout, error) {
	var (
		bank     core.Bank
		override *core.FieldLayout
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bank, err = s.bank(gctx, bankID)
		if err != nil {
			return fmt.Errorf("load bank %d: %w", bankID, err)
		}
		return nil
	})
	if userID != 0 {
		g.Go(func() error {
			var err error
			override, err = s.store.GetCalibration(gctx, userID, bankID)
			if err != nil {
				return fmt.Errorf("load calibration: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.FieldLayout{}, err
	}

	resolved := layout.Resolve(bank.Positions, override)
	if err := layout.Validate(resolved); err != nil {
		return core.FieldLayout{}, fmt.Errorf("bank %s: %w", bank.Code, err)
	}
	return resolved, nil
}

// Materialize turns field values into the strings printed on the check.
func (s *CheckService) Materialize(f core.FieldValues) (compositor.Fields, error) {
	words, err := s.speller.SpellCents(f.Amount.Cents)
	if err != nil {
		return compositor.Fields{}, err
	}
	return compositor.Fields{
		City:          f.City,
		Date:          f.Date.FormatFR(),
		Payee:         f.Payee,
		Amount:        f.Amount.Format(),
		AmountInWords: words,
	}, nil
}

// RenderDocument composites the check fields over template.
func (s *CheckService) RenderDocument(ctx context.Context, l core.FieldLayout, f core.FieldValues, template []byte) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	fields, err := s.Materialize(f)
	if err != nil {
		return Document{}, err
	}

	start := time.Now()
	data, err := s.compositor.Render(l, fields, template)
	if err != nil {
		return Document{}, err
	}
	metrics.RecordRender(string(s.compositor.Format()), time.Since(start))

	return Document{Format: s.compositor.Format(), Data: data, AmountInWords: fields.AmountInWords}, nil
}

// LoadTemplate returns the template of a bank, cached by bank code.
func (s *CheckService) LoadTemplate(ctx context.Context, bank core.Bank) ([]byte, error) {
	if s.templates == nil {
		return nil, fmt.Errorf("no template source configured: %w", core.ErrMissingTemplate)
	}
	return s.templateBytes.GetOrLoad(ctx, bank.Code+"/"+bank.Template, func(ctx context.Context) ([]byte, error) {
		return s.templates.LoadTemplate(ctx, bank)
	})
}

// RenderCheck renders an issued check with the layout of the user who
// issued it.
func (s *CheckService) RenderCheck(ctx context.Context, reference string) (Document, core.CheckRecord, core.Bank, error) {
	check, err := s.GetCheck(ctx, reference)
	if err != nil {
		return Document{}, core.CheckRecord{}, core.Bank{}, err
	}
	bank, err := s.bank(ctx, check.BankID)
	if err != nil {
		return Document{}, check, core.Bank{}, fmt.Errorf("load bank %d: %w", check.BankID, err)
	}
	l, err := s.ResolveLayout(ctx, check.BankID, check.UserID)
	if err != nil {
		return Document{}, check, bank, err
	}
	tmpl, err := s.LoadTemplate(ctx, bank)
	if err != nil {
		return Document{}, check, bank, err
	}
	doc, err := s.RenderDocument(ctx, l, check.Fields, tmpl)
	if err != nil {
		return Document{}, check, bank, err
	}
	doc.Reference = check.Reference
	return doc, check, bank, nil
}

// PreviewCheck renders fields on a bank's template without issuing
// anything, using the layout the user would print with.
func (s *CheckService) PreviewCheck(ctx context.Context, bankID, userID int64, fields core.FieldValues) (Document, error) {
	if err := fields.Validate(); err != nil {
		return Document{}, err
	}
	bank, err := s.bank(ctx, bankID)
	if err != nil {
		return Document{}, fmt.Errorf("load bank %d: %w", bankID, err)
	}
	l, err := s.ResolveLayout(ctx, bankID, userID)
	if err != nil {
		return Document{}, err
	}
	tmpl, err := s.LoadTemplate(ctx, bank)
	if err != nil {
		return Document{}, err
	}
	doc, err := s.RenderDocument(ctx, l, fields, tmpl)
	if err != nil {
		return Document{}, err
	}
	doc.Reference = "apercu-" + strings.ToLower(bank.Code)
	return doc, nil
}

func (s *CheckService) GetCheck(ctx context.Context, reference string) (core.CheckRecord, error) {
	canonical, err := core.CanonicalReference(reference)
	if err != nil {
		return core.CheckRecord{}, err
	}
	return s.store.GetCheck(ctx, canonical)
}

// SaveCalibration stores a user's sparse correction of a bank layout,
// replacing any previous one.
func (s *CheckService) SaveCalibration(ctx context.Context, userID, bankID int64, override core.FieldLayout) error {
	if userID == 0 {
		return fmt.Errorf("%w: calibration needs a user", core.ErrInvalidPosition)
	}
	if err := layout.ValidatePositions(override); err != nil {
		return err
	}
	if _, err := s.bank(ctx, bankID); err != nil {
		return fmt.Errorf("load bank %d: %w", bankID, err)
	}
	if err := s.store.SaveCalibration(ctx, core.Calibration{UserID: userID, BankID: bankID, Positions: override}); err != nil {
		return fmt.Errorf("save calibration: %w", err)
	}
	s.logger.InfoContext(ctx, "Calibration saved",
		log.FieldUserID, userID, log.FieldBankID, bankID, log.FieldOperation, log.OpCalibrate)
	return nil
}

// UpdateBankPositions replaces a bank's default layout. All five mandatory
// fields must be present.
func (s *CheckService) UpdateBankPositions(ctx context.Context, bankID int64, positions core.FieldLayout) error {
	if err := layout.ValidateDefault(positions); err != nil {
		return err
	}
	if err := s.store.UpdateBankPositions(ctx, bankID, positions); err != nil {
		return fmt.Errorf("update bank %d positions: %w", bankID, err)
	}
	s.banks.Delete(strconv.FormatInt(bankID, 10))
	s.logger.InfoContext(ctx, "Bank positions updated", log.FieldBankID, bankID)
	return nil
}

func (s *CheckService) ListCheckbooks(ctx context.Context, bankID int64, availableOnly bool) ([]core.Checkbook, error) {
	return s.store.ListCheckbooks(ctx, bankID, availableOnly)
}

func (s *CheckService) ListBanks(ctx context.Context) ([]core.Bank, error) {
	return s.store.ListBanks(ctx)
}

func (s *CheckService) GetBank(ctx context.Context, bankID int64) (core.Bank, error) {
	return s.bank(ctx, bankID)
}

// Currency is the currency amounts are spelled in.
func (s *CheckService) Currency() spell.Currency {
	return s.speller.Currency()
}

// OutputFormat is the encoding every rendered document uses.
func (s *CheckService) OutputFormat() compositor.Format {
	return s.compositor.Format()
}

// Close closes the store and the publisher.
func (s *CheckService) Close() error {
	var errs []error
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("storage: %w", err))
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	return errors.Join(errs...)
}
