package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"imprimecheque/internal/amqp"
	"imprimecheque/internal/cache"
	"imprimecheque/internal/compositor"
	"imprimecheque/internal/core"
	"imprimecheque/internal/storage/memory"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.CheckIssuedMessage
	err  error
}

func (p *recordingPublisher) PublishCheckIssued(_ context.Context, msg *amqp.CheckIssuedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type staticTemplates struct {
	data  []byte
	calls int
}

func (s *staticTemplates) LoadTemplate(_ context.Context, bank core.Bank) ([]byte, error) {
	s.calls++
	if s.data == nil {
		return nil, core.ErrMissingTemplate
	}
	return s.data, nil
}

func ptr(f float64) *float64 { return &f }

func whitePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 800, 300))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type fixture struct {
	svc       *CheckService
	store     *memory.Store
	pub       *recordingPublisher
	templates *staticTemplates
	bank      core.Bank
	checkbook core.Checkbook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	bank, err := store.UpsertBank(ctx, core.Bank{
		Code: "BNA",
		Name: "Banque Nationale d'Algérie",
		Positions: core.FieldLayout{
			City:               &core.Position{X: 420, Y: 240, FontSize: 14},
			Date:               &core.Position{X: 560, Y: 240, FontSize: 14},
			Payee:              &core.Position{X: 110, Y: 150, FontSize: 14},
			Amount:             &core.Position{X: 600, Y: 30, FontSize: 16},
			AmountInWords:      &core.Position{X: 150, Y: 80, FontSize: 14, Width: ptr(300)},
			AmountInWordsLine2: &core.Position{X: 40, Y: 105, FontSize: 14},
		},
		Template: "bna.png",
	})
	if err != nil {
		t.Fatal(err)
	}
	cb, err := store.CreateCheckbook(ctx, core.Checkbook{
		BankID: bank.ID, AgencyCode: "001", AgencyName: "Alger Centre", Series: "AA", StartNumber: 1, EndNumber: 5,
	})
	if err != nil {
		t.Fatal(err)
	}

	pub := &recordingPublisher{}
	tmpl := &staticTemplates{data: whitePNG(t)}
	svc, err := NewCheckService(Options{
		Store:     store,
		Templates: tmpl,
		Publisher: pub,
		Caches:    cache.NewManager(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{svc: svc, store: store, pub: pub, templates: tmpl, bank: bank, checkbook: cb}
}

func validFields() core.FieldValues {
	return core.FieldValues{
		City:   "Alger",
		Date:   core.NewDate(2025, 1, 15),
		Payee:  "Sonelgaz",
		Amount: core.Money{Cents: 1234550},
	}
}

func TestIssueFiveThenExhausted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i, want := range []string{"AA0000001", "AA0000002", "AA0000003", "AA0000004", "AA0000005"} {
		ref, err := f.svc.SuggestReference(ctx, f.checkbook.ID)
		if err != nil {
			t.Fatalf("suggest #%d: %v", i+1, err)
		}
		if ref != want {
			t.Fatalf("suggest #%d = %s, want %s", i+1, ref, want)
		}
		check, err := f.svc.IssueCheck(ctx, IssueRequest{
			CheckbookID: f.checkbook.ID, Reference: ref, BankID: f.bank.ID, UserID: 9, Fields: validFields(),
		})
		if err != nil {
			t.Fatalf("issue %s: %v", ref, err)
		}
		if check.Reference != want || check.BankID != f.bank.ID {
			t.Fatalf("unexpected record %+v", check)
		}
	}

	_, err := f.svc.IssueCheck(ctx, IssueRequest{
		CheckbookID: f.checkbook.ID, Reference: "AA0000005", Fields: validFields(),
	})
	if !errors.Is(err, core.ErrExhausted) {
		t.Fatalf("sixth issuance: expected ErrExhausted, got %v", err)
	}
	if _, err := f.svc.SuggestReference(ctx, f.checkbook.ID); !errors.Is(err, core.ErrExhausted) {
		t.Fatalf("suggest on full checkbook: expected ErrExhausted, got %v", err)
	}

	cb, _ := f.store.GetCheckbook(ctx, f.checkbook.ID)
	if cb.UsedCount != 5 || cb.Remaining() != 0 {
		t.Fatalf("used=%d remaining=%d", cb.UsedCount, cb.Remaining())
	}
	if len(f.pub.msgs) != 5 || f.pub.msgs[4].Reference != "AA0000005" {
		t.Fatalf("expected 5 published messages, got %d", len(f.pub.msgs))
	}
}

func TestIssueCheckRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	huge := validFields()
	huge.Amount = core.Money{Cents: core.MaxAmountCents + 1}
	noPayee := validFields()
	noPayee.Payee = "  "

	tests := []struct {
		name string
		req  IssueRequest
		want error
	}{
		{"bad format", IssueRequest{CheckbookID: f.checkbook.ID, Reference: "A10000001", Fields: validFields()}, core.ErrFormat},
		{"wrong series", IssueRequest{CheckbookID: f.checkbook.ID, Reference: "AB0000001", Fields: validFields()}, core.ErrSeriesMismatch},
		{"out of range", IssueRequest{CheckbookID: f.checkbook.ID, Reference: "AA0000006", Fields: validFields()}, core.ErrOutOfRange},
		{"amount too large", IssueRequest{CheckbookID: f.checkbook.ID, Reference: "AA0000001", Fields: huge}, core.ErrInvalidAmount},
		{"empty payee", IssueRequest{CheckbookID: f.checkbook.ID, Reference: "AA0000001", Fields: noPayee}, core.ErrEmptyPayee},
		{"other bank", IssueRequest{CheckbookID: f.checkbook.ID, Reference: "AA0000001", BankID: f.bank.ID + 100, Fields: validFields()}, core.ErrBankMismatch},
		{"unknown checkbook", IssueRequest{CheckbookID: 999, Reference: "AA0000001", Fields: validFields()}, core.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.IssueCheck(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	cb, _ := f.store.GetCheckbook(ctx, f.checkbook.ID)
	if cb.UsedCount != 0 {
		t.Fatalf("rejections must not consume checks, used=%d", cb.UsedCount)
	}
	if len(f.pub.msgs) != 0 {
		t.Fatalf("rejections must not publish, got %d", len(f.pub.msgs))
	}
}

func TestIssueCheckPublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")

	check, err := f.svc.IssueCheck(context.Background(), IssueRequest{
		CheckbookID: f.checkbook.ID, Reference: "aa0000003", Fields: validFields(),
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if check.Reference != "AA0000003" {
		t.Fatalf("reference = %s", check.Reference)
	}
	exists, err := f.svc.ReferenceExists(context.Background(), "AA0000003")
	if err != nil || !exists {
		t.Fatalf("ReferenceExists = %v, %v", exists, err)
	}
}

func TestIssueCheckConcurrentSameReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.IssueCheck(ctx, IssueRequest{CheckbookID: f.checkbook.ID, Reference: "AA0000002", Fields: validFields()})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, core.ErrConflict):
			conflicts++
		default:
			t.Errorf("unexpected error %v", err)
		}
	}
	if ok != 1 || conflicts != n-1 {
		t.Fatalf("ok=%d conflicts=%d", ok, conflicts)
	}
}

func TestSuggestSkipsOutOfOrderIssuance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.IssueCheck(ctx, IssueRequest{CheckbookID: f.checkbook.ID, Reference: "AA0000002", Fields: validFields()}); err != nil {
		t.Fatal(err)
	}
	next, err := f.svc.NextAvailableReference(ctx, f.checkbook.ID)
	if err != nil || next != "AA0000002" {
		t.Fatalf("NextAvailableReference = %s, %v", next, err)
	}
	suggested, err := f.svc.SuggestReference(ctx, f.checkbook.ID)
	if err != nil || suggested != "AA0000003" {
		t.Fatalf("SuggestReference = %s, %v", suggested, err)
	}
}

func TestSpell(t *testing.T) {
	f := newFixture(t)

	tests := map[string]string{
		"0":        "zéro dinar",
		"100":      "cent dinars",
		"200":      "deux cents dinars",
		"1000000":  "un million de dinars",
		"1 234,50": "mille deux cent trente-quatre dinars et cinquante centimes",
		"80.01":    "quatre-vingts dinars et un centime",
	}
	for in, want := range tests {
		got, err := f.svc.SpellString(in)
		if err != nil {
			t.Errorf("SpellString(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("SpellString(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := f.svc.Spell(decimal.RequireFromString("-1")); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("negative amount: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := f.svc.Spell(decimal.RequireFromString("100000000000")); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("1e11: expected ErrInvalidAmount, got %v", err)
	}
}

func TestResolveLayoutWithCalibration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	base, err := f.svc.ResolveLayout(ctx, f.bank.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if base.Payee.X != 110 {
		t.Fatalf("default payee x = %v", base.Payee.X)
	}

	override := core.FieldLayout{Payee: &core.Position{X: 118, Y: 152, FontSize: 13}}
	if err := f.svc.SaveCalibration(ctx, 9, f.bank.ID, override); err != nil {
		t.Fatal(err)
	}

	got, err := f.svc.ResolveLayout(ctx, f.bank.ID, 9)
	if err != nil {
		t.Fatal(err)
	}
	if got.Payee.X != 118 || got.Payee.FontSize != 13 {
		t.Errorf("payee not overridden: %+v", got.Payee)
	}
	if got.City.X != 420 || got.AmountInWordsLine2 == nil {
		t.Errorf("other fields must keep their defaults: %+v", got)
	}

	other, err := f.svc.ResolveLayout(ctx, f.bank.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if other.Payee.X != 110 {
		t.Errorf("another user's layout changed: %+v", other.Payee)
	}

	if _, err := f.svc.ResolveLayout(ctx, 404, 9); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("unknown bank: expected ErrNotFound, got %v", err)
	}
}

func TestSaveCalibrationRejectsInvalidPositions(t *testing.T) {
	f := newFixture(t)
	bad := core.FieldLayout{Date: &core.Position{X: -1, Y: 10, FontSize: 12}}
	if err := f.svc.SaveCalibration(context.Background(), 9, f.bank.ID, bad); !errors.Is(err, core.ErrInvalidPosition) {
		t.Fatalf("expected ErrInvalidPosition, got %v", err)
	}
}

func TestUpdateBankPositionsInvalidatesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.ResolveLayout(ctx, f.bank.ID, 0); err != nil {
		t.Fatal(err)
	}

	incomplete := core.FieldLayout{City: &core.Position{X: 1, Y: 1, FontSize: 10}}
	if err := f.svc.UpdateBankPositions(ctx, f.bank.ID, incomplete); !errors.Is(err, core.ErrMissingLayout) {
		t.Fatalf("expected ErrMissingLayout, got %v", err)
	}

	moved := f.bank.Positions
	moved.City = &core.Position{X: 430, Y: 245, FontSize: 14}
	if err := f.svc.UpdateBankPositions(ctx, f.bank.ID, moved); err != nil {
		t.Fatal(err)
	}
	got, err := f.svc.ResolveLayout(ctx, f.bank.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got.City.X != 430 {
		t.Fatalf("stale layout served from cache: %+v", got.City)
	}
}

func TestRenderCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.IssueCheck(ctx, IssueRequest{CheckbookID: f.checkbook.ID, Reference: "AA0000001", UserID: 9, Fields: validFields()}); err != nil {
		t.Fatal(err)
	}

	doc, check, bank, err := f.svc.RenderCheck(ctx, "aa0000001")
	if err != nil {
		t.Fatalf("RenderCheck: %v", err)
	}
	if doc.Reference != "AA0000001" || doc.FileName() != "AA0000001.png" || doc.Format != compositor.PNG {
		t.Errorf("unexpected document %s %s", doc.Reference, doc.FileName())
	}
	if check.Fields.Payee != "Sonelgaz" || bank.Code != "BNA" {
		t.Errorf("unexpected check %+v bank %+v", check, bank)
	}
	if doc.AmountInWords != "douze mille trois cent quarante-cinq dinars et cinquante centimes" {
		t.Errorf("amount in words = %q", doc.AmountInWords)
	}

	img, err := png.Decode(bytes.NewReader(doc.Data))
	if err != nil {
		t.Fatalf("decode rendered document: %v", err)
	}
	if img.Bounds().Dx() != 800 {
		t.Errorf("document width = %d", img.Bounds().Dx())
	}
	if !hasInk(img) {
		t.Error("rendered document is blank")
	}

	if _, _, _, err := f.svc.RenderCheck(ctx, "AA0000001"); err != nil {
		t.Fatal(err)
	}
	if f.templates.calls != 1 {
		t.Errorf("template loaded %d times, want 1 (cached)", f.templates.calls)
	}
}

func TestRenderMissingTemplate(t *testing.T) {
	f := newFixture(t)
	f.templates.data = nil
	ctx := context.Background()

	if _, err := f.svc.IssueCheck(ctx, IssueRequest{CheckbookID: f.checkbook.ID, Reference: "AA0000001", Fields: validFields()}); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := f.svc.RenderCheck(ctx, "AA0000001"); !errors.Is(err, core.ErrMissingTemplate) {
		t.Fatalf("expected ErrMissingTemplate, got %v", err)
	}
}

func hasInk(img image.Image) bool {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if c := color.GrayModel.Convert(img.At(x, y)).(color.Gray); c.Y < 128 {
				return true
			}
		}
	}
	return false
}

func TestPreviewCheckIssuesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.svc.PreviewCheck(ctx, f.bank.ID, 9, validFields())
	if err != nil {
		t.Fatalf("PreviewCheck: %v", err)
	}
	if doc.FileName() != "apercu-bna.png" || len(doc.Data) == 0 {
		t.Errorf("unexpected preview %s (%d bytes)", doc.FileName(), len(doc.Data))
	}

	cb, err := f.store.GetCheckbook(ctx, f.checkbook.ID)
	if err != nil {
		t.Fatal(err)
	}
	if cb.UsedCount != 0 || len(f.pub.msgs) != 0 {
		t.Errorf("preview must not issue: used=%d published=%d", cb.UsedCount, len(f.pub.msgs))
	}

	bad := validFields()
	bad.Payee = " "
	if _, err := f.svc.PreviewCheck(ctx, f.bank.ID, 9, bad); !errors.Is(err, core.ErrEmptyPayee) {
		t.Errorf("err = %v, want ErrEmptyPayee", err)
	}
	if _, err := f.svc.PreviewCheck(ctx, 999, 9, validFields()); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
