package billing_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appbilling "github.com/hostalia/billing-api/internal/application/billing"
	"github.com/hostalia/billing-api/internal/domain"
	"github.com/hostalia/billing-api/internal/domain/entity"
	"github.com/hostalia/billing-api/internal/domain/repository"
	"github.com/hostalia/billing-api/internal/domain/verifactu"
	"github.com/hostalia/billing-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Dobles en memoria del núcleo fiscal. El runner de transacciones trabaja sobre
// una copia del estado y solo la consolida si el callback termina sin error:
// así los tests pueden comprobar que un aborto no deja huecos en la numeración.
// ──────────────────────────────────────────────────────────────────────────────

type memState struct {
	invoices map[string]*entity.Invoice
	lines    map[string][]*entity.InvoiceLine
	series   map[string]*entity.InvoiceSeries      // clave nif|prefijo|año
	cancels  map[string]*entity.CancellationRecord // por invoiceID
}

func newMemState() *memState {
	return &memState{
		invoices: map[string]*entity.Invoice{},
		lines:    map[string][]*entity.InvoiceLine{},
		series:   map[string]*entity.InvoiceSeries{},
		cancels:  map[string]*entity.CancellationRecord{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.invoices {
		inv := *v
		c.invoices[k] = &inv
	}
	for k, v := range s.lines {
		ls := make([]*entity.InvoiceLine, len(v))
		for i, l := range v {
			ll := *l
			ls[i] = &ll
		}
		c.lines[k] = ls
	}
	for k, v := range s.series {
		sr := *v
		c.series[k] = &sr
	}
	for k, v := range s.cancels {
		cr := *v
		c.cancels[k] = &cr
	}
	return c
}

func seriesKey(nif, prefix string, year int) string {
	return fmt.Sprintf("%s|%s|%d", nif, prefix, year)
}

// fakeStore estado vivo compartido entre el runner y los repos "de pool".
type fakeStore struct {
	state       *memState
	submissions []*entity.FiscalSubmission

	// Inyección de fallos.
	lockErrs    int // próximas llamadas a Lock devuelven ErrSeriesContention
	createErrs  int // próximas llamadas a Create de factura fallan
}

func newFakeStore() *fakeStore {
	return &fakeStore{state: newMemState()}
}

func (f *fakeStore) seedSeries(nif, prefix string, year int) *entity.InvoiceSeries {
	s := &entity.InvoiceSeries{
		ID:        uuid.NewString(),
		IssuerNIF: nif,
		Prefix:    prefix,
		Year:      year,
	}
	f.state.series[seriesKey(nif, prefix, year)] = s
	return s
}

// ── Repos en memoria ──────────────────────────────────────────────────────────

type memInvoiceRepo struct {
	st    func() *memState
	store *fakeStore
}

func (r *memInvoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	if r.store.createErrs > 0 {
		r.store.createErrs--
		return errors.New("error simulado de base de datos")
	}
	cp := *inv
	r.st().invoices[inv.ID] = &cp
	return nil
}

func (r *memInvoiceRepo) CreateLine(_ context.Context, line *entity.InvoiceLine) error {
	cp := *line
	st := r.st()
	st.lines[line.InvoiceID] = append(st.lines[line.InvoiceID], &cp)
	return nil
}

func (r *memInvoiceRepo) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	inv, ok := r.st().invoices[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *memInvoiceRepo) GetLines(_ context.Context, invoiceID string) ([]*entity.InvoiceLine, error) {
	return r.st().lines[invoiceID], nil
}

func (r *memInvoiceRepo) UpdateStatus(_ context.Context, id, status string) error {
	inv, ok := r.st().invoices[id]
	if !ok {
		return domain.ErrNotFound
	}
	inv.Status = status
	if status == entity.InvoiceStatusCancelled {
		now := time.Now()
		inv.CancelledAt = &now
	}
	return nil
}

func (r *memInvoiceRepo) UpdateGateway(_ context.Context, id, status, csv, errs string) error {
	inv, ok := r.st().invoices[id]
	if !ok {
		return domain.ErrNotFound
	}
	inv.GatewayStatus = status
	inv.GatewayCSV = csv
	inv.GatewayErrors = errs
	return nil
}

func (r *memInvoiceRepo) GetStatus(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.GetByID(ctx, id)
}

type memSeriesRepo struct {
	st    func() *memState
	store *fakeStore
}

func (r *memSeriesRepo) Create(_ context.Context, s *entity.InvoiceSeries) error {
	cp := *s
	r.st().series[seriesKey(s.IssuerNIF, s.Prefix, s.Year)] = &cp
	return nil
}

func (r *memSeriesRepo) GetByKey(_ context.Context, nif, prefix string, year int) (*entity.InvoiceSeries, error) {
	s, ok := r.st().series[seriesKey(nif, prefix, year)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memSeriesRepo) Lock(ctx context.Context, nif, prefix string, year int) (*entity.InvoiceSeries, error) {
	if r.store.lockErrs > 0 {
		r.store.lockErrs--
		return nil, domain.ErrSeriesContention
	}
	return r.GetByKey(ctx, nif, prefix, year)
}

func (r *memSeriesRepo) Advance(_ context.Context, id string, lastNumber int64, lastHuella string) error {
	for _, s := range r.st().series {
		if s.ID == id {
			s.LastNumber = lastNumber
			s.LastHuella = lastHuella
			return nil
		}
	}
	return domain.ErrNotFound
}

type memCancelRepo struct {
	st func() *memState
}

func (r *memCancelRepo) Create(_ context.Context, rec *entity.CancellationRecord) error {
	cp := *rec
	r.st().cancels[rec.InvoiceID] = &cp
	return nil
}

func (r *memCancelRepo) GetByInvoiceID(_ context.Context, invoiceID string) (*entity.CancellationRecord, error) {
	rec, ok := r.st().cancels[invoiceID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *memCancelRepo) UpdateGateway(_ context.Context, id, status string) error {
	for _, rec := range r.st().cancels {
		if rec.ID == id {
			rec.GatewayStatus = status
			return nil
		}
	}
	return domain.ErrNotFound
}

type memSubmissionRepo struct {
	store *fakeStore
}

func (r *memSubmissionRepo) Create(_ context.Context, sub *entity.FiscalSubmission) error {
	cp := *sub
	r.store.submissions = append(r.store.submissions, &cp)
	return nil
}

func (r *memSubmissionRepo) ListByInvoice(_ context.Context, invoiceID string) ([]*entity.FiscalSubmission, error) {
	var out []*entity.FiscalSubmission
	for _, s := range r.store.submissions {
		if s.InvoiceID == invoiceID {
			out = append(out, s)
		}
	}
	return out, nil
}

// fakeTxRunner consolida la copia de trabajo solo si el callback no falla.
type fakeTxRunner struct {
	store *fakeStore
}

func (r *fakeTxRunner) RunFiscal(ctx context.Context, fn func(
	repository.InvoiceRepository,
	repository.InvoiceSeriesRepository,
	repository.CancellationRepository,
) error) error {
	staging := r.store.state.clone()
	st := func() *memState { return staging }

	err := fn(
		&memInvoiceRepo{st: st, store: r.store},
		&memSeriesRepo{st: st, store: r.store},
		&memCancelRepo{st: st},
	)
	if err != nil {
		return err // rollback: la copia se descarta
	}
	r.store.state = staging
	return nil
}

// ── Dobles de la pasarela AEAT ────────────────────────────────────────────────

type submitOutcome struct {
	res *appbilling.SubmitResult
	err error
}

type fakeSubmitter struct {
	queue []submitOutcome
	calls int
}

func (s *fakeSubmitter) enqueue(res *appbilling.SubmitResult, err error) {
	s.queue = append(s.queue, submitOutcome{res: res, err: err})
}

func (s *fakeSubmitter) Submit(context.Context, string, string) (*appbilling.SubmitResult, error) {
	s.calls++
	if len(s.queue) == 0 {
		return &appbilling.SubmitResult{Accepted: true, CSV: "CSV-TEST", Response: "<ok/>"}, nil
	}
	out := s.queue[0]
	s.queue = s.queue[1:]
	return out.res, out.err
}

type fakeBuilder struct{}

func (fakeBuilder) BuildAlta(*entity.Invoice, []*entity.InvoiceLine) (string, error) {
	return "<RegistroAlta/>", nil
}

func (fakeBuilder) BuildAnulacion(*entity.Invoice, *entity.CancellationRecord) (string, error) {
	return "<RegistroAnulacion/>", nil
}

// ── Entorno de test ───────────────────────────────────────────────────────────

type testEnv struct {
	store     *fakeStore
	submitter *fakeSubmitter
	cfg       appbilling.AEATConfig
	gateway   *appbilling.GatewayOrchestrator
	issue     *appbilling.IssueInvoiceUseCase
	rectify   *appbilling.RectifyInvoiceUseCase
	cancel    *appbilling.CancelInvoiceUseCase
	retry     *appbilling.RetrySubmissionUseCase
}

func newTestEnv() *testEnv {
	return newTestEnvWithAppEnv("test")
}

func newTestEnvWithAppEnv(appEnv string) *testEnv {
	store := newFakeStore()
	store.seedSeries("B70456371", "F", time.Now().Year())

	live := func() *memState { return store.state }
	invoiceRepo := &memInvoiceRepo{st: live, store: store}
	cancelRepo := &memCancelRepo{st: live}
	submissionRepo := &memSubmissionRepo{store: store}
	txRunner := &fakeTxRunner{store: store}

	cfg := appbilling.AEATConfig{
		IssuerNIF:   "B70456371",
		IssuerName:  "Hostalia Rentals SL",
		Environment: "2",
		AppEnv:      appEnv,
	}
	log := logger.New(logger.Config{Env: "development", Level: "error"})
	submitter := &fakeSubmitter{}
	huella := verifactu.NewHuellaService()

	gateway := appbilling.NewGatewayOrchestrator(
		fakeBuilder{}, submitter, invoiceRepo, cancelRepo, submissionRepo, cfg, log)

	return &testEnv{
		store:     store,
		submitter: submitter,
		cfg:       cfg,
		gateway:   gateway,
		issue:     appbilling.NewIssueInvoiceUseCase(txRunner, huella, gateway, cfg, log),
		rectify:   appbilling.NewRectifyInvoiceUseCase(invoiceRepo, txRunner, huella, gateway, cfg, log),
		cancel:    appbilling.NewCancelInvoiceUseCase(invoiceRepo, txRunner, huella, gateway, cfg, log),
		retry:     appbilling.NewRetrySubmissionUseCase(invoiceRepo, cancelRepo, gateway, log),
	}
}

func (e *testEnv) series() *entity.InvoiceSeries {
	return e.store.state.series[seriesKey("B70456371", "F", time.Now().Year())]
}

func lineaSuscripcion() appbilling.IssueLineInput {
	return appbilling.IssueLineInput{
		Concept:   "Suscripción plan PRO (mensual)",
		Quantity:  decimal.NewFromInt(1),
		UnitPrice: decimal.NewFromFloat(58.00),
		VATRate:   decimal.NewFromInt(21),
		RetRate:   decimal.Zero,
	}
}

func solicitudEmision() *appbilling.IssueInvoiceInput {
	return &appbilling.IssueInvoiceInput{
		SeriesPrefix:  "F",
		RecipientNIF:  "12345678Z",
		RecipientName: "María García",
		Description:   "Cuota de suscripción junio 2025",
		Lines:         []appbilling.IssueLineInput{lineaSuscripcion()},
	}
}
