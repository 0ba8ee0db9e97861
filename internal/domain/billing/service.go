package billing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medipay/medipay/internal/platform/auth"
	"github.com/medipay/medipay/internal/platform/mail"
	"github.com/medipay/medipay/internal/platform/websocket"
)

var (
	ErrForbidden      = errors.New("forbidden")
	ErrInvalid        = errors.New("invalid request")
	ErrSettled        = errors.New("invoice already settled")
	ErrPaymentPending = errors.New("a payment for this invoice is already pending")
	ErrAmountMismatch = errors.New("amount does not match the invoice")
)

const recentInvoices = 3

type Service struct {
	invoices     InvoiceRepository
	transactions TransactionRepository
	payments     PaymentRepository
	events       websocket.EventPublisher
	mailer       mail.Mailer
	logger       zerolog.Logger
	now          func() time.Time
}

func NewService(inv InvoiceRepository, txs TransactionRepository, pay PaymentRepository, events websocket.EventPublisher, logger zerolog.Logger) *Service {
	return &Service{
		invoices:     inv,
		transactions: txs,
		payments:     pay,
		events:       events,
		logger:       logger.With().Str("component", "billing").Logger(),
		now:          time.Now,
	}
}

// SetClock replaces the clock used for date windows and new records.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Scope restricts f to the invoices viewer may see. Patients, doctors and
// institutions see their own rows; insurers see every invoice carrying a
// claim.
func Scope(viewer auth.Principal, f InvoiceFilter) InvoiceFilter {
	switch viewer.Role {
	case auth.RolePatient:
		f.PatientID = viewer.UserID
	case auth.RoleDoctor:
		f.DoctorID = viewer.UserID
	case auth.RoleInstitution:
		f.InstitutionID = viewer.OwnerID()
	case auth.RoleInsurance:
		f.WithClaim = true
	}
	return f
}

func canView(viewer auth.Principal, inv *Invoice) bool {
	return len(FilterInvoices([]*Invoice{inv}, Scope(viewer, InvoiceFilter{}))) == 1
}

// -- Invoices --

type InvoiceList struct {
	Invoices []*Invoice     `json:"invoices"`
	Summary  InvoiceSummary `json:"summary"`
}

// ListInvoices returns the viewer's invoices matching f, in creation order.
func (s *Service) ListInvoices(ctx context.Context, viewer auth.Principal, f InvoiceFilter) ([]*Invoice, error) {
	f = Scope(viewer, f)
	var (
		items []*Invoice
		err   error
	)
	switch {
	case f.PatientID != "":
		items, err = s.invoices.ListByPatient(ctx, f.PatientID)
	case f.DoctorID != "":
		items, err = s.invoices.ListByDoctor(ctx, f.DoctorID)
	case f.InstitutionID != "":
		items, err = s.invoices.ListByInstitution(ctx, f.InstitutionID)
	default:
		items, err = s.invoices.List(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return FilterInvoices(items, f), nil
}

// Invoices is ListInvoices with the pending/paid/total footer.
func (s *Service) Invoices(ctx context.Context, viewer auth.Principal, f InvoiceFilter) (*InvoiceList, error) {
	items, err := s.ListInvoices(ctx, viewer, f)
	if err != nil {
		return nil, err
	}
	return &InvoiceList{Invoices: items, Summary: SummarizeInvoices(items)}, nil
}

// InvoiceOverview is the invoice part of a dashboard home page.
type InvoiceOverview struct {
	Summary InvoiceSummary `json:"summary"`
	Recent  []*Invoice     `json:"recent"`
}

func (s *Service) Overview(ctx context.Context, viewer auth.Principal) (*InvoiceOverview, error) {
	items, err := s.ListInvoices(ctx, viewer, InvoiceFilter{})
	if err != nil {
		return nil, err
	}
	return &InvoiceOverview{Summary: SummarizeInvoices(items), Recent: MostRecent(items, recentInvoices)}, nil
}

func (s *Service) GetInvoice(ctx context.Context, viewer auth.Principal, id string) (*Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(viewer, inv) {
		return nil, ErrForbidden
	}
	return inv, nil
}

// CreateInvoice bills a patient on behalf of the signed-in doctor. The invoice
// starts pending.
func (s *Service) CreateInvoice(ctx context.Context, doctor auth.Principal, req CreateInvoiceRequest) (*Invoice, error) {
	if doctor.Role != auth.RoleDoctor {
		return nil, ErrForbidden
	}
	if req.PatientID == "" || req.Service == "" {
		return nil, fmt.Errorf("%w: patient_id and service are required", ErrInvalid)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalid)
	}
	inv := &Invoice{
		ID:                    "INV-" + strings.ToUpper(uuid.NewString()[:8]),
		PatientID:             req.PatientID,
		PatientName:           req.PatientName,
		DoctorID:              doctor.UserID,
		DoctorName:            doctor.Name,
		InstitutionID:         req.InstitutionID,
		InstitutionName:       req.InstitutionName,
		Service:               req.Service,
		Amount:                req.Amount,
		Status:                StatusPending,
		CreatedAt:             s.now().UTC(),
		Description:           req.Description,
		InsuranceClaimID:      req.InsuranceClaimID,
		InsuranceCoverage:     req.InsuranceCoverage,
		PatientResponsibility: req.PatientResponsibility,
	}
	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	s.publish(ctx, "invoice.created", "invoice", inv.ID, inv, invoiceTopics(inv))
	return inv, nil
}

// -- Transactions --

// TransactionList carries two aggregates: Summary over every transaction of
// the viewer for the stat cards, Filtered over the listed matches only.
type TransactionList struct {
	Transactions []*Transaction     `json:"transactions"`
	Summary      TransactionSummary `json:"summary"`
	Filtered     TransactionSummary `json:"filtered"`
}

// ListTransactions returns the transactions of the viewer's invoices that
// match f. f.InvoiceIDs and f.Now are overwritten.
func (s *Service) ListTransactions(ctx context.Context, viewer auth.Principal, f TransactionFilter) ([]*Transaction, error) {
	invoices, err := s.ListInvoices(ctx, viewer, InvoiceFilter{})
	if err != nil {
		return nil, err
	}
	items, err := s.transactions.ListByInvoices(ctx, InvoiceIDs(invoices))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	f.InvoiceIDs = nil
	f.Now = s.now()
	return FilterTransactions(items, f), nil
}

func (s *Service) Transactions(ctx context.Context, viewer auth.Principal, f TransactionFilter) (*TransactionList, error) {
	all, err := s.ListTransactions(ctx, viewer, TransactionFilter{})
	if err != nil {
		return nil, err
	}
	f.InvoiceIDs = nil
	f.Now = s.now()
	items := FilterTransactions(all, f)
	return &TransactionList{
		Transactions: items,
		Summary:      SummarizeTransactions(all),
		Filtered:     SummarizeTransactions(items),
	}, nil
}

// AuthorizePayment checks that payer may pay invoiceID with amount. Only the
// invoice's patient pays, the full amount, while the invoice is unsettled and
// no submitted payment is pending.
func (s *Service) AuthorizePayment(ctx context.Context, payer auth.Principal, invoiceID string, amount float64) (*Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if payer.Role != auth.RolePatient || inv.PatientID != payer.UserID {
		return nil, ErrForbidden
	}
	if inv.Status.Settled() {
		return nil, ErrSettled
	}
	if !sameAmount(amount, inv.Amount) {
		return nil, ErrAmountMismatch
	}
	txs, err := s.transactions.ListByInvoices(ctx, []string{inv.ID})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	for _, tx := range txs {
		if tx.Status == StatusPending && tx.BlockchainHash != "" {
			return nil, ErrPaymentPending
		}
	}
	return inv, nil
}

// sameAmount compares amounts at MIST precision.
func sameAmount(a, b float64) bool {
	return math.Round(a*1e9) == math.Round(b*1e9)
}

// RecordPayment stores a pending transaction for the amount payer submitted
// to the network under digest. The payment is authorized again so a payment
// raced by another one is not recorded twice.
func (s *Service) RecordPayment(ctx context.Context, payer auth.Principal, invoiceID, digest string, amount float64) (*Transaction, error) {
	inv, err := s.AuthorizePayment(ctx, payer, invoiceID, amount)
	if err != nil {
		return nil, err
	}
	tx := &Transaction{
		ID:             "TXN-" + strings.ToUpper(uuid.NewString()[:8]),
		InvoiceID:      inv.ID,
		PatientName:    inv.PatientName,
		DoctorName:     inv.DoctorName,
		Service:        inv.Service,
		Amount:         amount,
		Status:         StatusPending,
		Timestamp:      s.now().UTC(),
		BlockchainHash: digest,
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	s.publish(ctx, "transaction.submitted", "transaction", tx.ID, tx, append(invoiceTopics(inv), websocket.TopicExplorer))
	return tx, nil
}

// ExplorerView is the public transaction explorer.
type ExplorerView struct {
	Transactions []*Transaction  `json:"transactions"`
	Summary      ExplorerSummary `json:"summary"`
}

// Explorer lists every transaction matching search. The summary counts the
// full set, not only the matches.
func (s *Service) Explorer(ctx context.Context, search string) (*ExplorerView, error) {
	all, err := s.transactions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	matches := FilterTransactions(all, TransactionFilter{Search: search})
	return &ExplorerView{Transactions: matches, Summary: SummarizeExplorer(all)}, nil
}

// -- Insurance payments --

type PaymentList struct {
	Payments []*InsurancePayment `json:"payments"`
	Summary  PaymentSummary      `json:"summary"`
}

// Payments lists insurance payments visible to viewer: an institution sees
// the payments it received, an insurer sees all of them.
func (s *Service) Payments(ctx context.Context, viewer auth.Principal) (*PaymentList, error) {
	var (
		items []*InsurancePayment
		err   error
	)
	switch viewer.Role {
	case auth.RoleInstitution:
		items, err = s.payments.ListByInstitution(ctx, viewer.OwnerID())
	case auth.RoleInsurance:
		items, err = s.payments.List(ctx)
	default:
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return &PaymentList{Payments: items, Summary: SummarizePayments(items)}, nil
}

// -- Events --

func invoiceTopics(inv *Invoice) []string {
	topics := []string{
		websocket.OwnerTopic(auth.RolePatient, inv.PatientID),
		websocket.OwnerTopic(auth.RoleDoctor, inv.DoctorID),
	}
	if inv.InstitutionID != "" {
		topics = append(topics, websocket.OwnerTopic(auth.RoleInstitution, inv.InstitutionID))
	}
	if inv.InsuranceClaimID != "" {
		topics = append(topics, websocket.TopicInsurance)
	}
	return topics
}

func (s *Service) publish(ctx context.Context, eventType, resource, id string, payload interface{}, topics []string) {
	if s.events == nil {
		return
	}
	for _, topic := range topics {
		ev, err := websocket.NewEvent(eventType, topic, resource, id, payload)
		if err != nil {
			s.logger.Error().Err(err).Str("resource_id", id).Msg("build event")
			return
		}
		if err := s.events.Publish(ctx, ev); err != nil {
			s.logger.Warn().Err(err).Str("topic", topic).Msg("publish event")
		}
	}
}
