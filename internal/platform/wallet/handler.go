package wallet

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medipay/medipay/internal/platform/auth"
	"github.com/medipay/medipay/internal/platform/ledger"
)

// Receipt kinds journaled for submitted transactions.
const (
	KindInvoice      = "invoice"
	KindPayment      = "payment"
	KindRecord       = "medical_record"
	KindPrescription = "prescription"
)

// ReceiptStore journals submitted transactions.
type ReceiptStore interface {
	Append(ctx context.Context, r ledger.Receipt) error
	ByUser(ctx context.Context, userID string) ([]ledger.Receipt, error)
}

// Intent describes a transaction about to be submitted.
type Intent struct {
	Kind      string
	Reference string
	Amount    float64
}

// SubmitCheck runs before a transaction reaches the wallet. An error aborts
// the submission; an *echo.HTTPError is answered as is.
type SubmitCheck func(ctx context.Context, p auth.Principal, in Intent) error

// SubmitHook runs after a transaction was executed and journaled.
type SubmitHook func(ctx context.Context, p auth.Principal, r ledger.Receipt) error

// Submission is the response to a submitted transaction.
type Submission struct {
	Digest      string `json:"digest"`
	ExplorerURL string `json:"explorer_url"`
}

type Handler struct {
	wallets  *Registry
	receipts ReceiptStore
	checks   []SubmitCheck
	hooks    []SubmitHook
	logger   zerolog.Logger
	now      func() time.Time
}

func NewHandler(wallets *Registry, receipts ReceiptStore, logger zerolog.Logger) *Handler {
	return &Handler{
		wallets:  wallets,
		receipts: receipts,
		logger:   logger.With().Str("component", "wallet-handler").Logger(),
		now:      time.Now,
	}
}

// BeforeSubmit registers a check run before every submission.
func (h *Handler) BeforeSubmit(check SubmitCheck) {
	h.checks = append(h.checks, check)
}

// OnSubmitted registers a hook run for every journaled submission.
func (h *Handler) OnSubmitted(hook SubmitHook) {
	h.hooks = append(h.hooks, hook)
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	w := g.Group("/wallet", auth.RequireAuth())
	w.GET("", h.Status)
	w.POST("/connect", h.Connect)
	w.POST("/disconnect", h.Disconnect)
	w.POST("/balance", h.RefreshBalance)
	w.GET("/receipts", h.ListReceipts)
	w.POST("/transactions/invoice", h.CreateInvoice)
	w.POST("/transactions/pay", h.PayInvoice)
	w.POST("/transactions/record", h.CreateMedicalRecord)
	w.POST("/transactions/prescription", h.CreatePrescription)
}

func viewer(c echo.Context) auth.Principal {
	p, _ := auth.PrincipalFromContext(c.Request().Context())
	return p
}

func (h *Handler) wallet(c echo.Context) *Wallet {
	return h.wallets.Get(c.Request().Context(), viewer(c))
}

// toHTTPError answers wallet failures with their message and code so the
// dashboard can show them verbatim.
func toHTTPError(c echo.Context, err error) error {
	var we *WalletError
	if errors.As(err, &we) {
		return c.JSON(http.StatusBadRequest, we)
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.wallet(c).Status())
}

func (h *Handler) Connect(c echo.Context) error {
	w := h.wallet(c)
	if err := w.Connect(c.Request().Context()); err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, w.Status())
}

func (h *Handler) Disconnect(c echo.Context) error {
	w := h.wallet(c)
	w.Disconnect()
	return c.JSON(http.StatusOK, w.Status())
}

func (h *Handler) RefreshBalance(c echo.Context) error {
	w := h.wallet(c)
	w.RefreshBalance(c.Request().Context())
	return c.JSON(http.StatusOK, w.Status())
}

func (h *Handler) ListReceipts(c echo.Context) error {
	items, err := h.receipts.ByUser(c.Request().Context(), viewer(c).UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []ledger.Receipt{}
	}
	return c.JSON(http.StatusOK, items)
}

func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.Validate(req)
}

func (h *Handler) CreateInvoice(c echo.Context) error {
	var req CreateInvoiceParams
	if err := bind(c, &req); err != nil {
		return err
	}
	return h.submit(c, Intent{Kind: KindInvoice, Reference: req.PatientID, Amount: req.Amount}, func(ctx context.Context, w *Wallet) (string, error) {
		return w.CreateInvoice(ctx, req)
	})
}

func (h *Handler) PayInvoice(c echo.Context) error {
	var req PayInvoiceParams
	if err := bind(c, &req); err != nil {
		return err
	}
	return h.submit(c, Intent{Kind: KindPayment, Reference: req.InvoiceID, Amount: req.Amount}, func(ctx context.Context, w *Wallet) (string, error) {
		return w.PayInvoice(ctx, req)
	})
}

func (h *Handler) CreateMedicalRecord(c echo.Context) error {
	var req CreateMedicalRecordParams
	if err := bind(c, &req); err != nil {
		return err
	}
	return h.submit(c, Intent{Kind: KindRecord, Reference: req.PatientID}, func(ctx context.Context, w *Wallet) (string, error) {
		return w.CreateMedicalRecord(ctx, req)
	})
}

func (h *Handler) CreatePrescription(c echo.Context) error {
	var req CreatePrescriptionParams
	if err := bind(c, &req); err != nil {
		return err
	}
	return h.submit(c, Intent{Kind: KindPrescription, Reference: req.PatientID}, func(ctx context.Context, w *Wallet) (string, error) {
		return w.CreatePrescription(ctx, req)
	})
}

// submit runs the checks, executes the transaction, journals its receipt and
// runs the hooks. Journal and hook failures are logged; the transaction is
// already on chain.
func (h *Handler) submit(c echo.Context, in Intent, exec func(context.Context, *Wallet) (string, error)) error {
	ctx := c.Request().Context()
	p := viewer(c)
	for _, check := range h.checks {
		if err := check(ctx, p, in); err != nil {
			return toHTTPError(c, err)
		}
	}
	w := h.wallets.Get(ctx, p)

	digest, err := exec(ctx, w)
	if err != nil {
		return toHTTPError(c, err)
	}

	status := w.Status()
	r := ledger.Receipt{
		Digest:      digest,
		Kind:        in.Kind,
		Reference:   in.Reference,
		Amount:      in.Amount,
		UserID:      p.UserID,
		Address:     status.Address,
		Network:     status.Network,
		ExplorerURL: ExplorerTxURL(digest, status.Network),
		SubmittedAt: h.now().UTC(),
	}
	log := h.logger.With().Str("digest", digest).Str("kind", in.Kind).Str("reference", in.Reference).Logger()
	if err := h.receipts.Append(ctx, r); err != nil {
		log.Error().Err(err).Msg("failed to journal receipt")
	}
	for _, hook := range h.hooks {
		if err := hook(ctx, p, r); err != nil {
			log.Error().Err(err).Msg("submission hook failed")
		}
	}
	log.Info().Str("user_id", p.UserID).Msg("transaction submitted")

	return c.JSON(http.StatusCreated, Submission{Digest: digest, ExplorerURL: r.ExplorerURL})
}
