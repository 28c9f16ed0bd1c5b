package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"workshop/internal/events"
	"workshop/internal/logger"
	"workshop/internal/model"
	"workshop/internal/repository"
	"workshop/pkg/pagination"

	"github.com/shopspring/decimal"
)

// --- DTOs ---

type InvoiceItemRequest struct {
	Kind        string `json:"kind" binding:"required,oneof=part labor"`
	Description string `json:"description" binding:"required"`
	Quantity    string `json:"quantity"` // Optional, defaults to 1
	UnitPrice   string `json:"unit_price" binding:"required"`
}

type CreateInvoiceRequest struct {
	CustomerName    string               `json:"customer_name" binding:"required"`
	CustomerPhone   string               `json:"customer_phone"`
	CustomerEmail   string               `json:"customer_email"`
	VehiclePlate    string               `json:"vehicle_plate"`
	WorkDescription string               `json:"work_description"`
	Items           []InvoiceItemRequest `json:"items" binding:"required,min=1,dive"`
	DiscountPercent string               `json:"discount_percent"` // Optional, 0-100
	Deposit         string               `json:"deposit"`          // Optional: money already taken at the counter
	DepositMethod   string               `json:"deposit_method" binding:"omitempty,oneof=cash transfer cheque card"`
	RequestDeposit  string               `json:"request_deposit"` // Optional: deposit to collect through a payment link
	Note            string               `json:"note"`
}

type InvoiceFilter struct {
	PaymentStatus string // pending, deposit-paid, paid or empty for all
	InvoiceNo     string // partial match on invoice_no
	Search        string // partial match on customer name or plate
	Sort          pagination.Sort
	Page          int
	Limit         int
}

type InvoiceItemResponse struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
}

type InvoiceResponse struct {
	ID               string                `json:"id"`
	InvoiceNo        string                `json:"invoice_no"`
	CustomerName     string                `json:"customer_name"`
	CustomerPhone    string                `json:"customer_phone"`
	CustomerEmail    string                `json:"customer_email"`
	VehiclePlate     string                `json:"vehicle_plate"`
	WorkDescription  string                `json:"work_description"`
	Items            []InvoiceItemResponse `json:"items,omitempty"`
	Subtotal         string                `json:"subtotal"`
	DiscountPercent  string                `json:"discount_percent"`
	DiscountAmount   string                `json:"discount_amount"`
	Total            string                `json:"total"`
	Deposit          string                `json:"deposit"`
	BalanceDue       string                `json:"balance_due"`
	RequestedDeposit string                `json:"requested_deposit"`
	PaymentStatus    string                `json:"payment_status"`
	DepositStatus    string                `json:"deposit_status"`
	PaymentState     string                `json:"payment_state"`
	LastPaymentLink  string                `json:"last_payment_link"`
	LastPaymentID    string                `json:"last_payment_id"`
	LastPaymentAt    *string               `json:"last_payment_at"`
	Payments         []PaymentResponse     `json:"payments,omitempty"`
	Version          int                   `json:"version"`
	Note             string                `json:"note"`
	CreatedBy        string                `json:"created_by"`
	CreatedAt        string                `json:"created_at"`
}

// InvoiceSnapshot is one refresh of a watched invoice list.
type InvoiceSnapshot struct {
	Cause    string            `json:"cause"` // "initial" or the event type that triggered the refresh
	Invoices []InvoiceResponse `json:"invoices"`
	Total    int64             `json:"total"`
}

// --- Interface ---

type InvoiceService interface {
	CreateInvoice(ctx context.Context, userID string, req CreateInvoiceRequest) (InvoiceResponse, error)
	GetInvoice(ctx context.Context, id string) (InvoiceResponse, error)
	GetInvoiceByNumber(ctx context.Context, invoiceNo string) (InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceResponse, int64, error)
	DeleteInvoice(ctx context.Context, id string, userID string) error
	// WatchInvoices emits a snapshot straight away and a fresh one after every
	// invoice event. The channel closes when ctx is done.
	WatchInvoices(ctx context.Context, filter InvoiceFilter) (<-chan InvoiceSnapshot, error)
}

type invoiceService struct {
	ledger
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	feed events.Feed,
	log *logger.Logger,
) InvoiceService {
	return &invoiceService{
		ledger: ledger{
			invoiceRepo: invoiceRepo,
			auditRepo:   auditRepo,
			txManager:   txManager,
			feed:        feed,
			logger:      log,
		},
	}
}

// --- Implementation ---

func (s *invoiceService) CreateInvoice(ctx context.Context, userID string, req CreateInvoiceRequest) (InvoiceResponse, error) {
	items := make([]model.InvoiceItem, 0, len(req.Items))
	for i, it := range req.Items {
		quantity := decimal.NewFromInt(1)
		if it.Quantity != "" {
			q, err := parseAmount(fmt.Sprintf("items[%d].quantity", i), it.Quantity)
			if err != nil {
				return InvoiceResponse{}, err
			}
			quantity = q
		}
		price, err := parseAmount(fmt.Sprintf("items[%d].unit_price", i), it.UnitPrice)
		if err != nil {
			return InvoiceResponse{}, err
		}
		if !quantity.IsPositive() || price.IsNegative() {
			return InvoiceResponse{}, fmt.Errorf("%w: items[%d] needs a positive quantity and a non-negative price", model.ErrValidation, i)
		}

		items = append(items, model.InvoiceItem{
			Kind:        it.Kind,
			Description: it.Description,
			Quantity:    quantity,
			UnitPrice:   price,
			LineTotal:   model.LineTotal(quantity, price),
		})
	}

	discountPct, err := parseOptionalAmount("discount_percent", req.DiscountPercent)
	if err != nil {
		return InvoiceResponse{}, err
	}
	if discountPct.IsNegative() || discountPct.GreaterThan(decimal.NewFromInt(100)) {
		return InvoiceResponse{}, fmt.Errorf("%w: discount_percent must be between 0 and 100", model.ErrValidation)
	}

	deposit, err := parseOptionalAmount("deposit", req.Deposit)
	if err != nil {
		return InvoiceResponse{}, err
	}
	requestDeposit, err := parseOptionalAmount("request_deposit", req.RequestDeposit)
	if err != nil {
		return InvoiceResponse{}, err
	}
	if deposit.IsNegative() || requestDeposit.IsNegative() {
		return InvoiceResponse{}, fmt.Errorf("%w: deposit amounts must not be negative", model.ErrValidation)
	}

	subtotal, discount, total := model.ComputeTotals(items, discountPct)
	if deposit.GreaterThan(total) {
		return InvoiceResponse{}, fmt.Errorf("%w: deposit %s exceeds total %s", model.ErrValidation, deposit.StringFixed(2), total.StringFixed(2))
	}

	invoiceNo, err := s.generateInvoiceNo(ctx)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("failed to generate invoice number: %w", err)
	}

	invoice := model.Invoice{
		InvoiceNo:       invoiceNo,
		CustomerName:    req.CustomerName,
		CustomerPhone:   CleanPhone(req.CustomerPhone),
		CustomerEmail:   req.CustomerEmail,
		VehiclePlate:    req.VehiclePlate,
		WorkDescription: req.WorkDescription,
		Items:           items,
		Subtotal:        subtotal,
		DiscountPercent: discountPct,
		DiscountAmount:  discount,
		Total:           total,
		DepositStatus:   model.DepositNone,
		Version:         1,
		Note:            req.Note,
		CreatedBy:       userID,
	}
	invoice.Recompute()

	var payment *model.InvoicePayment
	switch {
	case deposit.IsPositive():
		method := model.PaymentMethod(req.DepositMethod)
		if method == "" {
			method = model.MethodCash
		}
		if err := invoice.ApplyPayment(deposit, model.SourceOffline); err != nil {
			return InvoiceResponse{}, err
		}
		now := time.Now()
		invoice.LastPaymentAt = &now
		payment = &model.InvoicePayment{
			Amount:     deposit.Round(2),
			Method:     method,
			Source:     model.SourceOffline,
			RecordedBy: actorOrSystem(userID),
			Note:       "deposit taken at invoice creation",
		}
	case requestDeposit.IsPositive():
		invoice.RequestDeposit(requestDeposit)
	}

	if err := invoice.Validate(); err != nil {
		return InvoiceResponse{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.invoiceRepo.Create(txCtx, &invoice); err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}
		if payment != nil {
			payment.InvoiceID = invoice.ID
			if err := s.invoiceRepo.AppendPayment(txCtx, payment); err != nil {
				return fmt.Errorf("failed to record deposit: %w", err)
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"customer_name":  invoice.CustomerName,
			"vehicle_plate":  invoice.VehiclePlate,
			"total":          invoice.Total.StringFixed(2),
			"deposit":        invoice.Deposit.StringFixed(2),
			"deposit_status": invoice.DepositStatus,
		})
		if err := s.auditRepo.Log(txCtx, &model.AuditLog{
			Actor:      actorOrSystem(userID),
			Action:     model.ActionCreateInvoice,
			EntityID:   invoice.ID.String(),
			EntityName: invoice.InvoiceNo,
			Details:    string(details),
		}); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	s.publish(ctx, events.InvoiceCreated, &invoice)

	reloaded, err := s.invoiceRepo.FindByIDWithDetails(ctx, invoice.ID)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("failed to reload invoice: %w", err)
	}
	return toInvoiceResponse(*reloaded), nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (InvoiceResponse, error) {
	invoiceID, err := parseInvoiceID(id)
	if err != nil {
		return InvoiceResponse{}, err
	}

	invoice, err := s.invoiceRepo.FindByIDWithDetails(ctx, invoiceID)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("invoice not found: %w", err)
	}
	return toInvoiceResponse(*invoice), nil
}

func (s *invoiceService) GetInvoiceByNumber(ctx context.Context, invoiceNo string) (InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByNumber(ctx, invoiceNo)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("invoice %s not found: %w", invoiceNo, err)
	}
	return toInvoiceResponse(*invoice), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceResponse, int64, error) {
	page := pagination.Normalize(filter.Page, filter.Limit)
	filter.Page, filter.Limit = page.Page, page.Limit
	sort := filter.Sort.Within(pagination.InvoiceSortFields, pagination.DefaultInvoiceSort)

	invoices, total, err := s.invoiceRepo.List(ctx, repository.InvoiceListFilter{
		PaymentStatus: filter.PaymentStatus,
		InvoiceNo:     filter.InvoiceNo,
		Search:        filter.Search,
		OrderBy:       sort.Clause(),
		Page:          filter.Page,
		Limit:         filter.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch invoices: %w", err)
	}

	result := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		result = append(result, toInvoiceResponse(inv))
	}
	return result, total, nil
}

func (s *invoiceService) DeleteInvoice(ctx context.Context, id string, userID string) error {
	invoiceID, err := parseInvoiceID(id)
	if err != nil {
		return err
	}

	var invoice *model.Invoice
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		invoice, findErr = s.invoiceRepo.FindByID(txCtx, invoiceID)
		if findErr != nil {
			return fmt.Errorf("invoice not found: %w", findErr)
		}

		if err := s.invoiceRepo.Delete(txCtx, invoiceID); err != nil {
			return fmt.Errorf("failed to delete invoice: %w", err)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"total":          invoice.Total.StringFixed(2),
			"deposit":        invoice.Deposit.StringFixed(2),
			"payment_status": invoice.PaymentStatus,
		})
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			Actor:      actorOrSystem(userID),
			Action:     model.ActionDeleteInvoice,
			EntityID:   invoice.ID.String(),
			EntityName: invoice.InvoiceNo,
			Details:    string(details),
		})
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.InvoiceDeleted, invoice)
	return nil
}

func (s *invoiceService) WatchInvoices(ctx context.Context, filter InvoiceFilter) (<-chan InvoiceSnapshot, error) {
	if s.feed == nil {
		return nil, errors.New("invoice feed is not configured")
	}

	feed, err := s.feed.Subscribe(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to invoice events: %w", err)
	}

	initial, err := s.snapshot(ctx, filter, "initial")
	if err != nil {
		return nil, err
	}

	out := make(chan InvoiceSnapshot, 1)
	out <- initial

	go func() {
		defer close(out)
		for event := range feed {
			snap, err := s.snapshot(ctx, filter, string(event.Type))
			if err != nil {
				s.logger.Warnw("failed to refresh invoice snapshot", "event", event.Type, "error", err)
				continue
			}
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (s *invoiceService) snapshot(ctx context.Context, filter InvoiceFilter, cause string) (InvoiceSnapshot, error) {
	invoices, total, err := s.ListInvoices(ctx, filter)
	if err != nil {
		return InvoiceSnapshot{}, err
	}
	return InvoiceSnapshot{Cause: cause, Invoices: invoices, Total: total}, nil
}

func (s *invoiceService) generateInvoiceNo(ctx context.Context) (string, error) {
	today := time.Now().Format("20060102")
	prefix := "INV-" + today + "-"

	count, err := s.invoiceRepo.CountByPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

// --- Mapping ---

func toInvoiceResponse(inv model.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:               inv.ID.String(),
		InvoiceNo:        inv.InvoiceNo,
		CustomerName:     inv.CustomerName,
		CustomerPhone:    inv.CustomerPhone,
		CustomerEmail:    inv.CustomerEmail,
		VehiclePlate:     inv.VehiclePlate,
		WorkDescription:  inv.WorkDescription,
		Subtotal:         inv.Subtotal.StringFixed(2),
		DiscountPercent:  inv.DiscountPercent.StringFixed(2),
		DiscountAmount:   inv.DiscountAmount.StringFixed(2),
		Total:            inv.Total.StringFixed(2),
		Deposit:          inv.Deposit.StringFixed(2),
		BalanceDue:       inv.BalanceDue.StringFixed(2),
		RequestedDeposit: inv.RequestedDeposit.StringFixed(2),
		PaymentStatus:    string(inv.PaymentStatus),
		DepositStatus:    string(inv.DepositStatus),
		PaymentState:     string(inv.State()),
		LastPaymentLink:  inv.LastPaymentLink,
		LastPaymentID:    inv.LastPaymentID,
		Version:          inv.Version,
		Note:             inv.Note,
		CreatedBy:        inv.CreatedBy,
		CreatedAt:        inv.CreatedAt.Format(time.RFC3339),
	}

	if inv.LastPaymentAt != nil {
		s := inv.LastPaymentAt.Format(time.RFC3339)
		resp.LastPaymentAt = &s
	}
	for _, item := range inv.Items {
		resp.Items = append(resp.Items, InvoiceItemResponse{
			Kind:        item.Kind,
			Description: item.Description,
			Quantity:    item.Quantity.String(),
			UnitPrice:   item.UnitPrice.StringFixed(2),
			LineTotal:   item.LineTotal.StringFixed(2),
		})
	}
	for _, p := range inv.Payments {
		resp.Payments = append(resp.Payments, toPaymentResponse(p))
	}

	return resp
}
