package credit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/tillpoint/tillpoint/internal/authz"
	"github.com/tillpoint/tillpoint/internal/observability"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// RepositoryPort defines data access methods for receivables.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, orgID, customerID int64, status string) ([]CreditSale, error)
	Get(ctx context.Context, orgID, id int64) (*CreditSale, error)
}

// PermissionSource resolves the requester's effective permission set.
type PermissionSource interface {
	Resolve(ctx context.Context, role string, userID int64) (authz.PermissionSet, error)
}

// Auditor records payment applications in the audit trail.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles the receivables ledger.
type Service struct {
	repo   RepositoryPort
	perms  PermissionSource
	audit  Auditor
	logger *slog.Logger

	// Metrics counts applied payments; optional.
	Metrics *observability.Metrics
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, perms PermissionSource, audit Auditor, logger *slog.Logger) *Service {
	return &Service{repo: repo, perms: perms, audit: audit, logger: logger}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// PaymentInput carries a repayment request.
type PaymentInput struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Method string  `json:"method" validate:"required,oneof=cash card transfer"`
	Note   string  `json:"note"`
}

// ApplyPayment settles part or all of a receivable. The locked read, the
// balance update, the customer counter and the sale status move in one
// transaction; an overpayment is rejected before anything changes.
func (s *Service) ApplyPayment(ctx context.Context, rc shared.RequestContext, creditSaleID int64, in PaymentInput) (*CreditSale, error) {
	perms, err := s.perms.Resolve(ctx, rc.Role, rc.UserID)
	if err != nil {
		return nil, err
	}
	if rc.Role != authz.RoleAdmin && !perms.Has(authz.PermApplyPayments) {
		return nil, shared.ErrForbidden
	}
	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: payment amount must be positive", shared.ErrValidation)
	}

	var result *CreditSale
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		cs, err := tx.GetCreditSaleForUpdate(ctx, rc.OrganizationID, creditSaleID)
		if err != nil {
			return err
		}
		if cs.Status == StatusPaid {
			return fmt.Errorf("%w: credit sale already settled", shared.ErrConflict)
		}
		amount := round2(in.Amount)
		if amount > cs.Balance {
			return fmt.Errorf("%w: payment %0.2f exceeds balance %0.2f", shared.ErrValidation, amount, cs.Balance)
		}

		newBalance := round2(cs.Balance - amount)
		newPaid := round2(cs.AmountPaid + amount)
		status := StatusPartial
		if newBalance == 0 {
			status = StatusPaid
		}

		payment := &Payment{
			CreditSaleID: creditSaleID,
			Amount:       amount,
			Method:       in.Method,
			Note:         in.Note,
			CreatedBy:    rc.UserID,
		}
		if _, err := tx.InsertPayment(ctx, rc.OrganizationID, payment); err != nil {
			return err
		}
		if err := tx.UpdateCreditSale(ctx, rc.OrganizationID, creditSaleID, newPaid, newBalance, status); err != nil {
			return err
		}
		if err := tx.SubtractCustomerCredit(ctx, rc.OrganizationID, cs.CustomerID, amount); err != nil {
			return err
		}
		// The originating sale stays pending until the receivable is fully
		// settled; partial is a credit_sales status only.
		if status == StatusPaid {
			if err := tx.SetSalePaymentStatus(ctx, rc.OrganizationID, cs.SaleID, StatusPaid); err != nil {
				return err
			}
		}

		cs.AmountPaid = newPaid
		cs.Balance = newBalance
		cs.Status = status
		result = cs
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.Metrics != nil {
		s.Metrics.CountCreditPayment()
	}
	if s.audit != nil {
		if auditErr := s.audit.Record(ctx, shared.AuditLog{
			OrganizationID: rc.OrganizationID,
			ActorID:        rc.UserID,
			Action:         "credit.payment",
			Entity:         "credit_sale",
			EntityID:       strconv.FormatInt(creditSaleID, 10),
			Meta:           map[string]any{"amount": in.Amount, "balance": result.Balance, "status": result.Status},
		}); auditErr != nil && s.logger != nil {
			s.logger.Warn("audit write failed", slog.Any("error", auditErr))
		}
	}
	return result, nil
}

// List returns a tenant's credit sales with optional customer and status
// filters.
func (s *Service) List(ctx context.Context, rc shared.RequestContext, customerID int64, status string) ([]CreditSale, error) {
	switch status {
	case "", StatusPending, StatusPartial, StatusPaid:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", shared.ErrValidation, status)
	}
	return s.repo.List(ctx, rc.OrganizationID, customerID, status)
}

// Get returns one credit sale with its payment history.
func (s *Service) Get(ctx context.Context, rc shared.RequestContext, id int64) (*CreditSale, error) {
	return s.repo.Get(ctx, rc.OrganizationID, id)
}
