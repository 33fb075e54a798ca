package notifications

import (
	"context"
	"fmt"

	"github.com/avillareal/marketpay-backend/pkg/db/models"
	pkgerrors "github.com/avillareal/marketpay-backend/pkg/errors"
	"github.com/avillareal/marketpay-backend/pkg/logger"
	"github.com/google/uuid"
)

// Service records payment updates for buyers. Delivery is best effort: the
// payment flow never fails because a notification could not be written.
type Service interface {
	SendPaymentUpdate(ctx context.Context, userID, orderID uuid.UUID, title, message string)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Notification, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires a notifications service with the provided repository.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) SendPaymentUpdate(ctx context.Context, userID, orderID uuid.UUID, title, message string) {
	if userID == uuid.Nil || orderID == uuid.Nil || title == "" {
		return
	}

	notification := &models.Notification{
		UserID:  userID,
		OrderID: orderID,
		Title:   title,
		Message: message,
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		ctx = s.logg.WithOrderID(ctx, orderID.String())
		s.logg.Error(ctx, "failed to record payment notification", err)
	}
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	notifications, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	return notifications, nil
}
