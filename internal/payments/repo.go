package payments

import (
	"context"

	"github.com/avillareal/marketpay-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages persistence for payment intents and their event log.
// The ForUpdate variants take a row lock so concurrent transitions against
// the same intent serialize at the database.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateIntent(ctx context.Context, intent *models.PaymentIntent) error
	FindIntentByID(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error)
	FindIntentByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error)
	FindIntentByOrderID(ctx context.Context, orderID uuid.UUID) (*models.PaymentIntent, error)
	FindIntentByExternalReferenceForUpdate(ctx context.Context, reference string) (*models.PaymentIntent, error)
	UpdateIntent(ctx context.Context, intent *models.PaymentIntent) error
	CreateEvent(ctx context.Context, event *models.PaymentEvent) error
	ListEventsByIntent(ctx context.Context, intentID uuid.UUID) ([]models.PaymentEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateIntent(ctx context.Context, intent *models.PaymentIntent) error {
	if intent.ID == uuid.Nil {
		intent.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(intent).Error
}

func (r *repository) FindIntentByID(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&intent).Error; err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *repository) FindIntentByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&intent).Error; err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *repository) FindIntentByOrderID(ctx context.Context, orderID uuid.UUID) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&intent).Error; err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *repository) FindIntentByExternalReferenceForUpdate(ctx context.Context, reference string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("external_reference = ?", reference).
		First(&intent).Error; err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *repository) UpdateIntent(ctx context.Context, intent *models.PaymentIntent) error {
	return r.db.WithContext(ctx).Save(intent).Error
}

// CreateEvent assigns a time-ordered (v7) id so that sorting on
// created_at, id reproduces append order even when events written in the
// same transaction share a timestamp.
func (r *repository) CreateEvent(ctx context.Context, event *models.PaymentEvent) error {
	if event.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		event.ID = id
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListEventsByIntent(ctx context.Context, intentID uuid.UUID) ([]models.PaymentEvent, error) {
	var events []models.PaymentEvent
	if err := r.db.WithContext(ctx).
		Where("intent_id = ?", intentID).
		Order("created_at ASC, id ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
