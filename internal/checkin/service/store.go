package service

import (
	"context"

	"eventdesk/internal/checkin/models"
	eventmodels "eventdesk/internal/event/models"
	regmodels "eventdesk/internal/registration/models"
	id "eventdesk/pkg/domain"
)

// Store is the check-in persistence contract. Inside RunInTx,
// FindRegistrationByCode locks the registration until the transaction ends.
// Create returns sentinel.ErrAlreadyUsed when the registration already has a
// check-in.
type Store interface {
	FindRegistrationByCode(ctx context.Context, code string) (*regmodels.Registration, error)
	FindRegistrationByID(ctx context.Context, registrationID id.RegistrationID) (*regmodels.Registration, error)
	FindEvent(ctx context.Context, eventID id.EventID) (*eventmodels.Event, error)

	FindByRegistration(ctx context.Context, registrationID id.RegistrationID) (*models.CheckIn, error)
	Create(ctx context.Context, checkIn *models.CheckIn) error
	DeleteByRegistration(ctx context.Context, registrationID id.RegistrationID) error

	ListByEvent(ctx context.Context, eventID id.EventID, filter models.Filter) ([]*models.CheckIn, error)
	SearchRegistrations(ctx context.Context, eventID id.EventID, scope regmodels.Scope) ([]*regmodels.Registration, error)
	Stats(ctx context.Context, eventID id.EventID) (*models.Stats, error)
}

// StoreTx provides the transactional boundary for one check-in attempt.
// Implementations wrap a database transaction or, in memory, a sharded lock.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}
