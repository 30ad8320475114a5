// Package identity maps external identity assertions onto user records.
package identity

import (
	"context"
	"errors"

	"serwis-uzytkownikow/internal/database"
	"serwis-uzytkownikow/internal/models"
)

var (
	ErrInvalidAssertion = errors.New("identity assertion is missing an email")
	ErrIdentityVanished = errors.New("identity record disappeared during login")
)

// UserStore is the slice of the database the resolver needs. The uniqueness
// constraint on (provider, provider_user_id) behind CreateUser is the
// authoritative guard against concurrent first logins; the lookup here only
// avoids a pointless insert attempt.
type UserStore interface {
	GetUserByProviderIdentity(ctx context.Context, provider, providerUserID string) (*models.User, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (*models.User, error)
}

type Resolver struct {
	store UserStore
}

func NewResolver(store UserStore) *Resolver {
	return &Resolver{store: store}
}

// ResolveOrCreate returns the user owning the given provider identity,
// creating one with default role and quota on first sight. Values recorded at
// first login persist: a repeated login never updates email, role or quota.
func (r *Resolver) ResolveOrCreate(ctx context.Context, provider, providerUserID, email string) (*models.User, error) {
	if email == "" {
		return nil, ErrInvalidAssertion
	}

	user, err := r.store.GetUserByProviderIdentity(ctx, provider, providerUserID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	user, err = r.store.CreateUser(ctx, database.CreateUserParams{
		Email:          email,
		Provider:       provider,
		ProviderUserID: &providerUserID,
		Role:           models.RoleUser,
		Quota:          models.DefaultQuota,
	})
	if err != nil {
		// A concurrent login for the same identity won the insert race.
		if errors.Is(err, database.ErrDuplicateProviderIdentity) {
			winner, lookupErr := r.store.GetUserByProviderIdentity(ctx, provider, providerUserID)
			if lookupErr != nil {
				return nil, lookupErr
			}
			// The winning row was deleted before the re-read; a caller must
			// never receive a nil user without an error.
			if winner == nil {
				return nil, ErrIdentityVanished
			}
			return winner, nil
		}
		return nil, err
	}

	return user, nil
}
