package authorization

import (
	"errors"

	"github.com/madcarpet/dreamweaver/internal/models"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrOwnershipMismatch = errors.New("identity does not own the resource")
	ErrReservedClaim     = errors.New("payload contains a reserved claim")
)

type Authorizer interface {
	ProduceToken(payload models.Identity) (string, error)
	VerifyToken(ts string) (models.Identity, error)
}

// CheckOwner returns nil when the identity email is exactly the owner email
func CheckOwner(identity models.Identity, owner string) error {
	email, ok := identity.Email()
	if !ok || email != owner {
		return ErrOwnershipMismatch
	}
	return nil
}
