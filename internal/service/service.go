// Package service holds the application's use cases. Each service owns
// one slice of the domain (accounts, the follow graph, the feed, posts)
// and depends only on the repository interfaces plus the auth, media, and
// mailer collaborators, so every one of them is testable with in-memory
// fakes.
package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sociable/sociable/internal/apperror"
)

// newValidator builds the request validator shared by the services.
func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// validationError converts the first field failure from validator into
// the application taxonomy.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperror.ValidationFailed(fe.Field(),
			fmt.Sprintf("%s failed on the %s rule", fe.Field(), fe.Tag()))
	}
	return apperror.ValidationFailed("", err.Error())
}
