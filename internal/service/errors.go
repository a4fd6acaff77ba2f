package service

import (
	"database/sql"
	"errors"

	appErrors "github.com/noah-isme/staff-records-api/pkg/errors"
)

// storeError maps a repository failure to a typed error. Missing rows become ErrNotFound with
// notFound as message, typed errors pass through, anything else is internal.
func storeError(err error, notFound, internal string) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if notFound != "" && errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Internal(err, internal)
}
