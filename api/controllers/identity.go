package controllers

import (
	"net/http"

	"github.com/scentlab/perfumery-backend/api/middleware"
	pkgerrors "github.com/scentlab/perfumery-backend/pkg/errors"
)

func requireUserID(r *http.Request) (int64, error) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return userID, nil
}

// unavailable is reported when the router was built without a service.
func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" unavailable")
}
