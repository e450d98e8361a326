package controllers

import (
	"net/http"

	"github.com/scentlab/perfumery-backend/api/middleware"
	"github.com/scentlab/perfumery-backend/api/responses"
	"github.com/scentlab/perfumery-backend/api/validators"
	"github.com/scentlab/perfumery-backend/internal/formulas"
	pkgerrors "github.com/scentlab/perfumery-backend/pkg/errors"
	"github.com/scentlab/perfumery-backend/pkg/logger"
)

func formulaServiceUnavailable() error {
	return pkgerrors.New(pkgerrors.CodeInternal, "formula service unavailable")
}

// PerfumeFormulas lists a perfume's formulas with their rating aggregates.
func PerfumeFormulas(svc formulas.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, formulaServiceUnavailable())
			return
		}
		perfumeID, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListByPerfume(r.Context(), perfumeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func FormulaGet(svc formulas.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, formulaServiceUnavailable())
			return
		}
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		formula, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, formula)
	}
}

// FormulaCreate inserts a production formula directly. Admin only.
func FormulaCreate(svc formulas.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, formulaServiceUnavailable())
			return
		}
		var body formulas.FormulaInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		formula, err := svc.Create(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, formula)
	}
}

// FormulaSubmitRequest queues a formula for review, attributing it to the
// caller when a valid token was presented.
func FormulaSubmitRequest(svc formulas.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, formulaServiceUnavailable())
			return
		}
		var body formulas.FormulaInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req, err := svc.SubmitRequest(r.Context(), body, middleware.OptionalUserID(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, req)
	}
}

func FormulaPending(svc formulas.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, formulaServiceUnavailable())
			return
		}
		list, err := svc.ListPending(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func FormulaApprove(svc formulas.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, formulaServiceUnavailable())
			return
		}
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		formula, err := svc.Approve(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logCtx := logg.WithFields(r.Context(), map[string]any{"formula_request_id": id, "formula_id": formula.ID})
			logg.Info(logCtx, "formula.request.approved")
		}
		responses.WriteSuccess(w, formula)
	}
}

func FormulaReject(svc formulas.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, formulaServiceUnavailable())
			return
		}
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req, err := svc.Reject(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, req)
	}
}

func FormulaDelete(svc formulas.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, formulaServiceUnavailable())
			return
		}
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
