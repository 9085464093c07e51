package fetch

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"commodash/internal/domain"
)

// ErrValidation is wrapped by every freight form rejection.
var ErrValidation = errors.New("validation failed")

// ValidationError carries the user-facing message of a rejected form.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return ErrValidation }

// FreightForm is the raw user input; Weight is kept as typed.
type FreightForm struct {
	Origin      string `validate:"required"`
	Destination string `validate:"required"`
	Commodity   string `validate:"required"`
	Weight      string `validate:"required"`
}

// FreightRequest is a validated quote request.
type FreightRequest struct {
	Origin      string  `validate:"required"`
	Destination string  `validate:"required,nefield=Origin"`
	Commodity   string  `validate:"required"`
	WeightTons  float64 `validate:"gt=0"`
}

var validate = validator.New()

// Validate checks form synchronously. Rules apply in order: all fields
// present, weight a positive number, origin different from destination.
func (form FreightForm) Validate() (FreightRequest, error) {
	form.Origin = strings.TrimSpace(form.Origin)
	form.Destination = strings.TrimSpace(form.Destination)
	form.Commodity = strings.TrimSpace(form.Commodity)
	form.Weight = strings.TrimSpace(form.Weight)

	if err := validate.Struct(form); err != nil {
		return FreightRequest{}, &ValidationError{Message: "Please fill in all fields"}
	}
	w, err := strconv.ParseFloat(form.Weight, 64)
	if err != nil || math.IsInf(w, 0) {
		return FreightRequest{}, &ValidationError{Message: "Weight must be a positive number"}
	}

	req := FreightRequest{
		Origin:      form.Origin,
		Destination: form.Destination,
		Commodity:   form.Commodity,
		WeightTons:  w,
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Field() == "WeightTons" {
					return FreightRequest{}, &ValidationError{Message: "Weight must be a positive number"}
				}
			}
			for _, fe := range verrs {
				if fe.Tag() == "nefield" {
					return FreightRequest{}, &ValidationError{Message: "Origin and destination must be different"}
				}
			}
		}
		return FreightRequest{}, &ValidationError{Message: "Please fill in all fields"}
	}
	return req, nil
}

// FreightView requests quotes imperatively. Every Submit that passes
// validation issues a request, even for unchanged inputs.
type FreightView struct {
	*Fetcher[FreightRequest, *domain.FreightQuote]
}

// NewFreightView creates a freight view.
func NewFreightView(ctx context.Context, api API, log *slog.Logger) *FreightView {
	load := func(ctx context.Context, r FreightRequest) (*domain.FreightQuote, error) {
		return api.FreightQuote(ctx, r.Origin, r.Destination, r.Commodity, r.WeightTons)
	}
	return &FreightView{NewFetcher(ctx, "freight", load, log)}
}

// Submit validates form and, if it passes, starts a quote request. A
// rejected form makes no network call and leaves the view untouched.
func (v *FreightView) Submit(form FreightForm) (uint64, Notice, error) {
	req, err := form.Validate()
	if err != nil {
		return 0, failure(err.Error()), err
	}
	seq, started := v.Set(req)
	if !started {
		seq, _ = v.Reload()
	}
	return seq, Notice{}, nil
}

// Outcome maps a resolved request to its notice.
func (v *FreightView) Outcome(st State[FreightRequest, *domain.FreightQuote]) Notice {
	switch st.Status {
	case Ready:
		return success("Quote calculated successfully")
	case Failed:
		return failure("Failed to calculate quote")
	default:
		return Notice{}
	}
}
