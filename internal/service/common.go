package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"pharmacy/internal/model"
	"pharmacy/internal/repository"
	"pharmacy/pkg/actor"
	"pharmacy/pkg/apperror"
	"pharmacy/pkg/pagination"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Settings carries the tunables shared by the inventory services.
type Settings struct {
	OperationTimeout  time.Duration
	LowStockThreshold int
	ExpiringSoonDays  int
	Now               func() time.Time
}

// DefaultSettings mirrors the configuration defaults.
func DefaultSettings() Settings {
	return Settings{
		OperationTimeout:  10 * time.Second,
		LowStockThreshold: 10,
		ExpiringSoonDays:  30,
		Now:               func() time.Time { return time.Now().UTC() },
	}
}

func (s Settings) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s Settings) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.OperationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.OperationTimeout)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	ConfigureValidator(v)
	return v
}

// ConfigureValidator makes v read `binding` tags and report json field names,
// so gin's binding engine and the services agree on error details.
func ConfigureValidator(v *validator.Validate) {
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ValidationError converts validator failures into an apperror with field details.
func ValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.ValidationField("body", err.Error())
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fieldPath(fe.Namespace())] = describe(fe)
	}
	return apperror.Validation(details)
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	}
	return fmt.Sprintf("failed on '%s'", fe.Tag())
}

func validateStruct(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		return ValidationError(err)
	}
	return nil
}

// nonNegative returns a validation error for negative amounts. nil amounts pass.
func nonNegative(field string, d *decimal.Decimal) error {
	if d != nil && d.IsNegative() {
		return apperror.ValidationField(field, "must not be negative")
	}
	return nil
}

func decimalOr(d *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if d == nil {
		return fallback
	}
	return *d
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperror.ValidationField(field, "must be a valid UUID")
	}
	return id, nil
}

// storeError maps repository errors to the taxonomy. Errors that already carry
// a kind pass through unchanged.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Persistence(fmt.Errorf("failed to %s: %w", op, err))
}

// lookupError reports a missing record as NotFound(resource).
func lookupError(resource string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(resource)
	}
	return storeError("load "+resource, err)
}

// syncActor validates the acting user and refreshes its mirror row.
func syncActor(ctx context.Context, users repository.UserRepository, a actor.Actor) error {
	if strings.TrimSpace(a.ID) == "" {
		return apperror.ValidationField("actor", "acting user is required")
	}
	user := &model.User{
		ID:        a.ID,
		FirstName: strings.TrimSpace(a.FirstName),
		LastName:  strings.TrimSpace(a.LastName),
		Email:     a.Email,
		Role:      a.Role,
	}
	return storeError("sync acting user", users.Upsert(ctx, user))
}

func normalizePage(page, limit int) (int, int) {
	p := pagination.New(page, limit)
	return p.Page, p.Limit
}
