package school

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/warp/school-onboarding/allocation"
)

// SubmitInput is what the onboarding form hands over on submit.
type SubmitInput struct {
	ID                    string `json:"id" validate:"omitempty,max=64"`
	Name                  string `json:"name" validate:"required,max=200"`
	TotalStudentsExpected int    `json:"total_students_expected" validate:"gte=0"`

	Allocations []allocation.SectionAllocation `json:"-"`
}

// Service checks submissions and writes them to a Repository.
type Service struct {
	Repo     Repository
	validate *validator.Validate
	now      func() time.Time
}

func NewService(repo Repository) *Service {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Service{Repo: repo, validate: v, now: time.Now}
}

// Submit validates in and saves it. An over-allocated pool is rejected with
// *allocation.GlobalCapacityWarning; a per-grade overflow with
// *allocation.CapacityExceededError.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*School, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, toValidationError(verrs)
		}
		return nil, err
	}

	store, err := allocation.Restore(in.TotalStudentsExpected, in.Allocations)
	if err != nil {
		return nil, err
	}
	if w := store.Warning(); w != nil {
		return nil, w
	}

	id, created := in.ID, s.now().UTC()
	if id == "" {
		id = uuid.NewString()
	} else {
		// Resubmitting an edited school keeps its original creation time.
		existing, err := s.Repo.Get(ctx, id)
		switch {
		case err == nil:
			created = existing.CreatedAt
		case !IsNotFound(err):
			return nil, err
		}
	}
	sch := School{
		ID:                    id,
		Name:                  in.Name,
		TotalStudentsExpected: in.TotalStudentsExpected,
		Sections:              store.All(),
		Grades:                allocation.Aggregate(store.All()),
		CreatedAt:             created,
	}
	if err := s.Repo.Save(ctx, sch); err != nil {
		return nil, err
	}
	return &sch, nil
}

func (s *Service) Get(ctx context.Context, id string) (*School, error) {
	return s.Repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]School, error) {
	return s.Repo.List(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.Repo.Delete(ctx, id)
}

// Edit reopens a saved school as a fresh panel session over its allocations.
func (s *Service) Edit(ctx context.Context, id string) (*allocation.Controller, *School, error) {
	sch, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	store, err := allocation.Restore(sch.TotalStudentsExpected, sch.Sections)
	if err != nil {
		return nil, nil, err
	}
	return allocation.NewControllerWithStore(store), sch, nil
}

func toValidationError(verrs validator.ValidationErrors) *ValidationError {
	out := &ValidationError{}
	for _, fe := range verrs {
		msg := "is invalid"
		switch fe.Tag() {
		case "required":
			msg = "this field is required"
		case "max":
			msg = "must be at most " + fe.Param() + " characters"
		case "gte":
			msg = "must be " + fe.Param() + " or more"
		}
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Error: msg})
	}
	return out
}
