package views

import (
	"context"
	"fmt"
	"io"

	"github.com/staffdesk/employee-api/internal/api"
	"github.com/staffdesk/employee-api/internal/api/employee"
)

// RegistrationForm mirrors the sign-up form: the request fields plus the
// client-side password confirmation and an optional profile image.
type RegistrationForm struct {
	Request         employee.RegisterRequest
	ConfirmPassword string

	ImageFilename string
	ImageContent  io.Reader
}

// RegistrationResult reports the outcome of Submit. Account creation and
// image upload are separate steps: a failed upload never undoes the account.
type RegistrationResult struct {
	EmployeeID   int
	ProfileImage string
	// UploadWarning carries the image-upload failure, if any. The account
	// exists regardless.
	UploadWarning error
}

// Registration drives the two-step sign-up flow.
type Registration struct {
	client EmployeeClient
}

func NewRegistration(client EmployeeClient) *Registration {
	return &Registration{client: client}
}

// Submit validates the form locally, creates the account, then best-effort
// uploads the image. Local validation failure means zero service calls.
func (r *Registration) Submit(ctx context.Context, form RegistrationForm) (*RegistrationResult, error) {
	if form.Request.Name == "" {
		return nil, fmt.Errorf("%w: name is required", api.ErrValidation)
	}
	if form.Request.Username == "" {
		return nil, fmt.Errorf("%w: username is required", api.ErrValidation)
	}
	if form.Request.Password == "" {
		return nil, fmt.Errorf("%w: password is required", api.ErrValidation)
	}
	if form.Request.Password != form.ConfirmPassword {
		return nil, fmt.Errorf("%w: passwords do not match", api.ErrValidation)
	}

	id, err := r.client.Register(ctx, form.Request)
	if err != nil {
		return nil, err
	}

	result := &RegistrationResult{EmployeeID: id}
	if form.ImageContent != nil {
		ref, err := r.client.UploadImage(ctx, id, form.ImageFilename, form.ImageContent)
		if err != nil {
			result.UploadWarning = err
		} else {
			result.ProfileImage = ref
		}
	}
	return result, nil
}
