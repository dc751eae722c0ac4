package views

import (
	"context"
	"io"

	"github.com/staffdesk/employee-api/internal/api/employee"
)

// EmployeeClient is the narrow gateway the view state machines talk through.
// It mirrors the HTTP surface from the caller's side; the server still
// enforces authorization regardless of what the client believes.
type EmployeeClient interface {
	Register(ctx context.Context, req employee.RegisterRequest) (int, error)
	GetByID(ctx context.Context, id int) (*employee.Employee, error)
	GetAll(ctx context.Context) ([]employee.Employee, error)
	Update(ctx context.Context, id int, req employee.UpdateEmployeeRequest) (int, error)
	UploadImage(ctx context.Context, id int, filename string, content io.Reader) (string, error)
}
