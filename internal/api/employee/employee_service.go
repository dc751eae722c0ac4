package employee

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/staffdesk/employee-api/internal/api"
)

const minPasswordLength = 6

// Field length bounds enforced before any store call.
const (
	maxNameLength        = 100
	maxDesignationLength = 100
	maxAddressLength     = 255
	maxDepartmentLength  = 100
	maxSkillsetLength    = 500
	maxUsernameLength    = 100
)

var _ EmployeeService = (*EmployeeServiceImpl)(nil)

// TokenIssuer mints the access token returned on login. Implemented by the
// auth package; injected so this package stays transport-agnostic.
type TokenIssuer interface {
	GenerateAccessToken(employeeID int, username, role string) (string, error)
}

// RoleSource resolves an employee id to the role currently stored for it.
// The service uses it to re-validate authorization on every mutating call
// instead of trusting the client-declared role. Invalidate drops any cached
// answer; the service calls it whenever it writes a role change so the old
// role cannot outlive the write.
type RoleSource interface {
	RoleByID(ctx context.Context, employeeID int) (string, error)
	Invalidate(employeeID int)
}

// EmployeeService owns the employee entity contract: login, registration,
// reads, partial update with merge, status toggle and image attachment.
type EmployeeService interface {
	// Authenticate verifies credentials and returns the reduced login
	// projection plus an access token. Unknown username and bad password
	// collapse into the same api.ErrUnauthenticated.
	Authenticate(ctx context.Context, username, password string) (*LoginResponse, error)

	// Register creates a new account and returns the store-assigned id.
	Register(ctx context.Context, req RegisterRequest) (int, error)

	GetByID(ctx context.Context, id int) (*Employee, error)
	GetAll(ctx context.Context) ([]Employee, error)

	// Update applies a partial field set with merge-on-update semantics:
	// supplied fields are applied as given, omitted fields keep their stored
	// value. Returns the updated-row count; 0 signals not found.
	Update(ctx context.Context, id int, req UpdateEmployeeRequest, sess api.Session, modifiedBy string) (int, error)

	// SetStatus is the Active/Inactive toggle convenience path; it follows
	// the same merge-then-write discipline as Update.
	SetStatus(ctx context.Context, id int, status string, sess api.Session, modifiedBy string) (int, error)

	// AttachProfileImage stores the asset reference for an employee. It is
	// independent of other updates and deliberately best-effort for the
	// registration flow.
	AttachProfileImage(ctx context.Context, id int, assetRef string) error

	// Delete removes a record. Admin only; unused by the view flows.
	Delete(ctx context.Context, id int, sess api.Session) (int, error)
}

type EmployeeServiceImpl struct {
	logger *slog.Logger
	repo   EmployeeRepo
	tokens TokenIssuer
	roles  RoleSource
}

func NewEmployeeService(repo EmployeeRepo, tokens TokenIssuer, roles RoleSource, logger *slog.Logger) *EmployeeServiceImpl {
	return &EmployeeServiceImpl{
		logger: logger,
		repo:   repo,
		tokens: tokens,
		roles:  roles,
	}
}

func (s *EmployeeServiceImpl) Authenticate(ctx context.Context, username, password string) (*LoginResponse, error) {
	l := s.logger.With(slog.String("method", "Authenticate"), slog.String("username", username))

	emp, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		// Unknown username and bad password are deliberately the same
		// rejection; do not leak which one it was.
		if !errors.Is(err, api.ErrNotFound) {
			l.ErrorContext(ctx, "Credential lookup failed", slog.Any("error", err))
		}
		return nil, api.ErrUnauthenticated
	}

	if err := bcrypt.CompareHashAndPassword([]byte(emp.PasswordHash), []byte(password)); err != nil {
		return nil, api.ErrUnauthenticated
	}

	token, err := s.tokens.GenerateAccessToken(emp.EmployeeID, emp.Username, emp.Role)
	if err != nil {
		l.ErrorContext(ctx, "Failed to generate access token", slog.Any("error", err))
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	l.InfoContext(ctx, "Login successful", slog.Int("employee_id", emp.EmployeeID))
	return &LoginResponse{
		EmployeeID:   emp.EmployeeID,
		Name:         emp.Name,
		Username:     emp.Username,
		Role:         emp.Role,
		Status:       emp.Status,
		ProfileImage: emp.ProfileImage,
		Token:        token,
	}, nil
}

func (s *EmployeeServiceImpl) Register(ctx context.Context, req RegisterRequest) (int, error) {
	l := s.logger.With(slog.String("method", "Register"), slog.String("username", req.Username))

	if err := validateRegisterRequest(req); err != nil {
		return 0, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	role := req.Role
	if role == "" {
		role = api.RoleEmployee
	}
	status := req.Status
	if status == "" {
		status = api.StatusActive
	}
	createdBy := req.CreatedBy
	if createdBy == "" {
		createdBy = "Self"
	}

	emp := &Employee{
		Name:         req.Name,
		Designation:  req.Designation,
		Address:      req.Address,
		Department:   req.Department,
		JoiningDate:  req.JoiningDate,
		Skillset:     req.Skillset,
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         role,
		Status:       status,
		CreatedBy:    &createdBy,
	}

	id, err := s.repo.Register(ctx, emp)
	if err != nil {
		if errors.Is(err, api.ErrConflict) {
			return 0, fmt.Errorf("username %q is already taken: %w", req.Username, api.ErrConflict)
		}
		l.ErrorContext(ctx, "Failed to register employee", slog.Any("error", err))
		return 0, err
	}

	l.InfoContext(ctx, "Employee registered", slog.Int("employee_id", id))
	return id, nil
}

func (s *EmployeeServiceImpl) GetByID(ctx context.Context, id int) (*Employee, error) {
	emp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// The hash never leaves the service boundary on reads.
	emp.PasswordHash = ""
	return emp, nil
}

func (s *EmployeeServiceImpl) GetAll(ctx context.Context) ([]Employee, error) {
	employees, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range employees {
		employees[i].PasswordHash = ""
	}
	return employees, nil
}

func (s *EmployeeServiceImpl) Update(ctx context.Context, id int, req UpdateEmployeeRequest, sess api.Session, modifiedBy string) (int, error) {
	l := s.logger.With(slog.String("method", "Update"),
		slog.Int("employeeID", id), slog.Int("requestedBy", sess.EmployeeID))

	if err := s.authorizeMutation(ctx, id, req, sess); err != nil {
		return 0, err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return 0, api.ErrNotFound
		}
		return 0, fmt.Errorf("read current record: %w", err)
	}

	merged, err := mergeUpdate(current, req)
	if err != nil {
		return 0, err
	}

	if modifiedBy == "" {
		modifiedBy = "System"
	}
	merged.ModifiedBy = &modifiedBy

	ok, err := s.repo.Update(ctx, merged)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update employee", slog.Any("error", err))
		return 0, err
	}
	if !ok {
		return 0, nil
	}

	// A role change must take effect on the next request, not after the
	// cache TTL runs out.
	if req.Role != nil {
		s.roles.Invalidate(id)
	}

	l.InfoContext(ctx, "Employee updated")
	return 1, nil
}

func (s *EmployeeServiceImpl) SetStatus(ctx context.Context, id int, status string, sess api.Session, modifiedBy string) (int, error) {
	return s.Update(ctx, id, UpdateEmployeeRequest{Status: &status}, sess, modifiedBy)
}

func (s *EmployeeServiceImpl) AttachProfileImage(ctx context.Context, id int, assetRef string) error {
	l := s.logger.With(slog.String("method", "AttachProfileImage"), slog.Int("employeeID", id))

	var ref *string
	if assetRef != "" {
		ref = &assetRef
	}
	if err := s.repo.SetProfileImage(ctx, id, ref); err != nil {
		l.ErrorContext(ctx, "Failed to store profile image path", slog.Any("error", err))
		return err
	}
	return nil
}

func (s *EmployeeServiceImpl) Delete(ctx context.Context, id int, sess api.Session) (int, error) {
	storedRole, err := s.roles.RoleByID(ctx, sess.EmployeeID)
	if err != nil {
		return 0, fmt.Errorf("resolve requester role: %w", err)
	}
	if storedRole != api.RoleAdmin {
		return 0, api.ErrForbidden
	}

	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	s.roles.Invalidate(id)
	return 1, nil
}

// authorizeMutation enforces the write matrix: an admin (per the stored role,
// not the client-declared one) may change any record including status and
// role; an owner may change only their own profile fields.
func (s *EmployeeServiceImpl) authorizeMutation(ctx context.Context, targetID int, req UpdateEmployeeRequest, sess api.Session) error {
	storedRole, err := s.roles.RoleByID(ctx, sess.EmployeeID)
	if err != nil {
		return fmt.Errorf("resolve requester role: %w", err)
	}
	if storedRole == api.RoleAdmin {
		return nil
	}

	if targetID != sess.EmployeeID {
		return api.ErrForbidden
	}
	if req.Status != nil || req.Role != nil {
		return api.ErrForbidden
	}
	return nil
}

// mergeUpdate splices the supplied fields into the current record and
// validates the result. Fields the caller omitted keep their stored value;
// clearable fields sent as explicit null are cleared.
func mergeUpdate(current *Employee, req UpdateEmployeeRequest) (*Employee, error) {
	merged := *current

	if req.Name != nil {
		if *req.Name == "" {
			return nil, fmt.Errorf("name must not be empty: %w", api.ErrValidation)
		}
		if utf8.RuneCountInString(*req.Name) > maxNameLength {
			return nil, fmt.Errorf("name exceeds %d characters: %w", maxNameLength, api.ErrValidation)
		}
		merged.Name = *req.Name
	}
	if req.DesignationSet {
		if err := checkOptionalLength("designation", req.Designation, maxDesignationLength); err != nil {
			return nil, err
		}
		merged.Designation = req.Designation
	}
	if req.AddressSet {
		if err := checkOptionalLength("address", req.Address, maxAddressLength); err != nil {
			return nil, err
		}
		merged.Address = req.Address
	}
	if req.DepartmentSet {
		if err := checkOptionalLength("department", req.Department, maxDepartmentLength); err != nil {
			return nil, err
		}
		merged.Department = req.Department
	}
	if req.JoiningDateSet {
		merged.JoiningDate = req.JoiningDate
	}
	if req.SkillsetSet {
		if err := checkOptionalLength("skillset", req.Skillset, maxSkillsetLength); err != nil {
			return nil, err
		}
		merged.Skillset = req.Skillset
	}
	if req.Status != nil {
		if *req.Status != api.StatusActive && *req.Status != api.StatusInactive {
			return nil, fmt.Errorf("status must be %s or %s: %w", api.StatusActive, api.StatusInactive, api.ErrValidation)
		}
		merged.Status = *req.Status
	}
	if req.Role != nil {
		if *req.Role != api.RoleEmployee && *req.Role != api.RoleAdmin {
			return nil, fmt.Errorf("role must be %s or %s: %w", api.RoleEmployee, api.RoleAdmin, api.ErrValidation)
		}
		merged.Role = *req.Role
	}

	return &merged, nil
}

func validateRegisterRequest(req RegisterRequest) error {
	if req.Name == "" {
		return fmt.Errorf("name is required: %w", api.ErrValidation)
	}
	if utf8.RuneCountInString(req.Name) > maxNameLength {
		return fmt.Errorf("name exceeds %d characters: %w", maxNameLength, api.ErrValidation)
	}
	if req.Username == "" {
		return fmt.Errorf("username is required: %w", api.ErrValidation)
	}
	if utf8.RuneCountInString(req.Username) > maxUsernameLength {
		return fmt.Errorf("username exceeds %d characters: %w", maxUsernameLength, api.ErrValidation)
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, api.ErrValidation)
	}
	if err := checkOptionalLength("designation", req.Designation, maxDesignationLength); err != nil {
		return err
	}
	if err := checkOptionalLength("address", req.Address, maxAddressLength); err != nil {
		return err
	}
	if err := checkOptionalLength("department", req.Department, maxDepartmentLength); err != nil {
		return err
	}
	if err := checkOptionalLength("skillset", req.Skillset, maxSkillsetLength); err != nil {
		return err
	}
	if req.Role != "" && req.Role != api.RoleEmployee && req.Role != api.RoleAdmin {
		return fmt.Errorf("role must be %s or %s: %w", api.RoleEmployee, api.RoleAdmin, api.ErrValidation)
	}
	if req.Status != "" && req.Status != api.StatusActive && req.Status != api.StatusInactive {
		return fmt.Errorf("status must be %s or %s: %w", api.StatusActive, api.StatusInactive, api.ErrValidation)
	}
	return nil
}

func checkOptionalLength(field string, value *string, max int) error {
	if value != nil && utf8.RuneCountInString(*value) > max {
		return fmt.Errorf("%s exceeds %d characters: %w", field, max, api.ErrValidation)
	}
	return nil
}
