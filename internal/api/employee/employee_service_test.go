package employee

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/staffdesk/employee-api/internal/api"
)

// MockEmployeeRepo is a mock implementation of the EmployeeRepo interface
type MockEmployeeRepo struct {
	mock.Mock
}

func (m *MockEmployeeRepo) GetByUsername(ctx context.Context, username string) (*Employee, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Employee), args.Error(1)
}

func (m *MockEmployeeRepo) Register(ctx context.Context, emp *Employee) (int, error) {
	args := m.Called(ctx, emp)
	return args.Int(0), args.Error(1)
}

func (m *MockEmployeeRepo) GetByID(ctx context.Context, id int) (*Employee, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Employee), args.Error(1)
}

func (m *MockEmployeeRepo) GetAll(ctx context.Context) ([]Employee, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Employee), args.Error(1)
}

func (m *MockEmployeeRepo) Update(ctx context.Context, emp *Employee) (bool, error) {
	args := m.Called(ctx, emp)
	return args.Bool(0), args.Error(1)
}

func (m *MockEmployeeRepo) SetProfileImage(ctx context.Context, id int, path *string) error {
	args := m.Called(ctx, id, path)
	return args.Error(0)
}

func (m *MockEmployeeRepo) Delete(ctx context.Context, id int) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) GenerateAccessToken(employeeID int, username, role string) (string, error) {
	args := m.Called(employeeID, username, role)
	return args.String(0), args.Error(1)
}

type MockRoleSource struct {
	mock.Mock
}

func (m *MockRoleSource) RoleByID(ctx context.Context, employeeID int) (string, error) {
	args := m.Called(ctx, employeeID)
	return args.String(0), args.Error(1)
}

func (m *MockRoleSource) Invalidate(employeeID int) {
	m.Called(employeeID)
}

func strPtr(s string) *string { return &s }

func storedEmployee() *Employee {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	return &Employee{
		EmployeeID:   7,
		Name:         "Alice Smith",
		Designation:  strPtr("Engineer"),
		Address:      strPtr("1 Main St"),
		Department:   strPtr("Platform"),
		Skillset:     strPtr("Go, SQL"),
		Username:     "alice",
		PasswordHash: string(hash),
		Status:       api.StatusActive,
		Role:         api.RoleEmployee,
		CreatedBy:    strPtr("Self"),
	}
}

func newTestService(repo EmployeeRepo, tokens TokenIssuer, roles RoleSource) *EmployeeServiceImpl {
	return NewEmployeeService(repo, tokens, roles, slog.Default())
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockEmployeeRepo)
		mockTokens := new(MockTokenIssuer)
		service := newTestService(mockRepo, mockTokens, new(MockRoleSource))

		emp := storedEmployee()
		mockRepo.On("GetByUsername", ctx, "alice").Return(emp, nil)
		mockTokens.On("GenerateAccessToken", 7, "alice", api.RoleEmployee).Return("tok", nil)

		resp, err := service.Authenticate(ctx, "alice", "password123")

		require.NoError(t, err)
		assert.Equal(t, 7, resp.EmployeeID)
		assert.Equal(t, "alice", resp.Username)
		assert.Equal(t, "tok", resp.Token)
		mockRepo.AssertExpectations(t)
		mockTokens.AssertExpectations(t)
	})

	t.Run("UnknownUsernameAndBadPasswordAreIndistinguishable", func(t *testing.T) {
		mockRepo := new(MockEmployeeRepo)
		service := newTestService(mockRepo, new(MockTokenIssuer), new(MockRoleSource))

		mockRepo.On("GetByUsername", ctx, "nobody").Return(nil, api.ErrNotFound)
		mockRepo.On("GetByUsername", ctx, "alice").Return(storedEmployee(), nil)

		_, errUnknown := service.Authenticate(ctx, "nobody", "whatever")
		_, errBadPass := service.Authenticate(ctx, "alice", "wrong-password")

		assert.ErrorIs(t, errUnknown, api.ErrUnauthenticated)
		assert.ErrorIs(t, errBadPass, api.ErrUnauthenticated)
		assert.Equal(t, errUnknown.Error(), errBadPass.Error())
	})
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("DefaultsApplied", func(t *testing.T) {
		mockRepo := new(MockEmployeeRepo)
		service := newTestService(mockRepo, new(MockTokenIssuer), new(MockRoleSource))

		var captured *Employee
		mockRepo.On("Register", ctx, mock.AnythingOfType("*employee.Employee")).
			Run(func(args mock.Arguments) { captured = args.Get(1).(*Employee) }).
			Return(42, nil)

		id, err := service.Register(ctx, RegisterRequest{
			Name:     "Bob Jones",
			Username: "bob",
			Password: "secret99",
		})

		require.NoError(t, err)
		assert.Equal(t, 42, id)
		require.NotNil(t, captured)
		assert.Equal(t, api.RoleEmployee, captured.Role)
		assert.Equal(t, api.StatusActive, captured.Status)
		require.NotNil(t, captured.CreatedBy)
		assert.Equal(t, "Self", *captured.CreatedBy)
		assert.NotEqual(t, "secret99", captured.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(captured.PasswordHash), []byte("secret99")))
	})

	t.Run("ValidationFailuresSkipStore", func(t *testing.T) {
		mockRepo := new(MockEmployeeRepo)
		service := newTestService(mockRepo, new(MockTokenIssuer), new(MockRoleSource))

		cases := []RegisterRequest{
			{Username: "bob", Password: "secret99"},             // missing name
			{Name: "Bob", Password: "secret99"},                 // missing username
			{Name: "Bob", Username: "bob", Password: "tiny"},    // short password
			{Name: "Bob", Username: "bob", Password: "secret99", Role: "Owner"},
		}
		for _, req := range cases {
			_, err := service.Register(ctx, req)
			assert.ErrorIs(t, err, api.ErrValidation)
		}
		mockRepo.AssertNotCalled(t, "Register")
	})

	t.Run("UsernameConflict", func(t *testing.T) {
		mockRepo := new(MockEmployeeRepo)
		service := newTestService(mockRepo, new(MockTokenIssuer), new(MockRoleSource))

		mockRepo.On("Register", ctx, mock.Anything).Return(0, api.ErrConflict)

		_, err := service.Register(ctx, RegisterRequest{Name: "Bob", Username: "alice", Password: "secret99"})
		assert.ErrorIs(t, err, api.ErrConflict)
	})
}

func TestUpdateMerge(t *testing.T) {
	ctx := context.Background()
	adminSess := api.Session{EmployeeID: 1, Username: "root", Role: api.RoleAdmin}

	t.Run("StatusOnlyUpdateLeavesOtherFieldsIntact", func(t *testing.T) {
		mockRepo := new(MockEmployeeRepo)
		mockRoles := new(MockRoleSource)
		service := newTestService(mockRepo, new(MockTokenIssuer), mockRoles)

		current := storedEmployee()
		mockRoles.On("RoleByID", ctx, 1).Return(api.RoleAdmin, nil)
		mockRepo.On("GetByID", ctx, 7).Return(current, nil)

		var written *Employee
		mockRepo.On("Update", ctx, mock.AnythingOfType("*employee.Employee")).
			Run(func(args mock.Arguments) { written = args.Get(1).(*Employee) }).
			Return(true, nil)

		inactive := api.StatusInactive
		count, err := service.Update(ctx, 7, UpdateEmployeeRequest{Status: &inactive}, adminSess, "root")

		require.NoError(t, err)
		assert.Equal(t, 1, count)
		require.NotNil(t, written)
		assert.Equal(t, api.StatusInactive, written.Status)
		assert.Equal(t, current.Name, written.Name)
		assert.Equal(t, current.Designation, written.Designation)
		assert.Equal(t, current.Address, written.Address)
		assert.Equal(t, current.Department, written.Department)
		assert.Equal(t, current.Skillset, written.Skillset)
		assert.Equal(t, current.Username, written.Username)
		assert.Equal(t, current.Role, written.Role)
		require.NotNil(t, written.ModifiedBy)
		assert.Equal(t, "root", *written.ModifiedBy)
	})

	t.Run("ExplicitNullClearsOmittedPreserves", func(t *testing.T) {
		mockRepo := new(MockEmployeeRepo)
		mockRoles := new(MockRoleSource)
		service := newTestService(mockRepo, new(MockTokenIssuer), mockRoles)

		current := storedEmployee()
		mockRoles.On("RoleByID", ctx, 1).Return(api.RoleAdmin, nil)
		mockRepo.On("GetByID", ctx, 7).Return(current, nil)

		var written *Employee
		mockRepo.On("Update", ctx, mock.Anything).
			Run(func(args mock.Arguments) { written = args.Get(1).(*Employee) }).
			Return(true, nil)

		// designation explicitly null, address omitted entirely
		req := UpdateEmployeeRequest{Designation: nil, DesignationSet: true}
		_, err := service.Update(ctx, 7, req, adminSess, "")

		require.NoError(t, err)
		assert.Nil(t, written.Designation)
		assert.Equal(t, current.Address, written.Address)
		require.NotNil(t, written.ModifiedBy)
		assert.Equal(t, "System", *written.ModifiedBy)
	})

	t.Run("NotFoundReturnsZeroCount", func(t *testing.T) {
		mockRepo := new(MockEmployeeRepo)
		mockRoles := new(MockRoleSource)
		service := newTestService(mockRepo, new(MockTokenIssuer), mockRoles)

		mockRoles.On("RoleByID", ctx, 1).Return(api.RoleAdmin, nil)
		mockRepo.On("GetByID", ctx, 99).Return(nil, api.ErrNotFound)

		name := "New Name"
		_, err := service.Update(ctx, 99, UpdateEmployeeRequest{Name: &name}, adminSess, "root")
		assert.ErrorIs(t, err, api.ErrNotFound)
	})

	t.Run("InvalidStatusRejected", func(t *testing.T) {
		mockRepo := new(MockEmployeeRepo)
		mockRoles := new(MockRoleSource)
		service := newTestService(mockRepo, new(MockTokenIssuer), mockRoles)

		mockRoles.On("RoleByID", ctx, 1).Return(api.RoleAdmin, nil)
		mockRepo.On("GetByID", ctx, 7).Return(storedEmployee(), nil)

		bogus := "Suspended"
		_, err := service.Update(ctx, 7, UpdateEmployeeRequest{Status: &bogus}, adminSess, "root")
		assert.ErrorIs(t, err, api.ErrValidation)
		mockRepo.AssertNotCalled(t, "Update")
	})
}

func TestUpdateAuthorization(t *testing.T) {
	ctx := context.Background()

	t.Run("OwnerMayEditOwnProfileFields", func(t *testing.T) {
		mockRepo := new(MockEmployeeRepo)
		mockRoles := new(MockRoleSource)
		service := newTestService(mockRepo, new(MockTokenIssuer), mockRoles)

		mockRoles.On("RoleByID", ctx, 7).Return(api.RoleEmployee, nil)
		mockRepo.On("GetByID", ctx, 7).Return(storedEmployee(), nil)
		mockRepo.On("Update", ctx, mock.Anything).Return(true, nil)

		sess := api.Session{EmployeeID: 7, Username: "alice", Role: api.RoleEmployee}
		name := "Alice S."
		count, err := service.Update(ctx, 7, UpdateEmployeeRequest{Name: &name}, sess, "alice")

		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("OwnerMayNotEditOthers", func(t *testing.T) {
		mockRepo := new(MockEmployeeRepo)
		mockRoles := new(MockRoleSource)
		service := newTestService(mockRepo, new(MockTokenIssuer), mockRoles)

		mockRoles.On("RoleByID", ctx, 7).Return(api.RoleEmployee, nil)

		sess := api.Session{EmployeeID: 7, Username: "alice", Role: api.RoleEmployee}
		name := "Hijack"
		_, err := service.Update(ctx, 8, UpdateEmployeeRequest{Name: &name}, sess, "alice")

		assert.ErrorIs(t, err, api.ErrForbidden)
		mockRepo.AssertNotCalled(t, "GetByID")
	})

	t.Run("OwnerMayNotTouchStatusOrRole", func(t *testing.T) {
		mockRepo := new(MockEmployeeRepo)
		mockRoles := new(MockRoleSource)
		service := newTestService(mockRepo, new(MockTokenIssuer), mockRoles)

		mockRoles.On("RoleByID", ctx, 7).Return(api.RoleEmployee, nil)

		sess := api.Session{EmployeeID: 7, Username: "alice", Role: api.RoleEmployee}
		admin := api.RoleAdmin
		_, err := service.Update(ctx, 7, UpdateEmployeeRequest{Role: &admin}, sess, "alice")

		assert.ErrorIs(t, err, api.ErrForbidden)
	})

	t.Run("ForgedAdminClaimIsIgnored", func(t *testing.T) {
		mockRepo := new(MockEmployeeRepo)
		mockRoles := new(MockRoleSource)
		service := newTestService(mockRepo, new(MockTokenIssuer), mockRoles)

		// The session claims Admin but the stored role says Employee.
		mockRoles.On("RoleByID", ctx, 7).Return(api.RoleEmployee, nil)

		sess := api.Session{EmployeeID: 7, Username: "alice", Role: api.RoleAdmin}
		name := "Hijack"
		_, err := service.Update(ctx, 8, UpdateEmployeeRequest{Name: &name}, sess, "alice")

		assert.ErrorIs(t, err, api.ErrForbidden)
	})
}

func TestUpdateRoleChangeInvalidatesCachedRole(t *testing.T) {
	ctx := context.Background()
	adminSess := api.Session{EmployeeID: 1, Username: "root", Role: api.RoleAdmin}

	t.Run("RoleChangeDropsCacheEntry", func(t *testing.T) {
		mockRepo := new(MockEmployeeRepo)
		mockRoles := new(MockRoleSource)
		service := newTestService(mockRepo, new(MockTokenIssuer), mockRoles)

		mockRoles.On("RoleByID", ctx, 1).Return(api.RoleAdmin, nil)
		mockRoles.On("Invalidate", 7).Return()
		mockRepo.On("GetByID", ctx, 7).Return(storedEmployee(), nil)
		mockRepo.On("Update", ctx, mock.Anything).Return(true, nil)

		admin := api.RoleAdmin
		count, err := service.Update(ctx, 7, UpdateEmployeeRequest{Role: &admin}, adminSess, "root")

		require.NoError(t, err)
		assert.Equal(t, 1, count)
		mockRoles.AssertCalled(t, "Invalidate", 7)
	})

	t.Run("NonRoleUpdateLeavesCacheAlone", func(t *testing.T) {
		mockRepo := new(MockEmployeeRepo)
		mockRoles := new(MockRoleSource)
		service := newTestService(mockRepo, new(MockTokenIssuer), mockRoles)

		mockRoles.On("RoleByID", ctx, 1).Return(api.RoleAdmin, nil)
		mockRepo.On("GetByID", ctx, 7).Return(storedEmployee(), nil)
		mockRepo.On("Update", ctx, mock.Anything).Return(true, nil)

		inactive := api.StatusInactive
		_, err := service.Update(ctx, 7, UpdateEmployeeRequest{Status: &inactive}, adminSess, "root")

		require.NoError(t, err)
		mockRoles.AssertNotCalled(t, "Invalidate", mock.Anything)
	})

	t.Run("FailedRoleUpdateDoesNotInvalidate", func(t *testing.T) {
		mockRepo := new(MockEmployeeRepo)
		mockRoles := new(MockRoleSource)
		service := newTestService(mockRepo, new(MockTokenIssuer), mockRoles)

		mockRoles.On("RoleByID", ctx, 1).Return(api.RoleAdmin, nil)
		mockRepo.On("GetByID", ctx, 99).Return(nil, api.ErrNotFound)

		admin := api.RoleAdmin
		_, err := service.Update(ctx, 99, UpdateEmployeeRequest{Role: &admin}, adminSess, "root")

		assert.ErrorIs(t, err, api.ErrNotFound)
		mockRoles.AssertNotCalled(t, "Invalidate", mock.Anything)
	})
}

// statefulRepo is an in-memory single-row store for flows that need the
// write of one call visible to the read of the next.
type statefulRepo struct {
	stored *Employee
}

func (r *statefulRepo) GetByUsername(ctx context.Context, username string) (*Employee, error) {
	cp := *r.stored
	return &cp, nil
}

func (r *statefulRepo) Register(ctx context.Context, emp *Employee) (int, error) {
	return 0, errors.New("not supported")
}

func (r *statefulRepo) GetByID(ctx context.Context, id int) (*Employee, error) {
	if id != r.stored.EmployeeID {
		return nil, api.ErrNotFound
	}
	cp := *r.stored
	return &cp, nil
}

func (r *statefulRepo) GetAll(ctx context.Context) ([]Employee, error) {
	return []Employee{*r.stored}, nil
}

func (r *statefulRepo) Update(ctx context.Context, emp *Employee) (bool, error) {
	if emp.EmployeeID != r.stored.EmployeeID {
		return false, nil
	}
	cp := *emp
	r.stored = &cp
	return true, nil
}

func (r *statefulRepo) SetProfileImage(ctx context.Context, id int, path *string) error {
	r.stored.ProfileImage = path
	return nil
}

func (r *statefulRepo) Delete(ctx context.Context, id int) (bool, error) {
	return id == r.stored.EmployeeID, nil
}

func TestSetStatusDoubleToggle(t *testing.T) {
	ctx := context.Background()
	adminSess := api.Session{EmployeeID: 1, Username: "root", Role: api.RoleAdmin}

	mockRoles := new(MockRoleSource)
	mockRoles.On("RoleByID", ctx, 1).Return(api.RoleAdmin, nil)

	// Stateful store: GetByID returns the last written row.
	repo := &statefulRepo{stored: storedEmployee()}
	service := newTestService(repo, new(MockTokenIssuer), mockRoles)

	original := repo.stored.Status

	_, err := service.SetStatus(ctx, 7, api.StatusInactive, adminSess, "root")
	require.NoError(t, err)
	assert.Equal(t, api.StatusInactive, repo.stored.Status)

	_, err = service.SetStatus(ctx, 7, api.StatusActive, adminSess, "root")
	require.NoError(t, err)
	assert.Equal(t, original, repo.stored.Status)
	assert.Equal(t, "Alice Smith", repo.stored.Name)
}

func TestServiceDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("AdminOnly", func(t *testing.T) {
		mockRepo := new(MockEmployeeRepo)
		mockRoles := new(MockRoleSource)
		service := newTestService(mockRepo, new(MockTokenIssuer), mockRoles)

		mockRoles.On("RoleByID", ctx, 7).Return(api.RoleEmployee, nil)

		sess := api.Session{EmployeeID: 7, Username: "alice", Role: api.RoleEmployee}
		_, err := service.Delete(ctx, 8, sess)

		assert.ErrorIs(t, err, api.ErrForbidden)
		mockRepo.AssertNotCalled(t, "Delete")
	})

	t.Run("AdminDeletes", func(t *testing.T) {
		mockRepo := new(MockEmployeeRepo)
		mockRoles := new(MockRoleSource)
		service := newTestService(mockRepo, new(MockTokenIssuer), mockRoles)

		mockRoles.On("RoleByID", ctx, 1).Return(api.RoleAdmin, nil)
		mockRoles.On("Invalidate", 8).Return()
		mockRepo.On("Delete", ctx, 8).Return(true, nil)

		sess := api.Session{EmployeeID: 1, Username: "root", Role: api.RoleAdmin}
		count, err := service.Delete(ctx, 8, sess)

		require.NoError(t, err)
		assert.Equal(t, 1, count)
		mockRoles.AssertCalled(t, "Invalidate", 8)
	})
}

func TestGetByIDStripsPasswordHash(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockEmployeeRepo)
	service := newTestService(mockRepo, new(MockTokenIssuer), new(MockRoleSource))

	mockRepo.On("GetByID", ctx, 7).Return(storedEmployee(), nil)

	emp, err := service.GetByID(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, emp.PasswordHash)
}

func TestAuthenticateTokenError(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockEmployeeRepo)
	mockTokens := new(MockTokenIssuer)
	service := newTestService(mockRepo, mockTokens, new(MockRoleSource))

	mockRepo.On("GetByUsername", ctx, "alice").Return(storedEmployee(), nil)
	mockTokens.On("GenerateAccessToken", 7, "alice", api.RoleEmployee).Return("", errors.New("boom"))

	_, err := service.Authenticate(ctx, "alice", "password123")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, api.ErrUnauthenticated)
}
