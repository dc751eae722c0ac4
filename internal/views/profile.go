package views

import (
	"context"
	"fmt"

	"github.com/staffdesk/employee-api/internal/api"
	"github.com/staffdesk/employee-api/internal/api/employee"
)

// ProfileState names the two modes of the profile view.
type ProfileState int

const (
	Viewing ProfileState = iota
	ProfileEditing
)

// Profile is the self-service profile state machine. The owner can edit the
// descriptive subset of their record (name, designation, address, department,
// joining date, skillset); username, status and role are read-only here.
type Profile struct {
	client EmployeeClient

	employeeID int
	state      ProfileState
	snapshot   *employee.Employee
	draft      employee.UpdateEmployeeRequest
}

func NewProfile(client EmployeeClient, employeeID int) *Profile {
	return &Profile{client: client, employeeID: employeeID, state: Viewing}
}

func (p *Profile) State() ProfileState          { return p.state }
func (p *Profile) Snapshot() *employee.Employee { return p.snapshot }

// Load fetches the owner's record.
func (p *Profile) Load(ctx context.Context) error {
	emp, err := p.client.GetByID(ctx, p.employeeID)
	if err != nil {
		return err
	}
	p.snapshot = emp
	return nil
}

// BeginEdit enters editing mode. The record must be loaded first.
func (p *Profile) BeginEdit() error {
	if p.snapshot == nil {
		return fmt.Errorf("%w: profile not loaded", api.ErrValidation)
	}
	p.state = ProfileEditing
	p.draft = employee.UpdateEmployeeRequest{}
	return nil
}

// SetDraft replaces the pending changes. Only owner-editable fields are
// accepted; a draft carrying status or role is rejected outright.
func (p *Profile) SetDraft(draft employee.UpdateEmployeeRequest) error {
	if p.state != ProfileEditing {
		return fmt.Errorf("%w: profile is not in editing mode", api.ErrValidation)
	}
	if draft.Status != nil || draft.Role != nil {
		return fmt.Errorf("%w: status and role are not editable from the profile", api.ErrForbidden)
	}
	p.draft = draft
	return nil
}

// Save sends only the owner-editable fields and refreshes the snapshot.
func (p *Profile) Save(ctx context.Context) error {
	if p.state != ProfileEditing {
		return fmt.Errorf("%w: profile is not in editing mode", api.ErrValidation)
	}
	if _, err := p.client.Update(ctx, p.employeeID, p.draft); err != nil {
		return err
	}
	p.state = Viewing
	p.draft = employee.UpdateEmployeeRequest{}
	return p.Load(ctx)
}

// Cancel discards pending changes and restores the last-fetched snapshot.
func (p *Profile) Cancel() {
	p.state = Viewing
	p.draft = employee.UpdateEmployeeRequest{}
}
