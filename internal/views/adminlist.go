package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/staffdesk/employee-api/internal/api"
	"github.com/staffdesk/employee-api/internal/api/employee"
)

// PageSize is the fixed number of rows the admin list shows per page.
const PageSize = 5

// AdminListState names the two modes of the admin list.
type AdminListState int

const (
	Browsing AdminListState = iota
	Editing
)

// AdminList is the admin dashboard state machine: the full employee set,
// a case-insensitive search filter, fixed-size pagination and at most one
// record being inline-edited at a time. Status toggles are applied
// optimistically and reconciled against the server.
//
// The struct is not safe for concurrent use; a view instance belongs to one
// session.
type AdminList struct {
	client EmployeeClient

	state     AdminListState
	all       []employee.Employee
	search    string
	page      int
	editingID int
	draft     employee.UpdateEmployeeRequest

	// inFlight guards against overlapping mutations on the same record.
	inFlight map[int]bool
}

func NewAdminList(client EmployeeClient) *AdminList {
	return &AdminList{
		client:   client,
		state:    Browsing,
		page:     1,
		inFlight: make(map[int]bool),
	}
}

func (a *AdminList) State() AdminListState { return a.state }
func (a *AdminList) Page() int             { return a.page }
func (a *AdminList) Search() string        { return a.search }

// Load fetches the authoritative employee set and resets to page 1.
func (a *AdminList) Load(ctx context.Context) error {
	emps, err := a.client.GetAll(ctx)
	if err != nil {
		return err
	}
	a.all = emps
	a.page = 1
	return nil
}

// SetSearch replaces the filter text and resets pagination to page 1.
func (a *AdminList) SetSearch(text string) {
	a.search = text
	a.page = 1
}

// Filtered returns the rows matching the current search text: a
// case-insensitive substring match over name, username and department.
func (a *AdminList) Filtered() []employee.Employee {
	if a.search == "" {
		return a.all
	}
	needle := strings.ToLower(a.search)
	var out []employee.Employee
	for _, e := range a.all {
		if strings.Contains(strings.ToLower(e.Name), needle) ||
			strings.Contains(strings.ToLower(e.Username), needle) ||
			(e.Department != nil && strings.Contains(strings.ToLower(*e.Department), needle)) {
			out = append(out, e)
		}
	}
	return out
}

// PageCount is always at least 1, even for an empty filtered set.
func (a *AdminList) PageCount() int {
	n := len(a.Filtered())
	count := (n + PageSize - 1) / PageSize
	if count < 1 {
		count = 1
	}
	return count
}

// CurrentPage returns the visible slice of the filtered set.
func (a *AdminList) CurrentPage() []employee.Employee {
	filtered := a.Filtered()
	start := (a.page - 1) * PageSize
	if start >= len(filtered) {
		return nil
	}
	end := start + PageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end]
}

// GoToPage moves to the given page; out-of-range targets are no-ops.
func (a *AdminList) GoToPage(page int) {
	if page < 1 || page > a.PageCount() {
		return
	}
	a.page = page
}

func (a *AdminList) NextPage() { a.GoToPage(a.page + 1) }
func (a *AdminList) PrevPage() { a.GoToPage(a.page - 1) }

// ShowingFrom returns the 1-based index of the first visible row, 0 when the
// filtered set is empty.
func (a *AdminList) ShowingFrom() int {
	if len(a.Filtered()) == 0 {
		return 0
	}
	return (a.page-1)*PageSize + 1
}

// ShowingTo returns the 1-based index of the last visible row.
func (a *AdminList) ShowingTo() int {
	n := len(a.Filtered())
	to := a.page * PageSize
	if to > n {
		to = n
	}
	return to
}

// BeginEdit enters inline editing for one record. Only one record can be in
// editing at a time; a second BeginEdit while editing is rejected.
func (a *AdminList) BeginEdit(id int) error {
	if a.state == Editing {
		return fmt.Errorf("%w: another record is being edited", api.ErrConflict)
	}
	found := false
	for _, e := range a.all {
		if e.EmployeeID == id {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: employee %d not in list", api.ErrNotFound, id)
	}
	a.state = Editing
	a.editingID = id
	a.draft = employee.UpdateEmployeeRequest{}
	return nil
}

// SetDraft replaces the pending field set for the record being edited.
func (a *AdminList) SetDraft(draft employee.UpdateEmployeeRequest) error {
	if a.state != Editing {
		return fmt.Errorf("%w: no record is being edited", api.ErrValidation)
	}
	a.draft = draft
	return nil
}

// Save commits the draft and refreshes the full list from the server. The
// filter and current page survive the refresh; the page is re-clamped in case
// the filtered set shrank.
func (a *AdminList) Save(ctx context.Context) error {
	if a.state != Editing {
		return fmt.Errorf("%w: no record is being edited", api.ErrValidation)
	}
	id := a.editingID
	if a.inFlight[id] {
		return fmt.Errorf("%w: mutation already in flight for employee %d", api.ErrConflict, id)
	}
	a.inFlight[id] = true
	defer delete(a.inFlight, id)

	if _, err := a.client.Update(ctx, id, a.draft); err != nil {
		// Stay in Editing so the admin can correct and retry.
		return err
	}

	a.state = Browsing
	a.editingID = 0
	a.draft = employee.UpdateEmployeeRequest{}
	return a.refresh(ctx)
}

// CancelEdit discards the draft and returns to browsing.
func (a *AdminList) CancelEdit() {
	a.state = Browsing
	a.editingID = 0
	a.draft = employee.UpdateEmployeeRequest{}
}

// ToggleStatus flips a record between Active and Inactive. The flip is shown
// immediately; if the server rejects it the authoritative list is reloaded so
// the view converges back to the stored state.
func (a *AdminList) ToggleStatus(ctx context.Context, id int) error {
	if a.inFlight[id] {
		return fmt.Errorf("%w: mutation already in flight for employee %d", api.ErrConflict, id)
	}
	idx := -1
	for i, e := range a.all {
		if e.EmployeeID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: employee %d not in list", api.ErrNotFound, id)
	}

	a.inFlight[id] = true
	defer delete(a.inFlight, id)

	next := api.StatusActive
	if a.all[idx].Status == api.StatusActive {
		next = api.StatusInactive
	}

	// Optimistic flip.
	prev := a.all[idx].Status
	a.all[idx].Status = next

	req := employee.UpdateEmployeeRequest{Status: &next}
	if _, err := a.client.Update(ctx, id, req); err != nil {
		// Reconcile with the server; if even the reload fails, restore the
		// pre-toggle value locally.
		if refreshErr := a.refresh(ctx); refreshErr != nil {
			a.all[idx].Status = prev
		}
		return err
	}
	return nil
}

// refresh reloads the list without touching search or page, then clamps the
// page into the new range.
func (a *AdminList) refresh(ctx context.Context) error {
	emps, err := a.client.GetAll(ctx)
	if err != nil {
		return err
	}
	a.all = emps
	if a.page > a.PageCount() {
		a.page = a.PageCount()
	}
	return nil
}
