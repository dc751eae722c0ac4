package employee

import (
	"encoding/json"
	"fmt"
	"time"
)

// Date is a calendar date with no time-of-day component. It crosses the HTTP
// boundary as "YYYY-MM-DD"; an absent date is an explicit JSON null, never an
// empty string.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid date: %w", err)
	}
	if s == nil {
		*d = Date{}
		return nil
	}
	// Absent dates travel as an explicit null, never an empty string.
	if *s == "" {
		return fmt.Errorf("invalid date: empty string")
	}
	// Accept full timestamps too, keeping only the date part.
	raw := *s
	if len(raw) > len(dateLayout) {
		raw = raw[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", *s, err)
	}
	*d = Date{t}
	return nil
}

// Employee is the persisted record for one person's account and profile.
// PasswordHash is write-only: it never appears in any response payload.
type Employee struct {
	EmployeeID   int        `json:"employeeId"`
	Name         string     `json:"name"`
	Designation  *string    `json:"designation"`
	Address      *string    `json:"address"`
	Department   *string    `json:"department"`
	JoiningDate  *Date      `json:"joiningDate"`
	Skillset     *string    `json:"skillset"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Status       string     `json:"status"`
	Role         string     `json:"role"`
	ProfileImage *string    `json:"profileImage"`
	CreatedBy    *string    `json:"createdBy,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	ModifiedBy   *string    `json:"modifiedBy,omitempty"`
	ModifiedAt   *time.Time `json:"modifiedAt,omitempty"`
}

// LoginRequest is the body of POST /employees/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the reduced projection returned after a successful login.
type LoginResponse struct {
	EmployeeID   int     `json:"employeeId"`
	Name         string  `json:"name"`
	Username     string  `json:"username"`
	Role         string  `json:"role"`
	Status       string  `json:"status"`
	ProfileImage *string `json:"profileImage"`
	Token        string  `json:"token"`
}

// RegisterRequest is the body of POST /employees/register. Role, Status and
// CreatedBy are accepted for compatibility with the admin-driven flow but the
// self-registration path forces their defaults server-side.
type RegisterRequest struct {
	Name        string  `json:"name"`
	Designation *string `json:"designation"`
	Address     *string `json:"address"`
	Department  *string `json:"department"`
	JoiningDate *Date   `json:"joiningDate"`
	Skillset    *string `json:"skillset"`
	Username    string  `json:"username"`
	Password    string  `json:"password"`
	Role        string  `json:"role"`
	Status      string  `json:"status"`
	CreatedBy   string  `json:"createdBy"`
}

// UpdateEmployeeRequest carries a partial field set for PUT /employees/{id}.
// Every field present in the payload is applied as given; omitted fields are
// preserved at their current stored value. For clearable optional fields the
// Set flags distinguish "omitted" (preserve) from "explicit null" (clear).
type UpdateEmployeeRequest struct {
	Name *string

	Designation    *string
	DesignationSet bool
	Address        *string
	AddressSet     bool
	Department     *string
	DepartmentSet  bool
	JoiningDate    *Date
	JoiningDateSet bool
	Skillset       *string
	SkillsetSet    bool

	Status *string
	Role   *string
}

func (r *UpdateEmployeeRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw["name"]; ok {
		if err := json.Unmarshal(v, &r.Name); err != nil {
			return fmt.Errorf("field name: %w", err)
		}
	}
	if v, ok := raw["designation"]; ok {
		r.DesignationSet = true
		if err := json.Unmarshal(v, &r.Designation); err != nil {
			return fmt.Errorf("field designation: %w", err)
		}
	}
	if v, ok := raw["address"]; ok {
		r.AddressSet = true
		if err := json.Unmarshal(v, &r.Address); err != nil {
			return fmt.Errorf("field address: %w", err)
		}
	}
	if v, ok := raw["department"]; ok {
		r.DepartmentSet = true
		if err := json.Unmarshal(v, &r.Department); err != nil {
			return fmt.Errorf("field department: %w", err)
		}
	}
	if v, ok := raw["joiningDate"]; ok {
		r.JoiningDateSet = true
		if err := json.Unmarshal(v, &r.JoiningDate); err != nil {
			return fmt.Errorf("field joiningDate: %w", err)
		}
	}
	if v, ok := raw["skillset"]; ok {
		r.SkillsetSet = true
		if err := json.Unmarshal(v, &r.Skillset); err != nil {
			return fmt.Errorf("field skillset: %w", err)
		}
	}
	if v, ok := raw["status"]; ok {
		if err := json.Unmarshal(v, &r.Status); err != nil {
			return fmt.Errorf("field status: %w", err)
		}
	}
	if v, ok := raw["role"]; ok {
		if err := json.Unmarshal(v, &r.Role); err != nil {
			return fmt.Errorf("field role: %w", err)
		}
	}
	return nil
}

// MarshalJSON keeps the wire shape symmetric with UnmarshalJSON so clients
// (including the view state machines) can send exactly the fields they set.
func (r UpdateEmployeeRequest) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{})
	if r.Name != nil {
		out["name"] = *r.Name
	}
	if r.DesignationSet {
		out["designation"] = r.Designation
	}
	if r.AddressSet {
		out["address"] = r.Address
	}
	if r.DepartmentSet {
		out["department"] = r.Department
	}
	if r.JoiningDateSet {
		out["joiningDate"] = r.JoiningDate
	}
	if r.SkillsetSet {
		out["skillset"] = r.Skillset
	}
	if r.Status != nil {
		out["status"] = *r.Status
	}
	if r.Role != nil {
		out["role"] = *r.Role
	}
	return json.Marshal(out)
}

// RegisterResponse is the body returned by POST /employees/register.
type RegisterResponse struct {
	EmployeeID int `json:"employeeId"`
}

// UpdateResponse reports how many rows a mutation touched; 0 means the record
// was not found.
type UpdateResponse struct {
	UpdatedCount int `json:"updatedCount"`
}

// ImageResponse returns the stored reference path of an uploaded image.
type ImageResponse struct {
	ProfileImage string `json:"profileImage"`
}
