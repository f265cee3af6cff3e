package assignment

import "fmt"

// Pair is one row of the user/role join table.
type Pair struct {
	UserCode string `json:"user_code" db:"user_code"`
	RoleCode string `json:"role_code" db:"role_code"`
}

func (p Pair) String() string {
	return fmt.Sprintf("(%s, %s)", p.UserCode, p.RoleCode)
}

type Outcome string

const (
	OutcomeAccepted           Outcome = "accepted"
	OutcomeSkippedDuplicate   Outcome = "skipped_duplicate"
	OutcomeSkippedUnknownUser Outcome = "skipped_unknown_user"
	OutcomeSkippedUnknownRole Outcome = "skipped_unknown_role"
)

func (o Outcome) Accepted() bool { return o == OutcomeAccepted }

// RowResult is the resolution of one input record.
type RowResult struct {
	Line     int     `json:"line"`
	Username string  `json:"username"`
	Role     string  `json:"role"`
	UserCode string  `json:"user_code,omitempty"`
	RoleCode string  `json:"role_code,omitempty"`
	Outcome  Outcome `json:"outcome"`
}

func (r RowResult) Pair() Pair {
	return Pair{UserCode: r.UserCode, RoleCode: r.RoleCode}
}

// Result aggregates a run. Rows follow input order; UnresolvedUsers and
// UnresolvedRoles hold each name once, in first-seen order.
type Result struct {
	Rows            []RowResult
	Accepted        int
	UnresolvedUsers []string
	UnresolvedRoles []string
	// Pairs are the assignments written (or, in a dry run, planned).
	Pairs []Pair
}

func NewResult() *Result {
	return &Result{
		UnresolvedUsers: []string{},
		UnresolvedRoles: []string{},
		Pairs:           []Pair{},
	}
}

// Counts tallies rows per outcome.
func (r *Result) Counts() map[Outcome]int {
	out := map[Outcome]int{}
	for _, row := range r.Rows {
		out[row.Outcome]++
	}
	return out
}

// Grant is a stored assignment joined with the user and role names.
type Grant struct {
	UserCode string
	Username string
	RoleCode string
	RoleName string
}

const (
	FieldUserCode = "user_code"
	FieldUsername = "username"
	FieldRoleCode = "role_code"
	FieldRoleName = "role_name"
)

var GrantFields = []string{FieldUserCode, FieldUsername, FieldRoleCode, FieldRoleName}

func (g Grant) FieldValue(label string) string {
	switch label {
	case FieldUserCode:
		return g.UserCode
	case FieldUsername:
		return g.Username
	case FieldRoleCode:
		return g.RoleCode
	case FieldRoleName:
		return g.RoleName
	default:
		return ""
	}
}
