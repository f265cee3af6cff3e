package services

import (
	"github.com/iota-uz/role-import/modules/access/domain/entities/assignment"
	"github.com/iota-uz/role-import/pkg/spreadsheet"
)

// resolver applies the per-row checks in order: duplicate key, unknown
// user, unknown role. Keys are only marked accepted once both codes resolve.
type resolver struct {
	refs     *assignment.ReferenceSet
	fields   Fields
	existing map[assignment.Pair]struct{}

	accepted  map[string]struct{}
	seenUsers map[string]struct{}
	seenRoles map[string]struct{}
	result    *assignment.Result
}

func newResolver(refs *assignment.ReferenceSet, fields Fields, existing map[assignment.Pair]struct{}) *resolver {
	if refs == nil {
		refs = assignment.NewReferenceSet(nil, nil, nil)
	}
	return &resolver{
		refs:      refs,
		fields:    fields,
		existing:  existing,
		accepted:  map[string]struct{}{},
		seenUsers: map[string]struct{}{},
		seenRoles: map[string]struct{}{},
		result:    assignment.NewResult(),
	}
}

func (r *resolver) resolve(rec spreadsheet.Record) assignment.RowResult {
	username, _ := rec.Get(r.fields.Username)
	role, _ := rec.Get(r.fields.Role)
	row := assignment.RowResult{Line: rec.Row(), Username: username, Role: role}

	key := username + role
	if _, dup := r.accepted[key]; dup {
		row.Outcome = assignment.OutcomeSkippedDuplicate
		return r.add(row)
	}

	userCode, hasCode := r.refs.UserCode(username)
	if username == "" || !r.refs.HasUser(username) || !hasCode {
		r.unresolvedUser(username)
		row.Outcome = assignment.OutcomeSkippedUnknownUser
		return r.add(row)
	}
	row.UserCode = userCode

	roleCode, ok := r.refs.RoleCode(role)
	if role == "" || !ok {
		r.unresolvedRole(role)
		row.Outcome = assignment.OutcomeSkippedUnknownRole
		return r.add(row)
	}
	row.RoleCode = roleCode

	r.accepted[key] = struct{}{}
	if _, stored := r.existing[row.Pair()]; stored {
		row.Outcome = assignment.OutcomeSkippedDuplicate
		return r.add(row)
	}
	row.Outcome = assignment.OutcomeAccepted
	return r.add(row)
}

func (r *resolver) add(row assignment.RowResult) assignment.RowResult {
	r.result.Rows = append(r.result.Rows, row)
	return row
}

func (r *resolver) unresolvedUser(username string) {
	if _, ok := r.seenUsers[username]; ok {
		return
	}
	r.seenUsers[username] = struct{}{}
	r.result.UnresolvedUsers = append(r.result.UnresolvedUsers, username)
}

func (r *resolver) unresolvedRole(role string) {
	if _, ok := r.seenRoles[role]; ok {
		return
	}
	r.seenRoles[role] = struct{}{}
	r.result.UnresolvedRoles = append(r.result.UnresolvedRoles, role)
}
