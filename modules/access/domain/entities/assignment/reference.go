package assignment

// ReferenceSet holds the lookups an import resolves against. It is built
// once per run and only read afterwards.
type ReferenceSet struct {
	KnownUsernames map[string]struct{}
	UserCodeByName map[string]string
	RoleCodeByName map[string]string
}

func NewReferenceSet(usernames []string, userCodes, roleCodes map[string]string) *ReferenceSet {
	known := make(map[string]struct{}, len(usernames))
	for _, u := range usernames {
		known[u] = struct{}{}
	}
	if userCodes == nil {
		userCodes = map[string]string{}
	}
	if roleCodes == nil {
		roleCodes = map[string]string{}
	}
	return &ReferenceSet{KnownUsernames: known, UserCodeByName: userCodes, RoleCodeByName: roleCodes}
}

func (r *ReferenceSet) HasUser(username string) bool {
	_, ok := r.KnownUsernames[username]
	return ok
}

func (r *ReferenceSet) UserCode(username string) (string, bool) {
	code, ok := r.UserCodeByName[username]
	return code, ok
}

func (r *ReferenceSet) RoleCode(role string) (string, bool) {
	code, ok := r.RoleCodeByName[role]
	return code, ok
}
