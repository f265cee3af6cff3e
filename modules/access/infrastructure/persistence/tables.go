package persistence

import (
	"fmt"

	"github.com/iota-uz/role-import/pkg/configuration"
)

// Tables names the three tables an import touches. Names are interpolated
// into SQL and must pass configuration.ValidIdentifier.
type Tables struct {
	Users string
	Roles string
	Join  string
}

func TablesFrom(opts configuration.DatabaseOptions) Tables {
	return Tables{Users: opts.UsersTable, Roles: opts.RolesTable, Join: opts.JoinTable}
}

func (t Tables) validate() error {
	for _, name := range []string{t.Users, t.Roles, t.Join} {
		if !configuration.ValidIdentifier(name) {
			return fmt.Errorf("unsafe table name %q", name)
		}
	}
	return nil
}
