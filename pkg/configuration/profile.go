package configuration

import (
	"fmt"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultUsernameColumn = "用户名"
	DefaultRoleColumn     = "角色"
	DefaultSuccessColumn  = "success"
)

// Profile describes the layout of an import spreadsheet and of the report
// written for it.
type Profile struct {
	Format         string        `toml:"format"`
	Sheet          string        `toml:"sheet"`
	SheetIndex     int           `toml:"sheet_index"`
	Columns        []string      `toml:"columns"`
	UsernameColumn string        `toml:"username_column"`
	RoleColumn     string        `toml:"role_column"`
	Report         ReportProfile `toml:"report"`
}

type ReportProfile struct {
	Sheet         string            `toml:"sheet"`
	SuccessColumn string            `toml:"success_column"`
	Labels        map[string]string `toml:"labels"`
}

func DefaultProfile() Profile {
	return Profile{
		Columns:        []string{DefaultUsernameColumn, DefaultRoleColumn},
		UsernameColumn: DefaultUsernameColumn,
		RoleColumn:     DefaultRoleColumn,
		Report: ReportProfile{
			SuccessColumn: DefaultSuccessColumn,
			Labels: map[string]string{
				DefaultUsernameColumn: "user_code",
				DefaultRoleColumn:     "role_code",
				DefaultSuccessColumn:  "success",
			},
		},
	}
}

// LoadProfile overlays the TOML file at path on top of DefaultProfile.
// An empty path returns the defaults.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()
	if strings.TrimSpace(path) == "" {
		return p, nil
	}
	if _, err := toml.DecodeFile(path, &p); err != nil {
		return Profile{}, fmt.Errorf("decode profile %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

func (p Profile) Validate() error {
	if len(p.Columns) == 0 {
		return fmt.Errorf("columns must not be empty")
	}
	if !slices.Contains(p.Columns, p.UsernameColumn) {
		return fmt.Errorf("username_column %q is not one of columns", p.UsernameColumn)
	}
	if !slices.Contains(p.Columns, p.RoleColumn) {
		return fmt.Errorf("role_column %q is not one of columns", p.RoleColumn)
	}
	if strings.TrimSpace(p.Report.SuccessColumn) == "" {
		return fmt.Errorf("report.success_column must not be empty")
	}
	if p.SheetIndex < 0 {
		return fmt.Errorf("sheet_index must be non-negative")
	}
	return nil
}

// ReportColumns returns the three logical report columns in order.
func (p Profile) ReportColumns() []string {
	return []string{p.UsernameColumn, p.RoleColumn, p.Report.SuccessColumn}
}

// ReportLabels maps every report column to its display label, falling back
// to the column name itself.
func (p Profile) ReportLabels() map[string]string {
	out := make(map[string]string, 3)
	for _, c := range p.ReportColumns() {
		if l, ok := p.Report.Labels[c]; ok && l != "" {
			out[c] = l
		} else {
			out[c] = c
		}
	}
	return out
}
