package authz

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// RoleDefaults maps each role to the capability set it carries by default.
// The table is fixed configuration: it is built once at startup and never
// mutated, so lookups are safe from any number of goroutines. Unknown roles
// resolve to the empty set so the system fails closed on a misconfigured or
// newly introduced role instead of erroring.
type RoleDefaults struct {
	grants map[Role]map[Capability]struct{}
}

// NewRoleDefaults builds a defaults table from a role → capability listing.
func NewRoleDefaults(table map[Role][]Capability) *RoleDefaults {
	grants := make(map[Role]map[Capability]struct{}, len(table))
	for role, caps := range table {
		set := make(map[Capability]struct{}, len(caps))
		for _, c := range caps {
			set[c] = struct{}{}
		}
		grants[role] = set
	}
	return &RoleDefaults{grants: grants}
}

// Allows reports whether the role's default capability set contains c.
func (d *RoleDefaults) Allows(role Role, c Capability) bool {
	if d == nil {
		return false
	}
	_, ok := d.grants[role][c]
	return ok
}

// DefaultsFor returns the role's default capabilities sorted by resource then
// action. Unknown roles yield an empty slice, never an error.
func (d *RoleDefaults) DefaultsFor(role Role) []Capability {
	if d == nil {
		return nil
	}
	set := d.grants[role]
	caps := make([]Capability, 0, len(set))
	for c := range set {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool {
		if caps[i].Resource != caps[j].Resource {
			return caps[i].Resource < caps[j].Resource
		}
		return caps[i].Action < caps[j].Action
	})
	return caps
}

// Roles returns every role present in the table, sorted.
func (d *RoleDefaults) Roles() []Role {
	if d == nil {
		return nil
	}
	roles := make([]Role, 0, len(d.grants))
	for role := range d.grants {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// BuiltinDefaults returns the table shipped with the product. Deployments
// override it with a YAML file via LoadRoleDefaults when the stock roles do
// not fit.
func BuiltinDefaults() *RoleDefaults {
	all := []Capability{
		{"appointments", "view"}, {"appointments", "edit"},
		{"billing", "view"}, {"billing", "edit"}, {"billing", "refund"},
		{"inventory", "view"}, {"inventory", "edit"},
		{"reviews", "view"}, {"reviews", "respond"},
		{"referrals", "view"}, {"referrals", "edit"},
		{"payouts", "view"}, {"payouts", "request"},
		{"reports", "view"}, {"reports", "export"},
		{"staff", "view"}, {"staff", "edit"},
		{"staff_permissions", "view"}, {"staff_permissions", "edit"},
	}
	return NewRoleDefaults(map[Role][]Capability{
		RoleAdmin: all,
		RoleOwner: all,
		RoleDirector: {
			{"appointments", "view"}, {"appointments", "edit"},
			{"billing", "view"}, {"billing", "edit"}, {"billing", "refund"},
			{"inventory", "view"}, {"inventory", "edit"},
			{"reviews", "view"}, {"reviews", "respond"},
			{"referrals", "view"}, {"referrals", "edit"},
			{"payouts", "view"},
			{"reports", "view"}, {"reports", "export"},
			{"staff", "view"},
			{"staff_permissions", "view"},
		},
		RoleManager: {
			{"appointments", "view"}, {"appointments", "edit"},
			{"inventory", "view"}, {"inventory", "edit"},
			{"reviews", "view"}, {"reviews", "respond"},
			{"referrals", "view"},
			{"reports", "view"},
			{"staff", "view"},
		},
		RoleHR: {
			{"staff", "view"}, {"staff", "edit"},
			{"reports", "view"},
		},
		RoleStaff: {
			{"appointments", "view"}, {"appointments", "edit"},
			{"inventory", "view"},
		},
		RoleViewer: {
			{"appointments", "view"},
			{"reviews", "view"},
			{"reports", "view"},
		},
	})
}

type defaultsFile struct {
	Roles map[string][]string `yaml:"roles"`
}

// LoadRoleDefaults reads a role defaults table from a YAML file. Each role
// lists capabilities in "resource.action" form; the resource part may not
// contain a dot.
func LoadRoleDefaults(path string) (*RoleDefaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("authz: read role defaults: %w", err)
	}
	var file defaultsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("authz: parse role defaults: %w", err)
	}
	table := make(map[Role][]Capability, len(file.Roles))
	for name, entries := range file.Roles {
		role := Role(strings.TrimSpace(name))
		if role == "" {
			return nil, fmt.Errorf("authz: role defaults: empty role name")
		}
		caps := make([]Capability, 0, len(entries))
		for _, entry := range entries {
			resource, action, ok := strings.Cut(strings.TrimSpace(entry), ".")
			if !ok || resource == "" || action == "" {
				return nil, fmt.Errorf("authz: role defaults: malformed capability %q for role %s", entry, role)
			}
			caps = append(caps, Capability{Resource: resource, Action: action})
		}
		table[role] = caps
	}
	return NewRoleDefaults(table), nil
}
