// Package rbactest provides an in-memory directory for tests that need the
// access check without PostgreSQL.
package rbactest

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/escuela/alumnos/internal/rbac"
)

// ErrInjected is returned by writes configured to fail.
var ErrInjected = errors.New("rbactest: injected failure")

// Directory implements rbac.Repository and rbac.DirectoryStore in memory.
// Transactions apply to a copy that is committed only when fn succeeds.
type Directory struct {
	mu sync.Mutex

	users        map[uuid.UUID]rbac.Principal
	capabilities map[string]rbac.Capability
	roles        map[string]rbac.Role
	grants       map[uuid.UUID][]uuid.UUID
	years        map[string]uuid.UUID
	markers      map[int]bool

	roleCapabilityCalls int

	// FindErr, when set, is returned by FindPrincipal.
	FindErr error
	// FailOnRole makes UpsertRole fail for that role name.
	FailOnRole string
}

// New returns an empty directory.
func New() *Directory {
	return &Directory{
		users:        map[uuid.UUID]rbac.Principal{},
		capabilities: map[string]rbac.Capability{},
		roles:        map[string]rbac.Role{},
		grants:       map[uuid.UUID][]uuid.UUID{},
		years:        map[string]uuid.UUID{},
		markers:      map[int]bool{},
	}
}

// Seeded returns a directory on which the seeder has already run.
func Seeded() (*Directory, error) {
	d := New()
	if _, err := rbac.NewSeeder(d, nil, nil).EnsureSeeded(context.Background()); err != nil {
		return nil, err
	}
	return d, nil
}

// AddUser registers a user holding roleName (empty for none) in yearID.
func (d *Directory) AddUser(roleName string, yearID *uuid.UUID) uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := rbac.Principal{ID: uuid.New(), YearID: yearID}
	if roleName != "" {
		id := d.roles[roleName].ID
		p.RoleID = &id
	}
	d.users[p.ID] = p
	return p.ID
}

// RoleID returns the id of a role by name.
func (d *Directory) RoleID(name string) uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.roles[name].ID
}

// YearID returns the id of a year by name.
func (d *Directory) YearID(name string) uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.years[name]
}

// Counts reports how many capabilities, roles, years and markers exist.
func (d *Directory) Counts() (capabilities, roles, years, markers int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.capabilities), len(d.roles), len(d.years), len(d.markers)
}

// Grants returns the capability ids granted to a role.
func (d *Directory) Grants(roleID uuid.UUID) []uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uuid.UUID(nil), d.grants[roleID]...)
}

// RoleCapabilityCalls counts RoleCapabilities reads.
func (d *Directory) RoleCapabilityCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.roleCapabilityCalls
}

func (d *Directory) FindPrincipal(ctx context.Context, id uuid.UUID) (rbac.Principal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FindErr != nil {
		return rbac.Principal{}, d.FindErr
	}
	p, ok := d.users[id]
	if !ok {
		return rbac.Principal{}, rbac.ErrNotFound
	}
	return p, nil
}

func (d *Directory) RoleCapabilities(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.roleCapabilityCalls++
	names := []string{}
	for _, capID := range d.grants[roleID] {
		for _, c := range d.capabilities {
			if c.ID == capID {
				names = append(names, c.Name)
			}
		}
	}
	return names, nil
}

func (d *Directory) ListCapabilities(ctx context.Context) ([]rbac.Capability, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]rbac.Capability, 0, len(d.capabilities))
	for _, spec := range rbac.Capabilities() {
		if c, ok := d.capabilities[spec.Name]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (d *Directory) WithDirectoryTx(ctx context.Context, fn func(context.Context, rbac.DirectoryTx) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	tx := &directoryTx{
		failOnRole:   d.FailOnRole,
		capabilities: cloneMap(d.capabilities),
		roles:        cloneMap(d.roles),
		grants:       cloneMap(d.grants),
		years:        cloneMap(d.years),
		markers:      cloneMap(d.markers),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	d.capabilities, d.roles, d.grants, d.years, d.markers = tx.capabilities, tx.roles, tx.grants, tx.years, tx.markers
	return nil
}

type directoryTx struct {
	failOnRole   string
	capabilities map[string]rbac.Capability
	roles        map[string]rbac.Role
	grants       map[uuid.UUID][]uuid.UUID
	years        map[string]uuid.UUID
	markers      map[int]bool
}

func (t *directoryTx) LockDirectory(ctx context.Context) error { return nil }

func (t *directoryTx) MarkerApplied(ctx context.Context, version int) (bool, error) {
	return t.markers[version], nil
}

func (t *directoryTx) UpsertCapability(ctx context.Context, spec rbac.CapabilitySpec) (rbac.Capability, error) {
	c, ok := t.capabilities[spec.Name]
	if !ok {
		c = rbac.Capability{ID: uuid.New(), Name: spec.Name}
	}
	c.Description = spec.Description
	t.capabilities[spec.Name] = c
	return c, nil
}

func (t *directoryTx) UpsertRole(ctx context.Context, name string) (rbac.Role, error) {
	if name == t.failOnRole {
		return rbac.Role{}, ErrInjected
	}
	role, ok := t.roles[name]
	if !ok {
		role = rbac.Role{ID: uuid.New(), Name: name}
		t.roles[name] = role
	}
	return role, nil
}

func (t *directoryTx) ReplaceRoleCapabilities(ctx context.Context, roleID uuid.UUID, ids []uuid.UUID) error {
	t.grants[roleID] = append([]uuid.UUID(nil), ids...)
	return nil
}

func (t *directoryTx) UpsertYear(ctx context.Context, name string) (uuid.UUID, error) {
	id, ok := t.years[name]
	if !ok {
		id = uuid.New()
		t.years[name] = id
	}
	return id, nil
}

func (t *directoryTx) RecordMarker(ctx context.Context, version int) error {
	t.markers[version] = true
	return nil
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
