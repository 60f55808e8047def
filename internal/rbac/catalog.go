package rbac

// Capability names checked by the HTTP routes.
const (
	PermCreateUser = "create-user"
	PermDeleteUser = "delete-user"
	PermViewUsers  = "view-users"
	PermModifyUser = "modify-user"
	PermCreatePost = "create-post"
	PermViewPost   = "view-post"
)

// Role names created by the seeder.
const (
	RoleAdministrator = "Administrador"
	RoleUser          = "Usuario"
)

// CatalogVersion is recorded in directory_migrations once the catalog below
// has been written. Bump it whenever the catalog changes.
const CatalogVersion = 2

// CapabilitySpec describes a catalog capability before it has an ID.
type CapabilitySpec struct {
	Name        string
	Description string
}

// RoleSpec describes a catalog role and the capability names it grants.
type RoleSpec struct {
	Name   string
	Grants []string
}

// Capabilities returns the capability catalog in seeding order.
func Capabilities() []CapabilitySpec {
	return []CapabilitySpec{
		{PermCreateUser, "Permite crear nuevos usuarios"},
		{PermDeleteUser, "Permite eliminar usuarios"},
		{PermViewUsers, "Permite ver todos los usuarios"},
		{PermModifyUser, "Permite modificar datos de usuarios"},
		{PermCreatePost, "Permite publicar posts para su año"},
		{PermViewPost, "Permite ver los posts de su año"},
	}
}

// Roles returns the two seeded roles.
func Roles() []RoleSpec {
	all := make([]string, 0, len(Capabilities()))
	for _, c := range Capabilities() {
		all = append(all, c.Name)
	}
	return []RoleSpec{
		{Name: RoleAdministrator, Grants: all},
		{Name: RoleUser, Grants: []string{PermViewUsers, PermViewPost, PermCreatePost}},
	}
}

// Years returns the year groups created alongside the catalog.
func Years() []string {
	return []string{"Primer Año", "Segundo Año", "Tercer Año", "Cuarto Año", "Quinto Año"}
}
