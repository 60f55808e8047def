package rbac

// CheckPermission decides whether authz grants required. It is a pure function:
// capability names are compared exactly, with no wildcards and no implied
// capabilities. A missing principal denies with DenyUserNotFound; a principal
// without a role has no capabilities and is always denied.
func CheckPermission(authz AuthContext, required string) Decision {
	if authz.Principal == nil {
		return deny(DenyUserNotFound)
	}
	for _, name := range authz.Capabilities {
		if name == required {
			return allow()
		}
	}
	return deny(DenyInsufficientPermission)
}
