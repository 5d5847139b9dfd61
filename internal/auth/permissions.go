package auth

// Builtin permission keys.
const (
	PermOrgManage     = "org.manage"
	PermOrgBilling    = "org.billing"
	PermStoreManage   = "store.manage"
	PermStoreOrders   = "store.orders"
	PermCatalogWrite  = "catalog.write"
	PermCatalogRead   = "catalog.read"
	PermMembersInvite = "members.invite"
)

// BuiltinPermissions is the catalog seeded at startup.
var BuiltinPermissions = []Permission{
	{Key: PermOrgManage, Description: "Manage organization profile and settings"},
	{Key: PermOrgBilling, Description: "Manage billing for the organization"},
	{Key: PermStoreManage, Description: "Manage store profile and configuration"},
	{Key: PermStoreOrders, Description: "View and process store orders"},
	{Key: PermCatalogWrite, Description: "Create and edit catalog entries"},
	{Key: PermCatalogRead, Description: "Browse the catalog"},
	{Key: PermMembersInvite, Description: "Invite staff and managers"},
}

// BuiltinRolePermissions maps each system role to its permission bundle.
// super_admin holds everything implicitly and carries no explicit grants.
var BuiltinRolePermissions = map[RoleName][]string{
	RoleOwner: {
		PermOrgManage, PermOrgBilling, PermStoreManage, PermStoreOrders,
		PermCatalogWrite, PermCatalogRead, PermMembersInvite,
	},
	RoleManager: {
		PermStoreManage, PermStoreOrders, PermCatalogWrite, PermCatalogRead,
		PermMembersInvite,
	},
	RoleStaff: {
		PermStoreOrders, PermCatalogRead,
	},
	RoleCustomer: {
		PermCatalogRead,
	},
}
