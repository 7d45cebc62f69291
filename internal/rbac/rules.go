package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"assignment:view",
		"assignment:list-available",
		"response:start",
		"response:submit",
		"user:change_password",
	},
	"manager": {
		"assignment:create",
		"assignment:view",
		"assignment:update",
		"assignment:delete",
		"response:list",
		"response:grade",
		"response:withdraw",
		"grades:publish",
		"users:list",
		"users:bulk_upsert",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}
