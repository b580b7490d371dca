package rbac

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	PermTestView       = "test:view"
	PermTestWrite      = "test:write"
	PermTestExport     = "test:export"
	PermQuestionView   = "question:view"
	PermQuestionWrite  = "question:write"
	PermQuestionAnswer = "question:answer"
	PermGenerate       = "question:generate"
	PermEventsView     = "events:view"
	PermSubscribe      = "events:subscribe"
	PermUsersManage    = "users:manage"
)

var RolePermissions = map[string][]string{
	RoleUser: {
		"test:*",
		"question:*",
		PermEventsView,
		PermSubscribe,
	},
	RoleAdmin: {
		"*", // everything
	},
}

// KnownRole reports whether role has a policy entry.
func KnownRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}
