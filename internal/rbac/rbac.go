package rbac

type Role string
type Action string

const (
	RoleViewer       Role = "viewer"
	RolePractitioner Role = "practitioner"
	RoleManager      Role = "manager"
	RoleAdmin        Role = "admin"
)

const (
	ActionRead        Action = "read"
	ActionWrite       Action = "write"
	ActionAgree       Action = "agree"
	ActionSign        Action = "sign"
	ActionCountersign Action = "countersign"
	ActionRollback    Action = "rollback"
	ActionExport      Action = "export"
	ActionAdmin       Action = "admin"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleManager:
		return action != ActionAdmin
	case RolePractitioner:
		return action == ActionRead || action == ActionWrite || action == ActionAgree ||
			action == ActionSign || action == ActionExport
	case RoleViewer:
		return action == ActionRead
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleViewer, RolePractitioner, RoleManager, RoleAdmin:
		return Role(role)
	default:
		return RoleViewer
	}
}
