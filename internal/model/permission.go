package model

// Permission represents a string code for a specific system action.
type Permission string

const (
	// PermissionMediaUpload allows uploading question images.
	PermissionMediaUpload Permission = "media:upload"

	// PermissionPositionsRead allows viewing positions and their question banks.
	PermissionPositionsRead Permission = "positions:read"

	// PermissionPositionsWrite allows managing positions and their question banks.
	PermissionPositionsWrite Permission = "positions:write"

	// PermissionCandidatesRead allows viewing candidates.
	PermissionCandidatesRead Permission = "candidates:read"

	// PermissionCandidatesWrite allows registering and deleting candidates.
	PermissionCandidatesWrite Permission = "candidates:write"

	// PermissionCandidatesResetSession allows resetting a candidate's active login.
	PermissionCandidatesResetSession Permission = "candidates:reset_session"

	// PermissionAttemptsRead allows viewing attempts, results, analytics and live monitors.
	PermissionAttemptsRead Permission = "attempts:read"

	// PermissionAttemptsReset allows abandoning an in-progress attempt.
	PermissionAttemptsReset Permission = "attempts:reset"

	// PermissionAttemptsDelete allows hard-deleting attempts.
	PermissionAttemptsDelete Permission = "attempts:delete"
)

// Role is an admin user's role.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleHR    Role = "hr"
)

// AllPermissions is a slice of all available permissions.
var AllPermissions = []Permission{
	PermissionMediaUpload,
	PermissionPositionsRead,
	PermissionPositionsWrite,
	PermissionCandidatesRead,
	PermissionCandidatesWrite,
	PermissionCandidatesResetSession,
	PermissionAttemptsRead,
	PermissionAttemptsReset,
	PermissionAttemptsDelete,
}

// Permissions returns the permission codes granted to the role.
// HR users manage the hiring pipeline but cannot delete attempt history.
func (r Role) Permissions() []string {
	var out []string
	for _, p := range AllPermissions {
		if r == RoleHR && p == PermissionAttemptsDelete {
			continue
		}
		if r != RoleAdmin && r != RoleHR {
			continue
		}
		out = append(out, string(p))
	}
	return out
}
