package constants

// Audit log actions.
const (
	Create       = "CREATE"
	Update       = "UPDATE"
	Delete       = "DELETE"
	AddResource  = "ADD_RESOURCE"
	DropResource = "REMOVE_RESOURCE"
	Submit       = "SUBMIT"
	StartJob     = "START_JOB"
	Approve      = "APPROVE"
	Deny         = "DENY"
	Sync         = "SYNC"
)
