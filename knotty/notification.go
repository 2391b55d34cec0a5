package knotty

// Property names carried by a Notification.
const (
	PropState     = "State"
	PropIsLoading = "IsLoading"
	PropHasErrors = "HasErrors"
	PropErrors    = "Errors"
)

// Notification tells presentation adapters which observable property changed.
// Scope is set only for PropErrors.
type Notification struct {
	Property string
	Scope    string
}
