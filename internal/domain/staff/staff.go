// Package staff defines the staff member reference used for task ownership.
// Staff identity is owned by an external directory; tasks hold weak
// references (ids) that are resolved to display data on demand.
package staff

// Member is the directory record for one staff member.
type Member struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}
