package dashboard

// ProjectCounts tallies projects visible to a user, each counted once.
type ProjectCounts struct {
	Total     int `json:"total_projects"`
	Active    int `json:"active_projects"`
	Completed int `json:"completed_projects"`
	Cancelled int `json:"cancelled_projects"`
}

// Stats is the dashboard summary for one user.
type Stats struct {
	ProjectCounts
	MyActiveSteps       int `json:"my_active_steps"`
	UnreadNotifications int `json:"unread_notifications"`
}
