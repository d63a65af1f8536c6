package taskwarrior

const (
	PENDING = "pending"
	DELETED = "deleted"
)

type Task struct {
	UUID        string   `json:"uuid"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Project     string   `json:"project,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Urgency     float64  `json:"urgency,omitempty"`
}
