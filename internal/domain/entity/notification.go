package entity

type Notification struct {
	Recipient string
	Subject   string
	HTMLBody  string
}

type DeployMode string

const (
	DeployModeFlask  DeployMode = "flask"
	DeployModeStatic DeployMode = "static"
)

// Deployment describes a launched application occupying the deployment slot.
type Deployment struct {
	Dir   string     `json:"dir"`
	Entry string     `json:"entry,omitempty"`
	Mode  DeployMode `json:"mode"`
	PID   int        `json:"pid"`
	Port  int        `json:"port"`
	URL   string     `json:"url"`
}
