package models

// Status is the indicator a node shows to the hosting environment.
type Status struct {
	Fill  string `json:"fill,omitempty"`
	Shape string `json:"shape,omitempty"`
	Text  string `json:"text,omitempty"`
}

// StatusIdle clears the indicator.
func StatusIdle() Status { return Status{} }

// StatusBusy marks a message in flight.
func StatusBusy() Status {
	return Status{Fill: "blue", Shape: "dot", Text: "executing"}
}

// StatusError shows the failure reason.
func StatusError(text string) Status {
	return Status{Fill: "red", Shape: "dot", Text: text}
}

// IsIdle reports whether the indicator is cleared.
func (s Status) IsIdle() bool { return s == Status{} }
