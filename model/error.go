package model

// ValidationError is a blocking user input error. Key is a localization
// key; Fields names the offending inputs.
type ValidationError struct {
	Key    string
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed: " + e.Key
	}
	msg := "validation failed: " + e.Key + " ("
	for i, f := range e.Fields {
		if i > 0 {
			msg += ", "
		}
		msg += f
	}
	return msg + ")"
}

// AdapterError wraps a failure of an external collaborator. Message is
// meant to be shown to the user verbatim.
type AdapterError struct {
	Adapter string
	Message string
	Err     error
}

func (e *AdapterError) Error() string {
	if e.Err != nil {
		return e.Adapter + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Adapter + ": " + e.Message
}

func (e *AdapterError) Unwrap() error { return e.Err }
