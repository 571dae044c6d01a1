package types

// ValidationError is a configuration problem tied to a configuration key.
type ValidationError struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// ValidationResult collects validation errors for a configuration.
type ValidationResult struct {
	Errors []ValidationError `json:"errors"`
}

// AddError records a problem for the given key.
func (v *ValidationResult) AddError(key, message string) {
	v.Errors = append(v.Errors, ValidationError{Key: key, Message: message})
}

// Success reports whether no errors were recorded.
func (v ValidationResult) Success() bool {
	return len(v.Errors) == 0
}

// Messages returns the error messages in the order they were recorded.
func (v ValidationResult) Messages() []string {
	messages := make([]string, 0, len(v.Errors))
	for _, e := range v.Errors {
		messages = append(messages, e.Message)
	}

	return messages
}
