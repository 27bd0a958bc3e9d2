package result

// Reason texts shared by the walker, the validator and the corpus driver.
const (
	ReasonDisplayNoCodeNoSystem = "Display provided but code and system are missing."
	ReasonDisplayNoSystem       = "Display provided but system is missing."
	ReasonDisplayNoCode         = "Display provided but code is missing."
	ReasonTextOnlyConcept       = "CodeableConcept with text only, no codings."

	ReasonExcludedDefault = "Code system is excluded from validation."

	ReasonValid         = "Code is valid."
	ReasonInvalid       = "Code is not valid according to the terminology server."
	ReasonMissingResult = "Validation response missing result parameter or it was not boolean."
	ReasonTimeout       = "Request timed out."
	ReasonInvalidJSON   = "Invalid JSON response from server."
	ReasonNotParameters = "Invalid response format: Not a Parameters resource."

	ReasonFileInvalidJSON = "Invalid JSON format"
)
