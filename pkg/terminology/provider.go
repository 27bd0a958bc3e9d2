package terminology

import "context"

// Provider answers whether a code is a member of a code system.
//
// Implementations return a non-nil Outcome when the server produced a usable
// response, or one of the error types in this package when it did not.
// An empty system or code is sent as an absent parameter.
type Provider interface {
	ValidateCode(ctx context.Context, system, code string) (*Outcome, error)
}

// Outcome is the interpreted body of a $validate-code response.
type Outcome struct {
	// Valid is the result parameter. Nil when it was missing or not a boolean.
	Valid *bool

	// Display is the canonical display returned by the server.
	Display *string

	// Message is the server's explanatory message.
	Message *string

	// StatusCode is the HTTP status of the response.
	StatusCode int
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, system, code string) (*Outcome, error)

// ValidateCode calls f.
func (f ProviderFunc) ValidateCode(ctx context.Context, system, code string) (*Outcome, error) {
	return f(ctx, system, code)
}
