package errs

// Error categories shared by the use-case layer. Specific errors are returned
// marked with one of these so callers can branch on the category with Is.
var (
	// Rejected before any lock or transaction is taken.
	ErrValidation = New("validation error")

	// The date range lock is held by another request; safe to retry.
	ErrConcurrencyConflict = New("concurrent booking in progress")

	ErrNotFound  = New("not found")
	ErrForbidden = New("forbidden")

	ErrInvalidStateTransition = New("invalid state transition")

	// Not enough units left once the range lock is held.
	ErrUnavailable = New("insufficient availability")

	ErrExternalGateway    = New("external gateway error")
	ErrCacheUnavailable   = New("cache unavailable")
	ErrPersistenceFailure = New("persistence failure")
)

func Validation(err error) error        { return Mark(err, ErrValidation) }
func Conflict(err error) error          { return Mark(err, ErrConcurrencyConflict) }
func NotFound(err error) error          { return Mark(err, ErrNotFound) }
func Forbidden(err error) error         { return Mark(err, ErrForbidden) }
func InvalidTransition(err error) error { return Mark(err, ErrInvalidStateTransition) }
func Unavailable(err error) error       { return Mark(err, ErrUnavailable) }
func Gateway(err error) error           { return Mark(err, ErrExternalGateway) }
func Cache(err error) error             { return Mark(err, ErrCacheUnavailable) }
func Persistence(err error) error       { return Mark(err, ErrPersistenceFailure) }
