package domain

// User-visible fixed messages. Every path through the request handling code
// terminates in either a validated answer, a rendered score, or one of these.
const (
	// RefusalSentinel is returned verbatim whenever a generated answer cannot be
	// shown to be grounded in the study material. The answer engine also detects
	// echoed refusals from the generation service by substring containment, so
	// the text must never change between releases.
	RefusalSentinel = "Not found in the provided study material."

	// OutOfScopeMessage is returned instead of a score when a submission is
	// plainly outside the supported subject.
	OutOfScopeMessage = "This answer is outside the supported subject (History), so it was not scored. Please send a History answer."

	// ResubmitMessage is returned when extraction produced no usable text.
	ResubmitMessage = "I could not read enough text from this submission. Please send a clearer photo or a typed PDF."

	// UnreadableMessage is returned when extracted text fails the readability gate.
	UnreadableMessage = "The text in this submission looks unreadable, so it was not scored. Please resend a clearer scan or type the answer."

	// ConnectionFailureMessage is returned after connection or timeout retries are exhausted.
	ConnectionFailureMessage = "Connection problem reaching the answer service. Please retry in 30 seconds."

	// RateLimitedMessage is returned after rate-limit retries are exhausted.
	RateLimitedMessage = "The answer service is busy right now. Please retry in a minute."

	// StatusFailureFormat is formatted with the provider status code for terminal errors.
	StatusFailureFormat = "Answer service error (status %d). Please check the API key/model and try again."

	// UnexpectedFailureMessage is returned for unclassified failures.
	UnexpectedFailureMessage = "Unexpected server error. Please try again."

	// ScoringUnavailableMessage is returned when the delegated scorer produced
	// output that could not be validated even after repair.
	ScoringUnavailableMessage = "The evaluation could not be completed. Please try again."

	// ShortQuestionMessage is returned for questions too short to answer.
	ShortQuestionMessage = "Please type a proper question."
)
