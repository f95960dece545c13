package identikit

// JourneyState is the tagged variant over the positions a user can occupy
// between landing and authenticated. Exactly one is active per Flow.
type JourneyState uint8

const (
	// JourneyLanding is the logged-out entry point.
	JourneyLanding JourneyState = iota
	// JourneyRegistering is the account creation form.
	JourneyRegistering
	// JourneyLoggingIn is the credential form.
	JourneyLoggingIn
	// JourneyAwaitingOTP is the one-time-code second factor.
	JourneyAwaitingOTP
	// JourneyAwaitingFacial is the facial verification step.
	JourneyAwaitingFacial
	// JourneyEnrollingBiometric is the biometric enrollment wizard.
	JourneyEnrollingBiometric
	// JourneyAuthenticated is the terminal logged-in state.
	JourneyAuthenticated
)

func (s JourneyState) String() string {
	switch s {
	case JourneyLanding:
		return "landing"
	case JourneyRegistering:
		return "registering"
	case JourneyLoggingIn:
		return "logging_in"
	case JourneyAwaitingOTP:
		return "awaiting_otp"
	case JourneyAwaitingFacial:
		return "awaiting_facial"
	case JourneyEnrollingBiometric:
		return "enrolling_biometric"
	case JourneyAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}
