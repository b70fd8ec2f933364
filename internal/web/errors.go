package web

const CredentialsErrorCode = "credentials-error"

const genericErrorMessage = "Something went wrong, we couldn't fullfil your request"

var errorMessages = map[string]string{
	CredentialsErrorCode: "Something went wrong validating the credentials. Sign in again",
}

// ErrorMessage maps an error page code to user-facing text. Unknown codes get the generic text.
func ErrorMessage(code string) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return genericErrorMessage
}

var formMessages = map[string]string{
	"invalid-credentials": "Invalid email or password.",
	"missing-credentials": "Email and password are required.",
	"registration-failed": "We couldn't create your account. Try a different email or a longer password.",
	"confirm-email":       "Check your inbox to confirm your email, then sign in.",
}

func formMessage(code string) string {
	return formMessages[code]
}
