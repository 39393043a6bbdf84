package auth

// DefaultErrorMessage is returned for any code missing from the table, including "".
const DefaultErrorMessage = "An error occurred during authentication. Please try again."

var errorMessages = map[string]string{
	"auth/user-disabled":                               "Your account has been disabled. Please contact support.",
	"auth/user-not-found":                              "No account found with this email address.",
	"auth/wrong-password":                              "Incorrect password. Please try again.",
	"auth/email-already-in-use":                        "An account with this email already exists.",
	"auth/weak-password":                               "Password is too weak. Please choose a stronger password.",
	"auth/invalid-email":                               "Please enter a valid email address.",
	"auth/operation-not-allowed":                       "This sign-in method is not enabled. Please contact support.",
	"auth/account-exists-with-different-credential":    "An account already exists with the same email but different sign-in credentials.",
	"auth/auth-domain-config-required":                 "Authentication configuration error. Please contact support.",
	"auth/credential-already-in-use":                   "This credential is already associated with a different user account.",
	"auth/operation-not-supported-in-this-environment": "This operation is not supported in this environment.",
	"auth/timeout":                                     "Operation timed out. Please try again.",
	"auth/missing-android-pkg-name":                    "An Android Package Name must be provided if the Android App is required to be installed.",
	"auth/missing-continue-uri":                        "A continue URL must be provided in the request.",
	"auth/missing-ios-bundle-id":                       "An iOS Bundle ID must be provided if an App Store ID is provided.",
	"auth/invalid-continue-uri":                        "The continue URL provided in the request is invalid.",
	"auth/unauthorized-continue-uri":                   "The domain of the continue URL is not whitelisted.",
	"auth/invalid-dynamic-link-domain":                 "The provided dynamic link domain is not configured or authorized for the current project.",
	"auth/argument-error":                              "Invalid arguments provided. Please check your input.",
	"auth/invalid-persistence-type":                    "The specified persistence type is invalid.",
	"auth/unsupported-persistence-type":                "The current environment does not support the specified persistence type.",
	"auth/invalid-credential":                          "The supplied credential is invalid.",
	"auth/invalid-verification-code":                   "The verification code is invalid.",
	"auth/invalid-verification-id":                     "The verification ID is invalid.",
	"auth/custom-token-mismatch":                       "The custom token corresponds to a different audience.",
	"auth/invalid-custom-token":                        "The custom token format is incorrect.",
	"auth/captcha-check-failed":                        "The reCAPTCHA response token provided is invalid.",
	"auth/invalid-phone-number":                        "The format of the phone number provided is incorrect.",
	"auth/missing-phone-number":                        "To send verification codes, provide a phone number for the recipient.",
	"auth/quota-exceeded":                              "The project's quota for this operation has been exceeded.",
	"auth/cancelled-popup-request":                     "This operation has been cancelled due to another conflicting popup being opened.",
	"auth/popup-blocked":                               "Unable to establish a connection with the popup. It may have been blocked by the browser.",
	"auth/popup-closed-by-user":                        "The popup has been closed by the user before finalizing the operation.",
	"auth/unauthorized-domain":                         "This domain is not authorized for OAuth operations for your Firebase project.",
	"auth/invalid-user-token":                          "This user's credential isn't valid for this project. This can happen if the user's token has been tampered with, or if the user isn't for the project associated with this API key.",
	"auth/user-token-expired":                          "The user's credential is no longer valid. The user must sign in again.",
	"auth/null-user":                                   "The user is null.",
	"auth/app-deleted":                                 "This instance of FirebaseApp has been deleted.",
	"auth/invalid-api-key":                             "Your API key is invalid, please check you have copied it correctly.",
	"auth/network-request-failed":                      "Network error occurred. Please check your internet connection and try again.",
	"auth/requires-recent-login":                       "This operation is sensitive and requires recent authentication. Log in again before retrying this request.",
	"auth/too-many-requests":                           "We have blocked all requests from this device due to unusual activity. Try again later.",
	"auth/web-storage-unsupported":                     "This browser is not supported or 3rd party cookies and data may be disabled.",
}

// ErrorMessage translates a platform error code into the sentence shown to the user.
func ErrorMessage(code string) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return DefaultErrorMessage
}
