package firebase

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/url"
	"strings"

	"firebase_auth_session/internal/common"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// serverErrorCodes maps identity toolkit error reasons to platform codes.
var serverErrorCodes = map[string]string{
	"ADMIN_ONLY_OPERATION":             "auth/admin-restricted-operation",
	"CAPTCHA_CHECK_FAILED":             "auth/captcha-check-failed",
	"CREDENTIAL_MISMATCH":              "auth/custom-token-mismatch",
	"CREDENTIAL_TOO_OLD_LOGIN_AGAIN":   "auth/requires-recent-login",
	"EMAIL_EXISTS":                     "auth/email-already-in-use",
	"EMAIL_NOT_FOUND":                  "auth/user-not-found",
	"FEDERATED_USER_ID_ALREADY_LINKED": "auth/credential-already-in-use",
	"INVALID_CODE":                     "auth/invalid-verification-code",
	"INVALID_CONTINUE_URI":             "auth/invalid-continue-uri",
	"INVALID_CUSTOM_TOKEN":             "auth/invalid-custom-token",
	"INVALID_DYNAMIC_LINK_DOMAIN":      "auth/invalid-dynamic-link-domain",
	"INVALID_EMAIL":                    "auth/invalid-email",
	"INVALID_ID_TOKEN":                 "auth/invalid-user-token",
	"INVALID_IDP_RESPONSE":             "auth/invalid-credential",
	"INVALID_LOGIN_CREDENTIALS":        "auth/invalid-credential",
	"INVALID_PASSWORD":                 "auth/wrong-password",
	"INVALID_PHONE_NUMBER":             "auth/invalid-phone-number",
	"INVALID_REFRESH_TOKEN":            "auth/user-token-expired",
	"INVALID_SESSION_INFO":             "auth/invalid-verification-id",
	"MISSING_ANDROID_PACKAGE_NAME":     "auth/missing-android-pkg-name",
	"MISSING_CONTINUE_URI":             "auth/missing-continue-uri",
	"MISSING_IOS_BUNDLE_ID":            "auth/missing-ios-bundle-id",
	"MISSING_PASSWORD":                 "auth/missing-password",
	"MISSING_PHONE_NUMBER":             "auth/missing-phone-number",
	"OPERATION_NOT_ALLOWED":            "auth/operation-not-allowed",
	"PASSWORD_LOGIN_DISABLED":          "auth/operation-not-allowed",
	"QUOTA_EXCEEDED":                   "auth/quota-exceeded",
	"TOKEN_EXPIRED":                    "auth/user-token-expired",
	"TOO_MANY_ATTEMPTS_TRY_LATER":      "auth/too-many-requests",
	"UNAUTHORIZED_DOMAIN":              "auth/unauthorized-continue-uri",
	"USER_DISABLED":                    "auth/user-disabled",
	"USER_NOT_FOUND":                   "auth/user-token-expired",
	"WEAK_PASSWORD":                    "auth/weak-password",
}

const codeInternal = "auth/internal-error"

// codeForReason resolves a server message such as "WEAK_PASSWORD : Password should be at
// least 6 characters" to its platform code.
func codeForReason(message string) string {
	if strings.Contains(message, "API key not valid") || strings.Contains(message, "API_KEY_INVALID") {
		return common.CodeInvalidAPIKey
	}
	reason := strings.TrimSpace(message)
	if i := strings.Index(reason, " : "); i >= 0 {
		reason = reason[:i]
	}
	if code, ok := serverErrorCodes[reason]; ok {
		return code
	}
	return codeInternal
}

// toAuthError converts transport and API failures into *common.AuthError. Errors that do
// not come from the platform (a cancelled context, a local store failure) are returned as is.
func toAuthError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := common.IsAuthError(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return common.NewAuthError(common.CodeTimeout, "request deadline exceeded").WithCause(err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" && len(apiErr.Errors) > 0 {
			msg = apiErr.Errors[0].Message
		}
		return common.NewAuthError(codeForReason(msg), msg).WithCause(err)
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		msg := secureTokenMessage(retrieveErr.Body)
		return common.NewAuthError(codeForReason(msg), msg).WithCause(err)
	}

	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return common.NewAuthError(common.CodeNetworkFailed, err.Error()).WithCause(err)
	}
	return err
}

// secureTokenMessage extracts error.message from a secure token endpoint error body.
func secureTokenMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Error.Message
}
