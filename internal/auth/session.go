package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"
)

const (
	CookieName    = "photoalbum_session"
	SessionMaxAge = 7 * 24 * time.Hour
)

// SetSessionCookie stores sessionID in a cookie signed with secret.
func SetSessionCookie(w http.ResponseWriter, sessionID, secret string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sessionID + "." + sign(sessionID, secret),
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionMaxAge.Seconds()),
	})
}

func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// GetSessionID returns the session id from a correctly signed cookie.
func GetSessionID(r *http.Request, secret string) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", false
	}
	sessionID, sig, ok := strings.Cut(cookie.Value, ".")
	if !ok || sessionID == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sign(sessionID, secret)), []byte(sig)) {
		return "", false
	}
	return sessionID, true
}

func sign(data, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
