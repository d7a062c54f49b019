package middleware

import "github.com/labstack/echo/v4"

// UserID returns the authenticated caller's id, or "" for guests.
func UserID(c echo.Context) string {
    s, _ := c.Get(ctxUserID).(string)
    return s
}

// Role returns the role claim of the authenticated caller, or "".
func Role(c echo.Context) string {
    s, _ := c.Get(ctxRole).(string)
    return s
}

// rateSubject names the caller for rate limiting; guests share "guest".
func rateSubject(c echo.Context) string {
    if id := UserID(c); id != "" {
        return id
    }
    return "guest"
}
