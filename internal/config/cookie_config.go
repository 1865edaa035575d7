package config

import "strconv"

type Cookies struct{}

var _ CookieConfig = Cookies{}

const (
	// defaultCookieMaxAge is 7 days, matching the backend token lifetime.
	defaultCookieMaxAge = 604800
	defaultCookieName   = "accessToken"
)

func (Cookies) GetCookieName() string {
	return GetEnv("COOKIE_NAME", defaultCookieName)
}

func (Cookies) GetCookieMaxAge() int {
	raw := GetEnv("COOKIE_MAX_AGE", "")
	if raw == "" {
		return defaultCookieMaxAge
	}
	maxAge, err := strconv.Atoi(raw)
	if err != nil || maxAge <= 0 {
		return defaultCookieMaxAge
	}
	return maxAge
}
