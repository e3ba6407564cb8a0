package client

import "time"

// AuthContext carries the bearer token for remote calls.
type AuthContext struct {
	Token  string
	Expiry time.Time
}

// Valid reports whether the token can be used at now. A zero Expiry means
// the expiry is unknown and the token is tried as is.
func (a AuthContext) Valid(now time.Time) bool {
	if a.Token == "" {
		return false
	}
	return a.Expiry.IsZero() || now.Before(a.Expiry)
}
