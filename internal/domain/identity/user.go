package identity

// User is the signed-in shopper as seen by the storefront client. The token is
// opaque and forwarded to the backend; Subject keys per-user state and Phone is
// the default receiver phone for new addresses.
type User struct {
	Token   string
	Subject string
	Phone   string
}

// Present reports whether u represents a signed-in user
func (u *User) Present() bool {
	return u != nil && u.Token != ""
}

// Key returns the identity used to tag per-user requests. An absent user has
// the empty key.
func (u *User) Key() string {
	if !u.Present() {
		return ""
	}
	if u.Subject != "" {
		return u.Subject
	}
	return u.Token
}

// DefaultPhone returns the phone number used to pre-fill a new address
func (u *User) DefaultPhone() string {
	if u == nil {
		return ""
	}
	return u.Phone
}
