package tokens

// UserIdentity adapts a stored User to the Identity interface. Fields are
// captured at construction time, so an identity handed out by a provider
// stays stable even if the user record changes afterwards.
type UserIdentity struct {
	id       string
	username string
	email    string
	role     string
}

// NewIdentityFromUser builds the Identity used by login and token minting
// flows. Returns nil when user is nil.
func NewIdentityFromUser(user *User) Identity {
	if user == nil {
		return nil
	}
	return UserIdentity{
		id:       user.ID.String(),
		username: user.Username,
		email:    user.Email,
		role:     string(user.Role),
	}
}

// ID returns the user's ID as a string.
func (u UserIdentity) ID() string {
	return u.id
}

// Username returns the user's username.
func (u UserIdentity) Username() string {
	return u.username
}

// Email returns the user's email address.
func (u UserIdentity) Email() string {
	return u.email
}

// Role returns the user's role as a string.
func (u UserIdentity) Role() string {
	return u.role
}

var _ Identity = UserIdentity{}
