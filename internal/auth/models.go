package auth

// Identity is the authenticated user attached to a connection. It is
// resolved once at handshake time and immutable afterwards.
type Identity struct {
	ID       uint
	Username string
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
