package resources

// The ACME Authorization resource represents an Account's authorization to
// issue for a specified identifier, based on interactions with associated
// Challenges.
//
// For information about the Authorization resource see
// https://tools.ietf.org/html/rfc8555#section-7.1.4
//
// To understand the Authorization Status changes specified by ACME see
// https://tools.ietf.org/html/rfc8555#section-7.1.6
type Authorization struct {
	// The server-assigned ID (a URL) identifying the Authorization, taken
	// from the Order's authorizations list. Not part of the wire body.
	ID string `json:"-"`
	// The status of this authorization. Possible values are: "pending",
	// "valid", "invalid", "deactivated", "expired", and "revoked".
	Status string `json:"status"`
	// The identifier that the account holding this Authorization is
	// authorized to represent.
	Identifier Identifier `json:"identifier"`
	// For pending authorizations, the challenges that the client can fulfill
	// in order to prove possession of the identifier.
	Challenges []Challenge `json:"challenges"`
	// A string representing a RFC 3339 date at which time the Authorization
	// is considered expired by the server.
	Expires string `json:"expires,omitempty"`
	// True for authorizations created from a DNS identifier that carried
	// a wildcard prefix.
	Wildcard bool `json:"wildcard,omitempty"`
}

// String returns the Authorization's server-assigned ID.
func (a Authorization) String() string {
	return a.ID
}

// ChallengeByType returns the Authorization's challenge of the given type, or
// false when the server offered no such challenge.
func (a *Authorization) ChallengeByType(challType string) (*Challenge, bool) {
	for i := range a.Challenges {
		if a.Challenges[i].Type == challType {
			return &a.Challenges[i], true
		}
	}
	return nil, false
}
