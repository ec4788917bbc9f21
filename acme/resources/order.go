// Package resources provides types for representing ACME protocol resources.
package resources

// The Identifier resource represents a subject identifier that can be included
// in a certificate. This client only produces "dns" type identifiers.
//
// See https://tools.ietf.org/html/rfc8555#section-7.5
type Identifier struct {
	// The Type of the Identifier value. Always "dns" here.
	Type string `json:"type"`
	// The Identifier value, a fully qualified domain name.
	Value string `json:"value"`
}

// DNSIdentifier returns a "dns" type Identifier for the given domain.
func DNSIdentifier(domain string) Identifier {
	return Identifier{Type: "dns", Value: domain}
}

// The Order resource represents a collection of identifiers that an account
// wishes to create a Certificate for. The client's copy is a decoded snapshot;
// the server's copy is authoritative and evolves independently.
//
// See https://tools.ietf.org/html/rfc8555#section-7.1.3
type Order struct {
	// The server-assigned ID (a URL) identifying the Order, taken from the
	// Location header of the newOrder response. Not part of the wire body.
	ID string `json:"-"`
	// The Status of the Order.
	Status string `json:"status,omitempty"`
	// RFC 3339 timestamp after which the server considers the Order expired.
	Expires string `json:"expires,omitempty"`
	// The Identifiers the Order covers.
	Identifiers []Identifier `json:"identifiers"`
	// A list of URLs for Authorization resources the server specifies for the
	// Order Identifiers.
	Authorizations []string `json:"authorizations,omitempty"`
	// A URL used to Finalize the Order with a CSR once it is ready. Carried
	// but not consumed; finalization is outside this client's scope.
	Finalize string `json:"finalize,omitempty"`
	// A URL used to fetch the issued Certificate once the Order is valid.
	Certificate string `json:"certificate,omitempty"`
}

// String returns the Order's ID URL.
func (o Order) String() string {
	return o.ID
}
