package resources

import (
	"encoding/json"

	"github.com/certo-acme/certo/acme"
)

// Problem is a struct representing an RFC 7807 problem document from the
// server.
type Problem struct {
	Type   string `json:"type,omitempty"`
	Detail string `json:"detail,omitempty"`
	Status int    `json:"status,omitempty"`
}

// IsBadNonce is true when the problem indicates the request's anti-replay
// nonce was stale and the request may be retried with a fresh one.
func (p Problem) IsBadNonce() bool {
	return p.Type == acme.BAD_NONCE_PROBLEM
}

// ProblemFromBody decodes a problem document from a response body. The second
// return value is false when the body is not a problem document.
func ProblemFromBody(body []byte) (Problem, bool) {
	var prob Problem
	if err := json.Unmarshal(body, &prob); err != nil {
		return Problem{}, false
	}
	return prob, prob.Type != ""
}
