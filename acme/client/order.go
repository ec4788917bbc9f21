package client

import (
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/certo-acme/certo/acme"
	"github.com/certo-acme/certo/acme/keys"
	"github.com/certo-acme/certo/acme/resources"
	"github.com/certo-acme/certo/acmeerr"
	acmenet "github.com/certo-acme/certo/net"
)

// Order creates an order for the given domains and works through its
// authorizations one at a time: fetch the authorization, select its dns-01
// challenge, publish the response, trigger validation and poll the challenge
// until it reaches a terminal state or the poll budget runs out.
// Authorizations are processed sequentially; each request needs the nonce
// from the previous response, so parallelism inside a session buys nothing.
//
// Finalization and certificate download are outside this client's scope.
func (c *Client) Order(domains []string) (*resources.Order, error) {
	order, err := c.CreateOrder(domains)
	if err != nil {
		return nil, err
	}

	for _, authzURL := range order.Authorizations {
		if err := c.solveAuthorization(authzURL); err != nil {
			return order, err
		}
	}
	return order, nil
}

// CreateOrder creates a new order resource for the given domains.
//
// See https://tools.ietf.org/html/rfc8555#section-7.4
func (c *Client) CreateOrder(domains []string) (*resources.Order, error) {
	if len(domains) == 0 {
		return nil, acmeerr.OrderError("an order needs at least one domain")
	}

	identifiers := make([]resources.Identifier, 0, len(domains))
	for _, domain := range domains {
		identifiers = append(identifiers, resources.DNSIdentifier(domain))
	}

	req := struct {
		Identifiers []resources.Identifier `json:"identifiers"`
	}{
		Identifiers: identifiers,
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	resp, err := c.Request(acme.NEW_ORDER_ENDPOINT, reqBody)
	if err != nil {
		return nil, err
	}

	if !acmenet.StatusOK(resp.StatusCode) {
		return nil, acmeerr.OrderError("newOrder returned status %d: %s",
			resp.StatusCode, resp.Body)
	}

	var order resources.Order
	if err := json.Unmarshal(resp.Body, &order); err != nil {
		return nil, acmeerr.DecodeError("newOrder returned invalid JSON: %s", err)
	}
	order.ID = resp.Header.Get(acme.LOCATION_HEADER)

	log.Infof("Created new order with ID %q for %d identifier(s)",
		order.ID, len(order.Identifiers))
	return &order, nil
}

// solveAuthorization fetches one authorization, answers its dns-01 challenge
// and watches the challenge's status.
func (c *Client) solveAuthorization(authzURL string) error {
	resp, err := c.PostAsGet(authzURL)
	if err != nil {
		return err
	}
	if !acmenet.StatusOK(resp.StatusCode) {
		return acmeerr.AuthorizationError("authorization %q returned status %d: %s",
			authzURL, resp.StatusCode, resp.Body)
	}

	var authz resources.Authorization
	if err := json.Unmarshal(resp.Body, &authz); err != nil {
		return acmeerr.DecodeError("authorization %q returned invalid JSON: %s",
			authzURL, err)
	}
	authz.ID = authzURL

	chall, ok := authz.ChallengeByType(acme.CHALLENGE_TYPE_DNS01)
	if !ok {
		return acmeerr.AuthorizationError("authorization %q offers no %q challenge",
			authzURL, acme.CHALLENGE_TYPE_DNS01)
	}

	keyAuth, err := c.Keys.KeyAuthorization(chall.Token)
	if err != nil {
		return err
	}

	if c.challSrv != nil {
		c.challSrv.AddDNSOneChallenge(authz.Identifier.Value, keyAuth)
		defer c.challSrv.DeleteDNSOneChallenge(authz.Identifier.Value)
		log.Infof("Published dns-01 response for %q", authz.Identifier.Value)
	} else {
		log.Infof("No challenge server configured. Publish TXT record %q at _acme-challenge.%s to satisfy %q",
			keys.DNSChallengeRecord(keyAuth), authz.Identifier.Value, chall.URL)
	}

	// POSTing the empty JSON object to the challenge URL tells the server to
	// begin validation. The body must be "{}", not the empty payload: that
	// would be a POST-as-GET and only reads the challenge.
	trigger, err := c.Request(chall.URL, []byte("{}"))
	if err != nil {
		return err
	}
	if !acmenet.StatusOK(trigger.StatusCode) {
		return acmeerr.AuthorizationError("challenge trigger %q returned status %d: %s",
			chall.URL, trigger.StatusCode, trigger.Body)
	}
	log.Infof("Triggered %q challenge for identifier %q", chall.Type,
		authz.Identifier.Value)

	time.Sleep(c.pollInterval)
	updated, err := c.pollChallenge(chall.URL)
	if err != nil {
		return err
	}

	switch updated.Status {
	case acme.STATUS_VALID:
		log.Infof("Challenge %q is valid", chall.URL)
	case acme.STATUS_INVALID:
		detail := ""
		if updated.Error != nil {
			detail = updated.Error.Detail
		}
		return acmeerr.AuthorizationError("challenge %q failed validation: %s",
			chall.URL, detail)
	default:
		log.Warnf("Challenge %q still has status %q after %d poll(s)",
			chall.URL, updated.Status, c.pollAttempts)
	}
	return nil
}

// pollChallenge fetches the challenge with POST-as-GET until its status is
// terminal or the attempt budget is exhausted. The interval is fixed, not
// adaptive.
func (c *Client) pollChallenge(challURL string) (*resources.Challenge, error) {
	var chall resources.Challenge
	for try := 0; try < c.pollAttempts; try++ {
		if try > 0 {
			time.Sleep(c.pollInterval)
		}

		resp, err := c.PostAsGet(challURL)
		if err != nil {
			return nil, err
		}
		if !acmenet.StatusOK(resp.StatusCode) {
			return nil, acmeerr.AuthorizationError(
				"challenge %q returned status %d: %s",
				challURL, resp.StatusCode, resp.Body)
		}
		if err := json.Unmarshal(resp.Body, &chall); err != nil {
			return nil, acmeerr.DecodeError("challenge %q returned invalid JSON: %s",
				challURL, err)
		}

		if chall.Status == acme.STATUS_VALID || chall.Status == acme.STATUS_INVALID {
			break
		}
		log.Debugf("Challenge %q is status %q (try %d)", challURL, chall.Status, try+1)
	}
	return &chall, nil
}
