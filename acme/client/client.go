// Package client provides the ACME account session engine: registration,
// reload, persistence and the order/authorization flow.
package client

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"github.com/certo-acme/certo/acme"
	"github.com/certo-acme/certo/acme/keys"
	"github.com/certo-acme/certo/acmeerr"
	"github.com/certo-acme/certo/challsrv"
	acmenet "github.com/certo-acme/certo/net"
	"github.com/certo-acme/certo/storage"
)

// Config contains the options for creating or reloading an account session.
type Config struct {
	// A fully qualified URL for the ACME server's directory resource. When
	// empty the Let's Encrypt staging directory is used. Only consulted on
	// registration; a reloaded session uses its persisted directory.
	DirectoryURL string
	// An optional file path to one or more PEM encoded CA certificates to be
	// used as trust roots for HTTPS requests to the ACME server.
	CACert string
	// The contact email address. It doubles as the account name in the store.
	Email string
	// The store that persists the account material. Held by reference; it
	// must outlive every session using it.
	Store storage.Store
	// Optional dns-01 response publisher. When nil the order flow logs the
	// TXT record the operator must publish instead.
	ChallengeServer challsrv.ChallengeServer
	// Time to wait between the challenge trigger and each status poll.
	// Defaults to 2 seconds.
	PollInterval time.Duration
	// Number of status polls before giving up on a challenge reaching
	// a terminal state. Defaults to 5.
	PollAttempts int
}

// normalize validates a Config and fills in defaults.
func (conf *Config) normalize() error {
	conf.DirectoryURL = strings.TrimSpace(conf.DirectoryURL)
	conf.Email = strings.TrimSpace(conf.Email)

	if conf.DirectoryURL == "" {
		conf.DirectoryURL = acme.LETSENCRYPT_STAGING_DIRECTORY
	}
	if _, err := url.Parse(conf.DirectoryURL); err != nil {
		return fmt.Errorf("DirectoryURL invalid: %s", err.Error())
	}

	if conf.Email == "" {
		return fmt.Errorf("Email must not be empty")
	}
	addr, err := mail.ParseAddress(conf.Email)
	if err != nil {
		return fmt.Errorf("Email is invalid: %s", err.Error())
	}
	conf.Email = addr.Address

	if conf.Store == nil {
		return fmt.Errorf("Store must not be nil")
	}

	if conf.PollInterval <= 0 {
		conf.PollInterval = 2 * time.Second
	}
	if conf.PollAttempts <= 0 {
		conf.PollAttempts = 5
	}
	return nil
}

// Client is an account session with an ACME server. It owns its keypair,
// nonce and key identifier exclusively; the store is borrowed. All methods
// are blocking and a session must not be shared between goroutines: every
// request consumes the nonce produced by the previous response, so requests
// within a session are totally ordered.
type Client struct {
	// The contact email address, also used as the account name in the store.
	Email string
	// Contact addresses sent on registration, e.g. "mailto:alice@example.test".
	Contact []string
	// The server-assigned account URL, used as the JWS "kid" for every
	// request after registration. Empty until newAccount succeeds or the
	// session is reloaded.
	ID string
	// The server's service discovery document. Read-only once populated.
	Directory *Directory
	// The account keypair. Never mutated after creation.
	Keys *keys.KeyPair

	store        storage.Store
	net          *acmenet.ACMENet
	nonce        string
	challSrv     challsrv.ChallengeServer
	pollInterval time.Duration
	pollAttempts int
}

// NewClient registers a fresh account: it generates a P-256 keypair, fetches
// the directory and an initial nonce, creates the account with the ACME
// server (agreeing to its terms of service) and persists the session.
func NewClient(conf Config) (*Client, error) {
	if err := conf.normalize(); err != nil {
		return nil, err
	}

	net, err := acmenet.New(conf.CACert)
	if err != nil {
		return nil, err
	}

	keyPair, err := keys.NewKeyPair()
	if err != nil {
		return nil, err
	}

	directory, err := NewDirectory(net, conf.DirectoryURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		Email:        conf.Email,
		Contact:      []string{fmt.Sprintf("mailto:%s", conf.Email)},
		Directory:    directory,
		Keys:         keyPair,
		store:        conf.Store,
		net:          net,
		challSrv:     conf.ChallengeServer,
		pollInterval: conf.PollInterval,
		pollAttempts: conf.PollAttempts,
	}

	if err := c.RefreshNonce(); err != nil {
		return nil, err
	}

	if err := c.register(); err != nil {
		return nil, err
	}

	if err := c.Save(); err != nil {
		return nil, err
	}

	log.Infof("Registered account %q with ID %q", c.Email, c.ID)
	return c, nil
}

// LoadClient reopens a previously registered session from the store: keypair
// from the PKCS#8 blob, directory from its serialized copy, account URL as
// UTF-8. A fresh nonce is fetched; nonces are never persisted.
func LoadClient(conf Config) (*Client, error) {
	if err := conf.normalize(); err != nil {
		return nil, err
	}

	net, err := acmenet.New(conf.CACert)
	if err != nil {
		return nil, err
	}

	keyBlob, err := conf.Store.Read(storage.KeyPair, conf.Email)
	if err != nil {
		return nil, err
	}
	keyPair, err := keys.LoadKeyPair(keyBlob)
	if err != nil {
		return nil, err
	}

	dirBlob, err := conf.Store.Read(storage.Directory, conf.Email)
	if err != nil {
		return nil, err
	}
	directory, err := LoadDirectory(dirBlob)
	if err != nil {
		return nil, err
	}

	urlBlob, err := conf.Store.Read(storage.AccountURL, conf.Email)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(urlBlob) {
		return nil, acmeerr.DecodeError("stored account URL for %q is not UTF-8",
			conf.Email)
	}

	c := &Client{
		Email:        conf.Email,
		Contact:      []string{fmt.Sprintf("mailto:%s", conf.Email)},
		ID:           string(urlBlob),
		Directory:    directory,
		Keys:         keyPair,
		store:        conf.Store,
		net:          net,
		challSrv:     conf.ChallengeServer,
		pollInterval: conf.PollInterval,
		pollAttempts: conf.PollAttempts,
	}

	if err := c.RefreshNonce(); err != nil {
		return nil, err
	}

	log.Infof("Restored account %q with ID %q", c.Email, c.ID)
	return c, nil
}

// register creates the account with the ACME server.
//
// Important: this unconditionally agrees to the server's terms of service
// ("termsOfServiceAgreed": true is sent in every newAccount request).
//
// See https://tools.ietf.org/html/rfc8555#section-7.3
func (c *Client) register() error {
	newAcctReq := struct {
		ToSAgreed bool     `json:"termsOfServiceAgreed"`
		Contact   []string `json:"contact,omitempty"`
	}{
		ToSAgreed: true,
		Contact:   c.Contact,
	}

	reqBody, err := json.Marshal(&newAcctReq)
	if err != nil {
		return err
	}

	log.Infof("Sending %q request (contact: %s)",
		acme.NEW_ACCOUNT_ENDPOINT, c.Contact)
	resp, err := c.Request(acme.NEW_ACCOUNT_ENDPOINT, reqBody)
	if err != nil {
		return err
	}

	if !acmenet.StatusOK(resp.StatusCode) {
		return acmeerr.RegistrationError(
			"newAccount returned status %d: %s", resp.StatusCode, resp.Body)
	}

	// Request captured the Location header into c.ID already; a 2xx without
	// one is a protocol violation.
	if c.ID == "" {
		return acmeerr.MissingHeaderError(
			"newAccount response carried no %s header", acme.LOCATION_HEADER)
	}
	return nil
}

// Save persists the session: the PKCS#8 keypair blob, the account URL and
// the serialized directory, in that order. The writes are not atomic as
// a set; a torn save surfaces on the next load and the caller re-registers.
func (c *Client) Save() error {
	if err := c.store.Write(storage.KeyPair, c.Email, c.Keys.PKCS8); err != nil {
		return err
	}
	if err := c.store.Write(storage.AccountURL, c.Email, []byte(c.ID)); err != nil {
		return err
	}
	dirBlob, err := json.Marshal(c.Directory)
	if err != nil {
		return acmeerr.DecodeError("serializing directory: %s", err)
	}
	if err := c.store.Write(storage.Directory, c.Email, dirBlob); err != nil {
		return err
	}
	log.Debugf("Saved account %q", c.Email)
	return nil
}

// Info returns a printable summary of the session, including which of the
// account's objects the store currently holds.
func (c *Client) Info() string {
	var b strings.Builder
	fmt.Fprintf(&b, "account: %s\n", c.ID)
	fmt.Fprintf(&b, "contact: %s\n", strings.Join(c.Contact, ", "))
	fmt.Fprintf(&b, "directory: %s\n", c.Directory.URL)
	if thumbprint, err := c.Keys.Thumbprint(); err == nil {
		fmt.Fprintf(&b, "key thumbprint: %s\n", thumbprint)
	}

	var stored []string
	for _, kind := range []storage.ObjectKind{
		storage.Directory, storage.KeyPair, storage.AccountURL,
	} {
		if _, err := c.store.Read(kind, c.Email); err == nil {
			stored = append(stored, kind.String())
		}
	}
	if len(stored) == 0 {
		fmt.Fprintf(&b, "stored: none\n")
	} else {
		fmt.Fprintf(&b, "stored: %s\n", strings.Join(stored, ", "))
	}
	return b.String()
}

// KeyAuthorization computes the key authorization for a challenge token with
// the session's account key. This is the value the domain owner publishes
// (hashed, for dns-01) for the CA to validate.
func (c *Client) KeyAuthorization(token string) (string, error) {
	return c.Keys.KeyAuthorization(token)
}
