// Package challsrv publishes dns-01 challenge responses. The order flow hands
// it a key authorization per domain; how the matching TXT record reaches the
// validating server is the implementation's business.
package challsrv

import (
	stdlog "log"
	"os"

	"github.com/letsencrypt/challtestsrv"

	"github.com/certo-acme/certo/acme/keys"
	"github.com/certo-acme/certo/acmeerr"
)

// ChallengeServer is the part of a dns-01 response publisher the order flow
// uses. AddDNSOneChallenge receives the bare domain (no _acme-challenge
// prefix) and the full key authorization.
type ChallengeServer interface {
	// Start/stop the challenge server.
	Run()
	Shutdown()

	// DNS-01 challenge add/remove.
	AddDNSOneChallenge(host string, keyAuth string)
	DeleteDNSOneChallenge(host string)
}

// dnsServer wraps an in-process letsencrypt/challtestsrv instance serving
// DNS-01 responses on a local DNS listener. Useful against Pebble or any ACME
// server whose resolver can be pointed at this process.
type dnsServer struct {
	srv *challtestsrv.ChallSrv
}

// NewDNSServer creates an in-process challenge server answering DNS queries
// on the given address (e.g. ":5252").
func NewDNSServer(dnsAddr string) (ChallengeServer, error) {
	srv, err := challtestsrv.New(challtestsrv.Config{
		DNSOneAddrs: []string{dnsAddr},
		Log:         stdlog.New(os.Stdout, "challRespSrv: ", stdlog.Ldate|stdlog.Ltime),
	})
	if err != nil {
		return nil, acmeerr.TransportError("creating challenge server on %q: %s",
			dnsAddr, err)
	}
	return &dnsServer{srv: srv}, nil
}

func (d *dnsServer) Run() {
	go d.srv.Run()
}

func (d *dnsServer) Shutdown() {
	d.srv.Shutdown()
}

// AddDNSOneChallenge stores the validation digest under the full challenge
// record name; challtestsrv answers TXT queries with the stored strings
// verbatim.
func (d *dnsServer) AddDNSOneChallenge(host string, keyAuth string) {
	d.srv.AddDNSOneChallenge(challengeRecordName(host), keys.DNSChallengeRecord(keyAuth))
}

func (d *dnsServer) DeleteDNSOneChallenge(host string) {
	d.srv.DeleteDNSOneChallenge(challengeRecordName(host))
}

func challengeRecordName(host string) string {
	return "_acme-challenge." + host + "."
}
