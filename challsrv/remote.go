package challsrv

import (
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/certo-acme/certo/acme/keys"
	acmenet "github.com/certo-acme/certo/net"
)

// remoteChallengeServer publishes dns-01 responses through the management API
// of an external pebble-challtestsrv instance.
type remoteChallengeServer struct {
	address string
	net     *acmenet.ACMENet
}

// NewRemoteChallengeServer returns a ChallengeServer backed by the
// pebble-challtestsrv HTTP API at addr (e.g. "http://localhost:8055").
func NewRemoteChallengeServer(addr string) (ChallengeServer, error) {
	net, err := acmenet.New("")
	if err != nil {
		return nil, err
	}
	return remoteChallengeServer{
		address: addr,
		net:     net,
	}, nil
}

func (srv remoteChallengeServer) url(path string) string {
	return fmt.Sprintf("%s/%s", srv.address, path)
}

func mustMarshal(ob interface{}) []byte {
	result, _ := json.Marshal(ob)
	return result
}

func (srv remoteChallengeServer) post(path string, body interface{}) {
	resp, err := srv.net.PostURL(srv.url(path), mustMarshal(body))
	if err != nil {
		log.Warnf("challenge server %q request failed: %s", path, err)
		return
	}
	if !acmenet.StatusOK(resp.Response.StatusCode) {
		log.Warnf("challenge server %q request returned status %d",
			path, resp.Response.StatusCode)
	}
}

// Run is a NOP - the remote server has its own lifecycle.
func (srv remoteChallengeServer) Run() {}

// Shutdown is a NOP - the remote server has its own lifecycle.
func (srv remoteChallengeServer) Shutdown() {}

// AddDNSOneChallenge sets the validation TXT record. The set-txt API takes
// the served record value, so the key authorization is digested here.
func (srv remoteChallengeServer) AddDNSOneChallenge(host string, keyAuth string) {
	req := struct {
		Host  string
		Value string
	}{
		Host:  challengeRecordName(host),
		Value: keys.DNSChallengeRecord(keyAuth),
	}
	srv.post("set-txt", req)
}

func (srv remoteChallengeServer) DeleteDNSOneChallenge(host string) {
	req := struct {
		Host string
	}{
		Host: challengeRecordName(host),
	}
	srv.post("clear-txt", req)
}
