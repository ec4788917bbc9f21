package challsrv

import (
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certo-acme/certo/acme/keys"
)

func TestDNSServerServesChallengeRecord(t *testing.T) {
	const addr = "127.0.0.1:5273"

	srv, err := NewDNSServer(addr)
	require.NoError(t, err)
	srv.Run()
	defer srv.Shutdown()

	keyAuth := "tok.thumbprint"
	srv.AddDNSOneChallenge("a.test", keyAuth)

	m := new(dns.Msg)
	m.SetQuestion("_acme-challenge.a.test.", dns.TypeTXT)

	// The listener starts asynchronously; retry briefly.
	var in *dns.Msg
	for try := 0; try < 20; try++ {
		in, err = dns.Exchange(m, addr)
		if err == nil && len(in.Answer) > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	require.NoError(t, err)
	require.NotEmpty(t, in.Answer)

	txt, ok := in.Answer[0].(*dns.TXT)
	require.True(t, ok)
	require.NotEmpty(t, txt.Txt)
	assert.Equal(t, keys.DNSChallengeRecord(keyAuth), txt.Txt[0])

	// Cleanup removes the record.
	srv.DeleteDNSOneChallenge("a.test")
	in, err = dns.Exchange(m, addr)
	require.NoError(t, err)
	assert.Empty(t, in.Answer)
}
