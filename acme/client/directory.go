package client

import (
	"encoding/json"

	"github.com/certo-acme/certo/acmeerr"
	acmenet "github.com/certo-acme/certo/net"
)

// Directory is the ACME server's service discovery document together with the
// URL it was fetched from. The document is kept as an opaque map because RFC
// 8555 permits resource names this client does not consume (revokeCert,
// keyChange, renewalInfo, ...). Entries are read-only once populated.
//
// See https://tools.ietf.org/html/rfc8555#section-7.1.1
type Directory struct {
	// The URL the directory was fetched from.
	URL string
	// The decoded directory document.
	resources map[string]interface{}
}

// directoryJSON is the persisted shape: {"url": ..., "directory": {...}}.
type directoryJSON struct {
	URL       string                 `json:"url"`
	Directory map[string]interface{} `json:"directory"`
}

// NewDirectory fetches and decodes the directory document at url.
func NewDirectory(net *acmenet.ACMENet, url string) (*Directory, error) {
	resp, err := net.GetURL(url)
	if err != nil {
		return nil, err
	}
	if !acmenet.StatusOK(resp.Response.StatusCode) {
		return nil, acmeerr.BadDirectoryError(
			"directory %q returned status %d", url, resp.Response.StatusCode)
	}

	var dirResources map[string]interface{}
	if err := json.Unmarshal(resp.RespBody, &dirResources); err != nil {
		return nil, acmeerr.BadDirectoryError(
			"directory %q returned invalid JSON: %s", url, err)
	}

	return &Directory{
		URL:       url,
		resources: dirResources,
	}, nil
}

// LoadDirectory decodes a directory previously serialized with MarshalJSON.
func LoadDirectory(data []byte) (*Directory, error) {
	var dir Directory
	if err := json.Unmarshal(data, &dir); err != nil {
		return nil, acmeerr.DecodeError("decoding stored directory: %s", err)
	}
	return &dir, nil
}

// Lookup returns the URL for a known resource name. The second return value
// is false when the directory has no such entry or the entry is not a
// non-empty string.
func (d *Directory) Lookup(resource string) (string, bool) {
	rawURL, ok := d.resources[resource]
	if !ok {
		return "", false
	}
	switch v := rawURL.(type) {
	case string:
		if v == "" {
			return "", false
		}
		return v, true
	}
	return "", false
}

func (d *Directory) MarshalJSON() ([]byte, error) {
	return json.Marshal(directoryJSON{
		URL:       d.URL,
		Directory: d.resources,
	})
}

func (d *Directory) UnmarshalJSON(data []byte) error {
	var raw directoryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.URL = raw.URL
	d.resources = raw.Directory
	return nil
}
