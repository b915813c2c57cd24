package metadata

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// Object is a DRS object, as returned by GET /objects/{id}
type Object struct {
	ID            string         `json:"id"`
	Name          string         `json:"name,omitempty"`
	SelfURI       string         `json:"self_uri"`
	Size          int64          `json:"size"`
	CreatedTime   Timestamp      `json:"created_time"`
	UpdatedTime   *Timestamp     `json:"updated_time,omitempty"`
	Version       string         `json:"version,omitempty"`
	MimeType      string         `json:"mime_type,omitempty"`
	Checksums     []Checksum     `json:"checksums"`
	AccessMethods []AccessMethod `json:"access_methods,omitempty"`
	Contents      []Contents     `json:"contents,omitempty"`
	Description   string         `json:"description,omitempty"`
	Aliases       []string       `json:"aliases,omitempty"`
}

// Checksum is a digest of an object's bytes
type Checksum struct {
	Checksum string `json:"checksum"`
	Type     string `json:"type"`
}

// AccessMethod describes one way of getting at an object's bytes.  Either
// AccessURL or AccessID will be present.
type AccessMethod struct {
	Type      string     `json:"type"`
	AccessURL *AccessURL `json:"access_url,omitempty"`
	AccessID  string     `json:"access_id,omitempty"`
	Region    string     `json:"region,omitempty"`
}

// AccessURL is a fetchable URL plus any headers needed to fetch it, as returned
// by GET /objects/{id}/access/{access_id}
type AccessURL struct {
	URL     string   `json:"url"`
	Headers []string `json:"headers,omitempty"`
}

// Contents lists the members of a bundle
type Contents struct {
	Name     string     `json:"name"`
	ID       string     `json:"id,omitempty"`
	DrsURI   []string   `json:"drs_uri,omitempty"`
	Contents []Contents `json:"contents,omitempty"`
}

// Parse parses a byte stream into DRS object metadata
func Parse(r io.Reader, o *Object) error {

	err := json.NewDecoder(r).Decode(o)
	if err != nil {
		return errors.Wrap(err, "Could not decode json object")
	}
	return nil
}

// ParseAccessURL parses a byte stream into an access URL
func ParseAccessURL(r io.Reader, u *AccessURL) error {
	err := json.NewDecoder(r).Decode(u)
	if err != nil {
		return errors.Wrap(err, "Could not decode json access url")
	}
	return nil
}

// Serialize writes the contents of the object to json
func (o *Object) Serialize(w io.Writer) error {
	return json.NewEncoder(w).Encode(o)
}

// IsBundle tells whether the object is a bundle of other objects rather than a blob
func (o *Object) IsBundle() bool {
	return len(o.Contents) > 0
}

// Method picks an access method.  With an empty accessType, the first method
// is returned.  Otherwise the first method of the given type, if any.
func (o *Object) Method(accessType string) (AccessMethod, bool) {
	for _, m := range o.AccessMethods {
		if accessType == "" || m.Type == accessType {
			return m, true
		}
	}
	return AccessMethod{}, false
}
