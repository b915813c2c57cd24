package metadata

import (
	"fmt"
)

// Validate verifies whether object metadata carries what a DRS client needs from it.
// A positive result (no error returned) means only that a given object reflects a plausible state.  It does
// not imply that the bytes it references actually exist, or match their claimed checksums, etc.
//
// Only the id is required; several backends omit self_uri and checksums.  Every access method
// that is present must name a type and carry either an access_url or an access_id.
func (o *Object) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("object has no id")
	}

	for i, m := range o.AccessMethods {
		if m.Type == "" {
			return fmt.Errorf("access method %d of %s has no type", i, o.ID)
		}
		if (m.AccessURL == nil || m.AccessURL.URL == "") && m.AccessID == "" {
			return fmt.Errorf("access method %d of %s has neither access_url nor access_id", i, o.ID)
		}
	}

	return nil
}

// Validate verifies that an access URL has a URL
func (u *AccessURL) Validate() error {
	if u.URL == "" {
		return fmt.Errorf("access url is empty")
	}
	return nil
}
