package types

import "strconv"

// ProtocolError is a non-2xx server response surfaced by the transport.
// Mismatched and Stale carry the decoded 409 and 410 bodies; both are nil
// for every other code.
type ProtocolError struct {
	Code       int
	Status     string
	Mismatched *MismatchedDevices
	Stale      *StaleDevices
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Status != "" {
		return "server returned " + e.Status
	}
	return "server returned code " + strconv.Itoa(e.Code)
}

// Credential is the bearer material used against the server. UserID and
// OrgID are the directory context decoded from the token by the issuer.
type Credential struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	UserID       string `json:"userId"`
	OrgID        string `json:"orgId"`
}
