package flow

import (
	"ddfeed/internal/components/assert"
	"ddfeed/internal/document"
	"ddfeed/internal/extract"
	"ddfeed/internal/scrapers/doordash"
)

// SessionState accumulates what the steps of a flow learn about the guest
// session. Fields that are only valid after a given step are unexported and
// read through accessors that panic when the step has not happened yet.
type SessionState struct {
	Identity doordash.Identity

	credential string
	placeId    string
	addressId  string
	coords     *doordash.Coordinates

	Home       document.Node
	Token      extract.SectionToken
	TokenFound bool
	Feed       document.Node
	FeedLabel  string
	Records    []extract.StoreRecord
}

func NewSessionState() *SessionState {
	return &SessionState{Identity: doordash.NewIdentity()}
}

// Session is the envelope information of the state, it is valid at any
// point of the flow.
func (s SessionState) Session() doordash.Session {
	return doordash.Session{Identity: s.Identity, Credential: s.credential}
}

func (s SessionState) HasCredential() bool {
	return s.credential != ""
}

func (s SessionState) HasCoords() bool {
	return s.coords != nil
}

func (s SessionState) Credential() string {
	assert.True(s.credential != "", "session state: credential read before a guest was created")
	return s.credential
}

func (s SessionState) Coords() doordash.Coordinates {
	assert.True(s.coords != nil, "session state: coordinates read before the address was resolved")
	return *s.coords
}

func (s SessionState) RequirePlaceId() string {
	assert.True(s.placeId != "", "session state: place id read before autocomplete")
	return s.placeId
}

func (s SessionState) RequireAddressId() string {
	assert.True(s.addressId != "", "session state: address id read before the address was registered")
	return s.addressId
}

// requireFeedPrerequisites asserts that a feed can be requested, a feed is
// always bound to both an authenticated guest and a location.
func (s SessionState) requireFeedPrerequisites() (doordash.Session, doordash.Coordinates) {
	s.Credential()
	return s.Session(), s.Coords()
}
