package doordash

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const sessionIdSuffix = "-dd-and"

// Identity holds the identifiers the app generates when it first starts,
// they stay the same for the whole guest session.
type Identity struct {
	DeviceId      string
	SessionId     string
	CorrelationId string
	RequestId     string
	AdvertisingId string
}

func NewIdentity() Identity {
	return Identity{
		DeviceId:      dashless(uuid.NewString()),
		SessionId:     uuid.NewString() + sessionIdSuffix,
		CorrelationId: uuid.NewString() + sessionIdSuffix,
		RequestId:     uuid.NewString() + sessionIdSuffix,
		AdvertisingId: uuid.NewString(),
	}
}

// Session is what the client needs to know about a flow to build the
// envelope of a request. Credential is empty until a guest was created.
type Session struct {
	Identity   Identity
	Credential string
}

type Coordinates struct {
	Lat float64
	Lng float64
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%v,%v", c.Lat, c.Lng)
}

type deviceIds struct {
	DeviceId      string `json:"dd_device_id"`
	SessionId     string `json:"dd_session_id"`
	AndroidId     string `json:"dd_android_id"`
	AdvertisingId string `json:"dd_android_advertising_id"`
}

// ddIds renders the DD-IDs header. The session id inside it is regenerated
// every time, the app does the same whenever the header is rebuilt.
func (i Identity) ddIds() string {
	serialized, err := json.Marshal(deviceIds{
		DeviceId:      i.DeviceId,
		SessionId:     "sx_" + uuid.NewString(),
		AndroidId:     i.DeviceId,
		AdvertisingId: i.AdvertisingId,
	})
	if err != nil {
		panic(fmt.Sprintf("marshal dd ids: %v", err))
	}
	return string(serialized)
}

func dashless(id string) string {
	return strings.ReplaceAll(id, "-", "")
}
