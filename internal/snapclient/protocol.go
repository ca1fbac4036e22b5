package snapclient

import (
	"encoding/json"
	"net"

	"github.com/doismellburning/samoyed/internal/snaperr"
)

// SnapStreamProtocolVersion is the Snapcast wire protocol version this
// client speaks; spec.md §6 requires it be sent as 2.
const SnapStreamProtocolVersion = 2

// helloPayload is the JSON body of the HELLO message, per spec.md §6: the
// client identifies itself via MAC address as both mac and id.
type helloPayload struct {
	Arch                      string `json:"Arch"`
	ClientName                string `json:"ClientName"`
	HostName                  string `json:"HostName"`
	ID                        string `json:"ID"`
	Instance                  int    `json:"Instance"`
	MAC                       string `json:"MAC"`
	OS                        string `json:"OS"`
	SnapStreamProtocolVersion int    `json:"SnapStreamProtocolVersion"`
	Version                   string `json:"Version"`
}

// serverSettingsPayload is the JSON body of a SERVER_SETTINGS message, per
// spec.md §3's {buffer_ms, latency, muted, volume} subset that the server
// controls.
type serverSettingsPayload struct {
	BufferMs int  `json:"bufferMs"`
	Latency  int  `json:"latency"`
	Muted    bool `json:"muted"`
	Volume   int  `json:"volume"`
}

func marshalHello(clientName, hostname, mac, arch, osName, version string, instance int) ([]byte, error) {
	p := helloPayload{
		Arch:                      arch,
		ClientName:                clientName,
		HostName:                  hostname,
		ID:                        mac,
		Instance:                  instance,
		MAC:                       mac,
		OS:                        osName,
		SnapStreamProtocolVersion: SnapStreamProtocolVersion,
		Version:                   version,
	}

	return json.Marshal(p)
}

func unmarshalServerSettings(b []byte) (serverSettingsPayload, error) {
	var p serverSettingsPayload

	if err := json.Unmarshal(b, &p); err != nil {
		return serverSettingsPayload{}, snaperr.New(snaperr.MalformedFrame, "unmarshal_server_settings", err) //nolint:exhaustruct
	}

	return p, nil
}

// LocalMAC returns the hardware address of the first non-loopback network
// interface that has one, formatted as a colon-separated MAC string; the
// interface's up/down state is not checked. Snapcast
// servers key client identity off this value.
func LocalMAC() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", snaperr.New(snaperr.Transport, "local_mac:interfaces", err)
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		if len(iface.HardwareAddr) == 0 {
			continue
		}

		return iface.HardwareAddr.String(), nil
	}

	return "", snaperr.New(snaperr.Transport, "local_mac:none_found", nil)
}
