// Package description contains objects to describe streams.
package description

import (
	"fmt"

	psdp "github.com/pion/sdp/v3"
)

// Info contains the session-level fields of the description.
type Info struct {
	// session id
	SessionID uint32

	// session version
	Version uint64

	// user name (optional).
	// It defaults to "-".
	User string

	// session name (optional).
	// It defaults to "Stream".
	Name string

	// session information (optional)
	Info string

	// start and stop time
	StartTime uint64
	StopTime  uint64
}

// Session is the description of a RTSP session.
type Session struct {
	Info Info

	// address of the server, used in the origin field
	ServerAddress string

	// connection address
	ConnectionAddress string

	// multicast TTL. When greater than zero, it is appended to the connection address.
	TTL int

	// media streams
	Medias []*Media
}

// Marshal encodes the description in SDP.
func (d Session) Marshal() ([]byte, error) {
	if len(d.Medias) == 0 {
		return nil, fmt.Errorf("no medias")
	}

	user := d.Info.User
	if user == "" {
		user = "-"
	}

	name := d.Info.Name
	if name == "" {
		name = "Stream"
	}

	serverAddress := d.ServerAddress
	if serverAddress == "" {
		serverAddress = "0.0.0.0"
	}

	connectionAddress := d.ConnectionAddress
	if connectionAddress == "" {
		connectionAddress = "0.0.0.0"
	}

	address := &psdp.Address{Address: connectionAddress}
	if d.TTL > 0 {
		ttl := d.TTL
		address.TTL = &ttl
	}

	sout := &psdp.SessionDescription{
		Origin: psdp.Origin{
			Username:       user,
			SessionID:      uint64(d.Info.SessionID),
			SessionVersion: d.Info.Version,
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: serverAddress,
		},
		SessionName: psdp.SessionName(name),
		ConnectionInformation: &psdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: "IP4",
			Address:     address,
		},
		TimeDescriptions: []psdp.TimeDescription{
			{Timing: psdp.Timing{StartTime: d.Info.StartTime, StopTime: d.Info.StopTime}},
		},
		Attributes: []psdp.Attribute{
			{Key: "control", Value: "*"},
		},
		MediaDescriptions: make([]*psdp.MediaDescription, len(d.Medias)),
	}

	if d.Info.Info != "" {
		info := psdp.Information(d.Info.Info)
		sout.SessionInformation = &info
	}

	for i, media := range d.Medias {
		sout.MediaDescriptions[i] = media.Marshal()
	}

	return sout.Marshal()
}
