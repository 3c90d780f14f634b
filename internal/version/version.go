// ABOUTME: Product and version identification
// ABOUTME: Reported in protocol handshakes and command line banners
package version

import (
	"fmt"

	"github.com/Sendspin/ltc-go/pkg/protocol"
)

const (
	Version      = "0.3.0"
	Product      = "ltc-go"
	Manufacturer = "Sendspin"
)

// DeviceInfo describes this software in client/hello
func DeviceInfo() protocol.DeviceInfo {
	return protocol.DeviceInfo{
		ProductName:     Product,
		Manufacturer:    Manufacturer,
		SoftwareVersion: Version,
	}
}

// Banner is printed by the commands at startup
func Banner(command string) string {
	return fmt.Sprintf("%s %s (%s)", command, Version, Product)
}
