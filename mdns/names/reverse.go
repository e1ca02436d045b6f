package names

import (
	"fmt"
	"net"
	"strings"
)

// ReverseDNSName returns the labels used to look up ip in a PTR record:
// four reversed octet labels under "in-addr.arpa" for IPv4, or 32 reversed
// uppercase hex nibble labels under "ip6.arpa" for IPv6.
//
// It returns (nil, false) if ip is not a valid IPv4 or IPv6 address.
func ReverseDNSName(ip net.IP) (Labels, bool) {
	if ip == nil {
		return nil, false
	}

	if v4 := ip.To4(); v4 != nil {
		return Labels{
			fmt.Sprintf("%d", v4[3]),
			fmt.Sprintf("%d", v4[2]),
			fmt.Sprintf("%d", v4[1]),
			fmt.Sprintf("%d", v4[0]),
			"in-addr", "arpa",
		}, true
	}

	v6 := ip.To16()
	if v6 == nil {
		return nil, false
	}

	labels := make(Labels, 0, 34)
	for i := 15; i >= 0; i-- {
		octet := v6[i]
		high := octet >> 4
		low := octet & 0xf
		labels = append(labels, strings.ToUpper(fmt.Sprintf("%x", low)))
		labels = append(labels, strings.ToUpper(fmt.Sprintf("%x", high)))
	}
	labels = append(labels, "ip6", "arpa")

	return labels, true
}
