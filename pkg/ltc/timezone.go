// ABOUTME: SMPTE 309M timezone codes carried in user bit groups 7 and 8
// ABOUTME: Maps between the one-byte code and its +HHMM offset string
package ltc

const defaultTimezone = "+0000"

type tzEntry struct {
	code   uint8
	offset string
}

var timezoneTable = []tzEntry{
	{0x00, "+0000"}, {0x01, "-0100"}, {0x02, "-0200"}, {0x03, "-0300"},
	{0x04, "-0400"}, {0x05, "-0500"}, {0x06, "-0600"}, {0x07, "-0700"},
	{0x08, "-0800"}, {0x09, "-0900"}, {0x10, "-1000"}, {0x11, "-1100"},
	{0x12, "-1200"}, {0x13, "+1300"}, {0x14, "+1200"}, {0x15, "+1100"},
	{0x16, "+1000"}, {0x17, "+0900"}, {0x18, "+0800"}, {0x19, "+0700"},
	{0x20, "+0600"}, {0x21, "+0500"}, {0x22, "+0400"}, {0x23, "+0300"},
	{0x24, "+0200"}, {0x25, "+0100"}, {0x26, "TP-03"}, {0x27, "TP-02"},
	{0x28, "TP-01"}, {0x29, "TP-00"}, {0x0A, "-0030"}, {0x0B, "-0130"},
	{0x0C, "-0230"}, {0x0D, "-0330"}, {0x0E, "-0430"}, {0x0F, "-0530"},
	{0x1A, "-0630"}, {0x1B, "-0730"}, {0x1C, "-0830"}, {0x1D, "-0930"},
	{0x1E, "-1030"}, {0x1F, "-1130"}, {0x2A, "+1130"}, {0x2B, "+1030"},
	{0x2C, "+0930"}, {0x2D, "+0830"}, {0x2E, "+0730"}, {0x2F, "+0630"},
	{0x3A, "+0530"}, {0x3B, "+0430"}, {0x3C, "+0330"}, {0x3D, "+0230"},
	{0x3E, "+0130"}, {0x3F, "+0030"}, {0x32, "+1245"},
}

// timezoneOffset returns the offset string for code, or +0000 when unknown
func timezoneOffset(code uint8) string {
	for _, e := range timezoneTable {
		if e.code == code {
			return e.offset
		}
	}
	return defaultTimezone
}

// timezoneCode returns the code for an offset string, or 0 when unknown
func timezoneCode(offset string) uint8 {
	for _, e := range timezoneTable {
		if e.offset == offset {
			return e.code
		}
	}
	return 0
}

// ValidTimezone reports whether offset has a SMPTE 309M code
func ValidTimezone(offset string) bool {
	for _, e := range timezoneTable {
		if e.offset == offset {
			return true
		}
	}
	return false
}
