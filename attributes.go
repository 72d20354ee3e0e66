package ldap

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/go-objectsid"
	"github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"
)

const guidLength = 16

// renderEntry converts a search entry into its printable diagnostic form.
func renderEntry(entry *ldap.Entry) DiagnosticEntry {
	attrs := make(map[string][]string, len(entry.Attributes))
	for _, attr := range entry.Attributes {
		if attr == nil {
			continue
		}
		attrs[attr.Name] = append(attrs[attr.Name], renderValues(attr)...)
	}
	return DiagnosticEntry{DN: entry.DN, Attributes: attrs}
}

// renderValues returns printable values for one attribute. objectSid and
// objectGUID are decoded into their usual textual forms, account flag fields
// are annotated, and any other value that is not UTF-8 is base64 encoded.
func renderValues(attr *ldap.EntryAttribute) []string {
	values := make([]string, 0, len(attr.ByteValues))
	for i, raw := range attr.ByteValues {
		switch {
		case strings.EqualFold(attr.Name, "objectSid"):
			values = append(values, renderSID(raw))
		case strings.EqualFold(attr.Name, "objectGUID"):
			values = append(values, renderGUID(raw))
		case utf8.Valid(raw):
			value := string(raw)
			if i < len(attr.Values) {
				value = attr.Values[i]
			}
			values = append(values, annotateFlags(attr.Name, value))
		default:
			values = append(values, encodeBinary(raw))
		}
	}

	// Entries built without raw values only carry Values.
	if len(attr.ByteValues) == 0 {
		for _, v := range attr.Values {
			values = append(values, annotateFlags(attr.Name, v))
		}
	}
	return values
}

// renderSID formats a binary security identifier as S-1-5-21-...
func renderSID(raw []byte) string {
	// revision, sub-authority count, 6 byte authority, then 4 bytes per sub-authority
	if len(raw) < 8 || len(raw) != 8+4*int(raw[1]) {
		return encodeBinary(raw)
	}
	return objectsid.Decode(raw).String()
}

// renderGUID formats an Active Directory GUID. The first three groups are
// stored little-endian.
func renderGUID(raw []byte) string {
	if len(raw) != guidLength {
		return encodeBinary(raw)
	}

	var standard [guidLength]byte
	standard[0], standard[1], standard[2], standard[3] = raw[3], raw[2], raw[1], raw[0]
	standard[4], standard[5] = raw[5], raw[4]
	standard[6], standard[7] = raw[7], raw[6]
	copy(standard[8:], raw[8:])

	id, err := uuid.FromBytes(standard[:])
	if err != nil {
		return encodeBinary(raw)
	}
	return id.String()
}

func encodeBinary(raw []byte) string {
	return "base64:" + base64.StdEncoding.EncodeToString(raw)
}
