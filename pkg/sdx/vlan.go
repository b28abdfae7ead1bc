package sdx

import "strings"

// Key probe order for VLAN resolution. Explicit option lists are trusted
// over single suggestions, which are trusted over nested hints.
var (
	vlanListKeys   = []string{"available_vlans", "vlans", "vlans_available", "vlan_options"}
	vlanScalarKeys = []string{"suggested_vlan", "vlan", "default_vlan"}
	vlanNestedKeys = []string{"port", "endpoint", "details"}
)

// chooseVLAN picks a usable VLAN identifier from a device_info payload.
// Within an option list, "untagged" wins when preferUntagged is set,
// then the first all-digit entry, then the first entry of any form.
// Returns "" when no policy yields a VLAN; callers treat that as
// terminal, never as a default to guess around.
func chooseVLAN(info any, preferUntagged bool) string {
	m, ok := info.(map[string]any)
	if !ok {
		return ""
	}

	for _, key := range vlanListKeys {
		list, ok := m[key].([]any)
		if !ok || len(list) == 0 {
			continue
		}
		options := make([]string, 0, len(list))
		for _, v := range list {
			if v == nil {
				continue
			}
			options = append(options, scalarString(v))
		}
		if len(options) == 0 {
			continue
		}
		if preferUntagged {
			for _, v := range options {
				if strings.EqualFold(v, "untagged") {
					return "untagged"
				}
			}
		}
		for _, v := range options {
			if isDigits(v) {
				return v
			}
		}
		return options[0]
	}

	for _, key := range vlanScalarKeys {
		if v, present := m[key]; present && v != nil {
			return scalarString(v)
		}
	}

	for _, key := range vlanNestedKeys {
		if v := chooseVLAN(m[key], preferUntagged); v != "" {
			return v
		}
	}

	return ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
