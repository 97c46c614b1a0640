package schema

import "testing"

func TestCheckDomain(t *testing.T) {
	tests := []struct {
		name   string
		domain Domain
		value  string
		wantOK bool
	}{
		{"valid ipv4", DomainIPv4, "204.1.2.2", true},
		{"ipv4 with octet overflow", DomainIPv4, "204.1.2.300", false},
		{"ipv6 is not ipv4", DomainIPv4, "2001:db8::1", false},
		{"valid mac", DomainMAC, "e4:38:7e:02:6a:00", true},
		{"mac with dashes", DomainMAC, "e4-38-7e-02-6a-00", true},
		{"truncated mac", DomainMAC, "e4:38:7e:02:6a", false},
		{"valid hostname", DomainHostname, "SJ-Border-9300", true},
		{"hostname with space", DomainHostname, "SJ Border", false},
		{"site path", DomainSitePath, "Global/USA/SAN JOSE", true},
		{"site path root only", DomainSitePath, "Global", true},
		{"site path missing root", DomainSitePath, "USA/SAN JOSE", false},
		{"site path empty segment", DomainSitePath, "Global//SAN JOSE", false},
		{"datetime", DomainDatetime, "2024-11-01 09:30:00", true},
		{"datetime wrong layout", DomainDatetime, "01-11-2024 09:30", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := checkDomain(tt.domain, tt.value)
			if (msg == "") != tt.wantOK {
				t.Errorf("checkDomain(%s, %q) = %q, want ok=%v", tt.domain, tt.value, msg, tt.wantOK)
			}
		})
	}
}

func TestCheckIntDomainVLAN(t *testing.T) {
	for _, reserved := range []int{1002, 1003, 1004, 1005, 2046} {
		if msg := checkIntDomain(DomainVLANID, reserved); msg == "" {
			t.Errorf("reserved VLAN %d accepted", reserved)
		}
	}
	for _, ok := range []int{2, 1001, 1006, 2045, 2047, 4094} {
		if msg := checkIntDomain(DomainVLANID, ok); msg != "" {
			t.Errorf("VLAN %d rejected: %s", ok, msg)
		}
	}
	if msg := checkIntDomain(DomainVLANID, 4095); msg == "" {
		t.Error("VLAN 4095 accepted, range ends at 4094")
	}
}

func TestCheckIgnoreDuration(t *testing.T) {
	tests := []struct {
		value  string
		wantOK bool
	}{
		{"1h", true},
		{"720h", true},
		{"721h", false},
		{"1d", true},
		{"30d", true},
		{"31d", false},
		{"0h", false},
		{"720", false},
		{"12m", false},
		{"h", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			msg := checkIgnoreDuration(tt.value)
			if (msg == "") != tt.wantOK {
				t.Errorf("checkIgnoreDuration(%q) = %q, want ok=%v", tt.value, msg, tt.wantOK)
			}
		})
	}
}

func TestIgnoreDurationHours(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"1h", 1},
		{"48h", 48},
		{"1d", 24},
		{"30d", 720},
	}
	for _, tt := range tests {
		got, err := IgnoreDurationHours(tt.value)
		if err != nil {
			t.Fatalf("IgnoreDurationHours(%q): %v", tt.value, err)
		}
		if got != tt.want {
			t.Errorf("IgnoreDurationHours(%q) = %d, want %d", tt.value, got, tt.want)
		}
	}
	if _, err := IgnoreDurationHours("31d"); err == nil {
		t.Error("IgnoreDurationHours(31d) should fail, days are capped at 30")
	}
}

func TestNormalizeMAC(t *testing.T) {
	if got := NormalizeMAC("E4-38-7E-02-6A-00"); got != "e4:38:7e:02:6a:00" {
		t.Errorf("NormalizeMAC = %q", got)
	}
}

func TestSeverityFromLabel(t *testing.T) {
	tests := []struct {
		label string
		want  int
		ok    bool
	}{
		{"Emergency", 0, true},
		{"Warning", 4, true},
		{"warning", 4, true},
		{"Info", 6, true},
		{"Debug", 0, false},
	}
	for _, tt := range tests {
		got, ok := SeverityFromLabel(tt.label)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("SeverityFromLabel(%q) = %d, %v; want %d, %v", tt.label, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCheckSyslogTriple(t *testing.T) {
	// ADJCHG is an adjacency-change mnemonic: valid under severity 5 for
	// CLNS and OSPF, invalid under any other severity.
	if msg := CheckSyslogTriple(5, "OSPF", "ADJCHG"); msg != "" {
		t.Errorf("severity 5 OSPF/ADJCHG rejected: %s", msg)
	}
	if msg := CheckSyslogTriple(5, "CLNS", "ADJCHG"); msg != "" {
		t.Errorf("severity 5 CLNS/ADJCHG rejected: %s", msg)
	}
	if msg := CheckSyslogTriple(3, "OSPF", "ADJCHG"); msg == "" {
		t.Error("severity 3 OSPF/ADJCHG accepted, ADJCHG is a severity 5 mnemonic")
	}
	if msg := CheckSyslogTriple(4, "REDUNDANCY", "PEER_MONITOR_EVENT"); msg != "" {
		t.Errorf("severity 4 REDUNDANCY/PEER_MONITOR_EVENT rejected: %s", msg)
	}
	if msg := CheckSyslogTriple(2, "BGP", "NOPEER"); msg == "" {
		t.Error("unlisted facility accepted")
	}
}
